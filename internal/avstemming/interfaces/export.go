package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	avstemming "etterlatte-utbetaling/internal/avstemming/domain"
)

// BuildKonsistensXLSX renders a consistency snapshot with one row per effective line.
func BuildKonsistensXLSX(a *avstemming.Konsistensavstemming) ([]byte, error) {
	if a == nil {
		return nil, avstemming.ErrNilAvstemming
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	summarySheet := "sammendrag"
	linesSheet := "linjer"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(linesSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Konsistensavstemming")
	_ = f.SetCellValue(summarySheet, "A3", "Id")
	_ = f.SetCellValue(summarySheet, "B3", a.ID)
	_ = f.SetCellValue(summarySheet, "A4", "Saktype")
	_ = f.SetCellValue(summarySheet, "B4", string(a.SakType))
	_ = f.SetCellValue(summarySheet, "A5", "Dato")
	_ = f.SetCellValue(summarySheet, "B5", a.Dato.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A6", "Antall oppdrag")
	_ = f.SetCellValue(summarySheet, "B6", a.AntallOppdrag)
	_ = f.SetCellValue(summarySheet, "A7", "Opprettet")
	_ = f.SetCellValue(summarySheet, "B7", a.Opprettet.Format(time.RFC3339))

	headers := []string{"Sak", "Mottaker", "Delytelse", "Fra", "Til", "Beloep", "Klassifikasjon"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(linesSheet, cell, h)
	}
	row := 2
	for _, sak := range a.Snapshot {
		for _, l := range sak.Linjer {
			_ = f.SetCellValue(linesSheet, fmt.Sprintf("A%d", row), sak.SakID)
			_ = f.SetCellValue(linesSheet, fmt.Sprintf("B%d", row), sak.StoenadsmottakerID)
			_ = f.SetCellValue(linesSheet, fmt.Sprintf("C%d", row), l.ID)
			_ = f.SetCellValue(linesSheet, fmt.Sprintf("D%d", row), l.Fra)
			_ = f.SetCellValue(linesSheet, fmt.Sprintf("E%d", row), l.Til)
			_ = f.SetCellValue(linesSheet, fmt.Sprintf("F%d", row), l.Beloep)
			_ = f.SetCellValue(linesSheet, fmt.Sprintf("G%d", row), l.Klassifikasjonskode)
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildGrensesnittPDF renders a summary of interface reconciliation runs.
func BuildGrensesnittPDF(runs []avstemming.Grensesnittavstemming) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Grensesnittavstemming")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Antall kjoeringer: %d", len(runs)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Saktype", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Fra", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Til", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Oppdrag", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, run := range runs {
		pdf.CellFormat(40, 6, string(run.SakType), "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, run.PeriodeFra.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, run.PeriodeTil.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", run.AntallOppdrag), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
