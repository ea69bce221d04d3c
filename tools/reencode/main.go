// Command reencode checks stored payment instructions against the current encoder
// and exports reconciliation records for operators.
package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	avstemming "etterlatte-utbetaling/internal/avstemming/domain"
	avstemmingrepo "etterlatte-utbetaling/internal/avstemming/infrastructure/postgres"
	avstemminginterfaces "etterlatte-utbetaling/internal/avstemming/interfaces"
	"etterlatte-utbetaling/internal/config"
	"etterlatte-utbetaling/internal/observability/metrics"
	"etterlatte-utbetaling/internal/oppdrag"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
	utbetalingrepo "etterlatte-utbetaling/internal/utbetaling/infrastructure/postgres"
)

// ErrAvvik is returned when a re-encoded instruction differs from the stored payload.
var ErrAvvik = errors.New("reencode: payload differs from stored instruction")

type utbetalingKilde interface {
	HentForVedtak(ctx context.Context, vedtakID int64) (*utbetaling.Utbetaling, error)
}

type deps struct {
	utbetalinger utbetalingKilde
	avstemminger avstemming.Repository
	encoder      *oppdrag.Encoder
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer db.Close()

	d := deps{
		utbetalinger: utbetalingrepo.NewRepository(db),
		avstemminger: avstemmingrepo.NewRepository(db),
		encoder:      oppdrag.NewEncoder(oppdrag.WithKodeKomponent(cfg.KodeKomponent), oppdrag.WithEnhet(cfg.Enhet)),
	}
	if err := newRootCmd(d).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(d deps) *cobra.Command {
	var diff bool
	root := &cobra.Command{
		Use:          "reencode <vedtak-id>",
		Short:        "Re-encode a stored instruction and compare it to the stored payload",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			vedtakID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("reencode: invalid vedtak id %q", args[0])
			}
			return sjekk(cmd.Context(), d, vedtakID, cmd.OutOrStdout(), diff)
		},
	}
	root.Flags().BoolVar(&diff, "diff", false, "print both payloads when they differ")
	root.AddCommand(newExportCmd(d))
	return root
}

func sjekk(ctx context.Context, d deps, vedtakID int64, out io.Writer, diff bool) error {
	u, err := d.utbetalinger.HentForVedtak(ctx, vedtakID)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("reencode: no instruction for vedtak %d", vedtakID)
	}
	payload, err := d.encoder.Encode(u)
	if err != nil {
		return err
	}
	if bytes.Equal(payload, u.Oppdrag) {
		fmt.Fprintf(out, "vedtak %d: utbetaling %s is byte-identical (%d bytes)\n", vedtakID, u.ID, len(payload))
		return nil
	}
	fmt.Fprintf(out, "vedtak %d: utbetaling %s differs (stored %d bytes, encoded %d bytes)\n", vedtakID, u.ID, len(u.Oppdrag), len(payload))
	if diff {
		fmt.Fprintf(out, "--- stored\n%s\n+++ encoded\n%s\n", u.Oppdrag, payload)
	}
	return ErrAvvik
}

func newExportCmd(d deps) *cobra.Command {
	var (
		sakType string
		format  string
		output  string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the latest konsistensavstemming (xlsx) or recent grensesnittavstemminger (pdf)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := utbetaling.SakType(sakType)
			if !t.Gyldig() {
				return fmt.Errorf("export: unknown sak type %q", sakType)
			}
			start := time.Now()
			data, err := eksporter(cmd.Context(), d.avstemminger, t, format, limit)
			if err != nil {
				metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
				return err
			}
			metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", output, len(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&sakType, "sak-type", string(utbetaling.SakTypeBarnepensjon), "benefit category")
	cmd.Flags().StringVar(&format, "format", "xlsx", "xlsx (konsistens) or pdf (grensesnitt)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, stdout when empty")
	cmd.Flags().IntVar(&limit, "limit", 24, "number of grensesnitt runs in the pdf")
	return cmd
}

func eksporter(ctx context.Context, repo avstemming.Repository, sakType utbetaling.SakType, format string, limit int) ([]byte, error) {
	switch format {
	case "xlsx":
		siste, err := repo.SisteKonsistens(ctx, sakType)
		if err != nil {
			return nil, err
		}
		if siste == nil {
			return nil, fmt.Errorf("export: no konsistensavstemming for %s", sakType)
		}
		return avstemminginterfaces.BuildKonsistensXLSX(siste)
	case "pdf":
		runs, err := repo.ListGrensesnitt(ctx, sakType, limit)
		if err != nil {
			return nil, err
		}
		return avstemminginterfaces.BuildGrensesnittPDF(runs)
	default:
		return nil, fmt.Errorf("export: unknown format %q", format)
	}
}
