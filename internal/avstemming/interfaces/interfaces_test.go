package interfaces

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	avstemming "etterlatte-utbetaling/internal/avstemming/domain"
	"etterlatte-utbetaling/internal/messaging"
	"etterlatte-utbetaling/internal/messaging/memory"
	utbetaling "etterlatte-utbetaling/internal/utbetaling/domain"
)

func TestMQSenderPublishesInOrder(t *testing.T) {
	broker := memory.NewBroker()
	sender, err := NewMQSender(broker, "utbetaling.avstemming")
	require.NoError(t, err)

	meldinger := [][]byte{[]byte("start"), []byte("data"), []byte("avsl")}
	require.NoError(t, sender.SendAvstemming(context.Background(), utbetaling.SakTypeBarnepensjon, meldinger))

	msgs := broker.Messages("utbetaling.avstemming")
	require.Len(t, msgs, 3)
	for i, m := range msgs {
		assert.Equal(t, meldinger[i], m.Body)
		assert.Equal(t, messaging.ContentTypeXML, m.ContentType)
		assert.Equal(t, "BARNEPENSJON", m.Headers["sak_type"])
	}
}

func TestMQSenderFailure(t *testing.T) {
	broker := memory.NewBroker()
	broker.FailWith("utbetaling.avstemming", errors.New("down"))
	sender, err := NewMQSender(broker, "utbetaling.avstemming")
	require.NoError(t, err)

	err = sender.SendAvstemming(context.Background(), utbetaling.SakTypeBarnepensjon, [][]byte{[]byte("start")})
	assert.ErrorIs(t, err, messaging.ErrPublish)

	_, err = NewMQSender(nil, "q")
	assert.Error(t, err)
}

func TestBuildKonsistensXLSX(t *testing.T) {
	a := &avstemming.Konsistensavstemming{
		ID:            "k-1",
		SakType:       utbetaling.SakTypeBarnepensjon,
		Dato:          utbetaling.NyDato(2024, 3, 4),
		AntallOppdrag: 1,
		Opprettet:     time.Date(2024, 3, 4, 5, 0, 0, 0, time.UTC),
		Snapshot: []avstemming.OppdragSnapshot{{
			SakID:              1001,
			StoenadsmottakerID: "12345678901",
			Linjer: []avstemming.SnapshotLinje{
				{ID: 1, Fra: "2024-01-01", Til: "2024-02-29", Beloep: "2500.00", Klassifikasjonskode: "BARNEPENSJON-OPTP"},
				{ID: 2, Fra: "2024-03-01", Beloep: "3000.00", Klassifikasjonskode: "BARNEPENSJON-OPTP"},
			},
		}},
	}
	data, err := BuildKonsistensXLSX(a)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	v, err := f.GetCellValue("linjer", "C3")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
	v, err = f.GetCellValue("sammendrag", "B5")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", v)

	_, err = BuildKonsistensXLSX(nil)
	assert.ErrorIs(t, err, avstemming.ErrNilAvstemming)
}

func TestBuildGrensesnittPDF(t *testing.T) {
	data, err := BuildGrensesnittPDF([]avstemming.Grensesnittavstemming{{
		SakType:       utbetaling.SakTypeOmstillingsstoenad,
		PeriodeFra:    avstemming.Epoch,
		PeriodeTil:    time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		AntallOppdrag: 12,
	}})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
