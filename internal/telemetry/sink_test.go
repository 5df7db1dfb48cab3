package telemetry

import (
	"encoding/csv"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rocket_go/internal/models"
)

type failingSink struct{ err error }

func (f failingSink) Name() string { return "falho" }
func (f failingSink) Append(models.TelemetryRecord) error { return f.err }

type countingSink struct{ n int }

func (c *countingSink) Name() string { return "contador" }
func (c *countingSink) Append(models.TelemetryRecord) error {
	c.n++
	return nil
}

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()

	sink, err := NewCSVSink(dir, "voo.csv")
	require.NoError(t, err)
	rec := NewRecord(sampleAt(time.Now(), 600), models.DerivedSignals{}, models.Snapshot{})
	require.NoError(t, sink.Append(rec))
	require.NoError(t, sink.Close())

	// reabrir não repete o cabeçalho
	sink, err = NewCSVSink(dir, "voo.csv")
	require.NoError(t, err)
	require.NoError(t, sink.Append(rec))
	require.NoError(t, sink.Close())

	f, err := os.Open(sink.Path())
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "SBIT-0: Init Seq/IMU", rows[1][2])

	assert.Error(t, sink.Append(rec), "append após Close falha")
}

func TestMultiSinkDeliversDespiteFailures(t *testing.T) {
	boom := errors.New("disco cheio")
	counter := &countingSink{}
	multi := NewMultiSink(failingSink{err: boom}, nil, counter)
	assert.Equal(t, 2, multi.Len())

	err := multi.Append(models.TelemetryRecord{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var sinkErr *SinkError
	require.ErrorAs(t, err, &sinkErr)
	assert.Equal(t, "falho", sinkErr.Sink)
	assert.Equal(t, 1, counter.n)
}
