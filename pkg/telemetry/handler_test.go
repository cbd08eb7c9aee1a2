package telemetry

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundprediction/contradict/pkg/types"
)

func readRecords(t *testing.T, dir string) []LogRecord {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	require.NoError(t, err)

	var out []LogRecord
	for _, f := range files {
		rows, err := parquet.ReadFile[LogRecord](f)
		require.NoError(t, err)
		out = append(out, rows...)
	}
	return out
}

func TestParquetHandler_StoresErrorsOnly(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	h, err := NewParquetHandler(slog.NewTextHandler(&console, nil), dir)
	require.NoError(t, err)

	log := slog.New(h).With("component", "engine")
	ctx := context.WithValue(context.Background(), types.ContextKeyRequestID, "req-1")
	ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "http")

	log.InfoContext(ctx, "analysis started")
	log.ErrorContext(ctx, "analysis failed", "error", assert.AnError)

	require.NoError(t, h.Close())

	assert.Contains(t, console.String(), "analysis started")
	assert.Contains(t, console.String(), "analysis failed")

	records := readRecords(t, dir)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "analysis failed", rec.Message)
	assert.Equal(t, "ERROR", rec.Level)
	assert.Equal(t, "req-1", rec.RequestID)
	assert.Equal(t, "http", rec.RequestSource)
	assert.NotEmpty(t, rec.ID)
	assert.Contains(t, rec.Attributes, assert.AnError.Error())
}

func TestParquetHandler_FlushOnBatchSize(t *testing.T) {
	dir := t.TempDir()
	h, err := NewParquetHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), dir)
	require.NoError(t, err)
	h.sink.batchSize = 2

	require.NoError(t, h.Record(LogRecord{Level: "ERROR", Message: "a"}))
	files, _ := filepath.Glob(filepath.Join(dir, "*.parquet"))
	assert.Empty(t, files)

	require.NoError(t, h.Record(LogRecord{Level: "ERROR", Message: "b"}))
	files, _ = filepath.Glob(filepath.Join(dir, "*.parquet"))
	assert.Len(t, files, 1)
	assert.Len(t, readRecords(t, dir), 2)
}

func TestParquetHandler_CloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	h, err := NewParquetHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), dir)
	require.NoError(t, err)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	require.NoError(t, h.Record(LogRecord{Message: "late"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
