package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Output: &buf, Level: slog.LevelDebug}).WithComponent(ComponentStorage)

	logger.Info("saved", FieldRecordID, int64(7))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, ComponentStorage, rec[FieldComponent])
	assert.Equal(t, float64(7), rec[FieldRecordID])
	assert.Equal(t, "saved", rec["msg"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestForUserContext(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})

	ctx := ForUser(context.Background(), base, 42, 4242)
	FromContext(ctx).Warn("limited")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, float64(42), rec[FieldUserID])
	assert.Equal(t, float64(4242), rec[FieldChatID])
}

func TestFromContextFallback(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	assert.Equal(t, "unknown", logger.Component())
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithComponent(ComponentDigest).
		WithOperation(OpSend).
		WithError(errors.New("boom")).
		WithError(nil)

	assert.Equal(t, ComponentDigest, f[FieldComponent])
	assert.Equal(t, OpSend, f[FieldOperation])
	assert.Equal(t, "boom", f[FieldError])
	assert.Len(t, f.ToSlice(), 6)
}
