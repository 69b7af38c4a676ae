package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithField("backend", "fallback").Info("store ready")

	entry := lastLogLine(t, &buf)
	assert.Equal(t, "store ready", entry["msg"])
	assert.Equal(t, "fallback", entry["backend"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WarnLevel, &buf)

	logger.Info("should be dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	logger.WithError(errors.New("boom")).Error("operation failed")
	entry := lastLogLine(t, &buf)
	assert.Equal(t, "boom", entry["error"])

	// nil error adds nothing
	buf.Reset()
	logger.WithError(nil).Info("fine")
	entry = lastLogLine(t, &buf)
	assert.NotContains(t, entry, "error")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("WARNING"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("bogus"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))

	var buf bytes.Buffer
	ctx = WithLogger(ctx, NewLogger(InfoLevel, &buf))
	FromContext(ctx).Info("handled")
	entry := lastLogLine(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
}
