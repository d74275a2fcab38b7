package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "custody-ledger-server")

	l.Info().Msg("started")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "custody-ledger-server", entry["role"])
	assert.Equal(t, "started", entry["message"])
	assert.Contains(t, entry, "time")
	assert.Contains(t, entry["func"], "TestNewLogger_Fields")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestNewClientLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "agent.log")
	l := NewClientLogger("custody-ledger-agent", path)

	l.Warn().Str("item", "k-1").Msg("queued")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entry := decodeEntry(t, bytes.NewBuffer(data))
	assert.Equal(t, "custody-ledger-agent", entry["role"])
	assert.Equal(t, "k-1", entry["item"])
}

func TestOpenLogFile_FallsBackToStderr(t *testing.T) {
	assert.Equal(t, os.Stderr, openLogFile(""))

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	assert.Equal(t, os.Stderr, openLogFile(filepath.Join(blocker, "agent.log")))
}

func TestNop_DiscardsOutput(t *testing.T) {
	var buf bytes.Buffer
	l := Nop()
	l.Logger = l.Output(&buf)

	l.Info().Msg("dropped")
	assert.Empty(t, buf.String())
}

func TestWithTraceID(t *testing.T) {
	var buf bytes.Buffer
	parent := newLogger(&buf, "server")

	child := parent.WithTraceID("trace-1")
	require.NotSame(t, parent, child)
	child.Info().Msg("request")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "server", entry["role"])

	buf.Reset()
	parent.Info().Msg("no trace")
	assert.NotContains(t, decodeEntry(t, &buf), "trace_id")
}

func TestFromContext(t *testing.T) {
	require.NotNil(t, FromContext(context.Background()))

	var buf bytes.Buffer
	attached := newLogger(&buf, "server").WithTraceID("trace-2")
	ctx := attached.WithContext(context.Background())

	FromContext(ctx).Info().Msg("from context")
	assert.Equal(t, "trace-2", decodeEntry(t, &buf)["trace_id"])
}

func TestFromRequest(t *testing.T) {
	var buf bytes.Buffer
	attached := newLogger(&buf, "server").WithTraceID("trace-3")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/version", nil)
	req = req.WithContext(attached.WithContext(req.Context()))

	FromRequest(req).Info().Msg("from request")
	assert.Equal(t, "trace-3", decodeEntry(t, &buf)["trace_id"])
}
