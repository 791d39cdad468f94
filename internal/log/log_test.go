package log_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/CZERTAINLY/osfp/internal/log"
	"github.com/CZERTAINLY/osfp/internal/model"
	"github.com/stretchr/testify/require"
)

func TestContextAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := log.New(&buf, false)

	ctx := log.ContextAttrs(t.Context(), slog.String("target", "127.0.0.1"))
	ctx2 := log.ContextAttrs(ctx, slog.String("mode", "quick"))

	logger.InfoContext(ctx2, "scan started")
	logger.DebugContext(ctx2, "not visible")
	logger.InfoContext(ctx, "parent")

	dec := json.NewDecoder(&buf)
	var first, second map[string]any
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	require.False(t, dec.More())

	require.Equal(t, "scan started", first["msg"])
	require.Equal(t, "127.0.0.1", first["target"])
	require.Equal(t, "quick", first["mode"])

	require.Equal(t, "parent", second["msg"])
	require.Equal(t, "127.0.0.1", second["target"])
	require.NotContains(t, second, "mode")
}

func TestVerbose(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := log.New(&buf, true).With("session", "x")
	logger.DebugContext(log.ContextAttrs(t.Context(), slog.Int("pid", 1)), "debug")
	require.Contains(t, buf.String(), `"msg":"debug"`)
	require.Contains(t, buf.String(), `"session":"x"`)
	require.Contains(t, buf.String(), `"pid":1`)
}

func TestOutput(t *testing.T) {
	t.Parallel()
	w, c := log.Output(model.LogStderr)
	require.Equal(t, os.Stderr, w)
	require.NoError(t, c.Close())

	w, c = log.Output(model.LogDiscard)
	require.Equal(t, io.Discard, w)
	require.NoError(t, c.Close())

	path := filepath.Join(t.TempDir(), "osfp.log")
	w, c = log.Output(path)
	log.New(w, false).Info("hello")
	require.NoError(t, c.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), `"msg":"hello"`)
}
