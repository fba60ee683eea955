package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newBufLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newBufLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg")
	log.Info(ctx, "inf")
	log.Warn(ctx, "wrn")
	log.Error(ctx, "err")

	out := buf.String()
	for _, want := range []string{"dbg", "inf", "wrn", "err"} {
		require.Contains(t, out, want)
	}
}

func TestSlogLogger_WithAddsAttrs(t *testing.T) {
	log, buf := newBufLogger(t)

	child := log.With("component", "session")
	child.Info(context.Background(), "state changed", "state", "anonymous")

	line := buf.String()
	require.True(t, strings.Contains(line, "component=session"), "missing bound attr: %s", line)
	require.Contains(t, line, "state=anonymous")
}
