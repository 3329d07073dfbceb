package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContext_FallsBackToDefault(t *testing.T) {
	require.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestWith_AddsAttributes(t *testing.T) {
	// --- Arrange ---
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), base)

	// --- Act ---
	ctx, logger := With(ctx, "process", "p-1")
	FromContext(ctx).Info("hello")

	// --- Assert ---
	require.Same(t, logger, FromContext(ctx))
	require.Contains(t, buf.String(), "process=p-1")
	require.Contains(t, buf.String(), "msg=hello")
}
