package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	stored := zap.New(core)
	fallback := zap.NewNop()

	ctx := ContextWithLogger(context.Background(), stored)
	FromContext(ctx, fallback).Info("hit")
	if logs.Len() != 1 {
		t.Fatalf("stored logger not returned, %d entries", logs.Len())
	}

	if got := FromContext(context.Background(), fallback); got != fallback {
		t.Error("fallback not returned for an empty context")
	}
	if FromContext(context.Background(), nil) == nil {
		t.Error("nil fallback must yield a no-op logger")
	}
}
