package logging

import (
	"context"
	"testing"
)

func TestEnsureRunIDIsStable(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if id == "" {
		t.Fatalf("EnsureRunID returned empty id")
	}

	ctx2, id2 := EnsureRunID(ctx)
	if id2 != id {
		t.Fatalf("EnsureRunID minted a new id %q, want existing %q", id2, id)
	}
	if ctx2 != ctx {
		t.Fatalf("EnsureRunID replaced the context for an existing id")
	}
}

func TestRunIDFromContext(t *testing.T) {
	if got := RunIDFromContext(context.Background()); got != "" {
		t.Fatalf("RunIDFromContext(empty) = %q, want empty", got)
	}

	ctx := ContextWithRunID(context.Background(), "run-123")
	if got := RunIDFromContext(ctx); got != "run-123" {
		t.Fatalf("RunIDFromContext = %q, want run-123", got)
	}
}

func TestNewRunIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRunID()
		if seen[id] {
			t.Fatalf("duplicate run id %q", id)
		}
		seen[id] = true
	}
}

func TestWithRunLoggerEnsuresID(t *testing.T) {
	ctx, log := WithRunLogger(context.Background(), Noop())
	if log == nil {
		t.Fatalf("WithRunLogger returned nil logger")
	}
	if RunIDFromContext(ctx) == "" {
		t.Fatalf("WithRunLogger did not attach a run id")
	}
}
