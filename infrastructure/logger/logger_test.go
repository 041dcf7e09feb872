package logger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/yaroing/feedback-platform/infrastructure/logger"
)

func TestNew_AppliesDefaults(t *testing.T) {
	t.Parallel()

	l, err := logger.New(logger.Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	child := l.With(logger.String("service", "feedback-classifier"))
	child.Debug("filtered at info level")
	child.Info("entry", logger.Float64("confidence", 0.42), logger.Error(errors.New("boom")))
}

func TestWithContext_FromContext_RoundTrip(t *testing.T) {
	t.Parallel()

	l, err := logger.New(logger.Config{Level: "debug"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := logger.WithContext(context.Background(), l)
	if got := logger.FromContext(ctx); got != l {
		t.Errorf("FromContext() = %v, want the stored logger", got)
	}
}

func TestFromContext_FallbackIsUsable(t *testing.T) {
	t.Parallel()

	fallback := logger.FromContext(context.Background())
	if fallback == nil {
		t.Fatal("FromContext() on empty context returned nil")
	}
	fallback.Warn("fallback entry", logger.Int("attempt", 1))
}

func TestNewNop_DiscardsEverything(t *testing.T) {
	t.Parallel()

	nop := logger.NewNop()
	nop.With(logger.Bool("x", true)).Fatal("must not exit")
	if err := nop.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}
