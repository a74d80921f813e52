package logging

import (
	"errors"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewOperationErrorNilPassthrough(t *testing.T) {
	if err := NewOperationError("op", "img", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestOperationErrorMessageAndUnwrap(t *testing.T) {
	base := errors.New("connection refused")
	err := NewOperationError("classifier.post", "img-1", base)

	if got, want := err.Error(), "classifier.post (image_id=img-1): connection refused"; got != want {
		t.Fatalf("unexpected message: %q, want %q", got, want)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected errors.Is to match the wrapped error")
	}

	bare := NewOperationError("config.load", "", base)
	if got, want := bare.Error(), "config.load: connection refused"; got != want {
		t.Fatalf("unexpected message: %q, want %q", got, want)
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("not-a-level")
	if err != nil {
		t.Fatalf("expected logger, got error: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug should be disabled at the default level")
	}

	debug, err := NewLogger("debug")
	if err != nil {
		t.Fatalf("expected logger, got error: %v", err)
	}
	if !debug.Core().Enabled(zapcore.DebugLevel) {
		t.Fatal("debug should be enabled when requested")
	}
}
