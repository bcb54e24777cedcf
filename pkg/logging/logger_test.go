package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		enable slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"warn level", "warn", slog.LevelWarn},
		{"unknown falls back to info", "loud", slog.LevelInfo},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			if !logger.Enabled(ctx, tt.enable) {
				t.Fatalf("expected level %s to be enabled", tt.enable)
			}
		})
	}
}

func TestWithCarriesAttributes(t *testing.T) {
	logger := Default().With("component", "booking")
	if logger.Logger == nil {
		t.Fatal("With() returned logger with nil slog.Logger")
	}
	if !logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("child logger should keep the parent level")
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("child logger should not enable debug at default level")
	}
}
