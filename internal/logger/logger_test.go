package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestInitLoggerLevels(t *testing.T) {
	defer slog.SetDefault(slog.Default())
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			if err := InitLoggerTo(&buf, tt.level); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			l := GetLogger()
			if !l.Enabled(context.Background(), tt.want) {
				t.Fatalf("level %s not enabled", tt.want)
			}
			if tt.want > slog.LevelDebug && l.Enabled(context.Background(), tt.want-4) {
				t.Fatalf("level below %s enabled", tt.want)
			}
		})
	}
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	if err := InitLogger("loud"); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestGetLoggerBeforeInit(t *testing.T) {
	globalLogger = nil
	if GetLogger() != slog.Default() {
		t.Fatal("GetLogger() should return slog.Default() when not initialized")
	}
}

func TestLoggerWritesText(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)
	var buf bytes.Buffer
	if err := InitLoggerTo(&buf, "info"); err != nil {
		t.Fatal(err)
	}
	GetLogger().Info("bank loaded", "presets", 2)
	if out := buf.String(); !strings.Contains(out, "bank loaded") || !strings.Contains(out, "presets=2") {
		t.Fatalf("output = %q", out)
	}
}
