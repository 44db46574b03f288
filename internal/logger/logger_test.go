package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"warn", zapcore.WarnLevel},
		{"", zapcore.InfoLevel},
		{"loud", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		l := New(Config{Level: tt.level, Encoding: "console"})
		if !l.Core().Enabled(tt.want) {
			t.Fatalf("level %q: %v not enabled", tt.level, tt.want)
		}
		if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
			t.Fatalf("level %q: %v should be disabled", tt.level, tt.want-1)
		}
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("OrNop(nil) returned nil")
	}
	l := New(Config{})
	if OrNop(l) != l {
		t.Fatalf("OrNop replaced a non-nil logger")
	}
}
