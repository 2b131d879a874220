package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		level   zapcore.Level
		wantErr bool
	}{
		{"default level", Config{}, zapcore.InfoLevel, false},
		{"debug development", Config{Level: "debug", Development: true}, zapcore.DebugLevel, false},
		{"upper case", Config{Level: "WARN"}, zapcore.WarnLevel, false},
		{"invalid", Config{Level: "chatty"}, zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error for invalid level")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !logger.Core().Enabled(tt.level) {
				t.Errorf("Expected level %v to be enabled", tt.level)
			}
			if tt.level > zapcore.DebugLevel && logger.Core().Enabled(tt.level-1) {
				t.Errorf("Expected level %v to be disabled", tt.level-1)
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Error("Expected a no-op logger for nil")
	}
}
