package logging

import (
	"testing"

	"persona-stack/shared/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.LoggingConfig
		level   zapcore.Level
		wantErr bool
	}{
		{"Defaults", config.LoggingConfig{}, zapcore.InfoLevel, false},
		{"Debug console", config.LoggingConfig{Level: "debug", Format: "console"}, zapcore.DebugLevel, false},
		{"Warn json", config.LoggingConfig{Level: "warn", Format: "json"}, zapcore.WarnLevel, false},
		{"Bad level", config.LoggingConfig{Level: "loud"}, 0, true},
		{"Bad format", config.LoggingConfig{Format: "xml"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.level))
			if tt.level > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tt.level-1))
			}
		})
	}
}
