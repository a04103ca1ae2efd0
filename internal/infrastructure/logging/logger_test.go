package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantLevel zapcore.Level
		wantErr   bool
	}{
		{"production", DefaultConfig(), zapcore.InfoLevel, false},
		{"development", DevelopmentConfig(), zapcore.DebugLevel, false},
		{"cli warn", CLIConfig("warn"), zapcore.WarnLevel, false},
		{"bad level", Config{Level: "loud"}, zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.wantLevel))
			assert.False(t, logger.Core().Enabled(tt.wantLevel-1))
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zentat.log")
	logger, err := New(Config{Level: "info", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Info("Rates updated")
	require.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}

func TestCLIConfigUsesStderr(t *testing.T) {
	cfg := CLIConfig("debug")
	assert.Equal(t, []string{"stderr"}, cfg.OutputPaths)
	assert.True(t, cfg.Development)
}

func TestComponent(t *testing.T) {
	logger := NewNop()
	child := logger.Component("rates")
	assert.NotNil(t, child)
	assert.Equal(t, "rates", child.Name())
}

func TestFallbackConstructors(t *testing.T) {
	assert.NotNil(t, NewDefault())
	assert.NotNil(t, NewDevelopment())
}
