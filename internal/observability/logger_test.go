package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/squad-tactics/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewJSONLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(config.LoggerConfig{Level: "warn", Format: "json", ServiceName: "tactics"}, zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", zap.String("squad", "alpha"))
	require.NoError(t, closeFn())

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"logger":"tactics"`)
	assert.Contains(t, out, `"squad":"alpha"`)
}

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tactics.log")
	var console bytes.Buffer
	logger, closeFn, err := New(config.LoggerConfig{Level: "debug", Format: "console", LogFile: path, MaxSize: 1}, zapcore.AddSync(&console))
	require.NoError(t, err)

	logger.Debug("to both")
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), "to both")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to both"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(config.LoggerConfig{Level: "loud", Format: "json"}, zapcore.AddSync(&bytes.Buffer{}))
	assert.Error(t, err)
}
