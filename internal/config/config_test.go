package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tactics.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultMatchesPipelineDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, 100.0, cfg.Interpreter.DistanceThreshold)
	assert.Equal(t, 100, cfg.Gate.MaxMagnitude)
	assert.Equal(t, 0.75, cfg.Eval.MaxThreatShare)
	assert.Equal(t, "tactics.db", cfg.Store.Path)
	assert.Equal(t, cfg.Gate, cfg.Pipeline().Gate)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  format: json
interpreter:
  distance_threshold: 60
gate:
  max_magnitude: 9
server:
  addr: 0.0.0.0:7000
`)
	t.Setenv("TACTICS_SERVER_BURST", "7")
	t.Setenv("TACTICS_EVAL_ENFORCE_THREAT_SHARE", "true")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, 60.0, cfg.Interpreter.DistanceThreshold)
	assert.Equal(t, 9, cfg.Gate.MaxMagnitude)
	assert.Equal(t, "0.0.0.0:7000", cfg.Server.Addr)
	assert.Equal(t, 7, cfg.Server.Burst)
	assert.True(t, cfg.Eval.EnforceThreatShare)
	// untouched keys keep their defaults
	assert.Equal(t, 50.0, cfg.Server.Rate)
	assert.Equal(t, "tactics", cfg.Logger.ServiceName)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejects(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(viper.New(), writeConfig(t, "logger:\n  format: xml\n"))
	assert.ErrorContains(t, err, "logger.format")

	_, err = Load(viper.New(), writeConfig(t, "eval:\n  max_threat_share: 1.5\n"))
	assert.ErrorContains(t, err, "max_threat_share")

	_, err = Load(viper.New(), writeConfig(t, "server:\n  rate: 0\n"))
	assert.ErrorContains(t, err, "server.rate")
}
