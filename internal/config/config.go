package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danielpatrickdp/squad-tactics/internal/eval"
	"github.com/danielpatrickdp/squad-tactics/internal/gate"
	"github.com/danielpatrickdp/squad-tactics/internal/interpret"
	"github.com/danielpatrickdp/squad-tactics/internal/orchestrator"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// TACTICS_SERVER_ADDR for server.addr.
const EnvPrefix = "TACTICS"

// #region types

// Config is the full configuration of the tactics binary.
type Config struct {
	Logger      LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Interpreter interpret.Config `mapstructure:"interpreter" yaml:"interpreter"`
	Gate        gate.GateConfig  `mapstructure:"gate" yaml:"gate"`
	Eval        eval.EvalConfig  `mapstructure:"eval" yaml:"eval"`
	Store       StoreConfig      `mapstructure:"store" yaml:"store"`
	Server      ServerConfig     `mapstructure:"server" yaml:"server"`
}

// LoggerConfig selects encoder, level and an optional rotating log file.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" | "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// StoreConfig locates the snapshot journal. An empty path runs in memory.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig configures `tactics serve` and the client default address.
type ServerConfig struct {
	Addr     string  `mapstructure:"addr" yaml:"addr"`
	Topology string  `mapstructure:"topology" yaml:"topology"`
	Rate     float64 `mapstructure:"rate" yaml:"rate"` // mutating calls per second
	Burst    int     `mapstructure:"burst" yaml:"burst"`
}

// #endregion types

// #region defaults

// SetDefaults registers every key so environment overrides reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "tactics")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	p := orchestrator.DefaultPipelineConfig()
	v.SetDefault("interpreter.distance_threshold", p.Interpreter.DistanceThreshold)
	v.SetDefault("gate.max_magnitude", p.Gate.MaxMagnitude)
	v.SetDefault("gate.max_affected_areas", p.Gate.MaxAffectedAreas)
	v.SetDefault("eval.max_threat_share", p.Eval.MaxThreatShare)
	v.SetDefault("eval.enforce_threat_share", p.Eval.EnforceThreatShare)

	v.SetDefault("store.path", "tactics.db")

	v.SetDefault("server.addr", "localhost:50061")
	v.SetDefault("server.topology", "")
	v.SetDefault("server.rate", 50.0)
	v.SetDefault("server.burst", 100)
}

// Default returns the configuration with no file and no environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: unmarshal defaults: %v", err))
	}
	return &cfg
}

// #endregion defaults

// #region load

// Load reads path, or ./tactics.yaml when path is empty and the file exists,
// then applies TACTICS_ environment overrides.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("tactics")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format %q: want console or json", c.Logger.Format)
	}
	if c.Interpreter.DistanceThreshold < 0 {
		return fmt.Errorf("interpreter.distance_threshold must not be negative")
	}
	if c.Gate.MaxMagnitude <= 0 {
		return fmt.Errorf("gate.max_magnitude must be positive")
	}
	if c.Eval.MaxThreatShare <= 0 || c.Eval.MaxThreatShare > 1 {
		return fmt.Errorf("eval.max_threat_share must be in (0, 1]")
	}
	if c.Server.Rate <= 0 || c.Server.Burst <= 0 {
		return fmt.Errorf("server.rate and server.burst must be positive")
	}
	return nil
}

// Pipeline collects the per-stage settings a squad pipeline runs with.
func (c *Config) Pipeline() orchestrator.PipelineConfig {
	return orchestrator.PipelineConfig{Gate: c.Gate, Eval: c.Eval, Interpreter: c.Interpreter}
}

// #endregion load
