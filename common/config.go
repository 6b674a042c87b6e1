package common

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// GatewayConfig tunes the persistent connection to the local skill gateway.
type GatewayConfig struct {
	Address                 string `koanf:"address,omitempty"`
	ConnectTimeoutSeconds   int    `koanf:"connect_timeout_seconds,omitempty"`
	CallTimeoutSeconds      int    `koanf:"call_timeout_seconds,omitempty"`
	ReconnectDelaySeconds   int    `koanf:"reconnect_delay_seconds,omitempty"`
	MaxReconnectAttempts    int    `koanf:"max_reconnect_attempts,omitempty"`
}

func (c GatewayConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

func (c GatewayConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

func (c GatewayConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelaySeconds) * time.Second
}

// SessionConfig tunes workspace session lifecycle.
type SessionConfig struct {
	IdleTimeoutMinutes   int `koanf:"idle_timeout_minutes,omitempty"`
	SweepIntervalMinutes int `koanf:"sweep_interval_minutes,omitempty"`
}

func (c SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMinutes) * time.Minute
}

func (c SessionConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// IntelligenceConfig tunes the proactive analysis loop. The confidence
// thresholds and intervals are fixed defaults, not guaranteed-correct tuning,
// so everything here is overridable via the config file.
type IntelligenceConfig struct {
	AnalysisIntervalMinutes int     `koanf:"analysis_interval_minutes,omitempty"`
	LearningIntervalMinutes int     `koanf:"learning_interval_minutes,omitempty"`
	LookaheadDays           int     `koanf:"lookahead_days,omitempty"`
	AutoExecuteThreshold    float64 `koanf:"auto_execute_threshold,omitempty"`
	SuggestThreshold        float64 `koanf:"suggest_threshold,omitempty"`
	MaxRecentActions        int     `koanf:"max_recent_actions,omitempty"`
}

func (c IntelligenceConfig) AnalysisInterval() time.Duration {
	return time.Duration(c.AnalysisIntervalMinutes) * time.Minute
}

func (c IntelligenceConfig) LearningInterval() time.Duration {
	return time.Duration(c.LearningIntervalMinutes) * time.Minute
}

// StorageConfig selects and tunes the storage backend.
type StorageConfig struct {
	Type         string `koanf:"type,omitempty"` // "sqlite" or "redis"
	RedisAddress string `koanf:"redis_address,omitempty"`
	DatabasePath string `koanf:"database_path,omitempty"`
}

// Config is the top-level dayflow configuration file structure.
type Config struct {
	Gateway      GatewayConfig      `koanf:"gateway,omitempty"`
	Session      SessionConfig      `koanf:"session,omitempty"`
	Intelligence IntelligenceConfig `koanf:"intelligence,omitempty"`
	Storage      StorageConfig      `koanf:"storage,omitempty"`
	FlagsPath    string             `koanf:"flags_path,omitempty"`
}

// DefaultConfig returns the built-in defaults, used as the base that the
// config file overrides.
func DefaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			Address:               GetGatewayAddress(),
			ConnectTimeoutSeconds: 10,
			CallTimeoutSeconds:    30,
			ReconnectDelaySeconds: 3,
			MaxReconnectAttempts:  5,
		},
		Session: SessionConfig{
			IdleTimeoutMinutes:   30,
			SweepIntervalMinutes: 5,
		},
		Intelligence: IntelligenceConfig{
			AnalysisIntervalMinutes: 5,
			LearningIntervalMinutes: 60,
			LookaheadDays:           14,
			AutoExecuteThreshold:    0.8,
			SuggestThreshold:        0.6,
			MaxRecentActions:        50,
		},
		Storage: StorageConfig{
			Type: "sqlite",
		},
	}
}

// Validate ensures the Config is valid.
func (c Config) Validate() error {
	if c.Storage.Type != "sqlite" && c.Storage.Type != "redis" {
		return fmt.Errorf("invalid storage type: %s", c.Storage.Type)
	}
	if c.Intelligence.SuggestThreshold > c.Intelligence.AutoExecuteThreshold {
		return fmt.Errorf("suggest_threshold must not exceed auto_execute_threshold")
	}
	if c.Gateway.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts must not be negative")
	}
	return nil
}

// GetConfig loads the dayflow configuration from the given file path, layered
// over the built-in defaults. If the config file doesn't exist, returns the
// defaults. The config file is expected to be in YAML format.
func GetConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("error loading config: %w", err)
	}

	if err := k.Unmarshal("", &config); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}
