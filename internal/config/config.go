package config

import (
	"time"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Log      LogConfig
	Auth     AuthConfig
	Analysis AnalysisConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type AuthConfig struct {
	DemoEmail    string
	DemoPassword string
	SessionTTL   string
	// Token holds the CLI's current session token, written on login.
	Token string
}

type AnalysisConfig struct {
	PollInterval string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4820,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			DemoEmail:    "demo@breathemate.com",
			DemoPassword: "demo1234",
			SessionTTL:   "720h",
		},
		Analysis: AnalysisConfig{
			PollInterval: "2s",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/breathemate/config.json, then applies BREATHEMATE_*
// environment overrides on top.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// SessionTTL returns the parsed session lifetime, falling back to the
// default when the configured value does not parse.
func (c Config) SessionTTL() time.Duration {
	return parseDurationOr(c.Auth.SessionTTL, 720*time.Hour)
}

// PollInterval returns the analysis worker's parsed poll interval.
func (c Config) PollInterval() time.Duration {
	return parseDurationOr(c.Analysis.PollInterval, 2*time.Second)
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
