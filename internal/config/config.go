package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the tda commands.
type Config struct {
	Ameritrade Ameritrade `yaml:"ameritrade"`
	Storage    Storage    `yaml:"storage"`
	Stream     Stream     `yaml:"stream"`
	Logging    Logging    `yaml:"logging"`
}

// Ameritrade holds API credentials and endpoints.
type Ameritrade struct {
	ClientID     string `yaml:"client_id"`
	CallbackHost string `yaml:"callback_host"`
	CallbackPort int    `yaml:"callback_port"`
	BaseURL      string `yaml:"base_url"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Stream configures the streaming channel.
type Stream struct {
	QOS int `yaml:"qos"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TDA_CLIENT_ID"); v != "" {
		cfg.Ameritrade.ClientID = v
	}

	if v := os.Getenv("TDA_CALLBACK_HOST"); v != "" {
		cfg.Ameritrade.CallbackHost = v
	}

	if v := os.Getenv("TDA_CALLBACK_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Ameritrade.CallbackPort = port
		}
	}

	if v := os.Getenv("TDA_BASE_URL"); v != "" {
		cfg.Ameritrade.BaseURL = v
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
