package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sunsplit/sunsplit/internal/experiment"
)

// Config is the full runtime configuration: a yaml file overridden by
// SUNSPLIT_* environment variables. No secrets live here.
type Config struct {
	DBPath            string `yaml:"db_path"`
	Port              int    `yaml:"port"`
	AutoStop          bool   `yaml:"auto_stop"`
	MinSample         int64  `yaml:"min_sample"`
	DefaultConfidence int    `yaml:"default_confidence"`
}

func Default() Config {
	return Config{
		DBPath:            "./sunsplit.db",
		Port:              8080,
		AutoStop:          true,
		MinSample:         1000,
		DefaultConfidence: 95,
	}
}

// Load reads the optional yaml file at path, applies env overrides on top
// and validates the result. A missing file is fine; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SUNSPLIT_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("SUNSPLIT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("SUNSPLIT_AUTO_STOP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AutoStop = b
		}
	}
	if v := os.Getenv("SUNSPLIT_MIN_SAMPLE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MinSample = n
		}
	}
	if v := os.Getenv("SUNSPLIT_DEFAULT_CONFIDENCE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultConfidence = n
		}
	}
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required: %w", experiment.ErrValidation)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d outside [1, 65535]: %w", c.Port, experiment.ErrValidation)
	}
	if c.MinSample < 0 {
		return fmt.Errorf("min_sample %d must be non-negative: %w", c.MinSample, experiment.ErrValidation)
	}
	if !experiment.ValidConfidence(c.DefaultConfidence) {
		return fmt.Errorf("unsupported default_confidence %d (want 90, 95 or 99): %w", c.DefaultConfidence, experiment.ErrValidation)
	}
	return nil
}
