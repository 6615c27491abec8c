package cli

import (
	"fmt"

	"github.com/sunsplit/sunsplit/internal/config"
	"github.com/sunsplit/sunsplit/internal/engine"
	"github.com/sunsplit/sunsplit/internal/store"
)

// loadConfig resolves file and env config, with the --db flag on top.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// withEngine opens the store, builds an engine from config, executes the
// function and handles cleanup.
func withEngine(fn func(*engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	eng := engine.New(s, engine.Options{
		AutoStop:  cfg.AutoStop,
		MinSample: cfg.MinSample,
	})
	return fn(eng)
}

func formatPercent(rate float64) string {
	if rate == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.2f%%", rate*100)
}
