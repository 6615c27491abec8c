package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	dbPath  string
)

var rootCmd = &cobra.Command{
	Use:   "sunsplit",
	Short: "Sunsplit - a self-hosted A/B testing engine for marketing sites",
	Long: `Sunsplit runs weighted A/B tests for landing pages, banners and popups.
Single Go binary, embedded SQLite, no external dependencies.

Experiments auto-stop once the configured significance level is reached.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", getEnvOrDefault("SUNSPLIT_CONFIG", ""), "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (overrides config)")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
