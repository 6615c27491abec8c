package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sunsplit/sunsplit/internal/engine"
	"github.com/sunsplit/sunsplit/internal/server"
	"github.com/sunsplit/sunsplit/internal/store"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the sunsplit HTTP server.

The server provides:
  - Assignment endpoint for page-rendering code
  - Beacon endpoint for impression/conversion events
  - Token-protected admin API for lifecycle and results
  - Health check endpoint

Example:
  sunsplit serve --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Port = port
	}

	log, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	s, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	eng := engine.New(s, engine.Options{
		AutoStop:  cfg.AutoStop,
		MinSample: cfg.MinSample,
		Logger:    log,
	})
	srv := server.New(eng, cfg.Port, log)

	fmt.Println()
	fmt.Printf("sunsplit running on http://localhost:%d\n", cfg.Port)
	fmt.Printf("Admin API: http://localhost:%d/api/experiments?token=%s\n", cfg.Port, srv.Token())
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(ctx)
	})
	return g.Wait()
}
