package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tobiasweide/ragent/internal/corpus"
	"github.com/tobiasweide/ragent/internal/server"
	"github.com/tobiasweide/ragent/internal/tracker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts an HTTP server exposing the query engine as a JSON API, with a
websocket endpoint that streams per-phase progress while a query runs.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "bind address (overrides config)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	store := corpus.NewStore(database)
	engine, err := buildEngine(ctx, cfg, store)
	if err != nil {
		return err
	}
	if engine.DocumentCount() == 0 {
		fmt.Fprintln(os.Stderr, "Warning: corpus is empty; answers will have no sources. Run `ragent ingest` first.")
	}

	tr, err := tracker.New(database)
	if err != nil {
		return fmt.Errorf("opening performance tracker: %w", err)
	}

	orch, err := buildOrchestrator(cfg, engine, tr)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Run:            runConfig(cfg),
	}, orch, tr, store)

	// Shut down cleanly on SIGINT/SIGTERM.
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
