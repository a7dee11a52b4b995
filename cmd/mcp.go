package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tobiasweide/ragent/internal/corpus"
	mcpserver "github.com/tobiasweide/ragent/internal/mcp"
	"github.com/tobiasweide/ragent/internal/tracker"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing the
query engine's ask, feedback, and metrics tools for AI agents.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
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

	tr, err := tracker.New(database)
	if err != nil {
		return fmt.Errorf("opening performance tracker: %w", err)
	}

	orch, err := buildOrchestrator(cfg, engine, tr)
	if err != nil {
		return err
	}

	// Set version from the cmd package variable.
	mcpserver.Version = Version

	// Stdout carries MCP protocol messages; status goes to stderr.
	fmt.Fprintf(os.Stderr, "ragent MCP server started on stdio (documents=%d)\n", engine.DocumentCount())

	srv := mcpserver.NewServer(orch, tr, runConfig(cfg))
	return srv.Serve()
}
