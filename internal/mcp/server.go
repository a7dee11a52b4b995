// Package mcp exposes the query engine as MCP tools over stdio, so AI
// agents can ask questions, leave feedback, and inspect metrics.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"

	"github.com/tobiasweide/ragent/internal/orchestrator"
	"github.com/tobiasweide/ragent/internal/tracker"
)

// Version is set via ldflags at build time.
var Version = "dev"

// QueryRunner executes one orchestrated run. *orchestrator.Orchestrator
// satisfies it.
type QueryRunner interface {
	Run(ctx context.Context, query string, cfg orchestrator.Config) (*orchestrator.Response, error)
}

// Server wraps an MCP server that exposes the query engine's tools.
type Server struct {
	runner  QueryRunner
	tracker *tracker.Tracker
	runCfg  orchestrator.Config
	mcp     *server.MCPServer
}

// NewServer creates a new MCP server with the given dependencies. runCfg
// is the base per-query configuration; tool arguments may override its
// iteration and topK limits.
func NewServer(runner QueryRunner, tr *tracker.Tracker, runCfg orchestrator.Config) *Server {
	s := &Server{
		runner:  runner,
		tracker: tr,
		runCfg:  runCfg,
	}

	s.mcp = server.NewMCPServer(
		"ragent",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(askTool, s.handleAsk)
	s.mcp.AddTool(feedbackTool, s.handleFeedback)
	s.mcp.AddTool(metricsTool, s.handleMetrics)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
