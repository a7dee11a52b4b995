package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tobiasweide/ragent/internal/orchestrator"
	"github.com/tobiasweide/ragent/internal/tracker"
)

// handleAsk runs the full agentic loop for one question.
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	cfg := s.runCfg
	if n := request.GetInt("max_iterations", 0); n > 0 {
		cfg.MaxIterations = n
	}
	if n := request.GetInt("top_k", 0); n > 0 {
		cfg.TopK = n
	}

	resp, err := s.runner.Run(ctx, query, cfg)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatResponse(resp)), nil
}

// handleFeedback records a verdict for a past run.
func (s *Server) handleFeedback(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, err := request.RequireString("run_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: run_id"), nil
	}
	feedbackStr, err := request.RequireString("feedback")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: feedback"), nil
	}

	feedback, err := tracker.ParseFeedback(feedbackStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.tracker.RecordUserFeedback(ctx, runID, feedback); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("recording feedback failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Feedback %q recorded for run %s.", feedback, runID)), nil
}

// handleMetrics formats the tracker's metrics and insights.
func (s *Server) handleMetrics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	metrics := s.tracker.AllMetrics()
	if len(metrics) == 0 {
		return mcp.NewToolResultText("No queries recorded yet."), nil
	}

	var sb strings.Builder
	sb.WriteString("Strategy metrics:\n")
	for _, m := range metrics {
		fmt.Fprintf(&sb, "- %s/%s: %d queries, %.0f%% success, avg confidence %.2f, avg iterations %.1f\n",
			m.Intent, m.Strategy, m.TotalQueries, m.SuccessRate*100, m.AverageConfidence, m.AverageIterations)
	}

	if insights := s.tracker.Insights(); len(insights) > 0 {
		sb.WriteString("\nInsights:\n")
		for _, in := range insights {
			fmt.Fprintf(&sb, "- [%s, %s impact] %s\n", in.Kind, in.Impact, in.Description)
			if in.SuggestedAction != "" {
				fmt.Fprintf(&sb, "  Suggested: %s\n", in.SuggestedAction)
			}
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// formatResponse converts a run response into a rich text format
// optimized for AI agent consumption.
func formatResponse(resp *orchestrator.Response) string {
	var sb strings.Builder

	sb.WriteString(resp.Answer)
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Run ID: %s (use the feedback tool to rate this answer)\n", resp.RunID)
	fmt.Fprintf(&sb, "Intent: %s, strategy: %s, iterations: %d, confidence: %.2f\n",
		resp.Routing.Intent, resp.Routing.Strategy, resp.Iterations, resp.Evaluation.Confidence)
	if resp.Metadata.NeedsImprovement {
		sb.WriteString("Note: confidence stayed below the threshold; treat this answer with care.\n")
	}

	if len(resp.Sources) > 0 {
		sb.WriteString("\nSources:\n")
		for i, h := range resp.Sources {
			fmt.Fprintf(&sb, "[%d] %s (score %.3f)\n", i+1, h.Title, h.Score)
		}
	}

	return sb.String()
}
