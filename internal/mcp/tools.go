package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askTool defines the ask MCP tool.
var askTool = mcp.NewTool("ask",
	mcp.WithDescription("Ask a question against the ingested document corpus. Runs the full agentic loop (routing, retrieval, generation, self-evaluation) and returns a grounded answer with sources and confidence."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
	mcp.WithNumber("max_iterations",
		mcp.Description("Maximum retry iterations (default from configuration)"),
	),
	mcp.WithNumber("top_k",
		mcp.Description("Number of passages to retrieve per pass (default from configuration)"),
	),
)

// feedbackTool defines the feedback MCP tool.
var feedbackTool = mcp.NewTool("feedback",
	mcp.WithDescription("Record user feedback for a previously answered question. Feedback influences future strategy selection."),
	mcp.WithString("run_id",
		mcp.Required(),
		mcp.Description("Run ID returned by the ask tool"),
	),
	mcp.WithString("feedback",
		mcp.Required(),
		mcp.Description("Verdict on the answer"),
		mcp.Enum("positive", "negative", "neutral"),
	),
)

// metricsTool defines the metrics MCP tool.
var metricsTool = mcp.NewTool("metrics",
	mcp.WithDescription("Get per-strategy performance metrics and learning insights derived from the query history."),
)
