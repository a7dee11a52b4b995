// Package orchestrator runs the agentic query loop: route, retrieve,
// generate, evaluate, optionally criticize, then retry with a
// reformulated query until confidence is sufficient or the iteration
// budget runs out.
package orchestrator

import (
	"fmt"
	"time"

	"github.com/tobiasweide/ragent/internal/evaluate"
	"github.com/tobiasweide/ragent/internal/retriever"
	"github.com/tobiasweide/ragent/internal/router"
)

// Phase names one orchestrator state for progress reporting.
type Phase string

const (
	PhaseRoute     Phase = "route"
	PhaseRetrieve  Phase = "retrieve"
	PhaseGenerate  Phase = "generate"
	PhaseEvaluate  Phase = "evaluate"
	PhaseCriticize Phase = "criticize"
	PhaseRetry     Phase = "retry"
	PhaseDone      Phase = "done"
)

// Status is the state of one progress step.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// ProgressStep is one advisory telemetry event. Consumers may ignore
// the stream entirely; it carries no decision state.
type ProgressStep struct {
	Phase    Phase  `json:"phase"`
	Status   Status `json:"status"`
	Message  string `json:"message"`
	Details  string `json:"details,omitempty"`
	Progress int    `json:"progress"` // 0..100
}

// NodeType classifies a query in the reformulation graph.
type NodeType string

const (
	NodeOriginal       NodeType = "original"
	NodeReformulation  NodeType = "reformulation"
	NodeSubquery       NodeType = "subquery"
	NodeExpansion      NodeType = "expansion"
	NodeSimplification NodeType = "simplification"
)

// LinkType records how a reformulated query was derived from its parent.
type LinkType string

const (
	LinkDecomposed LinkType = "decomposed"
	LinkExpanded   LinkType = "expanded"
	LinkSimplified LinkType = "simplified"
	LinkRefined    LinkType = "refined"
	LinkFallback   LinkType = "fallback"
)

// ReformulationNode is one query in the per-run reformulation graph.
// Nodes plus parent edges form a rooted tree: exactly one node, the
// original query, has no parent.
type ReformulationNode struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	Type       NodeType  `json:"type"`
	ParentID   string    `json:"parent_id,omitempty"`
	LinkType   LinkType  `json:"link_type,omitempty"`
	Iteration  int       `json:"iteration"`
	Confidence float64   `json:"confidence"`
	Reasoning  string    `json:"reasoning,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Metadata carries run-level diagnostics on the terminal response.
type Metadata struct {
	NeedsImprovement       bool          `json:"needs_improvement"`
	Degraded               bool          `json:"degraded"`
	ImprovementSuggestions []string      `json:"improvement_suggestions,omitempty"`
	Elapsed                time.Duration `json:"elapsed_ms"`
}

// Response is the terminal aggregate for one orchestrated run.
type Response struct {
	RunID          string              `json:"run_id"`
	Query          string              `json:"query"`
	Answer         string              `json:"answer"`
	Sources        []retriever.Hit     `json:"sources"`
	Routing        router.Decision     `json:"routing"`
	Retrieval      retriever.Result    `json:"retrieval"`
	Evaluation     evaluate.Evaluation `json:"evaluation"`
	Criticism      *evaluate.Criticism `json:"criticism,omitempty"`
	Iterations     int                 `json:"iterations"`
	Reformulations []ReformulationNode `json:"reformulations"`
	Metadata       Metadata            `json:"metadata"`
}

// Config controls one orchestrated run.
type Config struct {
	MaxIterations       int
	ConfidenceThreshold float64
	EnableCriticism     bool
	EnableAutoRetry     bool
	TopK                int

	// OnProgress, when set, receives the run's progress events in order.
	OnProgress func(ProgressStep)
}

// DefaultConfig returns the standard run configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations:       3,
		ConfidenceThreshold: 0.7,
		EnableCriticism:     true,
		EnableAutoRetry:     true,
		TopK:                5,
	}
}

// Validate rejects an unusable configuration before any state runs.
func (c Config) Validate() error {
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", c.MaxIterations)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("topK must be positive, got %d", c.TopK)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in [0,1], got %v", c.ConfidenceThreshold)
	}
	return nil
}
