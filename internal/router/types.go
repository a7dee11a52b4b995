// Package router classifies query intent and selects a retrieval strategy.
// Routing is a pure function of the query, a corpus summary, and an
// optional historical-metrics snapshot; it holds no state of its own.
package router

import "fmt"

// Intent is the coarse classification of what a query tries to accomplish.
type Intent string

const (
	IntentFactual       Intent = "factual"
	IntentAnalytical    Intent = "analytical"
	IntentComparative   Intent = "comparative"
	IntentProcedural    Intent = "procedural"
	IntentClarification Intent = "clarification"
	IntentChitchat      Intent = "chitchat"
	IntentOutOfScope    Intent = "out_of_scope"
)

// Intents lists every intent, for exhaustive iteration.
var Intents = []Intent{
	IntentFactual, IntentAnalytical, IntentComparative, IntentProcedural,
	IntentClarification, IntentChitchat, IntentOutOfScope,
}

// Strategy is the retrieval algorithm chosen to satisfy a query.
type Strategy string

const (
	StrategySemantic     Strategy = "semantic"
	StrategyKeyword      Strategy = "keyword"
	StrategyHybrid       Strategy = "hybrid"
	StrategyMultiQuery   Strategy = "multi_query"
	StrategyRAGFusion    Strategy = "rag_fusion"
	StrategyDirectAnswer Strategy = "direct_answer"
)

// Strategies lists every strategy, for exhaustive iteration.
var Strategies = []Strategy{
	StrategySemantic, StrategyKeyword, StrategyHybrid,
	StrategyMultiQuery, StrategyRAGFusion, StrategyDirectAnswer,
}

// ParseStrategy validates a strategy identifier.
func ParseStrategy(s string) (Strategy, error) {
	for _, known := range Strategies {
		if Strategy(s) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown strategy %q", s)
}

// ParseIntent validates an intent identifier.
func ParseIntent(s string) (Intent, error) {
	for _, known := range Intents {
		if Intent(s) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown intent %q", s)
}

// Decision is the routing outcome for one iteration. It is produced fresh
// each iteration and never mutated.
type Decision struct {
	Intent         Intent   `json:"intent"`
	Strategy       Strategy `json:"strategy"`
	NeedsRetrieval bool     `json:"needs_retrieval"`
	Parallelizable bool     `json:"parallelizable"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	SubQueries     []string `json:"sub_queries,omitempty"`
}

// StatsProvider exposes the performance tracker's per-intent history to the
// router without coupling the router to the tracker. BestStrategy returns
// the historically best strategy for an intent and how many samples back
// that judgement.
type StatsProvider interface {
	BestStrategy(intent Intent) (Strategy, int)
}

// minBiasSamples is how much history an (intent, strategy) pair needs
// before it overrides the lexical heuristic.
const minBiasSamples = 3
