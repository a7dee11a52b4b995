package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tobiasweide/ragent/internal/llm"
	"github.com/tobiasweide/ragent/internal/retriever"
)

const criticSystemPrompt = `You are a strict reviewer of retrieval-grounded
answers. Respond with a JSON object with exactly these fields:
  "logical_consistency": number in [0,1], does the answer contradict itself?
  "factual_accuracy": number in [0,1], do its claims match the evidence?
  "completeness": number in [0,1], does it cover the question fully?`

// Critic scores an answer independently of the token-based evaluation.
// Its scores never gate the retry decision; they only produce improvement
// suggestions for the next attempt.
type Critic struct {
	provider llm.Provider
	model    string
}

// NewCritic creates a critic over the given provider and model.
func NewCritic(provider llm.Provider, model string) *Critic {
	return &Critic{provider: provider, model: model}
}

// Critique reviews the answer against the evidence. Scorer failures yield
// zero scores with a generic suggestion rather than an error.
func (c *Critic) Critique(ctx context.Context, answer string, retrieval retriever.Result) Criticism {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Answer under review:\n%s\n\nEvidence passages:\n", answer)
	if retrieval.Empty() {
		sb.WriteString("(none retrieved)\n")
	}
	for i, h := range retrieval.Hits {
		fmt.Fprintf(&sb, "[%d] %s\n%s\n\n", i+1, h.Title, h.Text)
	}

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: criticSystemPrompt},
			{Role: llm.RoleUser, Content: sb.String()},
		},
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return Criticism{Suggestions: []string{"re-verify every claim against the retrieved evidence"}}
	}

	var raw struct {
		LogicalConsistency float64 `json:"logical_consistency"`
		FactualAccuracy    float64 `json:"factual_accuracy"`
		Completeness       float64 `json:"completeness"`
	}
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &raw); err != nil {
		return Criticism{Suggestions: []string{"re-verify every claim against the retrieved evidence"}}
	}

	crit := Criticism{
		LogicalConsistency: clamp01(raw.LogicalConsistency),
		FactualAccuracy:    clamp01(raw.FactualAccuracy),
		Completeness:       clamp01(raw.Completeness),
	}
	crit.Suggestions = deriveSuggestions(crit)
	return crit
}

// suggestionFloor is the score below which an axis earns a suggestion.
const suggestionFloor = 0.6

func deriveSuggestions(c Criticism) []string {
	var out []string
	if c.LogicalConsistency < suggestionFloor {
		out = append(out, "resolve internal contradictions in the answer")
	}
	if c.FactualAccuracy < suggestionFloor {
		out = append(out, "drop claims that the evidence does not back")
	}
	if c.Completeness < suggestionFloor {
		out = append(out, "cover the parts of the question the answer skipped")
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
