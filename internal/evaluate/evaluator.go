package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tobiasweide/ragent/internal/llm"
	"github.com/tobiasweide/ragent/internal/retriever"
)

const evalSystemPrompt = `You grade an answer against retrieved evidence.
Respond with a JSON object with exactly these fields:
  "relevance": one of "relevant", "partially_relevant", "not_relevant"
      (does the evidence address the question?)
  "support": one of "fully_supported", "partially_supported", "not_supported"
      (is every claim in the answer backed by the evidence?)
  "utility": one of "useful", "partially_useful", "not_useful"
      (does the answer help the user accomplish their goal?)
  "reasoning": a one-sentence justification`

// Evaluator scores answers using the external text-generation service.
// Scorer failures and unparseable output degrade to the most conservative
// verdict instead of surfacing an error.
type Evaluator struct {
	provider llm.Provider
	model    string
}

// NewEvaluator creates an evaluator over the given provider and model.
func NewEvaluator(provider llm.Provider, model string) *Evaluator {
	return &Evaluator{provider: provider, model: model}
}

// Evaluate grades answer against the retrieval evidence. needsRetry is set
// when confidence falls below threshold, or unconditionally when the
// answer is unsupported by the evidence.
func (e *Evaluator) Evaluate(ctx context.Context, query, answer string, retrieval retriever.Result, threshold float64) Evaluation {
	prompt := buildEvalPrompt(query, answer, retrieval)

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: evalSystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		Temperature: 0,
		JSONMode:    true,
	})
	if err != nil {
		return conservative(fmt.Sprintf("evaluation scorer unavailable: %v", err))
	}

	eval, err := parseEvaluation(resp.Content)
	if err != nil {
		return conservative(fmt.Sprintf("evaluation output unparseable: %v", err))
	}

	eval.Confidence = BlendConfidence(eval.Relevance, eval.Support, eval.Utility)
	eval.NeedsRetry = eval.Confidence < threshold || eval.Support == NotSupported
	return eval
}

func buildEvalPrompt(query, answer string, retrieval retriever.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\nAnswer to grade:\n%s\n\nEvidence passages:\n", query, answer)
	if retrieval.Empty() {
		sb.WriteString("(none retrieved)\n")
	}
	for i, h := range retrieval.Hits {
		fmt.Fprintf(&sb, "[%d] %s\n%s\n\n", i+1, h.Title, h.Text)
	}
	return sb.String()
}

type evalResponse struct {
	Relevance string `json:"relevance"`
	Support   string `json:"support"`
	Utility   string `json:"utility"`
	Reasoning string `json:"reasoning"`
}

func parseEvaluation(content string) (Evaluation, error) {
	var raw evalResponse
	if err := json.Unmarshal([]byte(extractJSON(content)), &raw); err != nil {
		return Evaluation{}, fmt.Errorf("decoding evaluation JSON: %w", err)
	}

	relevance, ok := parseRelevance(raw.Relevance)
	if !ok {
		return Evaluation{}, fmt.Errorf("unknown relevance token %q", raw.Relevance)
	}
	support, ok := parseSupport(raw.Support)
	if !ok {
		return Evaluation{}, fmt.Errorf("unknown support token %q", raw.Support)
	}
	utility, ok := parseUtility(raw.Utility)
	if !ok {
		return Evaluation{}, fmt.Errorf("unknown utility token %q", raw.Utility)
	}

	return Evaluation{
		Relevance: relevance,
		Support:   support,
		Utility:   utility,
		Reasoning: raw.Reasoning,
	}, nil
}

func parseRelevance(s string) (RelevanceToken, bool) {
	switch normalizeToken(s) {
	case "relevant":
		return Relevant, true
	case "partially_relevant", "partial":
		return PartiallyRelevant, true
	case "not_relevant", "irrelevant":
		return NotRelevant, true
	}
	return "", false
}

func parseSupport(s string) (SupportToken, bool) {
	switch normalizeToken(s) {
	case "fully_supported", "supported":
		return FullySupported, true
	case "partially_supported":
		return PartiallySupported, true
	case "not_supported", "unsupported":
		return NotSupported, true
	}
	return "", false
}

func parseUtility(s string) (UtilityToken, bool) {
	switch normalizeToken(s) {
	case "useful":
		return Useful, true
	case "partially_useful":
		return PartiallyUseful, true
	case "not_useful", "useless":
		return NotUseful, true
	}
	return "", false
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "_")
}

// extractJSON trims prose around the first top-level JSON object, which
// some models emit despite JSON mode.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
