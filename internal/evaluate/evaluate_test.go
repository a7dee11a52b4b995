package evaluate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tobiasweide/ragent/internal/llm"
	"github.com/tobiasweide/ragent/internal/retriever"
)

// scriptedProvider returns a fixed completion or error.
type scriptedProvider struct {
	content string
	err     error
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(context.Context, llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Content: p.content}, nil
}

func sampleRetrieval() retriever.Result {
	return retriever.Result{
		Hits: []retriever.Hit{
			{DocumentID: "d1", Title: "Refund Policy", Text: "Refunds within 30 days.", Score: 0.9},
		},
		Scores: []float64{0.9},
	}
}

func TestEvaluateGoodAnswer(t *testing.T) {
	p := &scriptedProvider{content: `{"relevance":"relevant","support":"fully_supported","utility":"useful","reasoning":"directly answered"}`}
	e := NewEvaluator(p, "m")

	eval := e.Evaluate(context.Background(), "refund?", "Refunds within 30 days [1].", sampleRetrieval(), 0.7)
	if eval.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", eval.Confidence)
	}
	if eval.NeedsRetry {
		t.Error("NeedsRetry = true for a fully supported answer")
	}
	if eval.Reasoning != "directly answered" {
		t.Errorf("Reasoning = %q", eval.Reasoning)
	}
}

func TestEvaluateUnsupportedAlwaysRetries(t *testing.T) {
	// High relevance and utility, but unsupported: retry regardless of
	// how low the threshold is.
	p := &scriptedProvider{content: `{"relevance":"relevant","support":"not_supported","utility":"useful","reasoning":"made up"}`}
	e := NewEvaluator(p, "m")

	eval := e.Evaluate(context.Background(), "q", "answer", sampleRetrieval(), 0.0)
	if !eval.NeedsRetry {
		t.Fatal("unsupported answer must force a retry")
	}
	if eval.Support != NotSupported {
		t.Errorf("Support = %s", eval.Support)
	}
}

func TestEvaluateBelowThresholdRetries(t *testing.T) {
	p := &scriptedProvider{content: `{"relevance":"partially_relevant","support":"partially_supported","utility":"partially_useful","reasoning":"thin"}`}
	e := NewEvaluator(p, "m")

	eval := e.Evaluate(context.Background(), "q", "answer", sampleRetrieval(), 0.7)
	if eval.Confidence != 0.5 {
		t.Errorf("Confidence = %v, want 0.5", eval.Confidence)
	}
	if !eval.NeedsRetry {
		t.Error("confidence below threshold should retry")
	}
}

func TestEvaluateScorerFailureIsConservative(t *testing.T) {
	p := &scriptedProvider{err: errors.New("timeout")}
	e := NewEvaluator(p, "m")

	eval := e.Evaluate(context.Background(), "q", "answer", sampleRetrieval(), 0.7)
	if eval.Confidence != 0 || !eval.NeedsRetry {
		t.Errorf("expected conservative verdict, got %+v", eval)
	}
	if eval.Relevance != NotRelevant || eval.Support != NotSupported || eval.Utility != NotUseful {
		t.Errorf("expected most conservative tokens, got %+v", eval)
	}
}

func TestEvaluateUnparseableIsConservative(t *testing.T) {
	p := &scriptedProvider{content: "I think the answer is pretty good overall!"}
	e := NewEvaluator(p, "m")

	eval := e.Evaluate(context.Background(), "q", "answer", sampleRetrieval(), 0.7)
	if eval.Confidence != 0 || !eval.NeedsRetry {
		t.Errorf("expected conservative verdict, got %+v", eval)
	}
}

func TestEvaluateTokensWrappedInProse(t *testing.T) {
	p := &scriptedProvider{content: "Here is my verdict:\n" +
		`{"relevance":"relevant","support":"fully_supported","utility":"useful","reasoning":"ok"}` +
		"\nHope that helps."}
	e := NewEvaluator(p, "m")

	eval := e.Evaluate(context.Background(), "q", "answer", sampleRetrieval(), 0.7)
	if eval.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0 (JSON should be extracted from prose)", eval.Confidence)
	}
}

func TestBlendConfidenceMonotonic(t *testing.T) {
	base := BlendConfidence(PartiallyRelevant, PartiallySupported, PartiallyUseful)

	if BlendConfidence(Relevant, PartiallySupported, PartiallyUseful) <= base {
		t.Error("upgrading relevance should raise confidence")
	}
	if BlendConfidence(PartiallyRelevant, FullySupported, PartiallyUseful) <= base {
		t.Error("upgrading support should raise confidence")
	}
	if BlendConfidence(PartiallyRelevant, PartiallySupported, Useful) <= base {
		t.Error("upgrading utility should raise confidence")
	}
	if BlendConfidence(NotRelevant, NotSupported, NotUseful) != 0 {
		t.Error("all-worst tokens should blend to 0")
	}
	if BlendConfidence(Relevant, FullySupported, Useful) != 1 {
		t.Error("all-best tokens should blend to 1")
	}
}

func TestCritiqueDerivesSuggestions(t *testing.T) {
	p := &scriptedProvider{content: `{"logical_consistency":0.9,"factual_accuracy":0.3,"completeness":0.5}`}
	c := NewCritic(p, "m")

	crit := c.Critique(context.Background(), "answer", sampleRetrieval())
	if crit.FactualAccuracy != 0.3 {
		t.Errorf("FactualAccuracy = %v", crit.FactualAccuracy)
	}
	if len(crit.Suggestions) != 2 {
		t.Fatalf("Suggestions = %v, want 2 (accuracy and completeness)", crit.Suggestions)
	}
	joined := strings.Join(crit.Suggestions, "; ")
	if !strings.Contains(joined, "evidence") || !strings.Contains(joined, "skipped") {
		t.Errorf("Suggestions = %v", crit.Suggestions)
	}
}

func TestCritiqueFailureFallsBack(t *testing.T) {
	p := &scriptedProvider{err: errors.New("down")}
	c := NewCritic(p, "m")

	crit := c.Critique(context.Background(), "answer", sampleRetrieval())
	if len(crit.Suggestions) == 0 {
		t.Error("failed critique should still suggest re-verification")
	}
}

func TestCritiqueClampsScores(t *testing.T) {
	p := &scriptedProvider{content: `{"logical_consistency":1.7,"factual_accuracy":-0.2,"completeness":1.0}`}
	c := NewCritic(p, "m")

	crit := c.Critique(context.Background(), "answer", sampleRetrieval())
	if crit.LogicalConsistency != 1 || crit.FactualAccuracy != 0 {
		t.Errorf("scores not clamped: %+v", crit)
	}
}
