// Package generate wraps the text-generation collaborator with the
// engine's fixed prompting contract: grounded answers cite numbered
// evidence, direct answers skip retrieval entirely.
package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/tobiasweide/ragent/internal/llm"
	"github.com/tobiasweide/ragent/internal/retriever"
)

const groundedSystemPrompt = `You are a retrieval-grounded assistant.
Answer the question using ONLY the numbered evidence passages provided.
Cite passages inline as [1], [2], etc. If the evidence does not contain
the answer, say so explicitly instead of guessing.`

const directSystemPrompt = `You are a helpful assistant. Answer briefly.
If the question is outside your knowledge or scope, say so politely.`

// Generator turns a query plus retrieved evidence into an answer.
type Generator struct {
	provider llm.Provider
	model    string
}

// New creates a generator over the given provider and model.
func New(provider llm.Provider, model string) *Generator {
	return &Generator{provider: provider, model: model}
}

// Answer produces a grounded answer from retrieved evidence. suggestions
// carries improvement hints from a prior iteration's criticism and may be
// empty.
func (g *Generator) Answer(ctx context.Context, query string, evidence []retriever.Hit, suggestions []string) (string, error) {
	var sb strings.Builder
	sb.WriteString("Evidence passages:\n\n")
	for i, h := range evidence {
		title := h.Title
		if title == "" {
			title = "untitled"
		}
		fmt.Fprintf(&sb, "[%d] %s\n%s\n\n", i+1, title, h.Text)
	}
	fmt.Fprintf(&sb, "Question: %s\n", query)

	if len(suggestions) > 0 {
		sb.WriteString("\nA previous attempt had these problems; address them:\n")
		for _, s := range suggestions {
			fmt.Fprintf(&sb, "- %s\n", s)
		}
	}

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model: g.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: groundedSystemPrompt},
			{Role: llm.RoleUser, Content: sb.String()},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("generating grounded answer: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// Direct answers from the query alone, used for chitchat and out-of-scope
// queries where retrieval is skipped.
func (g *Generator) Direct(ctx context.Context, query string) (string, error) {
	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Model: g.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: directSystemPrompt},
			{Role: llm.RoleUser, Content: query},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("generating direct answer: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}
