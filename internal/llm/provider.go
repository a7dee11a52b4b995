// Package llm abstracts the external text-generation service behind a
// narrow provider interface. Generation is a fallible, non-deterministic
// external call; callers are expected to handle errors and degrade.
package llm

import "context"

// Role identifies the sender of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single message in a completion conversation.
type Message struct {
	Role    Role
	Content string
}

// CompletionRequest carries the parameters of one generation call.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse is the result of one generation call.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

// Provider is the text-generation collaborator.
type Provider interface {
	// Complete sends a completion request and returns the generated text.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the provider identifier.
	Name() string
}
