// Package llm defines the chat completion capability used for query
// reformulation and answer generation.
package llm

import (
	"context"
	"errors"
)

// ErrCompletion is returned when a completion call fails or returns no
// content.
var ErrCompletion = errors.New("completion failed")

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with the given role and content.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content}
}

// CompleteOptions tunes a single completion call.
type CompleteOptions struct {
	// MaxTokens caps the generated tokens. Zero leaves the provider default.
	MaxTokens int

	// Temperature is passed through when non-nil.
	Temperature *float64
}

// Completer produces the next assistant message for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, messages []Message, opts CompleteOptions) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	return f(ctx, messages, opts)
}
