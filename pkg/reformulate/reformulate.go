// Package reformulate rewrites a follow-up question into a standalone query
// using the recent conversation.
package reformulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/docrag/pkg/llm"
	"github.com/papercomputeco/docrag/pkg/logger"
)

// HistoryTurns is how many recent turns the model sees.
const HistoryTurns = 5

// SystemPrompt instructs the model to return only the rewritten question.
const SystemPrompt = "You are an AI assistant tasked with reformulating user queries based on conversation history. " +
	"Your goal is to create a standalone question that incorporates the context from previous messages if the current query is related to them. " +
	"If the current query is unrelated to the previous conversation, simply restate the query as it is. " +
	"The reformulated question should be clear, concise, and fully capture the user's intent, whether or not it is related to the prior context. " +
	"Do not add any explanation or commentary. Only output the reformulated question."

// ErrReformulation is returned when the model call fails or yields nothing.
// Callers are expected to fall back to the raw query.
var ErrReformulation = errors.New("query reformulation failed")

// Reformulator rewrites queries with a Completer.
type Reformulator struct {
	completer llm.Completer
	logger    *slog.Logger
}

// New creates a Reformulator.
func New(completer llm.Completer, l *slog.Logger) *Reformulator {
	if l == nil {
		l = logger.Nop()
	}
	return &Reformulator{completer: completer, logger: l}
}

// Reformulate returns the trimmed standalone form of query. Only the last
// HistoryTurns entries of recent are sent.
func (r *Reformulator) Reformulate(ctx context.Context, query string, recent []llm.Message) (string, error) {
	if len(recent) > HistoryTurns {
		recent = recent[len(recent)-HistoryTurns:]
	}

	prompt, err := UserPrompt(query, recent)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReformulation, err)
	}

	out, err := r.completer.Complete(ctx, []llm.Message{
		llm.NewMessage(llm.RoleSystem, SystemPrompt),
		llm.NewMessage(llm.RoleUser, prompt),
	}, llm.CompleteOptions{})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrReformulation, err)
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty model output", ErrReformulation)
	}

	r.logger.Debug("reformulated query", "query", query, "reformulated", out)
	return out, nil
}

// UserPrompt renders the history as a JSON message list ahead of the query.
func UserPrompt(query string, recent []llm.Message) (string, error) {
	if recent == nil {
		recent = []llm.Message{}
	}
	history, err := json.Marshal(recent)
	if err != nil {
		return "", fmt.Errorf("encoding history: %w", err)
	}
	return fmt.Sprintf("Given this conversation history %s , rewrite the following query into a standalone question: '%s'", history, query), nil
}
