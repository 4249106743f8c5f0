package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/papercomputeco/docrag/pkg/llm"
)

// MockCompleter replays canned replies and records each conversation it is
// given.
type MockCompleter struct {
	// Replies are returned in order; the last one repeats once exhausted.
	Replies []string

	// Err is returned from every call when set.
	Err error

	mu    sync.Mutex
	calls []CompleteCall
}

// CompleteCall is one recorded Complete invocation.
type CompleteCall struct {
	Messages []llm.Message
	Opts     llm.CompleteOptions
}

func NewMockCompleter(replies ...string) *MockCompleter {
	return &MockCompleter{Replies: replies}
}

func (m *MockCompleter) Complete(_ context.Context, messages []llm.Message, opts llm.CompleteOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := make([]llm.Message, len(messages))
	copy(msgs, messages)
	n := len(m.calls)
	m.calls = append(m.calls, CompleteCall{Messages: msgs, Opts: opts})

	if m.Err != nil {
		return "", fmt.Errorf("%w: %w", llm.ErrCompletion, m.Err)
	}
	if len(m.Replies) == 0 {
		return "", nil
	}
	if n >= len(m.Replies) {
		n = len(m.Replies) - 1
	}
	return m.Replies[n], nil
}

// Calls returns the recorded invocations.
func (m *MockCompleter) Calls() []CompleteCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompleteCall(nil), m.calls...)
}
