// Package conversation keeps the per-session turn history that conditions
// reformulation and generation.
//
// A Manager always starts with a single system turn. User turns carry both
// the retrieval-augmented content the model sees and the raw message the
// user typed. Growth is bounded by a turn limit and an optional token
// budget; the oldest exchanges are evicted first.
package conversation

import (
	"fmt"
	"sync"

	"github.com/papercomputeco/docrag/pkg/llm"
)

// DefaultSystemPrompt instructs the model to answer only from the retrieved
// context and the conversation so far.
const DefaultSystemPrompt = "You are a helpful assistant, tasked with answering questions based on the provided context. " +
	"You will receive both the conversation history and additional relevant information, referred to as Relevant_context, " +
	"alongside the user's question. Relevant information will be provided as chunks of data. " +
	"The information you get might not be coherent, still try to answer the question by grasping the main idea from the information. " +
	"If you cannot answer the question based on the information provided in both the conversation history and relevant data, " +
	"simply state 'I don't have enough information to answer this question accurately', " +
	"do not answer questions outside of the scope of provided information. " +
	"For greetings also return 'I don't have enough information to answer this question accurately'. " +
	"Do not reference the context or the Relevant_context in your response; " +
	"the users should not be aware that you have access to this information."

// DefaultMaxTurns bounds the non-system turns kept per session.
const DefaultMaxTurns = 50

// Turn is one entry of the conversation.
type Turn struct {
	Role string `json:"role"`

	// Content is what the model sees.
	Content string `json:"content"`

	// Message is the raw user message; empty for system and assistant turns.
	Message string `json:"message,omitempty"`
}

// Config tunes a Manager.
type Config struct {
	SystemPrompt string

	// MaxTurns caps non-system turns. Zero disables the cap.
	MaxTurns int

	// MaxTokens caps the total token count of all turns when Counter is set.
	// Zero disables the cap.
	MaxTokens int
	Counter   TokenCounter

	// IncludeContext makes History return the context-injected user content
	// instead of the raw message.
	IncludeContext bool
}

// DefaultConfig returns the default system prompt and turn cap.
func DefaultConfig() Config {
	return Config{
		SystemPrompt: DefaultSystemPrompt,
		MaxTurns:     DefaultMaxTurns,
	}
}

// UserContent formats a user turn as the model sees it.
func UserContent(message, retrievalContext string) string {
	return fmt.Sprintf("User query: %s\n\nText context: %s", message, retrievalContext)
}

// Manager holds one session's turns. All methods are safe for concurrent
// use. Lock and Unlock serialize whole exchanges and are independent of the
// internal data lock, so a holder may still call every other method.
type Manager struct {
	exchange sync.Mutex

	mu    sync.RWMutex
	cfg   Config
	turns []Turn
}

// NewManager creates a manager holding only the system turn.
func NewManager(cfg Config) *Manager {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	m := &Manager{cfg: cfg}
	m.turns = []Turn{m.systemTurn()}
	return m
}

func (m *Manager) systemTurn() Turn {
	return Turn{Role: llm.RoleSystem, Content: m.cfg.SystemPrompt}
}

// Lock reserves the session for one read-then-append exchange.
func (m *Manager) Lock() { m.exchange.Lock() }

// Unlock releases the session.
func (m *Manager) Unlock() { m.exchange.Unlock() }

// AppendUserTurn records a user message and the retrieval context it was
// answered with.
func (m *Manager) AppendUserTurn(message, retrievalContext string) {
	m.append(Turn{
		Role:    llm.RoleUser,
		Content: UserContent(message, retrievalContext),
		Message: message,
	})
}

// AppendAssistantTurn records a model response.
func (m *Manager) AppendAssistantTurn(content string) {
	m.append(Turn{Role: llm.RoleAssistant, Content: content})
}

func (m *Manager) append(t Turn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, t)
	m.evict()
}

// evict drops turns[1] until the bounds hold, then keeps dropping until the
// history opens on a user turn so that an answer never outlives its
// question. The system turn and the newest turn are never dropped.
func (m *Manager) evict() {
	evicted := false
	for len(m.turns) > 2 && m.overBudget() {
		m.turns = append(m.turns[:1], m.turns[2:]...)
		evicted = true
	}
	for evicted && len(m.turns) > 2 && m.turns[1].Role != llm.RoleUser {
		m.turns = append(m.turns[:1], m.turns[2:]...)
	}
}

func (m *Manager) overBudget() bool {
	if m.cfg.MaxTurns > 0 && len(m.turns)-1 > m.cfg.MaxTurns {
		return true
	}
	return m.cfg.Counter != nil && m.cfg.MaxTokens > 0 && m.tokens() > m.cfg.MaxTokens
}

func (m *Manager) tokens() int {
	total := 0
	for _, t := range m.turns {
		total += m.cfg.Counter.Count(t.Content)
	}
	return total
}

// Reset drops every turn but the system turn.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = []Turn{m.systemTurn()}
}

// Turns returns a copy of every turn, system turn first.
func (m *Manager) Turns() []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Len returns the number of turns including the system turn.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// Recent returns up to the last n non-system turns, oldest first.
func (m *Manager) Recent(n int) []Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rest := m.turns[1:]
	if n < 0 {
		n = 0
	}
	if n < len(rest) {
		rest = rest[len(rest)-n:]
	}
	out := make([]Turn, len(rest))
	copy(out, rest)
	return out
}

// Messages returns the whole conversation as model input.
func (m *Manager) Messages() []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]llm.Message, len(m.turns))
	for i, t := range m.turns {
		out[i] = llm.NewMessage(t.Role, t.Content)
	}
	return out
}

// History returns the last n non-system turns for query reformulation. User
// turns carry the raw message unless the manager was configured with
// IncludeContext.
func (m *Manager) History(n int) []llm.Message {
	recent := m.Recent(n)
	out := make([]llm.Message, len(recent))
	for i, t := range recent {
		content := t.Content
		if t.Role == llm.RoleUser && !m.cfg.IncludeContext {
			content = t.Message
		}
		out[i] = llm.NewMessage(t.Role, content)
	}
	return out
}
