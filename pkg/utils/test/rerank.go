package testutils

import (
	"context"
	"errors"
	"sync"
)

// MockScorer scores texts from a lookup table.
type MockScorer struct {
	Scores map[string]float64

	// FailBatch fails any call scoring more than one text.
	FailBatch bool

	// FailTexts fails any call that includes one of these texts.
	FailTexts map[string]bool

	mu    sync.Mutex
	calls int
}

func NewMockScorer(scores map[string]float64) *MockScorer {
	return &MockScorer{Scores: scores, FailTexts: map[string]bool{}}
}

func (m *MockScorer) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.FailBatch && len(texts) > 1 {
		return nil, errors.New("mock batch failure")
	}

	out := make([]float64, len(texts))
	for i, t := range texts {
		if m.FailTexts[t] {
			return nil, errors.New("mock scoring failure for: " + t)
		}
		out[i] = m.Scores[t]
	}
	return out, nil
}

// Calls returns how many times Score was called.
func (m *MockScorer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
