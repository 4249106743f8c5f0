package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/docrag/pkg/document"
	"github.com/papercomputeco/docrag/pkg/vector"
)

// MockVectorDriver is a test vector driver that returns canned hits and
// records every upsert.
type MockVectorDriver struct {
	// Hits is returned from Search, truncated to the search limit.
	Hits []document.Hit

	CreateErr error
	UpsertErr error
	SearchErr error

	mu          sync.Mutex
	collections map[string]uint
	upserts     [][]document.Point
	searches    []vector.SearchParams
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{
		collections: make(map[string]uint),
	}
}

func (m *MockVectorDriver) CreateCollection(_ context.Context, name string, dimensions uint) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; ok {
		return vector.ErrCollectionExists
	}
	m.collections[name] = dimensions
	return nil
}

func (m *MockVectorDriver) Upsert(_ context.Context, _ string, points []document.Point) error {
	if m.UpsertErr != nil {
		return m.UpsertErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, points)
	return nil
}

func (m *MockVectorDriver) Search(_ context.Context, _ string, _ []float32, params vector.SearchParams) ([]document.Hit, error) {
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	m.mu.Lock()
	m.searches = append(m.searches, params)
	m.mu.Unlock()

	out := []document.Hit{}
	for _, h := range m.Hits {
		if h.Score < params.ScoreThreshold {
			continue
		}
		out = append(out, h)
		if len(out) == params.EffectiveLimit() {
			break
		}
	}
	return out, nil
}

// Upserts returns the point batches passed to Upsert.
func (m *MockVectorDriver) Upserts() [][]document.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]document.Point(nil), m.upserts...)
}

// Searches returns the params passed to Search.
func (m *MockVectorDriver) Searches() []vector.SearchParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]vector.SearchParams(nil), m.searches...)
}

func (m *MockVectorDriver) Close() error {
	return nil
}
