package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/docrag/pkg/eventstream"
)

// MockPublisher records published events.
type MockPublisher struct {
	Err error

	mu     sync.Mutex
	events []*eventstream.DocumentIngestedEvent
}

func (m *MockPublisher) PublishDocumentIngested(_ context.Context, event *eventstream.DocumentIngestedEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}
	if m.Err != nil {
		return m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns the published events.
func (m *MockPublisher) Events() []*eventstream.DocumentIngestedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.DocumentIngestedEvent(nil), m.events...)
}

func (m *MockPublisher) Close() error {
	return nil
}
