package analytics

import (
	"context"
	"sync"

	"github.com/mohitkumar/tokenflow/model"
)

var _ EventSink = new(MemorySink)

type MemorySink struct {
	mu     sync.Mutex
	events []model.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Record(ctx context.Context, event model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MemorySink) Events() []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Event(nil), m.events...)
}

// Of returns the recorded events of type t, oldest first.
func (m *MemorySink) Of(t model.EventType) []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Event
	for _, e := range m.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}
