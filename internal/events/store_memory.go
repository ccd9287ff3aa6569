package events

import (
	"context"
	"sync"
)

// InMemoryStore keeps the event log in memory, append-only, in emit order.
// Serves development deployments and the read API in tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	log    []Event
	byAddr map[string][]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byAddr: make(map[string][]int)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.log)
	s.log = append(s.log, event)
	if subject := event.Subject(); subject != "" {
		s.byAddr[subject] = append(s.byAddr[subject], idx)
	}
	return nil
}

// ListBySubject returns the most recent events about an address, newest
// first, capped at limit (0 means no cap).
func (s *InMemoryStore) ListBySubject(_ context.Context, address string, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	indexes := s.byAddr[address]
	out := make([]Event, 0, len(indexes))
	for i := len(indexes) - 1; i >= 0; i-- {
		out = append(out, s.log[indexes[i]])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// All returns a snapshot of the full log in emit order.
func (s *InMemoryStore) All(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.log...), nil
}
