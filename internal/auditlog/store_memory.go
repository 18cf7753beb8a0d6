package auditlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore backs unit tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) ListByKind(_ context.Context, kind Kind, limit int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	// Newest first, same as the SQL ORDER BY created_at DESC.
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Kind == kind {
			out = append(out, s.events[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
