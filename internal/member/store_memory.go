package member

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore backs unit tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	members map[uuid.UUID]*Member
}

func NewMemory() *MemoryStore {
	return &MemoryStore{members: make(map[uuid.UUID]*Member)}
}

func (s *MemoryStore) Save(_ context.Context, m *Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *m
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.members[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) ListByOrg(_ context.Context, orgID uuid.UUID) ([]*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Member
	for _, m := range s.members {
		if m.OrgID == orgID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}
