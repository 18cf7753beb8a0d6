package review

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fedremit/pkg/platform/sentinel"
)

// MemoryStore backs unit tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*Item
}

func NewMemory() *MemoryStore {
	return &MemoryStore{items: make(map[uuid.UUID]*Item)}
}

func (s *MemoryStore) Add(_ context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *item
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	if cp.Status == "" {
		cp.Status = StatusPending
	}
	s.items[cp.ID] = &cp
	*item = cp
	return nil
}

func (s *MemoryStore) ListPending(_ context.Context) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Item
	for _, item := range s.items {
		if item.Status == StatusPending {
			cp := *item
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Resolve(_ context.Context, id uuid.UUID, status Status, resolvedBy uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if item.Status != StatusPending {
		return sentinel.ErrInvalidState
	}
	now := time.Now()
	item.Status = status
	item.ResolvedAt = &now
	item.ResolvedBy = &resolvedBy
	return nil
}
