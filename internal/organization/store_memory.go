package organization

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fedremit/pkg/platform/sentinel"
)

// MemoryStore is the mutex-guarded map implementation used by unit tests and
// local development.
type MemoryStore struct {
	mu   sync.RWMutex
	orgs map[uuid.UUID]*Organization
}

func NewMemory() *MemoryStore {
	return &MemoryStore{orgs: make(map[uuid.UUID]*Organization)}
}

func (s *MemoryStore) Save(_ context.Context, org *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *org
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = time.Now()
	s.orgs[cp.ID] = &cp
	org.CreatedAt = cp.CreatedAt
	org.UpdatedAt = cp.UpdatedAt
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (s *MemoryStore) GetByAffiliateCode(_ context.Context, code string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, org := range s.orgs {
		if org.AffiliateCode != "" && org.AffiliateCode == code {
			cp := *org
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListActive(_ context.Context) ([]*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Organization
	for _, org := range s.orgs {
		if org.Status == StatusActive {
			cp := *org
			out = append(out, &cp)
		}
	}
	sortByName(out)
	return out, nil
}

func (s *MemoryStore) ListWithAffiliateCode(_ context.Context) ([]*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Organization
	for _, org := range s.orgs {
		if org.AffiliateCode != "" {
			cp := *org
			out = append(out, &cp)
		}
	}
	sortByName(out)
	return out, nil
}

// sortByName keeps batch iteration order deterministic across runs.
func sortByName(orgs []*Organization) {
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].Name < orgs[j].Name })
}
