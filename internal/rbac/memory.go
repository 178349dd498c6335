package rbac

import (
	"context"
	"sync"
	"time"
)

type grantKey struct {
	userID       string
	resourceType string
	resourceID   string
	kind         GrantKind
}

// MemoryGrants implements GrantStore with in-process concurrency safety.
// The pg store is the durable implementation; this one backs tests and
// single-node development.
type MemoryGrants struct {
	mu     sync.RWMutex
	grants map[grantKey]Grant
}

var _ GrantStore = (*MemoryGrants)(nil)

// NewMemoryGrants creates an empty grant store.
func NewMemoryGrants() *MemoryGrants {
	return &MemoryGrants{grants: make(map[grantKey]Grant)}
}

func (s *MemoryGrants) Grant(ctx context.Context, g Grant) error {
	if g.UserID == "" || g.ResourceType == "" || g.ResourceID == "" {
		return ErrInvalidInput
	}
	if _, ok := ParseGrantKind(string(g.Kind)); !ok {
		return ErrInvalidInput
	}
	if g.GrantedAt.IsZero() {
		g.GrantedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grantKey{g.UserID, g.ResourceType, g.ResourceID, g.Kind}] = g
	return nil
}

func (s *MemoryGrants) Revoke(ctx context.Context, userID, resourceType, resourceID string, kind GrantKind) error {
	key := grantKey{userID, resourceType, resourceID, kind}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[key]; !ok {
		return ErrNotFound
	}
	delete(s.grants, key)
	return nil
}

func (s *MemoryGrants) HasGrant(ctx context.Context, userID, resourceType, resourceID string, kind GrantKind) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[grantKey{userID, resourceType, resourceID, kind}]
	if !ok {
		return false, nil
	}
	if g.Expired(time.Now().UTC()) {
		return false, nil
	}
	return true, nil
}

func (s *MemoryGrants) ListByUser(ctx context.Context, userID string) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Grant
	for _, g := range s.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}
