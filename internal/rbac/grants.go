package rbac

import (
	"context"
	"time"
)

// GrantKind distinguishes the access a record-level grant confers.
type GrantKind string

const (
	GrantView GrantKind = "view"
	GrantEdit GrantKind = "edit"
)

// ParseGrantKind validates a grant kind string.
func ParseGrantKind(raw string) (GrantKind, bool) {
	switch GrantKind(raw) {
	case GrantView:
		return GrantView, true
	case GrantEdit:
		return GrantEdit, true
	}
	return "", false
}

// Grant is a per-user, per-record exception to role-based access. A nil
// ExpiresAt means the grant does not expire.
type Grant struct {
	UserID       string     `json:"user_id"`
	ResourceType string     `json:"resource_type"`
	ResourceID   string     `json:"resource_id"`
	Kind         GrantKind  `json:"kind"`
	GrantedBy    string     `json:"granted_by"`
	GrantedAt    time.Time  `json:"granted_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the grant is past its expiry at the given instant.
func (g Grant) Expired(now time.Time) bool {
	return g.ExpiresAt != nil && g.ExpiresAt.Before(now)
}

// GrantChecker is the read side of the grant store consumed by the evaluator.
type GrantChecker interface {
	// HasGrant reports whether a non-expired grant of the given kind exists.
	// Expiry is evaluated lazily at call time; no sweep is required.
	HasGrant(ctx context.Context, userID, resourceType, resourceID string, kind GrantKind) (bool, error)
}

// GrantStore manages record-level grants. Granting the same
// (user, resource, kind) twice replaces the earlier grant rather than
// duplicating it. The store trusts its caller: permission checks on who may
// grant or revoke happen before reaching this interface.
type GrantStore interface {
	GrantChecker
	Grant(ctx context.Context, g Grant) error
	Revoke(ctx context.Context, userID, resourceType, resourceID string, kind GrantKind) error
	ListByUser(ctx context.Context, userID string) ([]Grant, error)
}
