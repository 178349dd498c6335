package auth

import (
	"time"

	"apptracker.org/internal/rbac"
)

// Account is a user of the tracker. Accounts are soft-deactivated, never
// deleted, so audit entries always resolve to a real actor.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         rbac.Role `json:"role"`
	Department   string    `json:"department,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	CreatedBy    string    `json:"created_by,omitempty"`
}

// AccountUpdate carries optional field changes; nil means "leave unchanged".
type AccountUpdate struct {
	Email      *string
	Password   *string
	Role       *rbac.Role
	Department *string
	Phone      *string
	IsActive   *bool
}

// Principal is the authenticated identity attached to a request context.
type Principal struct {
	AccountID string
	Email     string
	Role      rbac.Role
}

// Actor converts the principal into an rbac actor for permission checks.
func (p Principal) Actor() rbac.Actor {
	return rbac.Actor{ID: p.AccountID, Role: p.Role}
}
