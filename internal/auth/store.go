package auth

import (
	"context"

	"apptracker.org/internal/audit"
)

// AccountStore describes persistence operations required by the auth
// subsystem. Implementations map duplicate emails to ErrConflict and missing
// rows to ErrNotFound. Create and Update append the audit entry atomically
// with the row change; a nil entry skips the append, which only bootstrap
// seeding may rely on.
type AccountStore interface {
	Create(ctx context.Context, a *Account, entry *audit.Entry) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	List(ctx context.Context) ([]Account, error)
	Update(ctx context.Context, a *Account, entry *audit.Entry) error
}
