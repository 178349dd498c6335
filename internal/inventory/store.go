package inventory

import (
	"context"

	"apptracker.org/internal/audit"
)

// ListFilter narrows List results. Soft-deleted records are excluded unless
// IncludeInactive is set.
type ListFilter struct {
	IncludeInactive bool
}

// Store persists tracked resources. Mutating methods take the prepared audit
// entry and must commit the mutation and the entry as one atomic unit: if the
// entry cannot be appended the mutation is discarded and the call fails.
//
// Stores map uniqueness violations to ErrConflict, missing rows to
// ErrNotFound, and dangling references (platform_id, primary_server_id) to
// ErrInvalidInput. Permission checks belong to the service layer.
type Store interface {
	CreatePlatform(ctx context.Context, p *CloudPlatform, entry *audit.Entry) error
	GetPlatform(ctx context.Context, id string) (*CloudPlatform, error)
	ListPlatforms(ctx context.Context, f ListFilter) ([]CloudPlatform, error)
	UpdatePlatform(ctx context.Context, p *CloudPlatform, entry *audit.Entry) error

	CreateServer(ctx context.Context, s *Server, entry *audit.Entry) error
	GetServer(ctx context.Context, id string) (*Server, error)
	ListServers(ctx context.Context, f ListFilter) ([]Server, error)
	UpdateServer(ctx context.Context, s *Server, entry *audit.Entry) error

	CreateDataStore(ctx context.Context, d *DataStore, entry *audit.Entry) error
	GetDataStore(ctx context.Context, id string) (*DataStore, error)
	ListDataStores(ctx context.Context, f ListFilter) ([]DataStore, error)
	UpdateDataStore(ctx context.Context, d *DataStore, entry *audit.Entry) error

	CreateApplication(ctx context.Context, a *Application, entry *audit.Entry) error
	GetApplication(ctx context.Context, id string) (*Application, error)
	ListApplications(ctx context.Context, f ListFilter) ([]Application, error)
	UpdateApplication(ctx context.Context, a *Application, entry *audit.Entry) error
}
