package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"apptracker.org/internal/audit"
	"apptracker.org/internal/inventory"
)

var _ inventory.Store = (*Store)(nil)

func mapInventoryError(err error) error {
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return fmt.Errorf("%w: %s", inventory.ErrConflict, pgErr.ConstraintName)
		case pgErrForeignKeyViolation:
			return fmt.Errorf("%w: %s", inventory.ErrInvalidInput, pgErr.ConstraintName)
		}
	}
	return err
}

// withAudit runs the mutation and the audit append inside one transaction.
// Either both commit or neither does.
func (s *Store) withAudit(ctx context.Context, entry *audit.Entry, mutate func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := mutate(tx); err != nil {
		return mapInventoryError(err)
	}
	if err := insertEntry(ctx, tx, entry); err != nil {
		return fmt.Errorf("%w: %v", audit.ErrWriteFailed, err)
	}
	return tx.Commit()
}

// --- Cloud platforms ---

const platformColumns = `id, name, code, description, is_active, public, notes, system_manager_notes, created_by, updated_by, created_at, updated_at`

func scanPlatform(row interface{ Scan(...any) error }) (*inventory.CloudPlatform, error) {
	var (
		p                    inventory.CloudPlatform
		description          sql.NullString
		notes, smNotes       sql.NullString
		createdBy, updatedBy sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Code, &description, &p.IsActive, &p.Public,
		&notes, &smNotes, &createdBy, &updatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = emptyIfNull(description)
	p.Notes = emptyIfNull(notes)
	p.SystemManagerNotes = emptyIfNull(smNotes)
	p.CreatedBy = emptyIfNull(createdBy)
	p.UpdatedBy = emptyIfNull(updatedBy)
	return &p, nil
}

func (s *Store) CreatePlatform(ctx context.Context, p *inventory.CloudPlatform, entry *audit.Entry) error {
	return s.withAudit(ctx, entry, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			insert into platforms (`+platformColumns+`)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, p.ID, p.Name, p.Code, nullIfEmpty(p.Description), p.IsActive, p.Public,
			nullIfEmpty(p.Notes), nullIfEmpty(p.SystemManagerNotes),
			nullIfEmpty(p.CreatedBy), nullIfEmpty(p.UpdatedBy), p.CreatedAt, p.UpdatedAt)
		return err
	})
}

func (s *Store) GetPlatform(ctx context.Context, id string) (*inventory.CloudPlatform, error) {
	row := s.db.QueryRowContext(ctx, `select `+platformColumns+` from platforms where id = $1`, id)
	p, err := scanPlatform(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPlatforms(ctx context.Context, f inventory.ListFilter) ([]inventory.CloudPlatform, error) {
	query := `select ` + platformColumns + ` from platforms`
	if !f.IncludeInactive {
		query += ` where is_active`
	}
	query += ` order by name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inventory.CloudPlatform
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdatePlatform(ctx context.Context, p *inventory.CloudPlatform, entry *audit.Entry) error {
	return s.withAudit(ctx, entry, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			update platforms
			set name = $2, code = $3, description = $4, is_active = $5, public = $6,
			    notes = $7, system_manager_notes = $8, updated_by = $9, updated_at = $10
			where id = $1
		`, p.ID, p.Name, p.Code, nullIfEmpty(p.Description), p.IsActive, p.Public,
			nullIfEmpty(p.Notes), nullIfEmpty(p.SystemManagerNotes),
			nullIfEmpty(p.UpdatedBy), p.UpdatedAt)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return inventory.ErrNotFound
		}
		return nil
	})
}

// --- Servers ---

const serverColumns = `id, name, hostname, ip_address, environment_type, operating_system, os_version, platform_id, cpu_cores, memory_gb, storage_gb, is_active, public, notes, system_manager_notes, created_by, updated_by, created_at, updated_at`

func scanServer(row interface{ Scan(...any) error }) (*inventory.Server, error) {
	var (
		srv                   inventory.Server
		ip, os, osv, platform sql.NullString
		notes, smNotes        sql.NullString
		createdBy, updatedBy  sql.NullString
	)
	if err := row.Scan(&srv.ID, &srv.Name, &srv.Hostname, &ip, &srv.EnvironmentType,
		&os, &osv, &platform, &srv.CPUCores, &srv.MemoryGB, &srv.StorageGB,
		&srv.IsActive, &srv.Public, &notes, &smNotes,
		&createdBy, &updatedBy, &srv.CreatedAt, &srv.UpdatedAt); err != nil {
		return nil, err
	}
	srv.IPAddress = emptyIfNull(ip)
	srv.OperatingSystem = emptyIfNull(os)
	srv.OSVersion = emptyIfNull(osv)
	srv.PlatformID = emptyIfNull(platform)
	srv.Notes = emptyIfNull(notes)
	srv.SystemManagerNotes = emptyIfNull(smNotes)
	srv.CreatedBy = emptyIfNull(createdBy)
	srv.UpdatedBy = emptyIfNull(updatedBy)
	return &srv, nil
}

func (s *Store) CreateServer(ctx context.Context, srv *inventory.Server, entry *audit.Entry) error {
	return s.withAudit(ctx, entry, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			insert into servers (`+serverColumns+`)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`, srv.ID, srv.Name, srv.Hostname, nullIfEmpty(srv.IPAddress), srv.EnvironmentType,
			nullIfEmpty(srv.OperatingSystem), nullIfEmpty(srv.OSVersion), nullIfEmpty(srv.PlatformID),
			srv.CPUCores, srv.MemoryGB, srv.StorageGB, srv.IsActive, srv.Public,
			nullIfEmpty(srv.Notes), nullIfEmpty(srv.SystemManagerNotes),
			nullIfEmpty(srv.CreatedBy), nullIfEmpty(srv.UpdatedBy), srv.CreatedAt, srv.UpdatedAt)
		return err
	})
}

func (s *Store) GetServer(ctx context.Context, id string) (*inventory.Server, error) {
	row := s.db.QueryRowContext(ctx, `select `+serverColumns+` from servers where id = $1`, id)
	srv, err := scanServer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return srv, nil
}

func (s *Store) ListServers(ctx context.Context, f inventory.ListFilter) ([]inventory.Server, error) {
	query := `select ` + serverColumns + ` from servers`
	if !f.IncludeInactive {
		query += ` where is_active`
	}
	query += ` order by name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inventory.Server
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *srv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateServer(ctx context.Context, srv *inventory.Server, entry *audit.Entry) error {
	return s.withAudit(ctx, entry, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			update servers
			set name = $2, hostname = $3, ip_address = $4, environment_type = $5,
			    operating_system = $6, os_version = $7, platform_id = $8,
			    cpu_cores = $9, memory_gb = $10, storage_gb = $11,
			    is_active = $12, public = $13, notes = $14, system_manager_notes = $15,
			    updated_by = $16, updated_at = $17
			where id = $1
		`, srv.ID, srv.Name, srv.Hostname, nullIfEmpty(srv.IPAddress), srv.EnvironmentType,
			nullIfEmpty(srv.OperatingSystem), nullIfEmpty(srv.OSVersion), nullIfEmpty(srv.PlatformID),
			srv.CPUCores, srv.MemoryGB, srv.StorageGB, srv.IsActive, srv.Public,
			nullIfEmpty(srv.Notes), nullIfEmpty(srv.SystemManagerNotes),
			nullIfEmpty(srv.UpdatedBy), srv.UpdatedAt)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return inventory.ErrNotFound
		}
		return nil
	})
}

// --- Data stores ---

const dataStoreColumns = `id, name, type, description, version, is_active, public, notes, system_manager_notes, created_by, updated_by, created_at, updated_at`

func scanDataStore(row interface{ Scan(...any) error }) (*inventory.DataStore, error) {
	var (
		d                    inventory.DataStore
		description, version sql.NullString
		notes, smNotes       sql.NullString
		createdBy, updatedBy sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Type, &description, &version, &d.IsActive, &d.Public,
		&notes, &smNotes, &createdBy, &updatedBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Description = emptyIfNull(description)
	d.Version = emptyIfNull(version)
	d.Notes = emptyIfNull(notes)
	d.SystemManagerNotes = emptyIfNull(smNotes)
	d.CreatedBy = emptyIfNull(createdBy)
	d.UpdatedBy = emptyIfNull(updatedBy)
	return &d, nil
}

func (s *Store) CreateDataStore(ctx context.Context, d *inventory.DataStore, entry *audit.Entry) error {
	return s.withAudit(ctx, entry, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			insert into datastores (`+dataStoreColumns+`)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, d.ID, d.Name, d.Type, nullIfEmpty(d.Description), nullIfEmpty(d.Version),
			d.IsActive, d.Public, nullIfEmpty(d.Notes), nullIfEmpty(d.SystemManagerNotes),
			nullIfEmpty(d.CreatedBy), nullIfEmpty(d.UpdatedBy), d.CreatedAt, d.UpdatedAt)
		return err
	})
}

func (s *Store) GetDataStore(ctx context.Context, id string) (*inventory.DataStore, error) {
	row := s.db.QueryRowContext(ctx, `select `+dataStoreColumns+` from datastores where id = $1`, id)
	d, err := scanDataStore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) ListDataStores(ctx context.Context, f inventory.ListFilter) ([]inventory.DataStore, error) {
	query := `select ` + dataStoreColumns + ` from datastores`
	if !f.IncludeInactive {
		query += ` where is_active`
	}
	query += ` order by name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inventory.DataStore
	for rows.Next() {
		d, err := scanDataStore(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateDataStore(ctx context.Context, d *inventory.DataStore, entry *audit.Entry) error {
	return s.withAudit(ctx, entry, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			update datastores
			set name = $2, type = $3, description = $4, version = $5,
			    is_active = $6, public = $7, notes = $8, system_manager_notes = $9,
			    updated_by = $10, updated_at = $11
			where id = $1
		`, d.ID, d.Name, d.Type, nullIfEmpty(d.Description), nullIfEmpty(d.Version),
			d.IsActive, d.Public, nullIfEmpty(d.Notes), nullIfEmpty(d.SystemManagerNotes),
			nullIfEmpty(d.UpdatedBy), d.UpdatedAt)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return inventory.ErrNotFound
		}
		return nil
	})
}

// --- Applications ---

const applicationColumns = `id, name, description, business_purpose, lifecycle_stage, criticality, business_owner, technical_owner, primary_server_id, version, deployment_path, is_active, public, notes, system_manager_notes, created_by, updated_by, created_at, updated_at`

func scanApplication(row interface{ Scan(...any) error }) (*inventory.Application, error) {
	var (
		a                            inventory.Application
		description, purpose         sql.NullString
		bizOwner, techOwner          sql.NullString
		primaryServer, version, path sql.NullString
		notes, smNotes               sql.NullString
		createdBy, updatedBy         sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &description, &purpose, &a.LifecycleStage, &a.Criticality,
		&bizOwner, &techOwner, &primaryServer, &version, &path,
		&a.IsActive, &a.Public, &notes, &smNotes,
		&createdBy, &updatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Description = emptyIfNull(description)
	a.BusinessPurpose = emptyIfNull(purpose)
	a.BusinessOwner = emptyIfNull(bizOwner)
	a.TechnicalOwner = emptyIfNull(techOwner)
	a.PrimaryServerID = emptyIfNull(primaryServer)
	a.Version = emptyIfNull(version)
	a.DeploymentPath = emptyIfNull(path)
	a.Notes = emptyIfNull(notes)
	a.SystemManagerNotes = emptyIfNull(smNotes)
	a.CreatedBy = emptyIfNull(createdBy)
	a.UpdatedBy = emptyIfNull(updatedBy)
	return &a, nil
}

func (s *Store) CreateApplication(ctx context.Context, a *inventory.Application, entry *audit.Entry) error {
	return s.withAudit(ctx, entry, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			insert into applications (`+applicationColumns+`)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`, a.ID, a.Name, nullIfEmpty(a.Description), nullIfEmpty(a.BusinessPurpose),
			a.LifecycleStage, a.Criticality, nullIfEmpty(a.BusinessOwner), nullIfEmpty(a.TechnicalOwner),
			nullIfEmpty(a.PrimaryServerID), nullIfEmpty(a.Version), nullIfEmpty(a.DeploymentPath),
			a.IsActive, a.Public, nullIfEmpty(a.Notes), nullIfEmpty(a.SystemManagerNotes),
			nullIfEmpty(a.CreatedBy), nullIfEmpty(a.UpdatedBy), a.CreatedAt, a.UpdatedAt)
		return err
	})
}

func (s *Store) GetApplication(ctx context.Context, id string) (*inventory.Application, error) {
	row := s.db.QueryRowContext(ctx, `select `+applicationColumns+` from applications where id = $1`, id)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, inventory.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) ListApplications(ctx context.Context, f inventory.ListFilter) ([]inventory.Application, error) {
	query := `select ` + applicationColumns + ` from applications`
	if !f.IncludeInactive {
		query += ` where is_active`
	}
	query += ` order by name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []inventory.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateApplication(ctx context.Context, a *inventory.Application, entry *audit.Entry) error {
	return s.withAudit(ctx, entry, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			update applications
			set name = $2, description = $3, business_purpose = $4, lifecycle_stage = $5,
			    criticality = $6, business_owner = $7, technical_owner = $8,
			    primary_server_id = $9, version = $10, deployment_path = $11,
			    is_active = $12, public = $13, notes = $14, system_manager_notes = $15,
			    updated_by = $16, updated_at = $17
			where id = $1
		`, a.ID, a.Name, nullIfEmpty(a.Description), nullIfEmpty(a.BusinessPurpose),
			a.LifecycleStage, a.Criticality, nullIfEmpty(a.BusinessOwner), nullIfEmpty(a.TechnicalOwner),
			nullIfEmpty(a.PrimaryServerID), nullIfEmpty(a.Version), nullIfEmpty(a.DeploymentPath),
			a.IsActive, a.Public, nullIfEmpty(a.Notes), nullIfEmpty(a.SystemManagerNotes),
			nullIfEmpty(a.UpdatedBy), a.UpdatedAt)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return inventory.ErrNotFound
		}
		return nil
	})
}
