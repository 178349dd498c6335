package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"apptracker.org/internal/audit"
	"apptracker.org/internal/auth"
	"apptracker.org/internal/rbac"
)

var _ auth.AccountStore = (*Store)(nil)

const accountColumns = `id, email, password_hash, role, department, phone, is_active, created_at, updated_at, created_by`

func scanAccount(row interface{ Scan(...any) error }) (*auth.Account, error) {
	var (
		acc       auth.Account
		role      string
		dept      sql.NullString
		phone     sql.NullString
		createdBy sql.NullString
	)
	if err := row.Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &role, &dept, &phone, &acc.IsActive, &acc.CreatedAt, &acc.UpdatedAt, &createdBy); err != nil {
		return nil, err
	}
	acc.Role = rbac.Role(role)
	acc.Department = emptyIfNull(dept)
	acc.Phone = emptyIfNull(phone)
	acc.CreatedBy = emptyIfNull(createdBy)
	return &acc, nil
}

// withAccountAudit runs the account mutation and the audit append inside one
// transaction. Either both commit or neither does. A nil entry is a seeding
// write and carries no audit.
func (s *Store) withAccountAudit(ctx context.Context, entry *audit.Entry, mutate func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := mutate(tx); err != nil {
		return err
	}
	if entry != nil {
		if err := insertEntry(ctx, tx, entry); err != nil {
			return fmt.Errorf("%w: %v", audit.ErrWriteFailed, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Create(ctx context.Context, acc *auth.Account, entry *audit.Entry) error {
	return s.withAccountAudit(ctx, entry, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			insert into accounts (`+accountColumns+`)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, acc.ID, acc.Email, acc.PasswordHash, string(acc.Role),
			nullIfEmpty(acc.Department), nullIfEmpty(acc.Phone),
			acc.IsActive, acc.CreatedAt, acc.UpdatedAt, nullIfEmpty(acc.CreatedBy))
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return auth.ErrConflict
			}
			return err
		}
		return nil
	})
}

func (s *Store) GetByID(ctx context.Context, id string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where id = $1`, id)
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := s.db.QueryRowContext(ctx, `select `+accountColumns+` from accounts where lower(email) = lower($1)`, email)
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Store) List(ctx context.Context) ([]auth.Account, error) {
	rows, err := s.db.QueryContext(ctx, `select `+accountColumns+` from accounts order by email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []auth.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) Update(ctx context.Context, acc *auth.Account, entry *audit.Entry) error {
	return s.withAccountAudit(ctx, entry, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			update accounts
			set email = $2, password_hash = $3, role = $4, department = $5,
			    phone = $6, is_active = $7, updated_at = $8
			where id = $1
		`, acc.ID, acc.Email, acc.PasswordHash, string(acc.Role),
			nullIfEmpty(acc.Department), nullIfEmpty(acc.Phone),
			acc.IsActive, acc.UpdatedAt)
		if err != nil {
			if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
				return auth.ErrConflict
			}
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return auth.ErrNotFound
		}
		return nil
	})
}
