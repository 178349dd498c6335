package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"apptracker.org/internal/rbac"
)

var _ rbac.GrantStore = (*Store)(nil)

// Grant upserts a record-level grant. Re-granting the same (user, target,
// kind) refreshes the grantor and expiry instead of duplicating the row.
func (s *Store) Grant(ctx context.Context, g rbac.Grant) error {
	if g.UserID == "" || g.ResourceType == "" || g.ResourceID == "" {
		return fmt.Errorf("%w: grant subject is incomplete", rbac.ErrInvalidInput)
	}
	if _, ok := rbac.ParseGrantKind(string(g.Kind)); !ok {
		return fmt.Errorf("%w: unknown grant kind %q", rbac.ErrInvalidInput, g.Kind)
	}
	if g.GrantedAt.IsZero() {
		g.GrantedAt = time.Now().UTC()
	}
	var expires sql.NullTime
	if g.ExpiresAt != nil {
		expires = sql.NullTime{Time: *g.ExpiresAt, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		insert into grants (user_id, resource_type, resource_id, kind, granted_by, granted_at, expires_at)
		values ($1, $2, $3, $4, $5, $6, $7)
		on conflict (user_id, resource_type, resource_id, kind) do update
		set granted_by = excluded.granted_by,
		    granted_at = excluded.granted_at,
		    expires_at = excluded.expires_at
	`, g.UserID, g.ResourceType, g.ResourceID, string(g.Kind),
		nullIfEmpty(g.GrantedBy), g.GrantedAt, expires)
	return err
}

func (s *Store) Revoke(ctx context.Context, userID, resourceType, resourceID string, kind rbac.GrantKind) error {
	res, err := s.db.ExecContext(ctx, `
		delete from grants
		where user_id = $1 and resource_type = $2 and resource_id = $3 and kind = $4
	`, userID, resourceType, resourceID, string(kind))
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return rbac.ErrNotFound
	}
	return nil
}

// HasGrant reports whether a live grant exists. Expiry is evaluated here, at
// read time; expired rows simply stop matching.
func (s *Store) HasGrant(ctx context.Context, userID, resourceType, resourceID string, kind rbac.GrantKind) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		select exists (
			select 1 from grants
			where user_id = $1 and resource_type = $2 and resource_id = $3 and kind = $4
			  and (expires_at is null or expires_at > now())
		)
	`, userID, resourceType, resourceID, string(kind)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) ListByUser(ctx context.Context, userID string) ([]rbac.Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		select user_id, resource_type, resource_id, kind, granted_by, granted_at, expires_at
		from grants
		where user_id = $1
		order by granted_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []rbac.Grant
	for rows.Next() {
		var (
			g         rbac.Grant
			kind      string
			grantedBy sql.NullString
			expires   sql.NullTime
		)
		if err := rows.Scan(&g.UserID, &g.ResourceType, &g.ResourceID, &kind, &grantedBy, &g.GrantedAt, &expires); err != nil {
			return nil, err
		}
		g.Kind = rbac.GrantKind(kind)
		g.GrantedBy = emptyIfNull(grantedBy)
		if expires.Valid {
			t := expires.Time
			g.ExpiresAt = &t
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
