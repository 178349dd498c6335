package pg

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"apptracker.org/internal/audit"
)

var _ audit.Store = (*Store)(nil)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insertEntry writes one audit row through db or an open transaction. The
// seq column is a bigserial, so retrieval order follows commit order.
func insertEntry(ctx context.Context, ex execer, e *audit.Entry) error {
	if e == nil {
		return audit.ErrInvalidEntry
	}
	if err := e.Validate(); err != nil {
		return err
	}
	detail := []byte(e.Detail)
	if len(detail) == 0 {
		detail = []byte("null")
	}
	_, err := ex.ExecContext(ctx, `
		insert into audit_entries (id, occurred_at, actor_id, action, resource_type, resource_id, detail, source_addr, user_agent)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.OccurredAt, nullIfEmpty(e.ActorID), string(e.Action),
		e.ResourceType, nullIfEmpty(e.ResourceID), detail,
		nullIfEmpty(e.SourceAddr), nullIfEmpty(e.UserAgent))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, e *audit.Entry) error {
	return insertEntry(ctx, s.db, e)
}

func (s *Store) Query(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	var (
		where []string
		args  []any
		idx   = 1
	)
	add := func(clause string, val any) {
		where = append(where, fmt.Sprintf(clause, idx))
		args = append(args, val)
		idx++
	}
	if f.ActorID != "" {
		add("actor_id = $%d", f.ActorID)
	}
	if f.ResourceType != "" {
		add("resource_type = $%d", f.ResourceType)
	}
	if f.ResourceID != "" {
		add("resource_id = $%d", f.ResourceID)
	}
	if f.Action != "" {
		add("action = $%d", string(f.Action))
	}
	if !f.From.IsZero() {
		add("occurred_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("occurred_at <= $%d", f.To)
	}

	query := `select id, occurred_at, actor_id, action, resource_type, resource_id, detail, source_addr, user_agent from audit_entries`
	if len(where) > 0 {
		query += " where " + strings.Join(where, " and ")
	}
	query += " order by seq asc"
	if f.Limit > 0 {
		query += fmt.Sprintf(" limit $%d", idx)
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []audit.Entry
	for rows.Next() {
		var (
			e          audit.Entry
			action     string
			actorID    sql.NullString
			resourceID sql.NullString
			detail     []byte
			sourceAddr sql.NullString
			userAgent  sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.OccurredAt, &actorID, &action, &e.ResourceType, &resourceID, &detail, &sourceAddr, &userAgent); err != nil {
			return nil, err
		}
		e.Action = audit.Action(action)
		e.ActorID = emptyIfNull(actorID)
		e.ResourceID = emptyIfNull(resourceID)
		if len(detail) > 0 && string(detail) != "null" {
			e.Detail = detail
		}
		e.SourceAddr = emptyIfNull(sourceAddr)
		e.UserAgent = emptyIfNull(userAgent)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from audit_entries where occurred_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
