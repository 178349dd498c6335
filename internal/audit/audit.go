package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Action classifies an audited operation.
type Action string

const (
	ActionCreate      Action = "CREATE"
	ActionUpdate      Action = "UPDATE"
	ActionDelete      Action = "DELETE"
	ActionView        Action = "VIEW"
	ActionLogin       Action = "LOGIN"
	ActionLoginFailed Action = "LOGIN_FAILED"
)

// ParseAction validates an action string. ok is false for unknown actions.
func ParseAction(raw string) (Action, bool) {
	action := Action(strings.ToUpper(strings.TrimSpace(raw)))
	switch action {
	case ActionCreate, ActionUpdate, ActionDelete, ActionView, ActionLogin, ActionLoginFailed:
		return action, true
	}
	return "", false
}

var (
	ErrInvalidEntry = errors.New("audit: invalid entry")
	ErrWriteFailed  = errors.New("audit: write failed")
)

// Entry is an immutable record of one mutating or security-relevant action.
// ActorID is empty for system actions. Detail holds the action payload:
// a flat field map for CREATE and DELETE snapshots, a per-field
// {"old":…,"new":…} map for UPDATE.
type Entry struct {
	ID           string          `json:"id"`
	OccurredAt   time.Time       `json:"occurred_at"`
	ActorID      string          `json:"actor_id,omitempty"`
	Action       Action          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id"`
	Detail       json.RawMessage `json:"detail,omitempty"`
	SourceAddr   string          `json:"source_addr,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
}

// Validate checks the fields every stored entry must carry.
func (e *Entry) Validate() error {
	if _, ok := ParseAction(string(e.Action)); !ok {
		return ErrInvalidEntry
	}
	if strings.TrimSpace(e.ResourceType) == "" {
		return ErrInvalidEntry
	}
	return nil
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	ActorID      string
	ResourceType string
	ResourceID   string
	Action       Action
	From         time.Time
	To           time.Time
	Limit        int
}

// Matches reports whether the entry satisfies every set filter field.
func (f Filter) Matches(e Entry) bool {
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.ResourceType != "" && e.ResourceType != f.ResourceType {
		return false
	}
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if f.Action != "" && e.Action != f.Action {
		return false
	}
	if !f.From.IsZero() && e.OccurredAt.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.OccurredAt.After(f.To) {
		return false
	}
	return true
}

// Store is the append-only sink for audit entries. No method updates or
// deletes a single entry; PurgeBefore exists solely for policy-driven
// retention and removes whole time ranges, never individual records.
//
// Append is expected to run inside the same transaction as the mutation it
// describes when the backing store supports transactions; an Append failure
// must abort the surrounding mutation.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	Query(ctx context.Context, f Filter) ([]Entry, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
