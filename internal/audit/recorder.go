package audit

import (
	"context"
	"fmt"
	"time"

	"apptracker.org/internal/ids"
	"apptracker.org/internal/obs"
)

// Recorder fronts the audit store for entries recorded outside a mutation
// transaction (logins, views) and fans committed entries out to observers.
// Transactional mutations append their entry through the resource store
// itself and call Emit after commit.
type Recorder struct {
	store   Store
	now     func() time.Time
	publish func(Entry)
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock overrides the time source, for tests.
func WithClock(fn func() time.Time) Option {
	return func(r *Recorder) {
		if fn != nil {
			r.now = fn
		}
	}
}

// WithPublisher registers a post-commit fan-out hook, typically the live
// audit stream.
func WithPublisher(fn func(Entry)) Option {
	return func(r *Recorder) {
		r.publish = fn
	}
}

// NewRecorder builds a Recorder over the given store.
func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prepare stamps identity and time onto an entry so a resource store can
// persist it alongside its mutation.
func (r *Recorder) Prepare(e *Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now()
	}
	if e.ID == "" {
		e.ID = ids.NewAt(e.OccurredAt)
	}
	return nil
}

// Record persists a standalone entry and emits it. A failure here is an
// operation failure for the caller, never a silent degradation.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if err := r.Prepare(&e); err != nil {
		return err
	}
	if err := r.store.Append(ctx, &e); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	r.Emit(e)
	return nil
}

// Emit fans a committed entry out to metrics and the live stream. It must be
// called only after the entry is durably stored.
func (r *Recorder) Emit(e Entry) {
	obs.CountAuditEntry(string(e.Action))
	if r.publish != nil {
		r.publish(e)
	}
}

// Query reads entries matching the filter, in per-resource commit order.
func (r *Recorder) Query(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 || f.Limit > 1000 {
		f.Limit = 100
	}
	return r.store.Query(ctx, f)
}

// PurgeBefore applies retention policy, removing entries older than cutoff.
func (r *Recorder) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.store.PurgeBefore(ctx, cutoff)
}
