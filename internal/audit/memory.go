package audit

import (
	"context"
	"sync"
	"time"
)

// Memory implements Store in process. Entries are held in append order, which
// for a single process is commit order.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry

	// FailNext makes the next Append fail. Tests use it to prove mutations
	// roll back when the audit write fails.
	FailNext error
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory audit store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(ctx context.Context, e *Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return err
	}
	m.entries = append(m.entries, *e)
	return nil
}

func (m *Memory) Query(ctx context.Context, f Filter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for _, e := range m.entries {
		if !f.Matches(e) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	var purged int64
	for _, e := range m.entries {
		if e.OccurredAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return purged, nil
}

// Len reports the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
