package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"apptracker.org/internal/audit"
)

// MemoryAccounts is an in-memory AccountStore for tests and local runs. A
// single lock covers the mutation and the audit append so both land or
// neither does.
type MemoryAccounts struct {
	mu      sync.RWMutex
	trail   audit.Store
	byID    map[string]Account
	byEmail map[string]string
}

// NewMemoryAccounts constructs an empty store writing audit entries to trail.
func NewMemoryAccounts(trail audit.Store) *MemoryAccounts {
	return &MemoryAccounts{
		trail:   trail,
		byID:    make(map[string]Account),
		byEmail: make(map[string]string),
	}
}

// append writes the audit entry; callers hold the write lock and must have
// verified all mutation preconditions already. A nil entry is a seeding
// write and carries no audit.
func (m *MemoryAccounts) append(ctx context.Context, entry *audit.Entry) error {
	if entry == nil {
		return nil
	}
	if err := m.trail.Append(ctx, entry); err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	return nil
}

func (m *MemoryAccounts) Create(ctx context.Context, acc *Account, entry *audit.Entry) error {
	if acc == nil || acc.ID == "" || acc.Email == "" {
		return fmt.Errorf("%w: account id and email are required", ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(acc.Email)
	if _, exists := m.byEmail[key]; exists {
		return fmt.Errorf("%w: email %s already registered", ErrConflict, acc.Email)
	}
	if _, exists := m.byID[acc.ID]; exists {
		return fmt.Errorf("%w: account %s already exists", ErrConflict, acc.ID)
	}
	if err := m.append(ctx, entry); err != nil {
		return err
	}
	m.byID[acc.ID] = *acc
	m.byEmail[key] = acc.ID
	return nil
}

func (m *MemoryAccounts) GetByID(ctx context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", ErrNotFound, id)
	}
	out := acc
	return &out, nil
}

func (m *MemoryAccounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("%w: no account for email", ErrNotFound)
	}
	acc := m.byID[id]
	out := acc
	return &out, nil
}

func (m *MemoryAccounts) List(ctx context.Context) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Account, 0, len(m.byID))
	for _, acc := range m.byID {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *MemoryAccounts) Update(ctx context.Context, acc *Account, entry *audit.Entry) error {
	if acc == nil || acc.ID == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.byID[acc.ID]
	if !ok {
		return fmt.Errorf("%w: account %s", ErrNotFound, acc.ID)
	}
	newKey := strings.ToLower(acc.Email)
	oldKey := strings.ToLower(prev.Email)
	if newKey != oldKey {
		if owner, exists := m.byEmail[newKey]; exists && owner != acc.ID {
			return fmt.Errorf("%w: email %s already registered", ErrConflict, acc.Email)
		}
	}
	if err := m.append(ctx, entry); err != nil {
		return err
	}
	if newKey != oldKey {
		delete(m.byEmail, oldKey)
		m.byEmail[newKey] = acc.ID
	}
	m.byID[acc.ID] = *acc
	return nil
}
