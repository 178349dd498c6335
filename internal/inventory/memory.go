package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"apptracker.org/internal/audit"
)

// MemoryStore is an in-memory Store for tests and local runs. A single lock
// covers the mutation and the audit append so both land or neither does.
type MemoryStore struct {
	mu           sync.RWMutex
	trail        audit.Store
	platforms    map[string]CloudPlatform
	servers      map[string]Server
	dataStores   map[string]DataStore
	applications map[string]Application
}

// NewMemoryStore constructs a store writing audit entries to trail.
func NewMemoryStore(trail audit.Store) *MemoryStore {
	return &MemoryStore{
		trail:        trail,
		platforms:    make(map[string]CloudPlatform),
		servers:      make(map[string]Server),
		dataStores:   make(map[string]DataStore),
		applications: make(map[string]Application),
	}
}

// append writes the audit entry; callers hold the write lock and must have
// verified all mutation preconditions already.
func (m *MemoryStore) append(ctx context.Context, entry *audit.Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: audit entry is required", ErrInvalidInput)
	}
	if err := m.trail.Append(ctx, entry); err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	return nil
}

func (m *MemoryStore) platformNameTaken(name, selfID string) bool {
	for id, p := range m.platforms {
		if id != selfID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CreatePlatform(ctx context.Context, p *CloudPlatform, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.platforms[p.ID]; exists {
		return fmt.Errorf("%w: platform %s", ErrConflict, p.ID)
	}
	if m.platformNameTaken(p.Name, "") {
		return fmt.Errorf("%w: platform name %q", ErrConflict, p.Name)
	}
	if err := m.append(ctx, entry); err != nil {
		return err
	}
	m.platforms[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetPlatform(ctx context.Context, id string) (*CloudPlatform, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.platforms[id]
	if !ok {
		return nil, fmt.Errorf("%w: platform %s", ErrNotFound, id)
	}
	out := p
	return &out, nil
}

func (m *MemoryStore) ListPlatforms(ctx context.Context, f ListFilter) ([]CloudPlatform, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CloudPlatform, 0, len(m.platforms))
	for _, p := range m.platforms {
		if !p.IsActive && !f.IncludeInactive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpdatePlatform(ctx context.Context, p *CloudPlatform, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.platforms[p.ID]; !ok {
		return fmt.Errorf("%w: platform %s", ErrNotFound, p.ID)
	}
	if m.platformNameTaken(p.Name, p.ID) {
		return fmt.Errorf("%w: platform name %q", ErrConflict, p.Name)
	}
	if err := m.append(ctx, entry); err != nil {
		return err
	}
	m.platforms[p.ID] = *p
	return nil
}

func (m *MemoryStore) serverHostnameTaken(hostname, selfID string) bool {
	for id, s := range m.servers {
		if id != selfID && strings.EqualFold(s.Hostname, hostname) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CreateServer(ctx context.Context, s *Server, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.servers[s.ID]; exists {
		return fmt.Errorf("%w: server %s", ErrConflict, s.ID)
	}
	if m.serverHostnameTaken(s.Hostname, "") {
		return fmt.Errorf("%w: hostname %q", ErrConflict, s.Hostname)
	}
	if s.PlatformID != "" {
		if _, ok := m.platforms[s.PlatformID]; !ok {
			return fmt.Errorf("%w: unknown platform %s", ErrInvalidInput, s.PlatformID)
		}
	}
	if err := m.append(ctx, entry); err != nil {
		return err
	}
	m.servers[s.ID] = *s
	return nil
}

func (m *MemoryStore) GetServer(ctx context.Context, id string) (*Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.servers[id]
	if !ok {
		return nil, fmt.Errorf("%w: server %s", ErrNotFound, id)
	}
	out := s
	return &out, nil
}

func (m *MemoryStore) ListServers(ctx context.Context, f ListFilter) ([]Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Server, 0, len(m.servers))
	for _, s := range m.servers {
		if !s.IsActive && !f.IncludeInactive {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpdateServer(ctx context.Context, s *Server, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.servers[s.ID]; !ok {
		return fmt.Errorf("%w: server %s", ErrNotFound, s.ID)
	}
	if m.serverHostnameTaken(s.Hostname, s.ID) {
		return fmt.Errorf("%w: hostname %q", ErrConflict, s.Hostname)
	}
	if s.PlatformID != "" {
		if _, ok := m.platforms[s.PlatformID]; !ok {
			return fmt.Errorf("%w: unknown platform %s", ErrInvalidInput, s.PlatformID)
		}
	}
	if err := m.append(ctx, entry); err != nil {
		return err
	}
	m.servers[s.ID] = *s
	return nil
}

func (m *MemoryStore) dataStoreNameTaken(name, selfID string) bool {
	for id, d := range m.dataStores {
		if id != selfID && strings.EqualFold(d.Name, name) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CreateDataStore(ctx context.Context, d *DataStore, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.dataStores[d.ID]; exists {
		return fmt.Errorf("%w: data store %s", ErrConflict, d.ID)
	}
	if m.dataStoreNameTaken(d.Name, "") {
		return fmt.Errorf("%w: data store name %q", ErrConflict, d.Name)
	}
	if err := m.append(ctx, entry); err != nil {
		return err
	}
	m.dataStores[d.ID] = *d
	return nil
}

func (m *MemoryStore) GetDataStore(ctx context.Context, id string) (*DataStore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.dataStores[id]
	if !ok {
		return nil, fmt.Errorf("%w: data store %s", ErrNotFound, id)
	}
	out := d
	return &out, nil
}

func (m *MemoryStore) ListDataStores(ctx context.Context, f ListFilter) ([]DataStore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]DataStore, 0, len(m.dataStores))
	for _, d := range m.dataStores {
		if !d.IsActive && !f.IncludeInactive {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpdateDataStore(ctx context.Context, d *DataStore, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dataStores[d.ID]; !ok {
		return fmt.Errorf("%w: data store %s", ErrNotFound, d.ID)
	}
	if m.dataStoreNameTaken(d.Name, d.ID) {
		return fmt.Errorf("%w: data store name %q", ErrConflict, d.Name)
	}
	if err := m.append(ctx, entry); err != nil {
		return err
	}
	m.dataStores[d.ID] = *d
	return nil
}

func (m *MemoryStore) applicationNameTaken(name, selfID string) bool {
	for id, a := range m.applications {
		if id != selfID && strings.EqualFold(a.Name, name) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) CreateApplication(ctx context.Context, a *Application, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.applications[a.ID]; exists {
		return fmt.Errorf("%w: application %s", ErrConflict, a.ID)
	}
	if m.applicationNameTaken(a.Name, "") {
		return fmt.Errorf("%w: application name %q", ErrConflict, a.Name)
	}
	if a.PrimaryServerID != "" {
		if _, ok := m.servers[a.PrimaryServerID]; !ok {
			return fmt.Errorf("%w: unknown server %s", ErrInvalidInput, a.PrimaryServerID)
		}
	}
	if err := m.append(ctx, entry); err != nil {
		return err
	}
	m.applications[a.ID] = *a
	return nil
}

func (m *MemoryStore) GetApplication(ctx context.Context, id string) (*Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.applications[id]
	if !ok {
		return nil, fmt.Errorf("%w: application %s", ErrNotFound, id)
	}
	out := a
	return &out, nil
}

func (m *MemoryStore) ListApplications(ctx context.Context, f ListFilter) ([]Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Application, 0, len(m.applications))
	for _, a := range m.applications {
		if !a.IsActive && !f.IncludeInactive {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpdateApplication(ctx context.Context, a *Application, entry *audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.applications[a.ID]; !ok {
		return fmt.Errorf("%w: application %s", ErrNotFound, a.ID)
	}
	if m.applicationNameTaken(a.Name, a.ID) {
		return fmt.Errorf("%w: application name %q", ErrConflict, a.Name)
	}
	if a.PrimaryServerID != "" {
		if _, ok := m.servers[a.PrimaryServerID]; !ok {
			return fmt.Errorf("%w: unknown server %s", ErrInvalidInput, a.PrimaryServerID)
		}
	}
	if err := m.append(ctx, entry); err != nil {
		return err
	}
	m.applications[a.ID] = *a
	return nil
}
