package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"apptracker.org/internal/audit"
	"apptracker.org/internal/ids"
	"apptracker.org/internal/rbac"
)

// Service enforces role and grant based access over tracked resources and
// records every mutation in the audit trail atomically with the mutation
// itself.
type Service struct {
	store     Store
	recorder  *audit.Recorder
	evaluator *rbac.Evaluator
	now       func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the inventory service.
func NewService(store Store, recorder *audit.Recorder, evaluator *rbac.Evaluator, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("inventory: store is required")
	}
	if recorder == nil {
		return nil, errors.New("inventory: audit recorder is required")
	}
	if evaluator == nil {
		return nil, errors.New("inventory: evaluator is required")
	}
	s := &Service{
		store:     store,
		recorder:  recorder,
		evaluator: evaluator,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func target(kind string, r *Record) *rbac.Target {
	return &rbac.Target{Type: kind, ID: r.ID, OwnerID: r.CreatedBy, Public: r.Public}
}

// prepare builds and stamps an audit entry, picking up request metadata from
// the context when the HTTP layer attached it.
func (s *Service) prepare(ctx context.Context, actorID string, action audit.Action, kind, resourceID string, detail []byte) (audit.Entry, error) {
	meta := audit.MetaFromContext(ctx)
	e := audit.Entry{
		ActorID:      actorID,
		Action:       action,
		ResourceType: kind,
		ResourceID:   resourceID,
		Detail:       detail,
		SourceAddr:   meta.SourceAddr,
		UserAgent:    meta.UserAgent,
	}
	if err := s.recorder.Prepare(&e); err != nil {
		return audit.Entry{}, err
	}
	return e, nil
}

// auditView records that restricted notes were read. Reads mutate nothing,
// so a failed append has nothing to abort and is dropped.
func (s *Service) auditView(ctx context.Context, actor rbac.Actor, kind, resourceID string) {
	detail, _ := audit.CreateDetail(map[string]any{"fields": []string{"system_manager_notes"}})
	_ = s.recorder.Record(ctx, audit.Entry{
		ActorID:      actor.ID,
		Action:       audit.ActionView,
		ResourceType: kind,
		ResourceID:   resourceID,
		Detail:       detail,
		SourceAddr:   audit.MetaFromContext(ctx).SourceAddr,
		UserAgent:    audit.MetaFromContext(ctx).UserAgent,
	})
}

// restrictedNotes decides the stored value of system manager notes after a
// write. Writers who cannot see the field cannot change it, and the redaction
// placeholder bouncing back from a client never overwrites the real value.
func (s *Service) restrictedNotes(ctx context.Context, actor rbac.Actor, submitted, existing string) string {
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapViewSystemNotes, nil) {
		return existing
	}
	if submitted == rbac.RestrictedPlaceholder {
		return existing
	}
	return submitted
}

// canSeeInactive reports whether soft-deleted records are visible to the
// actor at all.
func (s *Service) canSeeInactive(ctx context.Context, actor rbac.Actor) bool {
	return s.evaluator.Evaluate(ctx, actor, rbac.CapDeleteRecords, nil)
}

func (s *Service) finishRead(ctx context.Context, actor rbac.Actor, kind string, r *Record) {
	if r.SystemManagerNotes != "" && s.evaluator.Evaluate(ctx, actor, rbac.CapViewSystemNotes, nil) {
		s.auditView(ctx, actor, kind, r.ID)
	}
}

// --- Cloud platforms ---

// PlatformInput carries the writable fields of a cloud platform.
type PlatformInput struct {
	Name               string `json:"name"`
	Code               string `json:"code"`
	Description        string `json:"description"`
	Public             bool   `json:"public"`
	Notes              string `json:"notes"`
	SystemManagerNotes string `json:"system_manager_notes"`
}

func (in *PlatformInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Code = strings.ToLower(strings.TrimSpace(in.Code))
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !platformCodes[in.Code] {
		return fmt.Errorf("%w: unknown platform code %q", ErrInvalidInput, in.Code)
	}
	return nil
}

func (s *Service) CreatePlatform(ctx context.Context, actor rbac.Actor, in PlatformInput) (*CloudPlatform, error) {
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapCreateRecords, nil) {
		return nil, rbac.ErrPermissionDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	p := &CloudPlatform{
		Record: Record{
			ID:                 ids.New(),
			Name:               in.Name,
			IsActive:           true,
			Public:             in.Public,
			Notes:              in.Notes,
			SystemManagerNotes: s.restrictedNotes(ctx, actor, in.SystemManagerNotes, ""),
			CreatedBy:          actor.ID,
			UpdatedBy:          actor.ID,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		Code:        in.Code,
		Description: in.Description,
	}
	detail, err := audit.CreateDetail(p.Snapshot())
	if err != nil {
		return nil, err
	}
	entry, err := s.prepare(ctx, actor.ID, audit.ActionCreate, TypeCloudPlatform, p.ID, detail)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreatePlatform(ctx, p, &entry); err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return p, nil
}

func (s *Service) GetPlatform(ctx context.Context, actor rbac.Actor, id string) (*CloudPlatform, error) {
	p, err := s.store.GetPlatform(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive && !s.canSeeInactive(ctx, actor) {
		return nil, ErrNotFound
	}
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapViewRecords, target(TypeCloudPlatform, &p.Record)) {
		return nil, rbac.ErrPermissionDenied
	}
	s.finishRead(ctx, actor, TypeCloudPlatform, &p.Record)
	rbac.Redact(actor.Role, p)
	return p, nil
}

func (s *Service) ListPlatforms(ctx context.Context, actor rbac.Actor) ([]CloudPlatform, error) {
	all, err := s.store.ListPlatforms(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]CloudPlatform, 0, len(all))
	for i := range all {
		p := all[i]
		if !s.evaluator.Evaluate(ctx, actor, rbac.CapViewRecords, target(TypeCloudPlatform, &p.Record)) {
			continue
		}
		rbac.Redact(actor.Role, &p)
		out = append(out, p)
	}
	return out, nil
}

func (s *Service) UpdatePlatform(ctx context.Context, actor rbac.Actor, id string, in PlatformInput) (*CloudPlatform, error) {
	p, err := s.store.GetPlatform(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive && !s.canSeeInactive(ctx, actor) {
		return nil, ErrNotFound
	}
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapEditRecords, target(TypeCloudPlatform, &p.Record)) {
		return nil, rbac.ErrPermissionDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	before := p.Snapshot()
	p.Name = in.Name
	p.Code = in.Code
	p.Description = in.Description
	p.Public = in.Public
	p.Notes = in.Notes
	p.SystemManagerNotes = s.restrictedNotes(ctx, actor, in.SystemManagerNotes, p.SystemManagerNotes)
	changes := audit.Diff(before, p.Snapshot())
	if changes == nil {
		rbac.Redact(actor.Role, p)
		return p, nil
	}
	p.UpdatedBy = actor.ID
	p.UpdatedAt = s.now()
	detail, err := audit.UpdateDetail(changes)
	if err != nil {
		return nil, err
	}
	entry, err := s.prepare(ctx, actor.ID, audit.ActionUpdate, TypeCloudPlatform, p.ID, detail)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdatePlatform(ctx, p, &entry); err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	rbac.Redact(actor.Role, p)
	return p, nil
}

func (s *Service) DeletePlatform(ctx context.Context, actor rbac.Actor, id string) error {
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapDeleteRecords, nil) {
		return rbac.ErrPermissionDenied
	}
	p, err := s.store.GetPlatform(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return nil
	}
	detail, err := audit.DeleteDetail(p.Snapshot())
	if err != nil {
		return err
	}
	p.IsActive = false
	p.UpdatedBy = actor.ID
	p.UpdatedAt = s.now()
	entry, err := s.prepare(ctx, actor.ID, audit.ActionDelete, TypeCloudPlatform, p.ID, detail)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePlatform(ctx, p, &entry); err != nil {
		return err
	}
	s.recorder.Emit(entry)
	return nil
}

// --- Servers ---

// ServerInput carries the writable fields of a server.
type ServerInput struct {
	Name               string `json:"name"`
	Hostname           string `json:"hostname"`
	IPAddress          string `json:"ip_address"`
	EnvironmentType    string `json:"environment_type"`
	OperatingSystem    string `json:"operating_system"`
	OSVersion          string `json:"os_version"`
	PlatformID         string `json:"platform_id"`
	CPUCores           int    `json:"cpu_cores"`
	MemoryGB           int    `json:"memory_gb"`
	StorageGB          int    `json:"storage_gb"`
	Public             bool   `json:"public"`
	Notes              string `json:"notes"`
	SystemManagerNotes string `json:"system_manager_notes"`
}

func (in *ServerInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Hostname = strings.ToLower(strings.TrimSpace(in.Hostname))
	in.EnvironmentType = strings.ToLower(strings.TrimSpace(in.EnvironmentType))
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Hostname == "" {
		return fmt.Errorf("%w: hostname is required", ErrInvalidInput)
	}
	if !environmentTypes[in.EnvironmentType] {
		return fmt.Errorf("%w: unknown environment type %q", ErrInvalidInput, in.EnvironmentType)
	}
	if in.CPUCores < 0 || in.MemoryGB < 0 || in.StorageGB < 0 {
		return fmt.Errorf("%w: capacity values must not be negative", ErrInvalidInput)
	}
	return nil
}

func (s *Service) CreateServer(ctx context.Context, actor rbac.Actor, in ServerInput) (*Server, error) {
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapCreateRecords, nil) {
		return nil, rbac.ErrPermissionDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	srv := &Server{
		Record: Record{
			ID:                 ids.New(),
			Name:               in.Name,
			IsActive:           true,
			Public:             in.Public,
			Notes:              in.Notes,
			SystemManagerNotes: s.restrictedNotes(ctx, actor, in.SystemManagerNotes, ""),
			CreatedBy:          actor.ID,
			UpdatedBy:          actor.ID,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		Hostname:        in.Hostname,
		IPAddress:       in.IPAddress,
		EnvironmentType: in.EnvironmentType,
		OperatingSystem: in.OperatingSystem,
		OSVersion:       in.OSVersion,
		PlatformID:      in.PlatformID,
		CPUCores:        in.CPUCores,
		MemoryGB:        in.MemoryGB,
		StorageGB:       in.StorageGB,
	}
	detail, err := audit.CreateDetail(srv.Snapshot())
	if err != nil {
		return nil, err
	}
	entry, err := s.prepare(ctx, actor.ID, audit.ActionCreate, TypeServer, srv.ID, detail)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateServer(ctx, srv, &entry); err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return srv, nil
}

func (s *Service) GetServer(ctx context.Context, actor rbac.Actor, id string) (*Server, error) {
	srv, err := s.store.GetServer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !srv.IsActive && !s.canSeeInactive(ctx, actor) {
		return nil, ErrNotFound
	}
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapViewRecords, target(TypeServer, &srv.Record)) {
		return nil, rbac.ErrPermissionDenied
	}
	s.finishRead(ctx, actor, TypeServer, &srv.Record)
	rbac.Redact(actor.Role, srv)
	return srv, nil
}

func (s *Service) ListServers(ctx context.Context, actor rbac.Actor) ([]Server, error) {
	all, err := s.store.ListServers(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]Server, 0, len(all))
	for i := range all {
		srv := all[i]
		if !s.evaluator.Evaluate(ctx, actor, rbac.CapViewRecords, target(TypeServer, &srv.Record)) {
			continue
		}
		rbac.Redact(actor.Role, &srv)
		out = append(out, srv)
	}
	return out, nil
}

func (s *Service) UpdateServer(ctx context.Context, actor rbac.Actor, id string, in ServerInput) (*Server, error) {
	srv, err := s.store.GetServer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !srv.IsActive && !s.canSeeInactive(ctx, actor) {
		return nil, ErrNotFound
	}
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapEditRecords, target(TypeServer, &srv.Record)) {
		return nil, rbac.ErrPermissionDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	before := srv.Snapshot()
	srv.Name = in.Name
	srv.Hostname = in.Hostname
	srv.IPAddress = in.IPAddress
	srv.EnvironmentType = in.EnvironmentType
	srv.OperatingSystem = in.OperatingSystem
	srv.OSVersion = in.OSVersion
	srv.PlatformID = in.PlatformID
	srv.CPUCores = in.CPUCores
	srv.MemoryGB = in.MemoryGB
	srv.StorageGB = in.StorageGB
	srv.Public = in.Public
	srv.Notes = in.Notes
	srv.SystemManagerNotes = s.restrictedNotes(ctx, actor, in.SystemManagerNotes, srv.SystemManagerNotes)
	changes := audit.Diff(before, srv.Snapshot())
	if changes == nil {
		rbac.Redact(actor.Role, srv)
		return srv, nil
	}
	srv.UpdatedBy = actor.ID
	srv.UpdatedAt = s.now()
	detail, err := audit.UpdateDetail(changes)
	if err != nil {
		return nil, err
	}
	entry, err := s.prepare(ctx, actor.ID, audit.ActionUpdate, TypeServer, srv.ID, detail)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateServer(ctx, srv, &entry); err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	rbac.Redact(actor.Role, srv)
	return srv, nil
}

func (s *Service) DeleteServer(ctx context.Context, actor rbac.Actor, id string) error {
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapDeleteRecords, nil) {
		return rbac.ErrPermissionDenied
	}
	srv, err := s.store.GetServer(ctx, id)
	if err != nil {
		return err
	}
	if !srv.IsActive {
		return nil
	}
	detail, err := audit.DeleteDetail(srv.Snapshot())
	if err != nil {
		return err
	}
	srv.IsActive = false
	srv.UpdatedBy = actor.ID
	srv.UpdatedAt = s.now()
	entry, err := s.prepare(ctx, actor.ID, audit.ActionDelete, TypeServer, srv.ID, detail)
	if err != nil {
		return err
	}
	if err := s.store.UpdateServer(ctx, srv, &entry); err != nil {
		return err
	}
	s.recorder.Emit(entry)
	return nil
}

// --- Data stores ---

// DataStoreInput carries the writable fields of a data store.
type DataStoreInput struct {
	Name               string `json:"name"`
	Type               string `json:"type"`
	Description        string `json:"description"`
	Version            string `json:"version"`
	Public             bool   `json:"public"`
	Notes              string `json:"notes"`
	SystemManagerNotes string `json:"system_manager_notes"`
}

func (in *DataStoreInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !dataStoreTypes[in.Type] {
		return fmt.Errorf("%w: unknown data store type %q", ErrInvalidInput, in.Type)
	}
	return nil
}

func (s *Service) CreateDataStore(ctx context.Context, actor rbac.Actor, in DataStoreInput) (*DataStore, error) {
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapCreateRecords, nil) {
		return nil, rbac.ErrPermissionDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	d := &DataStore{
		Record: Record{
			ID:                 ids.New(),
			Name:               in.Name,
			IsActive:           true,
			Public:             in.Public,
			Notes:              in.Notes,
			SystemManagerNotes: s.restrictedNotes(ctx, actor, in.SystemManagerNotes, ""),
			CreatedBy:          actor.ID,
			UpdatedBy:          actor.ID,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		Type:        in.Type,
		Description: in.Description,
		Version:     in.Version,
	}
	detail, err := audit.CreateDetail(d.Snapshot())
	if err != nil {
		return nil, err
	}
	entry, err := s.prepare(ctx, actor.ID, audit.ActionCreate, TypeDataStore, d.ID, detail)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateDataStore(ctx, d, &entry); err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return d, nil
}

func (s *Service) GetDataStore(ctx context.Context, actor rbac.Actor, id string) (*DataStore, error) {
	d, err := s.store.GetDataStore(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.IsActive && !s.canSeeInactive(ctx, actor) {
		return nil, ErrNotFound
	}
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapViewRecords, target(TypeDataStore, &d.Record)) {
		return nil, rbac.ErrPermissionDenied
	}
	s.finishRead(ctx, actor, TypeDataStore, &d.Record)
	rbac.Redact(actor.Role, d)
	return d, nil
}

func (s *Service) ListDataStores(ctx context.Context, actor rbac.Actor) ([]DataStore, error) {
	all, err := s.store.ListDataStores(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]DataStore, 0, len(all))
	for i := range all {
		d := all[i]
		if !s.evaluator.Evaluate(ctx, actor, rbac.CapViewRecords, target(TypeDataStore, &d.Record)) {
			continue
		}
		rbac.Redact(actor.Role, &d)
		out = append(out, d)
	}
	return out, nil
}

func (s *Service) UpdateDataStore(ctx context.Context, actor rbac.Actor, id string, in DataStoreInput) (*DataStore, error) {
	d, err := s.store.GetDataStore(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.IsActive && !s.canSeeInactive(ctx, actor) {
		return nil, ErrNotFound
	}
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapEditRecords, target(TypeDataStore, &d.Record)) {
		return nil, rbac.ErrPermissionDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	before := d.Snapshot()
	d.Name = in.Name
	d.Type = in.Type
	d.Description = in.Description
	d.Version = in.Version
	d.Public = in.Public
	d.Notes = in.Notes
	d.SystemManagerNotes = s.restrictedNotes(ctx, actor, in.SystemManagerNotes, d.SystemManagerNotes)
	changes := audit.Diff(before, d.Snapshot())
	if changes == nil {
		rbac.Redact(actor.Role, d)
		return d, nil
	}
	d.UpdatedBy = actor.ID
	d.UpdatedAt = s.now()
	detail, err := audit.UpdateDetail(changes)
	if err != nil {
		return nil, err
	}
	entry, err := s.prepare(ctx, actor.ID, audit.ActionUpdate, TypeDataStore, d.ID, detail)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateDataStore(ctx, d, &entry); err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	rbac.Redact(actor.Role, d)
	return d, nil
}

func (s *Service) DeleteDataStore(ctx context.Context, actor rbac.Actor, id string) error {
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapDeleteRecords, nil) {
		return rbac.ErrPermissionDenied
	}
	d, err := s.store.GetDataStore(ctx, id)
	if err != nil {
		return err
	}
	if !d.IsActive {
		return nil
	}
	detail, err := audit.DeleteDetail(d.Snapshot())
	if err != nil {
		return err
	}
	d.IsActive = false
	d.UpdatedBy = actor.ID
	d.UpdatedAt = s.now()
	entry, err := s.prepare(ctx, actor.ID, audit.ActionDelete, TypeDataStore, d.ID, detail)
	if err != nil {
		return err
	}
	if err := s.store.UpdateDataStore(ctx, d, &entry); err != nil {
		return err
	}
	s.recorder.Emit(entry)
	return nil
}

// --- Applications ---

// ApplicationInput carries the writable fields of an application.
type ApplicationInput struct {
	Name               string `json:"name"`
	Description        string `json:"description"`
	BusinessPurpose    string `json:"business_purpose"`
	LifecycleStage     string `json:"lifecycle_stage"`
	Criticality        string `json:"criticality"`
	BusinessOwner      string `json:"business_owner"`
	TechnicalOwner     string `json:"technical_owner"`
	PrimaryServerID    string `json:"primary_server_id"`
	Version            string `json:"version"`
	DeploymentPath     string `json:"deployment_path"`
	Public             bool   `json:"public"`
	Notes              string `json:"notes"`
	SystemManagerNotes string `json:"system_manager_notes"`
}

func (in *ApplicationInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.LifecycleStage = strings.ToLower(strings.TrimSpace(in.LifecycleStage))
	in.Criticality = strings.ToLower(strings.TrimSpace(in.Criticality))
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !lifecycleStages[in.LifecycleStage] {
		return fmt.Errorf("%w: unknown lifecycle stage %q", ErrInvalidInput, in.LifecycleStage)
	}
	if !criticalities[in.Criticality] {
		return fmt.Errorf("%w: unknown criticality %q", ErrInvalidInput, in.Criticality)
	}
	return nil
}

func (s *Service) CreateApplication(ctx context.Context, actor rbac.Actor, in ApplicationInput) (*Application, error) {
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapCreateRecords, nil) {
		return nil, rbac.ErrPermissionDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	a := &Application{
		Record: Record{
			ID:                 uuid.NewString(),
			Name:               in.Name,
			IsActive:           true,
			Public:             in.Public,
			Notes:              in.Notes,
			SystemManagerNotes: s.restrictedNotes(ctx, actor, in.SystemManagerNotes, ""),
			CreatedBy:          actor.ID,
			UpdatedBy:          actor.ID,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		Description:     in.Description,
		BusinessPurpose: in.BusinessPurpose,
		LifecycleStage:  in.LifecycleStage,
		Criticality:     in.Criticality,
		BusinessOwner:   in.BusinessOwner,
		TechnicalOwner:  in.TechnicalOwner,
		PrimaryServerID: in.PrimaryServerID,
		Version:         in.Version,
		DeploymentPath:  in.DeploymentPath,
	}
	detail, err := audit.CreateDetail(a.Snapshot())
	if err != nil {
		return nil, err
	}
	entry, err := s.prepare(ctx, actor.ID, audit.ActionCreate, TypeApplication, a.ID, detail)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateApplication(ctx, a, &entry); err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return a, nil
}

func (s *Service) GetApplication(ctx context.Context, actor rbac.Actor, id string) (*Application, error) {
	a, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsActive && !s.canSeeInactive(ctx, actor) {
		return nil, ErrNotFound
	}
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapViewRecords, target(TypeApplication, &a.Record)) {
		return nil, rbac.ErrPermissionDenied
	}
	s.finishRead(ctx, actor, TypeApplication, &a.Record)
	rbac.Redact(actor.Role, a)
	return a, nil
}

func (s *Service) ListApplications(ctx context.Context, actor rbac.Actor) ([]Application, error) {
	all, err := s.store.ListApplications(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]Application, 0, len(all))
	for i := range all {
		a := all[i]
		if !s.evaluator.Evaluate(ctx, actor, rbac.CapViewRecords, target(TypeApplication, &a.Record)) {
			continue
		}
		rbac.Redact(actor.Role, &a)
		out = append(out, a)
	}
	return out, nil
}

func (s *Service) UpdateApplication(ctx context.Context, actor rbac.Actor, id string, in ApplicationInput) (*Application, error) {
	a, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsActive && !s.canSeeInactive(ctx, actor) {
		return nil, ErrNotFound
	}
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapEditRecords, target(TypeApplication, &a.Record)) {
		return nil, rbac.ErrPermissionDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	before := a.Snapshot()
	a.Name = in.Name
	a.Description = in.Description
	a.BusinessPurpose = in.BusinessPurpose
	a.LifecycleStage = in.LifecycleStage
	a.Criticality = in.Criticality
	a.BusinessOwner = in.BusinessOwner
	a.TechnicalOwner = in.TechnicalOwner
	a.PrimaryServerID = in.PrimaryServerID
	a.Version = in.Version
	a.DeploymentPath = in.DeploymentPath
	a.Public = in.Public
	a.Notes = in.Notes
	a.SystemManagerNotes = s.restrictedNotes(ctx, actor, in.SystemManagerNotes, a.SystemManagerNotes)
	changes := audit.Diff(before, a.Snapshot())
	if changes == nil {
		rbac.Redact(actor.Role, a)
		return a, nil
	}
	a.UpdatedBy = actor.ID
	a.UpdatedAt = s.now()
	detail, err := audit.UpdateDetail(changes)
	if err != nil {
		return nil, err
	}
	entry, err := s.prepare(ctx, actor.ID, audit.ActionUpdate, TypeApplication, a.ID, detail)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateApplication(ctx, a, &entry); err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	rbac.Redact(actor.Role, a)
	return a, nil
}

func (s *Service) DeleteApplication(ctx context.Context, actor rbac.Actor, id string) error {
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapDeleteRecords, nil) {
		return rbac.ErrPermissionDenied
	}
	a, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return err
	}
	if !a.IsActive {
		return nil
	}
	detail, err := audit.DeleteDetail(a.Snapshot())
	if err != nil {
		return err
	}
	a.IsActive = false
	a.UpdatedBy = actor.ID
	a.UpdatedAt = s.now()
	entry, err := s.prepare(ctx, actor.ID, audit.ActionDelete, TypeApplication, a.ID, detail)
	if err != nil {
		return err
	}
	if err := s.store.UpdateApplication(ctx, a, &entry); err != nil {
		return err
	}
	s.recorder.Emit(entry)
	return nil
}
