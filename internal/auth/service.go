package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"apptracker.org/internal/audit"
	"apptracker.org/internal/ids"
	"apptracker.org/internal/rbac"
)

const defaultTokenTTL = 15 * time.Minute

// Service provides login, token authentication and account management.
// Account mutations are permission-checked against the role table and
// audited; login attempts are audited whether or not they succeed.
type Service struct {
	accounts  AccountStore
	recorder  *audit.Recorder
	evaluator *rbac.Evaluator
	tokenTTL  time.Duration
	now       func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithTokenTTL overrides the access token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs the auth service.
func NewService(accounts AccountStore, recorder *audit.Recorder, evaluator *rbac.Evaluator, opts ...ServiceOption) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("auth: account store is required")
	}
	if recorder == nil {
		return nil, errors.New("auth: audit recorder is required")
	}
	if evaluator == nil {
		return nil, errors.New("auth: evaluator is required")
	}
	s := &Service{
		accounts:  accounts,
		recorder:  recorder,
		evaluator: evaluator,
		tokenTTL:  defaultTokenTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RequestMeta carries caller network facts into login audit entries.
type RequestMeta struct {
	SourceAddr string
	UserAgent  string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   Account   `json:"account"`
}

// Login verifies credentials and issues a bearer token. Every attempt is
// audited; failures all surface as ErrInvalidCredentials so the response
// never reveals whether the email exists.
func (s *Service) Login(ctx context.Context, email, password string, meta RequestMeta) (LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return LoginResult{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.auditLoginFailed(ctx, email, "", "unknown_account", meta)
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !acc.IsActive {
		s.auditLoginFailed(ctx, email, acc.ID, "account_disabled", meta)
		return LoginResult{}, ErrInvalidCredentials
	}
	if err := VerifyPassword(acc.PasswordHash, password); err != nil {
		s.auditLoginFailed(ctx, email, acc.ID, "bad_password", meta)
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := GenerateToken(acc.ID, acc.Role, s.tokenTTL)
	if err != nil {
		return LoginResult{}, err
	}
	expiresAt := s.now().Add(s.tokenTTL)

	detail, _ := audit.CreateDetail(map[string]any{"email": acc.Email})
	if err := s.recorder.Record(ctx, audit.Entry{
		ActorID:      acc.ID,
		Action:       audit.ActionLogin,
		ResourceType: "account",
		ResourceID:   acc.ID,
		Detail:       detail,
		SourceAddr:   meta.SourceAddr,
		UserAgent:    meta.UserAgent,
	}); err != nil {
		return LoginResult{}, err
	}

	return LoginResult{Token: token, ExpiresAt: expiresAt, Account: *acc}, nil
}

func (s *Service) auditLoginFailed(ctx context.Context, email, accountID, reason string, meta RequestMeta) {
	detail, _ := audit.CreateDetail(map[string]any{"email": email, "reason": reason})
	// A failed login is recorded best-effort: the attempt itself performed
	// no mutation to roll back.
	_ = s.recorder.Record(ctx, audit.Entry{
		ActorID:      accountID,
		Action:       audit.ActionLoginFailed,
		ResourceType: "account",
		ResourceID:   accountID,
		Detail:       detail,
		SourceAddr:   meta.SourceAddr,
		UserAgent:    meta.UserAgent,
	})
}

// Authenticate resolves a bearer token into a principal backed by a live
// account. Disabled accounts fail even while their tokens are unexpired.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := ParseAndValidate(token)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	acc, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if !acc.IsActive {
		return Principal{}, ErrAccountDisabled
	}
	// The stored role wins over the token claim so role reassignment takes
	// effect without waiting for token expiry.
	return Principal{AccountID: acc.ID, Email: acc.Email, Role: acc.Role}, nil
}

// NewAccount carries the fields required to provision an account.
type NewAccount struct {
	Email      string
	Password   string
	Role       rbac.Role
	Department string
	Phone      string
}

// CreateAccount provisions an account. Requires manage_users.
func (s *Service) CreateAccount(ctx context.Context, actor rbac.Actor, req NewAccount) (*Account, error) {
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapManageUsers, nil) {
		return nil, rbac.ErrPermissionDenied
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	role, ok := rbac.ParseRole(string(req.Role))
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, req.Role)
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	acc := &Account{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Department:   strings.TrimSpace(req.Department),
		Phone:        strings.TrimSpace(req.Phone),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    actor.ID,
	}
	detail, _ := audit.CreateDetail(snapshotAccount(acc))
	entry, err := s.prepare(ctx, actor.ID, audit.ActionCreate, acc.ID, detail)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Create(ctx, acc, &entry); err != nil {
		return nil, err
	}
	s.recorder.Emit(entry)
	return acc, nil
}

// prepare builds and stamps an account audit entry, picking up request
// metadata from the context when the HTTP layer attached it. The store
// appends the entry in the same transaction as the account write.
func (s *Service) prepare(ctx context.Context, actorID string, action audit.Action, accountID string, detail []byte) (audit.Entry, error) {
	meta := audit.MetaFromContext(ctx)
	e := audit.Entry{
		ActorID:      actorID,
		Action:       action,
		ResourceType: "account",
		ResourceID:   accountID,
		Detail:       detail,
		SourceAddr:   meta.SourceAddr,
		UserAgent:    meta.UserAgent,
	}
	if err := s.recorder.Prepare(&e); err != nil {
		return audit.Entry{}, err
	}
	return e, nil
}

// GetAccount returns one account. Admins read anyone; other roles only
// themselves.
func (s *Service) GetAccount(ctx context.Context, actor rbac.Actor, id string) (*Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	if id != actor.ID && !s.evaluator.Evaluate(ctx, actor, rbac.CapManageUsers, nil) {
		return nil, rbac.ErrPermissionDenied
	}
	return s.accounts.GetByID(ctx, id)
}

// ListAccounts returns all accounts. Requires manage_users.
func (s *Service) ListAccounts(ctx context.Context, actor rbac.Actor) ([]Account, error) {
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapManageUsers, nil) {
		return nil, rbac.ErrPermissionDenied
	}
	return s.accounts.List(ctx)
}

// UpdateAccount applies field changes, including role reassignment.
// Requires manage_users; the change set is audited as an UPDATE diff.
func (s *Service) UpdateAccount(ctx context.Context, actor rbac.Actor, id string, upd AccountUpdate) (*Account, error) {
	if !s.evaluator.Evaluate(ctx, actor, rbac.CapManageUsers, nil) {
		return nil, rbac.ErrPermissionDenied
	}
	acc, err := s.accounts.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	before := snapshotAccount(acc)

	if upd.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*upd.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		acc.Email = email
	}
	if upd.Role != nil {
		role, ok := rbac.ParseRole(string(*upd.Role))
		if !ok {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *upd.Role)
		}
		acc.Role = role
	}
	if upd.Department != nil {
		acc.Department = strings.TrimSpace(*upd.Department)
	}
	if upd.Phone != nil {
		acc.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.IsActive != nil {
		acc.IsActive = *upd.IsActive
	}
	if upd.Password != nil {
		if strings.TrimSpace(*upd.Password) == "" {
			return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
		}
		hash, err := HashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		acc.PasswordHash = hash
	}
	acc.UpdatedAt = s.now()

	changes := audit.Diff(before, snapshotAccount(acc))
	if upd.Password != nil {
		if changes == nil {
			changes = map[string]audit.FieldChange{}
		}
		// Only the fact of the change is recorded, never hash material.
		changes["password"] = audit.FieldChange{Old: "(set)", New: "(changed)"}
	}
	var entry *audit.Entry
	if len(changes) > 0 {
		detail, _ := audit.UpdateDetail(changes)
		e, err := s.prepare(ctx, actor.ID, audit.ActionUpdate, acc.ID, detail)
		if err != nil {
			return nil, err
		}
		entry = &e
	}
	if err := s.accounts.Update(ctx, acc, entry); err != nil {
		return nil, err
	}
	if entry != nil {
		s.recorder.Emit(*entry)
	}
	return acc, nil
}

// DeactivateAccount soft-disables an account. Requires manage_users.
func (s *Service) DeactivateAccount(ctx context.Context, actor rbac.Actor, id string) error {
	inactive := false
	_, err := s.UpdateAccount(ctx, actor, id, AccountUpdate{IsActive: &inactive})
	return err
}

// snapshotAccount flattens auditable account fields. Password hashes never
// appear in audit detail.
func snapshotAccount(a *Account) map[string]any {
	return map[string]any{
		"email":      a.Email,
		"role":       string(a.Role),
		"department": a.Department,
		"phone":      a.Phone,
		"is_active":  a.IsActive,
	}
}
