package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"apptracker.org/internal/audit"
	"apptracker.org/internal/auth"
	"apptracker.org/internal/inventory"
	"apptracker.org/internal/rbac"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func testServer() *inventory.Server {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &inventory.Server{
		Record: inventory.Record{
			ID:        "01SRV",
			Name:      "web-01",
			IsActive:  true,
			CreatedBy: "acc-sm",
			UpdatedBy: "acc-sm",
			CreatedAt: now,
			UpdatedAt: now,
		},
		Hostname:        "web-01.internal",
		EnvironmentType: "virtual",
	}
}

func testEntry(action audit.Action) *audit.Entry {
	return &audit.Entry{
		ID:           "01ENTRY",
		OccurredAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ActorID:      "acc-sm",
		Action:       action,
		ResourceType: inventory.TypeServer,
		ResourceID:   "01SRV",
	}
}

func TestCreateServerCommitsMutationWithAuditEntry(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into servers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into audit_entries").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.CreateServer(context.Background(), testServer(), testEntry(audit.ActionCreate)); err != nil {
		t.Fatalf("CreateServer: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFailedAuditInsertRollsBackMutation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("update servers").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into audit_entries").WillReturnError(errors.New("relation is read only"))
	mock.ExpectRollback()

	err := store.UpdateServer(context.Background(), testServer(), testEntry(audit.ActionUpdate))
	if !errors.Is(err, audit.ErrWriteFailed) {
		t.Fatalf("expected audit write failure, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUniqueViolationMapsToConflict(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into servers").WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "servers_hostname_key"})
	mock.ExpectRollback()

	err := store.CreateServer(context.Background(), testServer(), testEntry(audit.ActionCreate))
	if !errors.Is(err, inventory.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestForeignKeyViolationMapsToInvalidInput(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into servers").WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "servers_platform_id_fkey"})
	mock.ExpectRollback()

	err := store.CreateServer(context.Background(), testServer(), testEntry(audit.ActionCreate))
	if !errors.Is(err, inventory.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateMissingServerIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("update servers").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.UpdateServer(context.Background(), testServer(), testEntry(audit.ActionUpdate))
	if !errors.Is(err, inventory.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetAccountByIDNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select .* from accounts where id").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected auth.ErrNotFound, got %v", err)
	}
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into accounts").WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	mock.ExpectRollback()

	now := time.Now().UTC()
	err := store.Create(context.Background(), &auth.Account{
		ID: "acc-1", Email: "dup@example.com", PasswordHash: "x",
		Role: rbac.RoleBusinessUser, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}, testAccountEntry(audit.ActionCreate))
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected auth.ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func testAccountEntry(action audit.Action) *audit.Entry {
	return &audit.Entry{
		ID:           "01AENTRY",
		OccurredAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ActorID:      "acc-admin",
		Action:       action,
		ResourceType: "account",
		ResourceID:   "acc-1",
	}
}

func TestCreateAccountCommitsMutationWithAuditEntry(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into audit_entries").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Now().UTC()
	err := store.Create(context.Background(), &auth.Account{
		ID: "acc-1", Email: "new@example.com", PasswordHash: "x",
		Role: rbac.RoleBusinessUser, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}, testAccountEntry(audit.ActionCreate))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFailedAuditInsertRollsBackAccountUpdate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("update accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into audit_entries").WillReturnError(errors.New("relation is read only"))
	mock.ExpectRollback()

	now := time.Now().UTC()
	err := store.Update(context.Background(), &auth.Account{
		ID: "acc-1", Email: "same@example.com", PasswordHash: "x",
		Role: rbac.RoleSystemsManager, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}, testAccountEntry(audit.ActionUpdate))
	if !errors.Is(err, audit.ErrWriteFailed) {
		t.Fatalf("expected audit write failure, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHasGrantChecksExpiryInQuery(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select exists").
		WithArgs("acc-1", "server", "01SRV", "edit").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.HasGrant(context.Background(), "acc-1", "server", "01SRV", rbac.GrantEdit)
	if err != nil {
		t.Fatalf("HasGrant: %v", err)
	}
	if !ok {
		t.Fatal("expected grant to match")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevokeMissingGrantIsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from grants").
		WithArgs("acc-1", "server", "01SRV", "view").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Revoke(context.Background(), "acc-1", "server", "01SRV", rbac.GrantView)
	if !errors.Is(err, rbac.ErrNotFound) {
		t.Fatalf("expected rbac.ErrNotFound, got %v", err)
	}
}

func TestAuditQueryAppliesFilters(t *testing.T) {
	store, mock := newMockStore(t)

	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "occurred_at", "actor_id", "action", "resource_type", "resource_id", "detail", "source_addr", "user_agent",
	}).AddRow("01E", occurred, "acc-sm", "UPDATE", "server", "01SRV", []byte(`{"name":{"old":"a","new":"b"}}`), nil, nil)

	mock.ExpectQuery("select .* from audit_entries where actor_id = .* and resource_id = .* order by seq asc").
		WithArgs("acc-sm", "01SRV", 10).
		WillReturnRows(rows)

	entries, err := store.Query(context.Background(), audit.Filter{ActorID: "acc-sm", ResourceID: "01SRV", Limit: 10})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != audit.ActionUpdate || entries[0].ActorID != "acc-sm" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPurgeBeforeReportsRemovedRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from audit_entries where occurred_at").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := store.PurgeBefore(context.Background(), time.Now().UTC().AddDate(-1, 0, 0))
	if err != nil {
		t.Fatalf("PurgeBefore: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 purged rows, got %d", n)
	}
}

func TestAppendRejectsInvalidEntry(t *testing.T) {
	store, _ := newMockStore(t)

	err := store.Append(context.Background(), &audit.Entry{Action: "SHRED", ResourceType: "server"})
	if !errors.Is(err, audit.ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}
