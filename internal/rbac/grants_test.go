package rbac

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGrantRevokeRoundTrip(t *testing.T) {
	store := NewMemoryGrants()
	ctx := context.Background()

	if err := store.Grant(ctx, Grant{
		UserID: "user-x", ResourceType: "application", ResourceID: "7", Kind: GrantView,
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	ok, err := store.HasGrant(ctx, "user-x", "application", "7", GrantView)
	if err != nil || !ok {
		t.Fatalf("HasGrant=(%v,%v), want (true,nil)", ok, err)
	}

	if err := store.Revoke(ctx, "user-x", "application", "7", GrantView); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = store.HasGrant(ctx, "user-x", "application", "7", GrantView)
	if err != nil || ok {
		t.Fatalf("HasGrant after revoke=(%v,%v), want (false,nil)", ok, err)
	}

	if err := store.Revoke(ctx, "user-x", "application", "7", GrantView); !errors.Is(err, ErrNotFound) {
		t.Fatalf("revoking absent grant: got %v, want ErrNotFound", err)
	}
}

func TestGrantIsIdempotent(t *testing.T) {
	store := NewMemoryGrants()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := store.Grant(ctx, Grant{
			UserID: "u", ResourceType: "server", ResourceID: "1", Kind: GrantEdit,
		}); err != nil {
			t.Fatalf("grant #%d: %v", i, err)
		}
	}
	grants, err := store.ListByUser(ctx, "u")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("expected one effective grant, got %d", len(grants))
	}
}

func TestGrantLazyExpiry(t *testing.T) {
	store := NewMemoryGrants()
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Second)
	if err := store.Grant(ctx, Grant{
		UserID: "u", ResourceType: "server", ResourceID: "1", Kind: GrantEdit, ExpiresAt: &past,
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	ok, err := store.HasGrant(ctx, "u", "server", "1", GrantEdit)
	if err != nil {
		t.Fatalf("HasGrant: %v", err)
	}
	if ok {
		t.Fatal("expired grant must read as absent without any cleanup pass")
	}
}

func TestGrantValidation(t *testing.T) {
	store := NewMemoryGrants()
	ctx := context.Background()
	bad := []Grant{
		{ResourceType: "server", ResourceID: "1", Kind: GrantEdit},
		{UserID: "u", ResourceID: "1", Kind: GrantEdit},
		{UserID: "u", ResourceType: "server", Kind: GrantEdit},
		{UserID: "u", ResourceType: "server", ResourceID: "1", Kind: GrantKind("admin")},
	}
	for i, g := range bad {
		if err := store.Grant(ctx, g); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("case %d: got %v, want ErrInvalidInput", i, err)
		}
	}
}
