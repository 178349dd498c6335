package rbac

import "testing"

type noteCarrier struct {
	Name  string
	Notes string
}

func (c *noteCarrier) RedactRestricted(placeholder string) {
	c.Notes = placeholder
}

func TestRedactByRole(t *testing.T) {
	cases := []struct {
		role Role
		want string
	}{
		{RoleBusinessUser, RestrictedPlaceholder},
		{RoleBusinessManager, RestrictedPlaceholder},
		{RoleTechnician, RestrictedPlaceholder},
		{RoleSystemsManager, "secret"},
		{RoleApplicationAdmin, "secret"},
		{Role("unknown"), RestrictedPlaceholder},
	}
	for _, tc := range cases {
		rec := &noteCarrier{Name: "db-01", Notes: "secret"}
		Redact(tc.role, rec)
		if rec.Notes != tc.want {
			t.Fatalf("role %s: notes=%q, want %q", tc.role, rec.Notes, tc.want)
		}
		if rec.Name != "db-01" {
			t.Fatalf("role %s: non-restricted field changed", tc.role)
		}
	}
}

func TestRedactIsIdempotent(t *testing.T) {
	rec := &noteCarrier{Notes: "secret"}
	Redact(RoleBusinessUser, rec)
	once := rec.Notes
	Redact(RoleBusinessUser, rec)
	if rec.Notes != once {
		t.Fatalf("second redaction changed output: %q vs %q", rec.Notes, once)
	}
}

func TestRedactNilRecord(t *testing.T) {
	Redact(RoleBusinessUser, nil) // must not panic
}
