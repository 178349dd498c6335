package rbac

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		raw  string
		want Role
		ok   bool
	}{
		{"technician", RoleTechnician, true},
		{"  Systems_Manager ", RoleSystemsManager, true},
		{"APPLICATION_ADMIN", RoleApplicationAdmin, true},
		{"business_user", RoleBusinessUser, true},
		{"superuser", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		role, ok := ParseRole(tc.raw)
		if ok != tc.ok {
			t.Fatalf("ParseRole(%q) ok=%v, want %v", tc.raw, ok, tc.ok)
		}
		if ok && role != tc.want {
			t.Fatalf("ParseRole(%q)=%q, want %q", tc.raw, role, tc.want)
		}
	}
}

func TestRoleLevelsAreOrdered(t *testing.T) {
	roles := Roles()
	for i := 1; i < len(roles); i++ {
		if roles[i].Level() <= roles[i-1].Level() {
			t.Fatalf("role %s level %d not above %s level %d",
				roles[i], roles[i].Level(), roles[i-1], roles[i-1].Level())
		}
	}
	if Role("unknown").Level() != 0 {
		t.Fatal("unknown role must have level 0")
	}
}

// Hierarchy inheritance: every capability of a lower tier is held by every
// higher tier, with no exceptions.
func TestCapabilityMonotonicity(t *testing.T) {
	roles := Roles()
	for i, lower := range roles {
		for _, higher := range roles[i+1:] {
			for cap := range lower.Capabilities() {
				if !higher.Has(cap) {
					t.Fatalf("%s has %s but higher role %s does not", lower, cap, higher)
				}
			}
		}
	}
}

func TestUnknownRoleHasNoCapabilities(t *testing.T) {
	caps := []Capability{
		CapViewRecords, CapEditRecords, CapCreateRecords, CapDeleteRecords,
		CapViewSystemNotes, CapViewSensitiveData, CapManageGrants, CapManageUsers,
	}
	for _, cap := range caps {
		if Role("intruder").Has(cap) {
			t.Fatalf("unknown role granted %s", cap)
		}
	}
	if len(Role("intruder").Capabilities()) != 0 {
		t.Fatal("unknown role capability set must be empty")
	}
}
