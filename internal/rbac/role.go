package rbac

import "strings"

// Role is one of five ordinal privilege tiers assigned to a user account.
type Role string

const (
	RoleBusinessUser     Role = "business_user"
	RoleBusinessManager  Role = "business_manager"
	RoleTechnician       Role = "technician"
	RoleSystemsManager   Role = "systems_manager"
	RoleApplicationAdmin Role = "application_admin"
)

// Capability is a named permission associated with a role.
type Capability string

const (
	CapViewRecords       Capability = "view_records"
	CapEditRecords       Capability = "edit_records"
	CapCreateRecords     Capability = "create_records"
	CapDeleteRecords     Capability = "delete_records"
	CapViewSystemNotes   Capability = "view_system_notes"
	CapViewSensitiveData Capability = "view_sensitive_data"
	CapManageGrants      Capability = "manage_grants"
	CapManageUsers       Capability = "manage_users"
)

type roleSpec struct {
	level int
	caps  map[Capability]bool
}

// roleTable is the static role hierarchy. Each tier carries every capability
// of the tiers below it, so a level comparison never contradicts a capability
// lookup.
var roleTable = map[Role]roleSpec{
	RoleBusinessUser: {level: 1, caps: capSet(
		CapViewRecords,
	)},
	RoleBusinessManager: {level: 2, caps: capSet(
		CapViewRecords,
	)},
	RoleTechnician: {level: 3, caps: capSet(
		CapViewRecords, CapEditRecords,
	)},
	RoleSystemsManager: {level: 4, caps: capSet(
		CapViewRecords, CapEditRecords, CapCreateRecords, CapDeleteRecords,
		CapViewSystemNotes, CapViewSensitiveData, CapManageGrants,
	)},
	RoleApplicationAdmin: {level: 5, caps: capSet(
		CapViewRecords, CapEditRecords, CapCreateRecords, CapDeleteRecords,
		CapViewSystemNotes, CapViewSensitiveData, CapManageGrants, CapManageUsers,
	)},
}

func capSet(caps ...Capability) map[Capability]bool {
	set := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// Roles lists all known roles in ascending level order.
func Roles() []Role {
	return []Role{
		RoleBusinessUser,
		RoleBusinessManager,
		RoleTechnician,
		RoleSystemsManager,
		RoleApplicationAdmin,
	}
}

// ParseRole normalizes a role string. ok is false for unknown roles.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	_, ok := roleTable[role]
	return role, ok
}

// Known reports whether the role exists in the hierarchy.
func (r Role) Known() bool {
	_, ok := roleTable[r]
	return ok
}

// Level returns the ordinal level of the role, 0 for unknown roles.
func (r Role) Level() int {
	spec, ok := roleTable[r]
	if !ok {
		return 0
	}
	return spec.level
}

// Has reports whether the role's capability set grants cap. Unknown roles
// hold no capabilities.
func (r Role) Has(cap Capability) bool {
	spec, ok := roleTable[r]
	if !ok {
		return false
	}
	return spec.caps[cap]
}

// Capabilities returns the capability set of the role. The returned map is a
// copy; callers may mutate it freely.
func (r Role) Capabilities() map[Capability]bool {
	spec, ok := roleTable[r]
	if !ok {
		return map[Capability]bool{}
	}
	out := make(map[Capability]bool, len(spec.caps))
	for c := range spec.caps {
		out[c] = true
	}
	return out
}
