package rbac

import "context"

// Actor identifies the requesting user and their resolved role.
type Actor struct {
	ID   string
	Role Role
}

// Target describes the record a capability check applies to.
type Target struct {
	Type    string
	ID      string
	OwnerID string
	Public  bool
}

// Evaluator answers allow/deny questions over the role table and the grant
// store. It is a pure decision component: it never mutates state, never
// panics on unknown input, and fails closed — a missing role, an expired
// grant, or a grant-store error all evaluate to deny.
type Evaluator struct {
	grants GrantChecker
}

// NewEvaluator builds an evaluator. grants may be nil, in which case only
// role-derived access applies.
func NewEvaluator(grants GrantChecker) *Evaluator {
	return &Evaluator{grants: grants}
}

// Evaluate reports whether the actor may exercise cap, optionally against
// target. With a nil target the answer comes straight from the role table.
func (e *Evaluator) Evaluate(ctx context.Context, actor Actor, cap Capability, target *Target) bool {
	if !actor.Role.Known() {
		return false
	}
	if target == nil {
		return actor.Role.Has(cap)
	}

	switch cap {
	case CapEditRecords:
		return e.canEdit(ctx, actor, target)
	case CapViewRecords:
		return e.canView(ctx, actor, target)
	case CapDeleteRecords:
		// Deletion is never creator- or grant-derived.
		return actor.Role.Has(CapDeleteRecords)
	default:
		return actor.Role.Has(cap)
	}
}

func (e *Evaluator) canEdit(ctx context.Context, actor Actor, target *Target) bool {
	switch actor.Role {
	case RoleSystemsManager, RoleApplicationAdmin:
		return true
	case RoleTechnician:
		if target.OwnerID != "" && target.OwnerID == actor.ID {
			return true
		}
		return e.hasGrant(ctx, actor.ID, target, GrantEdit)
	default:
		return false
	}
}

func (e *Evaluator) canView(ctx context.Context, actor Actor, target *Target) bool {
	switch actor.Role {
	case RoleSystemsManager, RoleApplicationAdmin:
		return true
	case RoleTechnician:
		if target.Public {
			return true
		}
		if target.OwnerID != "" && target.OwnerID == actor.ID {
			return true
		}
		// An edit grant subsumes view access.
		return e.hasGrant(ctx, actor.ID, target, GrantView) ||
			e.hasGrant(ctx, actor.ID, target, GrantEdit)
	case RoleBusinessUser, RoleBusinessManager:
		if target.Public {
			return true
		}
		return e.hasGrant(ctx, actor.ID, target, GrantView) ||
			e.hasGrant(ctx, actor.ID, target, GrantEdit)
	default:
		return false
	}
}

func (e *Evaluator) hasGrant(ctx context.Context, userID string, target *Target, kind GrantKind) bool {
	if e.grants == nil {
		return false
	}
	ok, err := e.grants.HasGrant(ctx, userID, target.Type, target.ID, kind)
	if err != nil {
		return false
	}
	return ok
}
