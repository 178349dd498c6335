package httpapi

import (
	"net/http"
	"strings"
	"time"

	"apptracker.org/internal/audit"
	"apptracker.org/internal/inventory"
	"apptracker.org/internal/rbac"
)

type grantRequest struct {
	UserID       string     `json:"user_id"`
	ResourceType string     `json:"resource_type"`
	ResourceID   string     `json:"resource_id"`
	Kind         string     `json:"kind"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

var grantResourceTypes = map[string]bool{
	inventory.TypeCloudPlatform: true,
	inventory.TypeServer:        true,
	inventory.TypeDataStore:     true,
	inventory.TypeApplication:   true,
}

func (a *API) handleGrants(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.listGrants(w, r, p.Actor())
	case http.MethodPost:
		a.createGrant(w, r, p.Actor())
	case http.MethodDelete:
		a.revokeGrant(w, r, p.Actor())
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (a *API) listGrants(w http.ResponseWriter, r *http.Request, actor rbac.Actor) {
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		userID = actor.ID
	}
	// Anyone may list their own grants; listing others needs manage_grants.
	if userID != actor.ID && !a.evaluator.Evaluate(r.Context(), actor, rbac.CapManageGrants, nil) {
		writeError(w, r, http.StatusForbidden, "not authorized")
		return
	}
	grants, err := a.grants.ListByUser(r.Context(), userID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"grants": grants})
}

func (a *API) createGrant(w http.ResponseWriter, r *http.Request, actor rbac.Actor) {
	if !a.evaluator.Evaluate(r.Context(), actor, rbac.CapManageGrants, nil) {
		writeError(w, r, http.StatusForbidden, "not authorized")
		return
	}

	var req grantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	kind, ok := rbac.ParseGrantKind(req.Kind)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "kind must be view or edit")
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.ResourceID) == "" {
		writeError(w, r, http.StatusBadRequest, "user_id and resource_id are required")
		return
	}
	if !grantResourceTypes[req.ResourceType] {
		writeError(w, r, http.StatusBadRequest, "unknown resource type")
		return
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
		writeError(w, r, http.StatusBadRequest, "expires_at must be in the future")
		return
	}

	g := rbac.Grant{
		UserID:       req.UserID,
		ResourceType: req.ResourceType,
		ResourceID:   req.ResourceID,
		Kind:         kind,
		GrantedBy:    actor.ID,
		GrantedAt:    time.Now().UTC(),
		ExpiresAt:    req.ExpiresAt,
	}
	if err := a.grants.Grant(r.Context(), g); err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.auditGrant(r, actor, audit.ActionCreate, g)
	writeJSON(w, http.StatusCreated, g)
}

func (a *API) revokeGrant(w http.ResponseWriter, r *http.Request, actor rbac.Actor) {
	if !a.evaluator.Evaluate(r.Context(), actor, rbac.CapManageGrants, nil) {
		writeError(w, r, http.StatusForbidden, "not authorized")
		return
	}

	q := r.URL.Query()
	userID := strings.TrimSpace(q.Get("user"))
	resourceType := strings.TrimSpace(q.Get("resource_type"))
	resourceID := strings.TrimSpace(q.Get("resource_id"))
	kind, ok := rbac.ParseGrantKind(q.Get("kind"))
	if userID == "" || resourceType == "" || resourceID == "" || !ok {
		writeError(w, r, http.StatusBadRequest, "user, resource_type, resource_id and kind are required")
		return
	}

	if err := a.grants.Revoke(r.Context(), userID, resourceType, resourceID, kind); err != nil {
		handleDomainError(w, r, err)
		return
	}

	a.auditGrant(r, actor, audit.ActionDelete, rbac.Grant{
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Kind:         kind,
	})
	w.WriteHeader(http.StatusNoContent)
}

// auditGrant records grant changes best-effort; the grant itself has
// already been applied by the store.
func (a *API) auditGrant(r *http.Request, actor rbac.Actor, action audit.Action, g rbac.Grant) {
	if a.recorder == nil {
		return
	}
	detail, err := audit.CreateDetail(map[string]any{
		"user_id":       g.UserID,
		"resource_type": g.ResourceType,
		"resource_id":   g.ResourceID,
		"kind":          string(g.Kind),
	})
	if err != nil {
		return
	}
	meta := audit.MetaFromContext(r.Context())
	_ = a.recorder.Record(r.Context(), audit.Entry{
		ActorID:      actor.ID,
		Action:       action,
		ResourceType: "grant",
		ResourceID:   g.ResourceID,
		Detail:       detail,
		SourceAddr:   meta.SourceAddr,
		UserAgent:    meta.UserAgent,
	})
}
