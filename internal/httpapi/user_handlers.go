package httpapi

import (
	"net/http"

	"apptracker.org/internal/auth"
	"apptracker.org/internal/rbac"
)

type createUserRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

type updateUserRequest struct {
	Email      *string `json:"email,omitempty"`
	Password   *string `json:"password,omitempty"`
	Role       *string `json:"role,omitempty"`
	Department *string `json:"department,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		accounts, err := a.auth.ListAccounts(r.Context(), p.Actor())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": accounts})
	case http.MethodPost:
		var req createUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		role, ok := rbac.ParseRole(req.Role)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "unknown role")
			return
		}
		acc, err := a.auth.CreateAccount(r.Context(), p.Actor(), auth.NewAccount{
			Email:      req.Email,
			Password:   req.Password,
			Role:       role,
			Department: req.Department,
			Phone:      req.Phone,
		})
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/users/"+acc.ID)
		writeJSON(w, http.StatusCreated, acc)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := resourceID(w, r, "/v1/users/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		acc, err := a.auth.GetAccount(r.Context(), p.Actor(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, acc)
	case http.MethodPut:
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		upd := auth.AccountUpdate{
			Email:      req.Email,
			Password:   req.Password,
			Department: req.Department,
			Phone:      req.Phone,
			IsActive:   req.IsActive,
		}
		if req.Role != nil {
			role, ok := rbac.ParseRole(*req.Role)
			if !ok {
				writeError(w, r, http.StatusBadRequest, "unknown role")
				return
			}
			upd.Role = &role
		}
		acc, err := a.auth.UpdateAccount(r.Context(), p.Actor(), id, upd)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, acc)
	case http.MethodDelete:
		if err := a.auth.DeactivateAccount(r.Context(), p.Actor(), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
