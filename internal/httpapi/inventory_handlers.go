package httpapi

import (
	"net/http"

	"apptracker.org/internal/inventory"
)

// The four tracked resource types share the same collection/resource shape.
// Handlers stay per-type so the decoded input structs keep their static
// types all the way down to the service layer.

func (a *API) handlePlatformsCollection(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := a.inventory.ListPlatforms(r.Context(), p.Actor())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"platforms": items})
	case http.MethodPost:
		var in inventory.PlatformInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := a.inventory.CreatePlatform(r.Context(), p.Actor(), in)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/platforms/"+rec.ID)
		writeJSON(w, http.StatusCreated, rec)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePlatformResource(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := resourceID(w, r, "/v1/platforms/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := a.inventory.GetPlatform(r.Context(), p.Actor(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodPut:
		var in inventory.PlatformInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := a.inventory.UpdatePlatform(r.Context(), p.Actor(), id, in)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if err := a.inventory.DeletePlatform(r.Context(), p.Actor(), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleServersCollection(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := a.inventory.ListServers(r.Context(), p.Actor())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"servers": items})
	case http.MethodPost:
		var in inventory.ServerInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := a.inventory.CreateServer(r.Context(), p.Actor(), in)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/servers/"+rec.ID)
		writeJSON(w, http.StatusCreated, rec)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleServerResource(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := resourceID(w, r, "/v1/servers/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := a.inventory.GetServer(r.Context(), p.Actor(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodPut:
		var in inventory.ServerInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := a.inventory.UpdateServer(r.Context(), p.Actor(), id, in)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if err := a.inventory.DeleteServer(r.Context(), p.Actor(), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleDataStoresCollection(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := a.inventory.ListDataStores(r.Context(), p.Actor())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"datastores": items})
	case http.MethodPost:
		var in inventory.DataStoreInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := a.inventory.CreateDataStore(r.Context(), p.Actor(), in)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/datastores/"+rec.ID)
		writeJSON(w, http.StatusCreated, rec)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleDataStoreResource(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := resourceID(w, r, "/v1/datastores/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := a.inventory.GetDataStore(r.Context(), p.Actor(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodPut:
		var in inventory.DataStoreInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := a.inventory.UpdateDataStore(r.Context(), p.Actor(), id, in)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if err := a.inventory.DeleteDataStore(r.Context(), p.Actor(), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleApplicationsCollection(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := a.inventory.ListApplications(r.Context(), p.Actor())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"applications": items})
	case http.MethodPost:
		var in inventory.ApplicationInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := a.inventory.CreateApplication(r.Context(), p.Actor(), in)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		w.Header().Set("Location", "/v1/applications/"+rec.ID)
		writeJSON(w, http.StatusCreated, rec)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleApplicationResource(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := resourceID(w, r, "/v1/applications/")
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := a.inventory.GetApplication(r.Context(), p.Actor(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodPut:
		var in inventory.ApplicationInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rec, err := a.inventory.UpdateApplication(r.Context(), p.Actor(), id, in)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if err := a.inventory.DeleteApplication(r.Context(), p.Actor(), id); err != nil {
			handleDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}
