package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"apptracker.org/internal/audit"
	"apptracker.org/internal/rbac"
)

func (a *API) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !a.evaluator.Evaluate(r.Context(), p.Actor(), rbac.CapViewSensitiveData, nil) {
		writeError(w, r, http.StatusForbidden, "not authorized")
		return
	}

	f, err := auditFilterFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := a.recorder.Query(r.Context(), f)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func auditFilterFromQuery(r *http.Request) (audit.Filter, error) {
	q := r.URL.Query()
	f := audit.Filter{
		ActorID:      strings.TrimSpace(q.Get("actor")),
		ResourceType: strings.TrimSpace(q.Get("resource_type")),
		ResourceID:   strings.TrimSpace(q.Get("resource_id")),
	}

	if raw := q.Get("action"); raw != "" {
		action, ok := audit.ParseAction(raw)
		if !ok {
			return f, errInvalidQuery("action")
		}
		f.Action = action
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, errInvalidQuery("from")
		}
		f.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, errInvalidQuery("to")
		}
		f.To = t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return f, errInvalidQuery("limit")
		}
		f.Limit = n
	}
	return f, nil
}

type errInvalidQuery string

func (e errInvalidQuery) Error() string {
	return "invalid " + string(e) + " parameter"
}

// AuditStream handles Server-Sent Events for the live audit trail.
func (a *API) AuditStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if !a.evaluator.Evaluate(r.Context(), p.Actor(), rbac.CapViewSensitiveData, nil) {
		writeError(w, r, http.StatusForbidden, "not authorized")
		return
	}
	if a.stream == nil {
		writeError(w, r, http.StatusServiceUnavailable, "streaming disabled")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch := a.stream.Subscribe(ctx)

	// Initial comment establishes the stream for the client.
	_, _ = w.Write([]byte(": stream started\n\n"))
	flusher.Flush()

	for entry := range ch {
		payload, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}
}
