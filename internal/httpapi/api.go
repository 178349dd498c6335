package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"apptracker.org/internal/audit"
	"apptracker.org/internal/auth"
	"apptracker.org/internal/inventory"
	"apptracker.org/internal/obs"
	"apptracker.org/internal/rbac"
	"apptracker.org/internal/stream"
)

// ReadyProbe checks downstream dependencies for /readyz.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the wiring for the HTTP layer.
type Options struct {
	Auth      *auth.Service
	Inventory *inventory.Service
	Grants    rbac.GrantStore
	Evaluator *rbac.Evaluator
	Recorder  *audit.Recorder
	Stream    *stream.Stream
	Ready     ReadyProbe
	Version   string

	MaxBodyBytes    int64
	RateLimitPerSec int
	RateLimitBurst  int
}

// API is the HTTP layer over the tracker services.
type API struct {
	mux       *http.ServeMux
	auth      *auth.Service
	inventory *inventory.Service
	grants    rbac.GrantStore
	evaluator *rbac.Evaluator
	recorder  *audit.Recorder
	stream    *stream.Stream
	ready     ReadyProbe
	version   string

	maxBodyBytes int64
	ratePerSec   int
	rateBurst    int
}

func New(opts Options) *API {
	a := &API{
		mux:          http.NewServeMux(),
		auth:         opts.Auth,
		inventory:    opts.Inventory,
		grants:       opts.Grants,
		evaluator:    opts.Evaluator,
		recorder:     opts.Recorder,
		stream:       opts.Stream,
		ready:        opts.Ready,
		version:      opts.Version,
		maxBodyBytes: opts.MaxBodyBytes,
		ratePerSec:   opts.RateLimitPerSec,
		rateBurst:    opts.RateLimitBurst,
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 20
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 40
	}
	if a.evaluator == nil {
		a.evaluator = rbac.NewEvaluator(a.grants)
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// auth + users
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	// tracked resources
	a.mux.HandleFunc("/v1/platforms", a.handlePlatformsCollection)
	a.mux.HandleFunc("/v1/platforms/", a.handlePlatformResource)
	a.mux.HandleFunc("/v1/servers", a.handleServersCollection)
	a.mux.HandleFunc("/v1/servers/", a.handleServerResource)
	a.mux.HandleFunc("/v1/datastores", a.handleDataStoresCollection)
	a.mux.HandleFunc("/v1/datastores/", a.handleDataStoreResource)
	a.mux.HandleFunc("/v1/applications", a.handleApplicationsCollection)
	a.mux.HandleFunc("/v1/applications/", a.handleApplicationResource)

	// grants + audit trail
	a.mux.HandleFunc("/v1/grants", a.handleGrants)
	a.mux.HandleFunc("/v1/audit", a.handleAuditQuery)
	a.mux.HandleFunc("/v1/audit/stream", a.AuditStream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware-wrapped handler.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- health handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "eat-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "eat-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
