package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"apptracker.org/internal/audit"
	"apptracker.org/internal/auth"
	"apptracker.org/internal/config"
	"apptracker.org/internal/httpapi"
	"apptracker.org/internal/inventory"
	"apptracker.org/internal/obs"
	"apptracker.org/internal/rbac"
	"apptracker.org/internal/store/pg"
	"apptracker.org/internal/stream"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("EAT_BUILD_COMMIT"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var (
		accounts   auth.AccountStore
		invStore   inventory.Store
		trail      audit.Store
		grants     rbac.GrantStore
		readyDB    httpapi.ReadyProbe
		closeStore func()
	)
	if cfg.PostgresDSN != "" {
		store, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		accounts = store
		invStore = store
		trail = store
		grants = store
		readyDB = httpapi.ReadyProbe{DB: store.DB()}
		closeStore = func() { _ = store.Close() }
	} else {
		// In-memory stores keep local development and demos self-contained.
		log.Println("EAT_PG_DSN is not set, using in-memory stores")
		mem := audit.NewMemory()
		accounts = auth.NewMemoryAccounts(mem)
		invStore = inventory.NewMemoryStore(mem)
		trail = mem
		grants = rbac.NewMemoryGrants()
		closeStore = func() {}
	}

	strm := stream.New()
	recorder := audit.NewRecorder(trail, audit.WithPublisher(strm.Publish))
	evaluator := rbac.NewEvaluator(grants)

	authSvc, err := auth.NewService(accounts, recorder, evaluator, auth.WithTokenTTL(cfg.TokenTTL))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	invSvc, err := inventory.NewService(invStore, recorder, evaluator)
	if err != nil {
		log.Fatalf("inventory service: %v", err)
	}

	api := httpapi.New(httpapi.Options{
		Auth:            authSvc,
		Inventory:       invSvc,
		Grants:          grants,
		Evaluator:       evaluator,
		Recorder:        recorder,
		Stream:          strm,
		Ready:           readyDB,
		Version:         version,
		MaxBodyBytes:    cfg.MaxBodyBytes,
		RateLimitPerSec: cfg.RateLimitPerSec,
		RateLimitBurst:  cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting eat-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	closeStore()
	log.Println("Stopped")
}
