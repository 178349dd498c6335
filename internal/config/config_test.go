package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected default addr: %s", cfg.HTTPAddr)
	}
	if cfg.TokenTTL != 15*time.Minute {
		t.Fatalf("unexpected default token ttl: %s", cfg.TokenTTL)
	}
	if cfg.RateLimitPerSec != 20 || cfg.RateLimitBurst != 40 {
		t.Fatalf("unexpected rate limit defaults: %d/%d", cfg.RateLimitPerSec, cfg.RateLimitBurst)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EAT_HTTP_ADDR", ":9090")
	t.Setenv("EAT_TOKEN_TTL", "1h")
	t.Setenv("EAT_RATE_LIMIT_PER_SEC", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("override not applied: %s", cfg.HTTPAddr)
	}
	if cfg.TokenTTL != time.Hour {
		t.Fatalf("token ttl override not applied: %s", cfg.TokenTTL)
	}
	if cfg.RateLimitPerSec != 5 {
		t.Fatalf("rate limit override not applied: %d", cfg.RateLimitPerSec)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"EAT_TOKEN_TTL":          "soon",
		"EAT_RATE_LIMIT_PER_SEC": "-1",
		"EAT_MAX_BODY_BYTES":     "zero",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}
