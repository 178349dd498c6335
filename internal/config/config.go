package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings for the API server. Values come from the
// environment, optionally seeded from a .env file in the working directory.
type Config struct {
	HTTPAddr        string
	PostgresDSN     string
	AuthSecret      string
	TokenTTL        time.Duration
	RateLimitPerSec int
	RateLimitBurst  int
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

const envPrefix = "EAT_"

// Load reads configuration from the environment. A missing .env file is not
// an error; explicit environment variables always win over .env contents.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		PostgresDSN:     getenv("PG_DSN", ""),
		AuthSecret:      getenv("AUTH_SECRET", ""),
		TokenTTL:        15 * time.Minute,
		RateLimitPerSec: 20,
		RateLimitBurst:  40,
		MaxBodyBytes:    1 << 20,
		ShutdownTimeout: 10 * time.Second,
	}

	if raw := getenv("TOKEN_TTL", ""); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return Config{}, fmt.Errorf("config: invalid %sTOKEN_TTL %q", envPrefix, raw)
		}
		cfg.TokenTTL = ttl
	}
	if raw := getenv("RATE_LIMIT_PER_SEC", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: invalid %sRATE_LIMIT_PER_SEC %q", envPrefix, raw)
		}
		cfg.RateLimitPerSec = n
	}
	if raw := getenv("RATE_LIMIT_BURST", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: invalid %sRATE_LIMIT_BURST %q", envPrefix, raw)
		}
		cfg.RateLimitBurst = n
	}
	if raw := getenv("MAX_BODY_BYTES", ""); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: invalid %sMAX_BODY_BYTES %q", envPrefix, raw)
		}
		cfg.MaxBodyBytes = n
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
		return v
	}
	return def
}
