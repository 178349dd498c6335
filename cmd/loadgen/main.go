package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"apptracker.org/internal/sim"
)

func main() {
	var (
		baseURL  = flag.String("base-url", "http://localhost:8080", "API base URL")
		workers  = flag.Int("workers", 4, "Concurrent worker count")
		duration = flag.Duration("duration", 2*time.Minute, "Duration of the run")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Printf("Launching load run: base=%s workers=%d duration=%s", *baseURL, *workers, *duration)

	token, err := login(ctx, *baseURL)
	if err != nil {
		log.Fatalf("login: %v", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	generator := sim.NewGenerator(time.Now().UnixNano())

	var counterMu sync.Mutex
	var counter sim.Counter
	var failures int64
	var conflicts int64
	var rateLimited int64
	var serverErrors int64

	var wg sync.WaitGroup
	deadline := time.Now().Add(*duration)

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id*9973)))
			for time.Now().Before(deadline) {
				select {
				case <-ctx.Done():
					return
				default:
				}

				counterMu.Lock()
				fixture := generator.NextServer()
				counterMu.Unlock()

				payload := map[string]any{
					"name":             fixture.Name,
					"hostname":         fixture.Hostname,
					"environment_type": fixture.EnvironmentType,
					"operating_system": fixture.OperatingSystem,
					"os_version":       fixture.OSVersion,
					"cpu_cores":        fixture.CPUCores,
					"memory_gb":        fixture.MemoryGB,
					"public":           fixture.Public,
				}
				body, _ := json.Marshal(payload)
				req, err := http.NewRequestWithContext(ctx, http.MethodPost, *baseURL+"/v1/servers", bytes.NewReader(body))
				if err != nil {
					log.Printf("worker %d request: %v", id, err)
					atomic.AddInt64(&failures, 1)
					continue
				}
				req.Header.Set("Authorization", "Bearer "+token)
				req.Header.Set("Content-Type", "application/json")
				resp, err := client.Do(req)
				if err != nil {
					log.Printf("worker %d do: %v", id, err)
					atomic.AddInt64(&failures, 1)
					continue
				}
				resp.Body.Close()
				if resp.StatusCode >= 300 {
					atomic.AddInt64(&failures, 1)
					switch resp.StatusCode {
					case http.StatusConflict:
						atomic.AddInt64(&conflicts, 1)
					case http.StatusTooManyRequests:
						atomic.AddInt64(&rateLimited, 1)
						time.Sleep(250 * time.Millisecond)
					default:
						atomic.AddInt64(&serverErrors, 1)
						log.Printf("worker %d create failed: %s", id, resp.Status)
						time.Sleep(200 * time.Millisecond)
					}
					continue
				}
				counterMu.Lock()
				counter.AddCreate(fixture)
				counterMu.Unlock()
				time.Sleep(time.Duration(50+rnd.Intn(120)) * time.Millisecond)
			}
		}(i)
	}

	wg.Wait()

	log.Printf("Run complete: %d created / %d failed (conflicts=%d, rate_limited=%d, server_errors=%d), %d cores registered",
		counter.Created, failures, conflicts, rateLimited, serverErrors, counter.Cores)
}

func login(ctx context.Context, baseURL string) (string, error) {
	email := os.Getenv("EAT_LOADGEN_EMAIL")
	password := os.Getenv("EAT_LOADGEN_PASSWORD")
	if email == "" || password == "" {
		return "", errors.New("set EAT_LOADGEN_EMAIL and EAT_LOADGEN_PASSWORD")
	}
	body, _ := json.Marshal(map[string]any{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("login endpoint: %s", resp.Status)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("empty token returned")
	}
	return out.Token, nil
}
