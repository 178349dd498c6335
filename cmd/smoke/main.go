package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// End-to-end smoke against a running eat-api: log in, create a server,
// update it, confirm both mutations landed in the audit trail, then soft
// delete and confirm it left the listing.
func main() {
	baseURL := os.Getenv("EAT_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	email := os.Getenv("EAT_SMOKE_EMAIL")
	password := os.Getenv("EAT_SMOKE_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("set EAT_SMOKE_EMAIL and EAT_SMOKE_PASSWORD (systems_manager or above)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := &smokeClient{base: baseURL, http: &http.Client{Timeout: 10 * time.Second}}

	var loginOut struct {
		Token string `json:"token"`
	}
	c.call(ctx, http.MethodPost, "/v1/auth/login", map[string]any{
		"email":    email,
		"password": password,
	}, http.StatusOK, &loginOut)
	c.token = loginOut.Token

	name := fmt.Sprintf("smoke-%06d", rand.New(rand.NewSource(time.Now().UnixNano())).Intn(1_000_000))
	var created struct {
		ID string `json:"id"`
	}
	c.call(ctx, http.MethodPost, "/v1/servers", map[string]any{
		"name":             name,
		"hostname":         name + ".smoke.example.net",
		"environment_type": "virtual",
		"operating_system": "debian",
	}, http.StatusCreated, &created)

	c.call(ctx, http.MethodPut, "/v1/servers/"+created.ID, map[string]any{
		"name":             name,
		"hostname":         name + ".smoke.example.net",
		"environment_type": "virtual",
		"operating_system": "debian",
		"os_version":       "12.5",
	}, http.StatusOK, nil)

	var trail struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	c.call(ctx, http.MethodGet, "/v1/audit?resource_type=server&resource_id="+created.ID, nil, http.StatusOK, &trail)
	if len(trail.Entries) != 2 || trail.Entries[0].Action != "CREATE" || trail.Entries[1].Action != "UPDATE" {
		log.Fatalf("unexpected audit trail: %+v", trail.Entries)
	}

	c.call(ctx, http.MethodDelete, "/v1/servers/"+created.ID, nil, http.StatusNoContent, nil)

	var listed struct {
		Servers []struct {
			ID string `json:"id"`
		} `json:"servers"`
	}
	c.call(ctx, http.MethodGet, "/v1/servers", nil, http.StatusOK, &listed)
	for _, s := range listed.Servers {
		if s.ID == created.ID {
			log.Fatalf("deleted server %s still listed", created.ID)
		}
	}

	fmt.Printf("smoke test passed: server=%s\n", created.ID)
}

type smokeClient struct {
	base  string
	token string
	http  *http.Client
}

func (c *smokeClient) call(ctx context.Context, method, path string, body any, wantStatus int, out any) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			log.Fatalf("%s %s: marshal: %v", method, path, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		log.Fatalf("%s %s: status %d, want %d", method, path, resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			log.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}
