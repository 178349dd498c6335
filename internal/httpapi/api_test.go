package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"apptracker.org/internal/audit"
	"apptracker.org/internal/auth"
	"apptracker.org/internal/inventory"
	"apptracker.org/internal/rbac"
	"apptracker.org/internal/stream"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T

	grants rbac.GrantStore
	trail  *audit.Memory
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("EAT_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()

	trail := audit.NewMemory()
	strm := stream.New()
	recorder := audit.NewRecorder(trail, audit.WithPublisher(strm.Publish))
	grants := rbac.NewMemoryGrants()
	evaluator := rbac.NewEvaluator(grants)

	accounts := auth.NewMemoryAccounts(trail)
	authSvc, err := auth.NewService(accounts, recorder, evaluator)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	invSvc, err := inventory.NewService(inventory.NewMemoryStore(trail), recorder, evaluator)
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}

	hash, err := auth.HashPassword("password1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	for _, role := range []rbac.Role{
		rbac.RoleBusinessUser,
		rbac.RoleBusinessManager,
		rbac.RoleTechnician,
		rbac.RoleSystemsManager,
		rbac.RoleApplicationAdmin,
	} {
		acc := &auth.Account{
			ID:           "acc-" + string(role),
			Email:        string(role) + "@example.com",
			PasswordHash: hash,
			Role:         role,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := accounts.Create(context.Background(), acc, nil); err != nil {
			t.Fatalf("seed account %s: %v", role, err)
		}
	}

	api := New(Options{
		Auth:      authSvc,
		Inventory: invSvc,
		Grants:    grants,
		Evaluator: evaluator,
		Recorder:  recorder,
		Stream:    strm,
		Version:   "test",
	})
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
		grants:  grants,
		trail:   trail,
	}
}

func (c *apiClient) do(method, path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) login(role rbac.Role) string {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/v1/auth/login", map[string]any{
		"email":    string(role) + "@example.com",
		"password": "password1",
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login as %s: unexpected status %d", role, resp.StatusCode)
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode login response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatalf("empty token issued")
	}
	return payload.Token
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func serverBody(name string) map[string]any {
	return map[string]any{
		"name":             name,
		"hostname":         name + ".internal",
		"environment_type": "virtual",
		"operating_system": "debian",
	}
}

func TestAPIServerLifecycle(t *testing.T) {
	api := newTestAPI(t)
	token := api.login(rbac.RoleSystemsManager)

	resp := api.do(http.MethodPost, "/v1/servers", serverBody("web-01"), token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: unexpected status %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc == "" {
		t.Fatalf("missing Location header")
	}
	created := decode[map[string]any](t, resp)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("created server has no id")
	}

	resp = api.do(http.MethodGet, "/v1/servers/"+id, nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: unexpected status %d", resp.StatusCode)
	}
	got := decode[map[string]any](t, resp)
	if got["hostname"] != "web-01.internal" {
		t.Fatalf("unexpected hostname: %v", got["hostname"])
	}

	body := serverBody("web-01")
	body["os_version"] = "12.5"
	resp = api.do(http.MethodPut, "/v1/servers/"+id, body, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: unexpected status %d", resp.StatusCode)
	}
	updated := decode[map[string]any](t, resp)
	if updated["os_version"] != "12.5" {
		t.Fatalf("unexpected os_version: %v", updated["os_version"])
	}

	resp = api.do(http.MethodGet, "/v1/servers", nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: unexpected status %d", resp.StatusCode)
	}
	listed := decode[map[string][]map[string]any](t, resp)
	if len(listed["servers"]) != 1 {
		t.Fatalf("expected 1 server, got %d", len(listed["servers"]))
	}

	resp = api.do(http.MethodDelete, "/v1/servers/"+id, nil, token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: unexpected status %d", resp.StatusCode)
	}

	resp = api.do(http.MethodGet, "/v1/servers", nil, token)
	listed = decode[map[string][]map[string]any](t, resp)
	if len(listed["servers"]) != 0 {
		t.Fatalf("deleted server still listed")
	}
}

func TestAPIEnforcesAuth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodGet, "/v1/servers", nil, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	resp = api.do(http.MethodGet, "/v1/servers", nil, "not-a-token")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", resp.StatusCode)
	}
}

func TestAPILoginRejectsBadCredentials(t *testing.T) {
	api := newTestAPI(t)

	resp := api.do(http.MethodPost, "/v1/auth/login", map[string]any{
		"email":    "application_admin@example.com",
		"password": "wrong",
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	payload := decode[map[string]any](t, resp)
	if payload["error"] != "invalid credentials" {
		t.Fatalf("unexpected error message: %v", payload["error"])
	}
}

func TestAPIRoleEnforcement(t *testing.T) {
	api := newTestAPI(t)
	buser := api.login(rbac.RoleBusinessUser)

	resp := api.do(http.MethodPost, "/v1/servers", serverBody("forbidden-01"), buser)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	payload := decode[map[string]any](t, resp)
	if payload["error"] != "not authorized" {
		t.Fatalf("unexpected error message: %v", payload["error"])
	}
}

func TestAPIRedactsRestrictedNotes(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(rbac.RoleApplicationAdmin)
	tech := api.login(rbac.RoleTechnician)

	body := serverBody("db-01")
	body["public"] = true
	body["system_manager_notes"] = "root password rotation overdue"
	resp := api.do(http.MethodPost, "/v1/servers", body, admin)
	created := decode[map[string]any](t, resp)
	id := created["id"].(string)

	resp = api.do(http.MethodGet, "/v1/servers/"+id, nil, tech)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: unexpected status %d", resp.StatusCode)
	}
	got := decode[map[string]any](t, resp)
	if got["system_manager_notes"] != rbac.RestrictedPlaceholder {
		t.Fatalf("restricted notes leaked: %v", got["system_manager_notes"])
	}

	resp = api.do(http.MethodGet, "/v1/servers/"+id, nil, admin)
	got = decode[map[string]any](t, resp)
	if got["system_manager_notes"] != "root password rotation overdue" {
		t.Fatalf("admin should see real notes, got %v", got["system_manager_notes"])
	}
}

func TestAPIGrantFlow(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(rbac.RoleApplicationAdmin)
	tech := api.login(rbac.RoleTechnician)

	resp := api.do(http.MethodPost, "/v1/servers", serverBody("app-01"), admin)
	created := decode[map[string]any](t, resp)
	id := created["id"].(string)

	// Technician has no standing edit right on records it does not own.
	body := serverBody("app-01")
	body["os_version"] = "11"
	resp = api.do(http.MethodPut, "/v1/servers/"+id, body, tech)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 before grant, got %d", resp.StatusCode)
	}

	// Technicians may not manage grants themselves.
	grantBody := map[string]any{
		"user_id":       "acc-technician",
		"resource_type": "server",
		"resource_id":   id,
		"kind":          "edit",
	}
	resp = api.do(http.MethodPost, "/v1/grants", grantBody, tech)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 granting as technician, got %d", resp.StatusCode)
	}

	resp = api.do(http.MethodPost, "/v1/grants", grantBody, admin)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating grant, got %d", resp.StatusCode)
	}

	resp = api.do(http.MethodPut, "/v1/servers/"+id, body, tech)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after grant, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Technician can list its own grants.
	resp = api.do(http.MethodGet, "/v1/grants", nil, tech)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list own grants: unexpected status %d", resp.StatusCode)
	}
	listed := decode[map[string][]map[string]any](t, resp)
	if len(listed["grants"]) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(listed["grants"]))
	}

	q := url.Values{
		"user":          {"acc-technician"},
		"resource_type": {"server"},
		"resource_id":   {id},
		"kind":          {"edit"},
	}
	resp = api.do(http.MethodDelete, "/v1/grants?"+q.Encode(), nil, admin)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("revoke: unexpected status %d", resp.StatusCode)
	}

	resp = api.do(http.MethodPut, "/v1/servers/"+id, body, tech)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 after revoke, got %d", resp.StatusCode)
	}
}

func TestAPIAuditQueryRequiresElevatedRole(t *testing.T) {
	api := newTestAPI(t)
	buser := api.login(rbac.RoleBusinessUser)
	sm := api.login(rbac.RoleSystemsManager)

	resp := api.do(http.MethodGet, "/v1/audit", nil, buser)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for business user, got %d", resp.StatusCode)
	}

	// Mutations made so far (logins) must be visible to a systems manager.
	resp = api.do(http.MethodGet, "/v1/audit?action=LOGIN", nil, sm)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for systems manager, got %d", resp.StatusCode)
	}
	payload := decode[map[string][]audit.Entry](t, resp)
	if len(payload["entries"]) < 2 {
		t.Fatalf("expected login entries, got %d", len(payload["entries"]))
	}
	for _, e := range payload["entries"] {
		if e.Action != audit.ActionLogin {
			t.Fatalf("filter leaked action %s", e.Action)
		}
	}
}

func TestAPIAuditQueryValidatesParams(t *testing.T) {
	api := newTestAPI(t)
	sm := api.login(rbac.RoleSystemsManager)

	for _, q := range []string{"action=NOPE", "from=yesterday", "limit=-1"} {
		resp := api.do(http.MethodGet, "/v1/audit?"+q, nil, sm)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("query %q: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestAPIUserManagement(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(rbac.RoleApplicationAdmin)
	sm := api.login(rbac.RoleSystemsManager)

	resp := api.do(http.MethodPost, "/v1/users", map[string]any{
		"email":    "new.tech@example.com",
		"password": "s3cret-enough",
		"role":     "technician",
	}, sm)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for systems manager, got %d", resp.StatusCode)
	}

	resp = api.do(http.MethodPost, "/v1/users", map[string]any{
		"email":    "new.tech@example.com",
		"password": "s3cret-enough",
		"role":     "technician",
	}, admin)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user: unexpected status %d", resp.StatusCode)
	}
	created := decode[map[string]any](t, resp)
	id := created["id"].(string)

	resp = api.do(http.MethodPut, "/v1/users/"+id, map[string]any{
		"department": "platform",
	}, admin)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update user: unexpected status %d", resp.StatusCode)
	}
	updated := decode[map[string]any](t, resp)
	if updated["department"] != "platform" {
		t.Fatalf("unexpected department: %v", updated["department"])
	}

	resp = api.do(http.MethodDelete, "/v1/users/"+id, nil, admin)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("deactivate user: unexpected status %d", resp.StatusCode)
	}
}

func TestAPIRejectsUnknownFields(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login(rbac.RoleApplicationAdmin)

	resp := api.do(http.MethodPost, "/v1/servers", map[string]any{
		"name":     "x",
		"hostnme":  "typo.internal",
		"hostname": "x.internal",
	}, admin)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
}

func TestAPIHealthEndpointsArePublic(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := api.do(http.MethodGet, path, nil, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: unexpected status %d", path, resp.StatusCode)
		}
	}
}

func TestAPIAuditStreamDeliversEntries(t *testing.T) {
	api := newTestAPI(t)
	sm := api.login(rbac.RoleSystemsManager)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, api.baseURL+"/v1/audit/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+sm)

	resp, err := api.client.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stream: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	lines := make(chan string, 8)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	// The opening comment proves headers and body reach the client before
	// any entry is published.
	select {
	case line := <-lines:
		if !strings.HasPrefix(line, ":") {
			t.Fatalf("expected comment line, got %q", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream produced no output")
	}

	created := api.do(http.MethodPost, "/v1/servers", serverBody("streamed-01"), sm)
	created.Body.Close()
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("create: unexpected status %d", created.StatusCode)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed before delivering an entry")
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var entry audit.Entry
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &entry); err != nil {
				t.Fatalf("decode stream entry: %v", err)
			}
			if entry.Action != audit.ActionCreate || entry.ResourceType != "server" {
				t.Fatalf("unexpected entry %s %s", entry.Action, entry.ResourceType)
			}
			return
		case <-deadline:
			t.Fatal("no audit entry arrived on the stream")
		}
	}
}
