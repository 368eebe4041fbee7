package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"taskhive.org/internal/auth"
	"taskhive.org/internal/session"
	"taskhive.org/internal/task"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	userStore := auth.NewInMemory()
	users, err := auth.NewService(userStore, "test-access-secret", "test-refresh-secret")
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	tasks := task.NewService(task.NewInMemory(), userStore)
	codec, err := session.NewCodec("test-session-secret")
	if err != nil {
		t.Fatalf("new session codec: %v", err)
	}

	api := New(users, tasks, codec, ReadyProbe{}, "test",
		WithCookieSecure(false),
		WithRateLimit(100, 100),
	)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := srv.Client()
	client.Jar = jar

	return &apiClient{
		baseURL: srv.URL,
		client:  client,
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
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
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any) *http.Response {
	return c.do(http.MethodPost, path, body, nil)
}

func (c *apiClient) get(path string, params url.Values) *http.Response {
	c.t.Helper()
	u := path
	if params != nil {
		u += "?" + params.Encode()
	}
	return c.do(http.MethodGet, u, nil, nil)
}

// signup registers a user through the API and leaves the session cookies in
// the client's jar.
func (c *apiClient) signup(name, email, role string) map[string]any {
	c.t.Helper()
	resp := c.post("/users/signup", map[string]any{
		"name":     name,
		"email":    email,
		"password": "s3cret-pass",
		"role":     role,
	})
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("unexpected signup status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](c.t, resp)
	profile, ok := body["data"].(map[string]any)
	if !ok {
		c.t.Fatalf("signup response missing profile data: %v", body)
	}
	return profile
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

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSignupSetsSessionCookies(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/users/signup", map[string]any{
		"name":     "Aruzhan",
		"email":    "aruzhan@example.com",
		"password": "s3cret-pass",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "User registered successfully" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	profile := body["data"].(map[string]any)
	if profile["email"] != "aruzhan@example.com" {
		t.Fatalf("unexpected profile email: %v", profile["email"])
	}
	if profile["role"] != "user" {
		t.Fatalf("expected default role, got %v", profile["role"])
	}

	access := cookieByName(resp, "accessToken")
	refresh := cookieByName(resp, "refreshToken")
	user := cookieByName(resp, session.CookieName)
	if access == nil || refresh == nil || user == nil {
		t.Fatalf("expected all three session cookies, got %v", resp.Cookies())
	}
	if !access.HttpOnly || !refresh.HttpOnly {
		t.Fatalf("token cookies must be http-only")
	}
	if user.HttpOnly {
		t.Fatalf("profile cookie must stay script-readable")
	}
}

func TestSignupValidationErrors(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/users/signup", map[string]any{
		"name":     "",
		"email":    "blank@example.com",
		"password": "s3cret-pass",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "All input fields must be filled" {
		t.Fatalf("unexpected message: %v", body["message"])
	}

	api.signup("Dana", "dana@example.com", "")
	resp = api.post("/users/signup", map[string]any{
		"name":     "Dana Again",
		"email":    "dana@example.com",
		"password": "s3cret-pass",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", resp.StatusCode)
	}
	body = decode[map[string]any](t, resp)
	if body["message"] != "User already exists" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestLoginFlow(t *testing.T) {
	api := newTestAPI(t)
	api.signup("Bek", "bek@example.com", "manager")

	resp := api.post("/users/login", map[string]any{
		"email":    "bek@example.com",
		"password": "s3cret-pass",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	profile := body["data"].(map[string]any)
	if profile["role"] != "manager" {
		t.Fatalf("unexpected role: %v", profile["role"])
	}
	if cookieByName(resp, "accessToken") == nil {
		t.Fatalf("login must set the access token cookie")
	}

	resp = api.post("/users/login", map[string]any{
		"email":    "bek@example.com",
		"password": "wrong-pass",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for wrong password, got %d", resp.StatusCode)
	}
	body = decode[map[string]any](t, resp)
	if body["message"] != "Password incorrect" {
		t.Fatalf("unexpected message: %v", body["message"])
	}

	resp = api.post("/users/login", map[string]any{
		"email":    "ghost@example.com",
		"password": "s3cret-pass",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown email, got %d", resp.StatusCode)
	}
	body = decode[map[string]any](t, resp)
	if body["message"] != "Incorrect email" {
		t.Fatalf("unexpected message: %v", body["message"])
	}

	resp = api.post("/users/login", map[string]any{"password": "s3cret-pass"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing email, got %d", resp.StatusCode)
	}
	body = decode[map[string]any](t, resp)
	if body["message"] != "Email is required" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestCurrentUserRequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/users/", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	api.signup("Saule", "saule@example.com", "")
	resp = api.get("/users/", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "Data fetched" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	profile := body["data"].(map[string]any)
	if profile["email"] != "saule@example.com" {
		t.Fatalf("unexpected profile: %v", profile)
	}
}

func TestBearerTokenFallback(t *testing.T) {
	api := newTestAPI(t)
	api.signup("Erik", "erik@example.com", "")

	var access string
	u, _ := url.Parse(api.baseURL)
	for _, c := range api.client.Jar.Cookies(u) {
		if c.Name == "accessToken" {
			access = c.Value
		}
	}
	if access == "" {
		t.Fatalf("no access token cookie in jar")
	}

	// Strip the jar so only the Authorization header carries identity.
	api.client.Jar = nil
	resp := api.do(http.MethodGet, "/users/", nil, map[string]string{
		"Authorization": "Bearer " + access,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.do(http.MethodGet, "/users/", nil, map[string]string{
		"Authorization": "Bearer not-a-token",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "Invalid token" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestLogoutClearsCookies(t *testing.T) {
	api := newTestAPI(t)
	api.signup("Madi", "madi@example.com", "")

	resp := api.get("/users/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "User logged out successfully" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	for _, name := range []string{"accessToken", "refreshToken", session.CookieName} {
		c := cookieByName(resp, name)
		if c == nil || c.MaxAge != -1 {
			t.Fatalf("cookie %s not expired on logout", name)
		}
	}

	resp = api.get("/users/", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestRefreshRotatesCookies(t *testing.T) {
	api := newTestAPI(t)
	api.signup("Aigerim", "aigerim@example.com", "")

	u, _ := url.Parse(api.baseURL)
	var before string
	for _, c := range api.client.Jar.Cookies(u) {
		if c.Name == "refreshToken" {
			before = c.Value
		}
	}

	resp := api.post("/users/refresh", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "Tokens refreshed" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	refreshed := cookieByName(resp, "refreshToken")
	if refreshed == nil || refreshed.Value == before {
		t.Fatalf("refresh must rotate the refresh token cookie")
	}

	// The superseded token is no longer accepted.
	api.client.Jar = nil
	resp = api.do(http.MethodPost, "/users/refresh", map[string]any{"refreshToken": before}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for rotated-out token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTaskLifecycle(t *testing.T) {
	api := newTestAPI(t)
	profile := api.signup("Sanzhar", "sanzhar@example.com", "")
	userID := profile["id"].(string)

	resp := api.post("/tasks/", map[string]any{
		"title":       "Ship the release",
		"description": "cut the tag and publish notes",
		"dueDate":     "2026-09-15T00:00:00Z",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "Task created" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	created := body["data"].(map[string]any)
	if created["priority"] != "medium" || created["status"] != "pending" {
		t.Fatalf("defaults not applied: %v", created)
	}
	taskID := created["id"].(string)

	resp = api.do(http.MethodPut, "/tasks/"+taskID, map[string]any{
		"status":   "completed",
		"priority": "high",
	}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body = decode[map[string]any](t, resp)
	updated := body["data"].(map[string]any)
	if updated["status"] != "completed" || updated["priority"] != "high" {
		t.Fatalf("merge update lost fields: %v", updated)
	}
	if updated["title"] != "Ship the release" {
		t.Fatalf("untouched field changed: %v", updated["title"])
	}

	resp = api.get("/tasks/user/"+userID, url.Values{"type": []string{"createdBy"}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body = decode[map[string]any](t, resp)
	views := body["data"].([]any)
	if len(views) != 1 {
		t.Fatalf("expected one task, got %d", len(views))
	}
	view := views[0].(map[string]any)
	creator := view["createdBy"].(map[string]any)
	if creator["id"] != userID || creator["name"] != "Sanzhar" {
		t.Fatalf("creator projection wrong: %v", creator)
	}

	resp = api.do(http.MethodDelete, "/tasks/"+taskID, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body = decode[map[string]any](t, resp)
	if body["message"] != "Task deleted successfully" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestCreateTaskRejectsBadEnums(t *testing.T) {
	api := newTestAPI(t)
	api.signup("Alia", "alia@example.com", "")

	resp := api.post("/tasks/", map[string]any{
		"title":  "Bad status",
		"status": "done",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "Invalid status value" {
		t.Fatalf("unexpected message: %v", body["message"])
	}

	resp = api.post("/tasks/", map[string]any{
		"title":    "Bad priority",
		"priority": "urgent",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body = decode[map[string]any](t, resp)
	if body["message"] != "Invalid priority value" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestUpdateTaskIDValidation(t *testing.T) {
	api := newTestAPI(t)
	api.signup("Nurlan", "nurlan@example.com", "")

	resp := api.do(http.MethodPut, "/tasks/not-a-ulid", map[string]any{"status": "completed"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "Invalid task ID" {
		t.Fatalf("unexpected message: %v", body["message"])
	}

	resp = api.do(http.MethodPut, "/tasks/01HZZZZZZZZZZZZZZZZZZZZZZZ", map[string]any{"status": "completed"}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown task, got %d", resp.StatusCode)
	}
	body = decode[map[string]any](t, resp)
	if body["message"] != "Task not found" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestAdminCannotDeleteTasks(t *testing.T) {
	api := newTestAPI(t)
	api.signup("Root", "root@example.com", "admin")

	resp := api.post("/tasks/", map[string]any{"title": "Admin owned"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	created := decode[map[string]any](t, resp)["data"].(map[string]any)
	taskID := created["id"].(string)

	resp = api.do(http.MethodDelete, "/tasks/"+taskID, nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "Unauthorized access" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
}

func TestTaskStatsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	profile := api.signup("Aibek", "aibek@example.com", "")
	userID := profile["id"].(string)

	for _, status := range []string{"pending", "completed"} {
		resp := api.post("/tasks/", map[string]any{
			"title":      "Task " + status,
			"status":     status,
			"assignedTo": userID,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := api.get("/tasks/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["message"] != "Task stats fetched" {
		t.Fatalf("unexpected message: %v", body["message"])
	}
	stats := body["data"].(map[string]any)
	if stats["totalCreated"].(float64) != 2 {
		t.Fatalf("unexpected totalCreated: %v", stats["totalCreated"])
	}
	// Self-assigned tasks count in both totals.
	if stats["totalAssigned"].(float64) != 2 {
		t.Fatalf("unexpected totalAssigned: %v", stats["totalAssigned"])
	}
	counts := stats["statusCount"].(map[string]any)
	if counts["pending"].(float64) != 2 || counts["completed"].(float64) != 2 {
		t.Fatalf("unexpected status counts: %v", counts)
	}
}

func TestHealthAndInfoArePublic(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := api.get(path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("unexpected status for %s: %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}
