package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	blogAuth "github.com/MrEthical07/blogAuth"
	"github.com/MrEthical07/blogAuth/httpapi"
	"github.com/MrEthical07/blogAuth/internal/kvtest"
	"github.com/MrEthical07/blogAuth/internal/stores"
	"github.com/MrEthical07/blogAuth/kv"
	"github.com/MrEthical07/blogAuth/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type okCaptcha struct{}

func (okCaptcha) Verify(_ context.Context, token, _ string) (bool, error) {
	return token == "ok", nil
}

type inbox struct {
	mu   sync.Mutex
	msgs []providers.Message
}

func (i *inbox) Send(_ context.Context, msg providers.Message) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.msgs = append(i.msgs, msg)
	return nil
}

var tokenRe = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

func (i *inbox) lastToken(t *testing.T) string {
	t.Helper()
	i.mu.Lock()
	defer i.mu.Unlock()
	require.NotEmpty(t, i.msgs)
	m := tokenRe.FindStringSubmatch(i.msgs[len(i.msgs)-1].HTML)
	require.NotNil(t, m)
	return m[1]
}

type server struct {
	*httptest.Server
	engine *blogAuth.Engine
	store  kv.Store
	mail   *inbox
}

func newServer(t *testing.T) *server {
	t.Helper()
	_, store := kvtest.New(t)

	cfg := blogAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.EmailVerification.SiteURL = "https://blog.example"
	cfg.EmailVerification.From = "noreply@blog.example"
	cfg.Security.SuperAdminEmails = []string{"root@blog.example"}

	mail := &inbox{}
	engine, err := blogAuth.New().
		WithConfig(cfg).
		WithStore(store).
		WithCaptcha(okCaptcha{}).
		WithMailer(mail).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(httpapi.NewRouter(engine, httpapi.Options{
		Logger:         logger,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("metrics")) }),
	}))
	t.Cleanup(srv.Close)
	return &server{Server: srv, engine: engine, store: store, mail: mail}
}

func (s *server) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.URL+path, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password_hash")
	assert.NotContains(t, string(raw), "$argon2id$")

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

// signup registers and verifies an account and returns its access token.
func (s *server) signup(t *testing.T, username, email, name string) string {
	t.Helper()
	status, _ := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "name": name, "password": "secret1!", "captchaToken": "ok",
	})
	require.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/api/auth/verify-email?token="+s.mail.lastToken(t), "", nil)
	require.Equal(t, http.StatusOK, status)
	status, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": "secret1!"})
	require.Equal(t, http.StatusOK, status)
	return body["token"].(string)
}

func TestScenarioOverHTTP(t *testing.T) {
	s := newServer(t)

	status, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@x.test", "name": "Alice", "password": "secret1!", "captchaToken": "ok",
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["refreshToken"])
	user := body["user"].(map[string]any)
	assert.Equal(t, false, user["is_email_verified"])

	status, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "secret1!"})
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "email address not verified", body["error"])

	status, body = s.do(t, http.MethodGet, "/api/auth/verify-email?token="+s.mail.lastToken(t), "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "secret1!"})
	require.Equal(t, http.StatusOK, status)
	token := body["token"].(string)
	refresh := body["refreshToken"].(string)
	assert.Equal(t, map[string]any{"username": "alice", "role": "user", "name": "Alice", "email": "alice@x.test"}, body["user"])

	status, body = s.do(t, http.MethodPost, "/api/auth/verify", token, nil)
	require.Equal(t, http.StatusOK, status)
	payload := body["payload"].(map[string]any)
	assert.Equal(t, "alice", payload["username"])
	assert.Equal(t, "user", payload["role"])

	status, body = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["token"])

	status, _ = s.do(t, http.MethodPost, "/api/auth/logout", "", map[string]string{"refreshToken": refresh})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{"refreshToken": refresh})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "refresh token revoked", body["error"])
}

func TestErrorStatuses(t *testing.T) {
	s := newServer(t)
	s.signup(t, "alice", "alice@x.test", "Alice")

	status, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "new@x.test", "name": "New", "password": "secret1!", "captchaToken": "ok",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "username already exists", body["error"])

	status, _ = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "bob", "email": "bob@x.test", "name": "Bob", "password": "secret1!", "captchaToken": "bad",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/auth/verify-email?token="+strings.Repeat("A", 43), "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPost, "/api/auth/verify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/auth/login", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterRateLimitOverHTTP(t *testing.T) {
	s := newServer(t)
	for i, name := range []string{"ann", "ben", "cat", "dan", "eve", "fay"} {
		status, _ := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
			"username": name, "email": name + "@x.test", "name": name, "password": "secret1!", "captchaToken": "ok",
		})
		if i < 5 {
			require.Equal(t, http.StatusOK, status, name)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, status)
		}
	}
}

func TestLoginThrottleOverHTTP(t *testing.T) {
	s := newServer(t)
	s.signup(t, "alice", "alice@x.test", "Alice")

	for i := 0; i < 5; i++ {
		status, _ := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "nope-nope"})
		require.Equal(t, http.StatusUnauthorized, status)
	}
	status, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "secret1!"})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "too many failed login attempts, try again later", body["error"])
}

func TestProfileOverHTTP(t *testing.T) {
	s := newServer(t)
	token := s.signup(t, "alice", "alice@x.test", "Alice")

	status, body := s.do(t, http.MethodPut, "/api/auth/profile", token, map[string]any{"bio": "Hello", "website": "https://alice.example"})
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, "Hello", user["bio"])

	status, body = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "https://alice.example", body["user"].(map[string]any)["website"])
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t)
	s.signup(t, "root", "root@blog.example", "Root")
	s.signup(t, "admin1", "admin1@x.test", "Admin One")
	memberToken := s.signup(t, "bob", "bob@x.test", "Bob")
	s.promote(t, "root")
	s.promote(t, "admin1")
	rootToken := s.login(t, "root")
	adminToken := s.login(t, "admin1")

	status, _ := s.do(t, http.MethodGet, "/api/admin/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := s.do(t, http.MethodGet, "/api/admin/users", memberToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "admin access required", body["error"])

	status, body = s.do(t, http.MethodGet, "/api/admin/users?page=1&limit=1&role=admin", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["users"], 1)
	pagination := body["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["total"])
	assert.Equal(t, float64(2), pagination["totalPages"])

	status, _ = s.do(t, http.MethodGet, "/api/admin/users?active=maybe", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = s.do(t, http.MethodGet, "/api/admin/users/stats", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["stats"].(map[string]any)["total"])

	status, _ = s.do(t, http.MethodPut, "/api/admin/users/root/status", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = s.do(t, http.MethodPut, "/api/admin/users/bob/role", adminToken, map[string]string{"role": "collaborator"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "collaborator", body["user"].(map[string]any)["role"])

	status, body = s.do(t, http.MethodPut, "/api/admin/users/bob/status", adminToken, map[string]bool{"active": false})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["user"].(map[string]any)["is_active"])

	status, body = s.do(t, http.MethodPost, "/api/admin/users", adminToken, map[string]string{
		"username": "carol", "email": "carol@x.test", "name": "Carol", "password": "carol-pass",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["user"].(map[string]any)["is_email_verified"])

	// Peer admins are off limits to each other but not to a super-admin.
	status, _ = s.do(t, http.MethodDelete, "/api/admin/users/root", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = s.do(t, http.MethodDelete, "/api/admin/users/admin1", rootToken, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/api/admin/users/admin1", rootToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

// promote gives username the admin role. root goes through the super-admin
// bootstrap; anyone else is written straight into the directory, the way an
// operator would fix up a record.
func (s *server) promote(t *testing.T, username string) {
	t.Helper()
	ctx := context.Background()
	if username == "root" {
		_, err := s.engine.PromoteSuperAdmin(ctx, username)
		require.NoError(t, err)
		return
	}
	users := stores.NewUserDirectory(s.store)
	rec, err := users.Get(ctx, username)
	require.NoError(t, err)
	rec.Role = string(blogAuth.RoleAdmin)
	require.NoError(t, users.Save(ctx, rec))
}

func (s *server) login(t *testing.T, username string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": username, "password": "secret1!"})
	require.Equal(t, http.StatusOK, status)
	return body["token"].(string)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)
	status, body := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	resp, err := s.Client().Get(s.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "metrics", string(raw))
}
