package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	blogAuth "github.com/MrEthical07/blogAuth"
)

type stubVerifier map[string]blogAuth.Identity

func (s stubVerifier) Verify(_ context.Context, token string) (blogAuth.Identity, error) {
	if token == "expired" {
		return blogAuth.Identity{}, blogAuth.ErrTokenExpired
	}
	if token == "broken-store" {
		return blogAuth.Identity{}, errors.New("dial tcp: connection refused")
	}
	id, ok := s[token]
	if !ok {
		return blogAuth.Identity{}, blogAuth.ErrTokenInvalid
	}
	return id, nil
}

var verifier = stubVerifier{
	"user-token":  {Username: "bob", Role: blogAuth.RoleUser},
	"admin-token": {Username: "root", Role: blogAuth.RoleAdmin},
}

func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(id.Username))
	})
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return body
}

func TestAuthenticate(t *testing.T) {
	h := Authenticate(verifier)(echoIdentity())

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"valid", "Bearer user-token", http.StatusOK, "bob"},
		{"case-insensitive scheme", "bearer user-token", http.StatusOK, "bob"},
		{"missing", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic dXNlcg==", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
		{"invalid", "Bearer nope", http.StatusUnauthorized, ""},
		{"expired", "Bearer expired", http.StatusUnauthorized, ""},
		{"backend failure", "Bearer broken-store", http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, tc.header)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if tc.status == http.StatusOK {
				if rec.Body.String() != tc.body {
					t.Fatalf("expected body %q, got %q", tc.body, rec.Body.String())
				}
				return
			}
			body := decodeError(t, rec)
			if body.Success || body.Error == "" {
				t.Fatalf("unexpected envelope %+v", body)
			}
		})
	}
}

func TestBackendErrorsAreNotLeaked(t *testing.T) {
	rec := serve(Authenticate(verifier)(echoIdentity()), "Bearer broken-store")
	body := decodeError(t, rec)
	if body.Error != "internal server error" {
		t.Fatalf("internal error leaked: %q", body.Error)
	}
}

func TestRequireAdmin(t *testing.T) {
	h := Authenticate(verifier)(RequireAdmin()(echoIdentity()))

	if rec := serve(h, "Bearer admin-token"); rec.Code != http.StatusOK {
		t.Fatalf("admin rejected: %d", rec.Code)
	}
	rec := serve(h, "Bearer user-token")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for member, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error != blogAuth.PublicMessage(blogAuth.ErrAdminRequired) {
		t.Fatalf("unexpected error %q", body.Error)
	}

	// Without Authenticate in front there is no identity.
	if rec := serve(RequireAdmin()(echoIdentity()), ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		blogAuth.ErrDuplicateEmail:       http.StatusConflict,
		blogAuth.ErrRegisterIPLimited:    http.StatusTooManyRequests,
		blogAuth.ErrVerificationNotFound: http.StatusNotFound,
		blogAuth.ErrEmailUnverified:      http.StatusForbidden,
		blogAuth.ErrCaptchaFailed:        http.StatusBadRequest,
		blogAuth.ErrInvalidCredentials:   http.StatusUnauthorized,
		blogAuth.ErrEngineNotReady:       http.StatusInternalServerError,
		errors.New("boom"):               http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := StatusFor(err); got != want {
			t.Fatalf("StatusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
