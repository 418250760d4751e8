package middleware

import (
	"context"
	"net/http"
	"strings"

	blogAuth "github.com/MrEthical07/blogAuth"
)

// TokenVerifier turns a bearer token into an identity. *blogAuth.Engine
// implements it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (blogAuth.Identity, error)
}

type identityContextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id blogAuth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity stored by Authenticate.
func IdentityFromContext(ctx context.Context) (blogAuth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(blogAuth.Identity)
	return id, ok
}

// Authenticate requires a valid access token in the Authorization header.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				WriteError(w, blogAuth.ErrEngineNotReady)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				WriteError(w, blogAuth.ErrTokenMissing)
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				WriteError(w, blogAuth.ErrTokenMissing)
				return
			}
			if err := blogAuth.RequireAdmin(id); err != nil {
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
