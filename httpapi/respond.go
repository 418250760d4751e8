package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"

	blogAuth "github.com/MrEthical07/blogAuth"
	"github.com/MrEthical07/blogAuth/middleware"
)

var (
	errBadJSON      = errors.New("invalid request payload")
	errBodyTooLarge = errors.New("request body too large")
)

// decodeJSON reads a single JSON object. An empty body decodes to the zero
// value when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, into any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(into); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return errBadJSON
	}
	if dec.More() {
		return errBadJSON
	}
	return nil
}

func badRequest(w http.ResponseWriter, err error) {
	middleware.WriteJSON(w, http.StatusBadRequest, middleware.ErrorBody{Error: err.Error()})
}

// fail logs server-side failures and writes the envelope.
func fail(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, op string, err error) {
	if middleware.StatusFor(err) >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "op", op, "error", err)
	}
	middleware.WriteError(w, err)
}

func ok(w http.ResponseWriter, status int, body map[string]any) {
	body["success"] = true
	middleware.WriteJSON(w, status, body)
}

// clientIP hands the remote address to the engine for rate limiting and
// audit records.
func clientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(blogAuth.WithClientIP(r.Context(), ip)))
	})
}
