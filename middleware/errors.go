package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	blogAuth "github.com/MrEthical07/blogAuth"
)

// ErrorBody is the failure envelope.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// StatusFor maps an engine error onto its HTTP status. Errors without a kind
// are internal errors.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, blogAuth.ErrUnavailable):
		return http.StatusInternalServerError
	case errors.Is(err, blogAuth.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, blogAuth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, blogAuth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, blogAuth.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, blogAuth.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, blogAuth.ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes the envelope for err. Internal details never reach the
// body.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusFor(err), ErrorBody{Success: false, Error: blogAuth.PublicMessage(err)})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
