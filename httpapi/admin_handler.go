package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	blogAuth "github.com/MrEthical07/blogAuth"
	"github.com/MrEthical07/blogAuth/middleware"
	"github.com/go-chi/chi/v5"
)

// AdminHandler serves /api/admin/users. It expects Authenticate and
// RequireAdmin in front of it; the engine repeats the checks against the
// stored caller record.
type AdminHandler struct {
	engine  *blogAuth.Engine
	logger  *slog.Logger
	maxBody int64
}

func NewAdminHandler(engine *blogAuth.Engine, logger *slog.Logger, maxBody int64) *AdminHandler {
	return &AdminHandler{engine: engine, logger: logger, maxBody: maxBody}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/stats", h.stats)
	r.Get("/{username}", h.get)
	r.Put("/{username}/role", h.setRole)
	r.Put("/{username}/status", h.setStatus)
	r.Delete("/{username}", h.delete)
}

type createUserRequest struct {
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Name     string        `json:"name"`
	Password string        `json:"password"`
	Role     blogAuth.Role `json:"role"`
}

type roleRequest struct {
	Role blogAuth.Role `json:"role"`
}

type statusRequest struct {
	Active *bool `json:"active"`
}

var errBadQuery = errors.New("invalid query parameter")

func caller(r *http.Request) blogAuth.Identity {
	id, _ := middleware.IdentityFromContext(r.Context())
	return id
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		badRequest(w, err)
		return
	}

	page, err := h.engine.ListUsers(r.Context(), caller(r), filter)
	if err != nil {
		fail(r.Context(), h.logger, w, "list users", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{
		"users": page.Users,
		"pagination": map[string]int{
			"page":       page.Page,
			"limit":      page.Limit,
			"total":      page.Total,
			"totalPages": page.TotalPages,
		},
	})
}

func parseListFilter(r *http.Request) (blogAuth.ListFilter, error) {
	q := r.URL.Query()
	var filter blogAuth.ListFilter

	for name, dst := range map[string]*int{"page": &filter.Page, "limit": &filter.Limit} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return filter, errBadQuery
			}
			*dst = n
		}
	}
	if v := q.Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errBadQuery
		}
		filter.Active = &b
	}
	filter.Role = blogAuth.Role(q.Get("role"))
	return filter, nil
}

func (h *AdminHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.UserStats(r.Context(), caller(r))
	if err != nil {
		fail(r.Context(), h.logger, w, "user stats", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *AdminHandler) get(w http.ResponseWriter, r *http.Request) {
	user, err := h.engine.GetUser(r.Context(), caller(r), chi.URLParam(r, "username"))
	if err != nil {
		fail(r.Context(), h.logger, w, "get user", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AdminHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, h.maxBody, &req, false); err != nil {
		badRequest(w, err)
		return
	}

	user, err := h.engine.CreateUser(r.Context(), caller(r), blogAuth.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		fail(r.Context(), h.logger, w, "create user", err)
		return
	}
	ok(w, http.StatusCreated, map[string]any{"user": user})
}

func (h *AdminHandler) setRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(w, r, h.maxBody, &req, false); err != nil {
		badRequest(w, err)
		return
	}

	user, err := h.engine.SetRole(r.Context(), caller(r), chi.URLParam(r, "username"), req.Role)
	if err != nil {
		fail(r.Context(), h.logger, w, "set role", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AdminHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, h.maxBody, &req, true); err != nil {
		badRequest(w, err)
		return
	}

	user, err := h.engine.SetStatus(r.Context(), caller(r), chi.URLParam(r, "username"), req.Active)
	if err != nil {
		fail(r.Context(), h.logger, w, "set status", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AdminHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteUser(r.Context(), caller(r), chi.URLParam(r, "username")); err != nil {
		fail(r.Context(), h.logger, w, "delete user", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"message": "User deleted successfully"})
}
