package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	blogAuth "github.com/MrEthical07/blogAuth"
	"github.com/MrEthical07/blogAuth/middleware"
	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	engine  *blogAuth.Engine
	logger  *slog.Logger
	maxBody int64
}

func NewAuthHandler(engine *blogAuth.Engine, logger *slog.Logger, maxBody int64) *AuthHandler {
	return &AuthHandler{engine: engine, logger: logger, maxBody: maxBody}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Post("/logout", h.logout)
	r.Get("/verify-email", h.verifyEmail)
	r.Post("/resend-verification", h.resendVerification)

	r.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticate(h.engine))
		authed.Post("/verify", h.verify)
		authed.Get("/me", h.me)
		authed.Put("/profile", h.updateProfile)
	})
}

// emailFields are the optional verification email customisations accepted
// by register and resend-verification.
type emailFields struct {
	EmailSubject string `json:"emailSubject"`
	EmailBody    string `json:"emailBody"`
	EmailFrom    string `json:"emailFrom"`
	RedirectURL  string `json:"redirectUrl"`
}

func (f emailFields) options() blogAuth.EmailOptions {
	return blogAuth.EmailOptions{
		Subject:     f.EmailSubject,
		Body:        f.EmailBody,
		FromName:    f.EmailFrom,
		RedirectURL: f.RedirectURL,
	}
}

type registerRequest struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captchaToken"`
	emailFields
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type resendRequest struct {
	Email string `json:"email"`
	emailFields
}

type profileRequest struct {
	Name            *string `json:"name"`
	AvatarURL       *string `json:"avatarUrl"`
	Bio             *string `json:"bio"`
	Location        *string `json:"location"`
	Website         *string `json:"website"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword"`
}

// loginUser is the reduced user shape returned by login.
type loginUser struct {
	Username string        `json:"username"`
	Role     blogAuth.Role `json:"role"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, h.maxBody, &req, false); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.engine.Register(r.Context(), blogAuth.RegisterInput{
		Username:     req.Username,
		Email:        req.Email,
		Name:         req.Name,
		Password:     req.Password,
		CaptchaToken: req.CaptchaToken,
		Mail:         req.options(),
	})
	if err != nil {
		fail(r.Context(), h.logger, w, "register", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{
		"message":      "Registration successful. Please check your email to verify your account.",
		"user":         res.User,
		"token":        res.Tokens.AccessToken,
		"refreshToken": res.Tokens.RefreshToken,
	})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, h.maxBody, &req, false); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.engine.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		fail(r.Context(), h.logger, w, "login", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{
		"user": loginUser{
			Username: res.User.Username,
			Role:     res.User.Role,
			Name:     res.User.Name,
			Email:    res.User.Email,
		},
		"token":        res.Tokens.AccessToken,
		"refreshToken": res.Tokens.RefreshToken,
	})
}

func (h *AuthHandler) verify(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	user, err := h.engine.Me(r.Context(), id.Username)
	if err != nil {
		if errors.Is(err, blogAuth.ErrUserNotFound) {
			err = blogAuth.ErrTokenInvalid
		}
		fail(r.Context(), h.logger, w, "verify", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{
		"user":    user,
		"payload": id,
	})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, h.maxBody, &req, false); err != nil {
		badRequest(w, err)
		return
	}

	res, err := h.engine.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		fail(r.Context(), h.logger, w, "refresh", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{
		"token": res.AccessToken,
		"user":  res.User,
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, h.maxBody, &req, true); err != nil {
		badRequest(w, err)
		return
	}

	if err := h.engine.Logout(r.Context(), req.RefreshToken); err != nil {
		fail(r.Context(), h.logger, w, "logout", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"message": "Logged out successfully"})
}

func (h *AuthHandler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		fail(r.Context(), h.logger, w, "verify email", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"message": "Email verified successfully"})
}

func (h *AuthHandler) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := decodeJSON(w, r, h.maxBody, &req, false); err != nil {
		badRequest(w, err)
		return
	}

	if err := h.engine.ResendVerification(r.Context(), req.Email, req.options()); err != nil {
		fail(r.Context(), h.logger, w, "resend verification", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"message": "Verification email sent"})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.IdentityFromContext(r.Context())
	user, err := h.engine.Me(r.Context(), id.Username)
	if err != nil {
		fail(r.Context(), h.logger, w, "me", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, h.maxBody, &req, false); err != nil {
		badRequest(w, err)
		return
	}

	id, _ := middleware.IdentityFromContext(r.Context())
	user, err := h.engine.UpdateProfile(r.Context(), id.Username, blogAuth.ProfileUpdate{
		Name:            req.Name,
		AvatarURL:       req.AvatarURL,
		Bio:             req.Bio,
		Location:        req.Location,
		Website:         req.Website,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		fail(r.Context(), h.logger, w, "update profile", err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"user": user})
}
