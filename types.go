package blogAuth

import (
	"time"

	"github.com/MrEthical07/blogAuth/internal/stores"
	"github.com/MrEthical07/blogAuth/permission"
)

// Role is an account role; see the permission package for the hierarchy.
type Role = permission.Role

const (
	RoleUser         = permission.RoleUser
	RoleCollaborator = permission.RoleCollaborator
	RoleAdmin        = permission.RoleAdmin
)

// PublicUser is the only user shape that leaves the engine. It has no
// password field by construction.
type PublicUser struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Role            Role       `json:"role"`
	AvatarURL       string     `json:"avatar_url,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	Location        string     `json:"location,omitempty"`
	Website         string     `json:"website,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	IsActive        bool       `json:"is_active"`
	IsEmailVerified bool       `json:"is_email_verified"`
}

// publicUser strips credential material from a stored record.
func publicUser(rec *stores.UserRecord) PublicUser {
	return PublicUser{
		ID:              rec.ID,
		Username:        rec.Username,
		Email:           rec.Email,
		Name:            rec.Name,
		Role:            Role(rec.Role),
		AvatarURL:       rec.AvatarURL,
		Bio:             rec.Bio,
		Location:        rec.Location,
		Website:         rec.Website,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
		LastLoginAt:     rec.LastLoginAt,
		IsActive:        rec.IsActive,
		IsEmailVerified: rec.IsEmailVerified,
	}
}

// Identity is what a verified access token proves.
type Identity struct {
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	Email     string    `json:"email,omitempty"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// TokenPair is issued at login and registration.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// EmailOptions customises the verification email. Every field is optional
// and sanitised before use.
type EmailOptions struct {
	Subject     string
	Body        string
	FromName    string
	RedirectURL string
}

// RegisterInput is a self-service registration request.
type RegisterInput struct {
	Username     string
	Email        string
	Name         string
	Password     string
	CaptchaToken string
	Mail         EmailOptions
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User   PublicUser
	Tokens TokenPair
}

// RefreshResult carries a freshly minted access token.
type RefreshResult struct {
	AccessToken string
	User        PublicUser
}

// ProfileUpdate changes the caller's own profile. Nil fields are left alone.
// NewPassword requires CurrentPassword.
type ProfileUpdate struct {
	Name            *string
	AvatarURL       *string
	Bio             *string
	Location        *string
	Website         *string
	CurrentPassword string
	NewPassword     string
}

// CreateUserInput is an admin-created account. Role defaults to user.
type CreateUserInput struct {
	Username string
	Email    string
	Name     string
	Password string
	Role     Role
}

// ListFilter selects a page of users. Page is 1-based.
type ListFilter struct {
	Page   int
	Limit  int
	Active *bool
	Role   Role
}

// UserPage is one page of a user listing.
type UserPage struct {
	Users      []PublicUser `json:"users"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	Total      int          `json:"total"`
	TotalPages int          `json:"total_pages"`
}

// UserStats summarises the directory.
type UserStats struct {
	Total      int          `json:"total"`
	Active     int          `json:"active"`
	Inactive   int          `json:"inactive"`
	Verified   int          `json:"verified"`
	Unverified int          `json:"unverified"`
	ByRole     map[Role]int `json:"by_role"`
}
