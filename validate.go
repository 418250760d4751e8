package blogAuth

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxEmailLength   = 254
	maxNameLength    = 100
	maxProfileField  = 500
	maxBioLength     = 2000
	maxWebsiteLength = 2048
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_-]{3,32}$`)

// normalizeUsername folds usernames to their stored form.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// normalizeEmail is applied before validation, so stored emails are lower-case.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUsername(username string) error {
	if username == "" {
		return validationError("username is required")
	}
	if !usernamePattern.MatchString(username) {
		return validationError("username must be 3-32 characters of letters, digits, '_' or '-'")
	}
	return nil
}

// validateEmail accepts a bare address only; display-name forms are rejected.
func validateEmail(email string) error {
	if email == "" {
		return validationError("email is required")
	}
	if len(email) > maxEmailLength {
		return validationError("email is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationError("email is not a valid address")
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return validationError("name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return validationError("name exceeds %d characters", maxNameLength)
	}
	if strings.ContainsAny(name, "<>\r\n") {
		return validationError("name contains invalid characters")
	}
	return nil
}

func validateLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return validationError("%s exceeds %d characters", field, max)
	}
	return nil
}

// validateHTTPURL accepts an empty value or an absolute http(s) URL.
func validateHTTPURL(field, raw string) error {
	if raw == "" {
		return nil
	}
	if len(raw) > maxWebsiteLength {
		return validationError("%s is too long", field)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return validationError("%s must be an absolute http(s) URL", field)
	}
	return nil
}
