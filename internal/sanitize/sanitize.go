// Package sanitize validates and cleans caller-supplied email customisation
// before it is embedded in a verification message.
//
// Subjects and sender names are reduced to plain text, bodies keep a safe
// subset of HTML, and every field is checked against length limits and a
// case-insensitive sensitive-word list.
package sanitize

import (
	"errors"
	"fmt"
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// ErrInvalid is the parent of every rejection returned by this package.
var ErrInvalid = errors.New("invalid email customisation")

// FieldError names the offending field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalid
}

// Config bounds and filters customisation input. Zero limits use defaults.
type Config struct {
	MaxSubjectLength  int
	MaxBodyLength     int
	MaxFromNameLength int
	SensitiveWords    []string
	// AllowedRedirectHosts restricts redirect targets when non-empty.
	AllowedRedirectHosts []string
}

const (
	defaultMaxSubject  = 200
	defaultMaxBody     = 10000
	defaultMaxFromName = 100
)

// Email is the customisable part of a verification message.
type Email struct {
	Subject     string
	Body        string
	FromName    string
	RedirectURL string
}

// Sanitizer is safe for concurrent use.
type Sanitizer struct {
	cfg          Config
	words        []string
	hosts        map[string]struct{}
	textPolicy   *bluemonday.Policy
	markupPolicy *bluemonday.Policy
}

func New(cfg Config) *Sanitizer {
	if cfg.MaxSubjectLength <= 0 {
		cfg.MaxSubjectLength = defaultMaxSubject
	}
	if cfg.MaxBodyLength <= 0 {
		cfg.MaxBodyLength = defaultMaxBody
	}
	if cfg.MaxFromNameLength <= 0 {
		cfg.MaxFromNameLength = defaultMaxFromName
	}

	s := &Sanitizer{
		cfg:          cfg,
		hosts:        make(map[string]struct{}, len(cfg.AllowedRedirectHosts)),
		textPolicy:   bluemonday.StrictPolicy(),
		markupPolicy: bluemonday.UGCPolicy(),
	}
	for _, w := range cfg.SensitiveWords {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			s.words = append(s.words, w)
		}
	}
	for _, h := range cfg.AllowedRedirectHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			s.hosts[h] = struct{}{}
		}
	}
	return s
}

// Email validates in and returns the cleaned copy. Empty fields stay empty so
// callers can fall back to their defaults.
func (s *Sanitizer) Email(in Email) (Email, error) {
	var out Email
	var err error

	if out.Subject, err = s.plain("emailSubject", in.Subject, s.cfg.MaxSubjectLength); err != nil {
		return Email{}, err
	}
	if out.FromName, err = s.plain("emailFrom", in.FromName, s.cfg.MaxFromNameLength); err != nil {
		return Email{}, err
	}
	if strings.ContainsAny(out.FromName, "<>@\"") {
		return Email{}, &FieldError{Field: "emailFrom", Reason: "must be a display name"}
	}
	if out.Body, err = s.markup("emailBody", in.Body, s.cfg.MaxBodyLength); err != nil {
		return Email{}, err
	}
	if out.RedirectURL, err = s.Redirect(in.RedirectURL); err != nil {
		return Email{}, err
	}
	return out, nil
}

// Redirect accepts an absolute http(s) URL, optionally restricted to the
// configured hosts. An empty input is returned unchanged.
func (s *Sanitizer) Redirect(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if len(raw) > 2048 {
		return "", &FieldError{Field: "redirectUrl", Reason: "is too long"}
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || u.User != nil {
		return "", &FieldError{Field: "redirectUrl", Reason: "must be an absolute http(s) URL"}
	}
	if len(s.hosts) > 0 {
		if _, ok := s.hosts[strings.ToLower(u.Hostname())]; !ok {
			return "", &FieldError{Field: "redirectUrl", Reason: "host is not allowed"}
		}
	}
	return u.String(), nil
}

func (s *Sanitizer) plain(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if strings.ContainsAny(value, "\r\n") {
		return "", &FieldError{Field: field, Reason: "must be a single line"}
	}
	if utf8.RuneCountInString(value) > max {
		return "", &FieldError{Field: field, Reason: fmt.Sprintf("exceeds %d characters", max)}
	}

	// StrictPolicy escapes what it keeps; the result is used as plain text.
	cleaned := strings.TrimSpace(html.UnescapeString(s.textPolicy.Sanitize(value)))
	if cleaned == "" {
		return "", &FieldError{Field: field, Reason: "has no text content"}
	}
	if err := s.screen(field, cleaned); err != nil {
		return "", err
	}
	return cleaned, nil
}

func (s *Sanitizer) markup(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if utf8.RuneCountInString(value) > max {
		return "", &FieldError{Field: field, Reason: fmt.Sprintf("exceeds %d characters", max)}
	}

	if err := s.screen(field, html.UnescapeString(s.textPolicy.Sanitize(value))); err != nil {
		return "", err
	}
	cleaned := strings.TrimSpace(s.markupPolicy.Sanitize(value))
	if cleaned == "" {
		return "", &FieldError{Field: field, Reason: "has no safe content"}
	}
	return cleaned, nil
}

func (s *Sanitizer) screen(field, text string) error {
	if len(s.words) == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	for _, w := range s.words {
		if strings.Contains(lower, w) {
			return &FieldError{Field: field, Reason: "contains prohibited content"}
		}
	}
	return nil
}
