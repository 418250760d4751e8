package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultTurnstileURL is Cloudflare's siteverify endpoint.
const DefaultTurnstileURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Turnstile verifies tokens against a siteverify-style endpoint.
type Turnstile struct {
	Secret   string
	Endpoint string
	Client   *http.Client
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

func NewTurnstile(secret string) *Turnstile {
	return &Turnstile{Secret: secret, Endpoint: DefaultTurnstileURL}
}

// Verify returns false for rejected tokens and an error only when the
// service could not give a verdict.
func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", t.Secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	endpoint := t.Endpoint
	if endpoint == "" {
		endpoint = DefaultTurnstileURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := defaultClient(t.Client).Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	var out siteverifyResponse
	if err := decodeJSON(resp, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

var _ CaptchaVerifier = (*Turnstile)(nil)
