package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUpstream wraps transport failures and unexpected upstream responses.
var ErrUpstream = errors.New("upstream service error")

const (
	defaultTimeout  = 10 * time.Second
	maxResponseBody = 1 << 20
)

// CaptchaVerifier checks a client-side CAPTCHA token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// EmailCheckResult is the verdict of an email validity service.
type EmailCheckResult struct {
	Deliverable bool
	Disposable  bool
}

// EmailChecker asks an external service whether an address can receive mail.
type EmailChecker interface {
	Check(ctx context.Context, email string) (EmailCheckResult, error)
}

// Message is a single transactional email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Mailer delivers transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

func defaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: defaultTimeout}
}

func decodeJSON(resp *http.Response, into any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if into == nil {
		return nil
	}
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url, bearer string, payload, into any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return decodeJSON(resp, into)
}
