package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DefaultEmailCheckURL is the Abstract email validation endpoint.
const DefaultEmailCheckURL = "https://emailvalidation.abstractapi.com/v1/"

// AbstractEmailChecker queries an Abstract-style email validation API.
type AbstractEmailChecker struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

type abstractBool struct {
	Value bool `json:"value"`
}

type abstractResponse struct {
	Deliverability    string       `json:"deliverability"`
	IsDisposableEmail abstractBool `json:"is_disposable_email"`
	IsValidFormat     abstractBool `json:"is_valid_format"`
}

func NewAbstractEmailChecker(apiKey string) *AbstractEmailChecker {
	return &AbstractEmailChecker{APIKey: apiKey, Endpoint: DefaultEmailCheckURL}
}

func (c *AbstractEmailChecker) Check(ctx context.Context, email string) (EmailCheckResult, error) {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEmailCheckURL
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return EmailCheckResult{}, err
	}
	q := u.Query()
	q.Set("api_key", c.APIKey)
	q.Set("email", email)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return EmailCheckResult{}, err
	}
	resp, err := defaultClient(c.Client).Do(req)
	if err != nil {
		return EmailCheckResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	var out abstractResponse
	if err := decodeJSON(resp, &out); err != nil {
		return EmailCheckResult{}, err
	}
	return EmailCheckResult{
		// UNKNOWN is treated as deliverable; only a definite verdict rejects.
		Deliverable: out.IsValidFormat.Value && !strings.EqualFold(out.Deliverability, "UNDELIVERABLE"),
		Disposable:  out.IsDisposableEmail.Value,
	}, nil
}

var _ EmailChecker = (*AbstractEmailChecker)(nil)
