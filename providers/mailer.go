package providers

import (
	"context"
	"errors"
	"net/http"
)

// DefaultResendURL is the Resend send-email endpoint.
const DefaultResendURL = "https://api.resend.com/emails"

// Resend delivers mail through a Resend-compatible JSON API.
type Resend struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID string `json:"id"`
}

func NewResend(apiKey string) *Resend {
	return &Resend{APIKey: apiKey, Endpoint: DefaultResendURL}
}

func (r *Resend) Send(ctx context.Context, msg Message) error {
	if msg.To == "" || msg.From == "" {
		return errors.New("mail sender and recipient are required")
	}
	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = DefaultResendURL
	}

	var out resendResponse
	return postJSON(ctx, defaultClient(r.Client), endpoint, r.APIKey, resendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}, &out)
}

var _ Mailer = (*Resend)(nil)
