package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnstileVerify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "shh", r.PostForm.Get("secret"))
		assert.Equal(t, "203.0.113.7", r.PostForm.Get("remoteip"))
		ok := r.PostForm.Get("response") == "good"
		_ = json.NewEncoder(w).Encode(map[string]any{"success": ok})
	}))
	defer srv.Close()

	c := &Turnstile{Secret: "shh", Endpoint: srv.URL}
	ok, err := c.Verify(context.Background(), "good", "203.0.113.7")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Verify(context.Background(), "bad", "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Verify(context.Background(), "  ", "")
	require.NoError(t, err)
	assert.False(t, ok, "blank tokens are rejected without a round trip")
}

func TestTurnstileUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := (&Turnstile{Secret: "s", Endpoint: srv.URL}).Verify(context.Background(), "tok", "")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestAbstractEmailChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-1", r.URL.Query().Get("api_key"))
		resp := map[string]any{
			"deliverability":      "DELIVERABLE",
			"is_valid_format":     map[string]bool{"value": true},
			"is_disposable_email": map[string]bool{"value": false},
		}
		switch r.URL.Query().Get("email") {
		case "bounce@x.test":
			resp["deliverability"] = "UNDELIVERABLE"
		case "temp@mailinator.test":
			resp["is_disposable_email"] = map[string]bool{"value": true}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := &AbstractEmailChecker{APIKey: "key-1", Endpoint: srv.URL}
	ctx := context.Background()

	res, err := c.Check(ctx, "alice@x.test")
	require.NoError(t, err)
	assert.Equal(t, EmailCheckResult{Deliverable: true}, res)

	res, err = c.Check(ctx, "bounce@x.test")
	require.NoError(t, err)
	assert.False(t, res.Deliverable)

	res, err = c.Check(ctx, "temp@mailinator.test")
	require.NoError(t, err)
	assert.True(t, res.Disposable)
}

func TestResendSend(t *testing.T) {
	var got resendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer re_key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	m := &Resend{APIKey: "re_key", Endpoint: srv.URL}
	err := m.Send(context.Background(), Message{
		From:    "Blog <no-reply@blog.test>",
		To:      "alice@x.test",
		Subject: "Verify your email",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@x.test"}, got.To)
	assert.Equal(t, "Verify your email", got.Subject)

	require.Error(t, m.Send(context.Background(), Message{To: "a@x.test"}))
}

func TestResendRejectedByProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"invalid from"}`))
	}))
	defer srv.Close()

	err := (&Resend{APIKey: "k", Endpoint: srv.URL}).Send(context.Background(), Message{From: "a@b.test", To: "c@d.test"})
	require.ErrorIs(t, err, ErrUpstream)
}
