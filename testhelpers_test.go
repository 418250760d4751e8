package blogAuth

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/blogAuth/internal/kvtest"
	"github.com/MrEthical07/blogAuth/providers"
	"github.com/alicebob/miniredis/v2"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeCaptcha struct {
	mu    sync.Mutex
	calls int
	allow bool
	err   error
}

func (c *fakeCaptcha) Verify(_ context.Context, token, _ string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return c.allow && token == "valid-captcha", nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []providers.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg providers.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last(t testing.TB) providers.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("expected a sent email")
	}
	return m.sent[len(m.sent)-1]
}

type fakeEmailChecker struct {
	result providers.EmailCheckResult
	err    error
}

func (c fakeEmailChecker) Check(context.Context, string) (providers.EmailCheckResult, error) {
	return c.result, c.err
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	engine  *Engine
	mr      *miniredis.Miniredis
	captcha *fakeCaptcha
	mailer  *fakeMailer
	clock   *testClock
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.PrivateKey = []byte(testSecret)
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.EmailVerification.SiteURL = "https://blog.example"
	cfg.EmailVerification.From = "noreply@blog.example"
	cfg.Security.SuperAdminEmails = []string{"root@blog.example"}
	return cfg
}

func newTestEnv(t testing.TB, mutate ...func(*Config, *Builder)) *testEnv {
	t.Helper()

	mr, store := kvtest.New(t)
	env := &testEnv{
		mr:      mr,
		captcha: &fakeCaptcha{allow: true},
		mailer:  &fakeMailer{},
		clock:   &testClock{now: time.Now().UTC().Truncate(time.Second)},
	}

	cfg := testConfig()
	b := New().
		WithStore(store).
		WithCaptcha(env.captcha).
		WithMailer(env.mailer).
		WithClock(env.clock.Now)
	for _, fn := range mutate {
		fn(&cfg, b)
	}
	b.WithConfig(cfg)

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

func registerInput(username, email, name string) RegisterInput {
	return RegisterInput{
		Username:     username,
		Email:        email,
		Name:         name,
		Password:     "secret1!",
		CaptchaToken: "valid-captcha",
	}
}

func (env *testEnv) register(t testing.TB, ip string, in RegisterInput) AuthResult {
	t.Helper()
	res, err := env.engine.Register(WithClientIP(context.Background(), ip), in)
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", in.Username, err)
	}
	return res
}

var tokenParam = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

// lastVerificationToken extracts the token from the most recent email link.
func (env *testEnv) lastVerificationToken(t testing.TB) string {
	t.Helper()
	msg := env.mailer.last(t)
	m := tokenParam.FindStringSubmatch(msg.HTML)
	if m == nil {
		t.Fatalf("no verification link in email: %s", msg.HTML)
	}
	token, err := url.QueryUnescape(m[1])
	if err != nil {
		t.Fatalf("unescape token: %v", err)
	}
	return token
}

// verifiedUser registers and verifies an account with the given role.
func (env *testEnv) verifiedUser(t testing.TB, username, email, name string, role Role) {
	t.Helper()
	env.register(t, "ip-"+username, registerInput(username, email, name))
	if _, err := env.engine.VerifyEmail(context.Background(), env.lastVerificationToken(t)); err != nil {
		t.Fatalf("VerifyEmail(%s) failed: %v", username, err)
	}
	if role != RoleUser {
		rec, err := env.engine.users.Get(context.Background(), username)
		if err != nil {
			t.Fatalf("load %s: %v", username, err)
		}
		rec.Role = string(role)
		if err := env.engine.users.Save(context.Background(), rec); err != nil {
			t.Fatalf("save %s: %v", username, err)
		}
	}
}

func identityOf(username string, role Role) Identity {
	return Identity{Username: username, Role: role}
}

func expectKind(t testing.TB, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
