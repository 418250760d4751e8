package appconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// clearEnv blanks every variable Load reads so the host environment does
// not leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BLOGAUTH_CONFIG", "JWT_SECRET", "CAPTCHA_SECRET", "EMAIL_CHECK_API_KEY", "MAIL_API_KEY",
		"MAIL_FROM", "SITE_URL", "LISTEN_ADDR", "STORE_BACKEND", "REDIS_URL", "LOG_LEVEL",
		"ETCD_ENDPOINTS", "SUPER_ADMIN_EMAILS",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsWithSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CAPTCHA_SECRET", "captcha")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.True(t, cfg.Auth.RequireCaptcha)
	assert.Equal(t, 5, cfg.Auth.IPLimit)
	assert.Equal(t, 3, cfg.Auth.EmailLimit)

	engine := cfg.Engine()
	assert.Equal(t, []byte(testSecret), engine.JWT.PrivateKey)
	assert.Equal(t, 24*time.Hour, engine.JWT.AccessTTL)
	assert.NoError(t, engine.Validate())
}

func TestLoadYAMLThenEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "blogauth.yaml", `
server:
  addr: ":9090"
  request_timeout: 3s
store:
  backend: etcd
  etcd_endpoints: ["etcd-1:2379"]
auth:
  access_ttl: 30m
  require_captcha: false
  login_max_attempts: 8
  super_admin_emails: [yaml@blog.example]
email:
  site_url: https://yaml.example
  token_ttl: 12h
log:
  level: debug
`)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SITE_URL", "https://env.example")
	t.Setenv("SUPER_ADMIN_EMAILS", "root@blog.example, ops@blog.example")

	cfg, err := Load("", path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, BackendEtcd, cfg.Store.Backend)
	assert.Equal(t, []string{"etcd-1:2379"}, cfg.Store.EtcdEndpoints)
	assert.False(t, cfg.Auth.RequireCaptcha)
	assert.Equal(t, "https://env.example", cfg.Email.SiteURL)
	assert.Equal(t, []string{"root@blog.example", "ops@blog.example"}, cfg.Auth.SuperAdminEmails)

	engine := cfg.Engine()
	assert.Equal(t, 30*time.Minute, engine.JWT.AccessTTL)
	assert.Equal(t, 12*time.Hour, engine.EmailVerification.TokenTTL)
	assert.False(t, engine.Registration.RequireCaptcha)
	assert.Equal(t, 8, engine.Login.MaxAttempts)
	assert.Equal(t, 20, engine.Login.IPMaxAttempts)
	assert.Equal(t, 3, engine.EmailVerification.ResendEmailLimit)
	assert.Equal(t, "https://env.example", engine.EmailVerification.SiteURL)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	envFile := writeFile(t, ".env", "JWT_SECRET="+testSecret+"\nCAPTCHA_SECRET=from-dotenv\n")
	// godotenv keeps variables that are already set, even empty ones.
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	require.NoError(t, os.Unsetenv("CAPTCHA_SECRET"))
	t.Cleanup(func() {
		_ = os.Unsetenv("JWT_SECRET")
		_ = os.Unsetenv("CAPTCHA_SECRET")
	})

	cfg, err := Load(envFile, "")
	require.NoError(t, err)
	assert.Equal(t, testSecret, cfg.JWTSecret)
	assert.Equal(t, "from-dotenv", cfg.CaptchaSecret)
}

func TestLoadMissingDotEnvIsFine(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("CAPTCHA_SECRET", "captcha")

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"), "")
	assert.NoError(t, err)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
		want string
	}{
		{name: "missing jwt secret", env: map[string]string{"CAPTCHA_SECRET": "c"}, want: "JWT_SECRET"},
		{name: "captcha secret", env: map[string]string{"JWT_SECRET": testSecret}, want: "CAPTCHA_SECRET"},
		{name: "backend", env: map[string]string{"JWT_SECRET": testSecret, "CAPTCHA_SECRET": "c", "STORE_BACKEND": "mongo"}, want: "unsupported store backend"},
		{name: "mail without from", env: map[string]string{"JWT_SECRET": testSecret, "CAPTCHA_SECRET": "c", "MAIL_API_KEY": "k"}, want: "MAIL_FROM"},
		{name: "bad yaml", env: map[string]string{"JWT_SECRET": testSecret}, yaml: "server: [", want: "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, "bad.yaml", tt.yaml)
			}
			_, err := Load("", path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}
