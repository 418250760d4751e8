// Package appconfig loads blogauth-server settings.
//
// Loading order:
//  1. .env (secrets and BLOGAUTH_CONFIG), missing file is fine
//  2. built-in defaults
//  3. the YAML file named by the caller or BLOGAUTH_CONFIG
//  4. environment variables, which win over YAML
package appconfig

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	blogAuth "github.com/MrEthical07/blogAuth"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendRedis = "redis"
	BackendEtcd  = "etcd"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	Email   EmailConfig   `yaml:"email"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`

	// Secrets come from the environment only.
	JWTSecret        string `yaml:"-"`
	CaptchaSecret    string `yaml:"-"`
	EmailCheckAPIKey string `yaml:"-"`
	MailAPIKey       string `yaml:"-"`
}

type ServerConfig struct {
	Addr              string        `yaml:"addr"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	TrustProxyHeaders bool          `yaml:"trust_proxy_headers"`
}

type StoreConfig struct {
	Backend       string        `yaml:"backend"`
	Namespace     string        `yaml:"namespace"`
	RedisURL      string        `yaml:"redis_url"`
	EtcdEndpoints []string      `yaml:"etcd_endpoints"`
	DialTimeout   time.Duration `yaml:"dial_timeout"`
}

type AuthConfig struct {
	Issuer             string        `yaml:"issuer"`
	AccessTTL          time.Duration `yaml:"access_ttl"`
	RefreshTTL         time.Duration `yaml:"refresh_ttl"`
	RequireCaptcha     bool          `yaml:"require_captcha"`
	IPLimit            int           `yaml:"ip_limit"`
	EmailLimit         int           `yaml:"email_limit"`
	LoginMaxAttempts   int           `yaml:"login_max_attempts"`
	LoginIPMaxAttempts int           `yaml:"login_ip_max_attempts"`
	LoginWindow        time.Duration `yaml:"login_window"`
	SuperAdminEmails   []string      `yaml:"super_admin_emails"`
}

type EmailConfig struct {
	SiteURL              string        `yaml:"site_url"`
	VerifyPath           string        `yaml:"verify_path"`
	From                 string        `yaml:"from"`
	FromName             string        `yaml:"from_name"`
	TokenTTL             time.Duration `yaml:"token_ttl"`
	ResendEmailLimit     int           `yaml:"resend_email_limit"`
	ResendIPLimit        int           `yaml:"resend_ip_limit"`
	SensitiveWords       []string      `yaml:"sensitive_words"`
	AllowedRedirectHosts []string      `yaml:"allowed_redirect_hosts"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the settings used when no file or variable overrides them.
func Default() *Config {
	engine := blogAuth.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RequestTimeout:  10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Store: StoreConfig{
			Backend:       BackendRedis,
			Namespace:     "blogauth",
			RedisURL:      "redis://localhost:6379/0",
			EtcdEndpoints: []string{"localhost:2379"},
			DialTimeout:   5 * time.Second,
		},
		Auth: AuthConfig{
			AccessTTL:      engine.JWT.AccessTTL,
			RefreshTTL:     engine.JWT.RefreshTTL,
			RequireCaptcha:     engine.Registration.RequireCaptcha,
			IPLimit:            engine.Registration.IPLimit,
			EmailLimit:         engine.Registration.EmailLimit,
			LoginMaxAttempts:   engine.Login.MaxAttempts,
			LoginIPMaxAttempts: engine.Login.IPMaxAttempts,
			LoginWindow:        engine.Login.Window,
		},
		Email: EmailConfig{
			VerifyPath:       engine.EmailVerification.VerifyPath,
			FromName:         engine.EmailVerification.FromName,
			TokenTTL:         engine.EmailVerification.TokenTTL,
			ResendEmailLimit: engine.EmailVerification.ResendEmailLimit,
			ResendIPLimit:    engine.EmailVerification.ResendIPLimit,
		},
		Log:     LogConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads .env from envFile (if present), then the YAML at path.
// An empty path falls back to BLOGAUTH_CONFIG; no file at all is allowed.
func Load(envFile, path string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("BLOGAUTH_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.CaptchaSecret, "CAPTCHA_SECRET")
	setString(&c.EmailCheckAPIKey, "EMAIL_CHECK_API_KEY")
	setString(&c.MailAPIKey, "MAIL_API_KEY")
	setString(&c.Email.From, "MAIL_FROM")
	setString(&c.Email.SiteURL, "SITE_URL")
	setString(&c.Server.Addr, "LISTEN_ADDR")
	setString(&c.Store.Backend, "STORE_BACKEND")
	setString(&c.Store.RedisURL, "REDIS_URL")
	setString(&c.Log.Level, "LOG_LEVEL")
	setList(&c.Store.EtcdEndpoints, "ETCD_ENDPOINTS")
	setList(&c.Auth.SuperAdminEmails, "SUPER_ADMIN_EMAILS")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

// Validate checks server-level settings. Engine settings are validated by
// the engine builder.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.Store.Backend {
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return errors.New("store.redis_url is required for the redis backend")
		}
	case BackendEtcd:
		if len(c.Store.EtcdEndpoints) == 0 {
			return errors.New("store.etcd_endpoints is required for the etcd backend")
		}
	default:
		return fmt.Errorf("unsupported store backend %q", c.Store.Backend)
	}
	if c.Auth.RequireCaptcha && c.CaptchaSecret == "" {
		return errors.New("CAPTCHA_SECRET is required when captcha is enforced")
	}
	if c.MailAPIKey != "" && (c.Email.From == "" || c.Email.SiteURL == "") {
		return errors.New("MAIL_FROM and SITE_URL are required when MAIL_API_KEY is set")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New("server.max_body_bytes must be > 0")
	}
	return nil
}

// Engine maps the loaded settings onto the engine config.
func (c *Config) Engine() blogAuth.Config {
	cfg := blogAuth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(c.JWTSecret)
	cfg.JWT.Issuer = c.Auth.Issuer
	if c.Auth.AccessTTL > 0 {
		cfg.JWT.AccessTTL = c.Auth.AccessTTL
	}
	if c.Auth.RefreshTTL > 0 {
		cfg.JWT.RefreshTTL = c.Auth.RefreshTTL
	}
	cfg.Registration.RequireCaptcha = c.Auth.RequireCaptcha
	if c.Auth.IPLimit > 0 {
		cfg.Registration.IPLimit = c.Auth.IPLimit
	}
	if c.Auth.EmailLimit > 0 {
		cfg.Registration.EmailLimit = c.Auth.EmailLimit
	}
	if c.Auth.LoginMaxAttempts > 0 {
		cfg.Login.MaxAttempts = c.Auth.LoginMaxAttempts
	}
	if c.Auth.LoginIPMaxAttempts > 0 {
		cfg.Login.IPMaxAttempts = c.Auth.LoginIPMaxAttempts
	}
	if c.Auth.LoginWindow > 0 {
		cfg.Login.Window = c.Auth.LoginWindow
	}
	if c.Email.ResendEmailLimit > 0 {
		cfg.EmailVerification.ResendEmailLimit = c.Email.ResendEmailLimit
	}
	if c.Email.ResendIPLimit > 0 {
		cfg.EmailVerification.ResendIPLimit = c.Email.ResendIPLimit
	}
	cfg.Security.SuperAdminEmails = append([]string(nil), c.Auth.SuperAdminEmails...)

	cfg.EmailVerification.SiteURL = c.Email.SiteURL
	cfg.EmailVerification.From = c.Email.From
	if c.Email.VerifyPath != "" {
		cfg.EmailVerification.VerifyPath = c.Email.VerifyPath
	}
	if c.Email.FromName != "" {
		cfg.EmailVerification.FromName = c.Email.FromName
	}
	if c.Email.TokenTTL > 0 {
		cfg.EmailVerification.TokenTTL = c.Email.TokenTTL
	}
	cfg.EmailVerification.SensitiveWords = append([]string(nil), c.Email.SensitiveWords...)
	cfg.EmailVerification.AllowedRedirectHosts = append([]string(nil), c.Email.AllowedRedirectHosts...)

	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = c.Metrics.Enabled
	return cfg
}

// NewLogger builds the process logger.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// String summarises the config without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Addr: %s, Store: %s, Captcha: %t, Mail: %t}",
		c.Server.Addr, c.Store.Backend, c.Auth.RequireCaptcha, c.MailAPIKey != "")
}
