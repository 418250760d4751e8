package blogAuth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/blogAuth/permission"
)

// Config defines every tunable of the engine.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT               JWTConfig
	Password          PasswordConfig
	Registration      RegistrationConfig
	Login             LoginConfig
	EmailVerification EmailVerificationConfig
	Security          SecurityConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token lifetimes and signing.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	// PrivateKey is the HMAC secret for hs256.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Leeway     time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters and the minimum length.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int

	// UpgradeOnLogin rehashes a stored hash on successful login when it was
	// produced with weaker argon2 parameters than the current ones.
	UpgradeOnLogin bool
}

/*
====================================
REGISTRATION CONFIG
====================================
*/

// RegistrationConfig controls self-service sign-up.
//
// RegistrationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RegistrationConfig struct {
	IPLimit    int
	EmailLimit int
	Window     time.Duration
	// PendingCleanupTTL bounds the pending_cleanup marker written for
	// unverified accounts.
	PendingCleanupTTL time.Duration
	RequireCaptcha    bool
	DefaultRole       Role
}

/*
====================================
LOGIN CONFIG
====================================
*/

// LoginConfig throttles password guessing. Failed attempts are counted per
// username and per client IP in a fixed window; once either budget is spent,
// Login fails with ErrLoginRateLimited until the window ends. A successful
// login clears the username counter only.
type LoginConfig struct {
	MaxAttempts   int
	IPMaxAttempts int
	Window        time.Duration
}

/*
====================================
EMAIL VERIFICATION CONFIG
====================================
*/

// EmailVerificationConfig controls verification tokens and the email they
// are delivered in.
type EmailVerificationConfig struct {
	TokenTTL time.Duration
	// SiteURL is the public base URL; the link is SiteURL + VerifyPath + "?token=".
	SiteURL        string
	VerifyPath     string
	From           string
	FromName       string
	DefaultSubject string

	SensitiveWords       []string
	AllowedRedirectHosts []string
	MaxSubjectLength     int
	MaxBodyLength        int
	MaxFromNameLength    int

	// Resend limits cap ResendVerification per target email and per client IP.
	ResendEmailLimit int
	ResendIPLimit    int
	ResendWindow     time.Duration
}

// SecurityConfig holds authorization settings.
type SecurityConfig struct {
	// SuperAdminEmails lists the emails of admins exempt from the peer-admin
	// rule and protected from ordinary admins.
	SuperAdminEmails []string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process metrics.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults. JWT keys, the verification
// sender and the site URL must still be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     24 * time.Hour,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			UpgradeOnLogin: true,
		},
		Registration: RegistrationConfig{
			IPLimit:           5,
			EmailLimit:        3,
			Window:            time.Hour,
			PendingCleanupTTL: 24 * time.Hour,
			RequireCaptcha:    true,
			DefaultRole:       RoleUser,
		},
		Login: LoginConfig{
			MaxAttempts:   5,
			IPMaxAttempts: 20,
			Window:        15 * time.Minute,
		},
		EmailVerification: EmailVerificationConfig{
			TokenTTL:          24 * time.Hour,
			VerifyPath:        "/verify-email",
			FromName:          "Blog",
			DefaultSubject:    "Verify your email address",
			MaxSubjectLength:  200,
			MaxBodyLength:     10000,
			MaxFromNameLength: 100,
			ResendEmailLimit:  3,
			ResendIPLimit:     10,
			ResendWindow:      time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.EmailVerification.SensitiveWords = cloneStrings(cfg.EmailVerification.SensitiveWords)
	out.EmailVerification.AllowedRedirectHosts = cloneStrings(cfg.EmailVerification.AllowedRedirectHosts)
	out.Security.SuperAdminEmails = cloneStrings(cfg.Security.SuperAdminEmails)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PublicKey")
		}
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Password
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	// Registration
	if c.Registration.IPLimit < 0 || c.Registration.EmailLimit < 0 {
		return errors.New("Registration limits must be >= 0")
	}
	if (c.Registration.IPLimit > 0 || c.Registration.EmailLimit > 0) && c.Registration.Window <= 0 {
		return errors.New("Registration Window must be > 0 when limits are set")
	}
	if c.Registration.PendingCleanupTTL <= 0 {
		return errors.New("Registration PendingCleanupTTL must be > 0")
	}
	if _, err := permission.ParseRole(string(c.Registration.DefaultRole)); err != nil {
		return fmt.Errorf("Registration DefaultRole: %w", err)
	}
	if c.Registration.DefaultRole == RoleAdmin {
		return errors.New("Registration DefaultRole must not be admin")
	}

	// Login
	if c.Login.MaxAttempts < 0 || c.Login.IPMaxAttempts < 0 {
		return errors.New("Login attempt limits must be >= 0")
	}
	if (c.Login.MaxAttempts > 0 || c.Login.IPMaxAttempts > 0) && c.Login.Window <= 0 {
		return errors.New("Login Window must be > 0 when limits are set")
	}

	// Email verification
	ev := c.EmailVerification
	if ev.TokenTTL <= 0 {
		return errors.New("EmailVerification TokenTTL must be > 0")
	}
	if ev.SiteURL != "" {
		u, err := url.Parse(ev.SiteURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("EmailVerification SiteURL must be an absolute http(s) URL")
		}
	}
	if !strings.HasPrefix(ev.VerifyPath, "/") {
		return errors.New("EmailVerification VerifyPath must start with /")
	}
	if ev.MaxSubjectLength <= 0 || ev.MaxBodyLength <= 0 || ev.MaxFromNameLength <= 0 {
		return errors.New("EmailVerification length limits must be > 0")
	}
	if ev.ResendEmailLimit < 0 || ev.ResendIPLimit < 0 {
		return errors.New("EmailVerification resend limits must be >= 0")
	}
	if (ev.ResendEmailLimit > 0 || ev.ResendIPLimit > 0) && ev.ResendWindow <= 0 {
		return errors.New("EmailVerification ResendWindow must be > 0 when limits are set")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
