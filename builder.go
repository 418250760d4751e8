package blogAuth

import (
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/blogAuth/internal/audit"
	"github.com/MrEthical07/blogAuth/internal/limiters"
	"github.com/MrEthical07/blogAuth/internal/sanitize"
	"github.com/MrEthical07/blogAuth/internal/stores"
	"github.com/MrEthical07/blogAuth/jwt"
	"github.com/MrEthical07/blogAuth/kv"
	"github.com/MrEthical07/blogAuth/password"
	"github.com/MrEthical07/blogAuth/permission"
	"github.com/MrEthical07/blogAuth/providers"
)

// Builder assembles an Engine. A Builder can be built once.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time

	captcha    providers.CaptchaVerifier
	emailCheck providers.EmailChecker
	mailer     providers.Mailer
	auditSink  AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the key-value store holding users, tokens and counters.
func (b *Builder) WithStore(store kv.Store) *Builder {
	b.store = store
	return b
}

// WithLogger sets the logger for degraded-path warnings. Defaults to slog.Default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for token issuance and record timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithCaptcha sets the CAPTCHA verifier gating registration.
func (b *Builder) WithCaptcha(v providers.CaptchaVerifier) *Builder {
	b.captcha = v
	return b
}

// WithEmailChecker enables the optional deliverability check at registration.
func (b *Builder) WithEmailChecker(c providers.EmailChecker) *Builder {
	b.emailCheck = c
	return b
}

// WithMailer sets the transactional email provider for verification emails.
func (b *Builder) WithMailer(m providers.Mailer) *Builder {
	b.mailer = m
	return b
}

// WithAuditSink sets the audit destination. Audit.Enabled must also be true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process metrics.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the token verification latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine.
//
// Build may return an error when the configuration is invalid or a required
// collaborator is missing.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.store == nil {
		return nil, errors.New("kv store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Registration.RequireCaptcha && b.captcha == nil {
		return nil, errors.New("Registration RequireCaptcha requires a captcha verifier")
	}
	if b.mailer != nil {
		if cfg.EmailVerification.From == "" {
			return nil, errors.New("EmailVerification From required when a mailer is configured")
		}
		if cfg.EmailVerification.SiteURL == "" {
			return nil, errors.New("EmailVerification SiteURL required when a mailer is configured")
		}
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	// -------- PASSWORDS --------
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		MinLength:   cfg.Password.MinLength,
	})
	if err != nil {
		return nil, err
	}

	ev := cfg.EmailVerification
	engine := &Engine{
		config:        cfg,
		store:         b.store,
		users:         stores.NewUserDirectory(b.store),
		verifications: stores.NewVerificationStore(b.store),
		pending:       stores.NewPendingMarkers(b.store),
		revocations:   stores.NewRevocationList(b.store),
		limiter: limiters.NewRegistrationLimiter(b.store, limiters.RegistrationConfig{
			IPLimit:    cfg.Registration.IPLimit,
			EmailLimit: cfg.Registration.EmailLimit,
			Window:     cfg.Registration.Window,
		}),
		loginLimiter: limiters.NewLoginLimiter(b.store, limiters.LoginConfig{
			MaxAttempts:   cfg.Login.MaxAttempts,
			IPMaxAttempts: cfg.Login.IPMaxAttempts,
			Window:        cfg.Login.Window,
		}),
		resendLimiter: limiters.NewVerificationLimiter(b.store, limiters.VerificationConfig{
			EmailLimit: ev.ResendEmailLimit,
			IPLimit:    ev.ResendIPLimit,
			Window:     ev.ResendWindow,
		}),
		jwtManager: jm,
		hasher:     hasher,
		policy:     permission.NewPolicy(cfg.Security.SuperAdminEmails),
		sanitizer: sanitize.New(sanitize.Config{
			MaxSubjectLength:     ev.MaxSubjectLength,
			MaxBodyLength:        ev.MaxBodyLength,
			MaxFromNameLength:    ev.MaxFromNameLength,
			SensitiveWords:       ev.SensitiveWords,
			AllowedRedirectHosts: ev.AllowedRedirectHosts,
		}),
		captcha:    b.captcha,
		emailCheck: b.emailCheck,
		mailer:     b.mailer,
		metrics:    NewMetrics(cfg.Metrics),
		logger:     logger,
		now:        now,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	b.built = true

	return engine, nil
}
