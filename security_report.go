package blogAuth

import (
	internalsecurity "github.com/MrEthical07/blogAuth/internal/security"
)

// SecurityReport is a read-only snapshot of the engine's security posture.
// Warnings lists settings worth reviewing before production use.
type SecurityReport = internalsecurity.Report

// PasswordConfigReport mirrors the argon2id parameters in effect.
type PasswordConfigReport = internalsecurity.PasswordReport

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	return internalsecurity.BuildReport(internalsecurity.ReportInput{
		SigningAlgorithm: cfg.JWT.SigningMethod,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		Password: internalsecurity.PasswordReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
			MinLength:   cfg.Password.MinLength,
		},
		RequireCaptcha:       cfg.Registration.RequireCaptcha,
		CaptchaConfigured:    e.captcha != nil,
		EmailCheckConfigured: e.emailCheck != nil,
		MailerConfigured:     e.mailer != nil,
		IPLimit:              cfg.Registration.IPLimit,
		EmailLimit:           cfg.Registration.EmailLimit,
		Window:               cfg.Registration.Window,
		SuperAdminCount:      len(cfg.Security.SuperAdminEmails),
		AuditEnabled:         cfg.Audit.Enabled,
	})
}
