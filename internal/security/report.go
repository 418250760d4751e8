package security

import (
	"fmt"
	"time"
)

// Argon2 memory floor in KiB recommended for argon2id (19 MiB).
const minArgonMemory = 19 * 1024

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

type Report struct {
	SigningAlgorithm        string
	AccessTTL               time.Duration
	RefreshTTL              time.Duration
	Argon2                  PasswordReport
	CaptchaEnforced         bool
	EmailCheckActive        bool
	EmailVerificationActive bool
	RegistrationIPLimit     int
	RegistrationEmailLimit  int
	RegistrationWindow      time.Duration
	SuperAdmins             int
	AuditEnabled            bool
	Warnings                []string
}

type ReportInput struct {
	SigningAlgorithm     string
	AccessTTL            time.Duration
	RefreshTTL           time.Duration
	Password             PasswordReport
	RequireCaptcha       bool
	CaptchaConfigured    bool
	EmailCheckConfigured bool
	MailerConfigured     bool
	IPLimit              int
	EmailLimit           int
	Window               time.Duration
	SuperAdminCount      int
	AuditEnabled         bool
}

// BuildReport summarises the effective posture and lists settings an
// operator should look at before going live.
func BuildReport(input ReportInput) Report {
	r := Report{
		SigningAlgorithm:        input.SigningAlgorithm,
		AccessTTL:               input.AccessTTL,
		RefreshTTL:              input.RefreshTTL,
		Argon2:                  input.Password,
		CaptchaEnforced:         input.RequireCaptcha && input.CaptchaConfigured,
		EmailCheckActive:        input.EmailCheckConfigured,
		EmailVerificationActive: input.MailerConfigured,
		RegistrationIPLimit:     input.IPLimit,
		RegistrationEmailLimit:  input.EmailLimit,
		RegistrationWindow:      input.Window,
		SuperAdmins:             input.SuperAdminCount,
		AuditEnabled:            input.AuditEnabled,
	}

	if !r.CaptchaEnforced {
		r.Warnings = append(r.Warnings, "registration is not captcha protected")
	}
	if !r.EmailVerificationActive {
		r.Warnings = append(r.Warnings, "no mailer configured: new accounts cannot verify their email")
	}
	if input.Password.Memory < minArgonMemory {
		r.Warnings = append(r.Warnings, fmt.Sprintf("argon2 memory %d KiB is below %d KiB", input.Password.Memory, minArgonMemory))
	}
	if input.SuperAdminCount == 0 {
		r.Warnings = append(r.Warnings, "super-admin allow-list is empty")
	}
	if !input.AuditEnabled {
		r.Warnings = append(r.Warnings, "audit events are disabled")
	}
	return r
}
