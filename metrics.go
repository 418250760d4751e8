package blogAuth

import (
	internalmetrics "github.com/MrEthical07/blogAuth/internal/metrics"
)

// MetricID identifies a counter or histogram in the in-process metrics.
type MetricID = internalmetrics.MetricID

const (
	MetricLoginSuccess                = internalmetrics.MetricLoginSuccess
	MetricLoginFailure                = internalmetrics.MetricLoginFailure
	MetricLoginForbidden              = internalmetrics.MetricLoginForbidden
	MetricRefreshSuccess              = internalmetrics.MetricRefreshSuccess
	MetricRefreshFailure              = internalmetrics.MetricRefreshFailure
	MetricRefreshRevoked              = internalmetrics.MetricRefreshRevoked
	MetricLogout                      = internalmetrics.MetricLogout
	MetricRegistrationSuccess         = internalmetrics.MetricRegistrationSuccess
	MetricRegistrationDuplicate       = internalmetrics.MetricRegistrationDuplicate
	MetricRegistrationRateLimited     = internalmetrics.MetricRegistrationRateLimited
	MetricRegistrationCaptchaRejected = internalmetrics.MetricRegistrationCaptchaRejected
	MetricRegistrationInvalid         = internalmetrics.MetricRegistrationInvalid
	MetricEmailVerificationSent       = internalmetrics.MetricEmailVerificationSent
	MetricEmailVerificationSuccess    = internalmetrics.MetricEmailVerificationSuccess
	MetricEmailVerificationFailure    = internalmetrics.MetricEmailVerificationFailure
	MetricEmailDeliveryFailure        = internalmetrics.MetricEmailDeliveryFailure
	MetricTokenVerifyFailure          = internalmetrics.MetricTokenVerifyFailure
	MetricProfileUpdate               = internalmetrics.MetricProfileUpdate
	MetricPasswordChange              = internalmetrics.MetricPasswordChange
	MetricAdminActionSuccess          = internalmetrics.MetricAdminActionSuccess
	MetricAdminActionDenied           = internalmetrics.MetricAdminActionDenied
	MetricAccountDisabled             = internalmetrics.MetricAccountDisabled
	MetricAccountDeleted              = internalmetrics.MetricAccountDeleted
	MetricRateLimitHit                = internalmetrics.MetricRateLimitHit
	MetricLoginRateLimited            = internalmetrics.MetricLoginRateLimited
	MetricResendRateLimited           = internalmetrics.MetricResendRateLimited
	// MetricVerifyLatency is the access token verification latency histogram.
	MetricVerifyLatency = internalmetrics.MetricVerifyLatency
)

// Metrics holds atomic counters and the optional latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics returns a Metrics instance; when cfg.Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}

// MetricsSnapshot returns current counter values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}
