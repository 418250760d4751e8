package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a counter or histogram slot.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginForbidden
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricRefreshRevoked
	MetricLogout
	MetricRegistrationSuccess
	MetricRegistrationDuplicate
	MetricRegistrationRateLimited
	MetricRegistrationCaptchaRejected
	MetricRegistrationInvalid
	MetricEmailVerificationSent
	MetricEmailVerificationSuccess
	MetricEmailVerificationFailure
	MetricEmailDeliveryFailure
	MetricTokenVerifyFailure
	MetricProfileUpdate
	MetricPasswordChange
	MetricAdminActionSuccess
	MetricAdminActionDenied
	MetricAccountDisabled
	MetricAccountDeleted
	MetricRateLimitHit
	MetricLoginRateLimited
	MetricResendRateLimited
	MetricVerifyLatency

	MetricIDCount
)

const (
	// HistogramBucketCount is the number of latency buckets, including +Inf.
	HistogramBucketCount = 8
	cacheLineSize        = 64
)

// BucketBounds are the inclusive upper bounds of the finite buckets.
var BucketBounds = [HistogramBucketCount - 1]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

type histogram struct {
	buckets [HistogramBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled       bool
	EnableLatency bool
}

// Metrics holds the counters. The zero value and nil are both disabled.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [MetricIDCount]paddedCounter
	histograms    [MetricIDCount]histogram
}

// Snapshot is a point-in-time copy. Histograms holds per-bucket counts,
// not cumulative ones.
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func New(cfg Config) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatency,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= MetricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram for id. Only MetricVerifyLatency is
// a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricVerifyLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[BucketIndex(d)], 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= MetricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil || !m.enabled {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, int(MetricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < MetricIDCount; id++ {
		if id == MetricVerifyLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, HistogramBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}
	return s
}

// BucketIndex maps a duration onto a histogram slot.
func BucketIndex(d time.Duration) int {
	for i, bound := range BucketBounds {
		if d <= bound {
			return i
		}
	}
	return HistogramBucketCount - 1
}
