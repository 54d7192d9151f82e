package shopAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricOTPSent counts OTP sessions persisted and handed to the notifier.
	MetricOTPSent MetricID = iota
	// MetricOTPDeliveryFailed counts notifier failures after a session was persisted.
	MetricOTPDeliveryFailed
	// MetricOTPSendRateLimited counts sends refused by the per-phone throttle.
	MetricOTPSendRateLimited
	// MetricOTPVerifySuccess counts correct, unexpired codes.
	MetricOTPVerifySuccess
	// MetricOTPVerifyInvalid counts wrong guesses under the attempt budget.
	MetricOTPVerifyInvalid
	// MetricOTPVerifyExpired counts correct codes presented after expiry.
	MetricOTPVerifyExpired
	// MetricOTPVerifyLocked counts verifications rejected by the attempt budget.
	MetricOTPVerifyLocked
	// MetricOTPSessionNotFound counts verifications against unknown session ids.
	MetricOTPSessionNotFound
	// MetricEmailProbe counts login email-step lookups.
	MetricEmailProbe
	// MetricLoginSuccess counts matching email/password checks.
	MetricLoginSuccess
	// MetricLoginFailure counts unknown emails and wrong passwords.
	MetricLoginFailure
	// MetricRegisterSuccess counts credentials stored for a new email.
	MetricRegisterSuccess
	// MetricRegisterDuplicate counts registrations refused because the email exists.
	MetricRegisterDuplicate
	// MetricTokenIssued counts auth tokens persisted.
	MetricTokenIssued
	// MetricTokenValid counts tokens resolved to an email.
	MetricTokenValid
	// MetricTokenRejected counts unknown, malformed and expired tokens.
	MetricTokenRejected
	// MetricGrantIssued counts phone grants minted after OTP verification.
	MetricGrantIssued
	// MetricStoreFailure counts record store errors surfaced as 500.
	MetricStoreFailure
	// MetricVerifyLatency is the OTP verification latency histogram.
	MetricVerifyLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters plus one latency histogram.
// A disabled Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics honoring cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricVerifyLatency has a
// histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricVerifyLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricVerifyLatency].buckets[i])
		}
		s.Histograms[MetricVerifyLatency] = buckets
	}

	return s
}

// bucketIndex maps d onto upper bounds of 5, 10, 25, 50, 100, 250, 500 ms and +Inf.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
