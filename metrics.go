package lockana

import (
	"sync/atomic"
	"time"
)

// MetricID identifies an Engine counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that issued a token.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected credentials, unknown users included.
	MetricLoginFailure
	// MetricLoginBlocked counts logins refused because of an active block.
	MetricLoginBlocked
	// MetricBlockCreated counts failures that placed a username or address under a block.
	MetricBlockCreated
	// MetricOTPReplay counts valid codes rejected because their time step was already used.
	MetricOTPReplay
	// MetricOTPFormatError counts codes or secrets rejected before verification.
	MetricOTPFormatError
	// MetricLogout counts revoked tokens.
	MetricLogout
	// MetricTokenRejected counts tokens failing signature, expiry or role checks.
	MetricTokenRejected
	// MetricTokenRevokedRejected counts presented tokens found in the revocation set.
	MetricTokenRevokedRejected
	// MetricPermissionDenied counts authorization failures.
	MetricPermissionDenied
	// MetricSecretRotated counts one-time-code secret rotations.
	MetricSecretRotated
	// MetricRevocationsSwept counts expired revocations removed by the sweeper.
	MetricRevocationsSwept
	// MetricValidateLatency is the token validation latency histogram.
	MetricValidateLatency
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

// Metrics is a lock-free set of counters plus one latency histogram.
//
// Metrics instances are configured during initialization and then only incremented.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histogram buckets.
// Histogram buckets are non-cumulative.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics configured from cfg.
//
// A disabled Metrics ignores every increment and reports empty snapshots.
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

// LatencyEnabled reports whether the validate latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc describes the inc operation and its observable behavior.
//
// Inc is safe for concurrent use and a no-op on a nil or disabled Metrics.
func (m *Metrics) Inc(id MetricID) {
	m.Add(id, 1)
}

// Add increments counter id by n.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d into the histogram for id. Only MetricValidateLatency has a
// histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot reads each counter atomically; the snapshot as a whole is not a
// consistent cut across counters.
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
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
	}

	return s
}

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
