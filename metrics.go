package airauth

import "sync/atomic"

// MetricID indexes one counter in the in-process metrics block.
type MetricID uint8

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLocked
	MetricLoginRateLimited
	MetricMFAChallengeIssued
	MetricMFACompleteSuccess
	MetricMFACompleteFailure
	MetricTOTPValidated
	MetricBackupCodeUsed
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricLogout
	MetricRegisterSuccess
	MetricRegisterDuplicate
	MetricResetRequested
	MetricResetConfirmed
	MetricResetRejected
	MetricVerificationRequested
	MetricVerificationConfirmed
	metricIDCount
)

type paddedCounter struct {
	value atomic.Uint64
	_     [56]byte // pad to a cache line to keep hot counters from false sharing
}

// Metrics is a fixed block of atomic counters. A nil or disabled Metrics
// accepts increments and reports zeros.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// NewMetrics returns a Metrics block; when cfg.Enabled is false every
// operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc adds one to the counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	m.counters[id].value.Add(1)
}

// Value reads a single counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || !m.enabled || id >= metricIDCount {
		return 0
	}
	return m.counters[id].value.Load()
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot map[MetricID]uint64

// Snapshot copies all counters. Counters keep moving while the copy runs;
// the snapshot is consistent per counter, not across them.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := make(MetricsSnapshot, metricIDCount)
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap[id] = m.counters[id].value.Load()
	}
	return snap
}
