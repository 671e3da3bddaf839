package obs

import (
	"sync/atomic"
	"time"

	"bridge/internal/adapter"
	"bridge/internal/adapter/enum"
)

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	sessionCalls [enum.CallStatusCount]uint64
	restCalls    [enum.CallStatusCount]uint64

	malformedFrames uint64
	lateReplies     uint64
	notifications   uint64
	unrouted        uint64
	poolSaturated   uint64

	sessionLatency LatencyStats
	restLatency    LatencyStats
	remoteLatency  LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64        `json:"count"`
	Min   time.Duration `json:"min_ns"`
	Max   time.Duration `json:"max_ns"`
	Avg   time.Duration `json:"avg_ns"`
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	SessionCalls    map[string]uint64 `json:"session_calls"`
	RESTCalls       map[string]uint64 `json:"rest_calls"`
	MalformedFrames uint64            `json:"malformed_frames"`
	LateReplies     uint64            `json:"late_replies"`
	Notifications   uint64            `json:"notifications"`
	Unrouted        uint64            `json:"unrouted_notifications"`
	PoolSaturated   uint64            `json:"pool_saturated"`
	SessionLatency  LatencySnapshot   `json:"session_latency"`
	RESTLatency     LatencySnapshot   `json:"rest_latency"`
	RemoteLatency   LatencySnapshot   `json:"remote_latency"`
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveSessionCall counts a correlated call by status and tracks its latency.
func (m *Metrics) ObserveSessionCall(env adapter.Envelope) {
	if m == nil {
		return
	}
	m.observe(&m.sessionCalls, &m.sessionLatency, env)
}

// ObserveRESTCall counts a one-shot call by status and tracks its latency.
func (m *Metrics) ObserveRESTCall(env adapter.Envelope) {
	if m == nil {
		return
	}
	m.observe(&m.restCalls, &m.restLatency, env)
}

func (m *Metrics) observe(counts *[enum.CallStatusCount]uint64, stats *LatencyStats, env adapter.Envelope) {
	idx := int(env.Status)
	if idx >= 0 && idx < len(counts) {
		atomic.AddUint64(&counts[idx], 1)
	}
	if env.Latency > 0 {
		stats.Observe(env.Latency)
	}
	if env.HasRemoteLatency {
		m.remoteLatency.Observe(env.RemoteLatency)
	}
}

// IncMalformed records a frame that could not be decoded.
func (m *Metrics) IncMalformed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.malformedFrames, 1)
}

// IncLateReply records a reply that arrived after its waiter gave up.
func (m *Metrics) IncLateReply() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.lateReplies, 1)
}

// IncNotification records a notification, routed to a consumer or not.
func (m *Metrics) IncNotification(routed bool) {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.notifications, 1)
	if !routed {
		atomic.AddUint64(&m.unrouted, 1)
	}
}

// IncPoolSaturated records a rejected pool submission.
func (m *Metrics) IncPoolSaturated() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.poolSaturated, 1)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		SessionCalls:    countsByStatus(&m.sessionCalls),
		RESTCalls:       countsByStatus(&m.restCalls),
		MalformedFrames: atomic.LoadUint64(&m.malformedFrames),
		LateReplies:     atomic.LoadUint64(&m.lateReplies),
		Notifications:   atomic.LoadUint64(&m.notifications),
		Unrouted:        atomic.LoadUint64(&m.unrouted),
		PoolSaturated:   atomic.LoadUint64(&m.poolSaturated),
		SessionLatency:  m.sessionLatency.Snapshot(),
		RESTLatency:     m.restLatency.Snapshot(),
		RemoteLatency:   m.remoteLatency.Snapshot(),
	}
}

func countsByStatus(counts *[enum.CallStatusCount]uint64) map[string]uint64 {
	out := make(map[string]uint64)
	for i := range counts {
		if v := atomic.LoadUint64(&counts[i]); v > 0 {
			out[enum.CallStatus(i).String()] = v
		}
	}
	return out
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
