// Package latency stamps dispatch times per correlation id and resolves round-trip
// durations when the matching reply arrives.
package latency

import (
	"sync"
	"time"
)

// DefaultTTL bounds how long a dispatch stamp is kept without a reply.
const DefaultTTL = time.Minute

// Recorder is a small time-bounded cache of dispatch stamps keyed by correlation id.
// Stamps for calls that never get a reply are evicted after the ttl.
type Recorder struct {
	mu        sync.Mutex
	sent      map[uint64]time.Time
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// Option customizes a Recorder.
type Option func(*Recorder)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder creates a recorder. A non-positive ttl falls back to DefaultTTL.
func NewRecorder(ttl time.Duration, opts ...Option) *Recorder {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Recorder{
		sent: make(map[uint64]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.lastSweep = r.now()
	return r
}

// Now returns the recorder clock.
func (r *Recorder) Now() time.Time {
	return r.now()
}

// MarkSent stamps the dispatch time of id and returns it.
func (r *Recorder) MarkSent(id uint64) time.Time {
	now := r.now()
	r.mu.Lock()
	r.sent[id] = now
	if now.Sub(r.lastSweep) >= r.ttl {
		r.sweepLocked(now)
	}
	r.mu.Unlock()
	return now
}

// MarkReceived consumes the stamp of id and returns the elapsed time since dispatch.
func (r *Recorder) MarkReceived(id uint64) (time.Duration, bool) {
	now := r.now()
	r.mu.Lock()
	sent, ok := r.sent[id]
	if ok {
		delete(r.sent, id)
	}
	r.mu.Unlock()
	if !ok {
		return 0, false
	}
	return now.Sub(sent), true
}

// Forget drops the stamp of id without measuring it.
func (r *Recorder) Forget(id uint64) {
	r.mu.Lock()
	delete(r.sent, id)
	r.mu.Unlock()
}

// Sweep evicts every stamp older than the ttl and returns how many were dropped.
func (r *Recorder) Sweep() int {
	now := r.now()
	r.mu.Lock()
	n := r.sweepLocked(now)
	r.mu.Unlock()
	return n
}

// Len returns the number of outstanding stamps.
func (r *Recorder) Len() int {
	r.mu.Lock()
	n := len(r.sent)
	r.mu.Unlock()
	return n
}

func (r *Recorder) sweepLocked(now time.Time) int {
	r.lastSweep = now
	evicted := 0
	for id, sent := range r.sent {
		if now.Sub(sent) > r.ttl {
			delete(r.sent, id)
			evicted++
		}
	}
	return evicted
}
