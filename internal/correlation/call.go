package correlation

import (
	"sync"
	"sync/atomic"
	"time"

	"bridge/internal/adapter"
)

// PendingCall is one outstanding correlated operation. It is resolved at most once;
// later resolutions are ignored.
type PendingCall struct {
	ID     uint64
	Method string
	SentAt time.Time

	once     sync.Once
	done     chan struct{}
	resolved atomic.Bool
	result   adapter.Envelope
}

func NewPendingCall(id uint64, method string, sentAt time.Time) *PendingCall {
	return &PendingCall{
		ID:     id,
		Method: method,
		SentAt: sentAt,
		done:   make(chan struct{}),
	}
}

// Resolve stores the outcome and fires the completion signal. It reports whether
// this call was the one that resolved it.
func (c *PendingCall) Resolve(env adapter.Envelope) bool {
	fired := false
	c.once.Do(func() {
		env.ID = c.ID
		if env.Method == "" {
			env.Method = c.Method
		}
		c.result = env
		c.resolved.Store(true)
		close(c.done)
		fired = true
	})
	return fired
}

// Done is closed once the call has an outcome.
func (c *PendingCall) Done() <-chan struct{} {
	return c.done
}

func (c *PendingCall) Resolved() bool {
	return c.resolved.Load()
}

// Result returns the outcome, or false while the call is still pending.
func (c *PendingCall) Result() (adapter.Envelope, bool) {
	if !c.resolved.Load() {
		return adapter.Envelope{}, false
	}
	return c.result, true
}
