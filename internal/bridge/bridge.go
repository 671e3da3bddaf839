// Package bridge lets a blocking caller wait for the reply of one correlated call.
package bridge

import (
	"context"
	"sync"
	"time"

	"bridge/internal/adapter"
	"bridge/internal/adapter/enum"
	"bridge/internal/correlation"
	"bridge/internal/errors"
	"bridge/pkg/exception"

	"github.com/yanun0323/logs"
)

const (
	// DefaultTimeout is used when WaitFor is given a non-positive timeout.
	DefaultTimeout = 5 * time.Second
	// DefaultRetention bounds how long a settled call nobody waits for stays claimable.
	DefaultRetention = time.Minute
)

// Abandoner removes an outstanding call on behalf of a waiter that gave up.
type Abandoner interface {
	Abandon(id uint64) (*correlation.PendingCall, bool)
}

// Bridge is the waiter registry. Waiters for distinct ids never block each other.
type Bridge struct {
	table     Abandoner
	timeout   time.Duration
	retention time.Duration
	now       func() time.Time
	onAbandon func(call *correlation.PendingCall)

	mu        sync.Mutex
	waiters   map[uint64]*waiter
	lastSweep time.Time
}

type waiter struct {
	call    *correlation.PendingCall
	claimed bool
	// settledAt is set when the call resolved before anyone claimed it.
	settledAt time.Time
}

// Option customizes a Bridge.
type Option func(*Bridge)

// WithDefaultTimeout overrides DefaultTimeout.
func WithDefaultTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithRetention overrides DefaultRetention.
func WithRetention(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.retention = d
		}
	}
}

// WithClock replaces time.Now for retention.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		if now != nil {
			b.now = now
		}
	}
}

// WithAbandonHook runs fn after a waiter abandoned its call.
func WithAbandonHook(fn func(call *correlation.PendingCall)) Option {
	return func(b *Bridge) {
		b.onAbandon = fn
	}
}

func New(table Abandoner, opts ...Option) *Bridge {
	b := &Bridge{
		table:     table,
		timeout:   DefaultTimeout,
		retention: DefaultRetention,
		now:       time.Now,
		waiters:   make(map[uint64]*waiter),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Register makes call waitable under its id.
func (b *Bridge) Register(call *correlation.PendingCall) error {
	if call == nil {
		return exception.ErrNilInstance
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.sweepLocked()
	// a resolved call left under the same id is superseded
	if w, exist := b.waiters[call.ID]; exist && !w.call.Resolved() {
		return errors.Wrapf(exception.ErrDuplicateID, "waiter %d", call.ID)
	}
	b.waiters[call.ID] = &waiter{call: call}
	return nil
}

// Settle is called once id has been resolved. An unclaimed call stays claimable by
// WaitFor for the retention period and is dropped afterwards.
func (b *Bridge) Settle(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sweepLocked()
	w, ok := b.waiters[id]
	if !ok || w.claimed || !w.settledAt.IsZero() {
		return
	}
	w.settledAt = b.now()
}

func (b *Bridge) sweepLocked() {
	now := b.now()
	if !b.lastSweep.IsZero() && now.Sub(b.lastSweep) < b.retention/4 {
		return
	}
	b.lastSweep = now
	for id, w := range b.waiters {
		if w.claimed || w.settledAt.IsZero() {
			continue
		}
		if now.Sub(w.settledAt) > b.retention {
			delete(b.waiters, id)
		}
	}
}

// Forget unregisters id.
func (b *Bridge) Forget(id uint64) {
	b.mu.Lock()
	delete(b.waiters, id)
	b.mu.Unlock()
}

// release unregisters id only while it still maps to call.
func (b *Bridge) release(id uint64, call *correlation.PendingCall) {
	b.mu.Lock()
	if w, ok := b.waiters[id]; ok && w.call == call {
		delete(b.waiters, id)
	}
	b.mu.Unlock()
}

// Pending returns the number of registered calls, settled ones past retention excluded.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sweepLocked()
	return len(b.waiters)
}

// claim hands the call of id to one waiter.
func (b *Bridge) claim(id uint64) (*correlation.PendingCall, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.waiters[id]
	if !ok || w.claimed {
		return nil, false
	}
	w.claimed = true
	return w.call, true
}

// WaitFor blocks until the call registered under id is resolved, the timeout elapses
// or ctx is done. The envelope is returned in every case except an unknown id, an id
// already waited on, or a settled call past retention; the error mirrors its status.
func (b *Bridge) WaitFor(ctx context.Context, id uint64, timeout time.Duration) (adapter.Envelope, error) {
	call, ok := b.claim(id)
	if !ok {
		return adapter.Envelope{ID: id}, errors.Wrapf(exception.ErrUnknownCall, "id %d", id)
	}
	defer b.release(id, call)

	if timeout <= 0 {
		timeout = b.timeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var cause error
	select {
	case <-call.Done():
		return result(call)
	case <-timer.C:
	case <-ctx.Done():
		cause = ctx.Err()
	}

	if _, taken := b.table.Abandon(id); !taken {
		// the dispatcher or Close already removed the entry, its resolution is in flight
		<-call.Done()
		return result(call)
	}

	env := adapter.Envelope{ID: id, Method: call.Method, Status: enum.CallStatusTimedOut}
	call.Resolve(env)
	if b.onAbandon != nil {
		b.onAbandon(call)
	}
	logs.Warnf("bridge: call %d (%s) timed out after %s", id, call.Method, timeout)

	if cause != nil {
		return env, errors.Wrap(exception.ErrTimedOut, cause.Error())
	}
	return env, exception.ErrTimedOut
}

func result(call *correlation.PendingCall) (adapter.Envelope, error) {
	env, _ := call.Result()
	return env, env.Err()
}
