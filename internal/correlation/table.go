// Package correlation matches inbound replies to the outstanding calls that caused them.
package correlation

import (
	"sync"
	"time"

	"bridge/internal/errors"
	"bridge/pkg/exception"
)

// DefaultTombstoneTTL bounds how long an abandoned id is remembered.
const DefaultTombstoneTTL = time.Minute

// Table maps correlation ids to pending calls. Every removal path is exclusive: the
// caller that removes an entry is the only one allowed to finalize it.
type Table struct {
	mu        sync.Mutex
	calls     map[uint64]*PendingCall
	abandoned map[uint64]time.Time
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// Option customizes a Table.
type Option func(*Table)

// WithTombstoneTTL sets how long abandoned ids are remembered.
func WithTombstoneTTL(ttl time.Duration) Option {
	return func(t *Table) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Table) {
		if now != nil {
			t.now = now
		}
	}
}

func NewTable(opts ...Option) *Table {
	t := &Table{
		calls:     make(map[uint64]*PendingCall),
		abandoned: make(map[uint64]time.Time),
		ttl:       DefaultTombstoneTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.lastSweep = t.now()
	return t
}

// Insert registers call under its id. An id already outstanding is rejected and the
// existing entry is left untouched.
func (t *Table) Insert(call *PendingCall) error {
	if call == nil {
		return exception.ErrNilInstance
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exist := t.calls[call.ID]; exist {
		return errors.Wrapf(exception.ErrDuplicateID, "id %d", call.ID)
	}
	delete(t.abandoned, call.ID)
	t.calls[call.ID] = call
	return nil
}

// TakeIfPresent removes and returns the entry of id.
func (t *Table) TakeIfPresent(id uint64) (*PendingCall, bool) {
	t.mu.Lock()
	call, ok := t.calls[id]
	if ok {
		delete(t.calls, id)
	}
	t.mu.Unlock()
	return call, ok
}

// RemoveAndDiscard drops the entry of id without finalizing it.
func (t *Table) RemoveAndDiscard(id uint64) bool {
	t.mu.Lock()
	_, ok := t.calls[id]
	if ok {
		delete(t.calls, id)
	}
	t.mu.Unlock()
	return ok
}

// Abandon removes the entry of id and leaves a tombstone so a late reply can be
// recognized and dropped.
func (t *Table) Abandon(id uint64) (*PendingCall, bool) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	call, ok := t.calls[id]
	if !ok {
		return nil, false
	}
	delete(t.calls, id)
	t.abandoned[id] = now
	if now.Sub(t.lastSweep) >= t.ttl {
		t.sweepLocked(now)
	}
	return call, true
}

// WasAbandoned reports whether id timed out earlier, consuming the tombstone.
func (t *Table) WasAbandoned(id uint64) bool {
	t.mu.Lock()
	at, ok := t.abandoned[id]
	if ok {
		delete(t.abandoned, id)
	}
	t.mu.Unlock()
	return ok && t.now().Sub(at) <= t.ttl
}

// Contains reports whether id is outstanding.
func (t *Table) Contains(id uint64) bool {
	t.mu.Lock()
	_, ok := t.calls[id]
	t.mu.Unlock()
	return ok
}

// Drain removes and returns every outstanding call.
func (t *Table) Drain() []*PendingCall {
	t.mu.Lock()
	calls := make([]*PendingCall, 0, len(t.calls))
	for id, call := range t.calls {
		calls = append(calls, call)
		delete(t.calls, id)
	}
	clear(t.abandoned)
	t.mu.Unlock()
	return calls
}

// Len returns the number of outstanding calls.
func (t *Table) Len() int {
	t.mu.Lock()
	n := len(t.calls)
	t.mu.Unlock()
	return n
}

func (t *Table) sweepLocked(now time.Time) {
	t.lastSweep = now
	for id, at := range t.abandoned {
		if now.Sub(at) > t.ttl {
			delete(t.abandoned, id)
		}
	}
}
