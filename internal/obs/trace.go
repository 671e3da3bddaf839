package obs

import "sync/atomic"

// TraceGenerator creates monotonically increasing ids. Used for correlation ids.
type TraceGenerator struct {
	next uint64
}

// NewTraceGenerator returns a generator whose first id is seed+1.
func NewTraceGenerator(seed uint64) *TraceGenerator {
	return &TraceGenerator{next: seed}
}

// Next returns the next id.
func (g *TraceGenerator) Next() uint64 {
	if g == nil {
		return 0
	}
	return atomic.AddUint64(&g.next, 1)
}
