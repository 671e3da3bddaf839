package pool

import (
	"context"
	"sync"

	"bridge/internal/adapter"
	"bridge/internal/errors"
)

// Future is the pending result of a submitted task. It is owned by the submitter.
type Future struct {
	once sync.Once
	done chan struct{}
	env  adapter.Envelope
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(env adapter.Envelope, err error) {
	f.once.Do(func() {
		f.env, f.err = env, err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks for the result. Giving up through ctx leaves the task running.
func (f *Future) Wait(ctx context.Context) (adapter.Envelope, error) {
	select {
	case <-f.done:
		return f.env, f.err
	case <-ctx.Done():
		return adapter.Envelope{}, errors.Wrap(ctx.Err(), "wait future")
	}
}
