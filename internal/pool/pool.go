// Package pool runs independent blocking one-shot calls on a fixed set of workers, each
// owning a private handle.
package pool

import (
	"context"
	"sync"
	"sync/atomic"

	"bridge/internal/adapter"
	"bridge/internal/errors"
	"bridge/internal/obs"
	"bridge/pkg/exception"

	"github.com/yanun0323/logs"
)

const (
	DefaultWorkers    = 4
	DefaultQueueDepth = 64
)

// Config sizes the pool. Zero values fall back to the defaults.
type Config struct {
	Workers    int
	QueueDepth int
}

// Task is one call executed on a worker with that worker's handle.
type Task[H any] func(ctx context.Context, handle H) (adapter.Envelope, error)

type workItem[H any] struct {
	task   Task[H]
	future *Future
}

// Pool is a bounded worker pool. Submit never blocks.
type Pool[H any] struct {
	newHandle func(worker int) H
	metrics   *obs.Metrics

	running atomic.Bool
	worker  int
	queue   chan workItem[H]

	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes a Pool.
type Option func(*options)

type options struct {
	metrics *obs.Metrics
}

func WithMetrics(m *obs.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// New creates a pool. newHandle is called once per worker when the pool starts.
func New[H any](cfg Config, newHandle func(worker int) H, opts ...Option) (*Pool[H], error) {
	if newHandle == nil {
		return nil, errors.Wrap(exception.ErrPoolInvalidConfig, "nil handle factory")
	}

	if cfg.Workers < 0 || cfg.QueueDepth < 0 {
		return nil, errors.Wrapf(exception.ErrPoolInvalidConfig, "workers %d, queue depth %d", cfg.Workers, cfg.QueueDepth)
	}

	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}

	if cfg.QueueDepth == 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Pool[H]{
		newHandle: newHandle,
		metrics:   o.metrics,
		worker:    cfg.Workers,
		queue:     make(chan workItem[H], cfg.QueueDepth),
	}, nil
}

// Workers returns the number of workers.
func (p *Pool[H]) Workers() int {
	return p.worker
}

// Queued returns the number of tasks waiting for a worker.
func (p *Pool[H]) Queued() int {
	return len(p.queue)
}

// Run starts the workers. Calling it again is a no-op.
func (p *Pool[H]) Run(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.running.Swap(true) {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := range p.worker {
		handle := p.newHandle(i)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			workerExecute(ctx, i, handle, p.queue)
		}()
	}
	logs.Infof("pool: %d workers started, queue depth %d", p.worker, cap(p.queue))
}

// Submit enqueues task. A full queue is reported as ErrPoolSaturated.
func (p *Pool[H]) Submit(task Task[H]) (*Future, error) {
	if task == nil {
		return nil, exception.ErrPoolNilTask
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, exception.ErrPoolClosed
	}

	item := workItem[H]{task: task, future: newFuture()}
	select {
	case p.queue <- item:
		return item.future, nil
	default:
		p.metrics.IncPoolSaturated()
		return nil, errors.Wrapf(exception.ErrPoolSaturated, "queue depth %d", cap(p.queue))
	}
}

// Close stops accepting tasks, cancels running ones and fails every queued future with
// ErrPoolClosed. It waits for the workers to exit.
func (p *Pool[H]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()

	// never started, or workers left early
	for item := range p.queue {
		item.future.resolve(adapter.Envelope{}, exception.ErrPoolClosed)
	}
	logs.Info("pool: closed")
}

func workerExecute[H any](ctx context.Context, worker int, handle H, queue <-chan workItem[H]) {
	for item := range queue {
		if ctx.Err() != nil {
			item.future.resolve(adapter.Envelope{}, exception.ErrPoolClosed)
			continue
		}
		env, err := execute(ctx, worker, handle, item.task)
		item.future.resolve(env, err)
	}
}

func execute[H any](ctx context.Context, worker int, handle H, task Task[H]) (env adapter.Envelope, err error) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("pool: worker %d task panic: %v", worker, r)
			env = adapter.Envelope{}
			err = errors.Wrapf(exception.ErrInternal, "task panic: %v", r)
		}
	}()
	return task(ctx, handle)
}
