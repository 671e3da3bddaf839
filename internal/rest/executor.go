package rest

import (
	"context"
	"net/http"

	"bridge/internal/adapter"
	"bridge/internal/codec"
	"bridge/internal/obs"
	"bridge/internal/pool"

	"github.com/yanun0323/logs"
)

// Executor runs one-shot calls on a worker pool, one private *http.Client per worker.
type Executor struct {
	client  *Client
	pool    *pool.Pool[*http.Client]
	metrics *obs.Metrics
}

func NewExecutor(client *Client, cfg pool.Config, metrics *obs.Metrics) (*Executor, error) {
	p, err := pool.New(cfg, client.NewHTTPClient, pool.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	return &Executor{
		client:  client,
		pool:    p,
		metrics: metrics,
	}, nil
}

// Run starts the workers.
func (e *Executor) Run(ctx context.Context) {
	e.pool.Run(ctx)
}

// Close stops the workers and fails queued calls.
func (e *Executor) Close() {
	e.pool.Close()
}

// Submit queues op without blocking. A full queue returns ErrPoolSaturated.
func (e *Executor) Submit(op adapter.Operation, token string) (*pool.Future, error) {
	return e.pool.Submit(func(ctx context.Context, hc *http.Client) (adapter.Envelope, error) {
		env, err := e.client.Get(ctx, hc, op, token)
		e.metrics.ObserveRESTCall(env)
		if err != nil {
			logs.Warnf("rest: %s, status %s, http %d, err: %+v", op.Method, env.Status, env.HTTPStatus, err)
		}
		return env, err
	})
}

// Do submits op and waits for its envelope.
func (e *Executor) Do(ctx context.Context, op adapter.Operation, token string) (adapter.Envelope, error) {
	f, err := e.Submit(op, token)
	if err != nil {
		return adapter.Envelope{Method: op.Method}, err
	}
	return f.Wait(ctx)
}

// Authenticate runs the credential exchange on the pool.
func (e *Executor) Authenticate(ctx context.Context, creds adapter.Credentials) (codec.AuthResult, adapter.Envelope, error) {
	var res codec.AuthResult
	f, err := e.pool.Submit(func(ctx context.Context, hc *http.Client) (adapter.Envelope, error) {
		auth, env, err := e.client.Authenticate(ctx, hc, creds)
		e.metrics.ObserveRESTCall(env)
		res = auth
		return env, err
	})
	if err != nil {
		return res, adapter.Envelope{Method: adapter.MethodAuth}, err
	}

	env, err := f.Wait(ctx)
	if err != nil {
		return codec.AuthResult{}, env, err
	}
	return res, env, nil
}
