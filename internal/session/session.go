// Package session owns the authenticated, multiplexed connection to the exchange and
// turns its asynchronous replies into blocking calls.
package session

import (
	"context"
	"sync"
	"time"

	"bridge/internal/adapter"
	"bridge/internal/adapter/enum"
	"bridge/internal/bridge"
	"bridge/internal/codec"
	"bridge/internal/correlation"
	"bridge/internal/errors"
	"bridge/internal/latency"
	"bridge/internal/obs"
	"bridge/pkg/exception"
	"bridge/pkg/websocket"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"
)

// Session is the single authenticated connection of the process. The correlation
// table, the latency recorder and the waiter registry belong to it.
type Session struct {
	id             string
	dialer         websocket.Dialer
	cfg            Config
	metrics        *obs.Metrics
	now            func() time.Time
	onNotification func(payload []byte)

	ids      *obs.TraceGenerator
	table    *correlation.Table
	recorder *latency.Recorder
	waiters  *bridge.Bridge
	router   *websocket.Router
	subs     *websocket.Subscriptions

	mu          sync.Mutex
	state       State
	changed     chan struct{}
	conn        websocket.Conn
	token       string
	authID      uint64
	authPending bool
	failure     error
	cancel      context.CancelFunc
	group       *errgroup.Group
}

func New(dialer websocket.Dialer, cfg Config, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		dialer:  dialer,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		router:  websocket.NewRouter(),
		subs:    websocket.NewSubscriptions(),
		state:   StateDisconnected,
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = obs.NewTraceGenerator(0)
	}

	s.table = correlation.NewTable(correlation.WithClock(s.now), correlation.WithTombstoneTTL(s.cfg.LatencyTTL))
	s.recorder = latency.NewRecorder(s.cfg.LatencyTTL, latency.WithClock(s.now))
	s.waiters = bridge.New(s.table,
		bridge.WithDefaultTimeout(s.cfg.CallTimeout),
		bridge.WithRetention(s.cfg.LatencyTTL),
		bridge.WithClock(s.now),
		bridge.WithAbandonHook(s.abandoned),
	)
	return s
}

// ID identifies this session instance in logs.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outstanding returns the number of calls waiting for a reply.
func (s *Session) Outstanding() int {
	return s.table.Len()
}

// setStateLocked moves to next and wakes every WaitReady.
func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	logs.Infof("session %s: %s -> %s", s.id, s.state, next)
	s.state = next
	close(s.changed)
	s.changed = make(chan struct{})
}

// Connect dials the exchange, starts the reader and sends the auth request. It returns
// once the request is written; use WaitReady to block until the reply arrives.
func (s *Session) Connect(ctx context.Context) error {
	if s.dialer == nil {
		return exception.ErrWebSocketNilDialer
	}

	s.mu.Lock()
	if s.state != StateDisconnected {
		state := s.state
		s.mu.Unlock()
		return errors.Wrapf(exception.ErrInvalidState, "connect from %s", state)
	}
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	dialCtx, cancelDial := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	conn, err := s.dialer.Dial(dialCtx)
	cancelDial()
	if err != nil {
		s.mu.Lock()
		s.setStateLocked(StateDisconnected)
		s.mu.Unlock()
		logs.Errorf("session %s: dial, err: %+v", s.id, err)
		return errors.Wrap(exception.ErrConnect, err.Error())
	}

	readCtx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(readCtx)

	authID := s.ids.Next()
	s.mu.Lock()
	if s.state != StateConnecting {
		// closed while dialing
		s.mu.Unlock()
		cancel()
		_ = conn.Close(websocket.CloseNormal, "")
		return exception.ErrSessionClosed
	}
	s.conn = conn
	s.cancel = cancel
	s.group = group
	s.authID = authID
	s.authPending = true
	s.setStateLocked(StateAuthenticating)
	s.mu.Unlock()

	group.Go(func() error {
		return s.readLoop(groupCtx, conn)
	})

	payload, err := codec.EncodeRequest(authID, adapter.NewOperation(adapter.MethodAuth, s.cfg.Credentials.AuthParams()))
	if err != nil {
		s.fail(err)
		return err
	}

	s.recorder.MarkSent(authID)
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		s.recorder.Forget(authID)
		err = errors.Wrap(exception.ErrSendFailed, err.Error())
		s.fail(err)
		return err
	}

	logs.Infof("session %s: auth request %d sent for %s", s.id, authID, s.cfg.Credentials)
	return nil
}

// WaitReady blocks until the handshake finished. It returns nil in Ready, the failure
// cause in Failed and ErrSessionClosed once closing.
func (s *Session) WaitReady(ctx context.Context) error {
	for {
		s.mu.Lock()
		state, changed, failure := s.state, s.changed, s.failure
		s.mu.Unlock()

		switch state {
		case StateReady:
			return nil
		case StateFailed:
			if failure == nil {
				failure = exception.ErrConnect
			}
			return failure
		case StateClosing, StateClosed:
			return exception.ErrSessionClosed
		case StateDisconnected:
			return errors.Wrap(exception.ErrInvalidState, "not connecting")
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return errors.Wrap(exception.ErrNotAuthenticated, ctx.Err().Error())
		}
	}
}

// maxIDAttempts bounds how many generated ids Submit skips when callers of
// SubmitWithID already hold them.
const maxIDAttempts = 64

// Submit sends op under a fresh correlation id. Only allowed in Ready.
func (s *Session) Submit(ctx context.Context, op adapter.Operation) (uint64, error) {
	var err error
	for range maxIDAttempts {
		id := s.ids.Next()
		err = s.submit(ctx, id, op)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, exception.ErrDuplicateID) {
			return 0, err
		}
	}
	return 0, errors.Wrapf(exception.ErrInternal, "no free correlation id after %d attempts: %s", maxIDAttempts, err.Error())
}

// SubmitWithID sends op under a caller chosen id. An id that is still outstanding is
// rejected with ErrDuplicateID and nothing is written.
func (s *Session) SubmitWithID(ctx context.Context, id uint64, op adapter.Operation) error {
	return s.submit(ctx, id, op)
}

func (s *Session) submit(ctx context.Context, id uint64, op adapter.Operation) error {
	s.mu.Lock()
	state, conn, token := s.state, s.conn, s.token
	s.mu.Unlock()

	if state != StateReady || conn == nil {
		return errors.Wrapf(exception.ErrNotAuthenticated, "submit %s in %s", op.Method, state)
	}

	call := correlation.NewPendingCall(id, op.Method, s.now())
	if err := s.table.Insert(call); err != nil {
		return err
	}

	if err := s.waiters.Register(call); err != nil {
		s.table.RemoveAndDiscard(id)
		return err
	}

	payload, err := codec.EncodeRequest(id, op.WithToken(token))
	if err != nil {
		s.discard(id)
		return err
	}

	s.recorder.MarkSent(id)
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		s.discard(id)
		s.metrics.ObserveSessionCall(adapter.Envelope{ID: id, Method: op.Method, Status: enum.CallStatusSendFailed})
		logs.Errorf("session %s: write %s (%d), err: %+v", s.id, op.Method, id, err)
		return errors.Wrapf(exception.ErrSendFailed, "%s (%d): %s", op.Method, id, err.Error())
	}

	return nil
}

func (s *Session) discard(id uint64) {
	s.table.RemoveAndDiscard(id)
	s.waiters.Forget(id)
	s.recorder.Forget(id)
}

// WaitFor blocks until the reply of id arrives or timeout elapses. A non-positive
// timeout uses the configured call timeout.
func (s *Session) WaitFor(ctx context.Context, id uint64, timeout time.Duration) (adapter.Envelope, error) {
	return s.waiters.WaitFor(ctx, id, timeout)
}

// Call submits op and waits for its reply with the configured call timeout.
func (s *Session) Call(ctx context.Context, op adapter.Operation) (adapter.Envelope, error) {
	id, err := s.Submit(ctx, op)
	if err != nil {
		return adapter.Envelope{Method: op.Method, Status: statusOf(err)}, err
	}
	return s.waiters.WaitFor(ctx, id, s.cfg.CallTimeout)
}

// statusOf maps a submit error to a call status. Local rejections never reached the
// wire and leave the status unset.
func statusOf(err error) enum.CallStatus {
	switch {
	case errors.Is(err, exception.ErrSendFailed):
		return enum.CallStatusSendFailed
	case errors.Is(err, exception.ErrSessionClosed):
		return enum.CallStatusSessionClosed
	default:
		var unset enum.CallStatus
		return unset
	}
}

// Subscribe routes notifications of channel to consumer. The remote subscription is
// sent on the first Subscribe of a channel; pair every Subscribe with an Unsubscribe.
// Consumers must use a drop policy: the reader goroutine never waits on a full queue.
func (s *Session) Subscribe(ctx context.Context, channel string, consumer *websocket.Consumer) error {
	op, err := adapter.Subscribe(channel)
	if err != nil {
		return err
	}

	if consumer == nil {
		return exception.ErrNilInstance
	}
	if consumer.Policy() == websocket.OverflowBlock {
		return errors.Wrapf(exception.ErrInvalidArgument, "subscribe %s: blocking consumer", channel)
	}

	s.router.AddConsumer(channel, consumer)
	if !s.subs.Acquire(channel) {
		return nil
	}

	if _, err := s.Call(ctx, op); err != nil {
		s.subs.Release(channel)
		s.router.RemoveConsumer(channel, consumer)
		return errors.Wrapf(err, "subscribe %s", channel)
	}

	logs.Infof("session %s: subscribed %s", s.id, channel)
	return nil
}

// Unsubscribe detaches consumer. The remote subscription is dropped with the last
// reference to channel.
func (s *Session) Unsubscribe(ctx context.Context, channel string, consumer *websocket.Consumer) error {
	op, err := adapter.Unsubscribe(channel)
	if err != nil {
		return err
	}

	s.router.RemoveConsumer(channel, consumer)
	if !s.subs.Release(channel) {
		return nil
	}

	if _, err := s.Call(ctx, op); err != nil {
		return errors.Wrapf(err, "unsubscribe %s", channel)
	}

	logs.Infof("session %s: unsubscribed %s", s.id, channel)
	return nil
}

// Close shuts the session down: the transport is closed, the reader is joined and every
// outstanding call is resolved as SessionClosed. Allowed from any state but Closed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed || s.state == StateClosing {
		state := s.state
		s.mu.Unlock()
		return errors.Wrapf(exception.ErrInvalidState, "close from %s", state)
	}
	s.setStateLocked(StateClosing)
	conn, cancel, group := s.conn, s.cancel, s.group
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if conn != nil {
		if err := conn.Close(websocket.CloseNormal, "client closing"); err != nil {
			logs.Warnf("session %s: close transport, err: %+v", s.id, err)
		}
	}

	// consumers blocked on a full queue must not hold up the reader
	s.router.Close()

	if group != nil {
		if err := group.Wait(); err != nil {
			logs.Debugf("session %s: reader stopped, err: %+v", s.id, err)
		}
	}

	n := s.resolveAll(enum.CallStatusSessionClosed)
	s.subs.Reset()

	s.mu.Lock()
	s.conn = nil
	s.token = ""
	s.authPending = false
	s.setStateLocked(StateClosed)
	s.mu.Unlock()

	logs.Infof("session %s: closed, %d outstanding calls released", s.id, n)
	return nil
}

// fail moves an open session to Failed and releases outstanding calls.
func (s *Session) fail(cause error) {
	s.mu.Lock()
	if !s.state.open() {
		s.mu.Unlock()
		return
	}
	s.failure = cause
	s.authPending = false
	s.token = ""
	s.setStateLocked(StateFailed)
	s.mu.Unlock()

	logs.Errorf("session %s: failed, err: %+v", s.id, cause)
	s.resolveAll(enum.CallStatusSessionClosed)
}

func (s *Session) resolveAll(status enum.CallStatus) int {
	calls := s.table.Drain()
	for _, call := range calls {
		s.recorder.Forget(call.ID)
		env := adapter.Envelope{ID: call.ID, Method: call.Method, Status: status}
		if call.Resolve(env) {
			s.metrics.ObserveSessionCall(env)
		}
		s.waiters.Settle(call.ID)
	}
	return len(calls)
}

// abandoned runs after a waiter gave up on call.
func (s *Session) abandoned(call *correlation.PendingCall) {
	s.recorder.Forget(call.ID)
	if env, ok := call.Result(); ok {
		s.metrics.ObserveSessionCall(env)
	}
}
