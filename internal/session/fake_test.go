package session

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bridge/internal/adapter"
	"bridge/pkg/exception"
	"bridge/pkg/websocket"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/require"
)

type request struct {
	ID     uint64         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// fakeConn is an in-memory websocket.Conn. Pushed payloads are returned by Read in order.
type fakeConn struct {
	inbound   chan []byte
	readErr   chan error
	closed    chan struct{}
	closeOnce sync.Once
	readers   atomic.Int32

	mu        sync.Mutex
	written   []request
	writeErr  error
	responder func(req request) []byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 256),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	c.readers.Add(1)
	defer c.readers.Add(-1)
	select {
	case p := <-c.inbound:
		return websocket.MessageText, p, nil
	case err := <-c.readErr:
		return 0, nil, err
	case <-c.closed:
		return 0, nil, exception.ErrWebSocketConnectionClose
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (c *fakeConn) Write(_ context.Context, _ websocket.MessageType, payload []byte) error {
	var req request
	if err := sonic.ConfigStd.Unmarshal(payload, &req); err != nil {
		return err
	}

	c.mu.Lock()
	if c.writeErr != nil {
		err := c.writeErr
		c.mu.Unlock()
		return err
	}
	c.written = append(c.written, req)
	responder := c.responder
	c.mu.Unlock()

	if responder != nil {
		if reply := responder(req); reply != nil {
			c.push(string(reply))
		}
	}
	return nil
}

func (c *fakeConn) Close(websocket.CloseCode, string) error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(payload string) {
	c.inbound <- []byte(payload)
}

func (c *fakeConn) requests() []request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]request, len(c.written))
	copy(out, c.written)
	return out
}

func (c *fakeConn) last(t *testing.T) request {
	t.Helper()
	reqs := c.requests()
	require.NotEmpty(t, reqs)
	return reqs[len(reqs)-1]
}

func (c *fakeConn) setWriteErr(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

func (c *fakeConn) setResponder(fn func(req request) []byte) {
	c.mu.Lock()
	c.responder = fn
	c.mu.Unlock()
}

type fakeDialer struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) Dial(context.Context) (websocket.Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var testCredentials = adapter.NewCredentials("client", "secret")

func authReply(id uint64) string {
	b, _ := sonic.ConfigStd.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result": map[string]any{
			"access_token":  "tok",
			"refresh_token": "refresh",
			"expires_in":    900,
			"scope":         "session:test",
			"token_type":    "bearer",
		},
	})
	return string(b)
}

func reply(id uint64, result string) string {
	b, _ := sonic.ConfigStd.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  json.RawMessage(result),
		"usIn":    1700000000000000,
		"usOut":   1700000000000150,
	})
	return string(b)
}

// newReadySession connects a session to a fake conn and completes the handshake.
func newReadySession(t *testing.T, opts ...Option) (*Session, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	s := New(&fakeDialer{conn: conn}, Config{Credentials: testCredentials, CallTimeout: time.Second}, opts...)

	require.NoError(t, s.Connect(t.Context()))
	auth := conn.last(t)
	require.Equal(t, adapter.MethodAuth, auth.Method)
	conn.push(authReply(auth.ID))

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()
	require.NoError(t, s.WaitReady(ctx))

	t.Cleanup(func() {
		if s.State() != StateClosed {
			_ = s.Close()
		}
	})
	return s, conn
}
