package websocket

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"sync"
	"time"

	"bridge/internal/errors"
	"bridge/pkg/exception"

	"github.com/gorilla/websocket"
)

type dialer struct {
	url              string
	header           http.Header
	tlsConfig        *tls.Config
	handshakeTimeout time.Duration
	readLimit        int64
}

// DialerOption customizes the dialer.
type DialerOption func(*dialer)

// WithInsecureSkipVerify disables certificate verification. Test environments only.
func WithInsecureSkipVerify(skip bool) DialerOption {
	return func(d *dialer) {
		d.tlsConfig.InsecureSkipVerify = skip
	}
}

// WithTLSConfig replaces the TLS configuration.
func WithTLSConfig(cfg *tls.Config) DialerOption {
	return func(d *dialer) {
		if cfg != nil {
			d.tlsConfig = cfg.Clone()
		}
	}
}

func WithHandshakeTimeout(timeout time.Duration) DialerOption {
	return func(d *dialer) {
		if timeout > 0 {
			d.handshakeTimeout = timeout
		}
	}
}

func WithReadLimit(limit int64) DialerOption {
	return func(d *dialer) {
		if limit > 0 {
			d.readLimit = limit
		}
	}
}

func WithHeader(header http.Header) DialerOption {
	return func(d *dialer) {
		d.header = header.Clone()
	}
}

// NewDialer returns a dialer for a ws:// or wss:// endpoint. Certificates are verified
// unless WithInsecureSkipVerify says otherwise.
func NewDialer(endpoint string, opts ...DialerOption) (Dialer, error) {
	if endpoint == "" {
		return nil, exception.ErrWebSocketEmptyURL
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, errors.Wrap(exception.ErrWebSocketEmptyURL, err.Error())
	}

	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.Wrapf(exception.ErrWebSocketProtocol, "unsupported scheme %q", u.Scheme)
	}

	d := &dialer{
		url: endpoint,
		tlsConfig: &tls.Config{
			ServerName: u.Hostname(),
			MinVersion: tls.VersionTLS12,
		},
		handshakeTimeout: DefaultHandshakeTimeout,
		readLimit:        DefaultReadLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *dialer) Dial(ctx context.Context) (Conn, error) {
	ws := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.handshakeTimeout,
		TLSClientConfig:  d.tlsConfig,
	}

	conn, resp, err := ws.DialContext(ctx, d.url, d.header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial %s, status %d", d.url, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "dial %s", d.url)
	}

	conn.SetReadLimit(d.readLimit)
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  sync.Once
}

func (c *wsConn) Read(ctx context.Context) (MessageType, []byte, error) {
	if err := setDeadline(ctx, c.conn.SetReadDeadline); err != nil {
		return 0, nil, err
	}

	msgType, payload, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return 0, nil, errors.Wrap(exception.ErrWebSocketConnectionClose, err.Error())
		}
		return 0, nil, err
	}
	return MessageType(msgType), payload, nil
}

func (c *wsConn) Write(ctx context.Context, msgType MessageType, payload []byte) error {
	if msgType != MessageText && msgType != MessageBinary {
		return errors.Wrapf(exception.ErrWebSocketProtocol, "write message type %d", msgType)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := setDeadline(ctx, c.conn.SetWriteDeadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(int(msgType), payload)
}

// Close sends a close frame and releases the connection. Calling it twice is a no-op.
func (c *wsConn) Close(code CloseCode, reason string) error {
	var err error
	c.closed.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(int(code), reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWriteTimeout))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func setDeadline(ctx context.Context, set func(time.Time) error) error {
	if ctx == nil {
		return set(time.Time{})
	}
	if deadline, ok := ctx.Deadline(); ok {
		return set(deadline)
	}
	if ctx.Err() != nil {
		return set(time.Now())
	}
	return set(time.Time{})
}
