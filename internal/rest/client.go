// Package rest performs one-shot calls against the exchange HTTP API.
package rest

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bridge/internal/adapter"
	"bridge/internal/adapter/enum"
	"bridge/internal/codec"
	"bridge/internal/errors"
	"bridge/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

const (
	DefaultBaseURL        = "https://test.deribit.com"
	DefaultRequestTimeout = 15 * time.Second

	_apiPrefix   = "/api/v2/"
	_maxBodySize = 8 << 20
)

// Config configures the client.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	// InsecureSkipVerify disables certificate verification. Test environments only.
	InsecureSkipVerify bool
}

// Client builds requests and turns responses into envelopes. It holds no connection
// state; every worker brings its own *http.Client.
type Client struct {
	base      *url.URL
	timeout   time.Duration
	tlsConfig *tls.Config
	now       func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(exception.ErrInvalidArgument, "base url %q: %s", cfg.BaseURL, err.Error())
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Wrapf(exception.ErrInvalidArgument, "base url scheme %q", base.Scheme)
	}

	return &Client{
		base:    base,
		timeout: cfg.RequestTimeout,
		tlsConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		now: time.Now,
	}, nil
}

// NewHTTPClient returns a client with its own keep-alive transport. Used as the pool's
// per-worker handle.
func (c *Client) NewHTTPClient(int) *http.Client {
	return &http.Client{
		Timeout: c.timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSClientConfig:     c.tlsConfig.Clone(),
			MaxIdleConns:        4,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}
}

// URL returns the GET url of op.
func (c *Client) URL(op adapter.Operation) string {
	u := *c.base
	u.Path = c.base.Path + _apiPrefix + strings.TrimLeft(op.Method, "/")
	u.RawQuery = op.Query().Encode()
	return u.String()
}

// Get performs op as GET {base}/api/v2/{method}?params. Private methods send the token
// as a bearer header. Every outcome is described by the envelope; err mirrors its status.
func (c *Client) Get(ctx context.Context, hc *http.Client, op adapter.Operation, token string) (adapter.Envelope, error) {
	env := adapter.Envelope{Method: op.Method}
	if hc == nil {
		env.Status = enum.CallStatusTransportError
		return env, exception.ErrNilInstance
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(op), nil)
	if err != nil {
		env.Status = enum.CallStatusTransportError
		return env, errors.Wrap(exception.ErrTransport, err.Error())
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if token != "" && op.Private() {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := c.now()
	resp, err := hc.Do(req)
	if err != nil {
		env.Status = enum.CallStatusTransportError
		env.Latency = c.now().Sub(start)
		return env, errors.Wrapf(exception.ErrTransport, "get %s: %s", op.Method, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, _maxBodySize))
	env.Latency = c.now().Sub(start)
	env.HTTPStatus = resp.StatusCode
	if err != nil {
		env.Status = enum.CallStatusTransportError
		return env, errors.Wrapf(exception.ErrTransport, "read %s body: %s", op.Method, err.Error())
	}

	frame, err := codec.DecodeFrame(body)
	if err != nil {
		env.Status = enum.CallStatusTransportError
		env.Payload = rawBody(body)
		return env, errors.Wrapf(exception.ErrTransport, "decode %s body, status %d", op.Method, resp.StatusCode)
	}

	env.Payload = frame.Result
	if remote, ok := frame.RemoteLatency(); ok {
		env.RemoteLatency = remote
		env.HasRemoteLatency = true
	}

	if frame.Error != nil {
		env.Status = enum.CallStatusRemoteError
		env.Error = frame.Error
		return env, env.Err()
	}

	env.Status = enum.CallStatusSuccess
	return env, nil
}

// Authenticate exchanges credentials for an access token.
func (c *Client) Authenticate(ctx context.Context, hc *http.Client, creds adapter.Credentials) (codec.AuthResult, adapter.Envelope, error) {
	op := adapter.NewOperation(adapter.MethodAuth, creds.AuthParams())
	env, err := c.Get(ctx, hc, op, "")
	if err != nil {
		return codec.AuthResult{}, env, err
	}

	res, err := codec.DecodeAuthResult(env.Payload)
	if err != nil {
		return codec.AuthResult{}, env, err
	}
	return res, env, nil
}

// rawBody keeps a body that is not JSON as a JSON string so the envelope stays renderable.
func rawBody(body []byte) []byte {
	b, err := sonic.ConfigStd.Marshal(string(body))
	if err != nil {
		return nil
	}
	return b
}
