package session

import (
	"time"

	"bridge/internal/adapter"
	"bridge/internal/latency"
	"bridge/internal/obs"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultCallTimeout    = 5 * time.Second
)

// Config is the session configuration.
type Config struct {
	Credentials    adapter.Credentials
	ConnectTimeout time.Duration
	CallTimeout    time.Duration
	LatencyTTL     time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.LatencyTTL <= 0 {
		c.LatencyTTL = latency.DefaultTTL
	}
	return c
}

// Option customizes a Session.
type Option func(*Session)

func WithMetrics(m *obs.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithClock replaces time.Now for dispatch stamps and tombstones.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNotificationHandler receives every inbound message that is neither a reply nor
// routed to a channel consumer, byte for byte as it was read.
func WithNotificationHandler(fn func(payload []byte)) Option {
	return func(s *Session) {
		s.onNotification = fn
	}
}

// WithIDSeed makes the first generated correlation id seed+1.
func WithIDSeed(seed uint64) Option {
	return func(s *Session) {
		s.ids = obs.NewTraceGenerator(seed)
	}
}
