// Package journal keeps a durable record of completed front door calls.
package journal

import (
	"context"
	"time"

	"bridge/internal/adapter"
)

const (
	ChannelSession = "ws"
	ChannelREST    = "https"
)

// CallRecord is one completed call.
type CallRecord struct {
	ID              uint64 `gorm:"primaryKey;autoIncrement"`
	Channel         string `gorm:"size:8;index"`
	Route           string `gorm:"size:64"`
	Method          string `gorm:"size:96;index"`
	CorrelationID   uint64
	Status          string `gorm:"size:32;index"`
	HTTPStatus      int
	LatencyUs       int64
	RemoteLatencyUs *int64
	ErrorCode       *int
	ErrorMessage    string    `gorm:"size:512"`
	CreatedAt       time.Time `gorm:"index"`
}

func (CallRecord) TableName() string {
	return "call_journal"
}

// NewRecord flattens env into a row.
func NewRecord(channel, route string, env adapter.Envelope) CallRecord {
	rec := CallRecord{
		Channel:       channel,
		Route:         route,
		Method:        env.Method,
		CorrelationID: env.ID,
		Status:        env.Status.String(),
		HTTPStatus:    env.HTTPStatus,
		LatencyUs:     env.Latency.Microseconds(),
	}
	if env.HasRemoteLatency {
		us := env.RemoteLatency.Microseconds()
		rec.RemoteLatencyUs = &us
	}
	if env.Error != nil {
		code := env.Error.Code
		rec.ErrorCode = &code
		rec.ErrorMessage = env.Error.Message
	}
	return rec
}

// Journal appends call records.
type Journal interface {
	Record(ctx context.Context, channel, route string, env adapter.Envelope) error
	Close() error
}

// Nop discards every record. Used when no DSN is configured.
type Nop struct{}

func (Nop) Record(context.Context, string, string, adapter.Envelope) error { return nil }

func (Nop) Close() error { return nil }
