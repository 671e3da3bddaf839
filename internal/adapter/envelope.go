package adapter

import (
	"encoding/json"
	"fmt"
	"time"

	"bridge/internal/adapter/enum"
	"bridge/internal/errors"
	"bridge/pkg/exception"

	"github.com/bytedance/sonic"
)

// RemoteError is the error object of a JSON-RPC reply.
type RemoteError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("code %d: %s", e.Code, e.Message)
}

// Envelope is the assembled answer handed back to a caller.
// It is a value type and is never mutated after construction.
type Envelope struct {
	ID     uint64
	Method string
	// Payload is the raw remote result. For one-shot calls whose body could not be
	// decoded it holds the raw body instead.
	Payload json.RawMessage
	Error   *RemoteError
	Status  enum.CallStatus
	// Latency is measured by this process between dispatch and reply.
	Latency time.Duration
	// RemoteLatency is what the counterparty reports (usOut - usIn), when present.
	RemoteLatency    time.Duration
	HasRemoteLatency bool
	// HTTPStatus is set for one-shot calls only.
	HTTPStatus int
}

// OK reports whether the remote call succeeded.
func (e Envelope) OK() bool {
	return e.Status == enum.CallStatusSuccess
}

// Err maps the status to the sentinel errors of pkg/exception.
func (e Envelope) Err() error {
	switch e.Status {
	case enum.CallStatusSuccess:
		return nil
	case enum.CallStatusRemoteError:
		if e.Error != nil {
			return errors.Wrap(exception.ErrInResponseError, e.Error.Error())
		}
		return exception.ErrInResponseError
	case enum.CallStatusTimedOut:
		return exception.ErrTimedOut
	case enum.CallStatusSendFailed:
		return exception.ErrSendFailed
	case enum.CallStatusSessionClosed:
		return exception.ErrSessionClosed
	case enum.CallStatusTransportError:
		return exception.ErrTransport
	default:
		return exception.ErrInternal
	}
}

type envelopeMeta struct {
	LatencyAppUs int64    `json:"latency_app_us"`
	LatencyAppMs float64  `json:"latency_app_ms"`
	LatencyUs    *int64   `json:"latency_us,omitempty"`
	LatencyMs    *float64 `json:"latency_ms,omitempty"`
}

type envelopeJSON struct {
	ID         uint64          `json:"id,omitempty"`
	Method     string          `json:"method,omitempty"`
	Status     string          `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      *RemoteError    `json:"error,omitempty"`
	HTTPStatus int             `json:"http_status,omitempty"`
	Meta       envelopeMeta    `json:"meta"`
}

// MarshalJSON renders the envelope with its latency metadata under "meta".
func (e Envelope) MarshalJSON() ([]byte, error) {
	out := envelopeJSON{
		ID:         e.ID,
		Method:     e.Method,
		Status:     e.Status.String(),
		Result:     e.Payload,
		Error:      e.Error,
		HTTPStatus: e.HTTPStatus,
		Meta: envelopeMeta{
			LatencyAppUs: e.Latency.Microseconds(),
			LatencyAppMs: float64(e.Latency.Microseconds()) / 1000,
		},
	}
	if e.HasRemoteLatency {
		us := e.RemoteLatency.Microseconds()
		ms := float64(us) / 1000
		out.Meta.LatencyUs = &us
		out.Meta.LatencyMs = &ms
	}
	return sonic.ConfigStd.Marshal(out)
}
