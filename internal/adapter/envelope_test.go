package adapter

import (
	"encoding/json"
	"testing"
	"time"

	"bridge/internal/adapter/enum"
	"bridge/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeErr(t *testing.T) {
	testCases := []struct {
		status enum.CallStatus
		err    error
	}{
		{enum.CallStatusRemoteError, exception.ErrInResponseError},
		{enum.CallStatusTimedOut, exception.ErrTimedOut},
		{enum.CallStatusSendFailed, exception.ErrSendFailed},
		{enum.CallStatusSessionClosed, exception.ErrSessionClosed},
		{enum.CallStatusTransportError, exception.ErrTransport},
	}

	for _, tc := range testCases {
		t.Run(tc.status.String(), func(t *testing.T) {
			env := Envelope{Status: tc.status}
			assert.False(t, env.OK())
			assert.ErrorIs(t, env.Err(), tc.err)
		})
	}

	assert.NoError(t, Envelope{Status: enum.CallStatusSuccess}.Err())
}

func TestEnvelopeRemoteErrorMessage(t *testing.T) {
	env := Envelope{
		Status: enum.CallStatusRemoteError,
		Error:  &RemoteError{Code: 10009, Message: "not_enough_funds"},
	}
	err := env.Err()
	assert.ErrorIs(t, err, exception.ErrInResponseError)
	assert.Contains(t, err.Error(), "not_enough_funds")
}

func TestEnvelopeMarshalJSON(t *testing.T) {
	env := Envelope{
		ID:               42,
		Method:           "private/buy",
		Payload:          json.RawMessage(`{"order":{"order_id":"ETH-1"}}`),
		Status:           enum.CallStatusSuccess,
		Latency:          2500 * time.Microsecond,
		RemoteLatency:    300 * time.Microsecond,
		HasRemoteLatency: true,
	}

	b, err := json.Marshal(env)
	require.NoError(t, err)

	var out struct {
		ID     uint64 `json:"id"`
		Status string `json:"status"`
		Result struct {
			Order struct {
				OrderID string `json:"order_id"`
			} `json:"order"`
		} `json:"result"`
		Meta struct {
			LatencyAppUs int64    `json:"latency_app_us"`
			LatencyAppMs float64  `json:"latency_app_ms"`
			LatencyUs    *int64   `json:"latency_us"`
			LatencyMs    *float64 `json:"latency_ms"`
		} `json:"meta"`
	}
	require.NoError(t, sonic.ConfigStd.Unmarshal(b, &out))

	assert.Equal(t, uint64(42), out.ID)
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, "ETH-1", out.Result.Order.OrderID)
	assert.Equal(t, int64(2500), out.Meta.LatencyAppUs)
	assert.InDelta(t, 2.5, out.Meta.LatencyAppMs, 1e-9)
	require.NotNil(t, out.Meta.LatencyUs)
	assert.Equal(t, int64(300), *out.Meta.LatencyUs)
	require.NotNil(t, out.Meta.LatencyMs)
	assert.InDelta(t, 0.3, *out.Meta.LatencyMs, 1e-9)
}

func TestEnvelopeMarshalJSONWithoutRemoteLatency(t *testing.T) {
	b, err := json.Marshal(Envelope{Status: enum.CallStatusTimedOut})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "latency_us")
	assert.Contains(t, string(b), `"status":"timed_out"`)
}
