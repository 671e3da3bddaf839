package codec

import (
	"encoding/json"
	"strconv"
	"time"

	"bridge/internal/adapter"
	"bridge/internal/errors"
	"bridge/pkg/exception"

	"github.com/bytedance/sonic"
)

const Version = "2.0"

// Request is an outbound JSON-RPC call.
type Request struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      uint64         `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

// EncodeRequest serializes op under the given id.
func EncodeRequest(id uint64, op adapter.Operation) ([]byte, error) {
	if op.Method == "" {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "empty method")
	}

	b, err := sonic.ConfigFastest.Marshal(Request{
		JSONRPC: Version,
		ID:      id,
		Method:  op.Method,
		Params:  op.Params,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", op.Method)
	}
	return b, nil
}

// NotificationParams is the params object of a subscription push.
type NotificationParams struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// Frame is any inbound message: a reply, an error reply or a notification.
type Frame struct {
	RawID  json.RawMessage      `json:"id,omitempty"`
	Method string               `json:"method,omitempty"`
	Result json.RawMessage      `json:"result,omitempty"`
	Error  *adapter.RemoteError `json:"error,omitempty"`
	Params *NotificationParams  `json:"params,omitempty"`
	UsIn   int64                `json:"usIn,omitempty"`
	UsOut  int64                `json:"usOut,omitempty"`
}

// DecodeFrame parses an inbound message. Anything that is not a JSON object is malformed.
func DecodeFrame(src []byte) (Frame, error) {
	var f Frame
	if err := sonic.ConfigStd.Unmarshal(src, &f); err != nil {
		return Frame{}, errors.Wrap(exception.ErrWebSocketProtocol, err.Error())
	}
	return f, nil
}

// ID returns the numeric correlation id. Frames without an id, or with an id that is not
// an unsigned integer, report false.
func (f Frame) ID() (uint64, bool) {
	if len(f.RawID) == 0 || string(f.RawID) == "null" {
		return 0, false
	}

	id, err := strconv.ParseUint(string(f.RawID), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Channel returns the subscription channel of a notification.
func (f Frame) Channel() string {
	if f.Params == nil {
		return ""
	}
	return f.Params.Channel
}

// RemoteLatency is the processing time the counterparty reports about itself.
func (f Frame) RemoteLatency() (time.Duration, bool) {
	if f.UsIn <= 0 || f.UsOut < f.UsIn {
		return 0, false
	}
	return time.Duration(f.UsOut-f.UsIn) * time.Microsecond, true
}

// AuthResult is the result of public/auth.
type AuthResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

func DecodeAuthResult(raw json.RawMessage) (AuthResult, error) {
	var res AuthResult
	if len(raw) == 0 {
		return res, errors.Wrap(exception.ErrAuthRejected, "empty auth result")
	}

	if err := sonic.ConfigStd.Unmarshal(raw, &res); err != nil {
		return res, errors.Wrap(exception.ErrAuthRejected, err.Error())
	}

	if res.AccessToken == "" {
		return res, errors.Wrap(exception.ErrAuthRejected, "missing access_token")
	}
	return res, nil
}
