package codec

import (
	"testing"
	"time"

	"bridge/internal/adapter"
	"bridge/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRequest(t *testing.T) {
	op := adapter.NewOperation("public/get_order_book", map[string]any{
		"instrument_name": "BTC-PERPETUAL",
		"depth":           5,
	})

	b, err := EncodeRequest(17, op)
	require.NoError(t, err)

	var req map[string]any
	require.NoError(t, sonic.ConfigStd.Unmarshal(b, &req))
	assert.Equal(t, "2.0", req["jsonrpc"])
	assert.EqualValues(t, 17, req["id"])
	assert.Equal(t, "public/get_order_book", req["method"])
	params, ok := req["params"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "BTC-PERPETUAL", params["instrument_name"])

	_, err = EncodeRequest(1, adapter.Operation{})
	assert.ErrorIs(t, err, exception.ErrInvalidArgument)
}

func TestDecodeFrame(t *testing.T) {
	testCases := []struct {
		desc    string
		input   string
		id      uint64
		hasID   bool
		channel string
		isErr   bool
	}{
		{
			desc:  "reply",
			input: `{"jsonrpc":"2.0","id":9,"result":{"ok":true},"usIn":1000,"usOut":1250}`,
			id:    9,
			hasID: true,
		},
		{
			desc:  "error reply",
			input: `{"jsonrpc":"2.0","id":3,"error":{"code":10004,"message":"order_not_found"}}`,
			id:    3,
			hasID: true,
			isErr: true,
		},
		{
			desc:    "notification",
			input:   `{"jsonrpc":"2.0","method":"subscription","params":{"channel":"book.BTC-PERPETUAL.100ms","data":{"bids":[]}}}`,
			channel: "book.BTC-PERPETUAL.100ms",
		},
		{
			desc:  "string id",
			input: `{"jsonrpc":"2.0","id":"abc","result":1}`,
		},
		{
			desc:  "null id",
			input: `{"jsonrpc":"2.0","id":null,"result":1}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			f, err := DecodeFrame([]byte(tc.input))
			require.NoError(t, err)

			id, ok := f.ID()
			assert.Equal(t, tc.hasID, ok)
			assert.Equal(t, tc.id, id)
			assert.Equal(t, tc.channel, f.Channel())
			assert.Equal(t, tc.isErr, f.Error != nil)
		})
	}
}

func TestDecodeFrameMalformed(t *testing.T) {
	for _, input := range []string{"", "not json", "[1,2]", `{"id":`} {
		_, err := DecodeFrame([]byte(input))
		assert.ErrorIs(t, err, exception.ErrWebSocketProtocol, input)
	}
}

func TestFrameRemoteLatency(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"id":1,"result":{},"usIn":1700000000000000,"usOut":1700000000000420}`))
	require.NoError(t, err)

	d, ok := f.RemoteLatency()
	require.True(t, ok)
	assert.Equal(t, 420*time.Microsecond, d)

	_, ok = Frame{UsIn: 10, UsOut: 5}.RemoteLatency()
	assert.False(t, ok)
	_, ok = Frame{}.RemoteLatency()
	assert.False(t, ok)
}

func TestDecodeAuthResult(t *testing.T) {
	res, err := DecodeAuthResult([]byte(`{"access_token":"tok","expires_in":900,"refresh_token":"r","scope":"session:x","token_type":"bearer"}`))
	require.NoError(t, err)
	assert.Equal(t, "tok", res.AccessToken)
	assert.Equal(t, int64(900), res.ExpiresIn)

	_, err = DecodeAuthResult([]byte(`{"expires_in":900}`))
	assert.ErrorIs(t, err, exception.ErrAuthRejected)

	_, err = DecodeAuthResult(nil)
	assert.ErrorIs(t, err, exception.ErrAuthRejected)
}
