package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationPrivate(t *testing.T) {
	testCases := []struct {
		method  string
		private bool
	}{
		{"private/buy", true},
		{"private/get_positions", true},
		{"public/get_order_book", false},
		{"public/auth", false},
		{"privatebuy", false},
	}

	for _, tc := range testCases {
		t.Run(tc.method, func(t *testing.T) {
			assert.Equal(t, tc.private, NewOperation(tc.method, nil).Private())
		})
	}
}

func TestOperationWithToken(t *testing.T) {
	op := NewOperation("private/cancel", map[string]any{"order_id": "abc"})
	withToken := op.WithToken("tok")

	assert.Equal(t, "tok", withToken.Params["access_token"])
	assert.Equal(t, "abc", withToken.Params["order_id"])
	_, leaked := op.Params["access_token"]
	assert.False(t, leaked, "original params must not be mutated")

	pub := NewOperation("public/get_order_book", map[string]any{"instrument_name": "BTC-PERPETUAL"})
	assert.NotContains(t, pub.WithToken("tok").Params, "access_token")
}

func TestOperationQuery(t *testing.T) {
	op := NewOperation("private/buy", map[string]any{
		"instrument_name": "ETH-PERPETUAL",
		"amount":          40.0,
		"price":           2500.5,
		"post_only":       true,
		"depth":           5,
		"channels":        []string{"a", "b"},
	})

	q := op.Query()
	assert.Equal(t, "ETH-PERPETUAL", q.Get("instrument_name"))
	assert.Equal(t, "40", q.Get("amount"))
	assert.Equal(t, "2500.5", q.Get("price"))
	assert.Equal(t, "true", q.Get("post_only"))
	assert.Equal(t, "5", q.Get("depth"))
	require.Len(t, q["channels"], 2)
	assert.Equal(t, []string{"a", "b"}, q["channels"])
}
