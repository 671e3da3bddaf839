package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterRoute(t *testing.T) {
	r := NewRouter()
	book := NewConsumer(4, OverflowDropNewest)
	trades := NewConsumer(4, OverflowDropNewest)
	r.AddConsumer("book.BTC-PERPETUAL.100ms", book)
	r.AddConsumer("book.BTC-PERPETUAL.100ms", book)
	r.AddConsumer("trades.BTC-PERPETUAL.raw", trades)

	assert.True(t, r.Route(&Frame{Channel: "book.BTC-PERPETUAL.100ms", Payload: []byte("1")}))
	assert.False(t, r.Route(&Frame{Channel: "ticker.ETH-PERPETUAL.raw"}))
	assert.False(t, r.Route(nil))

	assert.Equal(t, 1, book.Len(), "duplicate registration delivers once")
	assert.Equal(t, 0, trades.Len())

	f, ok := book.Next()
	require.True(t, ok)
	assert.Equal(t, "1", string(f.Payload))

	assert.True(t, r.RemoveConsumer("book.BTC-PERPETUAL.100ms", book))
	assert.False(t, r.Route(&Frame{Channel: "book.BTC-PERPETUAL.100ms"}))

	r.Close()
	_, ok = trades.Next()
	assert.False(t, ok, "router close closes consumers")
}

func TestRouterRemoveKeepsOthers(t *testing.T) {
	r := NewRouter()
	a := NewConsumer(1, OverflowDropNewest)
	b := NewConsumer(1, OverflowDropNewest)
	r.AddConsumer("c", a)
	r.AddConsumer("c", b)

	assert.False(t, r.RemoveConsumer("c", a))
	assert.True(t, r.Route(&Frame{Channel: "c"}))
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 0, a.Len())
}

func TestFrameQueuePolicies(t *testing.T) {
	newest := NewConsumer(2, OverflowDropNewest)
	for i := 0; i < 3; i++ {
		newest.enqueue(&Frame{Payload: []byte{byte('a' + i)}})
	}
	assert.Equal(t, uint64(1), newest.Dropped())
	f, _ := newest.Next()
	assert.Equal(t, "a", string(f.Payload))

	oldest := NewConsumer(2, OverflowDropOldest)
	for i := 0; i < 3; i++ {
		oldest.enqueue(&Frame{Payload: []byte{byte('a' + i)}})
	}
	assert.Equal(t, uint64(1), oldest.Dropped())
	f, _ = oldest.Next()
	assert.Equal(t, "b", string(f.Payload))

	oldest.Close()
	assert.Equal(t, 0, oldest.Len())
	assert.False(t, oldest.enqueue(&Frame{}))
}

func TestFrameQueueBlockUnblocksOnPop(t *testing.T) {
	q := NewFrameQueue(1, OverflowBlock)
	require.True(t, q.Push(&Frame{Channel: "a"}))

	pushed := make(chan bool)
	go func() {
		pushed <- q.Push(&Frame{Channel: "b"})
	}()

	f, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", f.Channel)
	assert.True(t, <-pushed)

	f, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", f.Channel)
}

func TestSubscriptionsRefCount(t *testing.T) {
	s := NewSubscriptions()
	assert.True(t, s.Acquire("book"))
	assert.False(t, s.Acquire("book"))
	assert.True(t, s.Acquire("trades"))
	assert.Equal(t, []string{"book", "trades"}, s.Channels())

	assert.False(t, s.Release("book"))
	assert.True(t, s.Release("book"))
	assert.False(t, s.Release("book"), "unknown channel")
	assert.Equal(t, 1, s.Count())

	s.Reset()
	assert.Equal(t, 0, s.Count())
}
