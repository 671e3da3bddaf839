package correlation

import (
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bridge/internal/adapter"
	"bridge/internal/adapter/enum"
	"bridge/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestTableInsertDuplicate(t *testing.T) {
	table := NewTable()
	first := NewPendingCall(1, "private/buy", time.Now())
	require.NoError(t, table.Insert(first))

	err := table.Insert(NewPendingCall(1, "private/cancel", time.Now()))
	require.ErrorIs(t, err, exception.ErrDuplicateID)

	call, ok := table.TakeIfPresent(1)
	require.True(t, ok)
	assert.Same(t, first, call, "duplicate insert must not replace the entry")

	assert.ErrorIs(t, table.Insert(nil), exception.ErrNilInstance)
}

func TestTableTakeAndRemove(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Insert(NewPendingCall(5, "m", time.Now())))
	require.NoError(t, table.Insert(NewPendingCall(6, "m", time.Now())))
	assert.Equal(t, 2, table.Len())
	assert.True(t, table.Contains(5))

	_, ok := table.TakeIfPresent(5)
	assert.True(t, ok)
	_, ok = table.TakeIfPresent(5)
	assert.False(t, ok)

	assert.True(t, table.RemoveAndDiscard(6))
	assert.False(t, table.RemoveAndDiscard(6))
	assert.Equal(t, 0, table.Len())
}

func TestTableAbandonTombstone(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	table := NewTable(WithClock(clock), WithTombstoneTTL(time.Second))

	require.NoError(t, table.Insert(NewPendingCall(9, "m", now)))
	_, ok := table.Abandon(9)
	require.True(t, ok)

	_, ok = table.Abandon(9)
	assert.False(t, ok, "second abandon must not find the entry")

	_, ok = table.TakeIfPresent(9)
	assert.False(t, ok, "late reply must not find the entry")
	assert.True(t, table.WasAbandoned(9))
	assert.False(t, table.WasAbandoned(9), "tombstone is consumed once")

	require.NoError(t, table.Insert(NewPendingCall(10, "m", now)))
	_, ok = table.Abandon(10)
	require.True(t, ok)
	now = now.Add(2 * time.Second)
	assert.False(t, table.WasAbandoned(10), "expired tombstone")
}

func TestTableDrain(t *testing.T) {
	table := NewTable()
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, table.Insert(NewPendingCall(i, "m", time.Now())))
	}

	calls := table.Drain()
	assert.Len(t, calls, 3)
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Drain())
}

func TestPendingCallResolveOnce(t *testing.T) {
	call := NewPendingCall(3, "private/get_positions", time.Now())
	_, ok := call.Result()
	assert.False(t, ok)

	assert.True(t, call.Resolve(adapter.Envelope{Status: enum.CallStatusSuccess}))
	assert.False(t, call.Resolve(adapter.Envelope{Status: enum.CallStatusTimedOut}))

	select {
	case <-call.Done():
	default:
		t.Fatal("done not closed")
	}

	env, ok := call.Result()
	require.True(t, ok)
	assert.Equal(t, enum.CallStatusSuccess, env.Status)
	assert.Equal(t, uint64(3), env.ID)
	assert.Equal(t, "private/get_positions", env.Method)
}

func TestTableSingleOwner(t *testing.T) {
	const n = 200
	table := NewTable()
	var wins atomic.Int64

	for i := uint64(0); i < n; i++ {
		require.NoError(t, table.Insert(NewPendingCall(i, "m", time.Now())))
	}

	var wg sync.WaitGroup
	for i := uint64(0); i < n; i++ {
		wg.Add(2)
		go func(id uint64) {
			defer wg.Done()
			if _, ok := table.TakeIfPresent(id); ok {
				wins.Add(1)
			}
		}(i)
		go func(id uint64) {
			defer wg.Done()
			if _, ok := table.Abandon(id); ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(n), wins.Load())
}

// Replies delivered in any order by several goroutines wake exactly the caller that
// owns each id, with that id's payload.
func TestTableOutOfOrderReplies(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 64).Draw(rt, "n")
		order := rapid.Permutation(makeIDs(n)).Draw(rt, "order")
		resolvers := rapid.IntRange(1, 4).Draw(rt, "resolvers")

		table := NewTable()
		calls := make([]*PendingCall, n)
		for i := range calls {
			calls[i] = NewPendingCall(uint64(i), "m", time.Now())
			if err := table.Insert(calls[i]); err != nil {
				rt.Fatalf("insert %d: %v", i, err)
			}
		}

		var wg sync.WaitGroup
		for r := 0; r < resolvers; r++ {
			wg.Add(1)
			go func(offset int) {
				defer wg.Done()
				for i := offset; i < len(order); i += resolvers {
					id := order[i]
					call, ok := table.TakeIfPresent(id)
					if !ok {
						continue
					}
					call.Resolve(adapter.Envelope{
						Status:  enum.CallStatusSuccess,
						Payload: json.RawMessage(strconv.FormatUint(id, 10)),
					})
				}
			}(r)
		}
		wg.Wait()

		for i, call := range calls {
			<-call.Done()
			env, ok := call.Result()
			if !ok {
				rt.Fatalf("call %d unresolved", i)
			}
			if string(env.Payload) != strconv.Itoa(i) || env.ID != uint64(i) {
				rt.Fatalf("call %d got payload %s id %d", i, env.Payload, env.ID)
			}
		}
		if table.Len() != 0 {
			rt.Fatalf("table not empty: %d", table.Len())
		}
	})
}

func makeIDs(n int) []uint64 {
	ids := make([]uint64, n)
	for i := range ids {
		ids[i] = uint64(i)
	}
	return ids
}
