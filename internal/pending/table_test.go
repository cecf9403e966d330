package pending

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
	"github.com/AlexZinkM/wallet-relay/internal/model"
)

func newTestTable(t *testing.T, timeout time.Duration) *Table {
	tbl, err := New(wlog.NewNopLogger(), timeout, 128)
	require.NoError(t, err)
	return tbl
}

func ticket(id string) Ticket {
	return Ticket{ID: id, Origin: "https://dapp.example", Method: model.ParseMethod("signTransaction")}
}

func TestResolveDeliversOnce(t *testing.T) {
	tbl := newTestTable(t, 0)

	var got []model.Response
	require.NoError(t, tbl.Register(ticket("r1"), func(r model.Response) { got = append(got, r) }))
	assert.Equal(t, 1, tbl.Len())

	require.NoError(t, tbl.Resolve(model.Response{Method: "signed", ID: "r1"}))
	assert.Equal(t, 0, tbl.Len())

	err := tbl.Resolve(model.Response{Method: "signed", ID: "r1"})
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	require.Len(t, got, 1)
	assert.Equal(t, "signed", got[0].Method)
}

func TestUnknownID(t *testing.T) {
	tbl := newTestTable(t, 0)
	err := tbl.Resolve(model.Response{ID: "never"})
	assert.ErrorIs(t, err, ErrUnknownPendingID)
}

func TestLookup(t *testing.T) {
	tbl := newTestTable(t, 0)
	assert.ErrorIs(t, tbl.Lookup("r1"), ErrUnknownPendingID)

	require.NoError(t, tbl.Register(ticket("r1"), func(model.Response) {}))
	assert.NoError(t, tbl.Lookup("r1"))
	assert.Equal(t, 1, tbl.Len(), "lookup leaves the entry in place")

	require.True(t, tbl.Cancel("r1", model.ErrCodeCancelled, "gone"))
	assert.ErrorIs(t, tbl.Lookup("r1"), ErrAlreadyResolved)
}

func TestDuplicateRegister(t *testing.T) {
	tbl := newTestTable(t, 0)
	require.NoError(t, tbl.Register(ticket("r1"), func(model.Response) {}))
	assert.ErrorIs(t, tbl.Register(ticket("r1"), func(model.Response) {}), ErrDuplicateID)

	require.NoError(t, tbl.Resolve(model.Response{ID: "r1"}))
	// a resolved id cannot be reused while it is remembered
	assert.ErrorIs(t, tbl.Register(ticket("r1"), func(model.Response) {}), ErrDuplicateID)
}

func TestTimeoutDeliversError(t *testing.T) {
	tbl := newTestTable(t, 20*time.Millisecond)

	var evicted atomic.Value
	tbl.OnEvict(func(id string) { evicted.Store(id) })

	done := make(chan model.Response, 2)
	require.NoError(t, tbl.Register(ticket("r1"), func(r model.Response) { done <- r }))

	select {
	case r := <-done:
		require.True(t, r.IsError())
		var p model.ErrorParams
		require.NoError(t, r.DecodeParams(&p))
		assert.Equal(t, model.ErrCodeTimeout, p.Code)
		assert.Equal(t, "r1", r.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout response not delivered")
	}
	assert.Equal(t, "r1", evicted.Load())

	// a late approval result is dropped
	assert.ErrorIs(t, tbl.Resolve(model.Response{ID: "r1"}), ErrAlreadyResolved)
	assert.Len(t, done, 0)
}

func TestResolveStopsTimer(t *testing.T) {
	tbl := newTestTable(t, 30*time.Millisecond)

	var calls int32
	require.NoError(t, tbl.Register(ticket("r1"), func(model.Response) { atomic.AddInt32(&calls, 1) }))
	require.NoError(t, tbl.Resolve(model.Response{ID: "r1"}))

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCancel(t *testing.T) {
	tbl := newTestTable(t, 0)
	var got model.Response
	require.NoError(t, tbl.Register(ticket("r1"), func(r model.Response) { got = r }))

	assert.True(t, tbl.Cancel("r1", model.ErrCodeRejected, "dismissed"))
	assert.False(t, tbl.Cancel("r1", model.ErrCodeRejected, "dismissed"))
	assert.True(t, got.IsError())
}

func TestCloseResolvesEverything(t *testing.T) {
	tbl := newTestTable(t, 0)
	var calls int32
	for i := 0; i < 5; i++ {
		require.NoError(t, tbl.Register(ticket(fmt.Sprintf("r%d", i)), func(r model.Response) {
			if r.IsError() {
				atomic.AddInt32(&calls, 1)
			}
		}))
	}
	tbl.Close()

	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, tbl.Len())
	assert.ErrorIs(t, tbl.Register(ticket("late"), func(model.Response) {}), ErrClosed)
}

func TestExactlyOnceUnderInterleaving(t *testing.T) {
	tbl := newTestTable(t, 0)
	const n = 200

	counts := make([]int32, n)
	for i := 0; i < n; i++ {
		i := i
		require.NoError(t, tbl.Register(ticket(fmt.Sprintf("r%d", i)), func(model.Response) {
			atomic.AddInt32(&counts[i], 1)
		}))
	}

	order := rand.Perm(n)
	var wg sync.WaitGroup
	for _, i := range order {
		wg.Add(2)
		// every result is sent twice, concurrently
		for k := 0; k < 2; k++ {
			go func(i int) {
				defer wg.Done()
				_ = tbl.Resolve(model.Response{ID: fmt.Sprintf("r%d", i)})
			}(i)
		}
	}
	wg.Wait()

	for i := range counts {
		assert.Equal(t, int32(1), counts[i], "request r%d", i)
	}
}

func TestKnown(t *testing.T) {
	tbl := newTestTable(t, 0)
	assert.False(t, tbl.Known("r1"))
	require.NoError(t, tbl.Register(ticket("r1"), func(model.Response) {}))
	assert.True(t, tbl.Known("r1"))
	require.NoError(t, tbl.Resolve(model.Response{ID: "r1"}))
	assert.True(t, tbl.Known("r1"))
}
