package pull_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mon-resto/internal/mylogger"
	"mon-resto/internal/observer/api"
	"mon-resto/internal/observer/pull"
	"mon-resto/internal/observer/store"
	"mon-resto/internal/order/domain/models"
)

// scriptedFetcher serves a fixed sequence of responses, then keeps
// repeating the last one.
type scriptedFetcher struct {
	mu     sync.Mutex
	events []models.StatusEvent
	err    error
	calls  int
}

func (f *scriptedFetcher) Status(context.Context, string) (models.StatusEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.StatusEvent{}, f.err
	}
	i := f.calls - 1
	if i >= len(f.events) {
		i = len(f.events) - 1
	}
	return f.events[i], nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPollerStopsAtTerminal(t *testing.T) {
	t.Parallel()

	st := store.New(mylogger.Discard())
	t.Cleanup(st.Close)
	st.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusPending, StatusSeq: 1}})

	fetcher := &scriptedFetcher{events: []models.StatusEvent{
		{OrderID: "ord-1", NewStatus: models.StatusPreparing, Sequence: 2},
		{OrderID: "ord-1", NewStatus: models.StatusReady, Sequence: 3},
		{OrderID: "ord-1", NewStatus: models.StatusDelivered, Sequence: 4},
	}}

	p := pull.New("ord-1", 5*time.Millisecond, fetcher, st, mylogger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx))

	order, ok := st.Order("ord-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusDelivered, order.Status)

	// No fetches after the terminal status was seen.
	calls := fetcher.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, fetcher.callCount())
}

func TestPollerStopsWhenOrderGone(t *testing.T) {
	t.Parallel()

	st := store.New(mylogger.Discard())
	t.Cleanup(st.Close)
	st.LoadSnapshot(nil)

	fetcher := &scriptedFetcher{err: api.ErrOrderNotFound}
	p := pull.New("ord-404", 5*time.Millisecond, fetcher, st, mylogger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 1, fetcher.callCount())
}

func TestPollerPaused(t *testing.T) {
	t.Parallel()

	st := store.New(mylogger.Discard())
	t.Cleanup(st.Close)
	st.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusPending, StatusSeq: 1}})

	fetcher := &scriptedFetcher{events: []models.StatusEvent{
		{OrderID: "ord-1", NewStatus: models.StatusDelivered, Sequence: 2},
	}}

	p := pull.New("ord-1", 5*time.Millisecond, fetcher, st, mylogger.Discard())
	p.PauseWhen(func() bool { return true })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// While paused the poller never hits the order service; the pushed
	// channel owns synchronization.
	assert.Equal(t, 0, fetcher.callCount())

	order, _ := st.Order("ord-1")
	assert.Equal(t, models.StatusPending, order.Status)
}

func TestPollerRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	st := store.New(mylogger.Discard())
	t.Cleanup(st.Close)
	st.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusPending, StatusSeq: 1}})

	fetcher := &scriptedFetcher{err: context.DeadlineExceeded}
	p := pull.New("ord-1", 5*time.Millisecond, fetcher, st, mylogger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	err := p.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Greater(t, fetcher.callCount(), 1, "transient failures are retried on the next tick")
}
