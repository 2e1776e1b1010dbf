package store_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mon-resto/internal/mylogger"
	"mon-resto/internal/observer/store"
	"mon-resto/internal/order/domain/models"
)

func event(orderID string, status models.Status, seq int64) models.StatusEvent {
	return models.StatusEvent{
		OrderID:         orderID,
		NewStatus:       status,
		Sequence:        seq,
		ServerTimestamp: time.Now().UTC(),
	}
}

func newStore(t *testing.T, opts ...store.Option) *store.Store {
	t.Helper()
	s := store.New(mylogger.Discard(), opts...)
	t.Cleanup(s.Close)
	return s
}

func TestApplyEventOutOfOrder(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	s.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusPending, StatusSeq: 1}})

	// Events arrive 1, 3, 2: the late seq-2 must not roll the order back.
	assert.False(t, s.ApplyEvent(event("ord-1", models.StatusConfirmed, 1)))
	assert.True(t, s.ApplyEvent(event("ord-1", models.StatusReady, 3)))
	assert.False(t, s.ApplyEvent(event("ord-1", models.StatusPreparing, 2)))

	order, ok := s.Order("ord-1")
	require.True(t, ok)
	assert.Equal(t, models.StatusReady, order.Status)
	assert.Equal(t, int64(3), order.StatusSeq)
}

func TestApplyEventDuplicate(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	s.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusPending, StatusSeq: 1}})

	var notified int
	unsubscribe := s.Subscribe("ord-1", func(store.Update) { notified++ })
	defer unsubscribe()

	ev := event("ord-1", models.StatusConfirmed, 2)
	assert.True(t, s.ApplyEvent(ev))
	// Redundant delivery (push plus poll racing) is a no-op.
	assert.False(t, s.ApplyEvent(ev))
	assert.False(t, s.ApplyEvent(ev))

	assert.Equal(t, 1, notified)
}

func TestApplyEventUnknownOrder(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	s.LoadSnapshot(nil)

	// A board must pick up orders created after its snapshot.
	require.True(t, s.ApplyEvent(event("ord-new", models.StatusPending, 1)))

	order, ok := s.Order("ord-new")
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, order.Status)
}

func TestOptimisticSupersededByFreshEvent(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	s.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusPending, StatusSeq: 1}})

	require.NoError(t, s.ApplyOptimistic("ord-1", models.StatusConfirmed))
	order, _ := s.Order("ord-1")
	assert.Equal(t, models.StatusConfirmed, order.Status)

	// The server disagrees: it cancelled the order. Server wins, the
	// overlay is replaced, not merged.
	require.True(t, s.ApplyEvent(event("ord-1", models.StatusCancelled, 2)))
	order, _ = s.Order("ord-1")
	assert.Equal(t, models.StatusCancelled, order.Status)
}

func TestOptimisticClearedByStaleEvent(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	s.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusConfirmed, StatusSeq: 2}})

	require.NoError(t, s.ApplyOptimistic("ord-1", models.StatusPreparing))

	// A stale event (e.g. the authoritative re-fetch after a rejected
	// command) still clears the overlay and restores confirmed state.
	var last store.Update
	unsubscribe := s.Subscribe("ord-1", func(u store.Update) { last = u })
	defer unsubscribe()

	assert.True(t, s.ApplyEvent(event("ord-1", models.StatusConfirmed, 2)))

	order, _ := s.Order("ord-1")
	assert.Equal(t, models.StatusConfirmed, order.Status)
	assert.Equal(t, int64(2), order.StatusSeq)
	assert.False(t, last.Optimistic)
}

func TestApplyOptimisticUnknownOrder(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	s.LoadSnapshot(nil)

	err := s.ApplyOptimistic("ord-404", models.StatusConfirmed)
	require.ErrorIs(t, err, store.ErrUnavailable)
}

func TestSubscribeFiltering(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	s.LoadSnapshot([]models.Order{
		{ID: "ord-1", Status: models.StatusPending, StatusSeq: 1},
		{ID: "ord-2", Status: models.StatusPending, StatusSeq: 1},
	})

	var mine, all int
	defer s.Subscribe("ord-1", func(store.Update) { mine++ })()
	defer s.Subscribe("", func(store.Update) { all++ })()

	s.ApplyEvent(event("ord-1", models.StatusConfirmed, 2))
	s.ApplyEvent(event("ord-2", models.StatusConfirmed, 2))

	assert.Equal(t, 1, mine)
	assert.Equal(t, 2, all)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	s.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusPending, StatusSeq: 1}})

	var notified int
	unsubscribe := s.Subscribe("ord-1", func(store.Update) { notified++ })

	s.ApplyEvent(event("ord-1", models.StatusConfirmed, 2))
	unsubscribe()
	s.ApplyEvent(event("ord-1", models.StatusPreparing, 3))

	assert.Equal(t, 1, notified)
}

func TestAvailability(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	assert.False(t, s.Available(), "no snapshot yet")

	s.LoadSnapshot(nil)
	assert.True(t, s.Available())

	s.SetUnavailable()
	assert.False(t, s.Available())

	s.LoadSnapshot(nil)
	assert.True(t, s.Available())
}

func TestRatingPromptFiresAfterDelay(t *testing.T) {
	t.Parallel()

	fired := make(chan string, 1)
	s := newStore(t, store.WithRatingPrompt(20*time.Millisecond, func(orderID string) {
		fired <- orderID
	}))
	s.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusReady, StatusSeq: 4}})

	s.ApplyEvent(event("ord-1", models.StatusDelivered, 5))

	select {
	case id := <-fired:
		assert.Equal(t, "ord-1", id)
	case <-time.After(time.Second):
		t.Fatal("rating prompt never fired")
	}
}

func TestRatingPromptCancelledByClose(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var fired bool
	s := store.New(mylogger.Discard(), store.WithRatingPrompt(20*time.Millisecond, func(string) {
		mu.Lock()
		fired = true
		mu.Unlock()
	}))
	s.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusReady, StatusSeq: 4}})

	s.ApplyEvent(event("ord-1", models.StatusDelivered, 5))
	s.Close()

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, fired, "closed store must not fire timers")
}

func TestCloseIgnoresFurtherEvents(t *testing.T) {
	t.Parallel()

	s := store.New(mylogger.Discard())
	s.LoadSnapshot([]models.Order{{ID: "ord-1", Status: models.StatusPending, StatusSeq: 1}})
	s.Close()

	assert.False(t, s.ApplyEvent(event("ord-1", models.StatusConfirmed, 2)))
	require.ErrorIs(t, s.ApplyOptimistic("ord-1", models.StatusConfirmed), store.ErrClosed)
}

func TestSnapshotReplacesProjection(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	s.LoadSnapshot([]models.Order{
		{ID: "ord-1", Status: models.StatusPending, StatusSeq: 1},
		{ID: "ord-2", Status: models.StatusPreparing, StatusSeq: 3},
	})

	// A reconnect snapshot is authoritative: orders that finished while
	// offline disappear.
	s.LoadSnapshot([]models.Order{
		{ID: "ord-2", Status: models.StatusReady, StatusSeq: 4},
	})

	_, ok := s.Order("ord-1")
	assert.False(t, ok)

	order, ok := s.Order("ord-2")
	require.True(t, ok)
	assert.Equal(t, models.StatusReady, order.Status)
	assert.Len(t, s.Orders(), 1)
}
