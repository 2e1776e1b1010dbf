// Package store holds one observer's local projection of orders and
// reconciles three sources of truth: the subscribe-time snapshot, incoming
// status events and locally-initiated optimistic transitions. It is a pure
// state-and-subscription object: no transport, no rendering.
package store

import (
	"errors"
	"sync"
	"time"

	"mon-resto/internal/mylogger"
	"mon-resto/internal/order/domain/models"
)

// ErrUnavailable is reported while the store has no snapshot to serve;
// consumers show an error state and may retry the snapshot fetch.
var ErrUnavailable = errors.New("order store unavailable")

var ErrClosed = errors.New("order store closed")

// entry keeps the confirmed projection of one order plus an optional
// optimistic overlay. The overlay never survives a server event.
type entry struct {
	order      models.Order
	optimistic *models.Status
}

func (e *entry) status() models.Status {
	if e.optimistic != nil {
		return *e.optimistic
	}
	return e.order.Status
}

// Update is what subscribers receive after each applied change.
type Update struct {
	OrderID    string
	Status     models.Status
	Optimistic bool
	// Priority mirrors the urgent flag of the applied event (entering
	// ready) so boards can play their distinct cue.
	Priority bool
	// EstimatedCompletion is carried while the order is being prepared.
	EstimatedCompletion *time.Time
}

type subscriber struct {
	orderID string // empty means all orders
	fn      func(Update)
}

type Store struct {
	mu      sync.Mutex
	orders  map[string]*entry
	subs    map[int]subscriber
	nextSub int

	unavailable bool
	closed      bool

	// Deferred rating prompts, one timer per delivered order, cancelled
	// on Close so nothing fires after teardown.
	ratingDelay  time.Duration
	onRating     func(orderID string)
	ratingTimers map[string]*time.Timer

	mylog mylogger.Logger
}

type Option func(*Store)

// WithRatingPrompt arms a deferred rating prompt that fires delay after an
// order is seen entering delivered.
func WithRatingPrompt(delay time.Duration, fn func(orderID string)) Option {
	return func(s *Store) {
		s.ratingDelay = delay
		s.onRating = fn
	}
}

func New(mylog mylogger.Logger, opts ...Option) *Store {
	s := &Store{
		orders:       make(map[string]*entry),
		subs:         make(map[int]subscriber),
		ratingTimers: make(map[string]*time.Timer),
		unavailable:  true, // until the first snapshot lands
		mylog:        mylog,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadSnapshot replaces the projection with the authoritative snapshot
// fetched at subscribe time and clears the unavailable state.
func (s *Store) LoadSnapshot(orders []models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.orders = make(map[string]*entry, len(orders))
	for _, order := range orders {
		s.orders[order.ID] = &entry{order: order}
	}
	s.unavailable = false

	for _, order := range orders {
		s.notifyLocked(Update{OrderID: order.ID, Status: order.Status})
	}
}

// SetUnavailable records a failed snapshot fetch. The store keeps serving
// whatever it has, but consumers are told the projection cannot be
// trusted until a snapshot succeeds.
func (s *Store) SetUnavailable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = true
}

func (s *Store) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.unavailable && !s.closed
}

// ApplyEvent runs one authoritative event through the staleness gate.
// Events are applied only in strictly increasing sequence order per
// order; anything else is discarded, except that a stale event still
// clears an optimistic overlay (the server always wins). Returns whether
// the projection changed.
func (s *Store) ApplyEvent(event models.StatusEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	e, ok := s.orders[event.OrderID]
	if !ok {
		// First sighting of this order (e.g. a kitchen board receiving a
		// brand-new checkout).
		e = &entry{order: models.Order{ID: event.OrderID, CreatedAt: event.ServerTimestamp}}
		s.orders[event.OrderID] = e
	}

	if event.Sequence <= e.order.StatusSeq {
		if e.optimistic == nil {
			s.mylog.Debug("Discarding stale status event", "order_id", event.OrderID, "sequence", event.Sequence, "last_applied", e.order.StatusSeq)
			return false
		}
		// Stale or duplicate, but a server event nonetheless: the
		// optimistic overlay is superseded, never merged.
		e.optimistic = nil
		s.notifyLocked(Update{OrderID: event.OrderID, Status: e.order.Status})
		return true
	}

	e.order.Status = event.NewStatus
	e.order.StatusSeq = event.Sequence
	e.optimistic = nil

	if event.NewStatus == models.StatusDelivered {
		s.scheduleRatingLocked(event.OrderID)
	}

	s.notifyLocked(Update{
		OrderID:             event.OrderID,
		Status:              event.NewStatus,
		Priority:            event.Priority,
		EstimatedCompletion: event.EstimatedCompletion,
	})
	return true
}

// ApplyOptimistic records a locally-initiated transition before server
// confirmation, to hide round-trip latency. It never advances the
// sequence gate; the next server event for the order replaces it.
func (s *Store) ApplyOptimistic(orderID string, next models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	e, ok := s.orders[orderID]
	if !ok {
		return ErrUnavailable
	}

	e.optimistic = &next
	s.notifyLocked(Update{OrderID: orderID, Status: next, Optimistic: true})
	return nil
}

// Subscribe registers interest in one order (orderID set) or all orders
// (orderID empty). Notification is synchronous with the applied change.
// The returned function removes the subscription.
func (s *Store) Subscribe(orderID string, fn func(Update)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = subscriber{orderID: orderID, fn: fn}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Order returns the current projection of one order; the status reflects
// any optimistic overlay.
func (s *Store) Order(orderID string) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.orders[orderID]
	if !ok {
		return models.Order{}, false
	}
	order := e.order
	order.Status = e.status()
	return order, true
}

// Orders returns the current projection of every known order.
func (s *Store) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Order, 0, len(s.orders))
	for _, e := range s.orders {
		order := e.order
		order.Status = e.status()
		out = append(out, order)
	}
	return out
}

// Close tears the store down: pending rating prompts are cancelled and
// will not fire, further events are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	for orderID, timer := range s.ratingTimers {
		timer.Stop()
		delete(s.ratingTimers, orderID)
	}
	s.subs = make(map[int]subscriber)
}

func (s *Store) scheduleRatingLocked(orderID string) {
	if s.onRating == nil {
		return
	}
	if _, armed := s.ratingTimers[orderID]; armed {
		return
	}

	s.ratingTimers[orderID] = time.AfterFunc(s.ratingDelay, func() {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		delete(s.ratingTimers, orderID)
		fn := s.onRating
		s.mu.Unlock()

		fn(orderID)
	})
}

// notifyLocked runs matching subscriber callbacks. Called with the mutex
// held, which is what makes each event application atomic relative to the
// consumers' view; callbacks must not call back into the store.
func (s *Store) notifyLocked(u Update) {
	for _, sub := range s.subs {
		if sub.orderID != "" && sub.orderID != u.OrderID {
			continue
		}
		sub.fn(u)
	}
}
