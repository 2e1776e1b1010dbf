// Package pull is the fallback synchronization channel: periodic status
// polling for a single order, feeding the same store gate as push.
package pull

import (
	"context"
	"errors"
	"time"

	"mon-resto/internal/mylogger"
	"mon-resto/internal/observer/api"
	"mon-resto/internal/observer/store"
	"mon-resto/internal/order/domain/models"
)

// StatusFetcher is the slice of the order-service client the poller needs.
type StatusFetcher interface {
	Status(ctx context.Context, orderID string) (models.StatusEvent, error)
}

type Poller struct {
	orderID  string
	interval time.Duration
	fetcher  StatusFetcher
	store    *store.Store
	mylog    mylogger.Logger

	// paused reports whether polling should be skipped this tick, e.g.
	// because the push channel is connected and already authoritative.
	paused func() bool
}

func New(orderID string, interval time.Duration, fetcher StatusFetcher, st *store.Store, mylog mylogger.Logger) *Poller {
	return &Poller{
		orderID:  orderID,
		interval: interval,
		fetcher:  fetcher,
		store:    st,
		mylog:    mylog,
	}
}

// PauseWhen installs a predicate consulted before each poll. Must be set
// before Run.
func (p *Poller) PauseWhen(fn func() bool) {
	p.paused = fn
}

// Run polls until the order reaches a terminal status or ctx is
// cancelled. Failed polls are logged and retried on the next tick; the
// staleness gate in the store makes redundant polls harmless.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if done := p.poll(ctx); done {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if done := p.poll(ctx); done {
				return nil
			}
		}
	}
}

func (p *Poller) poll(ctx context.Context) bool {
	if p.paused != nil && p.paused() {
		return false
	}

	pollCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	event, err := p.fetcher.Status(pollCtx, p.orderID)
	if err != nil {
		if errors.Is(err, api.ErrOrderNotFound) {
			p.mylog.Action("poll_order_gone").Warn("Order no longer exists, stopping poller", "order_id", p.orderID)
			return true
		}
		p.mylog.Action("poll_failed").Warn("Status poll failed", "order_id", p.orderID, "error", err.Error())
		return false
	}

	p.store.ApplyEvent(event)

	if event.NewStatus.Terminal() {
		p.mylog.Action("poll_done").Debug("Order reached terminal status, stopping poller", "order_id", p.orderID, "status", string(event.NewStatus))
		return true
	}
	return false
}
