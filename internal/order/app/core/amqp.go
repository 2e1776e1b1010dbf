package core

import (
	"context"

	"mon-resto/internal/order/domain/models"
)

type IRabbitMQ interface {
	Close() error
	IsAlive() error
	// PushEvent publishes a committed status change to the fanout
	// exchange. Best effort: callers log and move on, pull mode covers
	// the gap.
	PushEvent(ctx context.Context, event models.StatusEvent) error
}

type ICache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type IReviews interface {
	// Submit forwards a rating to the external review service.
	Submit(ctx context.Context, orderID string, score int, comment string) error
}
