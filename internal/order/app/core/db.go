package core

import (
	"context"
	"time"

	"mon-resto/internal/order/domain/models"
	"mon-resto/internal/order/lifecycle"

	"github.com/jackc/pgx/v5/pgxpool"
)

type IDB interface {
	Close() error
	IsAlive(ctx context.Context) error
	GetPool() *pgxpool.Pool
}

type IOrderRepo interface {
	// Create persists a new order, its items and the initial status log
	// entry in one transaction. The returned order carries sequence 1.
	Create(ctx context.Context, order models.Order) (models.Order, error)
	// Transition validates cmd against the lifecycle table and applies it
	// atomically; on an illegal pair it returns models.ErrInvalidTransition
	// and writes nothing.
	Transition(ctx context.Context, orderID string, cmd lifecycle.Command, changedBy string) (models.StatusEvent, error)
	Get(ctx context.Context, orderID string) (models.Order, error)
	GetStatus(ctx context.Context, orderID string) (StatusSnapshot, error)
	GetHistory(ctx context.Context, orderID string) ([]StatusLogEntry, error)
	ListActive(ctx context.Context) ([]models.Order, error)
}

// StatusSnapshot is the minimal read for pull-mode polling: enough to
// rebuild the same metadata a pushed event carries.
type StatusSnapshot struct {
	Status      models.Status
	Sequence    int64
	ServiceType models.ServiceType
	UpdatedAt   time.Time
}

type StatusLogEntry struct {
	Status    models.Status `json:"status"`
	ChangedBy string        `json:"changed_by"`
	ChangedAt time.Time     `json:"changed_at"`
}
