package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mon-resto/internal/order/app/core"
	"mon-resto/internal/order/domain/models"
	"mon-resto/internal/order/lifecycle"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderRepo struct {
	db core.IDB
}

func NewOrderRepo(db core.IDB) *OrderRepo {
	return &OrderRepo{db: db}
}

// Create persists the order, its line items and the initial status log row
// in one transaction. The order leaves here with status pending and
// sequence 1; the caller publishes the matching event only after commit.
func (or *OrderRepo) Create(ctx context.Context, order models.Order) (models.Order, error) {
	tx, err := or.db.GetPool().Begin(ctx)
	if err != nil {
		return models.Order{}, core.ErrDBConn
	}
	defer tx.Rollback(ctx)

	order.ID = uuid.NewString()
	order.Status = models.StatusPending
	order.StatusSeq = 1
	order.CreatedAt = time.Now().UTC()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (
			id,
			table_reference,
			service_type,
			status,
			status_seq,
			total,
			payment_method,
			customer_ref,
			created_at,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`,
		order.ID,
		order.TableReference,
		order.ServiceType,
		order.Status,
		order.StatusSeq,
		order.Total,
		order.PaymentMethod,
		order.CustomerRef,
		order.CreatedAt,
	)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.LineItems {
		custom, err := json.Marshal(item.Customization)
		if err != nil {
			return models.Order{}, fmt.Errorf("failed to encode customization: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price, customization)
			VALUES ($1, $2, $3, $4, $5)
		`, order.ID, item.MenuItemID, item.Quantity, item.UnitPrice, custom)
		if err != nil {
			return models.Order{}, fmt.Errorf("failed to insert item: %w", err)
		}
	}

	if err := insertStatusLog(ctx, tx, order.ID, order.Status, core.DefaultChangedBy, order.CreatedAt); err != nil {
		return models.Order{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return order, nil
}

// Transition is the only code path that mutates order status. The current
// row is locked, the lifecycle table decides, and the new status plus its
// sequence number are committed before the caller may notify anyone.
func (or *OrderRepo) Transition(ctx context.Context, orderID string, cmd lifecycle.Command, changedBy string) (models.StatusEvent, error) {
	tx, err := or.db.GetPool().Begin(ctx)
	if err != nil {
		return models.StatusEvent{}, core.ErrDBConn
	}
	defer tx.Rollback(ctx)

	var order models.Order
	err = tx.QueryRow(ctx, `
		SELECT id, service_type, status, status_seq, created_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`, orderID).Scan(&order.ID, &order.ServiceType, &order.Status, &order.StatusSeq, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.StatusEvent{}, core.ErrOrderNotFound
		}
		return models.StatusEvent{}, fmt.Errorf("failed to load order: %w", err)
	}

	next, err := lifecycle.Next(order.Status, cmd)
	if err != nil {
		return models.StatusEvent{}, err
	}

	now := time.Now().UTC()
	var newSeq int64
	err = tx.QueryRow(ctx, `
		UPDATE orders
		SET status = $2, status_seq = status_seq + 1, updated_at = $3
		WHERE id = $1
		RETURNING status_seq
	`, orderID, next, now).Scan(&newSeq)
	if err != nil {
		return models.StatusEvent{}, fmt.Errorf("failed to update status: %w", err)
	}

	if err := insertStatusLog(ctx, tx, orderID, next, changedBy, now); err != nil {
		return models.StatusEvent{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.StatusEvent{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return lifecycle.Event(order, next, newSeq, now), nil
}

func insertStatusLog(ctx context.Context, tx pgx.Tx, orderID string, status models.Status, changedBy string, at time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at)
		VALUES ($1, $2, $3, $4)
	`, orderID, status, changedBy, at)
	if err != nil {
		return fmt.Errorf("failed to insert status log: %w", err)
	}
	return nil
}

func (or *OrderRepo) Get(ctx context.Context, orderID string) (models.Order, error) {
	var order models.Order
	err := or.db.GetPool().QueryRow(ctx, `
		SELECT id, table_reference, service_type, status, status_seq, total, payment_method, customer_ref, created_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(
		&order.ID,
		&order.TableReference,
		&order.ServiceType,
		&order.Status,
		&order.StatusSeq,
		&order.Total,
		&order.PaymentMethod,
		&order.CustomerRef,
		&order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, core.ErrOrderNotFound
		}
		return models.Order{}, fmt.Errorf("failed to load order: %w", err)
	}

	order.LineItems, err = or.loadItems(ctx, orderID)
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}

func (or *OrderRepo) loadItems(ctx context.Context, orderID string) ([]models.LineItem, error) {
	rows, err := or.db.GetPool().Query(ctx, `
		SELECT menu_item_id, quantity, unit_price, customization
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items: %w", err)
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		var custom []byte
		if err := rows.Scan(&item.MenuItemID, &item.Quantity, &item.UnitPrice, &custom); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		if len(custom) > 0 {
			if err := json.Unmarshal(custom, &item.Customization); err != nil {
				return nil, fmt.Errorf("failed to decode customization: %w", err)
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (or *OrderRepo) GetStatus(ctx context.Context, orderID string) (core.StatusSnapshot, error) {
	var snap core.StatusSnapshot
	err := or.db.GetPool().QueryRow(ctx, `
		SELECT status, status_seq, service_type, updated_at FROM orders WHERE id = $1
	`, orderID).Scan(&snap.Status, &snap.Sequence, &snap.ServiceType, &snap.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return core.StatusSnapshot{}, core.ErrOrderNotFound
		}
		return core.StatusSnapshot{}, fmt.Errorf("failed to load status: %w", err)
	}
	return snap, nil
}

func (or *OrderRepo) GetHistory(ctx context.Context, orderID string) ([]core.StatusLogEntry, error) {
	rows, err := or.db.GetPool().Query(ctx, `
		SELECT status, changed_by, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var entries []core.StatusLogEntry
	for rows.Next() {
		var e core.StatusLogEntry
		if err := rows.Scan(&e.Status, &e.ChangedBy, &e.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, core.ErrOrderNotFound
	}
	return entries, nil
}

// ListActive returns every non-terminal order. This is the subscribe-time
// snapshot for kitchen and admin observers.
func (or *OrderRepo) ListActive(ctx context.Context) ([]models.Order, error) {
	rows, err := or.db.GetPool().Query(ctx, `
		SELECT id, table_reference, service_type, status, status_seq, total, payment_method, customer_ref, created_at
		FROM orders
		WHERE status NOT IN ($1, $2)
		ORDER BY created_at
	`, models.StatusDelivered, models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to list active orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var order models.Order
		err := rows.Scan(
			&order.ID,
			&order.TableReference,
			&order.ServiceType,
			&order.Status,
			&order.StatusSeq,
			&order.Total,
			&order.PaymentMethod,
			&order.CustomerRef,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
