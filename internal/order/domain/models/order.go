package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation covers malformed order data at creation time.
	ErrValidation = errors.New("invalid order data")
	// ErrInvalidTransition covers illegal status change attempts.
	ErrInvalidTransition = errors.New("illegal status transition")
)

// Customization is the free-form per-item record set at checkout.
type Customization struct {
	Cooking string   `json:"cooking,omitempty"`
	Sides   []string `json:"sides,omitempty"`
	Notes   string   `json:"notes,omitempty"`
}

// LineItem quantities and unit prices are fixed once the order exists;
// prices are in cents.
type LineItem struct {
	MenuItemID    string        `json:"menu_item_id"`
	Quantity      int           `json:"quantity"`
	UnitPrice     int64         `json:"unit_price"`
	Customization Customization `json:"customization"`
}

type Order struct {
	ID             string        `json:"id"`
	TableReference string        `json:"table_reference,omitempty"`
	ServiceType    ServiceType   `json:"service_type"`
	LineItems      []LineItem    `json:"line_items"`
	Status         Status        `json:"status"`
	// StatusSeq is the sequence number of the last applied transition,
	// monotonic per order.
	StatusSeq      int64         `json:"status_seq"`
	CreatedAt      time.Time     `json:"created_at"`
	Total          int64         `json:"total"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	CustomerRef    string        `json:"customer_ref,omitempty"`
}

// StatusEvent is the unit the synchronization channel carries. Ephemeral:
// observers keep only the resulting projection, never the events.
type StatusEvent struct {
	OrderID         string    `json:"order_id"`
	NewStatus       Status    `json:"new_status"`
	ServerTimestamp time.Time `json:"server_timestamp"`
	Sequence        int64     `json:"sequence"`
	// Priority marks the one transition (entering ready) that observers
	// must surface with an urgent cue.
	Priority bool `json:"priority,omitempty"`
	// EstimatedCompletion is set on entering preparing.
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
}

// ComputeTotal sums unit price times quantity over all line items.
// The sum is independent of item order.
func ComputeTotal(items []LineItem) (int64, error) {
	var total int64
	for i, item := range items {
		if item.Quantity <= 0 {
			return 0, fmt.Errorf("%w: item %d: quantity must be positive, got %d", ErrValidation, i+1, item.Quantity)
		}
		if item.UnitPrice < 0 {
			return 0, fmt.Errorf("%w: item %d: price must not be negative, got %d", ErrValidation, i+1, item.UnitPrice)
		}
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total, nil
}

// ElapsedMinutes returns full minutes since createdAt, clamped at zero.
func ElapsedMinutes(createdAt, now time.Time) int {
	if now.Before(createdAt) {
		return 0
	}
	return int(now.Sub(createdAt).Minutes())
}

// LoyaltyPoints earned for an order total: one point per 10 currency
// units. Accounting itself belongs to the loyalty collaborator.
func LoyaltyPoints(total int64) int {
	if total <= 0 {
		return 0
	}
	return int(total / 1000)
}
