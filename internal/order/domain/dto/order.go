package dto

import "time"

// CheckoutRequest is the only payload that creates orders. Raw status,
// service type and payment strings are translated to the canonical
// vocabulary during validation, never trusted past that point.
type CheckoutRequest struct {
	ServiceType    string `json:"service_type"`
	TableReference string `json:"table_reference,omitempty"`
	PaymentMethod  string `json:"payment_method"`
	CustomerRef    string `json:"customer_ref,omitempty"`
	Items          []Item `json:"items"`
}

type Item struct {
	MenuItemID string   `json:"menu_item_id"`
	Quantity   int      `json:"quantity"`
	UnitPrice  int64    `json:"unit_price"`
	Cooking    string   `json:"cooking,omitempty"`
	Sides      []string `json:"sides,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

type CheckoutResponse struct {
	OrderID      string    `json:"order_id"`
	Status       string    `json:"status"`
	Total        int64     `json:"total"`
	EarnedPoints int       `json:"earned_points"`
	CreatedAt    time.Time `json:"created_at"`
}

// StatusResponse is the pull-mode answer. The sequence lets observers run
// polled state through the same staleness gate as pushed events.
type StatusResponse struct {
	OrderID             string     `json:"order_id"`
	Status              string     `json:"status"`
	Sequence            int64      `json:"sequence"`
	UpdatedAt           time.Time  `json:"updated_at"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	Priority            bool       `json:"priority,omitempty"`
}

type HistoryEntry struct {
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

type RatingRequest struct {
	Score   int    `json:"score"`
	Comment string `json:"comment,omitempty"`
}

type TransitionResponse struct {
	OrderID   string `json:"order_id"`
	NewStatus string `json:"new_status"`
	Sequence  int64  `json:"sequence"`
}
