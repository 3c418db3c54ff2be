package models

import "time"

const (
	StatusPending   = "pending"
	StatusReady     = "ready"
	StatusCollected = "collected"
)

// AllowedStatuses are the values the admin status update accepts.
var AllowedStatuses = map[string]bool{
	StatusPending:   true,
	StatusReady:     true,
	StatusCollected: true,
}

type Order struct {
	ID            int64       `json:"id"`
	OrderNumber   string      `json:"order_number"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	Type          string      `json:"order_type"`
	TableNumber   int         `json:"table_number,omitempty"`
	Notes         string      `json:"notes,omitempty"`
	Status        string      `json:"status"`
	TotalAmount   float64     `json:"total_amount"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Items         []OrderItem `json:"items,omitempty"`
}

// OrderItem is an immutable price snapshot taken when its order was created;
// later catalog changes never touch it.
type OrderItem struct {
	ID         int64   `json:"id"`
	OrderID    int64   `json:"order_id"`
	MenuItemID int64   `json:"menu_item_id"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	LineTotal  float64 `json:"line_total"`
	Position   int     `json:"position"`
}
