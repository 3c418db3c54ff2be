package dto

import "time"

type CreateOrderRequest struct {
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone"`
	Type          string        `json:"order_type"`
	TableNumber   int           `json:"table_number,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	Items         []ItemRequest `json:"items"`
}

type ItemRequest struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
}

type CreateOrderResponse struct {
	OrderID     int64   `json:"order_id"`
	OrderNumber string  `json:"order_no"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
}

type CollectRequest struct {
	OrderNumber   string `json:"order_no"`
	CustomerPhone string `json:"customer_phone"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type TrackResponse struct {
	OrderNumber string    `json:"order_no"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
