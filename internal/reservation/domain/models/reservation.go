package models

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusSeated    = "seated"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var AllowedStatuses = map[string]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusSeated:    true,
	StatusCompleted: true,
	StatusCancelled: true,
}

type Reservation struct {
	ID            int64     `json:"id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Pax           int       `json:"pax"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
