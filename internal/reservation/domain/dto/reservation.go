package dto

type CreateReservationRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Pax           int    `json:"pax"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}
