package core

import (
	"context"
	"errors"
	"fmt"

	"casaluna/internal/reservation/domain/dto"
	"casaluna/internal/reservation/domain/models"
)

const (
	MinCustomerPhoneLen = 3
	MinPax              = 1
	MaxPax              = 20
)

var (
	ErrDBConn = errors.New("db connection failure")

	ErrReservationNotFound = errors.New("reservation not found")

	// ErrSlotFull: the requested (date, time) slot already holds the
	// configured number of reservations.
	ErrSlotFull = errors.New("no tables left for this time slot")

	ErrValidation = errors.New("validation failed")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

type IReservationRepo interface {
	Create(ctx context.Context, req dto.CreateReservationRequest) (models.Reservation, error)
	GetByID(ctx context.Context, id int64) (models.Reservation, error)
	List(ctx context.Context) ([]models.Reservation, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	CountSlot(ctx context.Context, date, timeSlot string) (int, error)
}
