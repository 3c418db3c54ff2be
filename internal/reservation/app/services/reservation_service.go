package services

import (
	"context"
	"time"

	"casaluna/internal/reservation/app/core"
	"casaluna/internal/reservation/domain/dto"
	"casaluna/internal/reservation/domain/models"
	"casaluna/internal/xpkg/logger"
)

// Publisher is the admin-scope side of the event bus; reservation changes
// are announced to staff observers only.
type Publisher interface {
	PublishAdmin(event string, payload any)
}

type ReservationService struct {
	repo         core.IReservationRepo
	bus          Publisher
	slotCapacity int
	mylog        logger.Logger
	now          func() time.Time
}

func NewReservationService(repo core.IReservationRepo, bus Publisher, slotCapacity int, mylog logger.Logger) *ReservationService {
	return &ReservationService{
		repo:         repo,
		bus:          bus,
		slotCapacity: slotCapacity,
		mylog:        mylog,
		now:          time.Now,
	}
}

// Create validates the request and checks slot capacity before inserting.
// The count and the insert are two statements, not one atomic barrier, so a
// burst of simultaneous requests can overshoot the cap by the burst size.
func (rs *ReservationService) Create(ctx context.Context, req dto.CreateReservationRequest) (models.Reservation, error) {
	mylog := rs.mylog.Action("create_reservation")

	if err := rs.validateCreate(req); err != nil {
		return models.Reservation{}, err
	}

	taken, err := rs.repo.CountSlot(ctx, req.Date, req.Time)
	if err != nil {
		mylog.Error("Failed to count reservations in slot", err, "date", req.Date, "time", req.Time)
		return models.Reservation{}, err
	}
	if taken >= rs.slotCapacity {
		mylog.Warn("Slot is full", "date", req.Date, "time", req.Time, "taken", taken)
		return models.Reservation{}, core.ErrSlotFull
	}

	res, err := rs.repo.Create(ctx, req)
	if err != nil {
		mylog.Error("Failed to create reservation", err)
		return models.Reservation{}, err
	}

	mylog.Info("Reservation created", "reservation_id", res.ID, "date", res.Date, "time", res.Time, "pax", res.Pax)

	rs.bus.PublishAdmin("reservation_created", res)
	return res, nil
}

func (rs *ReservationService) Get(ctx context.Context, id int64) (models.Reservation, error) {
	return rs.repo.GetByID(ctx, id)
}

func (rs *ReservationService) List(ctx context.Context) ([]models.Reservation, error) {
	return rs.repo.List(ctx)
}

func (rs *ReservationService) UpdateStatus(ctx context.Context, id int64, status string) (models.Reservation, error) {
	mylog := rs.mylog.Action("update_reservation_status")

	if !models.AllowedStatuses[status] {
		return models.Reservation{}, core.Invalid("status", "unknown reservation status")
	}

	if err := rs.repo.UpdateStatus(ctx, id, status); err != nil {
		mylog.Error("Failed to update reservation status", err, "reservation_id", id)
		return models.Reservation{}, err
	}

	updated, err := rs.repo.GetByID(ctx, id)
	if err != nil {
		return models.Reservation{}, err
	}

	mylog.Info("Reservation status updated", "reservation_id", id, "status", status)

	rs.bus.PublishAdmin("reservation_status_updated", updated)
	return updated, nil
}

func (rs *ReservationService) validateCreate(req dto.CreateReservationRequest) error {
	if req.CustomerName == "" {
		return core.Invalid("customer_name", "must not be empty")
	}
	if len(req.CustomerPhone) < core.MinCustomerPhoneLen {
		return core.Invalid("customer_phone", "too short")
	}

	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return core.Invalid("date", "must be YYYY-MM-DD")
	}
	today := rs.now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return core.Invalid("date", "must not be in the past")
	}

	if _, err := time.Parse("15:04", req.Time); err != nil {
		return core.Invalid("time", "must be HH:MM")
	}

	if req.Pax < core.MinPax || req.Pax > core.MaxPax {
		return core.Invalid("pax", "must be between 1 and 20")
	}
	return nil
}
