package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"casaluna/internal/reservation/app/core"
	"casaluna/internal/reservation/domain/dto"
	"casaluna/internal/reservation/domain/models"
	"casaluna/internal/xpkg/db"
)

type ReservationRepo struct {
	db *db.DB
}

func NewReservationRepo(database *db.DB) *ReservationRepo {
	return &ReservationRepo{db: database}
}

const reservationColumns = `
	id,
	customer_name,
	customer_phone,
	to_char(res_date, 'YYYY-MM-DD'),
	res_time,
	pax,
	status,
	created_at,
	updated_at
`

func (rr *ReservationRepo) Create(ctx context.Context, req dto.CreateReservationRequest) (models.Reservation, error) {
	if err := rr.db.IsAlive(); err != nil {
		return models.Reservation{}, core.ErrDBConn
	}

	res := models.Reservation{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Date:          req.Date,
		Time:          req.Time,
		Pax:           req.Pax,
		Status:        models.StatusPending,
	}
	err := rr.db.Pool().QueryRow(ctx, `
		INSERT INTO reservations (customer_name, customer_phone, res_date, res_time, pax, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`,
		res.CustomerName,
		res.CustomerPhone,
		res.Date,
		res.Time,
		res.Pax,
		res.Status,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("failed to insert reservation: %w", err)
	}
	return res, nil
}

func (rr *ReservationRepo) GetByID(ctx context.Context, id int64) (models.Reservation, error) {
	if err := rr.db.IsAlive(); err != nil {
		return models.Reservation{}, core.ErrDBConn
	}

	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	var res models.Reservation
	err := rr.db.Pool().QueryRow(ctx, q, id).Scan(
		&res.ID,
		&res.CustomerName,
		&res.CustomerPhone,
		&res.Date,
		&res.Time,
		&res.Pax,
		&res.Status,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Reservation{}, core.ErrReservationNotFound
		}
		return models.Reservation{}, err
	}
	return res, nil
}

func (rr *ReservationRepo) List(ctx context.Context) ([]models.Reservation, error) {
	if err := rr.db.IsAlive(); err != nil {
		return nil, core.ErrDBConn
	}

	q := `SELECT ` + reservationColumns + ` FROM reservations ORDER BY res_date, res_time, id`
	rows, err := rr.db.Pool().Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		var res models.Reservation
		if err := rows.Scan(
			&res.ID,
			&res.CustomerName,
			&res.CustomerPhone,
			&res.Date,
			&res.Time,
			&res.Pax,
			&res.Status,
			&res.CreatedAt,
			&res.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (rr *ReservationRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	if err := rr.db.IsAlive(); err != nil {
		return core.ErrDBConn
	}

	tag, err := rr.db.Pool().Exec(ctx, `
		UPDATE reservations SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrReservationNotFound
	}
	return nil
}

// CountSlot counts live reservations in a (date, time) slot. Cancelled ones
// free their seat.
func (rr *ReservationRepo) CountSlot(ctx context.Context, date, timeSlot string) (int, error) {
	if err := rr.db.IsAlive(); err != nil {
		return 0, core.ErrDBConn
	}

	var count int
	err := rr.db.Pool().QueryRow(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE res_date = $1 AND res_time = $2 AND status <> 'cancelled'
	`, date, timeSlot).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count slot reservations: %w", err)
	}
	return count, nil
}
