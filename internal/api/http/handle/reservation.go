package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"casaluna/internal/reservation/app/services"
	"casaluna/internal/reservation/domain/dto"
	"casaluna/internal/xpkg/logger"
)

type ReservationHandler struct {
	reservationService *services.ReservationService
	mylog              logger.Logger
}

func NewReservationHandler(reservationService *services.ReservationService, mylog logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		reservationService: reservationService,
		mylog:              mylog,
	}
}

func reservationID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid reservation id")
	}
	return id, nil
}

func (rh *ReservationHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.CreateReservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			rh.mylog.Action("parse_failed").Error("Failed to parse reservation", err)
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		res, err := rh.reservationService.Create(r.Context(), req)
		if err != nil {
			jsonError(w, statusFor(err), err)
			return
		}
		jsonResponse(w, http.StatusCreated, res)
	}
}

func (rh *ReservationHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := reservationID(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		res, err := rh.reservationService.Get(r.Context(), id)
		if err != nil {
			jsonError(w, statusFor(err), err)
			return
		}
		jsonResponse(w, http.StatusOK, res)
	}
}

func (rh *ReservationHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservations, err := rh.reservationService.List(r.Context())
		if err != nil {
			jsonError(w, statusFor(err), err)
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{"reservations": reservations})
	}
}

func (rh *ReservationHandler) UpdateStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := reservationID(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		var req dto.UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		res, err := rh.reservationService.UpdateStatus(r.Context(), id, req.Status)
		if err != nil {
			jsonError(w, statusFor(err), err)
			return
		}
		jsonResponse(w, http.StatusOK, res)
	}
}
