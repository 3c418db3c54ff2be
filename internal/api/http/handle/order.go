package handle

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"casaluna/internal/order/app/services"
	"casaluna/internal/order/domain/dto"
	"casaluna/internal/xpkg/logger"
)

type OrderHandler struct {
	orderService *services.OrderService
	mylog        logger.Logger
}

func NewOrderHandler(orderService *services.OrderService, mylog logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		mylog:        mylog,
	}
}

func orderID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid order id")
	}
	return id, nil
}

func (oh *OrderHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			oh.mylog.Action("parse_failed").Error("Failed to parse order", err)
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		order, err := oh.orderService.Create(r.Context(), req)
		if err != nil {
			jsonError(w, statusFor(err), err)
			return
		}

		jsonResponse(w, http.StatusCreated, dto.CreateOrderResponse{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			TotalAmount: order.TotalAmount,
			Status:      order.Status,
		})
	}
}

func (oh *OrderHandler) Track() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderNumber := r.URL.Query().Get("order_no")
		if orderNumber == "" {
			jsonError(w, http.StatusBadRequest, errors.New("order_no parameter is required"))
			return
		}

		view, err := oh.orderService.Track(r.Context(), orderNumber)
		if err != nil {
			jsonError(w, statusFor(err), err)
			return
		}
		jsonResponse(w, http.StatusOK, view)
	}
}

func (oh *OrderHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := orderID(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		order, err := oh.orderService.Get(r.Context(), id)
		if err != nil {
			jsonError(w, statusFor(err), err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}

// Collect is the customer confirmation endpoint; it succeeds only when the
// presented order number and phone match and the order is ready.
func (oh *OrderHandler) Collect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := orderID(r)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err)
			return
		}

		var req dto.CollectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			jsonError(w, http.StatusBadRequest, errors.New("failed to parse JSON"))
			return
		}

		order, err := oh.orderService.MarkCollected(r.Context(), id, req)
		if err != nil {
			jsonError(w, statusFor(err), err)
			return
		}
		jsonResponse(w, http.StatusOK, order)
	}
}
