package services

import (
	"context"
	"errors"

	"casaluna/internal/order/app/core"
	"casaluna/internal/order/domain/dto"
	"casaluna/internal/order/domain/models"
	"casaluna/internal/xpkg/logger"
)

type OrderService struct {
	orderRepo core.IOrderRepo
	bus       core.IEventBus
	mylog     logger.Logger
}

func NewOrderService(orderRepo core.IOrderRepo, bus core.IEventBus, mylog logger.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		bus:       bus,
		mylog:     mylog,
	}
}

// Create validates the request and persists the order atomically. Events go
// out only after the transaction has committed, so observers never see state
// that is not yet durable.
func (os *OrderService) Create(ctx context.Context, req dto.CreateOrderRequest) (models.Order, error) {
	mylog := os.mylog.Action("create_order")

	if req.Type == "" {
		req.Type = core.DefaultOrderType
	}
	if err := os.validateCreate(req); err != nil {
		return models.Order{}, err
	}

	order, err := os.orderRepo.Create(ctx, req)
	if err != nil {
		mylog.Error("Failed to create order", err, "customer_name", req.CustomerName)
		return models.Order{}, err
	}

	mylog.Info("Order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"total_amount", order.TotalAmount,
	)

	os.bus.PublishAdmin("order_created", dto.CreateOrderResponse{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
	})
	os.bus.PublishOrder(order.ID, order)

	return order, nil
}

// Get returns the full order snapshot with its items.
func (os *OrderService) Get(ctx context.Context, id int64) (models.Order, error) {
	return os.orderRepo.GetByID(ctx, id)
}

// Track resolves the customer-facing tracking view by order number.
func (os *OrderService) Track(ctx context.Context, orderNumber string) (dto.TrackResponse, error) {
	order, err := os.orderRepo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return dto.TrackResponse{}, err
	}
	return dto.TrackResponse{
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
	}, nil
}

// List returns all orders with items for the admin surface.
func (os *OrderService) List(ctx context.Context) ([]models.Order, error) {
	return os.orderRepo.List(ctx)
}

// MarkCollected is the customer confirmation path. The order number and
// phone must match the stored values exactly, and the order must currently
// be ready; any other state is rejected without touching the row.
func (os *OrderService) MarkCollected(ctx context.Context, id int64, req dto.CollectRequest) (models.Order, error) {
	mylog := os.mylog.Action("mark_collected")

	order, err := os.orderRepo.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, err
	}

	if order.OrderNumber != req.OrderNumber || order.CustomerPhone != req.CustomerPhone {
		mylog.Warn("Collection rejected, details mismatch", "order_id", id)
		return models.Order{}, core.ErrVerification
	}

	// The ready check lives inside the conditional update, so a concurrent
	// status change between the read above and the write cannot be clobbered.
	if err := os.orderRepo.MarkCollected(ctx, id, core.ChangedByCustomer); err != nil {
		if errors.Is(err, core.ErrInvalidState) {
			mylog.Warn("Collection rejected, order not ready", "order_id", id, "status", order.Status)
		} else {
			mylog.Error("Failed to mark order collected", err, "order_id", id)
		}
		return models.Order{}, err
	}

	updated, err := os.orderRepo.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, err
	}

	mylog.Info("Order collected", "order_id", id, "order_number", updated.OrderNumber)

	os.bus.PublishAdmin("order_collected", map[string]any{
		"order_id": updated.ID,
		"order_no": updated.OrderNumber,
		"status":   updated.Status,
	})
	os.bus.PublishOrder(updated.ID, updated)

	return updated, nil
}

// UpdateStatus is the admin path. Any of the three allowed statuses may be
// set directly, not only the next one in line.
func (os *OrderService) UpdateStatus(ctx context.Context, id int64, status string) (models.Order, error) {
	mylog := os.mylog.Action("update_status")

	if !models.AllowedStatuses[status] {
		return models.Order{}, core.Invalid("status", "must be one of pending, ready, collected")
	}

	if err := os.orderRepo.UpdateStatus(ctx, id, status, core.ChangedByAdmin); err != nil {
		mylog.Error("Failed to update order status", err, "order_id", id, "status", status)
		return models.Order{}, err
	}

	updated, err := os.orderRepo.GetByID(ctx, id)
	if err != nil {
		return models.Order{}, err
	}

	mylog.Info("Order status updated", "order_id", id, "status", status)

	os.bus.PublishAdmin("status_updated", map[string]any{
		"order_id": updated.ID,
		"order_no": updated.OrderNumber,
		"status":   updated.Status,
	})
	os.bus.PublishOrder(updated.ID, updated)

	return updated, nil
}

func (os *OrderService) validateCreate(req dto.CreateOrderRequest) error {
	if req.CustomerName == "" {
		return core.Invalid("customer_name", "must not be empty")
	}
	if len(req.CustomerPhone) < core.MinCustomerPhoneLen {
		return core.Invalid("customer_phone", "too short")
	}
	if !core.AllowedTypes[req.Type] {
		return core.Invalid("order_type", "must be dine_in or takeaway")
	}
	if req.TableNumber < 0 {
		return core.Invalid("table_number", "must be positive")
	}
	if len(req.Items) < core.MinItems {
		return core.Invalid("items", "order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.MenuItemID <= 0 {
			return core.Invalid("items", "menu_item_id is required")
		}
		if item.Quantity < core.MinItemQuantity {
			return core.Invalid("items", "quantity must be at least 1")
		}
	}
	return nil
}
