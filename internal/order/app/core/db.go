package core

import (
	"context"

	"github.com/jackc/pgx/v5"

	"casaluna/internal/order/domain/dto"
	"casaluna/internal/order/domain/models"
)

type IOrderRepo interface {
	Create(ctx context.Context, req dto.CreateOrderRequest) (models.Order, error)
	GetByID(ctx context.Context, id int64) (models.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status, changedBy string) error
	// MarkCollected transitions the order to collected only if it is ready
	// at write time; ErrInvalidState otherwise.
	MarkCollected(ctx context.Context, id int64, changedBy string) error
}

// IMenuCatalog resolves the current price of an available menu item inside
// the caller's transaction.
type IMenuCatalog interface {
	PriceIfAvailable(ctx context.Context, tx pgx.Tx, menuItemID int64) (float64, error)
}

// IEventBus is the post-commit publication side of the fanout. Delivery is
// best-effort; implementations never return an error to the caller.
type IEventBus interface {
	PublishAdmin(event string, payload any)
	PublishOrder(orderID int64, payload any)
}
