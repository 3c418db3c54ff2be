package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"casaluna/internal/order/app/core"
	"casaluna/internal/xpkg/db"
)

// MenuRepo is the read-only view of the menu catalog this core consumes.
type MenuRepo struct {
	db *db.DB
}

func NewMenuRepo(database *db.DB) *MenuRepo {
	return &MenuRepo{db: database}
}

// PriceIfAvailable returns the current price of an available menu item. The
// lookup runs on the caller's transaction so order creation snapshots prices
// from the same consistent view it writes with.
func (mr *MenuRepo) PriceIfAvailable(ctx context.Context, tx pgx.Tx, menuItemID int64) (float64, error) {
	var price float64
	err := tx.QueryRow(ctx, `
		SELECT price FROM menu_items WHERE id = $1 AND available
	`, menuItemID).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, core.ErrMenuItemNotFound
		}
		return 0, fmt.Errorf("failed to look up menu item %d: %w", menuItemID, err)
	}
	return price, nil
}
