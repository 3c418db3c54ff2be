package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"casaluna/internal/order/app/core"
	"casaluna/internal/order/domain/dto"
	"casaluna/internal/order/domain/models"
	"casaluna/internal/xpkg/db"
)

type OrderRepo struct {
	db   *db.DB
	menu core.IMenuCatalog
}

func NewOrderRepo(database *db.DB, menu core.IMenuCatalog) *OrderRepo {
	return &OrderRepo{
		db:   database,
		menu: menu,
	}
}

// nextSequence bumps the daily counter for day inside tx. The conflict
// update keeps the row lock until the owning transaction commits, so two
// concurrent creators can never read the same prior value.
func nextSequence(ctx context.Context, tx pgx.Tx, day time.Time) (int, error) {
	var seq int
	err := tx.QueryRow(ctx, `
		INSERT INTO daily_sequences (day, last_value)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE
		SET last_value = daily_sequences.last_value + 1
		RETURNING last_value
	`, day.Format("2006-01-02")).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to bump daily sequence: %w", err)
	}
	return seq, nil
}

// orderNumber formats the daily order identifier, e.g. 20260830-001.
func orderNumber(day time.Time, seq int) string {
	return fmt.Sprintf("%s-%03d", day.UTC().Format("20060102"), seq)
}

// Create persists the order and all of its priced items in one transaction.
// Either everything commits with a consistent total, or nothing persists.
func (or *OrderRepo) Create(ctx context.Context, req dto.CreateOrderRequest) (models.Order, error) {
	if err := or.db.IsAlive(); err != nil {
		return models.Order{}, core.ErrDBConn
	}

	tx, err := or.db.Pool().Begin(ctx)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	seq, err := nextSequence(ctx, tx, now)
	if err != nil {
		return models.Order{}, err
	}

	order := models.Order{
		OrderNumber:   orderNumber(now, seq),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Type:          req.Type,
		TableNumber:   req.TableNumber,
		Notes:         req.Notes,
		Status:        models.StatusPending,
	}

	// Insert with a zero total first so the row identity exists for the
	// item snapshots; the real total is written once all items priced out.
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (
			order_number,
			customer_name,
			customer_phone,
			type,
			table_number,
			notes,
			status,
			total_amount
		)
		VALUES ($1, $2, $3, $4, NULLIF($5, 0), NULLIF($6, ''), $7, 0)
		RETURNING id, created_at, updated_at
	`,
		order.OrderNumber,
		order.CustomerName,
		order.CustomerPhone,
		order.Type,
		order.TableNumber,
		order.Notes,
		order.Status,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	total := 0.0
	for i, item := range req.Items {
		price, err := or.menu.PriceIfAvailable(ctx, tx, item.MenuItemID)
		if err != nil {
			return models.Order{}, err
		}

		line := models.OrderItem{
			OrderID:    order.ID,
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			UnitPrice:  price,
			LineTotal:  price * float64(item.Quantity),
			Position:   i + 1,
		}
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, menu_item_id, quantity, unit_price, line_total, position)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, line.OrderID, line.MenuItemID, line.Quantity, line.UnitPrice, line.LineTotal, line.Position).Scan(&line.ID)
		if err != nil {
			return models.Order{}, fmt.Errorf("failed to insert order item: %w", err)
		}

		total += line.LineTotal
		order.Items = append(order.Items, line)
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET total_amount = $1 WHERE id = $2`, total, order.ID); err != nil {
		return models.Order{}, fmt.Errorf("failed to update order total: %w", err)
	}
	order.TotalAmount = total

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by)
		VALUES ($1, $2, $3)
	`, order.ID, order.Status, core.ChangedBySystem); err != nil {
		return models.Order{}, fmt.Errorf("failed to insert order status log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Order{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return order, nil
}

const orderColumns = `
	id,
	order_number,
	customer_name,
	customer_phone,
	type,
	COALESCE(table_number, 0),
	COALESCE(notes, ''),
	status,
	total_amount,
	created_at,
	updated_at
`

func (or *OrderRepo) GetByID(ctx context.Context, id int64) (models.Order, error) {
	if err := or.db.IsAlive(); err != nil {
		return models.Order{}, core.ErrDBConn
	}

	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	order, err := or.scanOrder(or.db.Pool().QueryRow(ctx, q, id))
	if err != nil {
		return models.Order{}, err
	}

	items, err := or.itemsFor(ctx, order.ID)
	if err != nil {
		return models.Order{}, err
	}
	order.Items = items
	return order, nil
}

func (or *OrderRepo) GetByNumber(ctx context.Context, orderNumber string) (models.Order, error) {
	if err := or.db.IsAlive(); err != nil {
		return models.Order{}, core.ErrDBConn
	}

	q := `SELECT ` + orderColumns + ` FROM orders WHERE order_number = $1`
	return or.scanOrder(or.db.Pool().QueryRow(ctx, q, orderNumber))
}

// List returns every order with its items, newest first.
func (or *OrderRepo) List(ctx context.Context) ([]models.Order, error) {
	if err := or.db.IsAlive(); err != nil {
		return nil, core.ErrDBConn
	}

	q := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id DESC`
	rows, err := or.db.Pool().Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	index := make(map[int64]int)
	for rows.Next() {
		order, err := or.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		index[order.ID] = len(orders)
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := or.db.Pool().Query(ctx, `
		SELECT id, order_id, menu_item_id, quantity, unit_price, line_total, position
		FROM order_items
		ORDER BY order_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item models.OrderItem
		if err := itemRows.Scan(
			&item.ID,
			&item.OrderID,
			&item.MenuItemID,
			&item.Quantity,
			&item.UnitPrice,
			&item.LineTotal,
			&item.Position,
		); err != nil {
			return nil, err
		}
		if i, ok := index[item.OrderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	return orders, itemRows.Err()
}

// UpdateStatus sets the order status and records who changed it.
func (or *OrderRepo) UpdateStatus(ctx context.Context, id int64, status, changedBy string) error {
	if err := or.db.IsAlive(); err != nil {
		return core.ErrDBConn
	}

	tx, err := or.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = now() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrOrderNotFound
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by)
		VALUES ($1, $2, $3)
	`, id, status, changedBy); err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}

	return tx.Commit(ctx)
}

// MarkCollected sets the order to collected with the ready check folded
// into the update itself, so a status change racing the caller's earlier
// read cannot be overwritten.
func (or *OrderRepo) MarkCollected(ctx context.Context, id int64, changedBy string) error {
	if err := or.db.IsAlive(); err != nil {
		return core.ErrDBConn
	}

	tx, err := or.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = now()
		WHERE id = $2 AND lower(status) = $3
	`, models.StatusCollected, id, models.StatusReady)
	if err != nil {
		return fmt.Errorf("failed to mark order collected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrInvalidState
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by)
		VALUES ($1, $2, $3)
	`, id, models.StatusCollected, changedBy); err != nil {
		return fmt.Errorf("failed to insert order status log: %w", err)
	}

	return tx.Commit(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (or *OrderRepo) scanOrder(row rowScanner) (models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.CustomerName,
		&order.CustomerPhone,
		&order.Type,
		&order.TableNumber,
		&order.Notes,
		&order.Status,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Order{}, core.ErrOrderNotFound
		}
		return models.Order{}, err
	}
	return order, nil
}

func (or *OrderRepo) itemsFor(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	rows, err := or.db.Pool().Query(ctx, `
		SELECT id, order_id, menu_item_id, quantity, unit_price, line_total, position
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.MenuItemID,
			&item.Quantity,
			&item.UnitPrice,
			&item.LineTotal,
			&item.Position,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
