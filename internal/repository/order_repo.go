package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"childsubs/internal/database"
	"childsubs/internal/models"
)

const orderColumns = `id, user_id, status, total, billing_name, billing_email, created_at`

// OrderRepository handles database operations for orders, their items and meta
type OrderRepository struct {
	db   database.DBTX
	meta metaTable
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{
		db:   db,
		meta: metaTable{db: db, table: "order_meta", ownerColumn: "order_id"},
	}
}

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Total, &o.BillingName, &o.BillingEmail, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// CreateOrder inserts an order with its items
func (r *OrderRepository) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Order, error) {
	query := `
		INSERT INTO orders (user_id, status, total, billing_name, billing_email)
		VALUES (?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		order.UserID, order.Status, order.Total.StringFixed(2), order.BillingName, order.BillingEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	itemQuery := `
		INSERT INTO order_items (order_id, product_id, variation_id, name, quantity, line_total)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for _, item := range items {
		if _, err := r.db.ExecContext(ctx, itemQuery,
			id, item.ProductID, nullInt64(item.VariationID), item.Name, item.Quantity, item.LineTotal.StringFixed(2)); err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	created := *order
	created.ID = id
	created.CreatedAt = time.Now()
	return &created, nil
}

// GetOrderByID retrieves an order by ID
func (r *OrderRepository) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// ListOrders retrieves all orders, oldest first
func (r *OrderRepository) ListOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+orderColumns+" FROM orders ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// GetOrderItems retrieves the lines of an order
func (r *OrderRepository) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, variation_id, name, quantity, line_total
		FROM order_items
		WHERE order_id = ?
		ORDER BY id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var (
			item      models.OrderItem
			variation sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &variation, &item.Name, &item.Quantity, &item.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		item.VariationID = int64Ptr(variation)
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetMeta returns an order meta value, "" when unset
func (r *OrderRepository) GetMeta(ctx context.Context, orderID int64, key string) (string, error) {
	return r.meta.get(ctx, orderID, key)
}

// SetMeta writes an order meta value, replacing any previous one
func (r *OrderRepository) SetMeta(ctx context.Context, orderID int64, key, value string) error {
	return r.meta.set(ctx, orderID, key, value)
}

// AllMeta returns every meta key of an order
func (r *OrderRepository) AllMeta(ctx context.Context, orderID int64) (map[string]string, error) {
	return r.meta.all(ctx, orderID)
}

// ImportOrder inserts an order with a fixed ID; used by the backup restore
func (r *OrderRepository) ImportOrder(ctx context.Context, o models.Order) error {
	query := `
		INSERT INTO orders (id, user_id, status, total, billing_name, billing_email, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, o.ID, o.UserID, o.Status, o.Total.StringFixed(2), o.BillingName, o.BillingEmail, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to import order %d: %w", o.ID, err)
	}
	return nil
}

// ImportOrderItem inserts an order line with a fixed ID; used by the backup restore
func (r *OrderRepository) ImportOrderItem(ctx context.Context, item models.OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, variation_id, name, quantity, line_total)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, item.ID, item.OrderID, item.ProductID, nullInt64(item.VariationID),
		item.Name, item.Quantity, item.LineTotal.StringFixed(2))
	if err != nil {
		return fmt.Errorf("failed to import order item %d: %w", item.ID, err)
	}
	return nil
}
