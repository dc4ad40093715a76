package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"childsubs/internal/database"
	"childsubs/internal/models"
)

// CartRepository handles database operations for user carts
type CartRepository struct {
	db database.DBTX
}

// NewCartRepository creates a new cart repository
func NewCartRepository(db database.DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// AddItem puts a product (and optional variation) into a user's cart
func (r *CartRepository) AddItem(ctx context.Context, userID, productID int64, variationID *int64, quantity int) (*models.CartItem, error) {
	query := `
		INSERT INTO cart_items (user_id, product_id, variation_id, quantity)
		VALUES (?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, userID, productID, nullInt64(variationID), quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return &models.CartItem{
		ID:          id,
		UserID:      userID,
		ProductID:   productID,
		VariationID: variationID,
		Quantity:    quantity,
		CreatedAt:   time.Now(),
	}, nil
}

// RemoveItem deletes a cart line, scoped to its owner
func (r *CartRepository) RemoveItem(ctx context.Context, userID, itemID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = ? AND user_id = ?", itemID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove cart item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read remove result: %w", err)
	}
	return n > 0, nil
}

// ClearCart empties a user's cart
func (r *CartRepository) ClearCart(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// ListLines retrieves a user's cart joined with products and variations
func (r *CartRepository) ListLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.variation_id, ci.quantity, ci.created_at,
			p.id, p.name, p.product_type, p.parent_id, p.price, p.billing_period, p.billing_interval, p.created_at,
			v.id, v.name, v.product_type, v.price, v.billing_period, v.billing_interval
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN products v ON v.id = ci.variation_id
		WHERE ci.user_id = ?
		ORDER BY ci.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	defer rows.Close()

	var lines []models.CartLine
	for rows.Next() {
		var (
			line          models.CartLine
			variationRef  sql.NullInt64
			productType   string
			productParent sql.NullInt64
			varID         sql.NullInt64
			varName       sql.NullString
			varType       sql.NullString
			varPrice      decimal.NullDecimal
			varPeriod     sql.NullString
			varInterval   sql.NullInt64
		)
		if err := rows.Scan(
			&line.Item.ID,
			&line.Item.UserID,
			&line.Item.ProductID,
			&variationRef,
			&line.Item.Quantity,
			&line.Item.CreatedAt,
			&line.Product.ID,
			&line.Product.Name,
			&productType,
			&productParent,
			&line.Product.Price,
			&line.Product.BillingPeriod,
			&line.Product.BillingInterval,
			&line.Product.CreatedAt,
			&varID,
			&varName,
			&varType,
			&varPrice,
			&varPeriod,
			&varInterval,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		line.Item.VariationID = int64Ptr(variationRef)
		line.Product.Type = models.ProductType(productType)
		line.Product.ParentID = int64Ptr(productParent)
		if varID.Valid {
			parent := line.Product.ID
			line.Variation = &models.Product{
				ID:              varID.Int64,
				Name:            varName.String,
				Type:            models.ProductType(varType.String),
				ParentID:        &parent,
				Price:           varPrice.Decimal,
				BillingPeriod:   varPeriod.String,
				BillingInterval: int(varInterval.Int64),
			}
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
