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

const productColumns = `id, name, product_type, parent_id, price, billing_period, billing_interval, created_at`

// ProductRepository handles database operations for the product catalogue
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new product repository
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	var (
		productType string
		parentID    sql.NullInt64
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&productType,
		&parentID,
		&p.Price,
		&p.BillingPeriod,
		&p.BillingInterval,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Type = models.ProductType(productType)
	p.ParentID = int64Ptr(parentID)
	return p, nil
}

// CreateProduct inserts a product or variation
func (r *ProductRepository) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	query := `
		INSERT INTO products (name, product_type, parent_id, price, billing_period, billing_interval)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		p.Name, string(p.Type), nullInt64(p.ParentID), p.Price.StringFixed(2), p.BillingPeriod, p.BillingInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	created := *p
	created.ID = id
	created.CreatedAt = time.Now()
	return &created, nil
}

// GetProductByID retrieves a product by ID
func (r *ProductRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// ListProducts retrieves top-level products (not variations)
func (r *ProductRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	return r.list(ctx, "SELECT "+productColumns+" FROM products WHERE parent_id IS NULL ORDER BY id ASC")
}

// ListVariations retrieves the variations of a variable product
func (r *ProductRepository) ListVariations(ctx context.Context, parentID int64) ([]models.Product, error) {
	return r.list(ctx, "SELECT "+productColumns+" FROM products WHERE parent_id = ? ORDER BY id ASC", parentID)
}

// ListAllProducts retrieves every catalogue row, variations included; used by backups
func (r *ProductRepository) ListAllProducts(ctx context.Context) ([]models.Product, error) {
	return r.list(ctx, "SELECT "+productColumns+" FROM products ORDER BY id ASC")
}

// ImportProduct inserts a product with a fixed ID; used by the backup restore
func (r *ProductRepository) ImportProduct(ctx context.Context, p models.Product) error {
	query := `
		INSERT INTO products (id, name, product_type, parent_id, price, billing_period, billing_interval, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.Name, string(p.Type), nullInt64(p.ParentID),
		p.Price.StringFixed(2), p.BillingPeriod, p.BillingInterval, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to import product %d: %w", p.ID, err)
	}
	return nil
}

// CountProducts returns the number of catalogue rows
func (r *ProductRepository) CountProducts(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func (r *ProductRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}
