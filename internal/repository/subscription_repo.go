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

const subscriptionColumns = `id, order_id, user_id, product_id, status, billing_period, billing_interval, created_at`

// SubscriptionRepository handles database operations for subscriptions and their meta
type SubscriptionRepository struct {
	db   database.DBTX
	meta metaTable
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db database.DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{
		db:   db,
		meta: metaTable{db: db, table: "subscription_meta", ownerColumn: "subscription_id"},
	}
}

func scanSubscription(row rowScanner) (*models.Subscription, error) {
	s := &models.Subscription{}
	err := row.Scan(&s.ID, &s.OrderID, &s.UserID, &s.ProductID, &s.Status, &s.BillingPeriod, &s.BillingInterval, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSubscription inserts a subscription derived from an order line
func (r *SubscriptionRepository) CreateSubscription(ctx context.Context, s *models.Subscription) (*models.Subscription, error) {
	query := `
		INSERT INTO subscriptions (order_id, user_id, product_id, status, billing_period, billing_interval)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query, s.OrderID, s.UserID, s.ProductID, s.Status, s.BillingPeriod, s.BillingInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	created := *s
	created.ID = id
	created.CreatedAt = time.Now()
	return &created, nil
}

// GetSubscriptionByID retrieves a subscription by ID
func (r *SubscriptionRepository) GetSubscriptionByID(ctx context.Context, id int64) (*models.Subscription, error) {
	s, err := scanSubscription(r.db.QueryRowContext(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return s, nil
}

// ListSubscriptions retrieves all subscriptions, newest first
func (r *SubscriptionRepository) ListSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	return r.list(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions ORDER BY id DESC")
}

// ListSubscriptionsByOrder retrieves the subscriptions created from one order
func (r *SubscriptionRepository) ListSubscriptionsByOrder(ctx context.Context, orderID int64) ([]models.Subscription, error) {
	return r.list(ctx, "SELECT "+subscriptionColumns+" FROM subscriptions WHERE order_id = ? ORDER BY id ASC", orderID)
}

func (r *SubscriptionRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

// GetMeta returns a subscription meta value, "" when unset
func (r *SubscriptionRepository) GetMeta(ctx context.Context, subscriptionID int64, key string) (string, error) {
	return r.meta.get(ctx, subscriptionID, key)
}

// SetMeta writes a subscription meta value, replacing any previous one
func (r *SubscriptionRepository) SetMeta(ctx context.Context, subscriptionID int64, key, value string) error {
	return r.meta.set(ctx, subscriptionID, key, value)
}

// AllMeta returns every meta key of a subscription
func (r *SubscriptionRepository) AllMeta(ctx context.Context, subscriptionID int64) (map[string]string, error) {
	return r.meta.all(ctx, subscriptionID)
}

// ImportSubscription inserts a subscription with a fixed ID; used by the backup restore
func (r *SubscriptionRepository) ImportSubscription(ctx context.Context, s models.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, order_id, user_id, product_id, status, billing_period, billing_interval, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.OrderID, s.UserID, s.ProductID, s.Status, s.BillingPeriod, s.BillingInterval, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to import subscription %d: %w", s.ID, err)
	}
	return nil
}
