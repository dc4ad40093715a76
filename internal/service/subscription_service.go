package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"childsubs/internal/models"
)

// SubscriptionService creates subscriptions from order lines and carries the
// order's child assignment over to them
type SubscriptionService struct {
	orders        OrderStore
	subscriptions SubscriptionStore
	logger        *zap.Logger
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(orders OrderStore, subscriptions SubscriptionStore, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{orders: orders, subscriptions: subscriptions, logger: logger}
}

// CreateFromOrder creates the subscription for one subscription line of an
// order, then runs OnSubscriptionCreated for it
func (s *SubscriptionService) CreateFromOrder(ctx context.Context, order *models.Order, line models.CartLine) (*models.Subscription, error) {
	billing := line.BillingProduct()
	sub, err := s.subscriptions.CreateSubscription(ctx, &models.Subscription{
		OrderID:         order.ID,
		UserID:          order.UserID,
		ProductID:       billing.ID,
		Status:          models.SubscriptionStatusActive,
		BillingPeriod:   billing.BillingPeriod,
		BillingInterval: billing.BillingInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := s.OnSubscriptionCreated(ctx, sub.ID, order.ID); err != nil {
		s.logger.Error("failed to copy child to subscription",
			zap.Int64("subscription_id", sub.ID), zap.Int64("order_id", order.ID), zap.Error(err))
	}
	return sub, nil
}

// OnSubscriptionCreated copies _child_id and _child_name from the parent
// order onto the subscription. Nothing is written unless both are set; a
// missing order is not an error.
func (s *SubscriptionService) OnSubscriptionCreated(ctx context.Context, subscriptionID, orderID int64) error {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil
	}

	childID, err := s.orders.GetMeta(ctx, orderID, models.MetaChildID)
	if err != nil {
		return err
	}
	childName, err := s.orders.GetMeta(ctx, orderID, models.MetaChildName)
	if err != nil {
		return err
	}
	if childID == "" || childID == "0" || childName == "" {
		return nil
	}

	if err := s.subscriptions.SetMeta(ctx, subscriptionID, models.MetaChildID, childID); err != nil {
		return err
	}
	if err := s.subscriptions.SetMeta(ctx, subscriptionID, models.MetaChildName, childName); err != nil {
		return err
	}

	s.logger.Debug("child copied to subscription",
		zap.Int64("subscription_id", subscriptionID), zap.String("child_id", childID))
	return nil
}

// ListForOrder returns the subscriptions created from an order
func (s *SubscriptionService) ListForOrder(ctx context.Context, orderID int64) ([]models.Subscription, error) {
	subs, err := s.subscriptions.ListSubscriptionsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
