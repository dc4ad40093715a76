package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"childsubs/internal/models"
	"childsubs/internal/validation"
)

var (
	ErrEmptyCart = errors.New("your cart is empty")
	// ErrOrderNotFound also covers orders belonging to another user
	ErrOrderNotFound = errors.New("order not found")
)

// Checkout field and notice texts
const (
	ChildFieldKey         = "child_id"
	ChildFieldLabel       = "Select Child"
	ChildFieldPlaceholder = "Select a child"

	NoticeSelectChild  = "Please select a child for your subscription."
	NoticeInvalidChild = "Please select a valid child."
	NoticeBillingName  = "Billing name is a required field."
	NoticeBillingEmail = "Please enter a valid billing email address."
)

// ChildLister returns the children a user may pick from
type ChildLister interface {
	ListChildren(ctx context.Context, ownerID int64) ([]models.Child, error)
}

// CartInspector answers whether the user's cart holds a subscription item
type CartInspector interface {
	HasSubscriptionItem(ctx context.Context, userID int64) (bool, error)
}

// CartSource provides the cart being checked out
type CartSource interface {
	Cart(ctx context.Context, userID int64) (*CartView, error)
	ClearCart(ctx context.Context, userID int64) error
}

// OrderNotifier is told about completed orders
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, c OrderConfirmation) error
}

// SelectOption is one choice of a select field
type SelectOption struct {
	Value string
	Label string
}

// SelectField describes a required single-choice checkout field
type SelectField struct {
	Key         string
	Label       string
	Required    bool
	Placeholder string
	Options     []SelectOption
}

// Notice is a user-facing checkout message
type Notice struct {
	Type    string
	Message string
}

func errorNotice(msg string) Notice {
	return Notice{Type: "error", Message: msg}
}

// CheckoutForm is the submitted checkout
type CheckoutForm struct {
	BillingName  string
	BillingEmail string
	ChildID      string
}

// CheckoutResult is the outcome of PlaceOrder. Notices non-empty means the
// order was not placed.
type CheckoutResult struct {
	Order         *models.Order
	Subscriptions []models.Subscription
	Notices       []Notice
}

// CheckoutService runs the checkout and threads the selected child onto the order
type CheckoutService struct {
	children      ChildLister
	inspector     CartInspector
	cart          CartSource
	orders        OrderStore
	subscriptions *SubscriptionService
	notifier      OrderNotifier
	logger        *zap.Logger
}

// NewCheckoutService creates a new checkout service. notifier may be nil.
func NewCheckoutService(
	children ChildLister,
	inspector CartInspector,
	cart CartSource,
	orders OrderStore,
	subscriptions *SubscriptionService,
	notifier OrderNotifier,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		children:      children,
		inspector:     inspector,
		cart:          cart,
		orders:        orders,
		subscriptions: subscriptions,
		notifier:      notifier,
		logger:        logger,
	}
}

// childSelection evaluates whether the child field applies: the user has at
// least one child and the cart holds a subscription item. Each checkout step
// calls it again rather than trusting an earlier answer.
func (s *CheckoutService) childSelection(ctx context.Context, userID int64) ([]models.Child, bool, error) {
	children, err := s.children.ListChildren(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if len(children) == 0 {
		return nil, false, nil
	}
	hasSub, err := s.inspector.HasSubscriptionItem(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return children, hasSub, nil
}

// ChildField returns the child select field, or nil when it does not apply
func (s *CheckoutService) ChildField(ctx context.Context, userID int64) (*SelectField, error) {
	children, applies, err := s.childSelection(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate child field: %w", err)
	}
	if !applies {
		s.logger.Debug("child field not shown", zap.Int64("user_id", userID), zap.Int("children", len(children)))
		return nil, nil
	}

	field := &SelectField{
		Key:         ChildFieldKey,
		Label:       ChildFieldLabel,
		Required:    true,
		Placeholder: ChildFieldPlaceholder,
		Options:     make([]SelectOption, 0, len(children)),
	}
	for _, c := range children {
		field.Options = append(field.Options, SelectOption{Value: strconv.FormatInt(c.ID, 10), Label: c.Name})
	}
	return field, nil
}

// Validate returns the notices that block the checkout
func (s *CheckoutService) Validate(ctx context.Context, userID int64, form CheckoutForm) ([]Notice, error) {
	var notices []Notice

	if validation.SanitizeTextField(form.BillingName) == "" {
		notices = append(notices, errorNotice(NoticeBillingName))
	}
	if validation.ValidateEmail(form.BillingEmail) != nil {
		notices = append(notices, errorNotice(NoticeBillingEmail))
	}

	children, applies, err := s.childSelection(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate child selection: %w", err)
	}
	if !applies {
		return notices, nil
	}

	childID := int64(validation.AbsInt(form.ChildID))
	if childID == 0 && !childSelected(form.ChildID) {
		return append(notices, errorNotice(NoticeSelectChild)), nil
	}
	if childID == 0 || findChild(children, childID) == nil {
		s.logger.Warn("checkout child not owned by user", zap.Int64("user_id", userID), zap.Int64("child_id", childID))
		return append(notices, errorNotice(NoticeInvalidChild)), nil
	}
	return notices, nil
}

// childSelected reports whether the field holds anything besides the empty
// placeholder or a zero. Non-numeric values count as a selection.
func childSelected(raw string) bool {
	return strings.Trim(strings.TrimSpace(raw), "0") != ""
}

// PersistOrderChild writes the selected child's ID and current name onto the order
func (s *CheckoutService) PersistOrderChild(ctx context.Context, userID, orderID int64, form CheckoutForm) error {
	children, applies, err := s.childSelection(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to evaluate child selection: %w", err)
	}
	if !applies {
		return nil
	}

	childID := int64(validation.AbsInt(form.ChildID))
	if childID == 0 {
		return nil
	}
	child := findChild(children, childID)
	if child == nil {
		return ErrChildNotFound
	}

	if err := s.orders.SetMeta(ctx, orderID, models.MetaChildID, strconv.FormatInt(child.ID, 10)); err != nil {
		return err
	}
	return s.orders.SetMeta(ctx, orderID, models.MetaChildName, child.Name)
}

// PlaceOrder validates the checkout, creates the order from the cart, stores
// the child selection, creates one subscription per subscription line and
// empties the cart
func (s *CheckoutService) PlaceOrder(ctx context.Context, userID int64, form CheckoutForm) (*CheckoutResult, error) {
	cart, err := s.cart.Cart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	notices, err := s.Validate(ctx, userID, form)
	if err != nil {
		return nil, err
	}
	if len(notices) > 0 {
		return &CheckoutResult{Notices: notices}, nil
	}

	items := make([]models.OrderItem, 0, len(cart.Lines))
	for i := range cart.Lines {
		line := &cart.Lines[i]
		items = append(items, models.OrderItem{
			ProductID:   line.Product.ID,
			VariationID: line.Item.VariationID,
			Name:        line.DisplayName(),
			Quantity:    line.Item.Quantity,
			LineTotal:   line.LineTotal(),
		})
	}

	order, err := s.orders.CreateOrder(ctx, &models.Order{
		UserID:       userID,
		Status:       models.OrderStatusProcessing,
		Total:        cart.Total,
		BillingName:  validation.SanitizeTextField(form.BillingName),
		BillingEmail: form.BillingEmail,
	}, items)
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	log := s.logger.With(zap.Int64("order_id", order.ID), zap.Int64("user_id", userID))

	if err := s.PersistOrderChild(ctx, userID, order.ID, form); err != nil {
		log.Error("failed to store child on order", zap.Error(err))
	}

	result := &CheckoutResult{Order: order}
	for _, line := range cart.Lines {
		if !line.IsSubscription() {
			continue
		}
		sub, err := s.subscriptions.CreateFromOrder(ctx, order, line)
		if err != nil {
			return nil, err
		}
		result.Subscriptions = append(result.Subscriptions, *sub)
	}

	if err := s.cart.ClearCart(ctx, userID); err != nil {
		log.Error("failed to clear cart", zap.Error(err))
	}

	log.Info("order placed", zap.String("total", order.Total.StringFixed(2)), zap.Int("subscriptions", len(result.Subscriptions)))

	if s.notifier != nil {
		s.notify(ctx, log, order, items, len(result.Subscriptions))
	}
	return result, nil
}

func (s *CheckoutService) notify(ctx context.Context, log *zap.Logger, order *models.Order, items []models.OrderItem, subscriptions int) {
	childName, err := s.orders.GetMeta(ctx, order.ID, models.MetaChildName)
	if err != nil {
		log.Warn("failed to read order child for email", zap.Error(err))
	}
	lines := make([]ConfirmationLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, ConfirmationLine{Name: it.Name, Quantity: it.Quantity, Total: it.LineTotal})
	}
	err = s.notifier.SendOrderConfirmation(ctx, OrderConfirmation{
		ToEmail:       order.BillingEmail,
		ToName:        order.BillingName,
		OrderID:       order.ID,
		Total:         order.Total,
		Lines:         lines,
		ChildName:     childName,
		Subscriptions: subscriptions,
	})
	if err != nil {
		log.Error("failed to send order confirmation", zap.Error(err))
	}
}

func findChild(children []models.Child, id int64) *models.Child {
	for i := range children {
		if children[i].ID == id {
			return &children[i]
		}
	}
	return nil
}

// OrderDetails is an order with its lines, child assignment and subscriptions
type OrderDetails struct {
	Order         *models.Order
	Items         []models.OrderItem
	ChildID       string
	ChildName     string
	Subscriptions []models.Subscription
}

// OrderForUser loads an order owned by userID for the order-received page
func (s *CheckoutService) OrderForUser(ctx context.Context, orderID, userID int64) (*OrderDetails, error) {
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	details := &OrderDetails{Order: order}
	if details.Items, err = s.orders.GetOrderItems(ctx, orderID); err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	if details.ChildID, err = s.orders.GetMeta(ctx, orderID, models.MetaChildID); err != nil {
		return nil, err
	}
	if details.ChildName, err = s.orders.GetMeta(ctx, orderID, models.MetaChildName); err != nil {
		return nil, err
	}
	if details.Subscriptions, err = s.subscriptions.ListForOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return details, nil
}
