package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"childsubs/internal/models"
	"childsubs/internal/validation"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidVariation = errors.New("invalid product variation")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidPrice     = errors.New("price must be a non-negative amount")
	ErrInvalidProduct   = errors.New("invalid product details")
	ErrVariationParent  = errors.New("variations need a variable parent product")
)

// CatalogEntry is a top-level product with its variations
type CatalogEntry struct {
	Product    models.Product
	Variations []models.Product
}

// CartView is a user's cart with its running total
type CartView struct {
	Lines []models.CartLine
	Total decimal.Decimal
}

// IsEmpty reports whether the cart has no lines
func (c *CartView) IsEmpty() bool {
	return len(c.Lines) == 0
}

// ProductInput is the admin form for a new product or variation
type ProductInput struct {
	Name            string `form:"name" validate:"required,max=200"`
	Type            string `form:"product_type" validate:"required,oneof=simple variable variation subscription variable-subscription subscription_variation"`
	ParentID        int64  `form:"parent_id" validate:"gte=0"`
	Price           string `form:"price" validate:"required"`
	BillingPeriod   string `form:"billing_period" validate:"omitempty,oneof=day week month year"`
	BillingInterval int    `form:"billing_interval" validate:"gte=0,lte=12"`
}

// CommerceService is the storefront: catalogue, cart and the cart queries
// checkout relies on
type CommerceService struct {
	products ProductStore
	cart     CartStore
	logger   *zap.Logger
}

// NewCommerceService creates a new commerce service
func NewCommerceService(products ProductStore, cart CartStore, logger *zap.Logger) *CommerceService {
	return &CommerceService{products: products, cart: cart, logger: logger}
}

// CreateProduct validates and stores a product. Variations must name a
// variable parent.
func (s *CommerceService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	in.Name = validation.SanitizeTextField(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}

	price, err := decimal.NewFromString(in.Price)
	if err != nil || price.IsNegative() {
		return nil, ErrInvalidPrice
	}

	p := &models.Product{
		Name:  in.Name,
		Type:  models.ProductType(in.Type),
		Price: price.Round(2),
	}
	if p.Type.IsSubscription() {
		p.BillingPeriod = in.BillingPeriod
		p.BillingInterval = in.BillingInterval
		if p.BillingPeriod == "" {
			p.BillingPeriod = "month"
		}
		if p.BillingInterval == 0 {
			p.BillingInterval = 1
		}
	}

	isVariation := p.Type == models.ProductVariation || p.Type == models.ProductSubscriptionVariation
	if isVariation {
		parent, err := s.products.GetProductByID(ctx, in.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get parent product: %w", err)
		}
		if parent == nil || (parent.Type != models.ProductVariable && parent.Type != models.ProductVariableSubscription) {
			return nil, ErrVariationParent
		}
		p.ParentID = &parent.ID
	} else if in.ParentID != 0 {
		return nil, ErrVariationParent
	}

	created, err := s.products.CreateProduct(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.Info("product created", zap.Int64("product_id", created.ID), zap.String("type", string(created.Type)))
	return created, nil
}

// Catalog lists top-level products with their variations
func (s *CommerceService) Catalog(ctx context.Context) ([]CatalogEntry, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	entries := make([]CatalogEntry, 0, len(products))
	for _, p := range products {
		entry := CatalogEntry{Product: p}
		if p.Type == models.ProductVariable || p.Type == models.ProductVariableSubscription {
			entry.Variations, err = s.products.ListVariations(ctx, p.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to list variations: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// AddToCart puts a product into the user's cart. Variable products need one
// of their variations.
func (s *CommerceService) AddToCart(ctx context.Context, userID, productID, variationID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil || product.ParentID != nil {
		return nil, ErrProductNotFound
	}

	var variationRef *int64
	isVariable := product.Type == models.ProductVariable || product.Type == models.ProductVariableSubscription
	switch {
	case isVariable:
		variation, err := s.products.GetProductByID(ctx, variationID)
		if err != nil {
			return nil, fmt.Errorf("failed to get variation: %w", err)
		}
		if variation == nil || variation.ParentID == nil || *variation.ParentID != product.ID {
			return nil, ErrInvalidVariation
		}
		variationRef = &variation.ID
	case variationID != 0:
		return nil, ErrInvalidVariation
	}

	item, err := s.cart.AddItem(ctx, userID, productID, variationRef, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}
	return item, nil
}

// RemoveFromCart deletes one of the user's cart lines
func (s *CommerceService) RemoveFromCart(ctx context.Context, userID, itemID int64) error {
	removed, err := s.cart.RemoveItem(ctx, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	if !removed {
		return ErrCartItemNotFound
	}
	return nil
}

// Cart returns the user's cart lines and total
func (s *CommerceService) Cart(ctx context.Context, userID int64) (*CartView, error) {
	lines, err := s.cart.ListLines(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	view := &CartView{Lines: lines, Total: decimal.Zero}
	for i := range lines {
		view.Total = view.Total.Add(lines[i].LineTotal())
	}
	return view, nil
}

// ClearCart empties the user's cart
func (s *CommerceService) ClearCart(ctx context.Context, userID int64) error {
	if err := s.cart.ClearCart(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// HasSubscriptionItem scans the user's cart for a subscription product,
// checking the variation as well as its parent
func (s *CommerceService) HasSubscriptionItem(ctx context.Context, userID int64) (bool, error) {
	lines, err := s.cart.ListLines(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to inspect cart: %w", err)
	}
	for i := range lines {
		if lines[i].IsSubscription() {
			return true, nil
		}
	}
	return false, nil
}

// SeedCatalog creates a small demo catalogue when the store is empty
func (s *CommerceService) SeedCatalog(ctx context.Context) error {
	n, err := s.products.CountProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if n > 0 {
		return nil
	}

	seed := []ProductInput{
		{Name: "Club Membership", Type: string(models.ProductSubscription), Price: "25.00", BillingPeriod: "month", BillingInterval: 1},
		{Name: "Club Kit Bag", Type: string(models.ProductSimple), Price: "15.00"},
	}
	for _, in := range seed {
		if _, err := s.CreateProduct(ctx, in); err != nil {
			return err
		}
	}

	coaching, err := s.CreateProduct(ctx, ProductInput{Name: "Coaching Programme", Type: string(models.ProductVariableSubscription), Price: "0"})
	if err != nil {
		return err
	}
	variations := []ProductInput{
		{Name: "Weekly", Type: string(models.ProductSubscriptionVariation), ParentID: coaching.ID, Price: "9.99", BillingPeriod: "week", BillingInterval: 1},
		{Name: "Termly", Type: string(models.ProductSubscriptionVariation), ParentID: coaching.ID, Price: "85.00", BillingPeriod: "month", BillingInterval: 3},
	}
	for _, in := range variations {
		if _, err := s.CreateProduct(ctx, in); err != nil {
			return err
		}
	}

	s.logger.Info("seeded default catalogue")
	return nil
}
