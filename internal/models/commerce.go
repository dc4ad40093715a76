package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Meta keys written on orders and copied onto subscriptions
const (
	MetaChildID   = "_child_id"
	MetaChildName = "_child_name"
)

// ProductType mirrors the store's product kinds
type ProductType string

const (
	ProductSimple                ProductType = "simple"
	ProductVariable              ProductType = "variable"
	ProductVariation             ProductType = "variation"
	ProductSubscription          ProductType = "subscription"
	ProductVariableSubscription  ProductType = "variable-subscription"
	ProductSubscriptionVariation ProductType = "subscription_variation"
)

// IsSubscription reports whether the type bills on a recurring schedule
func (t ProductType) IsSubscription() bool {
	switch t {
	case ProductSubscription, ProductVariableSubscription, ProductSubscriptionVariation:
		return true
	}
	return false
}

// Valid reports whether t is a known product type
func (t ProductType) Valid() bool {
	switch t {
	case ProductSimple, ProductVariable, ProductVariation,
		ProductSubscription, ProductVariableSubscription, ProductSubscriptionVariation:
		return true
	}
	return false
}

// Product is a purchasable catalogue entry. Variations point at their parent.
type Product struct {
	ID              int64
	Name            string
	Type            ProductType
	ParentID        *int64
	Price           decimal.Decimal
	BillingPeriod   string
	BillingInterval int
	CreatedAt       time.Time
}

// CartItem is one line of a user's cart
type CartItem struct {
	ID          int64
	UserID      int64
	ProductID   int64
	VariationID *int64
	Quantity    int
	CreatedAt   time.Time
}

// CartLine is a cart item joined with its product and optional variation
type CartLine struct {
	Item      CartItem
	Product   Product
	Variation *Product
}

// IsSubscription checks the product and, when present, the variation
func (l *CartLine) IsSubscription() bool {
	if l.Product.Type.IsSubscription() {
		return true
	}
	return l.Variation != nil && l.Variation.Type.IsSubscription()
}

// UnitPrice is the variation price when a variation was chosen
func (l *CartLine) UnitPrice() decimal.Decimal {
	if l.Variation != nil {
		return l.Variation.Price
	}
	return l.Product.Price
}

// LineTotal is unit price times quantity
func (l *CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Item.Quantity)))
}

// BillingProduct returns the product carrying the billing schedule
func (l *CartLine) BillingProduct() Product {
	if l.Variation != nil {
		return *l.Variation
	}
	return l.Product
}

// DisplayName joins product and variation names
func (l *CartLine) DisplayName() string {
	if l.Variation != nil && l.Variation.Name != "" {
		return l.Product.Name + " - " + l.Variation.Name
	}
	return l.Product.Name
}

// OrderStatus values used by checkout
const (
	OrderStatusProcessing = "processing"
	OrderStatusCompleted  = "completed"
)

// Order is a placed checkout
type Order struct {
	ID           int64
	UserID       int64
	Status       string
	Total        decimal.Decimal
	BillingName  string
	BillingEmail string
	CreatedAt    time.Time
}

// OrderItem is one purchased line of an order
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	VariationID *int64
	Name        string
	Quantity    int
	LineTotal   decimal.Decimal
}

// SubscriptionStatusActive is the status of a newly created subscription
const SubscriptionStatusActive = "active"

// Subscription is a recurring purchase derived from an order line
type Subscription struct {
	ID              int64
	OrderID         int64
	UserID          int64
	ProductID       int64
	Status          string
	BillingPeriod   string
	BillingInterval int
	CreatedAt       time.Time
}
