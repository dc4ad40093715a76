package service

import (
	"context"
	"time"

	"childsubs/internal/models"
)

// UserStore is the persistence the auth and admin services need
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash, name string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByOAuth(ctx context.Context, provider, subject string) (*models.User, error)
	LinkOAuthProvider(ctx context.Context, userID int64, provider, subject string) error
	CreateSession(ctx context.Context, sessionID string, userID int64, expiresAt time.Time) (*models.Session, error)
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// ChildStore persists child records
type ChildStore interface {
	CreateChild(ctx context.Context, child *models.Child) (*models.Child, error)
	GetChildByID(ctx context.Context, id int64) (*models.Child, error)
	GetChildByIDIncludingTrash(ctx context.Context, id int64) (*models.Child, error)
	ListChildrenByOwner(ctx context.Context, ownerID int64) ([]models.Child, error)
	ListAllChildrenWithOwners(ctx context.Context) ([]models.ChildWithOwner, error)
	UpdateChild(ctx context.Context, child *models.Child) error
	TrashChild(ctx context.Context, id int64) error
}

// ProductStore persists the catalogue
type ProductStore interface {
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListVariations(ctx context.Context, parentID int64) ([]models.Product, error)
	CountProducts(ctx context.Context) (int, error)
}

// CartStore persists cart lines
type CartStore interface {
	AddItem(ctx context.Context, userID, productID int64, variationID *int64, quantity int) (*models.CartItem, error)
	RemoveItem(ctx context.Context, userID, itemID int64) (bool, error)
	ClearCart(ctx context.Context, userID int64) error
	ListLines(ctx context.Context, userID int64) ([]models.CartLine, error)
}

// MetaStore is key/value metadata attached to an order or subscription
type MetaStore interface {
	GetMeta(ctx context.Context, id int64, key string) (string, error)
	SetMeta(ctx context.Context, id int64, key, value string) error
}

// OrderStore persists orders and their meta
type OrderStore interface {
	MetaStore
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) (*models.Order, error)
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
}

// SubscriptionStore persists subscriptions and their meta
type SubscriptionStore interface {
	MetaStore
	CreateSubscription(ctx context.Context, s *models.Subscription) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]models.Subscription, error)
	ListSubscriptionsByOrder(ctx context.Context, orderID int64) ([]models.Subscription, error)
}
