package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"childsubs/internal/database"
	"childsubs/internal/models"
	"childsubs/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version       string               `json:"version"`
	ExportedAt    time.Time            `json:"exported_at"`
	DatabaseType  string               `json:"database_type"`
	Users         []UserBackup         `json:"users"`
	Children      []ChildBackup        `json:"children"`
	Products      []ProductBackup      `json:"products"`
	Orders        []OrderBackup        `json:"orders"`
	Subscriptions []SubscriptionBackup `json:"subscriptions"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64     `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"password_hash"`
	Name          string    `json:"name"`
	OAuthProvider string    `json:"oauth_provider"`
	OAuthSubject  string    `json:"oauth_subject"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ChildBackup represents a child record for backup, trashed ones included
type ChildBackup struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	DateOfBirth string    `json:"date_of_birth"`
	Gender      string    `json:"gender"`
	Age         int       `json:"age"`
	Club        string    `json:"club"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductBackup represents a catalogue row for backup
type ProductBackup struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	ParentID        *int64          `json:"parent_id,omitempty"`
	Price           decimal.Decimal `json:"price"`
	BillingPeriod   string          `json:"billing_period"`
	BillingInterval int             `json:"billing_interval"`
	CreatedAt       time.Time       `json:"created_at"`
}

// OrderItemBackup represents an order line for backup
type OrderItemBackup struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	VariationID *int64          `json:"variation_id,omitempty"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderBackup represents an order with its lines and meta
type OrderBackup struct {
	ID           int64             `json:"id"`
	UserID       int64             `json:"user_id"`
	Status       string            `json:"status"`
	Total        decimal.Decimal   `json:"total"`
	BillingName  string            `json:"billing_name"`
	BillingEmail string            `json:"billing_email"`
	CreatedAt    time.Time         `json:"created_at"`
	Items        []OrderItemBackup `json:"items"`
	Meta         map[string]string `json:"meta"`
}

// SubscriptionBackup represents a subscription with its meta
type SubscriptionBackup struct {
	ID              int64             `json:"id"`
	OrderID         int64             `json:"order_id"`
	UserID          int64             `json:"user_id"`
	ProductID       int64             `json:"product_id"`
	Status          string            `json:"status"`
	BillingPeriod   string            `json:"billing_period"`
	BillingInterval int               `json:"billing_interval"`
	CreatedAt       time.Time         `json:"created_at"`
	Meta            map[string]string `json:"meta"`
}

// BackupService handles database export and import operations
type BackupService struct {
	db     *database.DB
	logger *zap.Logger
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger *zap.Logger) *BackupService {
	return &BackupService{db: db, logger: logger}
}

// Export writes a JSON backup of the database to outputPath
func (s *BackupService) Export(ctx context.Context, outputPath string) error {
	s.logger.Info("starting database export", zap.String("path", outputPath))

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	backup, err := s.ExportToWriter(ctx, file)
	if err != nil {
		return err
	}

	s.logger.Info("database exported",
		zap.String("path", outputPath),
		zap.Int("users", len(backup.Users)),
		zap.Int("children", len(backup.Children)),
		zap.Int("products", len(backup.Products)),
		zap.Int("orders", len(backup.Orders)),
		zap.Int("subscriptions", len(backup.Subscriptions)),
	)
	return nil
}

// ExportToWriter encodes a backup to w (useful for HTTP responses)
func (s *BackupService) ExportToWriter(ctx context.Context, w io.Writer) (*BackupData, error) {
	backup, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return backup, nil
}

func (s *BackupService) collect(ctx context.Context) (*BackupData, error) {
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   time.Now().UTC(),
		DatabaseType: "universal",
	}

	if err := s.exportUsers(ctx, backup); err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportChildren(ctx, backup); err != nil {
		return nil, fmt.Errorf("failed to export children: %w", err)
	}
	if err := s.exportProducts(ctx, backup); err != nil {
		return nil, fmt.Errorf("failed to export products: %w", err)
	}
	if err := s.exportOrders(ctx, backup); err != nil {
		return nil, fmt.Errorf("failed to export orders: %w", err)
	}
	if err := s.exportSubscriptions(ctx, backup); err != nil {
		return nil, fmt.Errorf("failed to export subscriptions: %w", err)
	}
	return backup, nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(ctx, file)
}

// ImportFromReader restores a database from a backup reader (for file uploads).
// The whole restore runs in one transaction.
func (s *BackupService) ImportFromReader(ctx context.Context, reader io.Reader) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	s.logger.Info("starting database import",
		zap.String("version", backup.Version),
		zap.Time("exported_at", backup.ExportedAt),
	)

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		// Import in order of dependencies
		if err := s.importUsers(ctx, tx, backup.Users); err != nil {
			return fmt.Errorf("failed to import users: %w", err)
		}
		if err := s.importChildren(ctx, tx, backup.Children); err != nil {
			return fmt.Errorf("failed to import children: %w", err)
		}
		if err := s.importProducts(ctx, tx, backup.Products); err != nil {
			return fmt.Errorf("failed to import products: %w", err)
		}
		if err := s.importOrders(ctx, tx, backup.Orders); err != nil {
			return fmt.Errorf("failed to import orders: %w", err)
		}
		if err := s.importSubscriptions(ctx, tx, backup.Subscriptions); err != nil {
			return fmt.Errorf("failed to import subscriptions: %w", err)
		}
		return resetSequences(ctx, tx)
	})
	if err != nil {
		return err
	}

	s.logger.Info("database import completed")
	return nil
}

func (s *BackupService) exportUsers(ctx context.Context, backup *BackupData) error {
	users, err := repository.NewUserRepository(s.db).GetAllUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		backup.Users = append(backup.Users, UserBackup{
			ID:            u.ID,
			Email:         u.Email,
			PasswordHash:  u.PasswordHash,
			Name:          u.Name,
			OAuthProvider: u.OAuthProvider,
			OAuthSubject:  u.OAuthSubject,
			IsAdmin:       u.IsAdmin,
			CreatedAt:     u.CreatedAt,
			UpdatedAt:     u.UpdatedAt,
		})
	}
	return nil
}

func (s *BackupService) exportChildren(ctx context.Context, backup *BackupData) error {
	children, err := repository.NewChildRepository(s.db).ListAllChildren(ctx)
	if err != nil {
		return err
	}
	for _, c := range children {
		backup.Children = append(backup.Children, ChildBackup{
			ID:          c.ID,
			OwnerID:     c.OwnerID,
			Name:        c.Name,
			DateOfBirth: c.DateOfBirth,
			Gender:      c.Gender,
			Age:         c.Age,
			Club:        c.Club,
			Status:      string(c.Status),
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		})
	}
	return nil
}

func (s *BackupService) exportProducts(ctx context.Context, backup *BackupData) error {
	products, err := repository.NewProductRepository(s.db).ListAllProducts(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		backup.Products = append(backup.Products, ProductBackup{
			ID:              p.ID,
			Name:            p.Name,
			Type:            string(p.Type),
			ParentID:        p.ParentID,
			Price:           p.Price,
			BillingPeriod:   p.BillingPeriod,
			BillingInterval: p.BillingInterval,
			CreatedAt:       p.CreatedAt,
		})
	}
	return nil
}

func (s *BackupService) exportOrders(ctx context.Context, backup *BackupData) error {
	repo := repository.NewOrderRepository(s.db)
	orders, err := repo.ListOrders(ctx)
	if err != nil {
		return err
	}
	for _, o := range orders {
		items, err := repo.GetOrderItems(ctx, o.ID)
		if err != nil {
			return err
		}
		meta, err := repo.AllMeta(ctx, o.ID)
		if err != nil {
			return err
		}
		ob := OrderBackup{
			ID:           o.ID,
			UserID:       o.UserID,
			Status:       o.Status,
			Total:        o.Total,
			BillingName:  o.BillingName,
			BillingEmail: o.BillingEmail,
			CreatedAt:    o.CreatedAt,
			Meta:         meta,
		}
		for _, item := range items {
			ob.Items = append(ob.Items, OrderItemBackup{
				ID:          item.ID,
				ProductID:   item.ProductID,
				VariationID: item.VariationID,
				Name:        item.Name,
				Quantity:    item.Quantity,
				LineTotal:   item.LineTotal,
			})
		}
		backup.Orders = append(backup.Orders, ob)
	}
	return nil
}

func (s *BackupService) exportSubscriptions(ctx context.Context, backup *BackupData) error {
	repo := repository.NewSubscriptionRepository(s.db)
	subs, err := repo.ListSubscriptions(ctx)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		meta, err := repo.AllMeta(ctx, sub.ID)
		if err != nil {
			return err
		}
		backup.Subscriptions = append(backup.Subscriptions, SubscriptionBackup{
			ID:              sub.ID,
			OrderID:         sub.OrderID,
			UserID:          sub.UserID,
			ProductID:       sub.ProductID,
			Status:          sub.Status,
			BillingPeriod:   sub.BillingPeriod,
			BillingInterval: sub.BillingInterval,
			CreatedAt:       sub.CreatedAt,
			Meta:            meta,
		})
	}
	return nil
}

func (s *BackupService) importUsers(ctx context.Context, tx database.DBTX, users []UserBackup) error {
	s.logger.Info("importing users", zap.Int("count", len(users)))
	repo := repository.NewUserRepository(tx)
	for _, u := range users {
		err := repo.ImportUser(ctx, models.User{
			ID:            u.ID,
			Email:         u.Email,
			PasswordHash:  u.PasswordHash,
			Name:          u.Name,
			OAuthProvider: u.OAuthProvider,
			OAuthSubject:  u.OAuthSubject,
			IsAdmin:       u.IsAdmin,
			CreatedAt:     u.CreatedAt,
			UpdatedAt:     u.UpdatedAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *BackupService) importChildren(ctx context.Context, tx database.DBTX, children []ChildBackup) error {
	s.logger.Info("importing children", zap.Int("count", len(children)))
	repo := repository.NewChildRepository(tx)
	for _, c := range children {
		status := models.ChildStatus(c.Status)
		if status != models.ChildStatusTrash {
			status = models.ChildStatusPublish
		}
		err := repo.ImportChild(ctx, models.Child{
			ID:          c.ID,
			OwnerID:     c.OwnerID,
			Name:        c.Name,
			DateOfBirth: c.DateOfBirth,
			Gender:      c.Gender,
			Age:         c.Age,
			Club:        c.Club,
			Status:      status,
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *BackupService) importProducts(ctx context.Context, tx database.DBTX, products []ProductBackup) error {
	s.logger.Info("importing products", zap.Int("count", len(products)))
	repo := repository.NewProductRepository(tx)
	for _, p := range products {
		err := repo.ImportProduct(ctx, models.Product{
			ID:              p.ID,
			Name:            p.Name,
			Type:            models.ProductType(p.Type),
			ParentID:        p.ParentID,
			Price:           p.Price,
			BillingPeriod:   p.BillingPeriod,
			BillingInterval: p.BillingInterval,
			CreatedAt:       p.CreatedAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *BackupService) importOrders(ctx context.Context, tx database.DBTX, orders []OrderBackup) error {
	s.logger.Info("importing orders", zap.Int("count", len(orders)))
	repo := repository.NewOrderRepository(tx)
	for _, o := range orders {
		err := repo.ImportOrder(ctx, models.Order{
			ID:           o.ID,
			UserID:       o.UserID,
			Status:       o.Status,
			Total:        o.Total,
			BillingName:  o.BillingName,
			BillingEmail: o.BillingEmail,
			CreatedAt:    o.CreatedAt,
		})
		if err != nil {
			return err
		}
		for _, item := range o.Items {
			err := repo.ImportOrderItem(ctx, models.OrderItem{
				ID:          item.ID,
				OrderID:     o.ID,
				ProductID:   item.ProductID,
				VariationID: item.VariationID,
				Name:        item.Name,
				Quantity:    item.Quantity,
				LineTotal:   item.LineTotal,
			})
			if err != nil {
				return err
			}
		}
		for key, value := range o.Meta {
			if err := repo.SetMeta(ctx, o.ID, key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *BackupService) importSubscriptions(ctx context.Context, tx database.DBTX, subs []SubscriptionBackup) error {
	s.logger.Info("importing subscriptions", zap.Int("count", len(subs)))
	repo := repository.NewSubscriptionRepository(tx)
	for _, sub := range subs {
		err := repo.ImportSubscription(ctx, models.Subscription{
			ID:              sub.ID,
			OrderID:         sub.OrderID,
			UserID:          sub.UserID,
			ProductID:       sub.ProductID,
			Status:          sub.Status,
			BillingPeriod:   sub.BillingPeriod,
			BillingInterval: sub.BillingInterval,
			CreatedAt:       sub.CreatedAt,
		})
		if err != nil {
			return err
		}
		for key, value := range sub.Meta {
			if err := repo.SetMeta(ctx, sub.ID, key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// sequenceTables lists the tables whose serial ids are written explicitly on import
var sequenceTables = []string{"users", "children", "products", "orders", "order_items", "subscriptions"}

// resetSequences moves PostgreSQL serial sequences past the imported ids.
// SQLite and MySQL track the next id from the table contents.
func resetSequences(ctx context.Context, tx database.DBTX) error {
	if tx.GetDialect().DriverName() != "postgres" {
		return nil
	}
	for _, table := range sequenceTables {
		query := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)",
			table, table)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to reset sequence for %s: %w", table, err)
		}
	}
	return nil
}
