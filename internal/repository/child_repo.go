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

const childColumns = `id, owner_id, name, date_of_birth, gender, age, club, status, created_at, updated_at`

// ChildRepository handles database operations for child profiles
type ChildRepository struct {
	db database.DBTX
}

// NewChildRepository creates a new child repository
func NewChildRepository(db database.DBTX) *ChildRepository {
	return &ChildRepository{db: db}
}

func scanChild(row rowScanner) (*models.Child, error) {
	child := &models.Child{}
	var status string
	err := row.Scan(
		&child.ID,
		&child.OwnerID,
		&child.Name,
		&child.DateOfBirth,
		&child.Gender,
		&child.Age,
		&child.Club,
		&status,
		&child.CreatedAt,
		&child.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	child.Status = models.ChildStatus(status)
	return child, nil
}

// CreateChild stores a new published child for ownerID
func (r *ChildRepository) CreateChild(ctx context.Context, child *models.Child) (*models.Child, error) {
	query := `
		INSERT INTO children (owner_id, name, date_of_birth, gender, age, club, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(ctx, query,
		child.OwnerID, child.Name, child.DateOfBirth, child.Gender, child.Age, child.Club, string(models.ChildStatusPublish))
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}

	now := time.Now()
	created := *child
	created.ID = id
	created.Status = models.ChildStatusPublish
	created.CreatedAt = now
	created.UpdatedAt = now
	return &created, nil
}

// GetChildByID retrieves a published child by ID
func (r *ChildRepository) GetChildByID(ctx context.Context, id int64) (*models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE id = ? AND status = ?"
	child, err := scanChild(r.db.QueryRowContext(ctx, query, id, string(models.ChildStatusPublish)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return child, nil
}

// GetChildByIDIncludingTrash retrieves a child regardless of status
func (r *ChildRepository) GetChildByIDIncludingTrash(ctx context.Context, id int64) (*models.Child, error) {
	child, err := scanChild(r.db.QueryRowContext(ctx, "SELECT "+childColumns+" FROM children WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return child, nil
}

// ListChildrenByOwner retrieves the published children of a user in creation order
func (r *ChildRepository) ListChildrenByOwner(ctx context.Context, ownerID int64) ([]models.Child, error) {
	query := `
		SELECT ` + childColumns + `
		FROM children
		WHERE owner_id = ? AND status = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID, string(models.ChildStatusPublish))
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *child)
	}
	return children, rows.Err()
}

// ListAllChildrenWithOwners retrieves every published child with its owner's
// name and email. Children whose owner row is missing keep empty owner fields.
func (r *ChildRepository) ListAllChildrenWithOwners(ctx context.Context) ([]models.ChildWithOwner, error) {
	query := `
		SELECT c.id, c.owner_id, c.name, c.date_of_birth, c.gender, c.age, c.club, c.status, c.created_at, c.updated_at,
			COALESCE(u.name, ''), COALESCE(u.email, '')
		FROM children c
		LEFT JOIN users u ON u.id = c.owner_id
		WHERE c.status = ?
		ORDER BY c.created_at DESC, c.id DESC
	`
	rows, err := r.db.QueryContext(ctx, query, string(models.ChildStatusPublish))
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var result []models.ChildWithOwner
	for rows.Next() {
		var (
			row    models.ChildWithOwner
			status string
		)
		if err := rows.Scan(
			&row.Child.ID,
			&row.Child.OwnerID,
			&row.Child.Name,
			&row.Child.DateOfBirth,
			&row.Child.Gender,
			&row.Child.Age,
			&row.Child.Club,
			&status,
			&row.Child.CreatedAt,
			&row.Child.UpdatedAt,
			&row.OwnerName,
			&row.OwnerEmail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		row.Child.Status = models.ChildStatus(status)
		result = append(result, row)
	}
	return result, rows.Err()
}

// ListAllChildren retrieves every child including trashed ones; used by backups
func (r *ChildRepository) ListAllChildren(ctx context.Context) ([]models.Child, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+childColumns+" FROM children ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *child)
	}
	return children, rows.Err()
}

// UpdateChild overwrites the editable fields of a published child
func (r *ChildRepository) UpdateChild(ctx context.Context, child *models.Child) error {
	query := `
		UPDATE children
		SET name = ?, date_of_birth = ?, gender = ?, age = ?, club = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		child.Name, child.DateOfBirth, child.Gender, child.Age, child.Club, child.ID, string(models.ChildStatusPublish))
	if err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}
	return nil
}

// TrashChild moves a child to the trash state
func (r *ChildRepository) TrashChild(ctx context.Context, id int64) error {
	query := "UPDATE children SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, query, string(models.ChildStatusTrash), id); err != nil {
		return fmt.Errorf("failed to trash child: %w", err)
	}
	return nil
}

// ImportChild inserts a child with a fixed ID; used by the backup restore
func (r *ChildRepository) ImportChild(ctx context.Context, c models.Child) error {
	query := `
		INSERT INTO children (id, owner_id, name, date_of_birth, gender, age, club, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.OwnerID, c.Name, c.DateOfBirth, c.Gender, c.Age, c.Club,
		string(c.Status), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to import child %d: %w", c.ID, err)
	}
	return nil
}
