package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"childsubs/internal/models"
	"childsubs/internal/validation"
)

var (
	ErrChildNotFound     = errors.New("child not found")
	ErrNotChildOwner     = errors.New("you do not have permission to edit this child")
	ErrChildNameRequired = errors.New("child name is required")
	ErrInvalidChildID    = errors.New("invalid child ID")
	ErrInvalidChildInput = errors.New("invalid child details")
)

// ChildInput is the raw form input for a child. Values are sanitized by the
// service, so handlers pass them through untouched.
type ChildInput struct {
	Name        string
	DateOfBirth string
	Gender      string
	Age         string
	Club        string
}

type childFields struct {
	Name        string `validate:"required,max=200"`
	DateOfBirth string `validate:"max=32"`
	Gender      string `validate:"max=32"`
	Age         int    `validate:"gte=0"`
	Club        string `validate:"max=200"`
}

func (in ChildInput) sanitize() childFields {
	return childFields{
		Name:        validation.SanitizeTextField(in.Name),
		DateOfBirth: validation.SanitizeTextField(in.DateOfBirth),
		Gender:      validation.SanitizeTextField(in.Gender),
		Age:         validation.AbsInt(in.Age),
		Club:        validation.SanitizeTextField(in.Club),
	}
}

func (f childFields) validate() error {
	if f.Name == "" {
		return ErrChildNameRequired
	}
	if err := validation.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChildInput, err)
	}
	return nil
}

// ChildService manages child records scoped to their owning parent
type ChildService struct {
	children ChildStore
	logger   *zap.Logger
}

// NewChildService creates a new child service
func NewChildService(children ChildStore, logger *zap.Logger) *ChildService {
	return &ChildService{children: children, logger: logger}
}

// CreateChild stores a new child owned by ownerID
func (s *ChildService) CreateChild(ctx context.Context, ownerID int64, in ChildInput) (*models.Child, error) {
	fields := in.sanitize()
	if err := fields.validate(); err != nil {
		return nil, err
	}

	child, err := s.children.CreateChild(ctx, &models.Child{
		OwnerID:     ownerID,
		Name:        fields.Name,
		DateOfBirth: fields.DateOfBirth,
		Gender:      fields.Gender,
		Age:         fields.Age,
		Club:        fields.Club,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create child: %w", err)
	}

	s.logger.Info("child created", zap.Int64("child_id", child.ID), zap.Int64("owner_id", ownerID))
	return child, nil
}

// ListChildren returns the published children owned by ownerID
func (s *ChildService) ListChildren(ctx context.Context, ownerID int64) ([]models.Child, error) {
	if ownerID <= 0 {
		return nil, nil
	}
	children, err := s.children.ListChildrenByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	return children, nil
}

// GetChildForOwner returns a published child only when ownerID owns it
func (s *ChildService) GetChildForOwner(ctx context.Context, id, ownerID int64) (*models.Child, error) {
	if id <= 0 {
		return nil, ErrInvalidChildID
	}

	child, err := s.children.GetChildByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return nil, ErrChildNotFound
	}
	if child.OwnerID != ownerID {
		return nil, ErrNotChildOwner
	}
	return child, nil
}

// UpdateChild replaces the details of a child owned by ownerID
func (s *ChildService) UpdateChild(ctx context.Context, id, ownerID int64, in ChildInput) (*models.Child, error) {
	child, err := s.GetChildForOwner(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotChildOwner) {
			s.logger.Warn("child update denied", zap.Int64("child_id", id), zap.Int64("user_id", ownerID))
		}
		return nil, err
	}

	fields := in.sanitize()
	if err := fields.validate(); err != nil {
		return nil, err
	}

	child.Name = fields.Name
	child.DateOfBirth = fields.DateOfBirth
	child.Gender = fields.Gender
	child.Age = fields.Age
	child.Club = fields.Club

	if err := s.children.UpdateChild(ctx, child); err != nil {
		return nil, fmt.Errorf("failed to update child: %w", err)
	}

	s.logger.Info("child updated", zap.Int64("child_id", id), zap.Int64("owner_id", ownerID))
	return child, nil
}

// TrashChild soft deletes a child owned by ownerID
func (s *ChildService) TrashChild(ctx context.Context, id, ownerID int64) error {
	if _, err := s.GetChildForOwner(ctx, id, ownerID); err != nil {
		if errors.Is(err, ErrNotChildOwner) {
			s.logger.Warn("child delete denied", zap.Int64("child_id", id), zap.Int64("user_id", ownerID))
		}
		return err
	}

	if err := s.children.TrashChild(ctx, id); err != nil {
		return fmt.Errorf("failed to delete child: %w", err)
	}

	s.logger.Info("child trashed", zap.Int64("child_id", id), zap.Int64("owner_id", ownerID))
	return nil
}
