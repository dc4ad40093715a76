package service

import (
	"context"
	"fmt"
	"strconv"

	"childsubs/internal/models"
)

// Admin column texts
const (
	UnknownParent       = "Unknown"
	ChildNotAssigned    = "Not assigned"
	AssignedChildAbsent = "Child not found"
)

// AdminChildRow is one line of the admin children table
type AdminChildRow struct {
	Child       models.Child
	ParentName  string
	ParentEmail string
}

// AdminSubscriptionRow is one line of the admin subscriptions table.
// ChildID is set only when the assigned child still resolves.
type AdminSubscriptionRow struct {
	Subscription  models.Subscription
	AssignedChild string
	ChildID       int64
}

// AdminService builds the read-only admin projections
type AdminService struct {
	children      ChildStore
	subscriptions SubscriptionStore
}

// NewAdminService creates a new admin service
func NewAdminService(children ChildStore, subscriptions SubscriptionStore) *AdminService {
	return &AdminService{children: children, subscriptions: subscriptions}
}

// ChildRows lists every child with its parent's display name and email
func (s *AdminService) ChildRows(ctx context.Context) ([]AdminChildRow, error) {
	records, err := s.children.ListAllChildrenWithOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}

	rows := make([]AdminChildRow, 0, len(records))
	for _, rec := range records {
		row := AdminChildRow{Child: rec.Child, ParentName: UnknownParent, ParentEmail: UnknownParent}
		if rec.OwnerEmail != "" {
			owner := models.User{Name: rec.OwnerName, Email: rec.OwnerEmail}
			row.ParentName = owner.DisplayName()
			row.ParentEmail = rec.OwnerEmail
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SubscriptionRows lists every subscription with its assigned child's name
func (s *AdminService) SubscriptionRows(ctx context.Context) ([]AdminSubscriptionRow, error) {
	subs, err := s.subscriptions.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	rows := make([]AdminSubscriptionRow, 0, len(subs))
	for _, sub := range subs {
		row := AdminSubscriptionRow{Subscription: sub}
		row.AssignedChild, row.ChildID, err = s.assignedChild(ctx, sub.ID)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// assignedChild resolves the title of the child on a subscription. Trashed
// children still resolve.
func (s *AdminService) assignedChild(ctx context.Context, subscriptionID int64) (string, int64, error) {
	raw, err := s.subscriptions.GetMeta(ctx, subscriptionID, models.MetaChildID)
	if err != nil {
		return "", 0, err
	}
	childID, _ := strconv.ParseInt(raw, 10, 64)
	if childID <= 0 {
		return ChildNotAssigned, 0, nil
	}

	child, err := s.children.GetChildByIDIncludingTrash(ctx, childID)
	if err != nil {
		return "", 0, fmt.Errorf("failed to get child: %w", err)
	}
	if child == nil {
		return AssignedChildAbsent, 0, nil
	}
	return child.Name, child.ID, nil
}
