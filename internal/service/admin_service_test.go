package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"childsubs/internal/models"
)

func TestAdminService_ChildRows(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	named := s.parent("jane@example.com", "Jane Doe")
	unnamed := s.parent("nameless@example.com", "")

	_, err := s.childSvc.CreateChild(ctx, named.ID, ChildInput{Name: "Alice", Club: "Tigers"})
	require.NoError(t, err)
	_, err = s.childSvc.CreateChild(ctx, unnamed.ID, ChildInput{Name: "Bob"})
	require.NoError(t, err)
	// Owner account no longer exists
	_, err = s.children.CreateChild(ctx, &models.Child{OwnerID: 99, Name: "Orphan"})
	require.NoError(t, err)
	trashed, err := s.childSvc.CreateChild(ctx, named.ID, ChildInput{Name: "Gone"})
	require.NoError(t, err)
	require.NoError(t, s.childSvc.TrashChild(ctx, trashed.ID, named.ID))

	rows, err := s.adminSvc.ChildRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3, "trashed children are not listed")

	// Newest first
	tests := []struct {
		child, parentName, parentEmail string
	}{
		{"Orphan", UnknownParent, UnknownParent},
		{"Bob", "nameless@example.com", "nameless@example.com"},
		{"Alice", "Jane Doe", "jane@example.com"},
	}
	for i, tt := range tests {
		t.Run(tt.child, func(t *testing.T) {
			assert.Equal(t, tt.child, rows[i].Child.Name)
			assert.Equal(t, tt.parentName, rows[i].ParentName)
			assert.Equal(t, tt.parentEmail, rows[i].ParentEmail)
		})
	}
}

func TestAdminService_SubscriptionRows(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	parent := s.parent("p@example.com", "Pat")

	alice, err := s.childSvc.CreateChild(ctx, parent.ID, ChildInput{Name: "Alice"})
	require.NoError(t, err)
	trashed, err := s.childSvc.CreateChild(ctx, parent.ID, ChildInput{Name: "Bob"})
	require.NoError(t, err)
	require.NoError(t, s.childSvc.TrashChild(ctx, trashed.ID, parent.ID))

	newSub := func(childID string) int64 {
		sub, err := s.subs.CreateSubscription(ctx, &models.Subscription{UserID: parent.ID, Status: models.SubscriptionStatusActive})
		require.NoError(t, err)
		if childID != "" {
			require.NoError(t, s.subs.SetMeta(ctx, sub.ID, models.MetaChildID, childID))
		}
		return sub.ID
	}
	withAlice := newSub("1")
	withTrashed := newSub("2")
	withMissing := newSub("404")
	unassigned := newSub("")
	zero := newSub("0")

	rows, err := s.adminSvc.SubscriptionRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 5)

	byID := map[int64]AdminSubscriptionRow{}
	for _, r := range rows {
		byID[r.Subscription.ID] = r
	}

	assert.Equal(t, "Alice", byID[withAlice].AssignedChild)
	assert.Equal(t, alice.ID, byID[withAlice].ChildID)
	assert.Equal(t, "Bob", byID[withTrashed].AssignedChild, "trashed children still resolve")
	assert.Equal(t, AssignedChildAbsent, byID[withMissing].AssignedChild)
	assert.Zero(t, byID[withMissing].ChildID)
	assert.Equal(t, ChildNotAssigned, byID[unassigned].AssignedChild)
	assert.Equal(t, ChildNotAssigned, byID[zero].AssignedChild)

	assert.Equal(t, zero, rows[0].Subscription.ID, "newest first")
}
