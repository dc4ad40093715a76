package models

import "time"

// ChildStatus is the visibility state of a child record
type ChildStatus string

const (
	ChildStatusPublish ChildStatus = "publish"
	ChildStatusTrash   ChildStatus = "trash"
)

// Child represents a child profile owned by a parent user
type Child struct {
	ID          int64
	OwnerID     int64
	Name        string
	DateOfBirth string
	Gender      string
	Age         int
	Club        string
	Status      ChildStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsTrashed reports whether the record was soft deleted
func (c *Child) IsTrashed() bool {
	return c.Status == ChildStatusTrash
}

// ChildWithOwner is a child joined to its owner for admin listings.
// OwnerName and OwnerEmail are empty when the owner row is gone.
type ChildWithOwner struct {
	Child      Child
	OwnerName  string
	OwnerEmail string
}
