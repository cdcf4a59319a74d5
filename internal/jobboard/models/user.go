package models

import (
	"time"

	"github.com/google/uuid"
)

// Role tags an identity as one side of the marketplace.
type Role string

const (
	RoleEmployer Role = "employer"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleEmployer || r == RoleEmployee
}

// User is a registered account.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor is the authenticated identity invoking an operation.
type Actor struct {
	ID   uuid.UUID
	Role Role
}
