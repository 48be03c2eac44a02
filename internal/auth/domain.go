package auth

import "time"

// User represents an authenticated account. Role is one of the rbac role
// constants and is copied into the session claim at login.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
