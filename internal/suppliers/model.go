package suppliers

import (
	"errors"
	"time"
)

// Supplier represents a supplier account. UserID links to the login used by
// the supplier portal; zero means the record was created by back-office staff
// without portal access.
type Supplier struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	UserID    int64     `json:"user_id"`
	Address   string    `json:"address"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var ErrSupplierNotFound = errors.New("suppliers: supplier not found")
