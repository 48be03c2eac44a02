package catalog

import (
	"errors"
	"time"
)

// ProductStatus enumerates catalog lifecycle states. Only LIVE products are
// visible to storefronts and orderable.
type ProductStatus string

const (
	StatusPendingApproval ProductStatus = "PENDING_APPROVAL"
	StatusLive            ProductStatus = "LIVE"
	StatusArchived        ProductStatus = "ARCHIVED"
)

// ValidStatus reports whether the value is a known product status.
func ValidStatus(status ProductStatus) bool {
	switch status {
	case StatusPendingApproval, StatusLive, StatusArchived:
		return true
	}
	return false
}

// Product is the catalog master record. Stock is owned by the ledger module
// and is read-only here.
type Product struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Category       string        `json:"category"`
	Price          float64       `json:"price"`
	WholesalePrice float64       `json:"wholesale_price"`
	Stock          int64         `json:"stock"`
	Status         ProductStatus `json:"status"`
	ImageURL       string        `json:"image_url"`
	CreatedBy      int64         `json:"created_by"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

var (
	ErrProductNotFound = errors.New("catalog: product not found")
	ErrInvalidStatus   = errors.New("catalog: invalid product status")
	ErrInvalidName     = errors.New("catalog: name required")
	ErrInvalidPrice    = errors.New("catalog: price must be positive")
)
