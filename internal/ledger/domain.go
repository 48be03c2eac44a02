package ledger

import (
	"errors"
	"time"
)

// Channel tells which storefront placed an order and therefore which price
// column gets snapshotted into its items.
type Channel string

const (
	ChannelRetail    Channel = "RETAIL"
	ChannelWholesale Channel = "WHOLESALE"
)

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ShipmentStatus enumerates supplier shipment states.
type ShipmentStatus string

const (
	ShipmentStatusShipped  ShipmentStatus = "SHIPPED"
	ShipmentStatusReceived ShipmentStatus = "RECEIVED"
)

// PaymentStatus enumerates supplier payment states.
type PaymentStatus string

const (
	PaymentStatusDue  PaymentStatus = "DUE"
	PaymentStatusPaid PaymentStatus = "PAID"
)

// StockEntrySource records which flow produced a stock entry.
type StockEntrySource string

const (
	StockEntrySourceShipment StockEntrySource = "SHIPMENT"
	StockEntrySourceManual   StockEntrySource = "MANUAL"
)

// Product is the ledger's view of a catalog row. Stock is mutated exclusively
// through this module; everything else is read-only here.
type Product struct {
	ID             int64
	Name           string
	Price          float64
	WholesalePrice float64
	Stock          int64
	Status         string
}

// Order models a customer or wholesale order header.
type Order struct {
	ID             int64
	Number         string
	UserID         int64
	Channel        Channel
	Status         OrderStatus
	Subtotal       float64
	DeliveryCost   float64
	TotalAmount    float64
	DeliveryZone   string
	DeliveryMethod string
	PaymentMethod  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Items          []OrderItem
}

// OrderItem is immutable once created. Quantity is the exact amount reserved
// from product stock at order creation; UnitPrice is snapshotted and never
// recomputed from the current catalog price.
type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int64
	UnitPrice float64
}

// Shipment is a batch of products a supplier has dispatched.
type Shipment struct {
	ID           int64
	Number       string
	SupplierID   int64
	Status       ShipmentStatus
	TotalValue   float64
	DispatchedAt time.Time
	ReceivedAt   *time.Time
	ReceivedBy   *int64
	Items        []ShipmentItem
}

// ShipmentItem is immutable and belongs to a shipment.
type ShipmentItem struct {
	ID         int64
	ShipmentID int64
	ProductID  int64
	Quantity   int64
	UnitCost   float64
}

// StockEntry is the audit record of a stock-increasing event. Exactly one of
// ProductID/ShipmentID is set depending on the source flow.
type StockEntry struct {
	ID         int64
	Source     StockEntrySource
	ProductID  *int64
	ShipmentID *int64
	SupplierID int64
	Quantity   int64
	UnitCost   float64
	ReceivedBy int64
	CreatedAt  time.Time
}

// SupplierPayment is the financial obligation created alongside every
// stock-increasing event sourced from a supplier.
type SupplierPayment struct {
	ID           int64
	SupplierID   int64
	Amount       float64
	Status       PaymentStatus
	StockEntryID *int64
	ShipmentID   *int64
	ProcessedBy  *int64
	PaidAt       *time.Time
	CreatedAt    time.Time
}

// Summary carries the simple aggregate counts shown on the back-office home.
type Summary struct {
	OrdersByStatus     map[OrderStatus]int64
	PaymentsDue        int64
	AmountDue          float64
	ShipmentsInTransit int64
}

// Error taxonomy. Validation errors are detected before any mutation begins;
// conflict errors abort the surrounding transaction and roll everything back.
var (
	ErrEmptyCart         = errors.New("ledger: order has no items")
	ErrInvalidQuantity   = errors.New("ledger: quantity must be positive")
	ErrProductNotFound   = errors.New("ledger: product not found")
	ErrOrderNotFound     = errors.New("ledger: order not found")
	ErrShipmentNotFound  = errors.New("ledger: shipment not found")
	ErrPaymentNotFound   = errors.New("ledger: supplier payment not found")
	ErrInsufficientStock = errors.New("ledger: insufficient stock")
	ErrInvalidTransition = errors.New("ledger: illegal order status transition")
	ErrAlreadyReceived   = errors.New("ledger: shipment already received")
	ErrAlreadyPaid       = errors.New("ledger: payment already settled")
)
