package ledger

import "time"

type orderLineRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required"`
}

type checkoutRequest struct {
	DeliveryZone   string             `json:"delivery_zone" validate:"required"`
	DeliveryMethod string             `json:"delivery_method" validate:"required"`
	PaymentMethod  string             `json:"payment_method" validate:"required"`
	Items          []orderLineRequest `json:"items"`
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type shipmentLineRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  int64   `json:"quantity" validate:"required"`
	UnitCost  float64 `json:"unit_cost" validate:"gte=0"`
}

type createShipmentRequest struct {
	// SupplierID is only honoured for admin submissions; supplier accounts
	// always dispatch as themselves.
	SupplierID int64                 `json:"supplier_id" validate:"gte=0"`
	Items      []shipmentLineRequest `json:"items" validate:"required,min=1,dive"`
}

type stockEntryRequest struct {
	ProductID  int64 `json:"product_id" validate:"required,gt=0"`
	SupplierID int64 `json:"supplier_id" validate:"required,gt=0"`
	Quantity   int64 `json:"quantity" validate:"required"`
}

type orderItemResponse struct {
	ProductID int64   `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type orderResponse struct {
	ID             int64               `json:"id"`
	Number         string              `json:"number"`
	Channel        string              `json:"channel"`
	Status         string              `json:"status"`
	Subtotal       float64             `json:"subtotal"`
	DeliveryCost   float64             `json:"delivery_cost"`
	TotalAmount    float64             `json:"total_amount"`
	TotalDisplay   string              `json:"total_display"`
	DeliveryZone   string              `json:"delivery_zone"`
	DeliveryMethod string              `json:"delivery_method"`
	PaymentMethod  string              `json:"payment_method"`
	CreatedAt      time.Time           `json:"created_at"`
	Items          []orderItemResponse `json:"items"`
}

type shipmentItemResponse struct {
	ProductID int64   `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	UnitCost  float64 `json:"unit_cost"`
}

type shipmentResponse struct {
	ID           int64                  `json:"id"`
	Number       string                 `json:"number"`
	SupplierID   int64                  `json:"supplier_id"`
	Status       string                 `json:"status"`
	TotalValue   float64                `json:"total_value"`
	DispatchedAt time.Time              `json:"dispatched_at"`
	ReceivedAt   *time.Time             `json:"received_at,omitempty"`
	Items        []shipmentItemResponse `json:"items"`
}

type stockEntryResponse struct {
	ID         int64     `json:"id"`
	Source     string    `json:"source"`
	ProductID  *int64    `json:"product_id,omitempty"`
	ShipmentID *int64    `json:"shipment_id,omitempty"`
	SupplierID int64     `json:"supplier_id"`
	Quantity   int64     `json:"quantity"`
	UnitCost   float64   `json:"unit_cost"`
	CreatedAt  time.Time `json:"created_at"`
}

type paymentResponse struct {
	ID         int64      `json:"id"`
	SupplierID int64      `json:"supplier_id"`
	Amount     float64    `json:"amount"`
	Status     string     `json:"status"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type summaryResponse struct {
	OrdersByStatus     map[string]int64 `json:"orders_by_status"`
	PaymentsDue        int64            `json:"payments_due"`
	AmountDue          float64          `json:"amount_due"`
	ShipmentsInTransit int64            `json:"shipments_in_transit"`
}
