package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sokoline/sokoline/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, orderID int64) (Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
	GetShipment(ctx context.Context, shipmentID int64) (Shipment, error)
	ListShipments(ctx context.Context, supplierID int64, limit int) ([]Shipment, error)
	ListPayments(ctx context.Context, status PaymentStatus, limit int) ([]SupplierPayment, error)
	ListStockEntries(ctx context.Context, limit int) ([]StockEntry, error)
	GetSummary(ctx context.Context) (Summary, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// DeliveryRates holds the flat-rate delivery surcharge table: one rate inside
// the home zone, a higher one everywhere else.
type DeliveryRates struct {
	HomeZone  string
	HomeFee   float64
	RemoteFee float64
}

// Fee returns the delivery surcharge for a destination zone.
func (d DeliveryRates) Fee(zone string) float64 {
	if strings.EqualFold(strings.TrimSpace(zone), d.HomeZone) {
		return d.HomeFee
	}
	return d.RemoteFee
}

// ServiceConfig groups ledger policy settings.
type ServiceConfig struct {
	Transitions TransitionPolicy
	Delivery    DeliveryRates
}

// Service owns every sanctioned mutation of product stock and the state
// machines for orders, shipments, stock entries and supplier payments.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	policy      TransitionPolicy
	delivery    DeliveryRates
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, cfg ServiceConfig) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, policy: cfg.Transitions, delivery: cfg.Delivery}
}

// OrderLineInput is one cart line submitted at checkout. Prices are looked up
// server-side; client-submitted prices are never trusted.
type OrderLineInput struct {
	ProductID int64
	Quantity  int64
}

// CreateOrderInput describes a checkout request.
type CreateOrderInput struct {
	UserID         int64
	Channel        Channel
	DeliveryZone   string
	DeliveryMethod string
	PaymentMethod  string
	Lines          []OrderLineInput
}

// CreateOrder converts a cart into an order, reserving stock for every line
// inside one transaction. If any single line cannot be covered the whole
// order aborts and no stock is decremented.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (Order, error) {
	if len(input.Lines) == 0 {
		return Order{}, ErrEmptyCart
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return Order{}, ErrInvalidQuantity
		}
	}
	channel := input.Channel
	if channel == "" {
		channel = ChannelRetail
	}
	now := time.Now().UTC()
	order := Order{
		Number:         fmt.Sprintf("ORD-%d", now.UnixNano()),
		UserID:         input.UserID,
		Channel:        channel,
		Status:         OrderStatusPending,
		DeliveryZone:   input.DeliveryZone,
		DeliveryMethod: input.DeliveryMethod,
		PaymentMethod:  input.PaymentMethod,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var subtotal float64
		items := make([]OrderItem, 0, len(input.Lines))
		for _, line := range input.Lines {
			product, err := tx.GetProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if product.Status != "LIVE" {
				return ErrProductNotFound
			}
			if err := s.reserveStock(ctx, tx, product.ID, line.Quantity); err != nil {
				return err
			}
			price := product.Price
			if channel == ChannelWholesale {
				price = product.WholesalePrice
			}
			subtotal += price * float64(line.Quantity)
			items = append(items, OrderItem{ProductID: product.ID, Quantity: line.Quantity, UnitPrice: price})
		}
		order.Subtotal = subtotal
		order.DeliveryCost = s.delivery.Fee(input.DeliveryZone)
		order.TotalAmount = subtotal + order.DeliveryCost
		orderID, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = orderID
		if err := tx.InsertOrderItems(ctx, orderID, items); err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = orderID
		}
		order.Items = items
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, input.UserID, "ORDER_CREATE", "order", order.ID, map[string]any{
		"number":  order.Number,
		"channel": string(order.Channel),
		"total":   shared.FormatAmount(order.TotalAmount, ""),
	})
	return order, nil
}

// TransitionOrderStatus advances or cancels an order. Cancellation releases
// the exact quantities recorded in the order's items, in the same transaction
// that flips the status.
func (s *Service) TransitionOrderStatus(ctx context.Context, orderID int64, newStatus OrderStatus, actorID int64) (Order, error) {
	if !ValidOrderStatus(newStatus) {
		return Order{}, ErrInvalidTransition
	}
	var updated Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !s.policy.CanTransition(order.Status, newStatus) {
			return ErrInvalidTransition
		}
		if err := tx.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
			return err
		}
		if newStatus == OrderStatusCancelled {
			if err := s.releaseStock(ctx, tx, order.Items); err != nil {
				return err
			}
		}
		updated = order
		updated.Status = newStatus
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.recordAudit(ctx, actorID, "ORDER_STATUS", "order", orderID, map[string]any{
		"status": string(newStatus),
	})
	return updated, nil
}

// ShipmentLineInput describes one dispatched product.
type ShipmentLineInput struct {
	ProductID int64
	Quantity  int64
	UnitCost  float64
}

// CreateShipmentInput describes a supplier dispatch.
type CreateShipmentInput struct {
	SupplierID int64
	Lines      []ShipmentLineInput
}

// CreateShipment records a supplier dispatch. Items are immutable afterwards;
// stock is only credited when an employee receives the shipment.
func (s *Service) CreateShipment(ctx context.Context, input CreateShipmentInput) (Shipment, error) {
	if len(input.Lines) == 0 {
		return Shipment{}, ErrInvalidQuantity
	}
	var total float64
	items := make([]ShipmentItem, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity <= 0 || line.UnitCost < 0 {
			return Shipment{}, ErrInvalidQuantity
		}
		total += float64(line.Quantity) * line.UnitCost
		items = append(items, ShipmentItem{ProductID: line.ProductID, Quantity: line.Quantity, UnitCost: line.UnitCost})
	}
	now := time.Now().UTC()
	shipment := Shipment{
		Number:       fmt.Sprintf("SHP-%d", now.UnixNano()),
		SupplierID:   input.SupplierID,
		Status:       ShipmentStatusShipped,
		TotalValue:   total,
		DispatchedAt: now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, line := range input.Lines {
			if _, err := tx.GetProductForUpdate(ctx, line.ProductID); err != nil {
				return err
			}
		}
		id, err := tx.InsertShipment(ctx, shipment)
		if err != nil {
			return err
		}
		shipment.ID = id
		if err := tx.InsertShipmentItems(ctx, id, items); err != nil {
			return err
		}
		for i := range items {
			items[i].ShipmentID = id
		}
		shipment.Items = items
		return nil
	})
	if err != nil {
		return Shipment{}, err
	}
	s.recordAudit(ctx, input.SupplierID, "SHIPMENT_CREATE", "shipment", shipment.ID, map[string]any{
		"number": shipment.Number,
		"value":  shipment.TotalValue,
	})
	return shipment, nil
}

// ReceiveShipment marks a shipment received, credits stock for every item,
// and creates the stock entry plus the supplier payment obligation in one
// transaction. Receiving twice fails with ErrAlreadyReceived and credits
// nothing.
func (s *Service) ReceiveShipment(ctx context.Context, shipmentID, receivedBy int64) (Shipment, error) {
	key := fmt.Sprintf("SHIPMENT-RECV:%d", shipmentID)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "ledger.shipment"); err != nil {
			if err == shared.ErrIdempotencyConflict {
				return Shipment{}, ErrAlreadyReceived
			}
			return Shipment{}, err
		}
		insertedKey = true
	}
	var received Shipment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		shipment, err := tx.GetShipmentForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}
		if shipment.Status == ShipmentStatusReceived {
			return ErrAlreadyReceived
		}
		if err := tx.MarkShipmentReceived(ctx, shipmentID, receivedBy); err != nil {
			return err
		}
		var totalQty int64
		for _, item := range shipment.Items {
			if err := s.receiveStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			totalQty += item.Quantity
		}
		entry := StockEntry{
			Source:     StockEntrySourceShipment,
			ShipmentID: &shipment.ID,
			SupplierID: shipment.SupplierID,
			Quantity:   totalQty,
			ReceivedBy: receivedBy,
		}
		if _, err := tx.InsertStockEntry(ctx, entry); err != nil {
			return err
		}
		payment := SupplierPayment{
			SupplierID: shipment.SupplierID,
			Amount:     shipment.TotalValue,
			Status:     PaymentStatusDue,
			ShipmentID: &shipment.ID,
		}
		if _, err := tx.InsertSupplierPayment(ctx, payment); err != nil {
			return err
		}
		received = shipment
		received.Status = ShipmentStatusReceived
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Shipment{}, err
	}
	s.recordAudit(ctx, receivedBy, "SHIPMENT_RECEIVE", "shipment", shipmentID, map[string]any{
		"number": received.Number,
		"value":  received.TotalValue,
	})
	return received, nil
}

// StockEntryInput describes a manual stock entry.
type StockEntryInput struct {
	ProductID  int64
	SupplierID int64
	Quantity   int64
	ReceivedBy int64
}

// StockEntryResult pairs the created entry with its payment obligation.
type StockEntryResult struct {
	Entry   StockEntry
	Payment SupplierPayment
}

// RecordStockEntry registers stock received outside the shipment flow. The
// payment amount is the product's wholesale price at entry time multiplied by
// the quantity; entry, stock increment and payment commit together.
func (s *Service) RecordStockEntry(ctx context.Context, input StockEntryInput) (StockEntryResult, error) {
	if input.Quantity <= 0 {
		return StockEntryResult{}, ErrInvalidQuantity
	}
	var result StockEntryResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if err := s.receiveStock(ctx, tx, product.ID, input.Quantity); err != nil {
			return err
		}
		entry := StockEntry{
			Source:     StockEntrySourceManual,
			ProductID:  &product.ID,
			SupplierID: input.SupplierID,
			Quantity:   input.Quantity,
			UnitCost:   product.WholesalePrice,
			ReceivedBy: input.ReceivedBy,
		}
		entryID, err := tx.InsertStockEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = entryID
		payment := SupplierPayment{
			SupplierID:   input.SupplierID,
			Amount:       product.WholesalePrice * float64(input.Quantity),
			Status:       PaymentStatusDue,
			StockEntryID: &entryID,
		}
		paymentID, err := tx.InsertSupplierPayment(ctx, payment)
		if err != nil {
			return err
		}
		payment.ID = paymentID
		result = StockEntryResult{Entry: entry, Payment: payment}
		return nil
	})
	if err != nil {
		return StockEntryResult{}, err
	}
	s.recordAudit(ctx, input.ReceivedBy, "STOCK_ENTRY", "stock_entry", result.Entry.ID, map[string]any{
		"product_id": input.ProductID,
		"qty":        input.Quantity,
		"amount":     result.Payment.Amount,
	})
	return result, nil
}

// MarkPaymentPaid settles a DUE supplier payment. A second call fails with
// ErrAlreadyPaid so nothing downstream double-counts the expense.
func (s *Service) MarkPaymentPaid(ctx context.Context, paymentID, processedBy int64) (SupplierPayment, error) {
	var settled SupplierPayment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		payment, err := tx.GetPaymentForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status == PaymentStatusPaid {
			return ErrAlreadyPaid
		}
		if err := tx.MarkPaymentPaid(ctx, paymentID, processedBy); err != nil {
			return err
		}
		settled = payment
		settled.Status = PaymentStatusPaid
		settled.ProcessedBy = &processedBy
		return nil
	})
	if err != nil {
		return SupplierPayment{}, err
	}
	s.recordAudit(ctx, processedBy, "PAYMENT_SETTLE", "supplier_payment", paymentID, map[string]any{
		"amount": settled.Amount,
	})
	return settled, nil
}

// GetOrder returns an order with its items.
func (s *Service) GetOrder(ctx context.Context, orderID int64) (Order, error) {
	return s.repo.GetOrder(ctx, orderID)
}

// ListOrders lists orders, newest first.
func (s *Service) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	return s.repo.ListOrders(ctx, filter)
}

// GetShipment returns a shipment with its items.
func (s *Service) GetShipment(ctx context.Context, shipmentID int64) (Shipment, error) {
	return s.repo.GetShipment(ctx, shipmentID)
}

// ListShipments lists shipments, optionally scoped to a supplier.
func (s *Service) ListShipments(ctx context.Context, supplierID int64, limit int) ([]Shipment, error) {
	return s.repo.ListShipments(ctx, supplierID, limit)
}

// ListPayments lists supplier payments filtered by status.
func (s *Service) ListPayments(ctx context.Context, status PaymentStatus, limit int) ([]SupplierPayment, error) {
	return s.repo.ListPayments(ctx, status, limit)
}

// ListStockEntries lists stock entries, newest first.
func (s *Service) ListStockEntries(ctx context.Context, limit int) ([]StockEntry, error) {
	return s.repo.ListStockEntries(ctx, limit)
}

// GetSummary returns the aggregate counters.
func (s *Service) GetSummary(ctx context.Context) (Summary, error) {
	return s.repo.GetSummary(ctx)
}

// reserveStock is the only stock-decrementing path. The conditional update
// makes the check-and-write one atomic statement; zero rows affected on an
// existing product means insufficiency.
func (s *Service) reserveStock(ctx context.Context, tx TxRepository, productID, qty int64) error {
	ok, err := tx.DecrementStock(ctx, productID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientStock
	}
	return nil
}

// releaseStock reverses a reservation. It takes the order's item list rather
// than a bare quantity so callers cannot release amounts that were never
// reserved.
func (s *Service) releaseStock(ctx context.Context, tx TxRepository, items []OrderItem) error {
	for _, item := range items {
		if err := tx.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// receiveStock credits stock as part of a shipment receipt or manual entry.
// Callers pair it with a StockEntry and SupplierPayment in the same
// transaction.
func (s *Service) receiveStock(ctx context.Context, tx TxRepository, productID, qty int64) error {
	return tx.IncrementStock(ctx, productID, qty)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
