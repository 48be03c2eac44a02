package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by Service. Every
// multi-step mutation runs against one of these inside a single transaction.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (Product, error)
	DecrementStock(ctx context.Context, productID, qty int64) (bool, error)
	IncrementStock(ctx context.Context, productID, qty int64) error

	InsertOrder(ctx context.Context, order Order) (int64, error)
	InsertOrderItems(ctx context.Context, orderID int64, items []OrderItem) error
	GetOrderForUpdate(ctx context.Context, orderID int64) (Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error

	InsertShipment(ctx context.Context, shipment Shipment) (int64, error)
	InsertShipmentItems(ctx context.Context, shipmentID int64, items []ShipmentItem) error
	GetShipmentForUpdate(ctx context.Context, shipmentID int64) (Shipment, error)
	MarkShipmentReceived(ctx context.Context, shipmentID, receivedBy int64) error

	InsertStockEntry(ctx context.Context, entry StockEntry) (int64, error)
	InsertSupplierPayment(ctx context.Context, payment SupplierPayment) (int64, error)
	GetPaymentForUpdate(ctx context.Context, paymentID int64) (SupplierPayment, error)
	MarkPaymentPaid(ctx context.Context, paymentID, processedBy int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	wrapper := &txRepository{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *txRepository) GetProductForUpdate(ctx context.Context, productID int64) (Product, error) {
	var p Product
	err := r.tx.QueryRow(ctx, `SELECT id, name, price, wholesale_price, stock, status FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.Name, &p.Price, &p.WholesalePrice, &p.Stock, &p.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// DecrementStock performs the conditional decrement that makes reservation
// race-free: zero rows affected means the remaining stock cannot cover qty.
func (r *txRepository) DecrementStock(ctx context.Context, productID, qty int64) (bool, error) {
	ct, err := r.tx.Exec(ctx, `UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`, productID, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *txRepository) IncrementStock(ctx context.Context, productID, qty int64) error {
	ct, err := r.tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *txRepository) InsertOrder(ctx context.Context, order Order) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO orders (number, user_id, channel, status, subtotal, delivery_cost, total_amount, delivery_zone, delivery_method, payment_method, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW(),NOW()) RETURNING id`,
		order.Number, order.UserID, string(order.Channel), string(order.Status), order.Subtotal, order.DeliveryCost, order.TotalAmount, order.DeliveryZone, order.DeliveryMethod, order.PaymentMethod).Scan(&id)
	return id, err
}

func (r *txRepository) InsertOrderItems(ctx context.Context, orderID int64, items []OrderItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES ($1,$2,$3,$4)`,
			orderID, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, orderID int64) (Order, error) {
	var o Order
	err := r.tx.QueryRow(ctx, `SELECT id, number, user_id, channel, status, subtotal, delivery_cost, total_amount, delivery_zone, delivery_method, payment_method, created_at, updated_at
FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&o.ID, &o.Number, &o.UserID, &o.Channel, &o.Status, &o.Subtotal, &o.DeliveryCost, &o.TotalAmount, &o.DeliveryZone, &o.DeliveryMethod, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	items, err := scanOrderItems(ctx, r.tx, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

func (r *txRepository) UpdateOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error {
	ct, err := r.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, orderID, string(status))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *txRepository) InsertShipment(ctx context.Context, shipment Shipment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO shipments (number, supplier_id, status, total_value, dispatched_at)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		shipment.Number, shipment.SupplierID, string(shipment.Status), shipment.TotalValue, shipment.DispatchedAt).Scan(&id)
	return id, err
}

func (r *txRepository) InsertShipmentItems(ctx context.Context, shipmentID int64, items []ShipmentItem) error {
	for _, item := range items {
		if _, err := r.tx.Exec(ctx, `INSERT INTO shipment_items (shipment_id, product_id, quantity, unit_cost) VALUES ($1,$2,$3,$4)`,
			shipmentID, item.ProductID, item.Quantity, item.UnitCost); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetShipmentForUpdate(ctx context.Context, shipmentID int64) (Shipment, error) {
	var s Shipment
	err := r.tx.QueryRow(ctx, `SELECT id, number, supplier_id, status, total_value, dispatched_at, received_at, received_by
FROM shipments WHERE id=$1 FOR UPDATE`, shipmentID).
		Scan(&s.ID, &s.Number, &s.SupplierID, &s.Status, &s.TotalValue, &s.DispatchedAt, &s.ReceivedAt, &s.ReceivedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shipment{}, ErrShipmentNotFound
		}
		return Shipment{}, err
	}
	items, err := scanShipmentItems(ctx, r.tx, s.ID)
	if err != nil {
		return Shipment{}, err
	}
	s.Items = items
	return s, nil
}

func (r *txRepository) MarkShipmentReceived(ctx context.Context, shipmentID, receivedBy int64) error {
	ct, err := r.tx.Exec(ctx, `UPDATE shipments SET status=$2, received_at=NOW(), received_by=$3 WHERE id=$1`,
		shipmentID, string(ShipmentStatusReceived), receivedBy)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrShipmentNotFound
	}
	return nil
}

func (r *txRepository) InsertStockEntry(ctx context.Context, entry StockEntry) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_entries (source, product_id, shipment_id, supplier_id, quantity, unit_cost, received_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING id`,
		string(entry.Source), entry.ProductID, entry.ShipmentID, entry.SupplierID, entry.Quantity, entry.UnitCost, entry.ReceivedBy).Scan(&id)
	return id, err
}

func (r *txRepository) InsertSupplierPayment(ctx context.Context, payment SupplierPayment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO supplier_payments (supplier_id, amount, status, stock_entry_id, shipment_id, created_at)
VALUES ($1,$2,$3,$4,$5,NOW()) RETURNING id`,
		payment.SupplierID, payment.Amount, string(payment.Status), payment.StockEntryID, payment.ShipmentID).Scan(&id)
	return id, err
}

func (r *txRepository) GetPaymentForUpdate(ctx context.Context, paymentID int64) (SupplierPayment, error) {
	var p SupplierPayment
	err := r.tx.QueryRow(ctx, `SELECT id, supplier_id, amount, status, stock_entry_id, shipment_id, processed_by, paid_at, created_at
FROM supplier_payments WHERE id=$1 FOR UPDATE`, paymentID).
		Scan(&p.ID, &p.SupplierID, &p.Amount, &p.Status, &p.StockEntryID, &p.ShipmentID, &p.ProcessedBy, &p.PaidAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SupplierPayment{}, ErrPaymentNotFound
		}
		return SupplierPayment{}, err
	}
	return p, nil
}

func (r *txRepository) MarkPaymentPaid(ctx context.Context, paymentID, processedBy int64) error {
	ct, err := r.tx.Exec(ctx, `UPDATE supplier_payments SET status=$2, processed_by=$3, paid_at=NOW() WHERE id=$1`,
		paymentID, string(PaymentStatusPaid), processedBy)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// Read side (outside transactions).

func (r *Repository) GetOrder(ctx context.Context, orderID int64) (Order, error) {
	var o Order
	err := r.pool.QueryRow(ctx, `SELECT id, number, user_id, channel, status, subtotal, delivery_cost, total_amount, delivery_zone, delivery_method, payment_method, created_at, updated_at
FROM orders WHERE id=$1`, orderID).
		Scan(&o.ID, &o.Number, &o.UserID, &o.Channel, &o.Status, &o.Subtotal, &o.DeliveryCost, &o.TotalAmount, &o.DeliveryZone, &o.DeliveryMethod, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	items, err := scanOrderItems(ctx, r.pool, o.ID)
	if err != nil {
		return Order{}, err
	}
	o.Items = items
	return o, nil
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	UserID int64
	Status OrderStatus
	Limit  int
	Offset int
}

func (r *Repository) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, number, user_id, channel, status, subtotal, delivery_cost, total_amount, delivery_zone, delivery_method, payment_method, created_at, updated_at
FROM orders
WHERE ($1 = 0 OR user_id = $1) AND ($2 = '' OR status = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`, filter.UserID, string(filter.Status), limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	orders := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.Number, &o.UserID, &o.Channel, &o.Status, &o.Subtotal, &o.DeliveryCost, &o.TotalAmount, &o.DeliveryZone, &o.DeliveryMethod, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *Repository) GetShipment(ctx context.Context, shipmentID int64) (Shipment, error) {
	var s Shipment
	err := r.pool.QueryRow(ctx, `SELECT id, number, supplier_id, status, total_value, dispatched_at, received_at, received_by
FROM shipments WHERE id=$1`, shipmentID).
		Scan(&s.ID, &s.Number, &s.SupplierID, &s.Status, &s.TotalValue, &s.DispatchedAt, &s.ReceivedAt, &s.ReceivedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shipment{}, ErrShipmentNotFound
		}
		return Shipment{}, err
	}
	items, err := scanShipmentItems(ctx, r.pool, s.ID)
	if err != nil {
		return Shipment{}, err
	}
	s.Items = items
	return s, nil
}

func (r *Repository) ListShipments(ctx context.Context, supplierID int64, limit int) ([]Shipment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, number, supplier_id, status, total_value, dispatched_at, received_at, received_by
FROM shipments
WHERE ($1 = 0 OR supplier_id = $1)
ORDER BY dispatched_at DESC, id DESC
LIMIT $2`, supplierID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	shipments := []Shipment{}
	for rows.Next() {
		var s Shipment
		if err := rows.Scan(&s.ID, &s.Number, &s.SupplierID, &s.Status, &s.TotalValue, &s.DispatchedAt, &s.ReceivedAt, &s.ReceivedBy); err != nil {
			return nil, err
		}
		shipments = append(shipments, s)
	}
	return shipments, rows.Err()
}

func (r *Repository) ListPayments(ctx context.Context, status PaymentStatus, limit int) ([]SupplierPayment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, supplier_id, amount, status, stock_entry_id, shipment_id, processed_by, paid_at, created_at
FROM supplier_payments
WHERE ($1 = '' OR status = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments := []SupplierPayment{}
	for rows.Next() {
		var p SupplierPayment
		if err := rows.Scan(&p.ID, &p.SupplierID, &p.Amount, &p.Status, &p.StockEntryID, &p.ShipmentID, &p.ProcessedBy, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *Repository) ListStockEntries(ctx context.Context, limit int) ([]StockEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, source, product_id, shipment_id, supplier_id, quantity, unit_cost, received_by, created_at
FROM stock_entries
ORDER BY created_at DESC, id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []StockEntry{}
	for rows.Next() {
		var e StockEntry
		if err := rows.Scan(&e.ID, &e.Source, &e.ProductID, &e.ShipmentID, &e.SupplierID, &e.Quantity, &e.UnitCost, &e.ReceivedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetSummary aggregates the back-office counters in one round trip each.
func (r *Repository) GetSummary(ctx context.Context) (Summary, error) {
	summary := Summary{OrdersByStatus: map[OrderStatus]int64{}}
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status OrderStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, err
		}
		summary.OrdersByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(amount),0) FROM supplier_payments WHERE status=$1`, string(PaymentStatusDue)).
		Scan(&summary.PaymentsDue, &summary.AmountDue)
	if err != nil {
		return Summary{}, err
	}
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM shipments WHERE status=$1`, string(ShipmentStatusShipped)).
		Scan(&summary.ShipmentsInTransit)
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanOrderItems(ctx context.Context, q queryer, orderID int64) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, quantity, unit_price FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []OrderItem{}
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanShipmentItems(ctx context.Context, q queryer, shipmentID int64) ([]ShipmentItem, error) {
	rows, err := q.Query(ctx, `SELECT id, shipment_id, product_id, quantity, unit_cost FROM shipment_items WHERE shipment_id=$1 ORDER BY id`, shipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ShipmentItem{}
	for rows.Next() {
		var item ShipmentItem
		if err := rows.Scan(&item.ID, &item.ShipmentID, &item.ProductID, &item.Quantity, &item.UnitCost); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
