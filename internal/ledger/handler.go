package ledger

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sokoline/sokoline/internal/observability"
	"github.com/sokoline/sokoline/internal/platform/httpx"
	"github.com/sokoline/sokoline/internal/rbac"
	"github.com/sokoline/sokoline/internal/shared"
	"github.com/sokoline/sokoline/jobs"
)

// SupplierResolver maps a supplier portal login to its supplier record ID.
type SupplierResolver interface {
	ResolveSupplier(ctx context.Context, userID int64) (int64, error)
}

// Handler manages ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validate  *validator.Validate
	rbac      rbac.Middleware
	metrics   *observability.Metrics
	jobs      *jobs.Client
	suppliers SupplierResolver
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, validate *validator.Validate, rbac rbac.Middleware, metrics *observability.Metrics, jobsClient *jobs.Client, suppliers SupplierResolver) *Handler {
	return &Handler{logger: logger, service: service, validate: validate, rbac: rbac, metrics: metrics, jobs: jobsClient, suppliers: suppliers}
}

// MountRoutes registers ledger routes grouped by role.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleCustomer, rbac.RoleWholesale, rbac.RoleEmployee, rbac.RoleAdmin))
		r.Post("/checkout", h.checkout)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleWholesale))
		r.Post("/wholesale/checkout", h.wholesaleCheckout)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleSupplier, rbac.RoleAdmin))
		r.Post("/shipments", h.createShipment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleSupplier, rbac.RoleEmployee, rbac.RoleAdmin))
		r.Get("/shipments", h.listShipments)
		r.Get("/shipments/{id}", h.getShipment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleEmployee, rbac.RoleAdmin))
		r.Post("/orders/{id}/status", h.updateOrderStatus)
		r.Post("/shipments/{id}/receive", h.receiveShipment)
		r.Post("/stock-entries", h.createStockEntry)
		r.Get("/stock-entries", h.listStockEntries)
		r.Get("/payments", h.listPayments)
		r.Post("/payments/{id}/pay", h.settlePayment)
		r.Get("/summary", h.summary)
		r.Post("/stock-scan", h.triggerStockScan)
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	h.placeOrder(w, r, ChannelRetail)
}

func (h *Handler) wholesaleCheckout(w http.ResponseWriter, r *http.Request) {
	h.placeOrder(w, r, ChannelWholesale)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request, channel Channel) {
	var req checkoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines := make([]OrderLineInput, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, OrderLineInput{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	order, err := h.service.CreateOrder(r.Context(), CreateOrderInput{
		UserID:         currentUser(r),
		Channel:        channel,
		DeliveryZone:   req.DeliveryZone,
		DeliveryMethod: req.DeliveryMethod,
		PaymentMethod:  req.PaymentMethod,
		Lines:          lines,
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			h.metrics.CountStockConflict()
		}
		h.logger.Error("checkout", slog.Any("error", err), slog.String("channel", string(channel)))
		h.respondError(w, err)
		return
	}
	h.metrics.CountOrder(string(channel))
	httpx.JSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var req orderStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	order, err := h.service.TransitionOrderStatus(r.Context(), id, OrderStatus(req.Status), currentUser(r))
	if err != nil {
		h.logger.Error("update order status", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	filter := OrderFilter{
		UserID: currentUser(r),
		Status: OrderStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	// Back-office roles see every order; customers only their own.
	if role := currentRole(r); role == rbac.RoleEmployee || role == rbac.RoleAdmin {
		filter.UserID = 0
	}
	orders, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		h.logger.Error("list orders", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": out})
}

func (h *Handler) createShipment(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines := make([]ShipmentLineInput, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, ShipmentLineInput{ProductID: item.ProductID, Quantity: item.Quantity, UnitCost: item.UnitCost})
	}
	supplierID := req.SupplierID
	if currentRole(r) == rbac.RoleSupplier {
		resolved, err := h.resolveSupplier(r)
		if err != nil {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "no active supplier profile for this account")
			return
		}
		supplierID = resolved
	}
	if supplierID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "supplier_id required")
		return
	}
	shipment, err := h.service.CreateShipment(r.Context(), CreateShipmentInput{
		SupplierID: supplierID,
		Lines:      lines,
	})
	if err != nil {
		h.logger.Error("create shipment", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toShipmentResponse(shipment))
}

func (h *Handler) receiveShipment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	shipment, err := h.service.ReceiveShipment(r.Context(), id, currentUser(r))
	if err != nil {
		h.logger.Error("receive shipment", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toShipmentResponse(shipment))
}

func (h *Handler) getShipment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	shipment, err := h.service.GetShipment(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toShipmentResponse(shipment))
}

func (h *Handler) listShipments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	var supplierID int64
	if currentRole(r) == rbac.RoleSupplier {
		resolved, err := h.resolveSupplier(r)
		if err != nil {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "no active supplier profile for this account")
			return
		}
		supplierID = resolved
	}
	shipments, err := h.service.ListShipments(r.Context(), supplierID, limit)
	if err != nil {
		h.logger.Error("list shipments", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	out := make([]shipmentResponse, 0, len(shipments))
	for _, s := range shipments {
		out = append(out, toShipmentResponse(s))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shipments": out})
}

func (h *Handler) createStockEntry(w http.ResponseWriter, r *http.Request) {
	var req stockEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.RecordStockEntry(r.Context(), StockEntryInput{
		ProductID:  req.ProductID,
		SupplierID: req.SupplierID,
		Quantity:   req.Quantity,
		ReceivedBy: currentUser(r),
	})
	if err != nil {
		h.logger.Error("create stock entry", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"entry":   toStockEntryResponse(result.Entry),
		"payment": toPaymentResponse(result.Payment),
	})
}

func (h *Handler) listStockEntries(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	entries, err := h.service.ListStockEntries(r.Context(), limit)
	if err != nil {
		h.logger.Error("list stock entries", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	out := make([]stockEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toStockEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out})
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	status := PaymentStatus(r.URL.Query().Get("status"))
	payments, err := h.service.ListPayments(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("list payments", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": out})
}

func (h *Handler) settlePayment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	payment, err := h.service.MarkPaymentPaid(r.Context(), id, currentUser(r))
	if err != nil {
		h.logger.Error("settle payment", slog.Any("error", err), slog.Int64("id", id))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetSummary(r.Context())
	if err != nil {
		h.logger.Error("ledger summary", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	byStatus := make(map[string]int64, len(summary.OrdersByStatus))
	for status, count := range summary.OrdersByStatus {
		byStatus[string(status)] = count
	}
	httpx.JSON(w, http.StatusOK, summaryResponse{
		OrdersByStatus:     byStatus,
		PaymentsDue:        summary.PaymentsDue,
		AmountDue:          summary.AmountDue,
		ShipmentsInTransit: summary.ShipmentsInTransit,
	})
}

// triggerStockScan enqueues an immediate low stock scan instead of waiting
// for the nightly cron run.
func (h *Handler) triggerStockScan(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "job queue not configured")
		return
	}
	threshold, _ := strconv.ParseInt(r.URL.Query().Get("threshold"), 10, 64)
	info, err := h.jobs.EnqueueLowStockScan(r.Context(), threshold)
	if err != nil {
		h.logger.Error("enqueue stock scan", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": info.ID, "queue": info.Queue})
}

// respondError maps the ledger error taxonomy to HTTP statuses: validation
// 400, missing resources 404, state conflicts 409, everything else 500.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrShipmentNotFound), errors.Is(err, ErrPaymentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrAlreadyReceived), errors.Is(err, ErrAlreadyPaid):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toOrderResponse(o Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	return orderResponse{
		ID:             o.ID,
		Number:         o.Number,
		Channel:        string(o.Channel),
		Status:         string(o.Status),
		Subtotal:       o.Subtotal,
		DeliveryCost:   o.DeliveryCost,
		TotalAmount:    o.TotalAmount,
		TotalDisplay:   shared.FormatAmount(o.TotalAmount, ""),
		DeliveryZone:   o.DeliveryZone,
		DeliveryMethod: o.DeliveryMethod,
		PaymentMethod:  o.PaymentMethod,
		CreatedAt:      o.CreatedAt,
		Items:          items,
	}
}

func toShipmentResponse(s Shipment) shipmentResponse {
	items := make([]shipmentItemResponse, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, shipmentItemResponse{ProductID: item.ProductID, Quantity: item.Quantity, UnitCost: item.UnitCost})
	}
	return shipmentResponse{
		ID:           s.ID,
		Number:       s.Number,
		SupplierID:   s.SupplierID,
		Status:       string(s.Status),
		TotalValue:   s.TotalValue,
		DispatchedAt: s.DispatchedAt,
		ReceivedAt:   s.ReceivedAt,
		Items:        items,
	}
}

func toStockEntryResponse(e StockEntry) stockEntryResponse {
	return stockEntryResponse{
		ID:         e.ID,
		Source:     string(e.Source),
		ProductID:  e.ProductID,
		ShipmentID: e.ShipmentID,
		SupplierID: e.SupplierID,
		Quantity:   e.Quantity,
		UnitCost:   e.UnitCost,
		CreatedAt:  e.CreatedAt,
	}
}

func toPaymentResponse(p SupplierPayment) paymentResponse {
	return paymentResponse{
		ID:         p.ID,
		SupplierID: p.SupplierID,
		Amount:     p.Amount,
		Status:     string(p.Status),
		PaidAt:     p.PaidAt,
		CreatedAt:  p.CreatedAt,
	}
}

// resolveSupplier falls back to the raw user ID when no resolver is wired.
func (h *Handler) resolveSupplier(r *http.Request) (int64, error) {
	if h.suppliers == nil {
		return currentUser(r), nil
	}
	return h.suppliers.ResolveSupplier(r.Context(), currentUser(r))
}

func currentUser(r *http.Request) int64 {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0
	}
	id, _ := strconv.ParseInt(sess.User(), 10, 64)
	return id
}

func currentRole(r *http.Request) string {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return ""
	}
	return sess.Role()
}
