package ledger

// forwardEdges is the happy-path order state machine. Cancellation is only
// reachable before the order leaves the warehouse.
var forwardEdges = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed: {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:   {OrderStatusDelivered: true},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// TransitionPolicy decides which order status edges are legal. The upstream
// storefront only offers cancellation for PENDING/CONFIRMED orders, but its
// status endpoint historically accepted SHIPPED cancellations too; the flag
// keeps that behaviour available without hard-coding either choice.
type TransitionPolicy struct {
	AllowCancelAfterShipment bool
}

// CanTransition reports whether from→to is a legal edge under the policy.
func (p TransitionPolicy) CanTransition(from, to OrderStatus) bool {
	if forwardEdges[from][to] {
		return true
	}
	if p.AllowCancelAfterShipment && from == OrderStatusShipped && to == OrderStatusCancelled {
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (p TransitionPolicy) IsTerminal(status OrderStatus) bool {
	if len(forwardEdges[status]) > 0 {
		return false
	}
	if p.AllowCancelAfterShipment && status == OrderStatusShipped {
		return false
	}
	return status == OrderStatusDelivered || status == OrderStatusCancelled
}

// ValidOrderStatus reports whether the value is a known status.
func ValidOrderStatus(status OrderStatus) bool {
	switch status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
