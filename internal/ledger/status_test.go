package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	var p TransitionPolicy

	require.True(t, p.CanTransition(OrderStatusPending, OrderStatusConfirmed))
	require.True(t, p.CanTransition(OrderStatusPending, OrderStatusCancelled))
	require.True(t, p.CanTransition(OrderStatusConfirmed, OrderStatusShipped))
	require.True(t, p.CanTransition(OrderStatusConfirmed, OrderStatusCancelled))
	require.True(t, p.CanTransition(OrderStatusShipped, OrderStatusDelivered))

	require.False(t, p.CanTransition(OrderStatusPending, OrderStatusShipped))
	require.False(t, p.CanTransition(OrderStatusPending, OrderStatusDelivered))
	require.False(t, p.CanTransition(OrderStatusShipped, OrderStatusCancelled))
	require.False(t, p.CanTransition(OrderStatusDelivered, OrderStatusCancelled))
	require.False(t, p.CanTransition(OrderStatusCancelled, OrderStatusPending))
	require.False(t, p.CanTransition(OrderStatusDelivered, OrderStatusPending))
}

func TestCanTransitionWithLateCancel(t *testing.T) {
	p := TransitionPolicy{AllowCancelAfterShipment: true}

	require.True(t, p.CanTransition(OrderStatusShipped, OrderStatusCancelled))
	require.True(t, p.CanTransition(OrderStatusShipped, OrderStatusDelivered))
	require.False(t, p.CanTransition(OrderStatusDelivered, OrderStatusCancelled))
}

func TestIsTerminal(t *testing.T) {
	var p TransitionPolicy

	require.True(t, p.IsTerminal(OrderStatusDelivered))
	require.True(t, p.IsTerminal(OrderStatusCancelled))
	require.False(t, p.IsTerminal(OrderStatusPending))
	require.False(t, p.IsTerminal(OrderStatusShipped))
}

func TestValidOrderStatus(t *testing.T) {
	require.True(t, ValidOrderStatus(OrderStatusPending))
	require.True(t, ValidOrderStatus(OrderStatusCancelled))
	require.False(t, ValidOrderStatus("REFUNDED"))
	require.False(t, ValidOrderStatus(""))
}
