package orders

import "github.com/lamnguyen/vestika-backend/pkg/enums"

// transitionTable is the explicit order status state machine. Every edge is
// currently permitted, including backwards moves like DELIVERED to PENDING,
// matching how admins use the console today. Tightening a transition is a
// one-line table edit.
var transitionTable = map[enums.OrderStatus]map[enums.OrderStatus]bool{
	enums.OrderStatusPending: {
		enums.OrderStatusPending:    true,
		enums.OrderStatusProcessing: true,
		enums.OrderStatusShipped:    true,
		enums.OrderStatusDelivered:  true,
		enums.OrderStatusCancelled:  true,
	},
	enums.OrderStatusProcessing: {
		enums.OrderStatusPending:    true,
		enums.OrderStatusProcessing: true,
		enums.OrderStatusShipped:    true,
		enums.OrderStatusDelivered:  true,
		enums.OrderStatusCancelled:  true,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusPending:    true,
		enums.OrderStatusProcessing: true,
		enums.OrderStatusShipped:    true,
		enums.OrderStatusDelivered:  true,
		enums.OrderStatusCancelled:  true,
	},
	enums.OrderStatusDelivered: {
		enums.OrderStatusPending:    true,
		enums.OrderStatusProcessing: true,
		enums.OrderStatusShipped:    true,
		enums.OrderStatusDelivered:  true,
		enums.OrderStatusCancelled:  true,
	},
	enums.OrderStatusCancelled: {
		enums.OrderStatusPending:    true,
		enums.OrderStatusProcessing: true,
		enums.OrderStatusShipped:    true,
		enums.OrderStatusDelivered:  true,
		enums.OrderStatusCancelled:  true,
	},
}

// allowedTransition consults the transition table. Statuses outside the table
// never block the update; unknown values still land in the row.
func allowedTransition(from, to enums.OrderStatus) bool {
	targets, ok := transitionTable[from]
	if !ok {
		return true
	}
	allowed, ok := targets[to]
	if !ok {
		return true
	}
	return allowed
}
