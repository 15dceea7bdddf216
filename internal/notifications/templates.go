package notifications

import (
	"fmt"

	"github.com/lamnguyen/vestika-backend/pkg/enums"
)

// Template is the title/message pair rendered for an order status change.
type Template struct {
	Title   string
	Message string
}

var orderStatusTemplates = map[enums.OrderStatus]Template{
	enums.OrderStatusPending: {
		Title:   "Order placed",
		Message: "Your order %s has been placed and is waiting for confirmation.",
	},
	enums.OrderStatusProcessing: {
		Title:   "Order confirmed",
		Message: "Your order %s is being prepared.",
	},
	enums.OrderStatusShipped: {
		Title:   "Order shipped",
		Message: "Your order %s is on its way.",
	},
	enums.OrderStatusDelivered: {
		Title:   "Order delivered",
		Message: "Your order %s has been delivered. Enjoy!",
	},
	enums.OrderStatusCancelled: {
		Title:   "Order cancelled",
		Message: "Your order %s has been cancelled.",
	},
}

// OrderTemplate returns the notification template for a status. The second
// return is false for statuses outside the five known lifecycle states, in
// which case callers skip the notification entirely.
func OrderTemplate(status enums.OrderStatus, orderRef string) (Template, bool) {
	tpl, ok := orderStatusTemplates[status]
	if !ok {
		return Template{}, false
	}
	return Template{
		Title:   tpl.Title,
		Message: fmt.Sprintf(tpl.Message, orderRef),
	}, true
}
