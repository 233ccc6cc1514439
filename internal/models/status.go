package models

// Order statuses
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

// orderTransitions is the set of legal status moves. DELIVERED and
// CANCELLED are terminal. CANCELLED is reachable only through the
// cancel flow, which also restores stock.
var orderTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionOrder reports whether an order may move from one status
// to another.
func CanTransitionOrder(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
