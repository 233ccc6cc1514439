package models

import "time"

// Event types
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderCancelled     = "ORDER_CANCELLED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeCategoryDeleted    = "CATEGORY_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published after an order commits
type OrderCreatedEvent struct {
	BaseEvent
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	VendorID   string          `json:"vendor_id"`
	TotalPrice int64           `json:"total_price"`
	Items      []OrderItemData `json:"items"`
}

// OrderCancelledEvent published after stock has been restored
type OrderCancelledEvent struct {
	BaseEvent
	OrderID string          `json:"order_id"`
	UserID  string          `json:"user_id"`
	Items   []OrderItemData `json:"items"`
}

// OrderStatusChangedEvent published on every status transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// CategoryDeletedEvent published after a subtree delete completes.
// DeletedIDs lists every removed category, root of the subtree last.
type CategoryDeletedEvent struct {
	BaseEvent
	CategoryID string   `json:"category_id"`
	DeletedIDs []string `json:"deleted_ids"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}
