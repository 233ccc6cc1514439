package models

import "time"

// Category is a node in the category forest. ParentID is nil for roots.
// Children is assembled by tree traversal and never persisted directly.
type Category struct {
	ID          string     `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description *string    `db:"description" json:"description,omitempty"`
	IconURL     *string    `db:"icon_url" json:"icon_url,omitempty"`
	ParentID    *string    `db:"parent_id" json:"parent_id,omitempty"`
	Children    []Category `db:"-" json:"children,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Product belongs to a vendor and references a category by id.
// Stock and Sold move in lockstep: an order moves quantity from Stock
// to Sold, a cancellation moves it back.
type Product struct {
	ID          string    `db:"id" json:"id"`
	VendorID    string    `db:"vendor_id" json:"vendor_id"`
	CategoryID  string    `db:"category_id" json:"category_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	Price       int64     `db:"price" json:"price"`
	Stock       int       `db:"stock" json:"stock"`
	Sold        int       `db:"sold" json:"sold"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Order is a customer order against a single vendor.
type Order struct {
	ID             string      `db:"id" json:"id"`
	UserID         string      `db:"user_id" json:"user_id"`
	VendorID       string      `db:"vendor_id" json:"vendor_id"`
	Address        string      `db:"address" json:"address"`
	Phone          string      `db:"phone" json:"phone"`
	TotalPrice     int64       `db:"total_price" json:"total_price"`
	Status         string      `db:"status" json:"status"`
	IdempotencyKey string      `db:"idempotency_key" json:"idempotency_key,omitempty"`
	PaidAt         *time.Time  `db:"paid_at" json:"paid_at,omitempty"`
	DeliveredAt    *time.Time  `db:"delivered_at" json:"delivered_at,omitempty"`
	Items          []OrderItem `db:"-" json:"items,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// OrderItem is a single line of an order. UnitPrice is the product
// price captured at order time.
type OrderItem struct {
	ID        string  `db:"id" json:"id"`
	OrderID   string  `db:"order_id" json:"order_id"`
	ProductID string  `db:"product_id" json:"product_id"`
	Quantity  int     `db:"quantity" json:"quantity"`
	UnitPrice int64   `db:"unit_price" json:"unit_price"`
	Color     *string `db:"color" json:"color,omitempty"`
	Size      *string `db:"size" json:"size,omitempty"`
}

// ProcessedEvent records a consumed event id for worker dedup.
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// Pagination describes a page of a larger result set.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}
