package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStore is the persistence surface of the order ledger.
// *store.Store satisfies it. PlaceOrder and CancelOrder are each a
// single atomic transaction; TransitionOrderStatus is conditional on
// the current status.
type OrderStore interface {
	PlaceOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error
	CancelOrder(ctx context.Context, orderID string) (*models.Order, error)
	TransitionOrderStatus(ctx context.Context, orderID, from, to string) (*models.Order, error)
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error)
	GetOrdersByVendor(ctx context.Context, vendorID string, page, perPage int) ([]models.Order, int, error)
	GetOrdersByStatus(ctx context.Context, status string) ([]models.Order, error)
	ListOrders(ctx context.Context, page, perPage int) ([]models.Order, int, error)
}

// OrderService places, cancels and advances orders. Stock bookkeeping
// lives entirely in the store transactions; this layer adds
// validation, idempotency, events and metrics.
type OrderService struct {
	store     OrderStore
	redis     *redisclient.Client // optional
	publisher *broker.EventPublisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service. redis and publisher may
// be nil.
func NewOrderService(store OrderStore, redis *redisclient.Client, publisher *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:     store,
		redis:     redis,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	UserID         string             `json:"user_id" binding:"required"`
	VendorID       string             `json:"vendor_id" binding:"required"`
	Address        string             `json:"address" binding:"required"`
	Phone          string             `json:"phone" binding:"required"`
	Items          []OrderItemRequest `json:"items" binding:"required,min=1"`
	IdempotencyKey string             `json:"idempotency_key,omitempty"`
}

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,min=1"`
	Color     *string `json:"color,omitempty"`
	Size      *string `json:"size,omitempty"`
}

// CreateOrder validates the request and places the order. Stock is
// moved from stock to sold per line item and the order materialized in
// one transaction; nothing is left applied when any line item fails.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: order needs at least one item", models.ErrValidation)
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be positive for product %s", models.ErrValidation, item.ProductID)
		}
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Info("Duplicate order request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("order_id", existing.ID))
		return existing, nil
	}

	order := &models.Order{
		ID:             uuid.New().String(),
		UserID:         req.UserID,
		VendorID:       req.VendorID,
		Address:        req.Address,
		Phone:          req.Phone,
		Status:         models.OrderStatusPending,
		IdempotencyKey: req.IdempotencyKey,
	}

	items := make([]models.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = models.OrderItem{
			ID:        uuid.New().String(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Color:     item.Color,
			Size:      item.Size,
		}
	}

	start := time.Now()
	err = s.store.PlaceOrder(ctx, order, items)
	util.OrderPlacementLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.Int64("total_price", order.TotalPrice))

	if s.redis != nil {
		if err := s.redis.SetIdempotencyKey(ctx, req.IdempotencyKey, order.ID, 24*time.Hour); err != nil {
			s.logger.Warn("Failed to record idempotency key", zap.Error(err))
		}
	}

	if s.publisher != nil {
		event := &models.OrderCreatedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderCreated,
				Timestamp: time.Now(),
			},
			OrderID:    order.ID,
			UserID:     order.UserID,
			VendorID:   order.VendorID,
			TotalPrice: order.TotalPrice,
			Items:      itemData(order.Items),
		}
		if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
		}
	}

	return order, nil
}

// CancelOrder reverses every line item of the order and marks it
// CANCELLED. The reversal and the status change commit together, so a
// failed or interrupted cancel can be retried and converges to the
// same final state. Cancelling twice fails with AlreadyCancelled.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	order, err := s.store.CancelOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled", zap.String("order_id", orderID))

	if s.publisher != nil {
		event := &models.OrderCancelledEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderCancelled,
				Timestamp: time.Now(),
			},
			OrderID: order.ID,
			UserID:  order.UserID,
			Items:   itemData(order.Items),
		}
		if err := s.publisher.PublishOrderCancelled(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
		}
	}

	return order, nil
}

// UpdateOrderStatus moves an order to a new status, enforcing the
// transition table. A move to CANCELLED is routed through CancelOrder
// so stock is restored. DELIVERED stamps delivered_at and paid_at.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID, newStatus string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	if !models.ValidOrderStatus(newStatus) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidOrderStatus, newStatus)
	}

	if newStatus == models.OrderStatusCancelled {
		return s.CancelOrder(ctx, orderID)
	}

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !models.CanTransitionOrder(order.Status, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, newStatus)
	}

	updated, err := s.store.TransitionOrderStatus(ctx, orderID, order.Status, newStatus)
	if err != nil {
		return nil, err
	}

	util.OrderStatusTransitionsTotal.WithLabelValues(order.Status, newStatus).Inc()
	s.logger.Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", newStatus))

	if s.publisher != nil {
		event := &models.OrderStatusChangedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderStatusChanged,
				Timestamp: time.Now(),
			},
			OrderID: orderID,
			From:    order.Status,
			To:      newStatus,
		}
		if err := s.publisher.PublishOrderStatusChanged(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
		}
	}

	return updated, nil
}

// GetOrder retrieves an order with its items.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.GetOrderByID(ctx, orderID)
}

// GetOrdersByUser retrieves all orders placed by a user.
func (s *OrderService) GetOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.GetOrdersByUserID(ctx, userID)
}

// GetVendorOrders retrieves a page of a vendor's orders.
func (s *OrderService) GetVendorOrders(ctx context.Context, vendorID string, page, perPage int) ([]models.Order, *models.Pagination, error) {
	orders, total, err := s.store.GetOrdersByVendor(ctx, vendorID, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	return orders, paginate(total, page, perPage), nil
}

// GetOrdersByStatus retrieves all orders with the given status.
func (s *OrderService) GetOrdersByStatus(ctx context.Context, status string) ([]models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidOrderStatus, status)
	}
	return s.store.GetOrdersByStatus(ctx, status)
}

// ListOrders retrieves a page of all orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, page, perPage int) ([]models.Order, *models.Pagination, error) {
	orders, total, err := s.store.ListOrders(ctx, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	return orders, paginate(total, page, perPage), nil
}

func paginate(total, page, perPage int) *models.Pagination {
	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	return &models.Pagination{
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
}

func itemData(items []models.OrderItem) []models.OrderItemData {
	data := make([]models.OrderItemData, len(items))
	for i, item := range items {
		data[i] = models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}
	return data
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, models.ErrProductNotFound):
		return "product_not_found"
	default:
		return "db_error"
	}
}
