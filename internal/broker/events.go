package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	orders  *Producer
	catalog *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(orders, catalog *Producer) *EventPublisher {
	return &EventPublisher{orders: orders, catalog: catalog}
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	util.EventsPublishedTotal.WithLabelValues(event.EventType).Inc()
	return ep.orders.PublishEvent(ctx, fmt.Sprintf("order-%s", event.OrderID), event)
}

// PublishOrderCancelled publishes OrderCancelled event
func (ep *EventPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	util.EventsPublishedTotal.WithLabelValues(event.EventType).Inc()
	return ep.orders.PublishEvent(ctx, fmt.Sprintf("order-%s", event.OrderID), event)
}

// PublishOrderStatusChanged publishes OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	util.EventsPublishedTotal.WithLabelValues(event.EventType).Inc()
	return ep.orders.PublishEvent(ctx, fmt.Sprintf("order-%s", event.OrderID), event)
}

// PublishCategoryDeleted publishes CategoryDeleted event
func (ep *EventPublisher) PublishCategoryDeleted(ctx context.Context, event *models.CategoryDeletedEvent) error {
	util.EventsPublishedTotal.WithLabelValues(event.EventType).Inc()
	return ep.catalog.PublishEvent(ctx, fmt.Sprintf("category-%s", event.CategoryID), event)
}

// EventHandler routes incoming order events to registered callbacks.
type EventHandler struct {
	onOrderCreated   func(context.Context, *models.OrderCreatedEvent) error
	onOrderCancelled func(context.Context, *models.OrderCancelledEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderCreated registers a handler for OrderCreated events
func (eh *EventHandler) OnOrderCreated(handler func(context.Context, *models.OrderCreatedEvent) error) {
	eh.onOrderCreated = handler
}

// OnOrderCancelled registers a handler for OrderCancelled events
func (eh *EventHandler) OnOrderCancelled(handler func(context.Context, *models.OrderCancelledEvent) error) {
	eh.onOrderCancelled = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	util.EventsConsumedTotal.WithLabelValues(baseEvent.EventType).Inc()

	switch baseEvent.EventType {
	case models.EventTypeOrderCreated:
		if eh.onOrderCreated != nil {
			var event models.OrderCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCreated event: %w", err)
			}
			return eh.onOrderCreated(ctx, &event)
		}

	case models.EventTypeOrderCancelled:
		if eh.onOrderCancelled != nil {
			var event models.OrderCancelledEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderCancelled event: %w", err)
			}
			return eh.onOrderCancelled(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
