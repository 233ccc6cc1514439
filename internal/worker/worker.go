package worker

import (
	"context"
	"errors"
	"log"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

// EventLedger records which event ids have already been handled.
// *store.Store satisfies it.
type EventLedger interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// FulfillmentWorker consumes order events and advances freshly created
// orders from PENDING to PROCESSING. Consumption is at-least-once, so
// every event id is checked against the processed-events ledger before
// acting.
type FulfillmentWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	orders       *service.OrderService
	ledger       EventLedger
	logger       *zap.Logger
}

// NewFulfillmentWorker creates a new fulfillment worker
func NewFulfillmentWorker(
	consumer *broker.Consumer,
	orders *service.OrderService,
	ledger EventLedger,
) *FulfillmentWorker {
	w := &FulfillmentWorker{
		consumer: consumer,
		orders:   orders,
		ledger:   ledger,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderCreated(w.handleOrderCreated)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *FulfillmentWorker) Start(ctx context.Context) error {
	log.Println("Starting fulfillment worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *FulfillmentWorker) Stop() error {
	log.Println("Stopping fulfillment worker...")
	return w.consumer.Close()
}

func (w *FulfillmentWorker) handleOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	processed, err := w.ledger.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		w.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	_, err = w.orders.UpdateOrderStatus(ctx, event.OrderID, models.OrderStatusProcessing)
	switch {
	case err == nil:
		w.logger.Info("Order moved to processing", zap.String("order_id", event.OrderID))
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrOrderAlreadyCancelled):
		// The order moved on (or was cancelled) before we got here.
		w.logger.Info("Order no longer pending, skipping",
			zap.String("order_id", event.OrderID),
			zap.Error(err))
	case errors.Is(err, models.ErrOrderNotFound):
		w.logger.Warn("Order from event not found", zap.String("order_id", event.OrderID))
	default:
		return err
	}

	return w.ledger.MarkEventProcessed(ctx, event.EventID, event.EventType)
}
