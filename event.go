package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"goflare.io/storefront/checkout"
	"goflare.io/storefront/models"
)

// EventSubject carries Stripe events relayed by the payment service.
const EventSubject = "payment.service.event.>"

type EventHandler func(context.Context, *stripe.Event) error

type EventManager struct {
	mu       sync.RWMutex
	handlers map[stripe.EventType]EventHandler
	logger   *zap.Logger
}

func NewEventManager(logger *zap.Logger) *EventManager {
	return &EventManager{
		handlers: make(map[stripe.EventType]EventHandler),
		logger:   logger,
	}
}

func (em *EventManager) RegisterHandler(eventType stripe.EventType, handler EventHandler) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.handlers[eventType] = handler
}

func (em *EventManager) GetHandler(eventType stripe.EventType) (EventHandler, bool) {
	em.mu.RLock()
	defer em.mu.RUnlock()
	handler, exists := em.handlers[eventType]
	return handler, exists
}

// SubscribeToEvents feeds every event on EventSubject to wp.
func (em *EventManager) SubscribeToEvents(natsConn *nats.Conn, wp *WorkerPool) (*nats.Subscription, error) {
	sub, err := natsConn.Subscribe(EventSubject, func(msg *nats.Msg) {
		var event stripe.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			em.logger.Error("Failed to unmarshal event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}

		if err := wp.Submit(&event); err != nil {
			em.logger.Warn("Dropped event", zap.String("event_id", event.ID), zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", EventSubject, err)
	}
	return sub, nil
}

// SubscribeToEvents starts delivering payment events from natsConn to the checkout.
func (a *App) SubscribeToEvents(natsConn *nats.Conn, wp *WorkerPool) (*nats.Subscription, error) {
	return a.eventManager.SubscribeToEvents(natsConn, wp)
}

func (a *App) registerEventHandlers() {
	eventHandlers := map[stripe.EventType]EventHandler{
		stripe.EventTypePaymentIntentSucceeded:     a.handlePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed: a.handlePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:      a.handlePaymentIntentCanceled,
	}

	for eventType, handler := range eventHandlers {
		a.eventManager.RegisterHandler(eventType, handler)
	}
}

func (a *App) handlePaymentIntentSucceeded(ctx context.Context, event *stripe.Event) error {
	a.logger.Info("Handling PaymentIntent succeeded event", zap.String("event_id", event.ID))

	paymentIntent, err := decodePaymentIntent(event)
	if err != nil {
		a.logger.Error("Failed to unmarshal PaymentIntent", zap.Error(err))
		return err
	}

	err = a.Checkout.Complete(ctx, paymentIntent.ID)
	if errors.Is(err, checkout.ErrUnknownCheckout) {
		// Started by another client; nothing to clear here.
		a.logger.Debug("Ignoring payment for unknown checkout", zap.String("payment_intent_id", paymentIntent.ID))
		return nil
	}
	return err
}

func (a *App) handlePaymentIntentPaymentFailed(ctx context.Context, event *stripe.Event) error {
	a.logger.Info("Handling PaymentIntent payment failed event", zap.String("event_id", event.ID))

	paymentIntent, err := decodePaymentIntent(event)
	if err != nil {
		a.logger.Error("Failed to unmarshal PaymentIntent", zap.Error(err))
		return err
	}

	reason := "payment failed"
	if paymentIntent.LastPaymentError != nil && paymentIntent.LastPaymentError.Msg != "" {
		reason = paymentIntent.LastPaymentError.Msg
	}
	a.Checkout.Fail(paymentIntent.ID, reason)
	return nil
}

func (a *App) handlePaymentIntentCanceled(ctx context.Context, event *stripe.Event) error {
	a.logger.Info("Handling PaymentIntent canceled event", zap.String("event_id", event.ID))

	paymentIntent, err := decodePaymentIntent(event)
	if err != nil {
		a.logger.Error("Failed to unmarshal PaymentIntent", zap.Error(err))
		return err
	}

	reason := "canceled"
	if paymentIntent.CancellationReason != "" {
		reason = string(paymentIntent.CancellationReason)
	}
	a.Checkout.Fail(paymentIntent.ID, reason)
	return nil
}

// ProcessEvent runs the handler for event at most once per event id. A failed handler
// releases the claim so the next delivery is retried.
func (a *App) ProcessEvent(ctx context.Context, event *stripe.Event) error {
	handler, exists := a.eventManager.GetHandler(event.Type)
	if !exists {
		a.logger.Debug("No handler for event type", zap.String("event_type", string(event.Type)))
		return nil
	}

	claimed, err := a.Events.Claim(ctx, &models.Event{
		ID:          event.ID,
		Type:        event.Type,
		ProcessedAt: time.Now(),
	})
	if err != nil {
		a.logger.Error("Failed to record event", zap.Error(err))
		return err
	}
	if !claimed {
		a.logger.Info("Event already processed", zap.String("event_id", event.ID))
		return nil
	}

	if err = handler(ctx, event); err != nil {
		a.logger.Error("Failed to handle event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		if releaseErr := a.Events.Release(context.WithoutCancel(ctx), event.ID); releaseErr != nil {
			a.logger.Warn("Failed to release event", zap.String("event_id", event.ID), zap.Error(releaseErr))
		}
		return err
	}

	a.logger.Info("Stripe event processed", zap.String("event_id", event.ID))
	return nil
}

func decodePaymentIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	if event.Data == nil {
		return nil, fmt.Errorf("event %s has no data", event.ID)
	}
	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent: %w", err)
	}
	return &paymentIntent, nil
}
