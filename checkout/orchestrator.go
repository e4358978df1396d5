// Package checkout turns the cart into a backend order and drives its payment.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"goflare.io/storefront/cart"
	"goflare.io/storefront/models"
	"goflare.io/storefront/models/enum"
)

const (
	OrdersPath   = "/orders"
	DefaultDelay = 2 * time.Second
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrUnknownCheckout = errors.New("no checkout for payment intent")
	ErrNotSucceeded    = errors.New("payment did not succeed")
)

// Stage names the checkout step that failed.
type Stage string

const (
	StageCreateOrder   Stage = "create_order"
	StagePaymentIntent Stage = "payment_intent"
	StageBindForm      Stage = "bind_form"
)

// StageError reports a failed checkout step. Order is set once the backend has created the
// order, in which case it is left pending and can be cancelled or retried from order history.
type StageError struct {
	Stage Stage
	Order *models.Order
	Err   error
}

func (e *StageError) Error() string {
	if e.Order != nil {
		return fmt.Sprintf("checkout failed at %s (order %d left pending): %v", e.Stage, e.Order.ID, e.Err)
	}
	return fmt.Sprintf("checkout failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Backend is the part of the API client checkout needs.
type Backend interface {
	CreateOrder(ctx context.Context, in *models.CreateOrderRequest, idempotencyKey string) (*models.Order, error)
	CreatePaymentIntent(ctx context.Context, orderID int64) (*models.PaymentIntent, error)
}

// Navigator moves the user to another view.
type Navigator interface {
	Navigate(path string)
}

type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Session is a checkout whose payment form is ready.
type Session struct {
	Order           *models.Order `json:"order"`
	ClientSecret    string        `json:"client_secret"`
	PaymentIntentID string        `json:"payment_intent_id"`
}

type attempt struct {
	session *Session
	status  enum.CheckoutStatus
}

type Orchestrator struct {
	cart    *cart.Store
	backend Backend
	form    PaymentForm
	nav     Navigator
	delay   time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	attempts map[string]*attempt
	done     chan struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewOrchestrator returns an orchestrator that waits delay before leaving a completed checkout.
// A delay of zero or less means DefaultDelay.
func NewOrchestrator(c *cart.Store, backend Backend, form PaymentForm, nav Navigator, delay time.Duration, logger *zap.Logger) *Orchestrator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Orchestrator{
		cart:     c,
		backend:  backend,
		form:     form,
		nav:      nav,
		delay:    delay,
		logger:   logger,
		attempts: make(map[string]*attempt),
		done:     make(chan struct{}),
	}
}

// Begin creates a pending order from the cart and sets up its payment.
func (o *Orchestrator) Begin(ctx context.Context) (*Session, error) {
	items := o.cart.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	// 1. create the order
	req := &models.CreateOrderRequest{
		Items:      make([]models.OrderItem, 0, len(items)),
		TotalPrice: decimal.Zero,
	}
	// total comes from the same snapshot as the items
	for _, item := range items {
		req.Items = append(req.Items, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.PricePerUnit,
		})
		req.TotalPrice = req.TotalPrice.Add(item.Subtotal())
	}

	order, err := o.backend.CreateOrder(ctx, req, uuid.NewString())
	if err != nil {
		o.logger.Error("Failed to create order", zap.Error(err))
		return nil, &StageError{Stage: StageCreateOrder, Err: err}
	}
	if err = ctx.Err(); err != nil {
		return nil, &StageError{Stage: StageCreateOrder, Order: order, Err: err}
	}

	// 2. request the payment intent
	intent, err := o.backend.CreatePaymentIntent(ctx, order.ID)
	if err != nil {
		o.logger.Error("Failed to create payment intent, order left pending",
			zap.Int64("order_id", order.ID), zap.Error(err))
		return nil, &StageError{Stage: StagePaymentIntent, Order: order, Err: err}
	}
	if err = ctx.Err(); err != nil {
		return nil, &StageError{Stage: StagePaymentIntent, Order: order, Err: err}
	}

	// 3. bind the payment form
	piID, err := PaymentIntentID(intent.ClientSecret)
	if err != nil {
		return nil, &StageError{Stage: StageBindForm, Order: order, Err: err}
	}

	session := &Session{Order: order, ClientSecret: intent.ClientSecret, PaymentIntentID: piID}
	o.mu.Lock()
	o.attempts[piID] = &attempt{session: session, status: enum.CheckoutStatusAwaitingPayment}
	o.mu.Unlock()

	o.logger.Info("Checkout awaiting payment",
		zap.Int64("order_id", order.ID), zap.String("payment_intent_id", piID))
	return session, nil
}

// Resume sets up a fresh payment for an order that is still pending, as after a failed Begin.
func (o *Orchestrator) Resume(ctx context.Context, order *models.Order) (*Session, error) {
	intent, err := o.backend.CreatePaymentIntent(ctx, order.ID)
	if err != nil {
		return nil, &StageError{Stage: StagePaymentIntent, Order: order, Err: err}
	}
	piID, err := PaymentIntentID(intent.ClientSecret)
	if err != nil {
		return nil, &StageError{Stage: StageBindForm, Order: order, Err: err}
	}

	session := &Session{Order: order, ClientSecret: intent.ClientSecret, PaymentIntentID: piID}
	o.mu.Lock()
	o.attempts[piID] = &attempt{session: session, status: enum.CheckoutStatusAwaitingPayment}
	o.mu.Unlock()
	return session, nil
}

// Pay confirms the session's payment with paymentMethod and completes the checkout on success.
func (o *Orchestrator) Pay(ctx context.Context, session *Session, paymentMethod string) error {
	pi, err := o.form.Confirm(ctx, session.ClientSecret, paymentMethod)
	if err != nil {
		o.Fail(session.PaymentIntentID, err.Error())
		return err
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		if pi.Status == stripe.PaymentIntentStatusCanceled || pi.Status == stripe.PaymentIntentStatusRequiresPaymentMethod {
			o.Fail(session.PaymentIntentID, string(pi.Status))
		}
		return fmt.Errorf("%w: status %s", ErrNotSucceeded, pi.Status)
	}

	o.setStatus(session.PaymentIntentID, enum.CheckoutStatusPaid)
	return o.Complete(ctx, session.PaymentIntentID)
}

// Complete clears the cart for a paid checkout and, after the display delay, navigates to
// order history. Repeated calls for the same payment intent do nothing. The navigation is
// dropped if ctx is done or the orchestrator is closed first.
func (o *Orchestrator) Complete(ctx context.Context, paymentIntentID string) error {
	o.mu.Lock()
	a, ok := o.attempts[paymentIntentID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w %s", ErrUnknownCheckout, paymentIntentID)
	}
	if a.status == enum.CheckoutStatusCompleted {
		o.mu.Unlock()
		return nil
	}
	a.status = enum.CheckoutStatusCompleted
	closed := o.closed
	if !closed {
		o.wg.Add(1)
	}
	o.mu.Unlock()

	o.cart.Clear()
	o.logger.Info("Checkout completed",
		zap.Int64("order_id", a.session.Order.ID), zap.String("payment_intent_id", paymentIntentID))

	if closed {
		return nil
	}
	go func() {
		defer o.wg.Done()
		timer := time.NewTimer(o.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			o.nav.Navigate(OrdersPath)
		case <-ctx.Done():
		case <-o.done:
		}
	}()
	return nil
}

// Fail marks a checkout failed. The backend order stays pending.
func (o *Orchestrator) Fail(paymentIntentID, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	a, ok := o.attempts[paymentIntentID]
	if !ok || a.status == enum.CheckoutStatusCompleted {
		return
	}
	a.status = enum.CheckoutStatusFailed
	o.logger.Warn("Checkout payment failed",
		zap.Int64("order_id", a.session.Order.ID),
		zap.String("payment_intent_id", paymentIntentID),
		zap.String("reason", reason))
}

// Status reports the state of the checkout bound to paymentIntentID.
func (o *Orchestrator) Status(paymentIntentID string) (enum.CheckoutStatus, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.attempts[paymentIntentID]
	if !ok {
		return "", false
	}
	return a.status, true
}

// Session returns the checkout bound to paymentIntentID.
func (o *Orchestrator) Session(paymentIntentID string) (*Session, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.attempts[paymentIntentID]
	if !ok {
		return nil, false
	}
	return a.session, true
}

// Close drops pending navigations and waits for their goroutines.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.done)
	}
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *Orchestrator) setStatus(paymentIntentID string, status enum.CheckoutStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if a, ok := o.attempts[paymentIntentID]; ok && a.status != enum.CheckoutStatusCompleted {
		a.status = status
	}
}
