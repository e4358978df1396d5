package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"goflare.io/storefront/cart"
	"goflare.io/storefront/models"
	"goflare.io/storefront/models/enum"
)

type fakeBackend struct {
	orderErr  error
	intentErr error
	secret    string

	created []*models.CreateOrderRequest
	keys    []string
}

func (b *fakeBackend) CreateOrder(_ context.Context, in *models.CreateOrderRequest, key string) (*models.Order, error) {
	b.created = append(b.created, in)
	b.keys = append(b.keys, key)
	if b.orderErr != nil {
		return nil, b.orderErr
	}
	return &models.Order{ID: 42, OrderStatus: enum.OrderStatusPending, PaymentStatus: enum.PaymentStatusPending, TotalPrice: in.TotalPrice}, nil
}

func (b *fakeBackend) CreatePaymentIntent(context.Context, int64) (*models.PaymentIntent, error) {
	if b.intentErr != nil {
		return nil, b.intentErr
	}
	return &models.PaymentIntent{ClientSecret: b.secret}, nil
}

type fakeForm struct {
	status stripe.PaymentIntentStatus
	err    error
}

func (f fakeForm) Confirm(_ context.Context, secret, _ string) (*stripe.PaymentIntent, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, _ := PaymentIntentID(secret)
	return &stripe.PaymentIntent{ID: id, Status: f.status}, nil
}

func navRecorder() (Navigator, chan string) {
	ch := make(chan string, 4)
	return NavigatorFunc(func(path string) { ch <- path }), ch
}

func filledCart() *cart.Store {
	c := cart.NewStore()
	c.Add(&models.Product{ID: 1, Name: "Bolt", PricePerUnit: decimal.NewFromInt(100)}, 2)
	c.Add(&models.Product{ID: 2, Name: "Nut", PricePerUnit: decimal.NewFromInt(50)}, 1)
	return c
}

func TestBeginEmptyCart(t *testing.T) {
	nav, _ := navRecorder()
	o := NewOrchestrator(cart.NewStore(), &fakeBackend{}, fakeForm{}, nav, 0, zap.NewNop())
	_, err := o.Begin(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestBegin(t *testing.T) {
	backend := &fakeBackend{secret: "pi_123_secret_abc"}
	nav, _ := navRecorder()
	o := NewOrchestrator(filledCart(), backend, fakeForm{}, nav, 0, zap.NewNop())

	session, err := o.Begin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), session.Order.ID)
	assert.Equal(t, "pi_123", session.PaymentIntentID)

	require.Len(t, backend.created, 1)
	assert.True(t, decimal.NewFromInt(250).Equal(backend.created[0].TotalPrice))
	assert.Len(t, backend.created[0].Items, 2)
	assert.NotEmpty(t, backend.keys[0])

	sum := decimal.Zero
	for _, item := range backend.created[0].Items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(item.Quantity)))
	}
	assert.True(t, sum.Equal(backend.created[0].TotalPrice))

	status, ok := o.Status("pi_123")
	require.True(t, ok)
	assert.Equal(t, enum.CheckoutStatusAwaitingPayment, status)
}

func TestBeginTotalMatchesItemsUnderConcurrentEdits(t *testing.T) {
	backend := &fakeBackend{secret: "pi_1_secret_x"}
	nav, _ := navRecorder()
	c := filledCart()
	o := NewOrchestrator(c, backend, fakeForm{}, nav, time.Millisecond, zap.NewNop())
	defer o.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			c.Add(&models.Product{ID: 3, PricePerUnit: decimal.NewFromInt(7)}, 1)
			c.Remove(3)
		}
	}()
	for i := 0; i < 50; i++ {
		_, err := o.Begin(context.Background())
		require.NoError(t, err)
	}
	<-done

	for _, req := range backend.created {
		sum := decimal.Zero
		for _, item := range req.Items {
			sum = sum.Add(item.Price.Mul(decimal.NewFromInt(item.Quantity)))
		}
		assert.True(t, sum.Equal(req.TotalPrice), "total %s, items sum %s", req.TotalPrice, sum)
	}
}

func TestBeginOrderFailure(t *testing.T) {
	boom := errors.New("boom")
	nav, _ := navRecorder()
	o := NewOrchestrator(filledCart(), &fakeBackend{orderErr: boom}, fakeForm{}, nav, 0, zap.NewNop())

	_, err := o.Begin(context.Background())
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageCreateOrder, stageErr.Stage)
	assert.Nil(t, stageErr.Order)
	assert.ErrorIs(t, err, boom)
}

func TestBeginIntentFailureLeavesOrderPending(t *testing.T) {
	c := filledCart()
	nav, _ := navRecorder()
	o := NewOrchestrator(c, &fakeBackend{intentErr: errors.New("stripe down")}, fakeForm{}, nav, 0, zap.NewNop())

	_, err := o.Begin(context.Background())
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StagePaymentIntent, stageErr.Stage)
	require.NotNil(t, stageErr.Order)
	assert.True(t, stageErr.Order.CanCancel())
	assert.True(t, stageErr.Order.CanRetryPayment())
	assert.Equal(t, int64(3), c.Count())
}

func TestBeginMalformedSecret(t *testing.T) {
	nav, _ := navRecorder()
	o := NewOrchestrator(filledCart(), &fakeBackend{secret: "garbage"}, fakeForm{}, nav, 0, zap.NewNop())

	_, err := o.Begin(context.Background())
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageBindForm, stageErr.Stage)
}

func TestPayCompletes(t *testing.T) {
	c := filledCart()
	nav, navigated := navRecorder()
	o := NewOrchestrator(c, &fakeBackend{secret: "pi_9_secret_x"}, fakeForm{status: stripe.PaymentIntentStatusSucceeded}, nav, 10*time.Millisecond, zap.NewNop())
	defer o.Close()

	session, err := o.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, o.Pay(context.Background(), session, "pm_card_visa"))

	assert.Zero(t, c.Count())
	select {
	case path := <-navigated:
		assert.Equal(t, "/orders", path)
	case <-time.After(time.Second):
		t.Fatal("navigation did not happen")
	}

	status, _ := o.Status("pi_9")
	assert.Equal(t, enum.CheckoutStatusCompleted, status)
}

func TestPayDeclined(t *testing.T) {
	c := filledCart()
	nav, _ := navRecorder()
	o := NewOrchestrator(c, &fakeBackend{secret: "pi_9_secret_x"}, fakeForm{status: stripe.PaymentIntentStatusRequiresPaymentMethod}, nav, 0, zap.NewNop())

	session, err := o.Begin(context.Background())
	require.NoError(t, err)
	err = o.Pay(context.Background(), session, "pm_card_chargeDeclined")
	assert.ErrorIs(t, err, ErrNotSucceeded)
	assert.Equal(t, int64(3), c.Count())

	status, _ := o.Status("pi_9")
	assert.Equal(t, enum.CheckoutStatusFailed, status)
}

func TestCompleteIsIdempotent(t *testing.T) {
	c := filledCart()
	nav, navigated := navRecorder()
	o := NewOrchestrator(c, &fakeBackend{secret: "pi_5_secret_x"}, fakeForm{}, nav, time.Millisecond, zap.NewNop())
	defer o.Close()

	_, err := o.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, o.Complete(context.Background(), "pi_5"))

	c.Add(&models.Product{ID: 3, PricePerUnit: decimal.NewFromInt(1)}, 1)
	require.NoError(t, o.Complete(context.Background(), "pi_5"))
	assert.Equal(t, int64(1), c.Count())

	<-navigated
	select {
	case <-navigated:
		t.Fatal("navigated twice")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestZeroDelayUsesDefault(t *testing.T) {
	nav, _ := navRecorder()
	o := NewOrchestrator(cart.NewStore(), &fakeBackend{}, fakeForm{}, nav, 0, zap.NewNop())
	assert.Equal(t, DefaultDelay, o.delay)

	o = NewOrchestrator(cart.NewStore(), &fakeBackend{}, fakeForm{}, nav, 5*time.Millisecond, zap.NewNop())
	assert.Equal(t, 5*time.Millisecond, o.delay)
}

func TestCompleteUnknown(t *testing.T) {
	nav, _ := navRecorder()
	o := NewOrchestrator(filledCart(), &fakeBackend{}, fakeForm{}, nav, 0, zap.NewNop())
	assert.ErrorIs(t, o.Complete(context.Background(), "pi_missing"), ErrUnknownCheckout)
}

func TestCompleteNavigationDroppedOnCancel(t *testing.T) {
	nav, navigated := navRecorder()
	o := NewOrchestrator(filledCart(), &fakeBackend{secret: "pi_7_secret_x"}, fakeForm{}, nav, time.Hour, zap.NewNop())

	_, err := o.Begin(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, o.Complete(ctx, "pi_7"))
	cancel()
	o.Close()

	select {
	case <-navigated:
		t.Fatal("navigation should have been dropped")
	default:
	}
}

func TestResume(t *testing.T) {
	nav, _ := navRecorder()
	o := NewOrchestrator(cart.NewStore(), &fakeBackend{secret: "pi_8_secret_x"}, fakeForm{}, nav, 0, zap.NewNop())

	session, err := o.Resume(context.Background(), &models.Order{ID: 42})
	require.NoError(t, err)
	assert.Equal(t, "pi_8", session.PaymentIntentID)
}

func TestPaymentIntentID(t *testing.T) {
	id, err := PaymentIntentID("pi_3Mtw_secret_YrKJ")
	require.NoError(t, err)
	assert.Equal(t, "pi_3Mtw", id)

	_, err = PaymentIntentID("seti_1_secret_2")
	assert.Error(t, err)
}
