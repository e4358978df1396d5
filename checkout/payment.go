package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"go.uber.org/zap"
)

// PaymentForm confirms a payment intent that was set up by the backend.
type PaymentForm interface {
	Confirm(ctx context.Context, clientSecret, paymentMethod string) (*stripe.PaymentIntent, error)
}

var _ PaymentForm = (*StripeForm)(nil)

// StripeForm confirms payment intents the way the browser widget does: with the publishable
// key and the intent's client secret, never with a secret key.
type StripeForm struct {
	client paymentintent.Client
	logger *zap.Logger
}

// NewStripeForm returns a form talking to backend, or to the public Stripe API when backend is nil.
func NewStripeForm(publishableKey string, backend stripe.Backend, logger *zap.Logger) *StripeForm {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	return &StripeForm{
		client: paymentintent.Client{B: backend, Key: publishableKey},
		logger: logger,
	}
}

func (f *StripeForm) Confirm(ctx context.Context, clientSecret, paymentMethod string) (*stripe.PaymentIntent, error) {
	id, err := PaymentIntentID(clientSecret)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(paymentMethod),
	}
	params.Context = ctx
	params.AddExtra("client_secret", clientSecret)

	pi, err := f.client.Confirm(id, params)
	if err != nil {
		f.logger.Error("Failed to confirm payment intent", zap.String("payment_intent_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to confirm payment intent %s: %w", id, err)
	}
	return pi, nil
}

// PaymentIntentID extracts "pi_123" from a client secret of the form "pi_123_secret_abc".
func PaymentIntentID(clientSecret string) (string, error) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || !strings.HasPrefix(id, "pi_") {
		return "", fmt.Errorf("malformed client secret")
	}
	return id, nil
}
