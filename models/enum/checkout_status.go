package enum

// CheckoutStatus tracks a checkout attempt on this client.
type CheckoutStatus string

const (
	CheckoutStatusAwaitingPayment CheckoutStatus = "awaiting_payment" // payment form bound to a client secret
	CheckoutStatusPaid            CheckoutStatus = "paid"
	CheckoutStatusFailed          CheckoutStatus = "failed"
	CheckoutStatusCompleted       CheckoutStatus = "completed" // cart cleared after payment
)
