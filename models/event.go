package models

import (
	"time"

	"github.com/stripe/stripe-go/v79"
)

// Event records a payment event this client has already handled.
type Event struct {
	ID          string           `json:"id"`
	Type        stripe.EventType `json:"type"`
	ProcessedAt time.Time        `json:"processed_at"`
}
