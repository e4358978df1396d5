package models

import (
	"time"

	"github.com/shopspring/decimal"

	"goflare.io/storefront/models/enum"
)

// Order is an order as reported by the backend. The client never owns it.
type Order struct {
	ID            int64              `json:"id"`
	OrderNumber   string             `json:"order_number"`
	OrderDate     time.Time          `json:"order_date"`
	PaymentStatus enum.PaymentStatus `json:"payment_status"`
	OrderStatus   enum.OrderStatus   `json:"order_status"`
	TotalPrice    decimal.Decimal    `json:"total_price"`
	Items         []OrderItem        `json:"items,omitempty"`
}

// OrderItem is a line of an order, priced at order time.
type OrderItem struct {
	ID        int64           `json:"id,omitempty"`
	ProductID int64           `json:"product"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CanCancel reports whether the order can still be cancelled by its owner.
func (o *Order) CanCancel() bool {
	return o.OrderStatus == enum.OrderStatusPending
}

// CanRetryPayment reports whether a new payment intent may be requested.
func (o *Order) CanRetryPayment() bool {
	return o.OrderStatus == enum.OrderStatusPending && o.PaymentStatus != enum.PaymentStatusPaid
}

// CreateOrderRequest is the body sent to the order creation endpoint.
type CreateOrderRequest struct {
	Items      []OrderItem     `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// PaymentIntent carries the payment-setup token returned for an order.
type PaymentIntent struct {
	ClientSecret string `json:"clientSecret"`
}

// PaymentStatusReport is the body of the payment-status endpoint.
type PaymentStatusReport struct {
	OrderID       int64              `json:"order_id,omitempty"`
	PaymentStatus enum.PaymentStatus `json:"payment_status"`
	OrderStatus   enum.OrderStatus   `json:"order_status,omitempty"`
}
