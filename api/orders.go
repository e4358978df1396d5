package api

import (
	"context"
	"fmt"
	"net/http"

	"goflare.io/storefront/models"
)

// CreateOrder posts a cart snapshot. idempotencyKey is forwarded so a backend that honours
// it can collapse duplicate submissions.
func (c *Client) CreateOrder(ctx context.Context, in *models.CreateOrderRequest, idempotencyKey string) (*models.Order, error) {
	req := request{
		method: http.MethodPost,
		path:   "/accounts/orders/",
		auth:   true,
	}
	if idempotencyKey != "" {
		req.header = http.Header{"Idempotency-Key": []string{idempotencyKey}}
	}

	var out models.Order
	if err := c.doWith(ctx, req, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, orderID int64) (*models.PaymentIntent, error) {
	in := map[string]int64{"order_id": orderID}
	var out models.PaymentIntent
	if err := c.doJSON(ctx, http.MethodPost, "/accounts/create-payment-intent/", in, true, &out); err != nil {
		return nil, err
	}
	if out.ClientSecret == "" {
		return nil, fmt.Errorf("payment intent for order %d has no client secret", orderID)
	}
	return &out, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]*models.Order, error) {
	var out []*models.Order
	if err := c.doJSON(ctx, http.MethodGet, "/accounts/orders/list/", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var out models.Order
	path := fmt.Sprintf("/accounts/orders/%d/", id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPaymentStatus(ctx context.Context, id int64) (*models.PaymentStatusReport, error) {
	var out models.PaymentStatusReport
	path := fmt.Sprintf("/accounts/orders/%d/payment-status/", id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, true, &out); err != nil {
		return nil, err
	}
	if out.OrderID == 0 {
		out.OrderID = id
	}
	return &out, nil
}

func (c *Client) CancelOrder(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/accounts/orders/%d/cancel/", id)
	return c.doJSON(ctx, http.MethodPost, path, nil, true, nil)
}
