package order

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/storefront/api"
	"goflare.io/storefront/models"
)

var _ Repository = (*repository)(nil)

type Repository interface {
	List(ctx context.Context) ([]*models.Order, error)
	Get(ctx context.Context, id int64) (*models.Order, error)
	PaymentStatus(ctx context.Context, id int64) (*models.PaymentStatusReport, error)
	Cancel(ctx context.Context, id int64) error
}

type repository struct {
	client *api.Client
	logger *zap.Logger
}

func NewRepository(client *api.Client, logger *zap.Logger) Repository {
	return &repository{
		client: client,
		logger: logger,
	}
}

func (r *repository) List(ctx context.Context) ([]*models.Order, error) {
	orders, err := r.client.ListOrders(ctx)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*models.Order, error) {
	order, err := r.client.GetOrder(ctx, id)
	if err != nil {
		r.logger.Error("Failed to get order", zap.Int64("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return order, nil
}

func (r *repository) PaymentStatus(ctx context.Context, id int64) (*models.PaymentStatusReport, error) {
	report, err := r.client.GetPaymentStatus(ctx, id)
	if err != nil {
		r.logger.Error("Failed to get payment status", zap.Int64("order_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get payment status of order %d: %w", id, err)
	}
	return report, nil
}

func (r *repository) Cancel(ctx context.Context, id int64) error {
	if err := r.client.CancelOrder(ctx, id); err != nil {
		r.logger.Error("Failed to cancel order", zap.Int64("order_id", id), zap.Error(err))
		return fmt.Errorf("failed to cancel order %d: %w", id, err)
	}
	return nil
}
