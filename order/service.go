// Package order is the order history view: listing, cancelling, and retrying payment.
package order

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/storefront/checkout"
	"goflare.io/storefront/models"
)

var (
	ErrNotCancelable = errors.New("order is no longer pending")
	ErrNotRetryable  = errors.New("order payment cannot be retried")
)

// Resumer sets up a new payment for a pending order.
type Resumer interface {
	Resume(ctx context.Context, order *models.Order) (*checkout.Session, error)
}

type Service interface {
	List(ctx context.Context) ([]*models.Order, error)
	Get(ctx context.Context, id int64) (*models.Order, error)
	PaymentStatus(ctx context.Context, id int64) (*models.PaymentStatusReport, error)
	Cancel(ctx context.Context, id int64) error
	RetryPayment(ctx context.Context, id int64) (*checkout.Session, error)
}

var _ Service = (*service)(nil)

type service struct {
	repo    Repository
	resumer Resumer
	logger  *zap.Logger
}

func NewService(repo Repository, resumer Resumer, logger *zap.Logger) Service {
	return &service{
		repo:    repo,
		resumer: resumer,
		logger:  logger,
	}
}

func (s *service) List(ctx context.Context) ([]*models.Order, error) {
	return s.repo.List(ctx)
}

func (s *service) Get(ctx context.Context, id int64) (*models.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *service) PaymentStatus(ctx context.Context, id int64) (*models.PaymentStatusReport, error) {
	return s.repo.PaymentStatus(ctx, id)
}

// Cancel re-reads the order and refuses unless it is still pending.
func (s *service) Cancel(ctx context.Context, id int64) error {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !order.CanCancel() {
		return fmt.Errorf("%w: order %d is %s", ErrNotCancelable, id, order.OrderStatus)
	}

	if err = s.repo.Cancel(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Order cancelled", zap.Int64("order_id", id))
	return nil
}

func (s *service) RetryPayment(ctx context.Context, id int64) (*checkout.Session, error) {
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.CanRetryPayment() {
		return nil, fmt.Errorf("%w: order %d is %s/%s", ErrNotRetryable, id, order.OrderStatus, order.PaymentStatus)
	}

	session, err := s.resumer.Resume(ctx, order)
	if err != nil {
		s.logger.Error("Failed to retry payment", zap.Int64("order_id", id), zap.Error(err))
		return nil, err
	}
	return session, nil
}
