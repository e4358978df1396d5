// Package category lists product categories for the catalog and the admin product form.
package category

import (
	"context"

	"go.uber.org/zap"

	"goflare.io/storefront/models"
)

type Service interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	Refresh(ctx context.Context) ([]*models.Category, error)
}

var _ Service = (*service)(nil)

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger,
	}
}

func (s *service) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.repo.List(ctx)
}

// GetCategory returns nil when no category has id.
func (s *service) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

// Refresh drops the cached list and fetches it again.
func (s *service) Refresh(ctx context.Context) ([]*models.Category, error) {
	if err := s.repo.Invalidate(ctx); err != nil {
		s.logger.Warn("Failed to invalidate category cache", zap.Error(err))
	}
	return s.repo.List(ctx)
}
