package stock

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/storefront/api"
	"goflare.io/storefront/models"
)

var _ Repository = (*repository)(nil)

type Repository interface {
	ListProducts(ctx context.Context) ([]*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, form *models.ProductForm) (*models.Product, error)
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

func (r *repository) ListProducts(ctx context.Context) ([]*models.Product, error) {
	products, err := r.client.ListProducts(ctx)
	if err != nil {
		r.logger.Error("Failed to list products", zap.Error(err))
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *repository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	product, err := r.client.GetProduct(ctx, id)
	if err != nil {
		r.logger.Error("Failed to get product", zap.Int64("product_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return product, nil
}

func (r *repository) CreateProduct(ctx context.Context, form *models.ProductForm) (*models.Product, error) {
	product, err := r.client.CreateProduct(ctx, form)
	if err != nil {
		r.logger.Error("Failed to create product", zap.String("name", form.Name), zap.Error(err))
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}
