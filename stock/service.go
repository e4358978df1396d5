// Package stock backs the admin dashboard: product creation and inventory reports.
package stock

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"goflare.io/storefront/models"
)

type Service interface {
	Products(ctx context.Context) ([]*models.Product, error)
	Product(ctx context.Context, id int64) (*models.Product, error)
	CreateProduct(ctx context.Context, form *models.ProductForm) (*models.Product, error)
	LowStock(ctx context.Context) ([]*models.StockLevel, error)
	Summary(ctx context.Context) (*models.InventorySummary, error)
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

func (s *service) Products(ctx context.Context) ([]*models.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *service) Product(ctx context.Context, id int64) (*models.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *service) CreateProduct(ctx context.Context, form *models.ProductForm) (*models.Product, error) {
	if err := validate(form); err != nil {
		return nil, err
	}

	product, err := s.repo.CreateProduct(ctx, form)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	return product, nil
}

// LowStock lists products below their reorder threshold, largest shortfall first.
func (s *service) LowStock(ctx context.Context) ([]*models.StockLevel, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	return lowStock(products), nil
}

func (s *service) Summary(ctx context.Context) (*models.InventorySummary, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	summary := &models.InventorySummary{
		TotalProducts:  len(products),
		InventoryValue: decimal.Zero,
	}
	for _, p := range products {
		if p.NeedsReorder() {
			summary.LowStockCount++
		}
		if p.StockQuantity <= 0 {
			summary.OutOfStock++
		}
		summary.InventoryValue = summary.InventoryValue.Add(p.PricePerUnit.Mul(decimal.NewFromInt(p.StockQuantity)))
	}
	return summary, nil
}

func lowStock(products []*models.Product) []*models.StockLevel {
	levels := make([]*models.StockLevel, 0)
	for _, p := range products {
		if !p.NeedsReorder() {
			continue
		}
		shortfall := p.ReorderThreshold - p.StockQuantity
		levels = append(levels, &models.StockLevel{
			Product:          p,
			Shortfall:        shortfall,
			SuggestedReorder: max(p.ReorderQuantity, shortfall),
		})
	}

	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Shortfall > levels[j].Shortfall
	})
	return levels
}
