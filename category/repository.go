package category

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"goflare.io/storefront/api"
	"goflare.io/storefront/models"
)

const (
	cacheKey = "storefront:categories"
	cacheTTL = 30 * time.Minute
)

var _ Repository = (*repository)(nil)

type Repository interface {
	List(ctx context.Context) ([]*models.Category, error)
	Invalidate(ctx context.Context) error
}

type repository struct {
	client *api.Client
	cache  redis.Cmdable
	logger *zap.Logger
}

// NewRepository reads categories from the API. cache may be nil, in which case every call
// goes to the backend.
func NewRepository(client *api.Client, cache redis.Cmdable, logger *zap.Logger) Repository {
	return &repository{
		client: client,
		cache:  cache,
		logger: logger,
	}
}

func (r *repository) List(ctx context.Context) ([]*models.Category, error) {
	if cached, ok := r.fromCache(ctx); ok {
		return cached, nil
	}

	categories, err := r.client.ListCategories(ctx)
	if err != nil {
		r.logger.Error("Failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	// 更新快取
	if r.cache != nil {
		payload, err := json.Marshal(categories)
		if err == nil {
			err = r.cache.Set(ctx, cacheKey, payload, cacheTTL).Err()
		}
		if err != nil {
			r.logger.Warn("Failed to cache categories", zap.Error(err))
		}
	}

	return categories, nil
}

func (r *repository) Invalidate(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Del(ctx, cacheKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate category cache: %w", err)
	}
	return nil
}

func (r *repository) fromCache(ctx context.Context) ([]*models.Category, bool) {
	if r.cache == nil {
		return nil, false
	}

	payload, err := r.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("Failed to read category cache", zap.Error(err))
		}
		return nil, false
	}

	var categories []*models.Category
	if err = json.Unmarshal(payload, &categories); err != nil {
		r.logger.Warn("Discarding corrupt category cache", zap.Error(err))
		return nil, false
	}
	return categories, true
}
