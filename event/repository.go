// Package event remembers which payment events have been handled so redeliveries are ignored.
package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"goflare.io/storefront/models"
)

const (
	keyPrefix = "storefront:event:"
	// Stripe retries deliveries for up to three days.
	retention = 72 * time.Hour
)

type Repository interface {
	// Claim records e as processed. It reports false when e was already claimed.
	Claim(ctx context.Context, e *models.Event) (bool, error)
	// Release forgets e so a later delivery is handled again.
	Release(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
}

var (
	_ Repository = (*redisRepository)(nil)
	_ Repository = (*memoryRepository)(nil)
)

type redisRepository struct {
	client redis.Cmdable
	logger *zap.Logger
}

func NewRedisRepository(client redis.Cmdable, logger *zap.Logger) Repository {
	return &redisRepository{
		client: client,
		logger: logger,
	}
}

func (r *redisRepository) Claim(ctx context.Context, e *models.Event) (bool, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("failed to encode event: %w", err)
	}

	ok, err := r.client.SetNX(ctx, keyPrefix+e.ID, payload, retention).Result()
	if err != nil {
		r.logger.Error("Failed to claim event", zap.String("event_id", e.ID), zap.Error(err))
		return false, fmt.Errorf("failed to claim event %s: %w", e.ID, err)
	}
	return ok, nil
}

func (r *redisRepository) Release(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to release event %s: %w", id, err)
	}
	return nil
}

// GetByID returns nil when the event was never claimed.
func (r *redisRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	payload, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}

	var e models.Event
	if err = json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("failed to decode event %s: %w", id, err)
	}
	return &e, nil
}

type memoryRepository struct {
	mu     sync.Mutex
	events map[string]models.Event
}

// NewMemoryRepository is used when no Redis server is configured. Claims do not survive a restart.
func NewMemoryRepository() Repository {
	return &memoryRepository{events: make(map[string]models.Event)}
}

func (r *memoryRepository) Claim(_ context.Context, e *models.Event) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[e.ID]; ok {
		return false, nil
	}
	r.events[e.ID] = *e
	return true, nil
}

func (r *memoryRepository) Release(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.events, id)
	return nil
}

func (r *memoryRepository) GetByID(_ context.Context, id string) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.events[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}
