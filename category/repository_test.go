package category

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/storefront/api"
)

func categoryServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[{"category_id":1,"category_name":"Fasteners"},{"category_id":2,"category_name":"Tools"}]`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestListCachesInRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	srv, calls := categoryServer(t)
	svc := NewService(NewRepository(api.NewClient(api.Config{BaseURL: srv.URL}, zap.NewNop()), rdb, zap.NewNop()), zap.NewNop())

	first, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	assert.True(t, mr.Exists(cacheKey))
	assert.Equal(t, cacheTTL, mr.TTL(cacheKey))

	mr.FastForward(cacheTTL)
	_, err = svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRefreshBypassesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	srv, calls := categoryServer(t)
	svc := NewService(NewRepository(api.NewClient(api.Config{BaseURL: srv.URL}, zap.NewNop()), rdb, zap.NewNop()), zap.NewNop())

	_, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCacheFailureFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	srv, calls := categoryServer(t)
	svc := NewService(NewRepository(api.NewClient(api.Config{BaseURL: srv.URL}, zap.NewNop()), rdb, zap.NewNop()), zap.NewNop())

	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 2)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetCategoryWithoutCache(t *testing.T) {
	srv, _ := categoryServer(t)
	svc := NewService(NewRepository(api.NewClient(api.Config{BaseURL: srv.URL}, zap.NewNop()), nil, zap.NewNop()), zap.NewNop())

	c, err := svc.GetCategory(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Tools", c.Name)

	c, err = svc.GetCategory(context.Background(), 9)
	require.NoError(t, err)
	assert.Nil(t, c)
}
