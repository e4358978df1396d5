package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedis(client, "tab1", zap.NewNop()), mr
}

func TestRedis(t *testing.T) {
	s, _ := setupTestRedis(t)
	exerciseStorage(t, s)
}

func TestRedis_KeysAreNamespaced(t *testing.T) {
	s, mr := setupTestRedis(t)

	require.NoError(t, s.Set(context.Background(), Entry{Key: KeyAccessToken, Value: "tok"}))

	v, err := mr.Get("storefront:tab1:access_token")
	require.NoError(t, err)
	assert.Equal(t, "tok", v)
	assert.False(t, mr.Exists("access_token"))
}

func TestRedis_ServerDown(t *testing.T) {
	s, mr := setupTestRedis(t)
	mr.Close()

	_, err := s.Get(context.Background(), KeyAccessToken)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
