package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/storefront/driver"
)

// TestPostgres needs a reachable database; set STOREFRONT_TEST_POSTGRES_DSN to run it.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("STOREFRONT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	logger := zap.NewNop()

	db, err := driver.ConnectSQL(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Pool.Close)

	s, err := NewPostgres(ctx, db.Pool, driver.NewTransactionManager(db.Pool, logger), "test-"+uuid.NewString(), logger)
	require.NoError(t, err)

	exerciseStorage(t, s)
}
