package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"goflare.io/storefront/driver"
)

var _ Storage = (*Postgres)(nil)

const createTableSQL = `CREATE TABLE IF NOT EXISTS storefront_storage (
	namespace  TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

const upsertSQL = `INSERT INTO storefront_storage (namespace, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

// Postgres stores session keys in a single table, one row per (namespace, key).
type Postgres struct {
	conn      driver.PostgresPool
	tm        *driver.TransactionManager
	namespace string
	logger    *zap.Logger
}

// NewPostgres makes sure the storage table exists.
func NewPostgres(ctx context.Context, conn driver.PostgresPool, tm *driver.TransactionManager, namespace string, logger *zap.Logger) (*Postgres, error) {
	if _, err := conn.Exec(ctx, createTableSQL); err != nil {
		logger.Error("Failed to create storage table", zap.Error(err))
		return nil, fmt.Errorf("failed to create storage table: %w", err)
	}
	return &Postgres{
		conn:      conn,
		tm:        tm,
		namespace: namespace,
		logger:    logger,
	}, nil
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.conn.QueryRow(ctx,
		`SELECT value FROM storefront_storage WHERE namespace = $1 AND key = $2`,
		p.namespace, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		p.logger.Error("Failed to read storage key", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("postgres get failed: %w", err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return p.tm.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		for _, e := range entries {
			if _, err := tx.Exec(ctx, upsertSQL, p.namespace, e.Key, e.Value); err != nil {
				p.logger.Error("Failed to write storage key", zap.String("key", e.Key), zap.Error(err))
				return fmt.Errorf("postgres set failed: %w", err)
			}
		}
		return nil
	})
}

func (p *Postgres) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return p.tm.ExecuteTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`DELETE FROM storefront_storage WHERE namespace = $1 AND key = ANY($2)`,
			p.namespace, keys,
		)
		if err != nil {
			p.logger.Error("Failed to remove storage keys", zap.Strings("keys", keys), zap.Error(err))
			return fmt.Errorf("postgres delete failed: %w", err)
		}
		return nil
	})
}
