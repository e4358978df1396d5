package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	storefront "goflare.io/storefront"
	"goflare.io/storefront/api"
	"goflare.io/storefront/config"
	"goflare.io/storefront/driver"
	"goflare.io/storefront/server"
	"goflare.io/storefront/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := newLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = driver.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	store, closeStore, err := openStorage(ctx, cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := storefront.Options{
		API: api.Config{
			BaseURL:   cfg.APIBaseURL,
			Timeout:   cfg.RequestTimeout,
			RateLimit: cfg.APIRateLimit,
		},
		Storage:        store,
		PublishableKey: cfg.StripePublishableKey,
		RedirectDelay:  cfg.RedirectDelay,
	}
	if redisClient != nil {
		opts.Redis = redisClient
	}
	app := storefront.New(opts, logger)
	defer app.Close()

	if err = app.Session.Hydrate(ctx); err != nil {
		logger.Warn("Session hydration failed; starting signed out", zap.Error(err))
	}

	if cfg.NATSURL != "" {
		nc, err := driver.ConnectNATS(cfg.NATSURL, "storefront", logger)
		if err != nil {
			return err
		}
		defer nc.Drain()

		wp := storefront.NewWorkerPool(ctx, cfg.EventWorker, app, logger)
		defer wp.Shutdown()

		sub, err := app.SubscribeToEvents(nc, wp)
		if err != nil {
			return err
		}
		defer unsubscribe(sub, logger)
		logger.Info("Listening for payment events", zap.String("subject", storefront.EventSubject))
	}

	srv := server.New(app, server.Options{
		AllowedOrigins: cfg.AllowedOrigin,
		ClientRate:     cfg.ClientRate,
	}, logger.Named("http")).HTTPServer(cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err = <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received; shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped cleanly")
	return nil
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStorage(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (storage.Storage, func(), error) {
	noop := func() {}

	switch cfg.Storage {
	case config.StorageMemory:
		return storage.NewMemory(), noop, nil

	case config.StorageRedis:
		return storage.NewRedis(redisClient, cfg.Namespace, logger.Named("storage")), noop, nil

	case config.StoragePostgres:
		db, err := driver.ConnectSQL(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect postgres: %w", err)
		}
		tm := driver.NewTransactionManager(db.Pool, logger)
		s, err := storage.NewPostgres(ctx, db.Pool, tm, cfg.Namespace, logger.Named("storage"))
		if err != nil {
			db.Pool.Close()
			return nil, nil, err
		}
		return s, db.Pool.Close, nil

	default:
		if err := os.MkdirAll(filepath.Dir(cfg.StoragePath), 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		s, err := storage.NewFile(cfg.StoragePath, logger.Named("storage"))
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	}
}

func unsubscribe(sub *nats.Subscription, logger *zap.Logger) {
	if err := sub.Unsubscribe(); err != nil {
		logger.Warn("Failed to unsubscribe from payment events", zap.Error(err))
	}
}
