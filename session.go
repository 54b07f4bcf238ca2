package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/tonimelisma/kyc-jibit/internal/config"
	"github.com/tonimelisma/kyc-jibit/pkg/cache"
	"github.com/tonimelisma/kyc-jibit/pkg/jibit"
)

// Session holds the provider and the cache store it was built on. Close
// releases the store.
type Session struct {
	Provider *jibit.Provider
	Store    cache.Store
}

// NewSession opens the configured cache backend and builds a provider on
// it. With requireCredentials the API key pair must be configured; commands
// that only touch the cache pass false.
func NewSession(ctx context.Context, cfg *config.Resolved, requireCredentials bool, logger *slog.Logger) (*Session, error) {
	if requireCredentials {
		if err := cfg.RequireCredentials(); err != nil {
			return nil, err
		}
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: cfg.RequestTimeout}

	p, err := jibit.NewProvider(jibit.Options{
		Endpoint:  cfg.Endpoint,
		APIKey:    cfg.APIKey,
		SecretKey: cfg.SecretKey,
	}, client, store, logger)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	return &Session{Provider: p, Store: store}, nil
}

// Close releases the cache store.
func (s *Session) Close() error {
	return s.Store.Close()
}

// openStore opens the cache backend selected by cache_backend.
func openStore(ctx context.Context, cfg *config.Resolved, logger *slog.Logger) (cache.Store, error) {
	logger.Debug("opening token cache",
		slog.String("backend", cfg.CacheBackend),
		slog.String("path", cfg.CachePath),
	)

	switch cfg.CacheBackend {
	case config.BackendMemory:
		return cache.NewMemory(), nil
	case config.BackendFile:
		return cache.NewFile(cfg.CachePath), nil
	case config.BackendSQLite:
		s, err := cache.NewSQLite(ctx, cfg.CachePath, logger)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite cache: %w", err)
		}

		return s, nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
		})

		return cache.NewRedis(rdb, cfg.RedisPrefix), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}
