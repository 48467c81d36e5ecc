// Package initializer builds the process-wide dependencies from
// configuration: the logger, the database connection, the quote cache and
// the unit of work.
package initializer

import (
	"fmt"
	"log/slog"

	"github.com/amirasaad/ledger/infra"
	"github.com/amirasaad/ledger/infra/cache"
	infra_repository "github.com/amirasaad/ledger/infra/repository"
	"github.com/amirasaad/ledger/pkg/app"
	pkgcache "github.com/amirasaad/ledger/pkg/cache"
	"github.com/amirasaad/ledger/pkg/config"
)

// InitializeDependencies opens the database and wires the unit of work and
// logger the services run on.
func InitializeDependencies(cfg *config.App) (deps *app.Deps, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("initialize: nil config")
	}
	logger := setupLogger(cfg.Log)

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return nil, err
	}
	logger.Info("Database ready", "env", cfg.Env)

	quotes, err := newQuoteCache(cfg.Cache, logger)
	if err != nil {
		logger.Error("Failed to initialize quote cache", "error", err)
		return nil, err
	}

	return &app.Deps{
		Uow:    infra_repository.NewUoW(db),
		Quotes: quotes,
		Logger: logger,
	}, nil
}

func newQuoteCache(cfg *config.Cache, logger *slog.Logger) (pkgcache.QuoteCache, error) {
	if cfg == nil || cfg.TTL <= 0 {
		logger.Info("Quote cache disabled")
		return nil, nil
	}
	if cfg.RedisURL == "" {
		logger.Info("Using in-memory quote cache", "ttl", cfg.TTL)
		return cache.NewMemoryCache(cfg.TTL), nil
	}
	c, err := cache.NewRedisCache(cfg.RedisURL, cfg.Prefix, cfg.TTL, logger)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	logger.Info("Using Redis quote cache", "ttl", cfg.TTL, "prefix", cfg.Prefix)
	return c, nil
}

// InitializeApp builds the dependencies and every service on top of them.
func InitializeApp(cfg *config.App) (*app.App, error) {
	deps, err := InitializeDependencies(cfg)
	if err != nil {
		return nil, err
	}
	return app.New(deps, cfg), nil
}
