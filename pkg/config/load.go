package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/amirasaad/ledger/pkg/money"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load reads the first env file found among envFilePath (searched upward
// from the working directory), falls back to ./.env, then fills App from
// the environment.
func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()
	logger.Info("Loading environment variables")

	for _, path := range envFilePath {
		logger.Debug("Looking for environment file", "path", path)
		foundPath, err := findUp(path)
		if err != nil {
			logger.Debug("Environment file not found", "path", path, "error", err)
			continue
		}

		logger.Info("Loading environment from file", "path", foundPath)
		if err := godotenv.Load(foundPath); err != nil {
			logger.Error("Failed to load environment file", "path", foundPath, "error", err)
			continue
		}
		return loadFromEnv()
	}

	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found in current directory")
	}
	return loadFromEnv()
}

func loadFromEnv() (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	slog.Default().Info("App config loaded",
		"env", cfg.Env,
		"db", maskValue(cfg.DB.Url),
		"base_currency", cfg.Ledger.BaseCurrency,
		"recompute_chunk", cfg.Ledger.RecomputeChunk,
		"rate_limit_max_requests", cfg.RateLimit.MaxRequests,
		"rate_limit_window", cfg.RateLimit.Window,
	)
	return &cfg, nil
}

func (c *App) validate() error {
	if _, err := money.ParseCode(c.Ledger.BaseCurrency); err != nil {
		return fmt.Errorf("LEDGER_BASE_CURRENCY: %w", err)
	}
	if c.Ledger.RecomputeChunk < 1 {
		return fmt.Errorf("LEDGER_RECOMPUTE_CHUNK must be at least 1, got %d", c.Ledger.RecomputeChunk)
	}
	return nil
}

// BaseCurrency returns the configured base currency code.
func (c *App) BaseCurrency() money.Code {
	return money.Code(c.Ledger.BaseCurrency)
}

func maskValue(key string) string {
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}

// findUp looks for name in the working directory and each of its parents,
// returning the nearest match. An empty name means .env.
func findUp(name string) (string, error) {
	if name == "" {
		name = ".env"
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s: %w", name, os.ErrNotExist)
		}
		dir = parent
	}
}
