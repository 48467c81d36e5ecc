package config

import (
	"time"
)

type DB struct {
	// Url selects the driver by scheme: postgres:// or postgresql:// for
	// PostgreSQL, sqlite:// or file: for SQLite.
	Url             string        `envconfig:"URL" default:"sqlite://ledger.db"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
	AutoMigrate     bool          `envconfig:"AUTO_MIGRATE" default:"false"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"json"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[ledger]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

// Ledger holds the bookkeeping settings.
type Ledger struct {
	// BaseCurrency is the currency rates are quoted in. It never has rates
	// of its own.
	BaseCurrency string `envconfig:"BASE_CURRENCY" default:"EUR"`
	// RecomputeChunk is how many accounts a recompute rebuilds per
	// transaction.
	RecomputeChunk int `envconfig:"RECOMPUTE_CHUNK" default:"1"`
}

// Cache selects where resolved quotes are cached. An empty RedisURL keeps
// them in process memory; a zero TTL disables caching.
type Cache struct {
	RedisURL string        `envconfig:"REDIS_URL"`
	Prefix   string        `envconfig:"PREFIX" default:"ledger:"`
	TTL      time.Duration `envconfig:"TTL" default:"10m"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Ledger    *Ledger    `envconfig:"LEDGER"`
	Cache     *Cache     `envconfig:"CACHE"`
}
