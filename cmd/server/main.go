package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/amirasaad/ledger/app"
	"github.com/amirasaad/ledger/infra/initializer"
	"github.com/amirasaad/ledger/pkg/config"
	log "github.com/charmbracelet/log"
)

// @title Ledger API
// @version 1.0.0
// @description Multi-holder personal finance ledger
// @host localhost:3000
// @BasePath /
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	ledger, err := initializer.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	logger := slog.Default()

	fiberApp := app.New(ledger, app.Options{AccessLog: os.Stdout})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Starting server",
		"env", cfg.Env,
		"address", addr,
		"scheme", cfg.Server.Scheme,
		"base_currency", cfg.Ledger.BaseCurrency,
	)
	return fiberApp.Listen(addr)
}
