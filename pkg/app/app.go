// Package app wires the ledger services together.
package app

import (
	"log/slog"

	"github.com/amirasaad/ledger/pkg/cache"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/service/account"
	"github.com/amirasaad/ledger/pkg/service/balance"
	"github.com/amirasaad/ledger/pkg/service/credit"
	"github.com/amirasaad/ledger/pkg/service/currency"
	"github.com/amirasaad/ledger/pkg/service/holder"
	"github.com/amirasaad/ledger/pkg/service/maintenance"
	"github.com/amirasaad/ledger/pkg/service/movement"
)

// Deps contains the infrastructure the services are built on.
type Deps struct {
	Uow    repository.UnitOfWork
	Quotes cache.QuoteCache // optional
	Logger *slog.Logger
}

type App struct {
	Deps               *Deps
	Config             *config.App
	Engine             *balance.Engine
	CurrencyService    *currency.Service
	CreditService      *credit.Service
	MovementService    *movement.Service
	AccountService     *account.Service
	HolderService      *holder.Service
	MaintenanceService *maintenance.Service
}

// New builds every service over deps. The movement service posts on behalf
// of the account and credit services.
func New(deps *Deps, cfg *config.App) *App {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := money.EUR
	chunk := 1
	if cfg != nil && cfg.Ledger != nil {
		base = cfg.BaseCurrency()
		chunk = cfg.Ledger.RecomputeChunk
	}

	app := &App{Deps: deps, Config: cfg}
	app.Engine = balance.NewEngine(logger)
	var opts []currency.Option
	if deps.Quotes != nil {
		opts = append(opts, currency.WithCache(deps.Quotes))
	}
	app.CurrencyService = currency.New(deps.Uow, base, logger, opts...)
	app.CreditService = credit.New(deps.Uow, app.CurrencyService, app.Engine, logger)
	app.MovementService = movement.New(deps.Uow, app.CurrencyService, app.Engine, app.CreditService, logger)
	app.AccountService = account.New(deps.Uow, app.Engine, app.CurrencyService, app.MovementService, logger)
	app.HolderService = holder.New(deps.Uow, app.Engine, app.CurrencyService, app.CreditService, logger)
	app.MaintenanceService = maintenance.New(deps.Uow, app.Engine, chunk, logger)
	return app
}
