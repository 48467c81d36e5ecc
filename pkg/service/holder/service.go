// Package holder provides business logic for holders: the people owning
// accounts, their net worth and what they owe each other.
package holder

import (
	"context"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/credit"
	"github.com/amirasaad/ledger/pkg/domain/exchange"
	"github.com/amirasaad/ledger/pkg/domain/holder"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	balancesvc "github.com/amirasaad/ledger/pkg/service/balance"
	creditsvc "github.com/amirasaad/ledger/pkg/service/credit"
	"github.com/amirasaad/ledger/pkg/service/currency"
	"github.com/google/uuid"
)

// Service provides business logic for holders.
type Service struct {
	uow      repository.UnitOfWork
	engine   *balancesvc.Engine
	currency *currency.Service
	credit   *creditsvc.Service
	logger   *slog.Logger
}

// New creates a new holder service.
func New(
	uow repository.UnitOfWork,
	engine *balancesvc.Engine,
	currencySvc *currency.Service,
	creditSvc *creditsvc.Service,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:      uow,
		engine:   engine,
		currency: currencySvc,
		credit:   creditSvc,
		logger:   logger.With("service", "Holder"),
	}
}

// Create registers a new holder.
func (s *Service) Create(ctx context.Context, in dto.HolderCreate) (h *holder.Holder, err error) {
	if err = dto.Validate(in); err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.HolderRepository()
		if err != nil {
			return err
		}
		if h, err = holder.New(in.Key, in.Name, in.OnboardedOn); err != nil {
			return err
		}
		return repo.Create(ctx, h)
	})
	if err != nil {
		s.logger.Error("failed to create holder", "key", in.Key, "error", err)
		return nil, err
	}
	s.logger.Info("holder created", "holder_id", h.ID, "key", h.Key)
	return h, nil
}

// Get retrieves a holder by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*holder.Holder, error) {
	repo, err := s.uow.HolderRepository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

// GetByKey retrieves a holder by key.
func (s *Service) GetByKey(ctx context.Context, key string) (*holder.Holder, error) {
	repo, err := s.uow.HolderRepository()
	if err != nil {
		return nil, err
	}
	return repo.GetByKey(ctx, key)
}

// List returns all holders by name.
func (s *Service) List(ctx context.Context) ([]*holder.Holder, error) {
	repo, err := s.uow.HolderRepository()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx)
}

// Capital returns what a holder is worth at a point: the sum of the
// balances of the holder's root accounts, claims on other holders
// included, each converted into code (the base currency when empty) at the
// rate of the point's day.
func (s *Service) Capital(ctx context.Context, holderID uuid.UUID, at balance.Point, code money.Code) (money.Money, error) {
	if code == "" {
		code = s.currency.Base()
	}
	if _, err := s.Get(ctx, holderID); err != nil {
		return money.Money{}, err
	}
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return money.Money{}, err
	}
	owned, err := accounts.ListByHolder(ctx, holderID)
	if err != nil {
		return money.Money{}, err
	}
	date, err := s.engine.DateOf(ctx, s.uow, at)
	if err != nil {
		return money.Money{}, err
	}
	total := money.Zero(code)
	for _, a := range account.NewTree(owned).Roots(holderID) {
		amount, err := s.engine.BalanceAt(ctx, s.uow, a.ID, at)
		if err != nil {
			return money.Money{}, err
		}
		if amount == 0 {
			continue
		}
		bal, err := money.NewFromSmallestUnit(amount, a.Currency)
		if err != nil {
			return money.Money{}, err
		}
		converted, err := s.currency.Convert(ctx, s.uow, bal, code, date, exchange.Sell)
		if err != nil {
			return money.Money{}, err
		}
		if total, err = total.Add(converted); err != nil {
			return money.Money{}, err
		}
	}
	return total, nil
}

// DebtWith returns how much a owes b. A negative amount means b owes a.
func (s *Service) DebtWith(ctx context.Context, a, b uuid.UUID) (money.Money, error) {
	return s.credit.DebtWith(ctx, a, b)
}

// Relations lists the holder's open debts and claims.
func (s *Service) Relations(ctx context.Context, holderID uuid.UUID) ([]credit.Relation, error) {
	return s.credit.Relations(ctx, holderID)
}
