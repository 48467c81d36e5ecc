// Package account provides business logic for the account tree: creating
// accounts, splitting a leaf into a branch with children, the account
// lifecycle, and balance and history queries.
//
// Accounts carry no stored balance. Every balance read goes through the
// balance engine, and every posting (opening balances, split transfers)
// goes through the movement cascade so the derived tables stay in step.
//
// All operations run inside a unit of work; an error anywhere rolls back
// the tree change together with any movement it posted.
package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/service/balance"
	"github.com/amirasaad/ledger/pkg/service/currency"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Poster runs movement cascades inside the caller's transaction. The
// movement service implements it.
type Poster interface {
	Post(ctx context.Context, uow repository.UnitOfWork, m *movement.Movement, ordinal *int) error
	Reschedule(ctx context.Context, uow repository.UnitOfWork, id uuid.UUID, date day.Date) error
}

// Service provides business logic for account operations.
type Service struct {
	uow      repository.UnitOfWork
	engine   *balance.Engine
	currency *currency.Service
	poster   Poster
	logger   *slog.Logger
}

// New creates a new account service.
func New(
	uow repository.UnitOfWork,
	engine *balance.Engine,
	currencySvc *currency.Service,
	poster Poster,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:      uow,
		engine:   engine,
		currency: currencySvc,
		poster:   poster,
		logger:   logger.With("service", "Account"),
	}
}

// CreateLeaf creates a postable account for a holder. A non-zero opening
// balance is posted as an opening movement on the opening day.
//
// Parameters:
//   - in.Key: unique account key
//   - in.HolderID: the owning holder, which must exist
//   - in.Currency: ISO 4217 code of the account
//   - in.OpeningBalance: optional signed opening balance in major units
//   - in.OpenedOn: opening day, today when zero
//
// Returns the created account, or domain.ErrValidation for bad input and
// domain.ErrAlreadyExists for a duplicate key.
func (s *Service) CreateLeaf(ctx context.Context, in dto.AccountCreate) (a *account.Account, err error) {
	if err = dto.Validate(in); err != nil {
		return nil, err
	}
	logger := s.logger.With("key", in.Key, "holder_id", in.HolderID)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		holders, err := uow.HolderRepository()
		if err != nil {
			return err
		}
		if _, err := holders.Get(ctx, in.HolderID); err != nil {
			return fmt.Errorf("holder %s: %w", in.HolderID, err)
		}
		a, err = account.New().
			WithKey(in.Key).
			WithName(in.Name).
			WithCurrency(money.Code(in.Currency)).
			WithHolder(in.HolderID).
			WithOpenedOn(in.OpenedOn).
			Build()
		if err != nil {
			return err
		}
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, a); err != nil {
			return err
		}
		if in.OpeningBalance.IsZero() {
			return nil
		}
		return s.postOpening(ctx, uow, a, in.OpeningBalance)
	})
	if err != nil {
		logger.Error("CreateLeaf failed", "error", err)
		return nil, err
	}
	logger.Info("account created", "account_id", a.ID)
	return a, nil
}

func (s *Service) postOpening(ctx context.Context, uow repository.UnitOfWork, a *account.Account, opening decimal.Decimal) error {
	entry, exit, amount, err := movement.Normalize(&a.ID, nil, opening)
	if err != nil {
		return err
	}
	m, err := transfer(entry, exit, amount, a.Currency, a.OpenedOn)
	if err != nil {
		return err
	}
	m.Kind = movement.KindOpening
	m.Concept = "Opening balance"
	return s.poster.Post(ctx, uow, m, nil)
}

// transfer builds a same-currency movement.
func transfer(entry, exit *uuid.UUID, amount decimal.Decimal, code money.Code, on day.Date) (*movement.Movement, error) {
	amt, err := money.New(amount, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	m := &movement.Movement{
		ID:      uuid.New(),
		Date:    on,
		EntryID: entry,
		ExitID:  exit,
		Amount:  amt,
		Rate:    decimal.NewFromInt(1),
	}
	if err := m.SetLegAmounts(code, code); err != nil {
		return nil, err
	}
	return m, nil
}

// AddChild creates a new leaf under a branch. The child takes the branch's
// currency and, unless given, its holder.
func (s *Service) AddChild(ctx context.Context, branchID uuid.UUID, in dto.ChildCreate) (child *account.Account, err error) {
	if err = dto.Validate(in); err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		branch, err := repo.Get(ctx, branchID)
		if err != nil {
			return err
		}
		holderID := branch.HolderID
		if in.HolderID != nil {
			holderID = *in.HolderID
		}
		b := account.New().
			WithKey(in.Key).
			WithName(in.Name).
			WithCurrency(branch.Currency).
			WithHolder(holderID).
			WithParent(branch.ID)
		if branch.IsBranch() {
			b = b.WithOpenedOn(branch.Branch.ConvertedOn)
		}
		if child, err = b.Build(); err != nil {
			return err
		}
		if err := branch.CanAdopt(child); err != nil {
			return err
		}
		return repo.Create(ctx, child)
	})
	if err != nil {
		s.logger.Error("AddChild failed", "branch_id", branchID, "error", err)
		return nil, err
	}
	s.logger.Info("child added", "branch_id", branchID, "account_id", child.ID)
	return child, nil
}

// Deactivate closes an account for new movements. Its balance must be zero.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, false)
}

// Reactivate opens a deactivated account again.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, true)
}

func (s *Service) setActive(ctx context.Context, id uuid.UUID, active bool) error {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		a, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if a.IsCredit() {
			return fmt.Errorf("%w: %s is managed by the credit ledger", domain.ErrInvalidAccountOperation, a.Key)
		}
		if a.Active == active {
			return nil
		}
		if !active {
			bal, err := s.engine.Latest(ctx, uow, id)
			if err != nil {
				return err
			}
			if bal != 0 {
				return fmt.Errorf("%w: %s still holds a balance", domain.ErrInvalidAccountOperation, a.Key)
			}
		}
		a.Active = active
		return repo.Update(ctx, a)
	})
	if err != nil {
		s.logger.Error("failed to change account state", "account_id", id, "active", active, "error", err)
		return err
	}
	s.logger.Info("account state changed", "account_id", id, "active", active)
	return nil
}

// Delete removes an account that no movement touches. A branch must have
// no children left.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		a, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if a.IsCredit() {
			return fmt.Errorf("%w: %s is managed by the credit ledger", domain.ErrInvalidAccountOperation, a.Key)
		}
		children, err := repo.Children(ctx, id)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return fmt.Errorf("%w: %s has children", domain.ErrInvalidAccountOperation, a.Key)
		}
		movements, err := uow.MovementRepository()
		if err != nil {
			return err
		}
		n, err := movements.CountByAccount(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: %s has %d movements", domain.ErrInvalidAccountOperation, a.Key, n)
		}
		bal, err := s.engine.Latest(ctx, uow, id)
		if err != nil {
			return err
		}
		if bal != 0 {
			return fmt.Errorf("%w: %s still holds a balance", domain.ErrInvalidAccountOperation, a.Key)
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("failed to delete account", "account_id", id, "error", err)
		return err
	}
	s.logger.Info("account deleted", "account_id", id)
	return nil
}
