package account

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/exchange"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/uuid"
)

// Get retrieves an account by its ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

// GetByKey retrieves an account by its key.
func (s *Service) GetByKey(ctx context.Context, key string) (*account.Account, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return repo.GetByKey(ctx, key)
}

// List returns every account ordered by key, or only a holder's when
// holderID is set.
func (s *Service) List(ctx context.Context, holderID *uuid.UUID) ([]*account.Account, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	if holderID != nil {
		return repo.ListByHolder(ctx, *holderID)
	}
	return repo.List(ctx)
}

// Children returns the direct children of an account.
func (s *Service) Children(ctx context.Context, id uuid.UUID) ([]*account.Account, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return repo.Children(ctx, id)
}

// Ancestors returns the parent chain of an account, nearest first.
func (s *Service) Ancestors(ctx context.Context, id uuid.UUID) ([]*account.Account, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	return repo.Ancestors(ctx, id)
}

// Siblings returns the other children of the account's parent. Root
// accounts have no siblings.
func (s *Service) Siblings(ctx context.Context, id uuid.UUID) ([]*account.Account, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	a, err := repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.ParentID == nil {
		return nil, nil
	}
	children, err := repo.Children(ctx, *a.ParentID)
	if err != nil {
		return nil, err
	}
	return account.NewTree(children).Siblings(id), nil
}

// Balance returns the balance of an account at a point, in the account's
// currency or converted into code when code is set.
func (s *Service) Balance(ctx context.Context, id uuid.UUID, at balance.Point, code money.Code) (bal money.Money, err error) {
	logger := s.logger.With("account_id", id, "at", at.String())
	defer func() {
		if err != nil {
			logger.Error("Balance failed", "error", err)
		}
	}()
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return money.Money{}, err
	}
	a, err := repo.Get(ctx, id)
	if err != nil {
		return money.Money{}, err
	}
	amount, err := s.engine.BalanceAt(ctx, s.uow, id, at)
	if err != nil {
		return money.Money{}, err
	}
	bal, err = money.NewFromSmallestUnit(amount, a.Currency)
	if err != nil {
		return money.Money{}, err
	}
	if code == "" || code == a.Currency {
		return bal, nil
	}
	date, err := s.engine.DateOf(ctx, s.uow, at)
	if err != nil {
		return money.Money{}, err
	}
	return s.currency.Convert(ctx, s.uow, bal, code, date, exchange.Sell)
}

// Movements returns the movements touching an account or any of its
// descendants in global order, optionally bounded by inclusive days.
func (s *Service) Movements(ctx context.Context, id uuid.UUID, from, to *day.Date) ([]*movement.Movement, error) {
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	if _, err := repo.Get(ctx, id); err != nil {
		return nil, err
	}
	all, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	subtree := account.NewTree(all).Subtree(id)
	ids := make([]uuid.UUID, 0, len(subtree))
	for aid := range subtree {
		ids = append(ids, aid)
	}
	movements, err := s.uow.MovementRepository()
	if err != nil {
		return nil, err
	}
	return movements.ByAccounts(ctx, ids, from, to)
}
