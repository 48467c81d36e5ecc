package account

import (
	"context"
	"fmt"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
)

// Split turns a leaf into a branch as of the end of in.AsOf and creates its
// children. The children's opening balances must add up to the leaf's
// balance on that day; each non-zero one is moved out of the branch into
// the child by an automatic conversion movement.
//
// Balances read before the conversion keep coming from the account's own
// history; from the conversion on they are the sum of the children.
//
// Errors:
//   - domain.ErrInvalidAccountOperation when the account is already a
//     branch, is a credit account, has no children given, or has movements
//     after in.AsOf
//   - domain.ErrValidation when the openings do not sum to the balance
func (s *Service) Split(ctx context.Context, id uuid.UUID, in dto.AccountSplit) (children []*account.Account, err error) {
	if len(in.Children) == 0 {
		return nil, fmt.Errorf("%w: %w: a split needs at least one child", domain.ErrInvalidAccountOperation, domain.ErrValidation)
	}
	if err = dto.Validate(in); err != nil {
		return nil, err
	}
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = day.Today()
	}
	logger := s.logger.With("account_id", id, "as_of", asOf)

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		a, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if a.IsBranch() {
			return fmt.Errorf("%w: %w", domain.ErrInvalidAccountOperation, account.ErrAlreadyBranch)
		}
		if a.IsCredit() {
			return fmt.Errorf("%w: credit accounts cannot be split", domain.ErrInvalidAccountOperation)
		}
		if err := repo.Lock(ctx, []uuid.UUID{a.ID}); err != nil {
			return err
		}
		movements, err := uow.MovementRepository()
		if err != nil {
			return err
		}
		after := asOf.AddDays(1)
		later, err := movements.ByAccounts(ctx, []uuid.UUID{a.ID}, &after, nil)
		if err != nil {
			return err
		}
		if len(later) > 0 {
			return fmt.Errorf("%w: %s has movements after %s", domain.ErrInvalidAccountOperation, a.Key, asOf)
		}

		bal, err := s.engine.BalanceAt(ctx, uow, a.ID, balance.AtDay(asOf))
		if err != nil {
			return err
		}
		var sum money.Amount
		openings := make([]money.Money, 0, len(in.Children))
		for _, spec := range in.Children {
			opening, err := money.New(spec.OpeningBalance, a.Currency)
			if err != nil {
				return fmt.Errorf("%w: %w", domain.ErrValidation, err)
			}
			openings = append(openings, opening)
			sum += opening.Amount()
		}
		if sum != bal {
			return fmt.Errorf("%w: openings add up to %d, balance on %s is %d", domain.ErrValidation, sum, asOf, bal)
		}

		if err := a.ConvertToBranch(asOf); err != nil {
			return err
		}
		if err := repo.Update(ctx, a); err != nil {
			return err
		}

		for i, spec := range in.Children {
			child, err := account.New().
				WithKey(spec.Key).
				WithName(spec.Name).
				WithCurrency(a.Currency).
				WithHolder(a.HolderID).
				WithParent(a.ID).
				WithOpenedOn(asOf).
				Build()
			if err != nil {
				return err
			}
			if err := a.CanAdopt(child); err != nil {
				return err
			}
			if err := repo.Create(ctx, child); err != nil {
				return err
			}
			children = append(children, child)

			if openings[i].IsZero() {
				continue
			}
			entry, exit, amount, err := movement.Normalize(&child.ID, &a.ID, openings[i].Decimal())
			if err != nil {
				return err
			}
			m, err := transfer(entry, exit, amount, a.Currency, asOf)
			if err != nil {
				return err
			}
			m.Kind = movement.KindConversion
			m.Automatic = true
			m.Concept = fmt.Sprintf("Balance transfer from %s", a.Key)
			if err := s.poster.Post(ctx, uow, m, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Error("Split failed", "error", err)
		return nil, err
	}
	logger.Info("account split", "children", len(children))
	return children, nil
}

// SetConversionDay moves the day a branch was converted on, carrying its
// transfer movements along. The new day must not precede the branch's last
// own movement, nor fall on or after the first movement of a child.
func (s *Service) SetConversionDay(ctx context.Context, branchID uuid.UUID, date day.Date) error {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		branch, err := repo.Get(ctx, branchID)
		if err != nil {
			return err
		}
		if !branch.IsBranch() {
			return fmt.Errorf("%w: %w", domain.ErrInvalidAccountOperation, account.ErrNotBranch)
		}
		if branch.Branch.ConvertedOn == date {
			return nil
		}
		if date.Before(branch.OpenedOn) {
			return fmt.Errorf("%w: conversion before the account was opened", domain.ErrInvalidAccountOperation)
		}

		all, err := repo.List(ctx)
		if err != nil {
			return err
		}
		subtree := account.NewTree(all).Subtree(branchID)
		ids := make([]uuid.UUID, 0, len(subtree))
		for id := range subtree {
			ids = append(ids, id)
		}
		movements, err := uow.MovementRepository()
		if err != nil {
			return err
		}
		touching, err := movements.ByAccounts(ctx, ids, nil, nil)
		if err != nil {
			return err
		}

		var transfers []uuid.UUID
		for _, m := range touching {
			switch {
			case m.Kind == movement.KindConversion && m.Touches(branchID):
				transfers = append(transfers, m.ID)
			case m.Touches(branchID):
				if m.Date.After(date) {
					return fmt.Errorf("%w: %s has own movements after %s", domain.ErrInvalidAccountOperation, branch.Key, date)
				}
			default:
				if !m.Date.After(date) {
					return fmt.Errorf("%w: children of %s have movements on or before %s", domain.ErrInvalidAccountOperation, branch.Key, date)
				}
			}
		}
		for _, id := range transfers {
			if err := s.poster.Reschedule(ctx, uow, id, date); err != nil {
				return err
			}
		}
		branch.Branch.ConvertedOn = date
		return repo.Update(ctx, branch)
	})
	if err != nil {
		s.logger.Error("SetConversionDay failed", "branch_id", branchID, "error", err)
		return err
	}
	s.logger.Info("conversion day moved", "branch_id", branchID, "date", date)
	return nil
}
