// Package movement provides business logic for the movement ledger.
//
// Every write runs as one cascade inside a single transaction:
//
//  1. lock the accounts involved (legs, their ancestors and any credit pair)
//     in a fixed order;
//  2. undo the balance effects of the old state;
//  3. store the new state at its position, renumbering the affected days;
//  4. apply the balance effects of the new state;
//  5. regenerate the credit counter-movement when needed.
//
// Edits that change neither a leg, a booked amount nor the position (for
// example a new concept) skip steps 2 and 4.
package movement

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/service/balance"
	"github.com/amirasaad/ledger/pkg/service/credit"
	"github.com/amirasaad/ledger/pkg/service/currency"
	"github.com/google/uuid"
)

// Service provides business logic for movements.
type Service struct {
	uow      repository.UnitOfWork
	currency *currency.Service
	engine   *balance.Engine
	credit   *credit.Service
	logger   *slog.Logger
}

// New creates a new movement service.
func New(
	uow repository.UnitOfWork,
	currencySvc *currency.Service,
	engine *balance.Engine,
	creditSvc *credit.Service,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:      uow,
		currency: currencySvc,
		engine:   engine,
		credit:   creditSvc,
		logger:   logger.With("service", "Movement"),
	}
}

// Create records a new movement. A negative amount swaps the legs. Without
// an ordinal the movement is appended to its day; with one it is inserted
// there and later movements of the day move down.
func (s *Service) Create(ctx context.Context, in dto.MovementCreate) (m *movement.Movement, err error) {
	if err = dto.Validate(in); err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		date := in.Date
		if date.IsZero() {
			date = day.Today()
		}
		entryID, exitID, amount, err := movement.Normalize(in.EntryID, in.ExitID, in.Amount)
		if err != nil {
			return err
		}
		m = &movement.Movement{
			ID:      uuid.New(),
			Date:    date,
			EntryID: entryID,
			ExitID:  exitID,
			Concept: in.Concept,
			Detail:  in.Detail,
			Kind:    movement.KindRegular,
			Gift:    in.Gift,
		}
		legs, err := s.legs(ctx, uow, m)
		if err != nil {
			return err
		}
		p := pricing{
			currency:      in.Currency,
			amount:        amount,
			rate:          in.Rate,
			counterAmount: in.CounterAmount,
		}
		if err := p.price(ctx, s.currency, uow, m, legs, nil); err != nil {
			return err
		}
		return s.Post(ctx, uow, m, in.Ordinal)
	})
	if err != nil {
		s.logger.Error("failed to create movement", "error", err)
		return nil, err
	}
	s.logger.Info("movement created", "movement_id", m.ID, "date", m.Date, "ordinal", m.Ordinal, "amount", m.Amount.String())
	return m, nil
}

// Update changes the fields set in in. Automatic movements cannot be
// updated directly.
//
// Moving a movement to another day without an ordinal puts it first on a
// later day and last on an earlier one. Within its day an ordinal ranges
// over the existing positions; on another day it may also be one past the
// last.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in dto.MovementUpdate) (m *movement.Movement, err error) {
	if err = dto.Validate(in); err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		movements, err := uow.MovementRepository()
		if err != nil {
			return err
		}
		old, err := movements.Get(ctx, id)
		if err != nil {
			return err
		}
		if old.Automatic {
			return fmt.Errorf("%w: %s", domain.ErrAutomaticMovement, id)
		}
		m = old.Clone()
		if in.Date != nil {
			m.Date = *in.Date
		}
		switch {
		case in.ClearEntry:
			m.EntryID = nil
		case in.EntryID != nil:
			m.EntryID = in.EntryID
		}
		switch {
		case in.ClearExit:
			m.ExitID = nil
		case in.ExitID != nil:
			m.ExitID = in.ExitID
		}
		amount := old.Amount.Decimal()
		if in.Amount != nil {
			if m.EntryID, m.ExitID, amount, err = movement.Normalize(m.EntryID, m.ExitID, *in.Amount); err != nil {
				return err
			}
		}
		if in.Concept != nil {
			m.Concept = *in.Concept
		}
		if in.Detail != nil {
			m.Detail = *in.Detail
		}
		if in.Gift != nil {
			m.Gift = *in.Gift
		}

		oldLegs, err := s.legs(ctx, uow, old)
		if err != nil {
			return err
		}
		legs, err := s.legs(ctx, uow, m)
		if err != nil {
			return err
		}
		if err := s.checkLegs(m, legs, oldLegs); err != nil {
			return err
		}
		p := pricing{
			amount:        amount,
			rate:          in.Rate,
			counterAmount: in.CounterAmount,
		}
		if in.Currency != nil {
			p.currency = *in.Currency
		}
		if err := p.price(ctx, s.currency, uow, m, legs, &repricing{old: old, oldLegs: oldLegs}); err != nil {
			return err
		}
		if err := m.Validate(); err != nil {
			return err
		}

		target, err := s.target(ctx, uow, old, m.Date, in.Ordinal)
		if err != nil {
			return err
		}
		m.DayID, m.Ordinal = target.dayID, target.ordinal
		if b := splitLeg(old, oldLegs); b != nil && (movement.EffectsChanged(old, m) || old.Gift != m.Gift) {
			return fmt.Errorf("%w: %s was split on %s, its earlier movements only take concept and detail edits",
				domain.ErrInvalidAccountOperation, b.Key, b.Branch.ConvertedOn)
		}

		if err := s.lock(ctx, uow, old, m); err != nil {
			return err
		}
		if movement.EffectsChanged(old, m) {
			if err := s.engine.Undo(ctx, uow, old); err != nil {
				return err
			}
			if old.Position() != m.Position() || old.DayID != m.DayID {
				moved := old.Clone()
				if err := movements.Move(ctx, moved, target.dayID, m.Date, target.ordinal); err != nil {
					return err
				}
			}
			if err := movements.Save(ctx, m); err != nil {
				return err
			}
			if err := s.engine.Apply(ctx, uow, m); err != nil {
				return err
			}
		} else if err := movements.Save(ctx, m); err != nil {
			return err
		}
		return s.credit.Sync(ctx, uow, old, m, s)
	})
	if err != nil {
		s.logger.Error("failed to update movement", "movement_id", id, "error", err)
		return nil, err
	}
	s.logger.Info("movement updated", "movement_id", id)
	return m, nil
}

// Delete removes a movement and its counter-movement. Automatic movements
// cannot be deleted directly.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		movements, err := uow.MovementRepository()
		if err != nil {
			return err
		}
		m, err := movements.Get(ctx, id)
		if err != nil {
			return err
		}
		if m.Automatic {
			return fmt.Errorf("%w: %s", domain.ErrAutomaticMovement, id)
		}
		legs, err := s.legs(ctx, uow, m)
		if err != nil {
			return err
		}
		if b := splitLeg(m, legs); b != nil {
			return fmt.Errorf("%w: %s was split on %s, its earlier movements cannot be deleted",
				domain.ErrInvalidAccountOperation, b.Key, b.Branch.ConvertedOn)
		}
		if err := s.lock(ctx, uow, m); err != nil {
			return err
		}
		if err := s.engine.Undo(ctx, uow, m); err != nil {
			return err
		}
		if err := movements.Remove(ctx, m); err != nil {
			return err
		}
		return s.credit.Sync(ctx, uow, m, nil, s)
	})
	if err != nil {
		s.logger.Error("failed to delete movement", "movement_id", id, "error", err)
		return err
	}
	s.logger.Info("movement deleted", "movement_id", id)
	return nil
}

// Get returns a movement by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*movement.Movement, error) {
	repo, err := s.uow.MovementRepository()
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, id)
}

// ByDay returns the movements of a day in ordinal order.
func (s *Service) ByDay(ctx context.Context, date day.Date) ([]*movement.Movement, error) {
	repo, err := s.uow.MovementRepository()
	if err != nil {
		return nil, err
	}
	return repo.ByDate(ctx, date)
}

// ByHolder returns every movement touching an account of the holder, once
// each, in global order.
func (s *Service) ByHolder(ctx context.Context, holderID uuid.UUID) ([]*movement.Movement, error) {
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	owned, err := accounts.ListByHolder(ctx, holderID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(owned))
	for _, a := range owned {
		ids = append(ids, a.ID)
	}
	repo, err := s.uow.MovementRepository()
	if err != nil {
		return nil, err
	}
	return repo.ByAccounts(ctx, ids, nil, nil)
}

// OrdinalRange returns the lowest and highest ordinal used on a day and
// how many movements it has.
func (s *Service) OrdinalRange(ctx context.Context, date day.Date) (lo, hi, count int, err error) {
	repo, err := s.uow.MovementRepository()
	if err != nil {
		return 0, 0, 0, err
	}
	return repo.OrdinalRange(ctx, date)
}

// Post stores a fully priced movement and runs its cascade inside the
// caller's transaction. A nil ordinal appends to the day.
func (s *Service) Post(ctx context.Context, uow repository.UnitOfWork, m *movement.Movement, ordinal *int) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	legs, err := s.legs(ctx, uow, m)
	if err != nil {
		return err
	}
	if err := s.checkLegs(m, legs, legAccounts{}); err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	days, err := uow.DayRepository()
	if err != nil {
		return err
	}
	d, err := days.GetOrCreate(ctx, m.Date)
	if err != nil {
		return err
	}
	movements, err := uow.MovementRepository()
	if err != nil {
		return err
	}
	n, err := movements.CountByDay(ctx, d.ID)
	if err != nil {
		return err
	}
	m.DayID = d.ID
	switch {
	case ordinal == nil:
		m.Ordinal = n
	case *ordinal < 0 || *ordinal > n:
		return fmt.Errorf("%w: ordinal %d outside 0..%d on %s", domain.ErrValidation, *ordinal, n, m.Date)
	default:
		m.Ordinal = *ordinal
	}
	if err := s.lock(ctx, uow, m); err != nil {
		return err
	}
	if err := movements.Insert(ctx, m); err != nil {
		return err
	}
	if err := s.engine.Apply(ctx, uow, m); err != nil {
		return err
	}
	return s.credit.Sync(ctx, uow, nil, m, s)
}

// PostAutomatic stores a system generated movement at its ordinal.
func (s *Service) PostAutomatic(ctx context.Context, uow repository.UnitOfWork, m *movement.Movement) error {
	m.Automatic = true
	ordinal := m.Ordinal
	return s.Post(ctx, uow, m, &ordinal)
}

// RemoveAutomatic undoes and deletes a system generated movement.
func (s *Service) RemoveAutomatic(ctx context.Context, uow repository.UnitOfWork, id uuid.UUID) (*movement.Movement, error) {
	movements, err := uow.MovementRepository()
	if err != nil {
		return nil, err
	}
	m, err := movements.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !m.Automatic {
		return nil, fmt.Errorf("%w: %s is not automatic", domain.ErrInvalidAccountOperation, id)
	}
	if err := s.lock(ctx, uow, m); err != nil {
		return nil, err
	}
	if err := s.engine.Undo(ctx, uow, m); err != nil {
		return nil, err
	}
	if err := movements.Remove(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Reschedule moves a movement to the end of another day, carrying its
// balance effects along.
func (s *Service) Reschedule(ctx context.Context, uow repository.UnitOfWork, id uuid.UUID, date day.Date) error {
	movements, err := uow.MovementRepository()
	if err != nil {
		return err
	}
	m, err := movements.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.Date == date {
		return nil
	}
	days, err := uow.DayRepository()
	if err != nil {
		return err
	}
	d, err := days.GetOrCreate(ctx, date)
	if err != nil {
		return err
	}
	n, err := movements.CountByDay(ctx, d.ID)
	if err != nil {
		return err
	}
	if err := s.lock(ctx, uow, m); err != nil {
		return err
	}
	if err := s.engine.Undo(ctx, uow, m); err != nil {
		return err
	}
	if err := movements.Move(ctx, m, d.ID, date, n); err != nil {
		return err
	}
	return s.engine.Apply(ctx, uow, m)
}

type placement struct {
	dayID   uuid.UUID
	ordinal int
}

// target resolves where an updated movement goes.
func (s *Service) target(ctx context.Context, uow repository.UnitOfWork, old *movement.Movement, date day.Date, ordinal *int) (placement, error) {
	movements, err := uow.MovementRepository()
	if err != nil {
		return placement{}, err
	}
	if date == old.Date {
		if ordinal == nil {
			return placement{dayID: old.DayID, ordinal: old.Ordinal}, nil
		}
		n, err := movements.CountByDay(ctx, old.DayID)
		if err != nil {
			return placement{}, err
		}
		if *ordinal < 0 || *ordinal >= n {
			return placement{}, fmt.Errorf("%w: ordinal %d outside 0..%d on %s", domain.ErrValidation, *ordinal, n-1, date)
		}
		return placement{dayID: old.DayID, ordinal: *ordinal}, nil
	}

	days, err := uow.DayRepository()
	if err != nil {
		return placement{}, err
	}
	d, err := days.GetOrCreate(ctx, date)
	if err != nil {
		return placement{}, err
	}
	n, err := movements.CountByDay(ctx, d.ID)
	if err != nil {
		return placement{}, err
	}
	switch {
	case ordinal != nil:
		if *ordinal < 0 || *ordinal > n {
			return placement{}, fmt.Errorf("%w: ordinal %d outside 0..%d on %s", domain.ErrValidation, *ordinal, n, date)
		}
		return placement{dayID: d.ID, ordinal: *ordinal}, nil
	case date.After(old.Date):
		return placement{dayID: d.ID, ordinal: 0}, nil
	default:
		return placement{dayID: d.ID, ordinal: n}, nil
	}
}

// legAccounts holds the loaded leg accounts of a movement; either may be nil.
type legAccounts struct {
	entry *account.Account
	exit  *account.Account
}

func (s *Service) legs(ctx context.Context, uow repository.UnitOfWork, m *movement.Movement) (legAccounts, error) {
	accounts, err := uow.AccountRepository()
	if err != nil {
		return legAccounts{}, err
	}
	var out legAccounts
	if m.EntryID != nil {
		if out.entry, err = accounts.Get(ctx, *m.EntryID); err != nil {
			return legAccounts{}, fmt.Errorf("entry account: %w", err)
		}
	}
	if m.ExitID != nil {
		if out.exit, err = accounts.Get(ctx, *m.ExitID); err != nil {
			return legAccounts{}, fmt.Errorf("exit account: %w", err)
		}
	}
	return out, nil
}

// checkLegs enforces who may be posted to. Legs that were already on the
// movement before an update are not checked again.
func (s *Service) checkLegs(m *movement.Movement, legs, previous legAccounts) error {
	for _, leg := range []struct{ cur, prev *account.Account }{
		{legs.entry, previous.entry},
		{legs.exit, previous.exit},
	} {
		a := leg.cur
		if a == nil || (leg.prev != nil && leg.prev.ID == a.ID) {
			continue
		}
		if a.IsBranch() && m.Kind != movement.KindConversion {
			return fmt.Errorf("%w: %s is a branch", domain.ErrInvalidAccountOperation, a.Key)
		}
		if a.IsCredit() && !m.Automatic {
			return fmt.Errorf("%w: %s is managed by the credit ledger", domain.ErrInvalidAccountOperation, a.Key)
		}
		if !a.Active && !a.IsCredit() {
			return fmt.Errorf("%w: %s is inactive", domain.ErrValidation, a.Key)
		}
	}
	return nil
}

// splitLeg returns the branch leg of a movement posted before its account
// was split. The children's openings are derived from those movements, so
// only conversion movements on a branch may move.
func splitLeg(m *movement.Movement, legs legAccounts) *account.Account {
	if m.Kind == movement.KindConversion {
		return nil
	}
	for _, a := range []*account.Account{legs.entry, legs.exit} {
		if a != nil && a.IsBranch() {
			return a
		}
	}
	return nil
}

// lock takes row locks on every account the movements can change.
func (s *Service) lock(ctx context.Context, uow repository.UnitOfWork, ms ...*movement.Movement) error {
	var ids []uuid.UUID
	for _, m := range ms {
		affected, err := s.engine.Affected(ctx, uow, m)
		if err != nil {
			return err
		}
		ids = append(ids, affected...)
	}
	mirrors, err := s.credit.LockSet(ctx, uow, ms...)
	if err != nil {
		return err
	}
	ids = append(ids, mirrors...)
	accounts, err := uow.AccountRepository()
	if err != nil {
		return err
	}
	return accounts.Lock(ctx, ids)
}
