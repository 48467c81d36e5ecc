// Package credit mirrors movements between holders into an IOU ledger.
//
// When a movement takes money out of one holder's account and puts it into
// another holder's account, the payer now has a claim on the receiver. Each
// ordered pair of holders gets two credit accounts, one per side, linked as
// mirrors. A counter-movement posted right after the originating movement
// moves the same value from the receiver's claim account into the payer's,
// so the two claim balances always cancel out.
//
// Counter-movements are automatic: users cannot edit or delete them, and
// they are regenerated whenever the originating movement changes in a way
// that affects the debt.
package credit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/credit"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/exchange"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/service/balance"
	"github.com/amirasaad/ledger/pkg/service/currency"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Poster stores and removes automatic movements together with their
// balance effects. The movement service implements it.
type Poster interface {
	// PostAutomatic inserts m at its date and ordinal and applies it.
	PostAutomatic(ctx context.Context, uow repository.UnitOfWork, m *movement.Movement) error
	// RemoveAutomatic undoes and deletes the automatic movement id.
	RemoveAutomatic(ctx context.Context, uow repository.UnitOfWork, id uuid.UUID) (*movement.Movement, error)
}

// Service keeps counter-movements and credit accounts in step with the
// ledger.
type Service struct {
	uow      repository.UnitOfWork
	currency *currency.Service
	engine   *balance.Engine
	logger   *slog.Logger
}

// New creates a new credit service.
func New(
	uow repository.UnitOfWork,
	currencySvc *currency.Service,
	engine *balance.Engine,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		uow:      uow,
		currency: currencySvc,
		engine:   engine,
		logger:   logger.With("service", "Credit"),
	}
}

// crossing describes a movement that moves value between two holders.
type crossing struct {
	payer    uuid.UUID
	receiver uuid.UUID
}

// crossingOf returns the payer and receiver of m when m needs a
// counter-movement: a regular, non-gift movement whose legs belong to
// different holders.
func (s *Service) crossingOf(ctx context.Context, uow repository.UnitOfWork, m *movement.Movement) (*crossing, error) {
	if m == nil || m.Gift || m.Automatic || m.Kind != movement.KindRegular {
		return nil, nil
	}
	if m.EntryID == nil || m.ExitID == nil {
		return nil, nil
	}
	accounts, err := uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	entry, err := accounts.Get(ctx, *m.EntryID)
	if err != nil {
		return nil, err
	}
	exit, err := accounts.Get(ctx, *m.ExitID)
	if err != nil {
		return nil, err
	}
	if !movement.CrossesHolders(&entry.HolderID, &exit.HolderID) {
		return nil, nil
	}
	return &crossing{payer: exit.HolderID, receiver: entry.HolderID}, nil
}

// LockSet returns the existing credit accounts the given movements may
// post to, so callers can lock them together with the legs.
func (s *Service) LockSet(ctx context.Context, uow repository.UnitOfWork, ms ...*movement.Movement) ([]uuid.UUID, error) {
	accounts, err := uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	for _, m := range ms {
		c, err := s.crossingOf(ctx, uow, m)
		if err != nil {
			return nil, err
		}
		if c == nil {
			continue
		}
		for _, side := range [][2]uuid.UUID{{c.payer, c.receiver}, {c.receiver, c.payer}} {
			a, err := accounts.CreditAccount(ctx, side[0], side[1])
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

// Sync brings the counter-movement of a movement in line with its new
// state. old is nil for a new movement; updated is nil for a deleted one.
// It runs after the originating movement's own effects are applied.
//
// The old counter-movement is removed when the movement is gone, no longer
// crosses holders, became a gift, or changed its amount, currency, date or
// legs. A crossing movement without a counter then gets a fresh one.
func (s *Service) Sync(
	ctx context.Context,
	uow repository.UnitOfWork,
	old, updated *movement.Movement,
	poster Poster,
) error {
	movements, err := uow.MovementRepository()
	if err != nil {
		return err
	}
	c, err := s.crossingOf(ctx, uow, updated)
	if err != nil {
		return err
	}

	if old != nil && old.CounterMovementID != nil {
		keep := updated != nil && c != nil && !movement.CreditSensitive(old, updated)
		if keep {
			return nil
		}
		removed, err := poster.RemoveAutomatic(ctx, uow, *old.CounterMovementID)
		if err != nil {
			return fmt.Errorf("remove counter-movement: %w", err)
		}
		if err := s.settle(ctx, uow, removed); err != nil {
			return err
		}
		if updated != nil {
			updated.CounterMovementID = nil
			if err := movements.SetCounter(ctx, updated.ID, nil); err != nil {
				return err
			}
		}
		s.logger.Info("counter-movement removed", "movement_id", old.ID, "counter_id", removed.ID)
	}

	if c == nil || updated.CounterMovementID != nil {
		return nil
	}
	// Removing the old counter may have renumbered the day.
	fresh, err := movements.Get(ctx, updated.ID)
	if err != nil {
		return err
	}
	updated.DayID, updated.Date, updated.Ordinal = fresh.DayID, fresh.Date, fresh.Ordinal
	return s.post(ctx, uow, updated, c, poster)
}

func (s *Service) post(
	ctx context.Context,
	uow repository.UnitOfWork,
	original *movement.Movement,
	c *crossing,
	poster Poster,
) error {
	payerClaim, receiverClaim, err := s.ensurePair(ctx, uow, c.payer, c.receiver, original.Amount.CurrencyCode(), original.Date)
	if err != nil {
		return err
	}
	amount, err := s.currency.Convert(ctx, uow, original.Amount, payerClaim.Currency, original.Date, exchange.Sell)
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		s.logger.Warn("counter-movement rounds to zero", "movement_id", original.ID)
		return nil
	}

	snaps, err := uow.SnapshotRepository()
	if err != nil {
		return err
	}
	next := day.Position{Date: original.Date, Ordinal: original.Ordinal + 1}
	before, _, err := snaps.At(ctx, payerClaim.ID, next, false)
	if err != nil {
		return err
	}
	class := credit.Classify(before, amount.Amount())
	payerName, receiverName, err := s.names(ctx, uow, c)
	if err != nil {
		return err
	}

	for _, a := range []*account.Account{payerClaim, receiverClaim} {
		if err := s.setActive(ctx, uow, a, true); err != nil {
			return err
		}
	}

	originalID := original.ID
	counter := &movement.Movement{
		ID:                uuid.New(),
		DayID:             original.DayID,
		Date:              original.Date,
		Ordinal:           next.Ordinal,
		EntryID:           &payerClaim.ID,
		ExitID:            &receiverClaim.ID,
		Amount:            amount,
		EntryAmount:       amount.Amount(),
		ExitAmount:        amount.Amount(),
		Rate:              decimal.NewFromInt(1),
		Concept:           class.Concept(payerName, receiverName),
		Kind:              movement.KindCredit,
		Automatic:         true,
		CounterMovementID: &originalID,
	}
	if err := poster.PostAutomatic(ctx, uow, counter); err != nil {
		return fmt.Errorf("post counter-movement: %w", err)
	}
	movements, err := uow.MovementRepository()
	if err != nil {
		return err
	}
	if err := movements.SetCounter(ctx, original.ID, &counter.ID); err != nil {
		return err
	}
	original.CounterMovementID = &counter.ID

	if err := s.settle(ctx, uow, counter); err != nil {
		return err
	}
	s.logger.Info("counter-movement posted",
		"movement_id", original.ID,
		"counter_id", counter.ID,
		"classification", class,
		"amount", amount.String(),
	)
	return nil
}

// settle deactivates the credit pair touched by counter once its latest
// balance is zero.
func (s *Service) settle(ctx context.Context, uow repository.UnitOfWork, counter *movement.Movement) error {
	if counter == nil || counter.EntryID == nil || counter.ExitID == nil {
		return nil
	}
	latest, err := s.engine.Latest(ctx, uow, *counter.EntryID)
	if err != nil {
		return err
	}
	if latest != 0 {
		return nil
	}
	accounts, err := uow.AccountRepository()
	if err != nil {
		return err
	}
	for _, id := range []uuid.UUID{*counter.EntryID, *counter.ExitID} {
		a, err := accounts.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := s.setActive(ctx, uow, a, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) setActive(ctx context.Context, uow repository.UnitOfWork, a *account.Account, active bool) error {
	if a.Active == active {
		return nil
	}
	accounts, err := uow.AccountRepository()
	if err != nil {
		return err
	}
	a.Active = active
	return accounts.Update(ctx, a)
}

func (s *Service) names(ctx context.Context, uow repository.UnitOfWork, c *crossing) (string, string, error) {
	holders, err := uow.HolderRepository()
	if err != nil {
		return "", "", err
	}
	payer, err := holders.Get(ctx, c.payer)
	if err != nil {
		return "", "", err
	}
	receiver, err := holders.Get(ctx, c.receiver)
	if err != nil {
		return "", "", err
	}
	return payer.Name, receiver.Name, nil
}

// ensurePair returns the payer's claim account on the receiver and its
// mirror, creating both on first use in the given currency.
func (s *Service) ensurePair(
	ctx context.Context,
	uow repository.UnitOfWork,
	payer, receiver uuid.UUID,
	code money.Code,
	on day.Date,
) (*account.Account, *account.Account, error) {
	accounts, err := uow.AccountRepository()
	if err != nil {
		return nil, nil, err
	}
	payerClaim, err := accounts.CreditAccount(ctx, payer, receiver)
	switch {
	case err == nil:
		receiverClaim, err := accounts.CreditAccount(ctx, receiver, payer)
		if err != nil {
			return nil, nil, fmt.Errorf("credit account without mirror: %w", err)
		}
		return payerClaim, receiverClaim, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, nil, err
	}

	holders, err := uow.HolderRepository()
	if err != nil {
		return nil, nil, err
	}
	hp, err := holders.Get(ctx, payer)
	if err != nil {
		return nil, nil, err
	}
	hr, err := holders.Get(ctx, receiver)
	if err != nil {
		return nil, nil, err
	}
	payerClaim, err = account.New().
		WithKey(fmt.Sprintf("credit:%s:%s", hp.Key, hr.Key)).
		WithName(fmt.Sprintf("%s's claim on %s", hp.Name, hr.Name)).
		WithCurrency(code).
		WithHolder(payer).
		WithOpenedOn(on).
		Build()
	if err != nil {
		return nil, nil, err
	}
	receiverClaim, err := account.New().
		WithKey(fmt.Sprintf("credit:%s:%s", hr.Key, hp.Key)).
		WithName(fmt.Sprintf("%s's claim on %s", hr.Name, hp.Name)).
		WithCurrency(code).
		WithHolder(receiver).
		WithOpenedOn(on).
		Build()
	if err != nil {
		return nil, nil, err
	}
	if err := account.LinkMirror(payerClaim, receiverClaim); err != nil {
		return nil, nil, err
	}
	if err := accounts.Create(ctx, payerClaim); err != nil {
		return nil, nil, err
	}
	if err := accounts.Create(ctx, receiverClaim); err != nil {
		return nil, nil, err
	}
	s.logger.Info("credit pair created", "payer", hp.Key, "receiver", hr.Key, "currency", code)
	return payerClaim, receiverClaim, nil
}

// Pair returns a's claim account on b and b's claim account on a.
func (s *Service) Pair(ctx context.Context, a, b uuid.UUID) (*account.Account, *account.Account, error) {
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, nil, err
	}
	aClaim, err := accounts.CreditAccount(ctx, a, b)
	if err != nil {
		return nil, nil, err
	}
	bClaim, err := accounts.CreditAccount(ctx, b, a)
	if err != nil {
		return nil, nil, err
	}
	return aClaim, bClaim, nil
}

// DebtWith returns how much a owes b in the pair's currency. A negative
// value means b owes a. Holders that never exchanged money owe nothing.
func (s *Service) DebtWith(ctx context.Context, a, b uuid.UUID) (money.Money, error) {
	return s.debtWith(ctx, s.uow, a, b)
}

func (s *Service) debtWith(ctx context.Context, uow repository.UnitOfWork, a, b uuid.UUID) (money.Money, error) {
	accounts, err := uow.AccountRepository()
	if err != nil {
		return money.Money{}, err
	}
	claim, err := accounts.CreditAccount(ctx, b, a)
	if errors.Is(err, domain.ErrNotFound) {
		return money.Zero(s.currency.Base()), nil
	}
	if err != nil {
		return money.Money{}, err
	}
	bal, err := s.engine.Latest(ctx, uow, claim.ID)
	if err != nil {
		return money.Money{}, err
	}
	return money.NewFromSmallestUnit(bal, claim.Currency)
}

// Relations lists the open debts of a holder with everyone else.
func (s *Service) Relations(ctx context.Context, holderID uuid.UUID) ([]credit.Relation, error) {
	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	owned, err := accounts.ListByHolder(ctx, holderID)
	if err != nil {
		return nil, err
	}
	var out []credit.Relation
	for _, a := range owned {
		if !a.IsCredit() {
			continue
		}
		bal, err := s.engine.Latest(ctx, s.uow, a.ID)
		if err != nil {
			return nil, err
		}
		claim, err := money.NewFromSmallestUnit(bal, a.Currency)
		if err != nil {
			return nil, err
		}
		rel := credit.RelationFrom(holderID, *a.Leaf.CounterpartyID, claim)
		if !rel.Settled() {
			out = append(out, rel)
		}
	}
	return out, nil
}
