// Package movement defines dated transfers between accounts and the pure
// rules around them: sign normalization, validation, leg effects and change
// classification. Persistence and propagation live in the services.
package movement

import (
	"fmt"
	"time"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind tells how a movement came to exist.
type Kind string

const (
	// KindRegular is a movement entered by a user.
	KindRegular Kind = "regular"
	// KindOpening posts an account's opening balance.
	KindOpening Kind = "opening"
	// KindConversion moves a balance from a converted branch into a child.
	KindConversion Kind = "conversion"
	// KindCredit is a counter-movement between two credit accounts.
	KindCredit Kind = "credit"
)

// Movement is a dated transfer touching an entry leg, an exit leg or both.
//
// Amount is expressed in the movement currency. EntryAmount and ExitAmount
// are the magnitudes booked on each leg in that leg's currency; they differ
// from Amount only when the legs do not share a currency. Rate converts one
// unit of the movement currency into the other leg's currency.
type Movement struct {
	ID                uuid.UUID
	DayID             uuid.UUID
	Date              day.Date
	Ordinal           int
	EntryID           *uuid.UUID
	ExitID            *uuid.UUID
	Amount            money.Money
	EntryAmount       money.Amount
	ExitAmount        money.Amount
	Rate              decimal.Decimal
	RateOverridden    bool
	Concept           string
	Detail            string
	Kind              Kind
	Automatic         bool
	Gift              bool
	CounterMovementID *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Effect is the signed change a movement makes to one account, in that
// account's minor units.
type Effect struct {
	AccountID uuid.UUID
	Delta     money.Amount
}

// Normalize turns a signed amount into a positive one. A negative amount
// swaps the legs, so a missing entry becomes a missing exit. Zero is invalid.
func Normalize(entry, exit *uuid.UUID, amount decimal.Decimal) (*uuid.UUID, *uuid.UUID, decimal.Decimal, error) {
	switch {
	case amount.IsZero():
		return nil, nil, decimal.Zero, fmt.Errorf("%w: amount must not be zero", domain.ErrValidation)
	case amount.IsNegative():
		return exit, entry, amount.Neg(), nil
	default:
		return entry, exit, amount, nil
	}
}

// Position is the movement's place in the global order.
func (m *Movement) Position() day.Position {
	return day.Position{Date: m.Date, Ordinal: m.Ordinal}
}

// Legs returns the non-nil leg account IDs, entry first.
func (m *Movement) Legs() []uuid.UUID {
	var out []uuid.UUID
	if m.EntryID != nil {
		out = append(out, *m.EntryID)
	}
	if m.ExitID != nil {
		out = append(out, *m.ExitID)
	}
	return out
}

// Touches reports whether id is one of the legs.
func (m *Movement) Touches(id uuid.UUID) bool {
	return (m.EntryID != nil && *m.EntryID == id) || (m.ExitID != nil && *m.ExitID == id)
}

// Validate checks the shape invariants: at least one leg, distinct legs and
// a positive amount with a valid currency.
func (m *Movement) Validate() error {
	if m.EntryID == nil && m.ExitID == nil {
		return fmt.Errorf("%w: a movement needs an entry or an exit account", domain.ErrValidation)
	}
	if m.EntryID != nil && m.ExitID != nil && *m.EntryID == *m.ExitID {
		return fmt.Errorf("%w: entry and exit accounts must differ", domain.ErrValidation)
	}
	if !m.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if !m.Amount.CurrencyCode().IsValid() {
		return fmt.Errorf("%w: %w", domain.ErrValidation, money.ErrInvalidCurrency)
	}
	if m.EntryAmount < 0 || m.ExitAmount < 0 {
		return fmt.Errorf("%w: leg amounts must not be negative", domain.ErrValidation)
	}
	if m.Ordinal < 0 {
		return fmt.Errorf("%w: ordinal must not be negative", domain.ErrValidation)
	}
	return nil
}

// Effects returns the signed leg contributions: the entry account gains
// EntryAmount, the exit account loses ExitAmount.
func (m *Movement) Effects() []Effect {
	var out []Effect
	if m.EntryID != nil {
		out = append(out, Effect{AccountID: *m.EntryID, Delta: m.EntryAmount})
	}
	if m.ExitID != nil {
		out = append(out, Effect{AccountID: *m.ExitID, Delta: -m.ExitAmount})
	}
	return out
}

// SetLegAmounts books each leg in its own currency: Amount when the leg
// shares the movement currency, Amount converted at Rate otherwise.
func (m *Movement) SetLegAmounts(entryCurrency, exitCurrency money.Code) error {
	entry, err := m.legAmount(entryCurrency)
	if err != nil {
		return err
	}
	exit, err := m.legAmount(exitCurrency)
	if err != nil {
		return err
	}
	m.EntryAmount, m.ExitAmount = 0, 0
	if m.EntryID != nil {
		m.EntryAmount = entry
	}
	if m.ExitID != nil {
		m.ExitAmount = exit
	}
	return nil
}

func (m *Movement) legAmount(c money.Code) (money.Amount, error) {
	if c == "" || c == m.Amount.CurrencyCode() {
		return m.Amount.Amount(), nil
	}
	converted, err := m.Amount.Convert(m.Rate, c)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return converted.Amount(), nil
}

// CrossesHolders reports whether the legs belong to different holders.
func CrossesHolders(entryHolder, exitHolder *uuid.UUID) bool {
	return entryHolder != nil && exitHolder != nil && *entryHolder != *exitHolder
}

// EffectsChanged reports whether the balance engine must undo and reapply:
// a leg, a booked leg amount or the position changed.
func EffectsChanged(old, updated *Movement) bool {
	return !sameID(old.EntryID, updated.EntryID) ||
		!sameID(old.ExitID, updated.ExitID) ||
		old.EntryAmount != updated.EntryAmount ||
		old.ExitAmount != updated.ExitAmount ||
		old.Position() != updated.Position()
}

// CreditSensitive reports whether the change requires regenerating the
// counter-movement. Concept, detail and ordinal edits do not.
func CreditSensitive(old, updated *Movement) bool {
	return !old.Amount.Equals(updated.Amount) ||
		old.Date != updated.Date ||
		!sameID(old.EntryID, updated.EntryID) ||
		!sameID(old.ExitID, updated.ExitID)
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Clone returns a deep copy so callers can compare old and new states.
func (m *Movement) Clone() *Movement {
	c := *m
	c.EntryID = cloneID(m.EntryID)
	c.ExitID = cloneID(m.ExitID)
	c.CounterMovementID = cloneID(m.CounterMovementID)
	return &c
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
