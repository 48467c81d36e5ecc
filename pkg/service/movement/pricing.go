package movement

import (
	"context"
	"fmt"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/exchange"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/amirasaad/ledger/pkg/service/currency"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// pricing is the currency related input of a create or update.
type pricing struct {
	currency      string
	amount        decimal.Decimal
	rate          *decimal.Decimal
	counterAmount *decimal.Decimal
}

// repricing carries the previous state of an updated movement.
type repricing struct {
	old     *movement.Movement
	oldLegs legAccounts
}

// price sets the amount, rate and leg amounts of m.
//
// Legs sharing a currency always convert at 1. Otherwise an explicit rate
// wins, then a counter-amount (the rate becomes counter/amount). Without
// either, an update keeps its rate unless the date, currency or legs moved
// and the rate was not set by hand; a new other currency always drops a
// hand-set rate. Everything else is looked up in the rate table.
func (p pricing) price(
	ctx context.Context,
	rates *currency.Service,
	uow repository.UnitOfWork,
	m *movement.Movement,
	legs legAccounts,
	re *repricing,
) error {
	code, err := p.code(legs, re)
	if err != nil {
		return err
	}
	amount, err := money.New(p.amount, code)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	m.Amount = amount

	other, dir, converts := otherLeg(legs, code)
	switch {
	case !converts:
		m.Rate, m.RateOverridden = decimal.NewFromInt(1), false
	case p.rate != nil:
		if !p.rate.IsPositive() {
			return fmt.Errorf("%w: rate must be positive", domain.ErrValidation)
		}
		m.Rate, m.RateOverridden = *p.rate, true
	case p.counterAmount != nil:
		counter := p.counterAmount.Abs()
		if counter.IsZero() || amount.IsZero() {
			return fmt.Errorf("%w: counter amount must not be zero", domain.ErrValidation)
		}
		m.Rate, m.RateOverridden = counter.DivRound(amount.Decimal(), 10), true
	case re != nil && !re.stale(m, code, other):
		m.Rate, m.RateOverridden = re.old.Rate, re.old.RateOverridden
	default:
		rate, err := rates.Resolve(ctx, uow, code, other, m.Date, dir)
		if err != nil {
			return err
		}
		m.Rate, m.RateOverridden = rate, false
	}
	return m.SetLegAmounts(currencyOf(legs.entry), currencyOf(legs.exit))
}

// code picks the movement currency: the requested one, the previous one
// while it still matches a leg, or the exit leg's (the entry leg's when
// there is no exit).
func (p pricing) code(legs legAccounts, re *repricing) (money.Code, error) {
	var code money.Code
	switch {
	case p.currency != "":
		code = money.Code(p.currency)
	case re != nil && matchesLeg(legs, re.old.Amount.CurrencyCode()):
		code = re.old.Amount.CurrencyCode()
	case legs.exit != nil:
		code = legs.exit.Currency
	case legs.entry != nil:
		code = legs.entry.Currency
	default:
		return "", fmt.Errorf("%w: a movement needs an entry or an exit account", domain.ErrValidation)
	}
	if !code.IsValid() {
		return "", fmt.Errorf("%w: %w", domain.ErrValidation, money.ErrInvalidCurrency)
	}
	if !matchesLeg(legs, code) {
		return "", fmt.Errorf("%w: currency %s matches neither leg", domain.ErrValidation, code)
	}
	return code, nil
}

// stale reports whether the kept rate no longer fits the updated movement.
func (r *repricing) stale(m *movement.Movement, code, other money.Code) bool {
	oldCode := r.old.Amount.CurrencyCode()
	oldOther, _, converted := otherLeg(r.oldLegs, oldCode)
	if !converted || oldOther != other {
		return true
	}
	if r.old.RateOverridden {
		return false
	}
	return r.old.Date != m.Date ||
		oldCode != code ||
		!sameAccount(r.oldLegs.entry, m.EntryID) ||
		!sameAccount(r.oldLegs.exit, m.ExitID)
}

// otherLeg returns the currency of the leg that does not use code and the
// direction to price it in: Sell when that leg is the entry, since it
// acquires its currency, Buy otherwise.
func otherLeg(legs legAccounts, code money.Code) (money.Code, exchange.Direction, bool) {
	if legs.entry != nil && legs.entry.Currency != code {
		return legs.entry.Currency, exchange.Sell, true
	}
	if legs.exit != nil && legs.exit.Currency != code {
		return legs.exit.Currency, exchange.Buy, true
	}
	return "", exchange.Buy, false
}

func matchesLeg(legs legAccounts, code money.Code) bool {
	return (legs.entry != nil && legs.entry.Currency == code) ||
		(legs.exit != nil && legs.exit.Currency == code)
}

func currencyOf(a *account.Account) money.Code {
	if a == nil {
		return ""
	}
	return a.Currency
}

func sameAccount(a *account.Account, id *uuid.UUID) bool {
	if a == nil || id == nil {
		return a == nil && id == nil
	}
	return a.ID == *id
}
