// Package exchange models the per-currency time series of buy/sell rates
// expressed against the ledger's base currency.
package exchange

import (
	"fmt"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction tells which side of the quote applies.
type Direction int

const (
	// Buy means acquiring the quoted currency.
	Buy Direction = iota
	// Sell means disposing of the quoted currency.
	Sell
)

func (d Direction) String() string {
	if d == Sell {
		return "sell"
	}
	return "buy"
}

// Rate is the price of one unit of Currency in the base currency on Date.
type Rate struct {
	ID       uuid.UUID
	Currency money.Code
	Date     day.Date
	Buy      decimal.Decimal // what the market pays for one unit
	Sell     decimal.Decimal // what the market asks for one unit
}

// Validate checks both sides are positive and the code is well formed.
func (r Rate) Validate() error {
	if !r.Currency.IsValid() {
		return fmt.Errorf("%w: %w", domain.ErrValidation, money.ErrInvalidCurrency)
	}
	if !r.Buy.IsPositive() || !r.Sell.IsPositive() {
		return fmt.Errorf("%w: rates must be positive", domain.ErrValidation)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: rate date is required", domain.ErrValidation)
	}
	return nil
}

// Side returns the side of the quote used when acquiring (Buy) or disposing
// of (Sell) the currency.
func (r Rate) Side(dir Direction) decimal.Decimal {
	if dir == Buy {
		return r.Sell
	}
	return r.Buy
}

// Identity is the rate of the base currency against itself.
func Identity(code money.Code, on day.Date) Rate {
	one := decimal.NewFromInt(1)
	return Rate{Currency: code, Date: on, Buy: one, Sell: one}
}

// Cross returns the price of one unit of `of` expressed in `in`, acquiring
// `of` (Buy) or disposing of it (Sell). The opposite side applies to `in`.
func Cross(of, in Rate, dir Direction) decimal.Decimal {
	other := Sell
	if dir == Sell {
		other = Buy
	}
	return of.Side(dir).DivRound(in.Side(other), 10)
}
