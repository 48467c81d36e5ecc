// Package cache declares the quote cache the currency service reads through.
package cache

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/exchange"
	"github.com/amirasaad/ledger/pkg/money"
)

// QuoteCache remembers the quote in force for a currency on a day, that is
// the latest quote on or before it. A miss reports ok == false.
type QuoteCache interface {
	Get(ctx context.Context, code money.Code, on day.Date) (rate exchange.Rate, ok bool, err error)
	Set(ctx context.Context, code money.Code, on day.Date, rate exchange.Rate) error
	// Invalidate forgets every day cached for code.
	Invalidate(ctx context.Context, code money.Code) error
}
