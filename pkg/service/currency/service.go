// Package currency provides business logic for the exchange rate table:
// storing daily buy/sell quotes and resolving cross rates between any two
// currencies through the base currency.
package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/cache"
	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/exchange"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Service provides business logic for exchange rates.
type Service struct {
	uow    repository.UnitOfWork
	base   money.Code
	cache  cache.QuoteCache
	group  singleflight.Group
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCache makes quote lookups read through c.
func WithCache(c cache.QuoteCache) Option {
	return func(s *Service) { s.cache = c }
}

// New creates a new currency service. base is the currency every rate is
// quoted in.
func New(
	uow repository.UnitOfWork,
	base money.Code,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		uow:    uow,
		base:   base,
		logger: logger.With("service", "Currency"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Base returns the base currency.
func (s *Service) Base() money.Code { return s.base }

// CreateRate stores the buy and sell quote of a currency for a day. A quote
// already present for that currency and day is replaced. The base currency
// is always worth exactly one unit of itself, so it cannot carry rates.
func (s *Service) CreateRate(ctx context.Context, in dto.RateCreate) (*exchange.Rate, error) {
	if err := dto.Validate(in); err != nil {
		return nil, err
	}
	code := money.Code(in.Currency)
	if code == s.base {
		return nil, fmt.Errorf("%w: the base currency %s cannot carry rates", domain.ErrValidation, code)
	}
	date := in.Date
	if date.IsZero() {
		date = day.Today()
	}
	rate := &exchange.Rate{
		ID:       uuid.New(),
		Currency: code,
		Date:     date,
		Buy:      in.Buy,
		Sell:     in.Sell,
	}
	if err := rate.Validate(); err != nil {
		return nil, err
	}
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.RateRepository()
		if err != nil {
			return err
		}
		return repo.Upsert(ctx, rate)
	})
	if err != nil {
		s.logger.Error("failed to store rate", "currency", code, "date", date, "error", err)
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, code); err != nil {
			s.logger.Warn("failed to invalidate cached quotes", "currency", code, "error", err)
		}
	}
	s.logger.Info("rate stored", "currency", code, "date", date, "buy", rate.Buy, "sell", rate.Sell)
	return rate, nil
}

// Rates returns the quotes of a currency in ascending date order.
func (s *Service) Rates(ctx context.Context, code money.Code) ([]*exchange.Rate, error) {
	repo, err := s.uow.RateRepository()
	if err != nil {
		return nil, err
	}
	return repo.List(ctx, code)
}

// RateAsOf returns how many units of other one unit of code is worth on
// date, in the given direction. See Resolve.
func (s *Service) RateAsOf(
	ctx context.Context,
	code, other money.Code,
	date day.Date,
	dir exchange.Direction,
) (decimal.Decimal, error) {
	return s.Resolve(ctx, s.uow, code, other, date, dir)
}

// Resolve is RateAsOf bound to the caller's unit of work, for use inside a
// transaction.
//
// Each currency uses its latest quote on or before date; the base currency
// is the identity. Buy prices acquiring code while paying other
// (code.Sell / other.Buy); Sell prices disposing of code for other
// (code.Buy / other.Sell). A currency with no quote yet fails with
// domain.ErrCurrencyResolution.
func (s *Service) Resolve(
	ctx context.Context,
	uow repository.UnitOfWork,
	code, other money.Code,
	date day.Date,
	dir exchange.Direction,
) (decimal.Decimal, error) {
	if code == other {
		return decimal.NewFromInt(1), nil
	}
	of, err := s.quote(ctx, uow, code, date)
	if err != nil {
		return decimal.Zero, err
	}
	in, err := s.quote(ctx, uow, other, date)
	if err != nil {
		return decimal.Zero, err
	}
	return exchange.Cross(of, in, dir), nil
}

func (s *Service) quote(ctx context.Context, uow repository.UnitOfWork, code money.Code, date day.Date) (exchange.Rate, error) {
	if code == s.base {
		return exchange.Identity(code, date), nil
	}
	if !code.IsValid() {
		return exchange.Rate{}, fmt.Errorf("%w: %w", domain.ErrCurrencyResolution, money.ErrInvalidCurrency)
	}
	if s.cache == nil {
		return s.load(ctx, uow, code, date)
	}
	if r, ok, err := s.cache.Get(ctx, code, date); err != nil {
		s.logger.Warn("quote cache unavailable", "currency", code, "error", err)
	} else if ok {
		return r, nil
	}

	var r exchange.Rate
	var err error
	if uow == s.uow {
		// A transaction may hold the only connection, so only lookups
		// outside one share a flight.
		var v any
		v, err, _ = s.group.Do(string(code)+"@"+date.String(), func() (any, error) {
			return s.load(ctx, uow, code, date)
		})
		if err == nil {
			r = v.(exchange.Rate)
		}
	} else {
		r, err = s.load(ctx, uow, code, date)
	}
	if err != nil {
		return exchange.Rate{}, err
	}
	if err := s.cache.Set(ctx, code, date, r); err != nil {
		s.logger.Warn("failed to cache quote", "currency", code, "error", err)
	}
	return r, nil
}

func (s *Service) load(ctx context.Context, uow repository.UnitOfWork, code money.Code, date day.Date) (exchange.Rate, error) {
	repo, err := uow.RateRepository()
	if err != nil {
		return exchange.Rate{}, err
	}
	r, err := repo.AsOf(ctx, code, date)
	if errors.Is(err, domain.ErrNotFound) {
		return exchange.Rate{}, fmt.Errorf("%w: no %s rate on or before %s", domain.ErrCurrencyResolution, code, date)
	}
	if err != nil {
		return exchange.Rate{}, err
	}
	return *r, nil
}

// Convert expresses m in the currency to, at the rate of date.
func (s *Service) Convert(
	ctx context.Context,
	uow repository.UnitOfWork,
	m money.Money,
	to money.Code,
	date day.Date,
	dir exchange.Direction,
) (money.Money, error) {
	if m.CurrencyCode() == to {
		return m, nil
	}
	rate, err := s.Resolve(ctx, uow, m.CurrencyCode(), to, date, dir)
	if err != nil {
		return money.Money{}, err
	}
	return m.Convert(rate, to)
}
