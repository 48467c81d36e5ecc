package testutils

import (
	"context"
	"testing"

	"github.com/amirasaad/ledger/pkg/app"
	"github.com/amirasaad/ledger/pkg/config"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/holder"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Fixture is a fully wired ledger over a private test database, with
// shortcuts for seeding data. Every helper fails the test on error.
type Fixture struct {
	*app.App
	T   testing.TB
	Ctx context.Context
}

// NewFixture wires every service over a fresh database with EUR as the
// base currency.
func NewFixture(t testing.TB) *Fixture {
	t.Helper()
	return NewFixtureOn(t, NewUoW(t))
}

// NewFixtureOn is NewFixture over the given unit of work.
func NewFixtureOn(t testing.TB, uow repository.UnitOfWork) *Fixture {
	t.Helper()
	cfg := &config.App{Env: "test", Ledger: &config.Ledger{BaseCurrency: "EUR", RecomputeChunk: 2}}
	a := app.New(&app.Deps{Uow: uow, Logger: DiscardLogger()}, cfg)
	return &Fixture{App: a, T: t, Ctx: context.Background()}
}

// Holder creates a holder named after its key.
func (f *Fixture) Holder(key string) *holder.Holder {
	f.T.Helper()
	h, err := f.HolderService.Create(f.Ctx, dto.HolderCreate{Key: key, Name: key, OnboardedOn: day.MustParse("2024-01-01")})
	require.NoError(f.T, err)
	return h
}

// Leaf creates an account opened on 2024-01-01 with an optional opening
// balance ("" for none).
func (f *Fixture) Leaf(holderID uuid.UUID, key string, code money.Code, opening string) *account.Account {
	f.T.Helper()
	in := dto.AccountCreate{
		Key:      key,
		HolderID: holderID,
		Currency: string(code),
		OpenedOn: day.MustParse("2024-01-01"),
	}
	if opening != "" {
		in.OpeningBalance = decimal.RequireFromString(opening)
	}
	a, err := f.AccountService.CreateLeaf(f.Ctx, in)
	require.NoError(f.T, err)
	return a
}

// Rate stores a quote of code in the base currency.
func (f *Fixture) Rate(code money.Code, date, buy, sell string) {
	f.T.Helper()
	_, err := f.CurrencyService.CreateRate(f.Ctx, dto.RateCreate{
		Currency: string(code),
		Date:     day.MustParse(date),
		Buy:      decimal.RequireFromString(buy),
		Sell:     decimal.RequireFromString(sell),
	})
	require.NoError(f.T, err)
}

// Move appends a movement on date. Either account may be nil.
func (f *Fixture) Move(date string, entry, exit *account.Account, amount string) *movement.Movement {
	f.T.Helper()
	return f.MoveWith(dto.MovementCreate{
		Date:    day.MustParse(date),
		EntryID: IDOf(entry),
		ExitID:  IDOf(exit),
		Amount:  decimal.RequireFromString(amount),
	})
}

// MoveWith creates a movement from a full request.
func (f *Fixture) MoveWith(in dto.MovementCreate) *movement.Movement {
	f.T.Helper()
	m, err := f.MovementService.Create(f.Ctx, in)
	require.NoError(f.T, err)
	return m
}

// BalanceOn returns the end-of-day balance of an account in minor units.
func (f *Fixture) BalanceOn(id uuid.UUID, date string) money.Amount {
	f.T.Helper()
	bal, err := f.AccountService.Balance(f.Ctx, id, balance.AtDay(day.MustParse(date)), "")
	require.NoError(f.T, err)
	return bal.Amount()
}

// BalanceAfter returns the balance of an account right after a movement.
func (f *Fixture) BalanceAfter(id uuid.UUID, m *movement.Movement) money.Amount {
	f.T.Helper()
	bal, err := f.AccountService.Balance(f.Ctx, id, balance.AtMovement(m.ID), "")
	require.NoError(f.T, err)
	return bal.Amount()
}

// Latest returns the current balance of an account in minor units.
func (f *Fixture) Latest(id uuid.UUID) money.Amount {
	f.T.Helper()
	bal, err := f.AccountService.Balance(f.Ctx, id, balance.Now(), "")
	require.NoError(f.T, err)
	return bal.Amount()
}

// AssertConsistent fails the test when any stored balance row differs from
// what the ledger implies.
func (f *Fixture) AssertConsistent() {
	f.T.Helper()
	report, err := f.MaintenanceService.Verify(f.Ctx, nil)
	require.NoError(f.T, err, "drift: %v", report)
}

// Reload returns the stored state of a movement.
func (f *Fixture) Reload(m *movement.Movement) *movement.Movement {
	f.T.Helper()
	got, err := f.MovementService.Get(f.Ctx, m.ID)
	require.NoError(f.T, err)
	return got
}

// IDOf returns a pointer to the account's ID, or nil for a nil account.
func IDOf(a *account.Account) *uuid.UUID {
	if a == nil {
		return nil
	}
	id := a.ID
	return &id
}
