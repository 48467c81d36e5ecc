package holder_test

import (
	"testing"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/testutils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndLookup(t *testing.T) {
	f := testutils.NewFixture(t)
	h, err := f.HolderService.Create(f.Ctx, dto.HolderCreate{Key: "alice", Name: "Alice", OnboardedOn: day.MustParse("2024-01-01")})
	require.NoError(t, err)
	assert.Equal(t, "Alice", h.Name)

	got, err := f.HolderService.GetByKey(f.Ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, h.ID, got.ID)

	_, err = f.HolderService.Create(f.Ctx, dto.HolderCreate{Key: "alice", Name: "Other"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	_, err = f.HolderService.Create(f.Ctx, dto.HolderCreate{Name: "nameless"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.HolderService.Get(f.Ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.Holder("bob")
	all, err := f.HolderService.List(f.Ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCapital(t *testing.T) {
	f := testutils.NewFixture(t)
	f.Rate(money.USD, "2024-01-01", "0.90", "0.92")
	alice, bob := f.Holder("alice"), f.Holder("bob")
	cash := f.Leaf(alice.ID, "alice:cash", money.EUR, "100")
	f.Leaf(alice.ID, "alice:usd", money.USD, "100")
	bobCash := f.Leaf(bob.ID, "bob:cash", money.EUR, "100")

	capital, err := f.HolderService.Capital(f.Ctx, alice.ID, balance.Now(), "")
	require.NoError(t, err)
	assert.Equal(t, money.EUR, capital.CurrencyCode())
	assert.Equal(t, int64(19000), capital.Amount())

	// lending keeps the lender's capital: cash turns into a claim
	f.Move("2024-03-01", bobCash, cash, "50")
	capital, err = f.HolderService.Capital(f.Ctx, alice.ID, balance.Now(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(19000), capital.Amount())
	capital, err = f.HolderService.Capital(f.Ctx, bob.ID, balance.Now(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), capital.Amount())

	// split trees count once
	_, err = f.AccountService.Split(f.Ctx, cash.ID, dto.AccountSplit{
		AsOf: day.MustParse("2024-03-01"),
		Children: []dto.ChildSpec{
			{Key: "alice:cash:wallet", OpeningBalance: decimal.NewFromInt(20)},
			{Key: "alice:cash:jar", OpeningBalance: decimal.NewFromInt(30)},
		},
	})
	require.NoError(t, err)
	capital, err = f.HolderService.Capital(f.Ctx, alice.ID, balance.AtDay(day.MustParse("2024-03-01")), money.USD)
	require.NoError(t, err)
	assert.Equal(t, money.USD, capital.CurrencyCode())
	// 50 EUR cash + 50 EUR claim at 1/0.92 each, plus 100 USD
	assert.Equal(t, int64(20870), capital.Amount())

	_, err = f.HolderService.Capital(f.Ctx, uuid.New(), balance.Now(), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.AssertConsistent()
}

func TestDebtWith(t *testing.T) {
	f := testutils.NewFixture(t)
	alice, bob := f.Holder("alice"), f.Holder("bob")
	aliceCash := f.Leaf(alice.ID, "alice:cash", money.EUR, "100")
	bobCash := f.Leaf(bob.ID, "bob:cash", money.EUR, "100")

	debt, err := f.HolderService.DebtWith(f.Ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, debt.IsZero())

	f.Move("2024-03-01", bobCash, aliceCash, "50")
	f.Move("2024-03-02", aliceCash, bobCash, "50")

	debt, err = f.HolderService.DebtWith(f.Ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, debt.IsZero())
	rels, err := f.HolderService.Relations(f.Ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, rels)
}
