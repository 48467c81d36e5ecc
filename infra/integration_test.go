package infra_test

import (
	"testing"

	"github.com/amirasaad/ledger/infra"
	infrarepo "github.com/amirasaad/ledger/infra/repository"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/testutils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLedgerOnPostgres runs a lending and conversion scenario against the
// migrated PostgreSQL schema.
func TestLedgerOnPostgres(t *testing.T) {
	db := testutils.NewPostgresDB(t)

	version, dirty, err := infra.MigrationVersion(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, infra.MigrateUp(db), "already current")

	f := testutils.NewFixtureOn(t, infrarepo.NewUoW(db))
	alice, bob := f.Holder("alice"), f.Holder("bob")
	cash := f.Leaf(alice.ID, "alice:cash", money.EUR, "100")
	wallet := f.Leaf(bob.ID, "bob:wallet", money.EUR, "")
	dollars := f.Leaf(alice.ID, "alice:usd", money.USD, "")
	f.Rate(money.USD, "2024-01-01", "0.90", "0.92")

	early := f.Move("2024-03-05", wallet, cash, "30")
	f.Move("2024-03-01", dollars, cash, "46")
	f.Move("2024-03-01", nil, cash, "4")
	assert.Equal(t, int64(2000), f.BalanceAfter(cash.ID, early))

	debt, err := f.HolderService.DebtWith(f.Ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), debt.Amount())

	_, err = f.MovementService.Update(f.Ctx, early.ID, dto.MovementUpdate{Amount: ptr(decimal.NewFromInt(10))})
	require.NoError(t, err)
	assert.Equal(t, int64(4000), f.Latest(cash.ID))

	report, err := f.MaintenanceService.Verify(f.Ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Drift)
	f.AssertConsistent()
}

func ptr[T any](v T) *T { return &v }
