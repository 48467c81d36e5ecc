package movement_test

import (
	"math/rand"
	"testing"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/holder"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/testutils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func date(s string) *day.Date {
	d := day.MustParse(s)
	return &d
}

type MovementTestSuite struct {
	suite.Suite
	f     *testutils.Fixture
	alice *holder.Holder
	cash  *account.Account
	bank  *account.Account
}

func (s *MovementTestSuite) SetupTest() {
	s.f = testutils.NewFixture(s.T())
	s.alice = s.f.Holder("alice")
	s.cash = s.f.Leaf(s.alice.ID, "cash", money.EUR, "")
	s.bank = s.f.Leaf(s.alice.ID, "bank", money.EUR, "")
}

func (s *MovementTestSuite) ordinals(d string) []int {
	ms, err := s.f.MovementService.ByDay(s.f.Ctx, day.MustParse(d))
	s.Require().NoError(err)
	out := make([]int, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Ordinal)
	}
	return out
}

func (s *MovementTestSuite) TestInsertEarlierShiftsLaterSnapshots() {
	s.f.Move("2024-03-01", s.cash, nil, "100")
	s.f.MoveWith(dto.MovementCreate{
		Date:    day.MustParse("2024-03-02"),
		EntryID: testutils.IDOf(s.cash),
		Amount:  decimal.NewFromInt(-40),
	})
	s.Equal(int64(10000), s.f.BalanceOn(s.cash.ID, "2024-03-01"))
	s.Equal(int64(6000), s.f.BalanceOn(s.cash.ID, "2024-03-02"))

	zero := 0
	s.f.MoveWith(dto.MovementCreate{
		Date:    day.MustParse("2024-03-01"),
		Ordinal: &zero,
		EntryID: testutils.IDOf(s.cash),
		Amount:  decimal.NewFromInt(10),
	})
	s.Equal(int64(11000), s.f.BalanceOn(s.cash.ID, "2024-03-01"))
	s.Equal(int64(7000), s.f.BalanceOn(s.cash.ID, "2024-03-02"))
	s.Equal(int64(0), s.f.BalanceOn(s.cash.ID, "2024-02-29"))
	s.f.AssertConsistent()
}

func (s *MovementTestSuite) TestNegativeAmountSwapsLegs() {
	m := s.f.MoveWith(dto.MovementCreate{
		Date:    day.MustParse("2024-03-01"),
		EntryID: testutils.IDOf(s.cash),
		ExitID:  testutils.IDOf(s.bank),
		Amount:  decimal.NewFromInt(-25),
	})
	s.Equal(s.bank.ID, *m.EntryID)
	s.Equal(s.cash.ID, *m.ExitID)
	s.True(m.Amount.IsPositive())
	s.Equal(int64(-2500), s.f.Latest(s.cash.ID))
	s.Equal(int64(2500), s.f.Latest(s.bank.ID))
}

func (s *MovementTestSuite) TestOrdinalsStayDense() {
	a := s.f.Move("2024-03-01", s.cash, nil, "1")
	b := s.f.Move("2024-03-01", s.cash, nil, "2")
	c := s.f.Move("2024-03-01", s.cash, nil, "3")
	s.Equal([]int{0, 1, 2}, []int{a.Ordinal, b.Ordinal, c.Ordinal})

	one := 1
	d := s.f.MoveWith(dto.MovementCreate{Date: day.MustParse("2024-03-01"), Ordinal: &one, EntryID: testutils.IDOf(s.cash), Amount: decimal.NewFromInt(4)})
	s.Equal(1, d.Ordinal)
	s.Equal(2, s.f.Reload(b).Ordinal)
	s.Equal(3, s.f.Reload(c).Ordinal)

	s.Require().NoError(s.f.MovementService.Delete(s.f.Ctx, b.ID))
	s.Equal([]int{0, 1, 2}, s.ordinals("2024-03-01"))
	s.Equal(2, s.f.Reload(c).Ordinal)

	lo, hi, n, err := s.f.MovementService.OrdinalRange(s.f.Ctx, day.MustParse("2024-03-01"))
	s.Require().NoError(err)
	s.Equal([]int{0, 2, 3}, []int{lo, hi, n})

	far := 9
	_, err = s.f.MovementService.Create(s.f.Ctx, dto.MovementCreate{Date: day.MustParse("2024-03-01"), Ordinal: &far, EntryID: testutils.IDOf(s.cash), Amount: decimal.NewFromInt(1)})
	s.ErrorIs(err, domain.ErrValidation)
	s.f.AssertConsistent()
}

func (s *MovementTestSuite) TestUpdateRepositions() {
	a := s.f.Move("2024-03-01", s.cash, nil, "10")
	b := s.f.Move("2024-03-01", s.cash, nil, "20")
	c := s.f.Move("2024-03-05", s.cash, nil, "30")
	d := s.f.Move("2024-03-05", s.cash, nil, "40")

	// later day: first of the day
	moved, err := s.f.MovementService.Update(s.f.Ctx, a.ID, dto.MovementUpdate{Date: date("2024-03-05")})
	s.Require().NoError(err)
	s.Equal(0, moved.Ordinal)
	s.Equal(1, s.f.Reload(c).Ordinal)
	s.Equal(0, s.f.Reload(b).Ordinal)
	s.Equal(int64(2000), s.f.BalanceOn(s.cash.ID, "2024-03-01"))
	s.Equal(int64(3000), s.f.BalanceAfter(s.cash.ID, moved))

	// earlier day: last of the day
	moved, err = s.f.MovementService.Update(s.f.Ctx, d.ID, dto.MovementUpdate{Date: date("2024-03-01")})
	s.Require().NoError(err)
	s.Equal(1, moved.Ordinal)
	s.Equal(int64(6000), s.f.BalanceOn(s.cash.ID, "2024-03-01"))
	s.Equal(int64(10000), s.f.BalanceOn(s.cash.ID, "2024-03-05"))

	// same day, explicit ordinal
	zero := 0
	moved, err = s.f.MovementService.Update(s.f.Ctx, d.ID, dto.MovementUpdate{Ordinal: &zero})
	s.Require().NoError(err)
	s.Equal(0, moved.Ordinal)
	s.Equal(int64(4000), s.f.BalanceAfter(s.cash.ID, moved))
	s.Equal([]int{0, 1}, s.ordinals("2024-03-01"))

	two := 2
	_, err = s.f.MovementService.Update(s.f.Ctx, d.ID, dto.MovementUpdate{Ordinal: &two})
	s.ErrorIs(err, domain.ErrValidation, "within the same day the last ordinal is n-1")
	s.f.AssertConsistent()
}

func (s *MovementTestSuite) TestUpdateAmountAndLegs() {
	m := s.f.Move("2024-03-01", s.cash, s.bank, "50")
	s.f.Move("2024-03-02", s.cash, nil, "5")

	_, err := s.f.MovementService.Update(s.f.Ctx, m.ID, dto.MovementUpdate{Amount: dec("70")})
	s.Require().NoError(err)
	s.Equal(int64(7500), s.f.Latest(s.cash.ID))
	s.Equal(int64(-7000), s.f.Latest(s.bank.ID))

	_, err = s.f.MovementService.Update(s.f.Ctx, m.ID, dto.MovementUpdate{ClearExit: true})
	s.Require().NoError(err)
	s.Equal(int64(0), s.f.Latest(s.bank.ID))
	s.Equal(int64(0), s.f.BalanceOn(s.bank.ID, "2024-03-01"))

	savings := s.f.Leaf(s.alice.ID, "savings", money.EUR, "")
	_, err = s.f.MovementService.Update(s.f.Ctx, m.ID, dto.MovementUpdate{EntryID: testutils.IDOf(savings)})
	s.Require().NoError(err)
	s.Equal(int64(500), s.f.Latest(s.cash.ID))
	s.Equal(int64(7000), s.f.Latest(savings.ID))
	s.f.AssertConsistent()
}

func (s *MovementTestSuite) TestConceptEditLeavesBalances() {
	m := s.f.Move("2024-03-01", s.cash, nil, "50")
	updated, err := s.f.MovementService.Update(s.f.Ctx, m.ID, dto.MovementUpdate{Concept: ptr("groceries"), Detail: ptr("market")})
	s.Require().NoError(err)
	s.Equal("groceries", updated.Concept)
	s.Equal("groceries", s.f.Reload(m).Concept)
	s.Equal(int64(5000), s.f.Latest(s.cash.ID))
	s.f.AssertConsistent()
}

func (s *MovementTestSuite) TestDelete() {
	m := s.f.Move("2024-03-01", s.cash, s.bank, "50")
	s.Require().NoError(s.f.MovementService.Delete(s.f.Ctx, m.ID))
	s.Equal(int64(0), s.f.Latest(s.cash.ID))
	_, err := s.f.MovementService.Get(s.f.Ctx, m.ID)
	s.ErrorIs(err, domain.ErrNotFound)
	s.ErrorIs(s.f.MovementService.Delete(s.f.Ctx, m.ID), domain.ErrNotFound)
	s.f.AssertConsistent()
}

func (s *MovementTestSuite) TestLegRules() {
	_, err := s.f.MovementService.Create(s.f.Ctx, dto.MovementCreate{Date: day.MustParse("2024-03-01"), Amount: decimal.NewFromInt(1)})
	s.ErrorIs(err, domain.ErrValidation, "no legs")

	_, err = s.f.MovementService.Create(s.f.Ctx, dto.MovementCreate{Date: day.MustParse("2024-03-01"), EntryID: testutils.IDOf(s.cash), ExitID: testutils.IDOf(s.cash), Amount: decimal.NewFromInt(1)})
	s.ErrorIs(err, domain.ErrValidation, "same legs")

	_, err = s.f.MovementService.Create(s.f.Ctx, dto.MovementCreate{Date: day.MustParse("2024-03-01"), EntryID: testutils.IDOf(s.cash), Amount: decimal.Zero})
	s.ErrorIs(err, domain.ErrValidation, "zero amount")

	s.Require().NoError(s.f.AccountService.Deactivate(s.f.Ctx, s.bank.ID))
	_, err = s.f.MovementService.Create(s.f.Ctx, dto.MovementCreate{Date: day.MustParse("2024-03-01"), EntryID: testutils.IDOf(s.bank), Amount: decimal.NewFromInt(1)})
	s.ErrorIs(err, domain.ErrValidation, "inactive account")

	s.f.Move("2024-03-01", s.cash, nil, "10")
	_, err = s.f.AccountService.Split(s.f.Ctx, s.cash.ID, dto.AccountSplit{
		AsOf:     day.MustParse("2024-03-01"),
		Children: []dto.ChildSpec{{Key: "cash:wallet", OpeningBalance: decimal.NewFromInt(10)}},
	})
	s.Require().NoError(err)
	_, err = s.f.MovementService.Create(s.f.Ctx, dto.MovementCreate{Date: day.MustParse("2024-03-02"), EntryID: testutils.IDOf(s.cash), Amount: decimal.NewFromInt(1)})
	s.ErrorIs(err, domain.ErrInvalidAccountOperation, "branch leg")
}

func (s *MovementTestSuite) TestAutomaticMovementsAreReadOnly() {
	s.f.Move("2024-03-01", s.cash, nil, "10")
	_, err := s.f.AccountService.Split(s.f.Ctx, s.cash.ID, dto.AccountSplit{
		AsOf:     day.MustParse("2024-03-01"),
		Children: []dto.ChildSpec{{Key: "cash:wallet", OpeningBalance: decimal.NewFromInt(10)}},
	})
	s.Require().NoError(err)
	ms, err := s.f.MovementService.ByDay(s.f.Ctx, day.MustParse("2024-03-01"))
	s.Require().NoError(err)
	s.Require().Len(ms, 2)
	transfer := ms[1]
	s.True(transfer.Automatic)
	s.Equal(movement.KindConversion, transfer.Kind)

	_, err = s.f.MovementService.Update(s.f.Ctx, transfer.ID, dto.MovementUpdate{Concept: ptr("x")})
	s.ErrorIs(err, domain.ErrAutomaticMovement)
	s.ErrorIs(s.f.MovementService.Delete(s.f.Ctx, transfer.ID), domain.ErrAutomaticMovement)
}

func (s *MovementTestSuite) TestSameCurrencyForcesRateOne() {
	m := s.f.MoveWith(dto.MovementCreate{
		Date:    day.MustParse("2024-03-01"),
		EntryID: testutils.IDOf(s.cash),
		ExitID:  testutils.IDOf(s.bank),
		Amount:  decimal.NewFromInt(10),
		Rate:    dec("3"),
	})
	s.True(m.Rate.Equal(decimal.NewFromInt(1)))
	s.False(m.RateOverridden)
	s.Equal(m.EntryAmount, m.ExitAmount)

	updated, err := s.f.MovementService.Update(s.f.Ctx, m.ID, dto.MovementUpdate{Rate: dec("2")})
	s.Require().NoError(err)
	s.True(updated.Rate.Equal(decimal.NewFromInt(1)))
	s.Equal(int64(1000), s.f.Latest(s.cash.ID))
}

func (s *MovementTestSuite) TestCrossCurrency() {
	usd := s.f.Leaf(s.alice.ID, "usd", money.USD, "")
	s.f.Rate(money.USD, "2024-01-01", "0.90", "0.92")
	s.f.Rate(money.USD, "2024-03-10", "0.80", "0.80")

	// EUR exit, USD entry: priced in EUR, the entry leg acquires USD.
	m := s.f.MoveWith(dto.MovementCreate{
		Date:    day.MustParse("2024-03-01"),
		EntryID: testutils.IDOf(usd),
		ExitID:  testutils.IDOf(s.bank),
		Amount:  decimal.NewFromInt(100),
	})
	s.Equal(money.EUR, m.Amount.CurrencyCode())
	s.False(m.RateOverridden)
	s.True(m.Rate.Equal(decimal.NewFromInt(1).DivRound(decimal.RequireFromString("0.92"), 10)), m.Rate.String())
	s.Equal(int64(10870), s.f.Latest(usd.ID))
	s.Equal(int64(-10000), s.f.Latest(s.bank.ID))

	// amount only: the looked up rate is kept
	_, err := s.f.MovementService.Update(s.f.Ctx, m.ID, dto.MovementUpdate{Amount: dec("200")})
	s.Require().NoError(err)
	s.Equal(int64(21739), s.f.Latest(usd.ID))

	// new date: looked up again
	moved, err := s.f.MovementService.Update(s.f.Ctx, m.ID, dto.MovementUpdate{Date: date("2024-03-10")})
	s.Require().NoError(err)
	s.True(moved.Rate.Equal(decimal.RequireFromString("1.25")), moved.Rate.String())
	s.Equal(int64(25000), s.f.Latest(usd.ID))

	// counter amount derives the rate and sticks across date changes
	fixed, err := s.f.MovementService.Update(s.f.Ctx, m.ID, dto.MovementUpdate{CounterAmount: dec("210")})
	s.Require().NoError(err)
	s.True(fixed.RateOverridden)
	s.True(fixed.Rate.Equal(decimal.RequireFromString("1.05")), fixed.Rate.String())
	fixed, err = s.f.MovementService.Update(s.f.Ctx, m.ID, dto.MovementUpdate{Date: date("2024-03-02")})
	s.Require().NoError(err)
	s.True(fixed.Rate.Equal(decimal.RequireFromString("1.05")))
	s.Equal(int64(21000), s.f.Latest(usd.ID))

	// explicit rate, priced in the entry currency
	other := s.f.MoveWith(dto.MovementCreate{
		Date:     day.MustParse("2024-03-01"),
		EntryID:  testutils.IDOf(usd),
		ExitID:   testutils.IDOf(s.cash),
		Amount:   decimal.NewFromInt(10),
		Currency: "USD",
		Rate:     dec("0.5"),
	})
	s.Equal(money.USD, other.Amount.CurrencyCode())
	s.Equal(int64(1000), other.EntryAmount)
	s.Equal(int64(500), other.ExitAmount)

	_, err = s.f.MovementService.Create(s.f.Ctx, dto.MovementCreate{
		Date:     day.MustParse("2024-03-01"),
		EntryID:  testutils.IDOf(usd),
		ExitID:   testutils.IDOf(s.cash),
		Amount:   decimal.NewFromInt(10),
		Currency: "GBP",
	})
	s.ErrorIs(err, domain.ErrValidation, "currency must match a leg")

	_, err = s.f.MovementService.Create(s.f.Ctx, dto.MovementCreate{
		Date:    day.MustParse("2023-06-01"),
		EntryID: testutils.IDOf(usd),
		ExitID:  testutils.IDOf(s.cash),
		Amount:  decimal.NewFromInt(10),
	})
	s.ErrorIs(err, domain.ErrCurrencyResolution)
	s.f.AssertConsistent()
}

func (s *MovementTestSuite) TestByHolderDeduplicates() {
	s.f.Move("2024-03-01", s.cash, s.bank, "5")
	s.f.Move("2024-03-02", s.cash, nil, "5")
	bob := s.f.Holder("bob")
	s.f.Leaf(bob.ID, "bob:cash", money.EUR, "7")

	ms, err := s.f.MovementService.ByHolder(s.f.Ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Len(ms, 2)
}

// TestRandomEditsStayConsistent runs a fixed pseudo-random sequence of
// creates, updates and deletes over a small tree with two holders and then
// checks every stored row against the ledger.
func (s *MovementTestSuite) TestRandomEditsStayConsistent() {
	bob := s.f.Holder("bob")
	bobCash := s.f.Leaf(bob.ID, "bob:cash", money.EUR, "100")
	s.f.Move("2024-02-01", s.bank, nil, "300")
	_, err := s.f.AccountService.Split(s.f.Ctx, s.bank.ID, dto.AccountSplit{
		AsOf: day.MustParse("2024-02-01"),
		Children: []dto.ChildSpec{
			{Key: "bank:current", OpeningBalance: decimal.NewFromInt(200)},
			{Key: "bank:savings", OpeningBalance: decimal.NewFromInt(100)},
		},
	})
	s.Require().NoError(err)
	current, err := s.f.AccountService.GetByKey(s.f.Ctx, "bank:current")
	s.Require().NoError(err)
	savings, err := s.f.AccountService.GetByKey(s.f.Ctx, "bank:savings")
	s.Require().NoError(err)

	leaves := []*account.Account{s.cash, current, savings, bobCash}
	rng := rand.New(rand.NewSource(42))
	pick := func() *account.Account { return leaves[rng.Intn(len(leaves))] }
	var live []*movement.Movement

	for i := 0; i < 60; i++ {
		d := day.MustParse("2024-03-01").AddDays(rng.Intn(6))
		switch op := rng.Intn(10); {
		case op < 5 || len(live) == 0:
			entry, exit := pick(), pick()
			if entry.ID == exit.ID {
				exit = nil
			}
			in := dto.MovementCreate{
				Date:    d,
				EntryID: testutils.IDOf(entry),
				ExitID:  testutils.IDOf(exit),
				Amount:  decimal.NewFromInt(int64(rng.Intn(200) - 50)),
				Gift:    rng.Intn(4) == 0,
			}
			if in.Amount.IsZero() {
				in.Amount = decimal.NewFromInt(1)
			}
			if n := len(s.ordinals(d.String())); n > 0 && rng.Intn(2) == 0 {
				o := rng.Intn(n + 1)
				in.Ordinal = &o
			}
			live = append(live, s.f.MoveWith(in))
		case op < 8:
			idx := rng.Intn(len(live))
			in := dto.MovementUpdate{}
			switch rng.Intn(4) {
			case 0:
				in.Date = &d
			case 1:
				in.Amount = dec(decimal.NewFromInt(int64(rng.Intn(90) + 1)).String())
			case 2:
				if e := pick(); live[idx].ExitID == nil || *live[idx].ExitID != e.ID {
					in.EntryID = testutils.IDOf(e)
				}
			default:
				g := rng.Intn(2) == 0
				in.Gift = &g
			}
			m, err := s.f.MovementService.Update(s.f.Ctx, live[idx].ID, in)
			s.Require().NoError(err, "step %d", i)
			live[idx] = m
		default:
			idx := rng.Intn(len(live))
			s.Require().NoError(s.f.MovementService.Delete(s.f.Ctx, live[idx].ID), "step %d", i)
			live = append(live[:idx], live[idx+1:]...)
		}
	}

	s.f.AssertConsistent()
	for i := 0; i < 7; i++ {
		d := day.MustParse("2024-03-01").AddDays(i).String()
		s.Equal(s.f.BalanceOn(current.ID, d)+s.f.BalanceOn(savings.ID, d), s.f.BalanceOn(s.bank.ID, d), "rollup on %s", d)
		ords := s.ordinals(d)
		for want, got := range ords {
			s.Equal(want, got, "dense ordinals on %s", d)
		}
	}
	debt, err := s.f.HolderService.DebtWith(s.f.Ctx, s.alice.ID, bob.ID)
	s.Require().NoError(err)
	back, err := s.f.HolderService.DebtWith(s.f.Ctx, bob.ID, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(debt.Amount(), -back.Amount(), "credit symmetry")
}

func ptr[T any](v T) *T { return &v }

func TestMovementTestSuite(t *testing.T) {
	suite.Run(t, new(MovementTestSuite))
}
