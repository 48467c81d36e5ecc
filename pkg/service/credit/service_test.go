package credit_test

import (
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

type CreditTestSuite struct {
	suite.Suite
	f          *testutils.Fixture
	alice, bob *holder.Holder
	aliceCash  *account.Account
	bobCash    *account.Account
}

func (s *CreditTestSuite) SetupTest() {
	s.f = testutils.NewFixture(s.T())
	s.alice = s.f.Holder("alice")
	s.bob = s.f.Holder("bob")
	s.aliceCash = s.f.Leaf(s.alice.ID, "alice:cash", money.EUR, "500")
	s.bobCash = s.f.Leaf(s.bob.ID, "bob:cash", money.EUR, "500")
}

// pay moves amount from payer's account into receiver's.
func (s *CreditTestSuite) pay(date string, from, to *account.Account, amount string) *movement.Movement {
	return s.f.Move(date, to, from, amount)
}

func (s *CreditTestSuite) owes(debtor, creditor *holder.Holder) money.Amount {
	debt, err := s.f.CreditService.DebtWith(s.f.Ctx, debtor.ID, creditor.ID)
	s.Require().NoError(err)
	back, err := s.f.CreditService.DebtWith(s.f.Ctx, creditor.ID, debtor.ID)
	s.Require().NoError(err)
	s.Equal(debt.Amount(), -back.Amount(), "both sides of a pair mirror each other")
	return debt.Amount()
}

func (s *CreditTestSuite) counter(m *movement.Movement) *movement.Movement {
	m = s.f.Reload(m)
	s.Require().NotNil(m.CounterMovementID, "movement has no counter-movement")
	c, err := s.f.MovementService.Get(s.f.Ctx, *m.CounterMovementID)
	s.Require().NoError(err)
	return c
}

func (s *CreditTestSuite) TestLoanAndRepayment() {
	loan := s.pay("2024-03-01", s.aliceCash, s.bobCash, "50")
	s.Equal(int64(5000), s.owes(s.bob, s.alice))

	c := s.counter(loan)
	s.True(c.Automatic)
	s.Equal(movement.KindCredit, c.Kind)
	s.Equal(loan.Ordinal+1, c.Ordinal)
	s.Equal(loan.Date, c.Date)
	s.Equal("bob owes alice", c.Concept)
	s.Equal(loan.ID, *c.CounterMovementID)

	aliceClaim, bobClaim, err := s.f.CreditService.Pair(s.f.Ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.Equal(*c.EntryID, aliceClaim.ID)
	s.Equal(*c.ExitID, bobClaim.ID)
	s.Equal("credit:alice:bob", aliceClaim.Key)
	s.Equal("credit:bob:alice", bobClaim.Key)
	s.True(aliceClaim.Active)

	rels, err := s.f.HolderService.Relations(s.f.Ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Require().Len(rels, 1)
	s.Equal(s.bob.ID, rels[0].Debtor)
	s.Equal(s.alice.ID, rels[0].Creditor)
	s.Equal(int64(5000), rels[0].Amount.Amount())

	repay := s.pay("2024-03-02", s.bobCash, s.aliceCash, "50")
	s.Equal("bob settles a debt with alice", s.counter(repay).Concept)
	s.Equal(int64(0), s.owes(s.bob, s.alice))

	aliceClaim, bobClaim, err = s.f.CreditService.Pair(s.f.Ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.False(aliceClaim.Active)
	s.False(bobClaim.Active)
	rels, err = s.f.HolderService.Relations(s.f.Ctx, s.bob.ID)
	s.Require().NoError(err)
	s.Empty(rels)

	s.pay("2024-03-03", s.aliceCash, s.bobCash, "5")
	aliceClaim, _, err = s.f.CreditService.Pair(s.f.Ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.True(aliceClaim.Active, "a new debt reactivates the pair")
	s.f.AssertConsistent()
}

func (s *CreditTestSuite) TestClassificationConcepts() {
	s.pay("2024-03-01", s.aliceCash, s.bobCash, "50")
	more := s.pay("2024-03-02", s.aliceCash, s.bobCash, "10")
	s.Equal("bob owes alice more", s.counter(more).Concept)

	part := s.pay("2024-03-03", s.bobCash, s.aliceCash, "20")
	s.Equal("bob repays part of a debt to alice", s.counter(part).Concept)
	s.Equal(int64(4000), s.owes(s.bob, s.alice))

	over := s.pay("2024-03-04", s.bobCash, s.aliceCash, "100")
	s.Equal("bob overpays alice; alice now owes", s.counter(over).Concept)
	s.Equal(int64(6000), s.owes(s.alice, s.bob))
	s.f.AssertConsistent()
}

func (s *CreditTestSuite) TestCounterFollowsTheDay() {
	loan := s.pay("2024-03-01", s.aliceCash, s.bobCash, "50")
	zero := 0
	s.f.MoveWith(dto.MovementCreate{
		Date:    day.MustParse("2024-03-01"),
		Ordinal: &zero,
		EntryID: testutils.IDOf(s.aliceCash),
		Amount:  decimal.NewFromInt(1),
	})
	loan = s.f.Reload(loan)
	s.Equal(1, loan.Ordinal)
	s.Equal(2, s.counter(loan).Ordinal)
	s.f.AssertConsistent()
}

func (s *CreditTestSuite) TestSensitiveEditsRegenerate() {
	loan := s.pay("2024-03-01", s.aliceCash, s.bobCash, "50")
	first := s.counter(loan)

	_, err := s.f.MovementService.Update(s.f.Ctx, loan.ID, dto.MovementUpdate{Concept: ptr("rent share")})
	s.Require().NoError(err)
	s.Equal(first.ID, s.counter(loan).ID, "a concept edit keeps the counter-movement")

	_, err = s.f.MovementService.Update(s.f.Ctx, loan.ID, dto.MovementUpdate{Amount: dec("80")})
	s.Require().NoError(err)
	second := s.counter(loan)
	s.NotEqual(first.ID, second.ID)
	s.Equal(int64(8000), second.Amount.Amount())
	s.Equal(int64(8000), s.owes(s.bob, s.alice))
	_, err = s.f.MovementService.Get(s.f.Ctx, first.ID)
	s.ErrorIs(err, domain.ErrNotFound)

	moved, err := s.f.MovementService.Update(s.f.Ctx, loan.ID, dto.MovementUpdate{Date: date("2024-03-05")})
	s.Require().NoError(err)
	third := s.counter(loan)
	s.Equal(moved.Date, third.Date)
	s.Equal(moved.Ordinal+1, third.Ordinal)

	carol := s.f.Holder("carol")
	carolCash := s.f.Leaf(carol.ID, "carol:cash", money.EUR, "")
	_, err = s.f.MovementService.Update(s.f.Ctx, loan.ID, dto.MovementUpdate{EntryID: testutils.IDOf(carolCash)})
	s.Require().NoError(err)
	s.Equal(int64(0), s.owes(s.bob, s.alice))
	s.Equal(int64(8000), s.owes(carol, s.alice))

	mine := s.f.Leaf(s.alice.ID, "alice:savings", money.EUR, "")
	_, err = s.f.MovementService.Update(s.f.Ctx, loan.ID, dto.MovementUpdate{EntryID: testutils.IDOf(mine)})
	s.Require().NoError(err)
	s.Nil(s.f.Reload(loan).CounterMovementID, "a movement within one holder has no counter")
	s.Equal(int64(0), s.owes(carol, s.alice))
	s.f.AssertConsistent()
}

func (s *CreditTestSuite) TestGift() {
	gift := s.f.MoveWith(dto.MovementCreate{
		Date:    day.MustParse("2024-03-01"),
		EntryID: testutils.IDOf(s.bobCash),
		ExitID:  testutils.IDOf(s.aliceCash),
		Amount:  decimal.NewFromInt(30),
		Gift:    true,
	})
	s.Nil(gift.CounterMovementID)
	s.Equal(int64(0), s.owes(s.bob, s.alice))
	_, _, err := s.f.CreditService.Pair(s.f.Ctx, s.alice.ID, s.bob.ID)
	s.ErrorIs(err, domain.ErrNotFound)

	_, err = s.f.MovementService.Update(s.f.Ctx, gift.ID, dto.MovementUpdate{Gift: ptr(false)})
	s.Require().NoError(err)
	s.Equal(int64(3000), s.owes(s.bob, s.alice))

	_, err = s.f.MovementService.Update(s.f.Ctx, gift.ID, dto.MovementUpdate{Gift: ptr(true)})
	s.Require().NoError(err)
	s.Nil(s.f.Reload(gift).CounterMovementID)
	s.Equal(int64(0), s.owes(s.bob, s.alice))
	s.f.AssertConsistent()
}

func (s *CreditTestSuite) TestDeleteRemovesCounter() {
	loan := s.pay("2024-03-01", s.aliceCash, s.bobCash, "50")
	c := s.counter(loan)
	s.Require().NoError(s.f.MovementService.Delete(s.f.Ctx, loan.ID))
	_, err := s.f.MovementService.Get(s.f.Ctx, c.ID)
	s.ErrorIs(err, domain.ErrNotFound)
	s.Equal(int64(0), s.owes(s.bob, s.alice))
	aliceClaim, _, err := s.f.CreditService.Pair(s.f.Ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.False(aliceClaim.Active)
	s.f.AssertConsistent()
}

func (s *CreditTestSuite) TestCounterAndCreditAccountsAreProtected() {
	loan := s.pay("2024-03-01", s.aliceCash, s.bobCash, "50")
	c := s.counter(loan)

	_, err := s.f.MovementService.Update(s.f.Ctx, c.ID, dto.MovementUpdate{Amount: dec("1")})
	s.ErrorIs(err, domain.ErrAutomaticMovement)
	s.ErrorIs(s.f.MovementService.Delete(s.f.Ctx, c.ID), domain.ErrAutomaticMovement)

	aliceClaim, _, err := s.f.CreditService.Pair(s.f.Ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	_, err = s.f.MovementService.Create(s.f.Ctx, dto.MovementCreate{
		Date:    day.MustParse("2024-03-02"),
		EntryID: testutils.IDOf(aliceClaim),
		Amount:  decimal.NewFromInt(1),
	})
	s.ErrorIs(err, domain.ErrInvalidAccountOperation)
	s.ErrorIs(s.f.AccountService.Deactivate(s.f.Ctx, aliceClaim.ID), domain.ErrInvalidAccountOperation)
}

func (s *CreditTestSuite) TestPairTakesTheMovementCurrency() {
	s.f.Rate(money.USD, "2024-01-01", "0.90", "0.92")
	dollars := s.f.Leaf(s.alice.ID, "alice:usd", money.USD, "")
	// priced in the exit leg's USD
	s.f.Move("2024-03-01", s.bobCash, dollars, "100")

	debt, err := s.f.CreditService.DebtWith(s.f.Ctx, s.bob.ID, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(money.USD, debt.CurrencyCode())
	s.Equal(int64(10000), debt.Amount())

	// later payments in EUR are converted into the pair currency
	s.pay("2024-03-02", s.bobCash, s.aliceCash, "46")
	debt, err = s.f.CreditService.DebtWith(s.f.Ctx, s.bob.ID, s.alice.ID)
	s.Require().NoError(err)
	s.Equal(int64(5000), debt.Amount())
	s.f.AssertConsistent()
}

func (s *CreditTestSuite) TestStrangersOweNothing() {
	debt, err := s.f.CreditService.DebtWith(s.f.Ctx, s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.True(debt.IsZero())
	s.Equal(money.EUR, debt.CurrencyCode())
}

func ptr[T any](v T) *T { return &v }

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func date(v string) *day.Date {
	d := day.MustParse(v)
	return &d
}

func TestCreditTestSuite(t *testing.T) {
	suite.Run(t, new(CreditTestSuite))
}
