package maintenance_test

import (
	"testing"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/testutils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type MaintenanceTestSuite struct {
	suite.Suite
	f          *testutils.Fixture
	cash, bank *account.Account
	first      *movement.Movement
	last       *movement.Movement
}

func (s *MaintenanceTestSuite) SetupTest() {
	s.f = testutils.NewFixture(s.T())
	alice, bob := s.f.Holder("alice"), s.f.Holder("bob")
	s.cash = s.f.Leaf(alice.ID, "cash", money.EUR, "100")
	s.bank = s.f.Leaf(alice.ID, "bank", money.EUR, "")
	bobCash := s.f.Leaf(bob.ID, "bob:cash", money.EUR, "")
	s.first = s.f.Move("2024-03-01", s.bank, s.cash, "10")
	s.f.Move("2024-03-03", bobCash, s.cash, "20")
	s.last = s.f.Move("2024-03-05", s.cash, nil, "5")
}

func (s *MaintenanceTestSuite) corruptSnapshot(accountID uuid.UUID, m *movement.Movement, bal money.Amount) {
	repo, err := s.f.Deps.Uow.SnapshotRepository()
	s.Require().NoError(err)
	s.Require().NoError(repo.Put(s.f.Ctx, balance.Snapshot{
		AccountID:  accountID,
		MovementID: m.ID,
		Date:       m.Date,
		Ordinal:    m.Ordinal,
		Balance:    bal,
	}))
}

func (s *MaintenanceTestSuite) dropDaily(accountID uuid.UUID, d string) {
	repo, err := s.f.Deps.Uow.DailyRepository()
	s.Require().NoError(err)
	s.Require().NoError(repo.Delete(s.f.Ctx, accountID, day.MustParse(d)))
}

func (s *MaintenanceTestSuite) TestConsistentLedgerIsLeftAlone() {
	accounts, err := s.f.AccountService.List(s.f.Ctx, nil)
	s.Require().NoError(err)

	for i := 0; i < 2; i++ {
		report, err := s.f.MaintenanceService.RecomputeAll(s.f.Ctx)
		s.Require().NoError(err)
		s.Empty(report.Drift)
		s.Equal(len(accounts), report.Accounts)
		s.Require().NotNil(report.Last)
	}
	s.f.AssertConsistent()
}

func (s *MaintenanceTestSuite) TestVerifyFindsAndRecomputeFixes() {
	s.corruptSnapshot(s.cash.ID, s.first, 12345)
	s.dropDaily(s.cash.ID, "2024-03-03")

	report, err := s.f.MaintenanceService.Verify(s.f.Ctx, nil)
	s.ErrorIs(err, domain.ErrDriftDetected)
	s.Require().Len(report.Drift, 2)
	var missing, wrong int
	for _, d := range report.Drift {
		s.Equal(s.cash.ID, d.AccountID)
		switch {
		case d.Daily():
			s.Nil(d.Stored)
			s.Equal(day.MustParse("2024-03-03"), d.Date)
			missing++
		default:
			s.Equal(int64(12345), *d.Stored)
			s.Equal(int64(9000), *d.Expected)
			wrong++
		}
	}
	s.Equal(1, missing)
	s.Equal(1, wrong)

	// verifying does not repair
	_, err = s.f.MaintenanceService.Verify(s.f.Ctx, &s.cash.ID)
	s.ErrorIs(err, domain.ErrDriftDetected)

	report, err = s.f.MaintenanceService.RecomputeDaily(s.f.Ctx, &s.cash.ID, nil)
	s.Require().NoError(err)
	s.Equal(1, report.Accounts)
	s.Len(report.Drift, 2)
	s.Equal(s.cash.ID, *report.Last)

	s.f.AssertConsistent()
	s.Equal(int64(9000), s.f.BalanceAfter(s.cash.ID, s.first))
	s.Equal(int64(7000), s.f.BalanceOn(s.cash.ID, "2024-03-03"))
}

func (s *MaintenanceTestSuite) TestRecomputeFromTrustsEarlierRows() {
	s.corruptSnapshot(s.cash.ID, s.first, 1)
	s.corruptSnapshot(s.cash.ID, s.last, 2)

	report, err := s.f.MaintenanceService.RecomputeDaily(s.f.Ctx, nil, date("2024-03-04"))
	s.Require().NoError(err)
	s.Len(report.Drift, 1)
	s.Equal(int64(7500), s.f.BalanceAfter(s.cash.ID, s.last))

	report, err = s.f.MaintenanceService.Verify(s.f.Ctx, nil)
	s.ErrorIs(err, domain.ErrDriftDetected)
	s.Len(report.Drift, 1, "rows before the restart point stay as they were")

	_, err = s.f.MaintenanceService.RecomputeAll(s.f.Ctx)
	s.Require().NoError(err)
	s.f.AssertConsistent()
}

func (s *MaintenanceTestSuite) TestBranchesAfterChildren() {
	_, err := s.f.AccountService.Split(s.f.Ctx, s.bank.ID, dto.AccountSplit{
		AsOf:     day.MustParse("2024-03-05"),
		Children: []dto.ChildSpec{{Key: "bank:current", OpeningBalance: decimal.NewFromInt(10)}},
	})
	s.Require().NoError(err)
	report, err := s.f.MaintenanceService.RecomputeAll(s.f.Ctx)
	s.Require().NoError(err)
	s.Empty(report.Drift)

	accounts, err := s.f.AccountService.List(s.f.Ctx, nil)
	s.Require().NoError(err)
	s.Equal(len(accounts), report.Accounts)
	last, err := s.f.AccountService.Get(s.f.Ctx, *report.Last)
	s.Require().NoError(err)
	s.Nil(last.ParentID, "roots are rebuilt last")
}

func (s *MaintenanceTestSuite) TestUnknownAccount() {
	_, err := s.f.MaintenanceService.RecomputeDaily(s.f.Ctx, &uuid.Nil, nil)
	s.ErrorIs(err, domain.ErrNotFound)
}

func date(v string) *day.Date {
	d := day.MustParse(v)
	return &d
}

func TestMaintenanceTestSuite(t *testing.T) {
	suite.Run(t, new(MaintenanceTestSuite))
}
