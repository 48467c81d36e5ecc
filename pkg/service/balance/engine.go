// Package balance keeps the derived balance tables in step with the
// movement ledger.
//
// Two tables are maintained for every account that a movement touches,
// directly or through a descendant:
//
//   - balance_snapshots: the running balance right after each movement;
//   - daily_snapshots: the running balance at the end of each day with
//     activity.
//
// Both are updated incrementally. Apply seeds the row of the new movement
// from the nearest earlier row and adds the movement's delta to that row and
// every later one; Undo subtracts it again and drops the rows the movement
// owned. Rebuild recomputes an account's rows straight from the ledger and
// reports where the stored rows disagreed.
//
// The Engine never opens a transaction of its own: callers pass the unit of
// work of the cascade they are running, so a failure anywhere rolls back the
// ledger and the derived rows together.
package balance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
)

// Engine maintains per-movement and per-day balance rows.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a balance engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With("service", "Balance")}
}

type delta struct {
	accountID uuid.UUID
	amount    money.Amount
}

// deltas folds the leg effects of m into one signed change per account,
// leg accounts first, each followed by its ancestors.
func (e *Engine) deltas(ctx context.Context, uow repository.UnitOfWork, m *movement.Movement) ([]delta, error) {
	accounts, err := uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	idx := map[uuid.UUID]int{}
	var out []delta
	for _, eff := range m.Effects() {
		anc, err := accounts.Ancestors(ctx, eff.AccountID)
		if err != nil {
			return nil, fmt.Errorf("lineage of %s: %w", eff.AccountID, err)
		}
		ids := make([]uuid.UUID, 0, len(anc)+1)
		ids = append(ids, eff.AccountID)
		for _, a := range anc {
			ids = append(ids, a.ID)
		}
		for _, id := range ids {
			if i, ok := idx[id]; ok {
				out[i].amount += eff.Delta
				continue
			}
			idx[id] = len(out)
			out = append(out, delta{accountID: id, amount: eff.Delta})
		}
	}
	return out, nil
}

// Affected returns the accounts whose rows m changes: its legs and all of
// their ancestors.
func (e *Engine) Affected(ctx context.Context, uow repository.UnitOfWork, m *movement.Movement) ([]uuid.UUID, error) {
	ds, err := e.deltas(ctx, uow, m)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(ds))
	for _, d := range ds {
		ids = append(ids, d.accountID)
	}
	return ids, nil
}

// Apply adds the effects of m, which must already be stored at its final
// position, to the balance rows.
func (e *Engine) Apply(ctx context.Context, uow repository.UnitOfWork, m *movement.Movement) error {
	ds, err := e.deltas(ctx, uow, m)
	if err != nil {
		return err
	}
	snaps, err := uow.SnapshotRepository()
	if err != nil {
		return err
	}
	daily, err := uow.DailyRepository()
	if err != nil {
		return err
	}
	for _, d := range ds {
		if err := snaps.Ensure(ctx, d.accountID, m); err != nil {
			return err
		}
		if err := snaps.AddFrom(ctx, d.accountID, m.Position(), true, d.amount); err != nil {
			return err
		}
		if err := daily.Ensure(ctx, d.accountID, m.DayID, m.Date); err != nil {
			return err
		}
		if err := daily.AddFrom(ctx, d.accountID, m.Date, d.amount); err != nil {
			return err
		}
	}
	e.logger.Debug("movement applied", "movement_id", m.ID, "accounts", len(ds))
	return nil
}

// Undo removes the effects of m, which must still be stored at the position
// it was applied at. The rows of m are deleted, as is any daily row left
// without a movement on its day.
func (e *Engine) Undo(ctx context.Context, uow repository.UnitOfWork, m *movement.Movement) error {
	ds, err := e.deltas(ctx, uow, m)
	if err != nil {
		return err
	}
	snaps, err := uow.SnapshotRepository()
	if err != nil {
		return err
	}
	daily, err := uow.DailyRepository()
	if err != nil {
		return err
	}
	for _, d := range ds {
		if err := snaps.AddFrom(ctx, d.accountID, m.Position(), false, -d.amount); err != nil {
			return err
		}
		if err := daily.AddFrom(ctx, d.accountID, m.Date, -d.amount); err != nil {
			return err
		}
	}
	if err := snaps.DeleteMovement(ctx, m.ID); err != nil {
		return err
	}
	for _, d := range ds {
		n, err := snaps.CountOnDate(ctx, d.accountID, m.Date)
		if err != nil {
			return err
		}
		if n == 0 {
			if err := daily.Delete(ctx, d.accountID, m.Date); err != nil {
				return err
			}
		}
	}
	e.logger.Debug("movement undone", "movement_id", m.ID, "accounts", len(ds))
	return nil
}

// BalanceAt returns the balance of an account at a point in the ledger:
// right after a movement, at the end of a day, or now. An account with no
// activity up to the point has a zero balance.
func (e *Engine) BalanceAt(ctx context.Context, uow repository.UnitOfWork, accountID uuid.UUID, at balance.Point) (money.Amount, error) {
	switch {
	case at.MovementID != nil:
		movements, err := uow.MovementRepository()
		if err != nil {
			return 0, err
		}
		m, err := movements.Get(ctx, *at.MovementID)
		if err != nil {
			return 0, err
		}
		snaps, err := uow.SnapshotRepository()
		if err != nil {
			return 0, err
		}
		bal, _, err := snaps.At(ctx, accountID, m.Position(), true)
		return bal, err
	case at.Date != nil:
		daily, err := uow.DailyRepository()
		if err != nil {
			return 0, err
		}
		bal, _, err := daily.At(ctx, accountID, *at.Date)
		return bal, err
	default:
		return e.Latest(ctx, uow, accountID)
	}
}

// DateOf returns the calendar date of a point: the day itself, the
// movement's day, or today.
func (e *Engine) DateOf(ctx context.Context, uow repository.UnitOfWork, at balance.Point) (day.Date, error) {
	switch {
	case at.MovementID != nil:
		movements, err := uow.MovementRepository()
		if err != nil {
			return day.Date{}, err
		}
		m, err := movements.Get(ctx, *at.MovementID)
		if err != nil {
			return day.Date{}, err
		}
		return m.Date, nil
	case at.Date != nil:
		return *at.Date, nil
	default:
		return day.Today(), nil
	}
}

// Latest returns the current balance of an account.
func (e *Engine) Latest(ctx context.Context, uow repository.UnitOfWork, accountID uuid.UUID) (money.Amount, error) {
	daily, err := uow.DailyRepository()
	if err != nil {
		return 0, err
	}
	bal, _, err := daily.Latest(ctx, accountID)
	return bal, err
}

// Rebuild recomputes both balance tables of one account from the ledger
// and returns every row that differed. Rows before from are compared and
// left alone. With dryRun the stored rows are not touched.
//
// Running Rebuild twice in a row reports no drift the second time.
func (e *Engine) Rebuild(
	ctx context.Context,
	uow repository.UnitOfWork,
	accountID uuid.UUID,
	from *day.Date,
	dryRun bool,
) ([]balance.Drift, error) {
	accounts, err := uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	movements, err := uow.MovementRepository()
	if err != nil {
		return nil, err
	}
	snaps, err := uow.SnapshotRepository()
	if err != nil {
		return nil, err
	}
	daily, err := uow.DailyRepository()
	if err != nil {
		return nil, err
	}

	all, err := accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	subtree := account.NewTree(all).Subtree(accountID)
	ids := make([]uuid.UUID, 0, len(subtree))
	for id := range subtree {
		ids = append(ids, id)
	}
	ledger, err := movements.ByAccounts(ctx, ids, nil, nil)
	if err != nil {
		return nil, err
	}

	// Expected rows, in ledger order.
	var (
		running       money.Amount
		expectedSnaps []balance.Snapshot
		expectedDaily []balance.Daily
	)
	for _, m := range ledger {
		for _, eff := range m.Effects() {
			if subtree[eff.AccountID] {
				running += eff.Delta
			}
		}
		expectedSnaps = append(expectedSnaps, balance.Snapshot{
			AccountID:  accountID,
			MovementID: m.ID,
			Date:       m.Date,
			Ordinal:    m.Ordinal,
			Balance:    running,
		})
		row := balance.Daily{AccountID: accountID, DayID: m.DayID, Date: m.Date, Balance: running}
		if n := len(expectedDaily); n > 0 && expectedDaily[n-1].Date == m.Date {
			expectedDaily[n-1] = row
		} else {
			expectedDaily = append(expectedDaily, row)
		}
	}

	inScope := func(d day.Date) bool { return from == nil || !d.Before(*from) }

	storedSnaps, err := snaps.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	storedDaily, err := daily.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var drift []balance.Drift

	snapByID := make(map[uuid.UUID]balance.Snapshot, len(storedSnaps))
	for _, s := range storedSnaps {
		snapByID[s.MovementID] = s
	}
	for _, want := range expectedSnaps {
		got, ok := snapByID[want.MovementID]
		delete(snapByID, want.MovementID)
		if !inScope(want.Date) || (ok && got.Balance == want.Balance) {
			continue
		}
		mid, exp := want.MovementID, want.Balance
		d := balance.Drift{AccountID: accountID, MovementID: &mid, Date: want.Date, Expected: &exp}
		if ok {
			stored := got.Balance
			d.Stored = &stored
		}
		drift = append(drift, d)
		if !dryRun {
			if err := snaps.Put(ctx, want); err != nil {
				return nil, err
			}
		}
	}
	for _, extra := range storedSnaps {
		if _, stale := snapByID[extra.MovementID]; !stale || !inScope(extra.Date) {
			continue
		}
		mid, stored := extra.MovementID, extra.Balance
		drift = append(drift, balance.Drift{AccountID: accountID, MovementID: &mid, Date: extra.Date, Stored: &stored})
		if !dryRun {
			if err := snaps.Delete(ctx, accountID, extra.MovementID); err != nil {
				return nil, err
			}
		}
	}

	dailyByDate := make(map[day.Date]balance.Daily, len(storedDaily))
	for _, d := range storedDaily {
		dailyByDate[d.Date] = d
	}
	for _, want := range expectedDaily {
		got, ok := dailyByDate[want.Date]
		delete(dailyByDate, want.Date)
		if !inScope(want.Date) || (ok && got.Balance == want.Balance) {
			continue
		}
		exp := want.Balance
		d := balance.Drift{AccountID: accountID, Date: want.Date, Expected: &exp}
		if ok {
			stored := got.Balance
			d.Stored = &stored
		}
		drift = append(drift, d)
		if !dryRun {
			if err := daily.Put(ctx, want); err != nil {
				return nil, err
			}
		}
	}
	for _, extra := range storedDaily {
		if _, stale := dailyByDate[extra.Date]; !stale || !inScope(extra.Date) {
			continue
		}
		stored := extra.Balance
		drift = append(drift, balance.Drift{AccountID: accountID, Date: extra.Date, Stored: &stored})
		if !dryRun {
			if err := daily.Delete(ctx, accountID, extra.Date); err != nil {
				return nil, err
			}
		}
	}

	if len(drift) > 0 {
		e.logger.Warn("balance drift", "account_id", accountID, "rows", len(drift), "dry_run", dryRun)
	}
	return drift, nil
}
