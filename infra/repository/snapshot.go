package repository

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a per-movement balance repository bound to db.
func NewSnapshotRepository(db *gorm.DB) repository.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// positioned joins the snapshots of an account to their movements so rows
// can be filtered and ordered by global position.
func (r *snapshotRepository) positioned(ctx context.Context, accountID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("balance_snapshots AS s").
		Joins("JOIN movements m ON m.id = s.movement_id").
		Where("s.account_id = ?", accountID)
}

func (r *snapshotRepository) Ensure(ctx context.Context, accountID uuid.UUID, m *movement.Movement) error {
	var n int64
	err := r.db.WithContext(ctx).Model(&BalanceSnapshot{}).
		Where("account_id = ? AND movement_id = ?", accountID, m.ID).
		Count(&n).Error
	if err != nil || n > 0 {
		return MapGormErrorToDomain(err)
	}
	seed, _, err := r.At(ctx, accountID, m.Position(), false)
	if err != nil {
		return err
	}
	row := BalanceSnapshot{AccountID: accountID, MovementID: m.ID, Balance: seed}
	return WrapError(func() error { return r.db.WithContext(ctx).Create(&row).Error })
}

func (r *snapshotRepository) AddFrom(ctx context.Context, accountID uuid.UUID, pos day.Position, inclusive bool, delta money.Amount) error {
	if delta == 0 {
		return nil
	}
	op := ">"
	if inclusive {
		op = ">="
	}
	later := r.db.WithContext(ctx).Model(&Movement{}).Select("id").
		Where("(date > ? OR (date = ? AND ordinal "+op+" ?))", pos.Date, pos.Date, pos.Ordinal)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Model(&BalanceSnapshot{}).
			Where("account_id = ? AND movement_id IN (?)", accountID, later).
			UpdateColumn("balance", gorm.Expr("balance + ?", delta)).Error
	})
}

func (r *snapshotRepository) At(ctx context.Context, accountID uuid.UUID, pos day.Position, inclusive bool) (money.Amount, bool, error) {
	op := "<"
	if inclusive {
		op = "<="
	}
	var rows []int64
	err := r.positioned(ctx, accountID).
		Where("(m.date < ? OR (m.date = ? AND m.ordinal "+op+" ?))", pos.Date, pos.Date, pos.Ordinal).
		Order("m.date DESC, m.ordinal DESC").
		Limit(1).
		Pluck("s.balance", &rows).Error
	if err != nil {
		return 0, false, MapGormErrorToDomain(err)
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0], true, nil
}

func (r *snapshotRepository) Latest(ctx context.Context, accountID uuid.UUID) (money.Amount, bool, error) {
	var rows []int64
	err := r.positioned(ctx, accountID).
		Order("m.date DESC, m.ordinal DESC").
		Limit(1).
		Pluck("s.balance", &rows).Error
	if err != nil {
		return 0, false, MapGormErrorToDomain(err)
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0], true, nil
}

func (r *snapshotRepository) DeleteMovement(ctx context.Context, movementID uuid.UUID) error {
	return WrapError(func() error {
		return r.db.WithContext(ctx).Delete(&BalanceSnapshot{}, "movement_id = ?", movementID).Error
	})
}

func (r *snapshotRepository) CountOnDate(ctx context.Context, accountID uuid.UUID, date day.Date) (int64, error) {
	var n int64
	err := r.positioned(ctx, accountID).Where("m.date = ?", date).Count(&n).Error
	return n, MapGormErrorToDomain(err)
}

func (r *snapshotRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]balance.Snapshot, error) {
	var rows []struct {
		AccountID  uuid.UUID
		MovementID uuid.UUID
		Date       day.Date
		Ordinal    int
		Balance    int64
	}
	err := r.positioned(ctx, accountID).
		Select("s.account_id, s.movement_id, m.date, m.ordinal, s.balance").
		Order("m.date, m.ordinal").
		Scan(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]balance.Snapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, balance.Snapshot{
			AccountID:  row.AccountID,
			MovementID: row.MovementID,
			Date:       row.Date,
			Ordinal:    row.Ordinal,
			Balance:    row.Balance,
		})
	}
	return out, nil
}

func (r *snapshotRepository) Put(ctx context.Context, s balance.Snapshot) error {
	row := BalanceSnapshot{AccountID: s.AccountID, MovementID: s.MovementID, Balance: s.Balance}
	return WrapError(func() error {
		return r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "movement_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance"}),
		}).Create(&row).Error
	})
}

func (r *snapshotRepository) Delete(ctx context.Context, accountID, movementID uuid.UUID) error {
	return WrapError(func() error {
		return r.db.WithContext(ctx).
			Delete(&BalanceSnapshot{}, "account_id = ? AND movement_id = ?", accountID, movementID).Error
	})
}
