package repository

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type dailyRepository struct {
	db *gorm.DB
}

// NewDailyRepository creates a per-day balance repository bound to db.
func NewDailyRepository(db *gorm.DB) repository.DailyRepository {
	return &dailyRepository{db: db}
}

func (r *dailyRepository) Ensure(ctx context.Context, accountID, dayID uuid.UUID, date day.Date) error {
	var n int64
	err := r.db.WithContext(ctx).Model(&DailySnapshot{}).
		Where("account_id = ? AND date = ?", accountID, date).
		Count(&n).Error
	if err != nil || n > 0 {
		return MapGormErrorToDomain(err)
	}
	seed, _, err := r.At(ctx, accountID, date.AddDays(-1))
	if err != nil {
		return err
	}
	row := DailySnapshot{AccountID: accountID, Date: date, DayID: dayID, Balance: seed}
	return WrapError(func() error { return r.db.WithContext(ctx).Create(&row).Error })
}

func (r *dailyRepository) AddFrom(ctx context.Context, accountID uuid.UUID, date day.Date, delta money.Amount) error {
	if delta == 0 {
		return nil
	}
	return WrapError(func() error {
		return r.db.WithContext(ctx).Model(&DailySnapshot{}).
			Where("account_id = ? AND date >= ?", accountID, date).
			UpdateColumn("balance", gorm.Expr("balance + ?", delta)).Error
	})
}

func (r *dailyRepository) At(ctx context.Context, accountID uuid.UUID, date day.Date) (money.Amount, bool, error) {
	return r.first(r.db.WithContext(ctx).Where("account_id = ? AND date <= ?", accountID, date))
}

func (r *dailyRepository) Latest(ctx context.Context, accountID uuid.UUID) (money.Amount, bool, error) {
	return r.first(r.db.WithContext(ctx).Where("account_id = ?", accountID))
}

func (r *dailyRepository) first(q *gorm.DB) (money.Amount, bool, error) {
	var rows []int64
	err := q.Model(&DailySnapshot{}).Order("date DESC").Limit(1).Pluck("balance", &rows).Error
	if err != nil {
		return 0, false, MapGormErrorToDomain(err)
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0], true, nil
}

func (r *dailyRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]balance.Daily, error) {
	var rows []DailySnapshot
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Order("date").Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]balance.Daily, 0, len(rows))
	for _, row := range rows {
		out = append(out, balance.Daily{
			AccountID: row.AccountID,
			DayID:     row.DayID,
			Date:      row.Date,
			Balance:   row.Balance,
		})
	}
	return out, nil
}

func (r *dailyRepository) Put(ctx context.Context, d balance.Daily) error {
	row := DailySnapshot{AccountID: d.AccountID, Date: d.Date, DayID: d.DayID, Balance: d.Balance}
	return WrapError(func() error {
		return r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "day_id"}),
		}).Create(&row).Error
	})
}

func (r *dailyRepository) Delete(ctx context.Context, accountID uuid.UUID, date day.Date) error {
	return WrapError(func() error {
		return r.db.WithContext(ctx).Delete(&DailySnapshot{}, "account_id = ? AND date = ?", accountID, date).Error
	})
}
