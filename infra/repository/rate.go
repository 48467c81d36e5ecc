package repository

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/exchange"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type rateRepository struct {
	db *gorm.DB
}

// NewRateRepository creates an exchange rate repository bound to db.
func NewRateRepository(db *gorm.DB) repository.RateRepository {
	return &rateRepository{db: db}
}

func (r *rateRepository) Upsert(ctx context.Context, rate *exchange.Rate) error {
	if rate.ID == uuid.Nil {
		rate.ID = uuid.New()
	}
	row := ExchangeRate{
		ID:       rate.ID,
		Currency: string(rate.Currency),
		Date:     rate.Date,
		Buy:      rate.Buy,
		Sell:     rate.Sell,
	}
	return WrapError(func() error {
		return r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "currency"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"buy", "sell"}),
		}).Create(&row).Error
	})
}

func (r *rateRepository) AsOf(ctx context.Context, code money.Code, date day.Date) (*exchange.Rate, error) {
	var row ExchangeRate
	err := r.db.WithContext(ctx).
		Where("currency = ? AND date <= ?", string(code), date).
		Order("date DESC").
		First(&row).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapRate(&row), nil
}

func (r *rateRepository) List(ctx context.Context, code money.Code) ([]*exchange.Rate, error) {
	var rows []ExchangeRate
	if err := r.db.WithContext(ctx).Where("currency = ?", string(code)).Order("date").Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*exchange.Rate, 0, len(rows))
	for i := range rows {
		out = append(out, mapRate(&rows[i]))
	}
	return out, nil
}

func mapRate(row *ExchangeRate) *exchange.Rate {
	return &exchange.Rate{
		ID:       row.ID,
		Currency: money.Code(row.Currency),
		Date:     row.Date,
		Buy:      row.Buy,
		Sell:     row.Sell,
	}
}
