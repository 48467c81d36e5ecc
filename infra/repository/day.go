package repository

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type dayRepository struct {
	db *gorm.DB
}

// NewDayRepository creates a day repository bound to db.
func NewDayRepository(db *gorm.DB) repository.DayRepository {
	return &dayRepository{db: db}
}

// GetOrCreate inserts the date unless it exists and reads it back, so two
// writers creating the same day end up with one row.
func (r *dayRepository) GetOrCreate(ctx context.Context, date day.Date) (*day.Day, error) {
	row := Day{ID: uuid.New(), Date: date}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "date"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	var out Day
	if err := r.db.WithContext(ctx).Where("date = ?", date).First(&out).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return &day.Day{ID: out.ID, Date: out.Date}, nil
}

func (r *dayRepository) Get(ctx context.Context, id uuid.UUID) (*day.Day, error) {
	var out Day
	if err := r.db.WithContext(ctx).First(&out, "id = ?", id).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return &day.Day{ID: out.ID, Date: out.Date}, nil
}

func (r *dayRepository) Shift(ctx context.Context, date day.Date, n int) (*day.Day, error) {
	return r.GetOrCreate(ctx, date.AddDays(n))
}
