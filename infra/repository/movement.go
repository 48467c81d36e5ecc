package repository

import (
	"context"
	"time"

	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// parkedOrdinal holds a movement out of the way while its day is renumbered.
const parkedOrdinal = 1 << 30

// movementColumns are written by Save; position columns are owned by Insert,
// Move and Remove.
var movementColumns = []string{
	"entry_id", "exit_id", "amount", "currency", "entry_amount", "exit_amount",
	"rate", "rate_overridden", "concept", "detail", "kind", "automatic", "gift",
	"counter_movement_id", "updated_at",
}

type movementRepository struct {
	db *gorm.DB
}

// NewMovementRepository creates a movement repository bound to db.
func NewMovementRepository(db *gorm.DB) repository.MovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) Insert(ctx context.Context, m *movement.Movement) error {
	if err := r.shift(ctx, m.DayID, m.Ordinal, 1, m.ID); err != nil {
		return err
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	row := mapMovementToModel(m)
	return WrapError(func() error { return r.db.WithContext(ctx).Create(&row).Error })
}

func (r *movementRepository) Save(ctx context.Context, m *movement.Movement) error {
	m.UpdatedAt = time.Now().UTC()
	row := mapMovementToModel(m)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Model(&Movement{ID: m.ID}).Select(movementColumns).Updates(&row).Error
	})
}

func (r *movementRepository) Move(ctx context.Context, m *movement.Movement, dayID uuid.UUID, date day.Date, ordinal int) error {
	db := r.db.WithContext(ctx)
	err := WrapError(func() error {
		return db.Model(&Movement{}).Where("id = ?", m.ID).UpdateColumn("ordinal", parkedOrdinal).Error
	})
	if err != nil {
		return err
	}
	if err := r.shift(ctx, m.DayID, m.Ordinal+1, -1, m.ID); err != nil {
		return err
	}
	if err := r.shift(ctx, dayID, ordinal, 1, m.ID); err != nil {
		return err
	}
	err = WrapError(func() error {
		return db.Model(&Movement{}).Where("id = ?", m.ID).UpdateColumns(map[string]any{
			"day_id":  dayID,
			"date":    date,
			"ordinal": ordinal,
		}).Error
	})
	if err != nil {
		return err
	}
	m.DayID, m.Date, m.Ordinal = dayID, date, ordinal
	return nil
}

func (r *movementRepository) Remove(ctx context.Context, m *movement.Movement) error {
	err := WrapError(func() error {
		return r.db.WithContext(ctx).Delete(&Movement{}, "id = ?", m.ID).Error
	})
	if err != nil {
		return err
	}
	return r.shift(ctx, m.DayID, m.Ordinal+1, -1, m.ID)
}

// shift adds delta to the ordinal of every movement of the day at or after
// from, except the one excluded. Rows are first mirrored into negative
// ordinals and then mapped back, so the (day, ordinal) unique index never
// sees two rows on the same value mid-statement.
func (r *movementRepository) shift(ctx context.Context, dayID uuid.UUID, from, delta int, exclude uuid.UUID) error {
	db := r.db.WithContext(ctx)
	err := db.Model(&Movement{}).
		Where("day_id = ? AND ordinal >= ? AND ordinal < ? AND id <> ?", dayID, from, parkedOrdinal, exclude).
		UpdateColumn("ordinal", gorm.Expr("-1 - ordinal")).Error
	if err != nil {
		return MapGormErrorToDomain(err)
	}
	err = db.Model(&Movement{}).
		Where("day_id = ? AND ordinal < 0", dayID).
		UpdateColumn("ordinal", gorm.Expr("(-1 - ordinal) + ?", delta)).Error
	return MapGormErrorToDomain(err)
}

func (r *movementRepository) Get(ctx context.Context, id uuid.UUID) (*movement.Movement, error) {
	var row Movement
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapModelToMovement(&row), nil
}

func (r *movementRepository) SetCounter(ctx context.Context, id uuid.UUID, counterID *uuid.UUID) error {
	return WrapError(func() error {
		return r.db.WithContext(ctx).Model(&Movement{}).Where("id = ?", id).
			UpdateColumn("counter_movement_id", counterID).Error
	})
}

func (r *movementRepository) ByDate(ctx context.Context, date day.Date) ([]*movement.Movement, error) {
	return r.find(r.db.WithContext(ctx).Where("date = ?", date))
}

func (r *movementRepository) ByAccounts(ctx context.Context, ids []uuid.UUID, from, to *day.Date) ([]*movement.Movement, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).Where("(entry_id IN ? OR exit_id IN ?)", ids, ids)
	if from != nil {
		q = q.Where("date >= ?", *from)
	}
	if to != nil {
		q = q.Where("date <= ?", *to)
	}
	return r.find(q)
}

func (r *movementRepository) find(q *gorm.DB) ([]*movement.Movement, error) {
	var rows []Movement
	if err := q.Order("date, ordinal").Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*movement.Movement, 0, len(rows))
	for i := range rows {
		out = append(out, mapModelToMovement(&rows[i]))
	}
	return out, nil
}

func (r *movementRepository) CountByDay(ctx context.Context, dayID uuid.UUID) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Movement{}).Where("day_id = ?", dayID).Count(&n).Error
	return int(n), MapGormErrorToDomain(err)
}

func (r *movementRepository) CountByAccount(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Movement{}).Where("entry_id = ? OR exit_id = ?", id, id).Count(&n).Error
	return n, MapGormErrorToDomain(err)
}

func (r *movementRepository) OrdinalRange(ctx context.Context, date day.Date) (int, int, int, error) {
	var out struct {
		Lo int
		Hi int
		N  int
	}
	err := r.db.WithContext(ctx).Model(&Movement{}).
		Select("COALESCE(MIN(ordinal), 0) AS lo, COALESCE(MAX(ordinal), 0) AS hi, COUNT(*) AS n").
		Where("date = ?", date).
		Scan(&out).Error
	return out.Lo, out.Hi, out.N, MapGormErrorToDomain(err)
}

func mapMovementToModel(m *movement.Movement) Movement {
	return Movement{
		ID:                m.ID,
		DayID:             m.DayID,
		Date:              m.Date,
		Ordinal:           m.Ordinal,
		EntryID:           m.EntryID,
		ExitID:            m.ExitID,
		Amount:            m.Amount.Amount(),
		Currency:          string(m.Amount.CurrencyCode()),
		EntryAmount:       m.EntryAmount,
		ExitAmount:        m.ExitAmount,
		Rate:              m.Rate,
		RateOverridden:    m.RateOverridden,
		Concept:           m.Concept,
		Detail:            m.Detail,
		Kind:              string(m.Kind),
		Automatic:         m.Automatic,
		Gift:              m.Gift,
		CounterMovementID: m.CounterMovementID,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func mapModelToMovement(row *Movement) *movement.Movement {
	return &movement.Movement{
		ID:                row.ID,
		DayID:             row.DayID,
		Date:              row.Date,
		Ordinal:           row.Ordinal,
		EntryID:           row.EntryID,
		ExitID:            row.ExitID,
		Amount:            money.NewFromData(row.Amount, row.Currency),
		EntryAmount:       row.EntryAmount,
		ExitAmount:        row.ExitAmount,
		Rate:              row.Rate,
		RateOverridden:    row.RateOverridden,
		Concept:           row.Concept,
		Detail:            row.Detail,
		Kind:              movement.Kind(row.Kind),
		Automatic:         row.Automatic,
		Gift:              row.Gift,
		CounterMovementID: row.CounterMovementID,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}
