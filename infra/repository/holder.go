package repository

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/holder"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type holderRepository struct {
	db *gorm.DB
}

// NewHolderRepository creates a holder repository bound to db.
func NewHolderRepository(db *gorm.DB) repository.HolderRepository {
	return &holderRepository{db: db}
}

func (r *holderRepository) Create(ctx context.Context, h *holder.Holder) error {
	row := Holder{ID: h.ID, Key: h.Key, Name: h.Name, OnboardedOn: h.OnboardedOn, CreatedAt: h.CreatedAt}
	return WrapError(func() error { return r.db.WithContext(ctx).Create(&row).Error })
}

func (r *holderRepository) Get(ctx context.Context, id uuid.UUID) (*holder.Holder, error) {
	var row Holder
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapHolder(&row), nil
}

func (r *holderRepository) GetByKey(ctx context.Context, key string) (*holder.Holder, error) {
	var row Holder
	if err := r.db.WithContext(ctx).Where(map[string]any{"key": key}).First(&row).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapHolder(&row), nil
}

func (r *holderRepository) List(ctx context.Context) ([]*holder.Holder, error) {
	var rows []Holder
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*holder.Holder, 0, len(rows))
	for i := range rows {
		out = append(out, mapHolder(&rows[i]))
	}
	return out, nil
}

func mapHolder(row *Holder) *holder.Holder {
	return &holder.Holder{
		ID:          row.ID,
		Key:         row.Key,
		Name:        row.Name,
		OnboardedOn: row.OnboardedOn,
		CreatedAt:   row.CreatedAt,
	}
}
