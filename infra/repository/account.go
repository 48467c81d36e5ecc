package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository bound to db.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	row := mapAccountToModel(a)
	return WrapError(func() error { return r.db.WithContext(ctx).Create(&row).Error })
}

func (r *accountRepository) Update(ctx context.Context, a *account.Account) error {
	row := mapAccountToModel(a)
	return WrapError(func() error { return r.db.WithContext(ctx).Save(&row).Error })
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return WrapError(func() error {
		return r.db.WithContext(ctx).Delete(&Account{}, "id = ?", id).Error
	})
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var row Account
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapModelToAccount(&row), nil
}

func (r *accountRepository) GetByKey(ctx context.Context, key string) (*account.Account, error) {
	var row Account
	if err := r.db.WithContext(ctx).Where(map[string]any{"key": key}).First(&row).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapModelToAccount(&row), nil
}

func (r *accountRepository) List(ctx context.Context) ([]*account.Account, error) {
	return r.find(r.db.WithContext(ctx))
}

func (r *accountRepository) ListByHolder(ctx context.Context, holderID uuid.UUID) ([]*account.Account, error) {
	return r.find(r.db.WithContext(ctx).Where("holder_id = ?", holderID))
}

func (r *accountRepository) Children(ctx context.Context, id uuid.UUID) ([]*account.Account, error) {
	return r.find(r.db.WithContext(ctx).Where("parent_id = ?", id))
}

func (r *accountRepository) find(q *gorm.DB) ([]*account.Account, error) {
	var rows []Account
	if err := q.Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*account.Account, 0, len(rows))
	for i := range rows {
		out = append(out, mapModelToAccount(&rows[i]))
	}
	return out, nil
}

// Ancestors walks parent links one row at a time. Trees are shallow.
func (r *accountRepository) Ancestors(ctx context.Context, id uuid.UUID) ([]*account.Account, error) {
	a, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []*account.Account
	seen := map[uuid.UUID]bool{id: true}
	for a.ParentID != nil {
		if seen[*a.ParentID] {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidAccountOperation, account.ErrCycle)
		}
		seen[*a.ParentID] = true
		if a, err = r.Get(ctx, *a.ParentID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *accountRepository) CreditAccount(ctx context.Context, holderID, counterpartyID uuid.UUID) (*account.Account, error) {
	var row Account
	err := r.db.WithContext(ctx).
		Where("holder_id = ? AND counterparty_id = ?", holderID, counterpartyID).
		First(&row).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapModelToAccount(&row), nil
}

// Lock issues SELECT ... FOR UPDATE over the accounts in a fixed order so
// that two writers touching overlapping accounts queue instead of
// deadlocking. SQLite ignores the locking clause and relies on its database
// level write lock.
func (r *accountRepository) Lock(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	uniq := make(map[uuid.UUID]struct{}, len(ids))
	sorted := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := uniq[id]; !ok {
			uniq[id] = struct{}{}
			sorted = append(sorted, id)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })
	var rows []Account
	return WrapError(func() error {
		return r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id IN ?", sorted).
			Order("id").
			Find(&rows).Error
	})
}

func mapAccountToModel(a *account.Account) Account {
	row := Account{
		ID:        a.ID,
		Key:       a.Key,
		Name:      a.Name,
		Currency:  string(a.Currency),
		HolderID:  a.HolderID,
		ParentID:  a.ParentID,
		Kind:      string(a.Kind),
		Active:    a.Active,
		OpenedOn:  a.OpenedOn,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.Leaf != nil {
		row.MirrorID = a.Leaf.MirrorID
		row.CounterpartyID = a.Leaf.CounterpartyID
	}
	if a.Branch != nil {
		d := a.Branch.ConvertedOn
		row.ConvertedOn = &d
	}
	return row
}

func mapModelToAccount(row *Account) *account.Account {
	a := &account.Account{
		ID:        row.ID,
		Key:       row.Key,
		Name:      row.Name,
		Currency:  money.Code(row.Currency),
		HolderID:  row.HolderID,
		ParentID:  row.ParentID,
		OpenedOn:  row.OpenedOn,
		Active:    row.Active,
		Kind:      account.Kind(row.Kind),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if a.IsBranch() {
		a.Branch = &account.Branch{}
		if row.ConvertedOn != nil {
			a.Branch.ConvertedOn = *row.ConvertedOn
		}
	} else {
		a.Leaf = &account.Leaf{MirrorID: row.MirrorID, CounterpartyID: row.CounterpartyID}
	}
	return a
}
