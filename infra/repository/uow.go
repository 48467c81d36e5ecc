package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/amirasaad/ledger/pkg/repository"
	"gorm.io/gorm"
)

// UoW provides transaction boundary and repository access in one abstraction.
//
// Repositories are built on demand from the registry and bound to the
// current transaction, so a cascade never mixes sessions.
type UoW struct {
	db           *gorm.DB
	tx           *gorm.DB
	repoRegistry map[reflect.Type]func(*gorm.DB) any
}

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{
		db: db,
		repoRegistry: map[reflect.Type]func(*gorm.DB) any{
			typeOf[repository.DayRepository]():      func(db *gorm.DB) any { return NewDayRepository(db) },
			typeOf[repository.RateRepository]():     func(db *gorm.DB) any { return NewRateRepository(db) },
			typeOf[repository.HolderRepository]():   func(db *gorm.DB) any { return NewHolderRepository(db) },
			typeOf[repository.AccountRepository]():  func(db *gorm.DB) any { return NewAccountRepository(db) },
			typeOf[repository.MovementRepository](): func(db *gorm.DB) any { return NewMovementRepository(db) },
			typeOf[repository.SnapshotRepository](): func(db *gorm.DB) any { return NewSnapshotRepository(db) },
			typeOf[repository.DailyRepository]():    func(db *gorm.DB) any { return NewDailyRepository(db) },
		},
	}
}

// Do runs the given function in a transaction boundary, providing a UoW with
// repository access. Inside a transaction it runs fn on the same one.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.tx != nil {
		return fn(u)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txnUow := &UoW{db: u.db, tx: tx, repoRegistry: u.repoRegistry}
		return fn(txnUow)
	})
}

// GetRepository returns the repository registered for repoType, bound to
// the transaction when there is one and to the plain connection otherwise.
func (u *UoW) GetRepository(repoType reflect.Type) (any, error) {
	constructor, ok := u.repoRegistry[repoType]
	if !ok {
		return nil, fmt.Errorf("unsupported repository type: %v", repoType)
	}
	session := u.tx
	if session == nil {
		session = u.db
	}
	return constructor(session), nil
}

func get[T any](u *UoW) (T, error) {
	var zero T
	repoAny, err := u.GetRepository(typeOf[T]())
	if err != nil {
		return zero, err
	}
	repo, ok := repoAny.(T)
	if !ok {
		return zero, fmt.Errorf("repository %T does not implement %v", repoAny, typeOf[T]())
	}
	return repo, nil
}

func (u *UoW) DayRepository() (repository.DayRepository, error) {
	return get[repository.DayRepository](u)
}

func (u *UoW) RateRepository() (repository.RateRepository, error) {
	return get[repository.RateRepository](u)
}

func (u *UoW) HolderRepository() (repository.HolderRepository, error) {
	return get[repository.HolderRepository](u)
}

func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	return get[repository.AccountRepository](u)
}

func (u *UoW) MovementRepository() (repository.MovementRepository, error) {
	return get[repository.MovementRepository](u)
}

func (u *UoW) SnapshotRepository() (repository.SnapshotRepository, error) {
	return get[repository.SnapshotRepository](u)
}

func (u *UoW) DailyRepository() (repository.DailyRepository, error) {
	return get[repository.DailyRepository](u)
}
