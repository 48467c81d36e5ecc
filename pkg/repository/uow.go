package repository

import (
	"context"
	"reflect"
)

// UnitOfWork defines the contract for transactional work and type-safe repository access.
//
// Every repository handed out by a UnitOfWork obtained inside Do shares the
// same transaction, so a movement, its balance rows and its credit
// counterpart commit or roll back together.
//
// Example usage:
//
//	repoAny, err := uow.GetRepository(reflect.TypeOf((*MovementRepository)(nil)).Elem())
//	repo := repoAny.(MovementRepository)
type UnitOfWork interface {
	// Do executes the given function within a transaction boundary.
	// The provided function receives a UnitOfWork for repository access.
	// If the function returns an error, the transaction is rolled back.
	// Calling Do on a UnitOfWork that is already inside a transaction
	// reuses it.
	Do(ctx context.Context, fn func(uow UnitOfWork) error) error

	// GetRepository returns a repository of the requested type, bound to the current transaction/session.
	GetRepository(repoType reflect.Type) (any, error)

	// Type-safe repository access methods (convenience methods)
	DayRepository() (DayRepository, error)
	RateRepository() (RateRepository, error)
	HolderRepository() (HolderRepository, error)
	AccountRepository() (AccountRepository, error)
	MovementRepository() (MovementRepository, error)
	SnapshotRepository() (SnapshotRepository, error)
	DailyRepository() (DailyRepository, error)
}
