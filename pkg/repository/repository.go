package repository

import (
	"context"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/domain/exchange"
	"github.com/amirasaad/ledger/pkg/domain/holder"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/uuid"
)

// DayRepository defines the interface for the deduplicated calendar.
type DayRepository interface {
	// GetOrCreate returns the Day for date, creating it if needed.
	GetOrCreate(ctx context.Context, date day.Date) (*day.Day, error)
	Get(ctx context.Context, id uuid.UUID) (*day.Day, error)
	// Shift returns the Day n days after (or before, for negative n) date.
	Shift(ctx context.Context, date day.Date, n int) (*day.Day, error)
}

// RateRepository defines the interface for exchange rate data access.
type RateRepository interface {
	// Upsert stores the rate, replacing any rate of the same currency and date.
	Upsert(ctx context.Context, rate *exchange.Rate) error
	// AsOf returns the latest rate of code on or before date.
	AsOf(ctx context.Context, code money.Code, date day.Date) (*exchange.Rate, error)
	List(ctx context.Context, code money.Code) ([]*exchange.Rate, error)
}

// HolderRepository defines the interface for holder data access.
type HolderRepository interface {
	Create(ctx context.Context, h *holder.Holder) error
	Get(ctx context.Context, id uuid.UUID) (*holder.Holder, error)
	GetByKey(ctx context.Context, key string) (*holder.Holder, error)
	List(ctx context.Context) ([]*holder.Holder, error)
}

// AccountRepository defines the interface for account tree data access.
type AccountRepository interface {
	Create(ctx context.Context, a *account.Account) error
	Update(ctx context.Context, a *account.Account) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetByKey(ctx context.Context, key string) (*account.Account, error)
	List(ctx context.Context) ([]*account.Account, error)
	ListByHolder(ctx context.Context, holderID uuid.UUID) ([]*account.Account, error)
	Children(ctx context.Context, id uuid.UUID) ([]*account.Account, error)
	// Ancestors returns the parent chain of id, nearest first.
	Ancestors(ctx context.Context, id uuid.UUID) ([]*account.Account, error)
	// CreditAccount returns holderID's claim account on counterpartyID.
	CreditAccount(ctx context.Context, holderID, counterpartyID uuid.UUID) (*account.Account, error)
	// Lock takes row locks on the accounts in id order for the rest of the
	// transaction.
	Lock(ctx context.Context, ids []uuid.UUID) error
}

// MovementRepository defines the interface for movement data access. It
// keeps ordinals dense within a day.
type MovementRepository interface {
	// Insert stores m at m.Ordinal, shifting later movements of the day.
	Insert(ctx context.Context, m *movement.Movement) error
	// Save persists every field of m except its position.
	Save(ctx context.Context, m *movement.Movement) error
	// Move changes m's day and ordinal to the given ones, closing the gap in
	// the old day and opening one in the new day.
	Move(ctx context.Context, m *movement.Movement, dayID uuid.UUID, date day.Date, ordinal int) error
	// Remove deletes m and closes the gap it leaves in its day.
	Remove(ctx context.Context, m *movement.Movement) error
	Get(ctx context.Context, id uuid.UUID) (*movement.Movement, error)
	SetCounter(ctx context.Context, id uuid.UUID, counterID *uuid.UUID) error
	// ByDate returns the movements of a date by ordinal.
	ByDate(ctx context.Context, date day.Date) ([]*movement.Movement, error)
	// ByAccounts returns the movements with a leg in ids, in global order,
	// optionally bounded by inclusive dates.
	ByAccounts(ctx context.Context, ids []uuid.UUID, from, to *day.Date) ([]*movement.Movement, error)
	CountByDay(ctx context.Context, dayID uuid.UUID) (int, error)
	CountByAccount(ctx context.Context, id uuid.UUID) (int64, error)
	// OrdinalRange returns the smallest and largest ordinal of a date and
	// the number of movements on it.
	OrdinalRange(ctx context.Context, date day.Date) (minOrdinal, maxOrdinal, count int, err error)
}

// SnapshotRepository defines the interface for per-movement balance rows.
type SnapshotRepository interface {
	// Ensure creates the row of (accountID, m) if missing, seeded from the
	// latest earlier row of the account.
	Ensure(ctx context.Context, accountID uuid.UUID, m *movement.Movement) error
	// AddFrom adds delta to every row of the account at or after pos
	// (strictly after when inclusive is false).
	AddFrom(ctx context.Context, accountID uuid.UUID, pos day.Position, inclusive bool, delta money.Amount) error
	// At returns the latest row at or before pos (strictly before when
	// inclusive is false). ok is false when there is none.
	At(ctx context.Context, accountID uuid.UUID, pos day.Position, inclusive bool) (bal money.Amount, ok bool, err error)
	Latest(ctx context.Context, accountID uuid.UUID) (bal money.Amount, ok bool, err error)
	DeleteMovement(ctx context.Context, movementID uuid.UUID) error
	CountOnDate(ctx context.Context, accountID uuid.UUID, date day.Date) (int64, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]balance.Snapshot, error)
	Put(ctx context.Context, s balance.Snapshot) error
	Delete(ctx context.Context, accountID, movementID uuid.UUID) error
}

// DailyRepository defines the interface for per-day balance rows.
type DailyRepository interface {
	// Ensure creates the row of (accountID, date) if missing, seeded from
	// the latest earlier row of the account.
	Ensure(ctx context.Context, accountID, dayID uuid.UUID, date day.Date) error
	// AddFrom adds delta to every row of the account on or after date.
	AddFrom(ctx context.Context, accountID uuid.UUID, date day.Date, delta money.Amount) error
	// At returns the latest row on or before date.
	At(ctx context.Context, accountID uuid.UUID, date day.Date) (bal money.Amount, ok bool, err error)
	Latest(ctx context.Context, accountID uuid.UUID) (bal money.Amount, ok bool, err error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]balance.Daily, error)
	Put(ctx context.Context, d balance.Daily) error
	Delete(ctx context.Context, accountID uuid.UUID, date day.Date) error
}
