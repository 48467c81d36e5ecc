package repository

import (
	"time"

	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Day represents a calendar date record in the database.
type Day struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Date day.Date  `gorm:"uniqueIndex;not null"`
}

// ExchangeRate is the price of one unit of Currency in the base currency.
type ExchangeRate struct {
	ID       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Currency string          `gorm:"type:varchar(3);not null;uniqueIndex:idx_rate_currency_date"`
	Date     day.Date        `gorm:"not null;uniqueIndex:idx_rate_currency_date"`
	Buy      decimal.Decimal `gorm:"type:decimal(24,10);not null"`
	Sell     decimal.Decimal `gorm:"type:decimal(24,10);not null"`
}

// Holder represents an owner of accounts.
type Holder struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Key         string    `gorm:"uniqueIndex;not null;size:64"`
	Name        string    `gorm:"not null;size:255"`
	OnboardedOn day.Date  `gorm:"not null"`
	CreatedAt   time.Time
}

// Account represents a node of the account tree. Branch and credit fields
// are nullable and only set for those variants.
type Account struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Key            string     `gorm:"uniqueIndex;not null;size:128"`
	Name           string     `gorm:"not null;size:255"`
	Currency       string     `gorm:"type:varchar(3);not null"`
	HolderID       uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_account_credit_pair"`
	ParentID       *uuid.UUID `gorm:"type:uuid;index"`
	Kind           string     `gorm:"type:varchar(16);not null"`
	Active         bool       `gorm:"not null"`
	OpenedOn       day.Date   `gorm:"not null"`
	ConvertedOn    *day.Date
	MirrorID       *uuid.UUID `gorm:"type:uuid"`
	CounterpartyID *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_account_credit_pair"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Movement represents a persisted movement. Date duplicates the day's date
// so that position filters need no join.
type Movement struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DayID             uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_movement_day_ordinal"`
	Date              day.Date        `gorm:"not null;index"`
	Ordinal           int             `gorm:"not null;uniqueIndex:idx_movement_day_ordinal"`
	EntryID           *uuid.UUID      `gorm:"type:uuid;index"`
	ExitID            *uuid.UUID      `gorm:"type:uuid;index"`
	Amount            int64           `gorm:"not null"`
	Currency          string          `gorm:"type:varchar(3);not null"`
	EntryAmount       int64           `gorm:"not null"`
	ExitAmount        int64           `gorm:"not null"`
	Rate              decimal.Decimal `gorm:"type:decimal(24,10);not null"`
	RateOverridden    bool            `gorm:"not null"`
	Concept           string          `gorm:"size:255"`
	Detail            string
	Kind              string     `gorm:"type:varchar(16);not null"`
	Automatic         bool       `gorm:"not null"`
	Gift              bool       `gorm:"not null"`
	CounterMovementID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BalanceSnapshot is the running balance of an account after a movement.
type BalanceSnapshot struct {
	AccountID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	MovementID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	Balance    int64     `gorm:"not null"`
}

// DailySnapshot is the closing balance of an account on a day.
type DailySnapshot struct {
	AccountID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Date      day.Date  `gorm:"primaryKey"`
	DayID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Balance   int64     `gorm:"not null"`
}

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&Day{}, &ExchangeRate{}, &Holder{}, &Account{},
		&Movement{}, &BalanceSnapshot{}, &DailySnapshot{},
	}
}
