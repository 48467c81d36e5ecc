package dto

import (
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementCreate is the input for posting a movement. A negative Amount
// swaps the legs. Currency defaults to the exit leg's (entry leg's when
// there is no exit). Rate and CounterAmount are mutually exclusive and only
// matter when the legs differ in currency.
type MovementCreate struct {
	Date          day.Date         `json:"date"`
	Ordinal       *int             `json:"ordinal,omitempty" validate:"omitempty,min=0"`
	EntryID       *uuid.UUID       `json:"entry_id,omitempty"`
	ExitID        *uuid.UUID       `json:"exit_id,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	Currency      string           `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
	Rate          *decimal.Decimal `json:"rate,omitempty" validate:"excluded_with=CounterAmount"`
	CounterAmount *decimal.Decimal `json:"counter_amount,omitempty"`
	Concept       string           `json:"concept" validate:"max=255"`
	Detail        string           `json:"detail"`
	Gift          bool             `json:"gift"`
}

// MovementUpdate changes only the fields that are set. ClearEntry and
// ClearExit remove a leg.
type MovementUpdate struct {
	Date          *day.Date        `json:"date,omitempty"`
	Ordinal       *int             `json:"ordinal,omitempty" validate:"omitempty,min=0"`
	EntryID       *uuid.UUID       `json:"entry_id,omitempty" validate:"excluded_with=ClearEntry"`
	ExitID        *uuid.UUID       `json:"exit_id,omitempty" validate:"excluded_with=ClearExit"`
	ClearEntry    bool             `json:"clear_entry,omitempty"`
	ClearExit     bool             `json:"clear_exit,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty" validate:"omitempty,len=3,uppercase"`
	Rate          *decimal.Decimal `json:"rate,omitempty" validate:"excluded_with=CounterAmount"`
	CounterAmount *decimal.Decimal `json:"counter_amount,omitempty"`
	Concept       *string          `json:"concept,omitempty" validate:"omitempty,max=255"`
	Detail        *string          `json:"detail,omitempty"`
	Gift          *bool            `json:"gift,omitempty"`
}
