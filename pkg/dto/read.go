package dto

import (
	"time"

	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HolderRead is the API view of a holder.
type HolderRead struct {
	ID          uuid.UUID `json:"id"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	OnboardedOn day.Date  `json:"onboarded_on"`
	CreatedAt   time.Time `json:"created_at"`
}

// AccountRead is the API view of an account. ConvertedOn is only set on
// branches; CounterpartyID and MirrorID only on credit accounts.
type AccountRead struct {
	ID             uuid.UUID  `json:"id"`
	Key            string     `json:"key"`
	Name           string     `json:"name"`
	Currency       string     `json:"currency"`
	HolderID       uuid.UUID  `json:"holder_id"`
	ParentID       *uuid.UUID `json:"parent_id,omitempty"`
	Kind           string     `json:"kind"`
	Active         bool       `json:"active"`
	OpenedOn       day.Date   `json:"opened_on"`
	ConvertedOn    *day.Date  `json:"converted_on,omitempty"`
	CounterpartyID *uuid.UUID `json:"counterparty_id,omitempty"`
	MirrorID       *uuid.UUID `json:"mirror_id,omitempty"`
}

// MovementRead is the API view of a movement. Leg amounts are in minor
// units of the leg's currency.
type MovementRead struct {
	ID                uuid.UUID       `json:"id"`
	Date              day.Date        `json:"date"`
	Ordinal           int             `json:"ordinal"`
	EntryID           *uuid.UUID      `json:"entry_id,omitempty"`
	ExitID            *uuid.UUID      `json:"exit_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	EntryAmount       int64           `json:"entry_amount_minor"`
	ExitAmount        int64           `json:"exit_amount_minor"`
	Rate              decimal.Decimal `json:"rate"`
	RateOverridden    bool            `json:"rate_overridden"`
	Concept           string          `json:"concept"`
	Detail            string          `json:"detail,omitempty"`
	Kind              string          `json:"kind"`
	Automatic         bool            `json:"automatic"`
	Gift              bool            `json:"gift"`
	CounterMovementID *uuid.UUID      `json:"counter_movement_id,omitempty"`
}

// BalanceRead is a balance read at a point.
type BalanceRead struct {
	ID       uuid.UUID       `json:"id"`
	At       string          `json:"at"`
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

// RelationRead is an open debt between two holders.
type RelationRead struct {
	Debtor   uuid.UUID       `json:"debtor"`
	Creditor uuid.UUID       `json:"creditor"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// RateRead is a stored quote.
type RateRead struct {
	Currency string          `json:"currency"`
	Date     day.Date        `json:"date"`
	Buy      decimal.Decimal `json:"buy"`
	Sell     decimal.Decimal `json:"sell"`
}

// DriftRead is one snapshot row that disagrees with the ledger, in minor
// units. A nil Stored means missing; a nil Expected means superfluous.
type DriftRead struct {
	AccountID  uuid.UUID  `json:"account_id"`
	MovementID *uuid.UUID `json:"movement_id,omitempty"`
	Date       day.Date   `json:"date"`
	Stored     *int64     `json:"stored"`
	Expected   *int64     `json:"expected"`
}

// ReportRead summarizes a maintenance run.
type ReportRead struct {
	Accounts int         `json:"accounts"`
	Drift    []DriftRead `json:"drift"`
	Last     *uuid.UUID  `json:"last,omitempty"`
}
