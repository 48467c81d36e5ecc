package dto

import (
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountCreate is the input for creating a root leaf account.
type AccountCreate struct {
	Key      string    `json:"key" validate:"required,max=128"`
	Name     string    `json:"name" validate:"max=255"`
	HolderID uuid.UUID `json:"holder_id" validate:"required"`
	Currency string    `json:"currency" validate:"required,len=3,uppercase"`
	// OpeningBalance, when non-zero, is posted as an opening movement on
	// OpenedOn.
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	OpenedOn       day.Date        `json:"opened_on"`
}

// ChildSpec describes one child created by a split.
type ChildSpec struct {
	Key            string          `json:"key" validate:"required,max=128"`
	Name           string          `json:"name" validate:"max=255"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

// AccountSplit is the input for turning a leaf into a branch.
type AccountSplit struct {
	Children []ChildSpec `json:"children" validate:"dive"`
	AsOf     day.Date    `json:"as_of"`
}

// ChildCreate is the input for adding a child to a branch. HolderID
// defaults to the branch holder.
type ChildCreate struct {
	Key      string     `json:"key" validate:"required,max=128"`
	Name     string     `json:"name" validate:"max=255"`
	HolderID *uuid.UUID `json:"holder_id,omitempty"`
}
