package dto

import "github.com/amirasaad/ledger/pkg/domain/day"

// HolderCreate is the input for creating a holder.
type HolderCreate struct {
	Key         string   `json:"key" validate:"required,max=64"`
	Name        string   `json:"name" validate:"max=255"`
	OnboardedOn day.Date `json:"onboarded_on"`
}
