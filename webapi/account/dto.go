package account

import "github.com/amirasaad/ledger/pkg/domain/day"

// ConversionDayRequest moves the day a branch became a branch.
type ConversionDayRequest struct {
	Date day.Date `json:"date"`
}
