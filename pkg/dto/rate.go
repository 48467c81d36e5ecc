package dto

import (
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/shopspring/decimal"
)

// RateCreate is the input for recording an exchange rate.
type RateCreate struct {
	Currency string          `json:"currency" validate:"required,len=3,uppercase"`
	Date     day.Date        `json:"date"`
	Buy      decimal.Decimal `json:"buy"`
	Sell     decimal.Decimal `json:"sell"`
}
