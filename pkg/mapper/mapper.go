// Package mapper turns domain values into the read models served over HTTP
// and printed by the CLI.
package mapper

import (
	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/domain/balance"
	"github.com/amirasaad/ledger/pkg/domain/credit"
	"github.com/amirasaad/ledger/pkg/domain/exchange"
	"github.com/amirasaad/ledger/pkg/domain/holder"
	"github.com/amirasaad/ledger/pkg/domain/movement"
	"github.com/amirasaad/ledger/pkg/dto"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/amirasaad/ledger/pkg/service/maintenance"
	"github.com/google/uuid"
)

// MapHolderToRead maps a domain Holder to a dto.HolderRead.
func MapHolderToRead(h *holder.Holder) dto.HolderRead {
	return dto.HolderRead{
		ID:          h.ID,
		Key:         h.Key,
		Name:        h.Name,
		OnboardedOn: h.OnboardedOn,
		CreatedAt:   h.CreatedAt,
	}
}

// MapAccountToRead maps a domain Account to a dto.AccountRead.
func MapAccountToRead(a *account.Account) dto.AccountRead {
	read := dto.AccountRead{
		ID:       a.ID,
		Key:      a.Key,
		Name:     a.Name,
		Currency: string(a.Currency),
		HolderID: a.HolderID,
		ParentID: a.ParentID,
		Kind:     string(a.Kind),
		Active:   a.Active,
		OpenedOn: a.OpenedOn,
	}
	if a.Branch != nil {
		converted := a.Branch.ConvertedOn
		read.ConvertedOn = &converted
	}
	if a.Leaf != nil {
		read.CounterpartyID = a.Leaf.CounterpartyID
		read.MirrorID = a.Leaf.MirrorID
	}
	return read
}

// MapAccountsToRead maps a slice of accounts.
func MapAccountsToRead(as []*account.Account) []dto.AccountRead {
	out := make([]dto.AccountRead, 0, len(as))
	for _, a := range as {
		out = append(out, MapAccountToRead(a))
	}
	return out
}

// MapMovementToRead maps a domain Movement to a dto.MovementRead.
func MapMovementToRead(m *movement.Movement) dto.MovementRead {
	return dto.MovementRead{
		ID:                m.ID,
		Date:              m.Date,
		Ordinal:           m.Ordinal,
		EntryID:           m.EntryID,
		ExitID:            m.ExitID,
		Amount:            m.Amount.Decimal(),
		Currency:          string(m.Amount.CurrencyCode()),
		EntryAmount:       m.EntryAmount,
		ExitAmount:        m.ExitAmount,
		Rate:              m.Rate,
		RateOverridden:    m.RateOverridden,
		Concept:           m.Concept,
		Detail:            m.Detail,
		Kind:              string(m.Kind),
		Automatic:         m.Automatic,
		Gift:              m.Gift,
		CounterMovementID: m.CounterMovementID,
	}
}

// MapMovementsToRead maps a slice of movements.
func MapMovementsToRead(ms []*movement.Movement) []dto.MovementRead {
	out := make([]dto.MovementRead, 0, len(ms))
	for _, m := range ms {
		out = append(out, MapMovementToRead(m))
	}
	return out
}

// MapBalanceToRead describes bal, read for id at point at.
func MapBalanceToRead(id uuid.UUID, at balance.Point, bal money.Money) dto.BalanceRead {
	return dto.BalanceRead{
		ID:       id,
		At:       at.String(),
		Balance:  bal.Decimal(),
		Currency: string(bal.CurrencyCode()),
	}
}

// MapRelationsToRead maps the open debts of a holder.
func MapRelationsToRead(rs []credit.Relation) []dto.RelationRead {
	out := make([]dto.RelationRead, 0, len(rs))
	for _, r := range rs {
		out = append(out, dto.RelationRead{
			Debtor:   r.Debtor,
			Creditor: r.Creditor,
			Amount:   r.Amount.Decimal(),
			Currency: string(r.Amount.CurrencyCode()),
		})
	}
	return out
}

// MapRateToRead maps a stored quote.
func MapRateToRead(r *exchange.Rate) dto.RateRead {
	return dto.RateRead{Currency: string(r.Currency), Date: r.Date, Buy: r.Buy, Sell: r.Sell}
}

// MapReportToRead maps a maintenance report.
func MapReportToRead(r *maintenance.Report) dto.ReportRead {
	read := dto.ReportRead{Accounts: r.Accounts, Last: r.Last, Drift: make([]dto.DriftRead, 0, len(r.Drift))}
	for _, d := range r.Drift {
		read.Drift = append(read.Drift, dto.DriftRead{
			AccountID:  d.AccountID,
			MovementID: d.MovementID,
			Date:       d.Date,
			Stored:     d.Stored,
			Expected:   d.Expected,
		})
	}
	return read
}
