// Package credit classifies payments between holders against the claim one
// holder has on another.
package credit

import (
	"fmt"

	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/uuid"
)

// Classification describes how a payment changes an existing claim.
type Classification string

const (
	// NewDebt opens a claim where none existed.
	NewDebt Classification = "new_debt"
	// Increase grows a claim the payer already had.
	Increase Classification = "increase"
	// PartialRepayment reduces what the payer owed without settling it.
	PartialRepayment Classification = "partial_repayment"
	// ExactCancellation settles the payer's debt to zero.
	ExactCancellation Classification = "exact_cancellation"
	// Reversal settles the payer's debt and leaves the receiver owing.
	Reversal Classification = "reversal"
)

// Classify takes the payer's claim balance on the receiver just before the
// payment (negative when the payer owes) and the payment amount, both in the
// pair currency.
func Classify(before, amount money.Amount) Classification {
	switch after := before + amount; {
	case before == 0:
		return NewDebt
	case before > 0:
		return Increase
	case after < 0:
		return PartialRepayment
	case after == 0:
		return ExactCancellation
	default:
		return Reversal
	}
}

// Concept is the text written on the counter-movement.
func (c Classification) Concept(payer, receiver string) string {
	switch c {
	case NewDebt:
		return fmt.Sprintf("%s owes %s", receiver, payer)
	case Increase:
		return fmt.Sprintf("%s owes %s more", receiver, payer)
	case PartialRepayment:
		return fmt.Sprintf("%s repays part of a debt to %s", payer, receiver)
	case ExactCancellation:
		return fmt.Sprintf("%s settles a debt with %s", payer, receiver)
	case Reversal:
		return fmt.Sprintf("%s overpays %s; %s now owes", payer, receiver, receiver)
	default:
		return string(c)
	}
}

// Relation is the derived debtor/creditor view of a pair balance. It is
// empty when the claim is settled.
type Relation struct {
	Debtor   uuid.UUID
	Creditor uuid.UUID
	Amount   money.Money
}

// Settled reports whether nobody owes anything.
func (r Relation) Settled() bool { return r.Amount.IsZero() }

// RelationFrom derives the relation from holder's claim balance on
// counterparty. A positive claim means counterparty owes holder; a reversal
// flips the roles and an exact cancellation clears them.
func RelationFrom(holder, counterparty uuid.UUID, claim money.Money) Relation {
	switch {
	case claim.IsPositive():
		return Relation{Debtor: counterparty, Creditor: holder, Amount: claim}
	case claim.IsNegative():
		return Relation{Debtor: holder, Creditor: counterparty, Amount: claim.Negate()}
	default:
		return Relation{Amount: claim}
	}
}
