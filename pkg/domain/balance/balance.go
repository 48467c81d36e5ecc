// Package balance holds the materialized balance rows and the points at
// which a balance can be read.
package balance

import (
	"fmt"

	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/uuid"
)

// Snapshot is the running balance of an account right after a movement that
// touched it or one of its descendants.
type Snapshot struct {
	AccountID  uuid.UUID
	MovementID uuid.UUID
	Date       day.Date
	Ordinal    int
	Balance    money.Amount
}

// Position returns the snapshot's place in the global order.
func (s Snapshot) Position() day.Position {
	return day.Position{Date: s.Date, Ordinal: s.Ordinal}
}

// Daily is the closing balance of an account on a day it was touched.
type Daily struct {
	AccountID uuid.UUID
	DayID     uuid.UUID
	Date      day.Date
	Balance   money.Amount
}

// Point selects when a balance is read: right after a movement, at the close
// of a day, or (both nil) now.
type Point struct {
	MovementID *uuid.UUID
	Date       *day.Date
}

// Now is the latest known balance.
func Now() Point { return Point{} }

// AtDay reads the closing balance of d.
func AtDay(d day.Date) Point { return Point{Date: &d} }

// AtMovement reads the balance right after the movement.
func AtMovement(id uuid.UUID) Point { return Point{MovementID: &id} }

func (p Point) String() string {
	switch {
	case p.MovementID != nil:
		return "movement " + p.MovementID.String()
	case p.Date != nil:
		return "day " + p.Date.String()
	default:
		return "now"
	}
}

// Drift is one stored row that differs from what the ledger implies. A nil
// Stored means the row is missing; a nil Expected means it should not exist.
type Drift struct {
	AccountID  uuid.UUID
	MovementID *uuid.UUID
	Date       day.Date
	Stored     *money.Amount
	Expected   *money.Amount
}

// Daily reports whether the drift concerns the daily table.
func (d Drift) Daily() bool { return d.MovementID == nil }

func (d Drift) String() string {
	show := func(v *money.Amount) string {
		if v == nil {
			return "none"
		}
		return fmt.Sprint(*v)
	}
	where := d.Date.String()
	if d.MovementID != nil {
		where = fmt.Sprintf("%s movement %s", where, d.MovementID)
	}
	return fmt.Sprintf("account %s at %s: stored %s, expected %s",
		d.AccountID, where, show(d.Stored), show(d.Expected))
}
