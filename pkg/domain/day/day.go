package day

import "github.com/google/uuid"

// Day is a deduplicated calendar date that movements reference for grouping
// and ordering.
type Day struct {
	ID   uuid.UUID
	Date Date
}

// Position is the global ordering key of a movement: its day first, then its
// ordinal within the day.
type Position struct {
	Date    Date
	Ordinal int
}

// Compare orders positions by (Date, Ordinal).
func (p Position) Compare(o Position) int {
	if c := p.Date.Compare(o.Date); c != 0 {
		return c
	}
	return cmp(p.Ordinal, o.Ordinal)
}

// Before reports whether p comes strictly before o.
func (p Position) Before(o Position) bool { return p.Compare(o) < 0 }

// StartOf is the first position of a date.
func StartOf(d Date) Position { return Position{Date: d} }
