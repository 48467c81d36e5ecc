package account

import (
	"fmt"
	"sort"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/google/uuid"
)

// Tree is an in-memory index over a set of accounts.
type Tree struct {
	byID     map[uuid.UUID]*Account
	children map[uuid.UUID][]uuid.UUID
}

// NewTree indexes the accounts. Children keep the order they were given in.
func NewTree(accounts []*Account) *Tree {
	t := &Tree{
		byID:     make(map[uuid.UUID]*Account, len(accounts)),
		children: make(map[uuid.UUID][]uuid.UUID),
	}
	for _, a := range accounts {
		t.byID[a.ID] = a
		if a.ParentID != nil {
			t.children[*a.ParentID] = append(t.children[*a.ParentID], a.ID)
		}
	}
	return t
}

// Get returns the account with id, or nil.
func (t *Tree) Get(id uuid.UUID) *Account { return t.byID[id] }

// All returns every account sorted by key.
func (t *Tree) All() []*Account {
	out := make([]*Account, 0, len(t.byID))
	for _, a := range t.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Children returns the direct children of id.
func (t *Tree) Children(id uuid.UUID) []*Account {
	ids := t.children[id]
	out := make([]*Account, 0, len(ids))
	for _, c := range ids {
		out = append(out, t.byID[c])
	}
	return out
}

// Ancestors returns the parent chain of id, nearest first. A cycle in the
// stored data is reported as an error rather than looping.
func (t *Tree) Ancestors(id uuid.UUID) ([]*Account, error) {
	var out []*Account
	seen := map[uuid.UUID]bool{id: true}
	a := t.byID[id]
	for a != nil && a.ParentID != nil {
		pid := *a.ParentID
		if seen[pid] {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidAccountOperation, ErrCycle)
		}
		seen[pid] = true
		a = t.byID[pid]
		if a == nil {
			return nil, fmt.Errorf("%w: parent %s", domain.ErrNotFound, pid)
		}
		out = append(out, a)
	}
	return out, nil
}

// Lineage returns id followed by its ancestors.
func (t *Tree) Lineage(id uuid.UUID) ([]uuid.UUID, error) {
	anc, err := t.Ancestors(id)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(anc)+1)
	out = append(out, id)
	for _, a := range anc {
		out = append(out, a.ID)
	}
	return out, nil
}

// Subtree returns id and all of its descendants.
func (t *Tree) Subtree(id uuid.UUID) map[uuid.UUID]bool {
	out := map[uuid.UUID]bool{}
	stack := []uuid.UUID{id}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if out[n] {
			continue
		}
		out[n] = true
		stack = append(stack, t.children[n]...)
	}
	return out
}

// Siblings returns the other children of id's parent.
func (t *Tree) Siblings(id uuid.UUID) []*Account {
	a := t.byID[id]
	if a == nil || a.ParentID == nil {
		return nil
	}
	var out []*Account
	for _, c := range t.Children(*a.ParentID) {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// Roots returns the accounts without a parent that belong to holderID.
func (t *Tree) Roots(holderID uuid.UUID) []*Account {
	var out []*Account
	for _, a := range t.All() {
		if a.ParentID == nil && a.HolderID == holderID {
			out = append(out, a)
		}
	}
	return out
}
