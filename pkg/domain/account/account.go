// Package account models the account tree. An account is either a Leaf
// (directly postable, owned by a holder) or a Branch (aggregate of its
// children). Shared fields live on Account; variant fields live in the Leaf
// or Branch payload selected by Kind.
package account

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/google/uuid"
)

var (
	// ErrNotPostable is returned when a movement leg targets a Branch or an inactive account.
	ErrNotPostable = errors.New("account is not postable")
	// ErrAlreadyBranch is returned when converting an account that is already a Branch.
	ErrAlreadyBranch = errors.New("account is already a branch")
	// ErrNotBranch is returned when adding a child to a Leaf.
	ErrNotBranch = errors.New("account is not a branch")
	// ErrOwnershipMismatch is returned when a child's holder differs from its parent's.
	ErrOwnershipMismatch = errors.New("incompatible ownership")
	// ErrCurrencyMismatch is returned when a child's currency differs from its parent's.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrCycle is returned when an edit would make an account its own ancestor.
	ErrCycle = errors.New("account cannot be its own ancestor")
)

// Kind discriminates the account variants.
type Kind string

const (
	KindLeaf   Kind = "leaf"
	KindBranch Kind = "branch"
)

// Leaf holds the Leaf-only fields.
type Leaf struct {
	// MirrorID links a credit account to its counterpart; nil otherwise.
	MirrorID *uuid.UUID
	// CounterpartyID is the holder a credit account tracks a claim on.
	CounterpartyID *uuid.UUID
}

// Branch holds the Branch-only fields.
type Branch struct {
	// ConvertedOn is the day the account stopped being postable.
	ConvertedOn day.Date
}

// Account is a node of the account tree.
//
// Invariants:
//   - exactly one of Leaf and Branch is set, matching Kind;
//   - HolderID is fixed at creation;
//   - no account is its own ancestor;
//   - there is no stored balance: the current balance is the latest snapshot.
type Account struct {
	ID        uuid.UUID
	Key       string
	Name      string
	Currency  money.Code
	HolderID  uuid.UUID
	ParentID  *uuid.UUID
	OpenedOn  day.Date
	Active    bool
	Kind      Kind
	Leaf      *Leaf
	Branch    *Branch
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLeaf reports whether the account is directly postable by kind.
func (a *Account) IsLeaf() bool { return a.Kind == KindLeaf }

// IsBranch reports whether the account aggregates children.
func (a *Account) IsBranch() bool { return a.Kind == KindBranch }

// IsCredit reports whether the account is an auto-managed credit account.
func (a *Account) IsCredit() bool {
	return a.IsLeaf() && a.Leaf != nil && a.Leaf.MirrorID != nil
}

// Postable reports whether a regular movement may use the account as a leg.
func (a *Account) Postable() error {
	if a.IsBranch() {
		return fmt.Errorf("%w: %s is a branch", ErrNotPostable, a.Key)
	}
	if !a.Active && !a.IsCredit() {
		return fmt.Errorf("%w: %s is inactive", ErrNotPostable, a.Key)
	}
	return nil
}

// ConvertToBranch turns a Leaf into a Branch as of the given date.
func (a *Account) ConvertToBranch(asOf day.Date) error {
	if a.IsBranch() {
		return fmt.Errorf("%w: %w", domain.ErrInvalidAccountOperation, ErrAlreadyBranch)
	}
	if a.IsCredit() {
		return fmt.Errorf("%w: credit accounts cannot be split", domain.ErrInvalidAccountOperation)
	}
	if asOf.Before(a.OpenedOn) {
		return fmt.Errorf("%w: conversion before the account was opened", domain.ErrInvalidAccountOperation)
	}
	a.Kind = KindBranch
	a.Leaf = nil
	a.Branch = &Branch{ConvertedOn: asOf}
	return nil
}

// CanAdopt checks that child may hang under a.
func (a *Account) CanAdopt(child *Account) error {
	if !a.IsBranch() {
		return fmt.Errorf("%w: %w", domain.ErrInvalidAccountOperation, ErrNotBranch)
	}
	if child.HolderID != a.HolderID {
		return fmt.Errorf("%w: %w", domain.ErrInvalidAccountOperation, ErrOwnershipMismatch)
	}
	if child.Currency != a.Currency {
		return fmt.Errorf("%w: %w", domain.ErrInvalidAccountOperation, ErrCurrencyMismatch)
	}
	if child.ID == a.ID {
		return fmt.Errorf("%w: %w", domain.ErrInvalidAccountOperation, ErrCycle)
	}
	if child.ParentID != nil && *child.ParentID != a.ID {
		return fmt.Errorf("%w: accounts cannot be reparented", domain.ErrInvalidAccountOperation)
	}
	return nil
}

// LinkMirror pairs two credit accounts both ways.
func LinkMirror(a, b *Account) error {
	if !a.IsLeaf() || !b.IsLeaf() {
		return fmt.Errorf("%w: mirror accounts must be leaves", domain.ErrInvalidAccountOperation)
	}
	if a.HolderID == b.HolderID {
		return fmt.Errorf("%w: mirror accounts need two holders", domain.ErrInvalidAccountOperation)
	}
	if a.Leaf == nil {
		a.Leaf = &Leaf{}
	}
	if b.Leaf == nil {
		b.Leaf = &Leaf{}
	}
	aID, bID := a.ID, b.ID
	aHolder, bHolder := a.HolderID, b.HolderID
	a.Leaf.MirrorID, a.Leaf.CounterpartyID = &bID, &bHolder
	b.Leaf.MirrorID, b.Leaf.CounterpartyID = &aID, &aHolder
	return nil
}

// IsMirrorOf checks the symmetric link invariant.
func (a *Account) IsMirrorOf(b *Account) bool {
	return a.IsCredit() && b.IsCredit() &&
		*a.Leaf.MirrorID == b.ID && *b.Leaf.MirrorID == a.ID &&
		*a.Leaf.CounterpartyID == b.HolderID && *b.Leaf.CounterpartyID == a.HolderID
}

// Builder provides a fluent API for constructing Account instances.
type Builder struct {
	id       uuid.UUID
	key      string
	name     string
	currency money.Code
	holderID uuid.UUID
	parentID *uuid.UUID
	openedOn day.Date
}

// New creates a new Builder with a fresh UUID and today's opening date.
func New() *Builder {
	return &Builder{
		id:       uuid.New(),
		openedOn: day.Today(),
	}
}

// WithID sets the ID for the account being built.
func (b *Builder) WithID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

// WithKey sets the unique key.
func (b *Builder) WithKey(key string) *Builder {
	b.key = strings.TrimSpace(key)
	return b
}

// WithName sets the display name. Defaults to the key.
func (b *Builder) WithName(name string) *Builder {
	b.name = strings.TrimSpace(name)
	return b
}

// WithCurrency sets the account currency.
func (b *Builder) WithCurrency(c money.Code) *Builder {
	b.currency = c
	return b
}

// WithHolder sets the owning holder. This is a mandatory field.
func (b *Builder) WithHolder(id uuid.UUID) *Builder {
	b.holderID = id
	return b
}

// WithParent hangs the account under a branch.
func (b *Builder) WithParent(id uuid.UUID) *Builder {
	b.parentID = &id
	return b
}

// WithOpenedOn sets the creation date.
func (b *Builder) WithOpenedOn(d day.Date) *Builder {
	if !d.IsZero() {
		b.openedOn = d
	}
	return b
}

// Build validates all invariants and returns an active Leaf.
func (b *Builder) Build() (*Account, error) {
	if b.key == "" {
		return nil, fmt.Errorf("%w: account key is required", domain.ErrValidation)
	}
	if !b.currency.IsValid() {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, money.ErrInvalidCurrency)
	}
	if b.holderID == uuid.Nil {
		return nil, fmt.Errorf("%w: holder is required", domain.ErrValidation)
	}
	name := b.name
	if name == "" {
		name = b.key
	}
	now := time.Now()
	return &Account{
		ID:        b.id,
		Key:       b.key,
		Name:      name,
		Currency:  b.currency,
		HolderID:  b.holderID,
		ParentID:  b.parentID,
		OpenedOn:  b.openedOn,
		Active:    true,
		Kind:      KindLeaf,
		Leaf:      &Leaf{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
