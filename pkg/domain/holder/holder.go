// Package holder defines the owners of leaf accounts.
package holder

import (
	"fmt"
	"strings"
	"time"

	"github.com/amirasaad/ledger/pkg/domain"
	"github.com/amirasaad/ledger/pkg/domain/day"
	"github.com/google/uuid"
)

// Holder owns Leaf accounts; Branch accounts inherit ownership.
type Holder struct {
	ID          uuid.UUID
	Key         string
	Name        string
	OnboardedOn day.Date
	CreatedAt   time.Time
}

// New validates the inputs and returns a Holder with a fresh ID.
func New(key, name string, onboardedOn day.Date) (*Holder, error) {
	key = strings.TrimSpace(key)
	name = strings.TrimSpace(name)
	if key == "" {
		return nil, fmt.Errorf("%w: holder key is required", domain.ErrValidation)
	}
	if name == "" {
		name = key
	}
	if onboardedOn.IsZero() {
		onboardedOn = day.Today()
	}
	return &Holder{
		ID:          uuid.New(),
		Key:         key,
		Name:        name,
		OnboardedOn: onboardedOn,
		CreatedAt:   time.Now(),
	}, nil
}
