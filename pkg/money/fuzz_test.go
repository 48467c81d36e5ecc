package money_test

import (
	"testing"

	"github.com/amirasaad/ledger/pkg/money"
)

// FuzzNewFromSmallestUnit checks that arithmetic round trips keep the amount.
func FuzzNewFromSmallestUnit(f *testing.F) {
	f.Add(int64(100), "USD")
	f.Add(int64(-50), "EUR")
	f.Add(int64(0), "JPY")
	f.Add(int64(1e12), "KWD")

	f.Fuzz(func(t *testing.T, amount int64, cc string) {
		currency := money.Code(cc)
		if !currency.IsValid() {
			t.Skip("Skipping invalid currency code")
		}
		if amount > 1<<60 || amount < -(1<<60) {
			t.Skip("Skipping out of range amount")
		}
		m, err := money.NewFromSmallestUnit(amount, currency)
		if err != nil {
			t.Fatalf("Failed to create money: %v", err)
		}
		if got := m.CurrencyCode(); got != currency {
			t.Errorf("Currency code changed: got %q, want %q", got, currency)
		}
		back, err := money.New(m.Decimal(), currency)
		if err != nil {
			t.Fatalf("New from decimal failed: %v", err)
		}
		if !back.Equals(m) {
			t.Errorf("round trip changed value: %s -> %s", m, back)
		}
		sum, err := m.Add(m.Negate())
		if err != nil || !sum.IsZero() {
			t.Errorf("m + -m should be zero, got %s (%v)", sum, err)
		}
	})
}
