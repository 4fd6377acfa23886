package core

import (
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Card:        CardMRCC,
		Amount:      Money{Cents: 10000},
		Category:    CategoryDining,
		Date:        NewDate(2026, 3, 14),
		Description: "lunch",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		name string
		tx   Transaction
	}{
		{"unknown card", Transaction{Card: "diners", Amount: Money{Cents: 1}, Category: CategoryDining, Date: NewDate(2026, 1, 1)}},
		{"negative amount", Transaction{Card: CardMRCC, Amount: Money{Cents: -1}, Category: CategoryDining, Date: NewDate(2026, 1, 1)}},
		{"unknown category", Transaction{Card: CardMRCC, Amount: Money{Cents: 1}, Category: "lottery", Date: NewDate(2026, 1, 1)}},
		{"zero date", Transaction{Card: CardMRCC, Amount: Money{Cents: 1}, Category: CategoryDining, Date: Date{Time: time.Time{}}}},
	}
	for _, tc := range bads {
		if err := tc.tx.Validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestTransactionValidateZeroAmount(t *testing.T) {
	// Zero is allowed; it simply earns zero points.
	tx := Transaction{Card: CardMRCC, Amount: Money{}, Category: CategoryOther, Date: NewDate(2026, 1, 1)}
	if err := tx.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestCategoryIsValid(t *testing.T) {
	for _, c := range Categories() {
		if !c.IsValid() {
			t.Fatalf("%s should be valid", c)
		}
	}
	if Category("crypto").IsValid() {
		t.Fatalf("crypto should not be valid")
	}
}
