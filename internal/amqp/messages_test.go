package amqp

import (
	"testing"
	"time"

	"github.com/sukratu-design/amex-points-tracker/internal/core"
)

func TestTransactionEventRoundTrip(t *testing.T) {
	tx := core.Transaction{
		ID:        "tx-1",
		Card:      core.CardPlatinumTravel,
		Amount:    core.Money{Cents: 99900},
		Category:  core.CategoryInternational,
		Date:      core.NewDate(2026, 8, 29),
		Points:    49,
		CreatedAt: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
	}

	evt := NewTransactionEvent(EventAdded, tx)
	body, err := evt.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := TransactionEventFromJSON(body)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Type != EventAdded {
		t.Fatalf("expected type %q, got %q", EventAdded, got.Type)
	}
	if got.Transaction.ID != tx.ID ||
		got.Transaction.Amount != tx.Amount ||
		got.Transaction.Points != tx.Points ||
		!got.Transaction.CreatedAt.Equal(tx.CreatedAt) {
		t.Fatalf("transaction mismatch: %+v", got.Transaction)
	}
}

func TestTransactionEventFromJSONInvalid(t *testing.T) {
	if _, err := TransactionEventFromJSON([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
}
