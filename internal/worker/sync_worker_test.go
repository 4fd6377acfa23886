package worker

import (
	"context"
	"testing"

	"github.com/sukratu-design/amex-points-tracker/internal/amqp"
	"github.com/sukratu-design/amex-points-tracker/internal/core"
	"github.com/sukratu-design/amex-points-tracker/internal/remote/memory"
)

func sampleTransaction() core.Transaction {
	return core.Transaction{
		ID:          "local-1",
		Card:        core.CardMRCC,
		Amount:      core.Money{Cents: 120000},
		Category:    core.CategoryDining,
		Date:        core.NewDate(2026, 8, 15),
		Description: "lunch",
		Points:      24,
	}
}

func TestHandleEventAdded(t *testing.T) {
	store := memory.New()
	w := NewSyncWorker(store, "u1")
	ctx := context.Background()

	event := &amqp.TransactionEvent{Type: amqp.EventAdded, Transaction: sampleTransaction()}
	if err := w.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	docs, err := store.Bucket("u1").FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 mirrored doc, got %d", len(docs))
	}
	if docs[0].Description != "lunch" || docs[0].Amount.Cents != 120000 {
		t.Fatalf("mirrored doc mismatch: %+v", docs[0])
	}

	// Redelivery of the same event must not create a duplicate.
	if err := w.HandleEvent(ctx, event); err != nil {
		t.Fatalf("HandleEvent redelivery: %v", err)
	}
	docs, _ = store.Bucket("u1").FetchAll(ctx)
	if len(docs) != 1 {
		t.Fatalf("redelivery created duplicate, got %d docs", len(docs))
	}
}

func TestHandleEventRemoved(t *testing.T) {
	store := memory.New()
	w := NewSyncWorker(store, "u1")
	ctx := context.Background()

	// Mirror first; the store assigns its own id.
	added := &amqp.TransactionEvent{Type: amqp.EventAdded, Transaction: sampleTransaction()}
	if err := w.HandleEvent(ctx, added); err != nil {
		t.Fatalf("HandleEvent added: %v", err)
	}

	// The removal carries the local id, which differs from the remote one.
	removed := &amqp.TransactionEvent{Type: amqp.EventRemoved, Transaction: sampleTransaction()}
	if err := w.HandleEvent(ctx, removed); err != nil {
		t.Fatalf("HandleEvent removed: %v", err)
	}

	docs, err := store.Bucket("u1").FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty collection, got %d docs", len(docs))
	}
}

func TestHandleEventRemovedMissing(t *testing.T) {
	store := memory.New()
	w := NewSyncWorker(store, "u1")

	event := &amqp.TransactionEvent{Type: amqp.EventRemoved, Transaction: sampleTransaction()}
	if err := w.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("removing a missing transaction should not fail: %v", err)
	}
}

func TestHandleEventUnknownType(t *testing.T) {
	store := memory.New()
	w := NewSyncWorker(store, "u1")

	event := &amqp.TransactionEvent{Type: "renamed", Transaction: sampleTransaction()}
	if err := w.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unknown event types are skipped, got %v", err)
	}
}
