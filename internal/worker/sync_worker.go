package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sukratu-design/amex-points-tracker/internal/amqp"
	"github.com/sukratu-design/amex-points-tracker/internal/core"
	"github.com/sukratu-design/amex-points-tracker/internal/remote"
)

// SyncWorker mirrors transaction events into the remote document store. It
// runs as a standalone process consuming the AMQP queue, so transactions
// recorded while the remote store was unreachable still arrive eventually.
type SyncWorker struct {
	store  remote.Store
	userID string
}

func NewSyncWorker(store remote.Store, userID string) *SyncWorker {
	return &SyncWorker{
		store:  store,
		userID: userID,
	}
}

// HandleEvent processes a single transaction event from AMQP.
func (w *SyncWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"type", event.Type,
		"id", event.Transaction.ID)

	switch event.Type {
	case amqp.EventAdded:
		return w.handleAdded(ctx, event.Transaction)
	case amqp.EventRemoved:
		return w.handleRemoved(ctx, event.Transaction)
	default:
		slog.WarnContext(ctx, "Ignoring unknown event type", "type", event.Type)
		return nil
	}
}

func (w *SyncWorker) handleAdded(ctx context.Context, t core.Transaction) error {
	col := w.store.Collection(w.userID)

	// The event may be a redelivery, or the client may already have pushed
	// the transaction itself. Match on the local id first.
	existing, err := col.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch remote transactions: %w", err)
	}
	for _, doc := range existing {
		if doc.ID == t.ID || sameTransaction(doc, t) {
			slog.InfoContext(ctx, "Transaction already mirrored, skipping",
				"id", t.ID, "remote_id", doc.ID)
			return nil
		}
	}

	added, err := col.Add(ctx, t)
	if err != nil {
		return fmt.Errorf("mirror transaction to remote store: %w", err)
	}

	slog.InfoContext(ctx, "Transaction mirrored",
		"id", t.ID,
		"remote_id", added.ID,
		"amount_paise", t.Amount.Cents,
		"points", t.Points)
	return nil
}

func (w *SyncWorker) handleRemoved(ctx context.Context, t core.Transaction) error {
	col := w.store.Collection(w.userID)

	existing, err := col.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch remote transactions: %w", err)
	}

	// The remote copy may carry a store-assigned id that differs from the
	// local one, so fall back to matching on the transaction fields.
	for _, doc := range existing {
		if doc.ID != t.ID && !sameTransaction(doc, t) {
			continue
		}
		if err := col.Remove(ctx, doc.ID); err != nil {
			return fmt.Errorf("remove mirrored transaction: %w", err)
		}
		slog.InfoContext(ctx, "Mirrored transaction removed",
			"id", t.ID, "remote_id", doc.ID)
		return nil
	}

	slog.InfoContext(ctx, "No mirrored transaction to remove", "id", t.ID)
	return nil
}

// sameTransaction reports whether two documents describe the same purchase,
// ignoring identity and bookkeeping fields.
func sameTransaction(a, b core.Transaction) bool {
	return a.Card == b.Card &&
		a.Amount == b.Amount &&
		a.Category == b.Category &&
		a.Date.Equal(b.Date.Time) &&
		a.Description == b.Description
}
