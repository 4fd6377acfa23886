// Package services orchestrates the local cache, the remote sync adapter
// and the session manager into the single source of truth consumed by the
// presentation layer.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sukratu-design/amex-points-tracker/internal/auth"
	"github.com/sukratu-design/amex-points-tracker/internal/core"
	"github.com/sukratu-design/amex-points-tracker/internal/remote"
	"github.com/sukratu-design/amex-points-tracker/internal/storage"
)

// SyncStatus reflects the outcome of the most recent remote attempt. It is
// ephemeral and never persisted.
type SyncStatus string

const (
	StatusIdle    SyncStatus = "idle"
	StatusSyncing SyncStatus = "syncing"
	StatusSynced  SyncStatus = "synced"
	StatusError   SyncStatus = "error"
)

// Callbacks is the presentation boundary. All fields are optional.
type Callbacks struct {
	OnDisplayUpdate    func(transactions []core.Transaction)
	OnSyncStatusChange func(status SyncStatus, message string)
	OnLoadingChange    func(loading bool)
}

// EventPublisher announces local mutations to external consumers. A nil
// publisher disables events.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, eventType string, t core.Transaction) error
}

const (
	eventAdded   = "added"
	eventRemoved = "removed"
)

// TransactionInput is a new transaction as entered by the user; id, points
// and creation timestamp are assigned at write time.
type TransactionInput struct {
	Card        core.CardType
	Amount      core.Money
	Category    core.Category
	Date        core.Date
	Description string
}

// Tracker owns the authoritative in-memory transaction list and applies the
// write-through-local / best-effort-remote protocol to every mutation:
// the mutation lands in memory and the local cache synchronously, then the
// remote store is attempted; a remote failure surfaces through SyncStatus
// and never rolls the local mutation back.
//
// While a session is authenticated a live remote subscription replaces the
// list wholesale on every notification and mirrors it into the local cache;
// on sign-out the subscription is detached and the list reverts to the
// cache contents.
type Tracker struct {
	cache     *storage.CacheStore
	remote    *remote.Adapter
	session   *auth.SessionManager
	events    EventPublisher
	callbacks Callbacks

	mu            sync.Mutex
	transactions  []core.Transaction
	status        SyncStatus
	statusMsg     string
	unsubscribe   func()
	detachSession func()
}

func NewTracker(
	cache *storage.CacheStore,
	remoteAdapter *remote.Adapter,
	session *auth.SessionManager,
	events EventPublisher,
	callbacks Callbacks,
) *Tracker {
	return &Tracker{
		cache:     cache,
		remote:    remoteAdapter,
		session:   session,
		events:    events,
		callbacks: callbacks,
		status:    StatusIdle,
	}
}

// Start loads the local cache into memory and binds the subscription
// lifecycle to session transitions. The session observer fires immediately,
// so a pre-authenticated session subscribes right away.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	t.transactions = t.cache.Load(ctx)
	t.mu.Unlock()
	t.notifyDisplay()

	t.detachSession = t.session.OnSessionChange(func(userID string) {
		t.handleSessionChange(context.Background(), userID)
	})
}

// Close detaches the session observer and any live subscription.
func (t *Tracker) Close() {
	if t.detachSession != nil {
		t.detachSession()
		t.detachSession = nil
	}
	t.mu.Lock()
	unsub := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Transactions returns a copy of the authoritative list, newest first.
func (t *Tracker) Transactions() []core.Transaction {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.Transaction, len(t.transactions))
	copy(out, t.transactions)
	return out
}

// Status returns the current sync status and its message.
func (t *Tracker) Status() (SyncStatus, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.statusMsg
}

// Summaries recomputes per-card spend, points and milestone bonuses from
// the full transaction list.
func (t *Tracker) Summaries() []core.CardSummary {
	return core.Summarize(t.Transactions())
}

// Add records a new transaction. The id, computed points and creation
// timestamp are assigned here; the local write completes before any remote
// attempt begins, so the caller sees the transaction immediately even when
// the remote write later fails.
func (t *Tracker) Add(ctx context.Context, input TransactionInput) (core.Transaction, error) {
	tx := core.Transaction{
		ID:          uuid.NewString(),
		Card:        input.Card,
		Amount:      input.Amount,
		Category:    input.Category,
		Date:        input.Date,
		Description: input.Description,
		CreatedAt:   time.Now(),
	}
	tx.Points = core.PointsFor(tx)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	t.mu.Lock()
	t.transactions = append([]core.Transaction{tx}, t.transactions...)
	t.cache.Save(ctx, t.transactions)
	t.mu.Unlock()
	t.notifyDisplay()
	t.publish(ctx, eventAdded, tx)

	if !t.remote.Available() {
		return tx, nil
	}

	t.setStatus(StatusSyncing, "")
	added, err := t.remote.Add(ctx, tx)
	if err != nil {
		slog.ErrorContext(ctx, "Remote add failed, keeping local copy",
			"transaction_id", tx.ID, "error", err)
		t.setStatus(StatusError, err.Error())
		return tx, nil
	}

	// Adopt the store-assigned identity and server timestamp.
	t.mu.Lock()
	for i := range t.transactions {
		if t.transactions[i].ID == tx.ID {
			t.transactions[i] = added
			break
		}
	}
	t.cache.Save(ctx, t.transactions)
	t.mu.Unlock()
	t.notifyDisplay()
	t.setStatus(StatusSynced, "")
	return added, nil
}

// Remove deletes a transaction by id. The local delete is final; a remote
// failure only surfaces through SyncStatus.
func (t *Tracker) Remove(ctx context.Context, id string) {
	var removed *core.Transaction
	t.mu.Lock()
	kept := t.transactions[:0]
	for _, tx := range t.transactions {
		if tx.ID == id {
			txCopy := tx
			removed = &txCopy
			continue
		}
		kept = append(kept, tx)
	}
	t.transactions = kept
	t.cache.Save(ctx, t.transactions)
	t.mu.Unlock()
	t.notifyDisplay()
	if removed != nil {
		t.publish(ctx, eventRemoved, *removed)
	}

	if !t.remote.Available() {
		return
	}

	t.setStatus(StatusSyncing, "")
	if err := t.remote.Remove(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Remote remove failed, local delete stands",
			"transaction_id", id, "error", err)
		t.setStatus(StatusError, err.Error())
		return
	}
	t.setStatus(StatusSynced, "")
}

// Clear deletes every transaction. The local cache is cleared regardless of
// the remote outcome; a partial remote failure surfaces as an error status
// while the remote deletes that succeeded stay applied.
func (t *Tracker) Clear(ctx context.Context) {
	t.mu.Lock()
	t.transactions = []core.Transaction{}
	t.cache.Save(ctx, t.transactions)
	t.mu.Unlock()
	t.notifyDisplay()

	if !t.remote.Available() {
		return
	}

	t.setStatus(StatusSyncing, "")
	if err := t.remote.Clear(ctx); err != nil {
		slog.ErrorContext(ctx, "Remote clear failed", "error", err)
		t.setStatus(StatusError, err.Error())
		return
	}
	t.setStatus(StatusSynced, "")
}

// importRecord is a loosely-typed transaction as found in an import file.
type importRecord struct {
	ID          string        `json:"id"`
	Card        core.CardType `json:"card"`
	Amount      core.Money    `json:"amount"`
	Category    core.Category `json:"category"`
	Date        core.Date     `json:"date"`
	Description string        `json:"description"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// ImportJSON merges a JSON array of transaction-like records ahead of the
// existing list. Records without an id or creation timestamp get a fresh
// uuid and the current time; points are always recomputed, never trusted
// from the file. Valid records are persisted locally and then pushed to the
// remote store best-effort. Returns the number of records imported.
func (t *Tracker) ImportJSON(ctx context.Context, data []byte) (int, error) {
	var records []importRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("parse import payload: %w", err)
	}

	now := time.Now()
	imported := make([]core.Transaction, 0, len(records))
	for i, rec := range records {
		tx := core.Transaction{
			ID:          rec.ID,
			Card:        rec.Card,
			Amount:      rec.Amount,
			Category:    rec.Category,
			Date:        rec.Date,
			Description: rec.Description,
			CreatedAt:   rec.CreatedAt,
		}
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = now
		}
		tx.Points = core.PointsFor(tx)
		if err := tx.Validate(); err != nil {
			slog.WarnContext(ctx, "Skipping invalid import record",
				"index", i, "error", err)
			continue
		}
		imported = append(imported, tx)
	}
	if len(imported) == 0 {
		return 0, nil
	}

	t.mu.Lock()
	t.transactions = append(imported, t.transactions...)
	t.cache.Save(ctx, t.transactions)
	t.mu.Unlock()
	t.notifyDisplay()
	for _, tx := range imported {
		t.publish(ctx, eventAdded, tx)
	}

	if !t.remote.Available() {
		return len(imported), nil
	}

	t.setStatus(StatusSyncing, "")
	pushed, err := t.remote.BulkImport(ctx, imported)
	if err != nil {
		slog.ErrorContext(ctx, "Remote bulk import incomplete, local copies kept",
			"pushed", pushed, "total", len(imported), "error", err)
		t.setStatus(StatusError, err.Error())
		return len(imported), nil
	}
	t.setStatus(StatusSynced, "")
	return len(imported), nil
}

// ExportJSON serializes the full current list as indented JSON and returns
// it with a date-stamped filename.
func (t *Tracker) ExportJSON() ([]byte, string, error) {
	data, err := json.MarshalIndent(t.Transactions(), "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("serialize transactions: %w", err)
	}
	filename := fmt.Sprintf("amex-points-export-%s.json", time.Now().Format("2006-01-02"))
	return data, filename, nil
}

// handleSessionChange rebinds the subscription lifecycle on every session
// transition. The prior listener is unconditionally detached first, so at
// most one live listener exists at any instant.
func (t *Tracker) handleSessionChange(ctx context.Context, userID string) {
	t.mu.Lock()
	unsub := t.unsubscribe
	t.unsubscribe = nil
	t.mu.Unlock()
	if unsub != nil {
		unsub()
	}

	if userID == "" {
		// Unauthenticated: local cache is authoritative again.
		t.mu.Lock()
		t.transactions = t.cache.Load(ctx)
		t.mu.Unlock()
		t.notifyDisplay()
		t.setStatus(StatusIdle, "")
		return
	}

	t.setLoading(true)
	unsubNew, err := t.remote.Subscribe(
		func(list []core.Transaction) { t.applyRemoteSnapshot(list) },
		func(err error) {
			slog.Error("Remote subscription failed, continuing on local cache", "error", err)
			t.setStatus(StatusError, err.Error())
			t.setLoading(false)
		},
	)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to subscribe to remote changes", "error", err)
		t.setStatus(StatusError, err.Error())
		t.setLoading(false)
		return
	}

	t.mu.Lock()
	t.unsubscribe = unsubNew
	t.mu.Unlock()
}

// applyRemoteSnapshot replaces the authoritative list with a live remote
// notification and mirrors it into the local cache. Points are rederived
// from each transaction's fields; the stored value is only a cache.
func (t *Tracker) applyRemoteSnapshot(list []core.Transaction) {
	ctx := context.Background()
	for i := range list {
		list[i].Points = core.PointsFor(list[i])
	}

	t.mu.Lock()
	t.transactions = list
	t.cache.Save(ctx, t.transactions)
	t.mu.Unlock()
	t.notifyDisplay()
	t.setStatus(StatusSynced, "")
	t.setLoading(false)
}

func (t *Tracker) publish(ctx context.Context, eventType string, tx core.Transaction) {
	if t.events == nil {
		return
	}
	if err := t.events.PublishTransactionEvent(ctx, eventType, tx); err != nil {
		// Events are strictly best-effort.
		slog.WarnContext(ctx, "Failed to publish transaction event",
			"type", eventType, "transaction_id", tx.ID, "error", err)
	}
}

func (t *Tracker) setStatus(status SyncStatus, message string) {
	t.mu.Lock()
	t.status = status
	t.statusMsg = message
	t.mu.Unlock()
	if t.callbacks.OnSyncStatusChange != nil {
		t.callbacks.OnSyncStatusChange(status, message)
	}
}

func (t *Tracker) setLoading(loading bool) {
	if t.callbacks.OnLoadingChange != nil {
		t.callbacks.OnLoadingChange(loading)
	}
}

func (t *Tracker) notifyDisplay() {
	if t.callbacks.OnDisplayUpdate == nil {
		return
	}
	t.callbacks.OnDisplayUpdate(t.Transactions())
}
