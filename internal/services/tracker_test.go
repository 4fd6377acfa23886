package services

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sukratu-design/amex-points-tracker/internal/auth"
	"github.com/sukratu-design/amex-points-tracker/internal/core"
	"github.com/sukratu-design/amex-points-tracker/internal/remote"
	"github.com/sukratu-design/amex-points-tracker/internal/remote/memory"
	"github.com/sukratu-design/amex-points-tracker/internal/storage"
)

type fixture struct {
	tracker *Tracker
	cache   *storage.CacheStore
	store   *memory.Store
	session *auth.SessionManager
	events  *capturePublisher
}

type capturePublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *capturePublisher) PublishTransactionEvent(_ context.Context, eventType string, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType+":"+t.ID)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = strings.SplitN(e, ":", 2)[0]
	}
	return out
}

// newFixture builds a tracker against an in-memory remote store and a real
// sqlite cache. The session starts unauthenticated.
func newFixture(t *testing.T, callbacks Callbacks) *fixture {
	t.Helper()
	cache, err := storage.NewCacheStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewCacheStore: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	store := memory.New()
	session := auth.NewSessionManager(auth.Static("u1"))
	events := &capturePublisher{}
	adapter := remote.NewAdapter(store, session)
	tracker := NewTracker(cache, adapter, session, events, callbacks)
	t.Cleanup(tracker.Close)

	return &fixture{tracker: tracker, cache: cache, store: store, session: session, events: events}
}

func input() TransactionInput {
	return TransactionInput{
		Card:        core.CardPlatinumTravel,
		Amount:      core.Money{Cents: 99900},
		Category:    core.CategoryDining,
		Date:        core.NewDate(2026, 8, 29),
		Description: "dinner",
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestAddOffline(t *testing.T) {
	f := newFixture(t, Callbacks{})
	ctx := context.Background()

	tx, err := f.tracker.Add(ctx, input())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if tx.ID == "" || tx.CreatedAt.IsZero() {
		t.Fatalf("expected assigned id and timestamp, got %+v", tx)
	}
	if tx.Points != 24 {
		t.Fatalf("expected 24 points for ₹999 at 1/40, got %d", tx.Points)
	}

	list := f.tracker.Transactions()
	if len(list) != 1 || list[0].ID != tx.ID {
		t.Fatalf("in-memory list missing transaction: %+v", list)
	}
	cached := f.cache.Load(ctx)
	if len(cached) != 1 || cached[0].ID != tx.ID {
		t.Fatalf("local cache missing transaction: %+v", cached)
	}

	// No remote attempt happened, so the status stays idle.
	if status, _ := f.tracker.Status(); status != StatusIdle {
		t.Fatalf("expected idle status offline, got %s", status)
	}
}

func TestAddValidation(t *testing.T) {
	f := newFixture(t, Callbacks{})
	bad := input()
	bad.Card = "diners"
	if _, err := f.tracker.Add(context.Background(), bad); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(f.tracker.Transactions()) != 0 {
		t.Fatalf("invalid transaction must not be recorded")
	}
}

func TestAddAdoptsRemoteIdentity(t *testing.T) {
	f := newFixture(t, Callbacks{})
	ctx := context.Background()
	if _, err := f.session.SignIn(ctx); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	tx, err := f.tracker.Add(ctx, input())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	remoteList, err := f.store.Bucket("u1").FetchAll(ctx)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(remoteList) != 1 {
		t.Fatalf("expected 1 remote doc, got %d", len(remoteList))
	}
	if tx.ID != remoteList[0].ID {
		t.Fatalf("returned id %s should be the store-assigned %s", tx.ID, remoteList[0].ID)
	}
	local := f.tracker.Transactions()
	if len(local) != 1 || local[0].ID != remoteList[0].ID {
		t.Fatalf("in-memory list should adopt the remote identity, got %+v", local)
	}
	if status, _ := f.tracker.Status(); status != StatusSynced {
		t.Fatalf("expected synced, got %s", status)
	}
}

func TestAddRemoteFailureKeepsLocal(t *testing.T) {
	f := newFixture(t, Callbacks{})
	ctx := context.Background()
	if _, err := f.session.SignIn(ctx); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	f.store.Bucket("u1").FailAll(context.DeadlineExceeded)

	tx, err := f.tracker.Add(ctx, input())
	if err != nil {
		t.Fatalf("Add must not fail on remote error, got %v", err)
	}
	if len(f.tracker.Transactions()) != 1 {
		t.Fatalf("local mutation must not be rolled back")
	}
	if cached := f.cache.Load(ctx); len(cached) != 1 || cached[0].ID != tx.ID {
		t.Fatalf("cache must keep the local copy: %+v", cached)
	}
	status, msg := f.tracker.Status()
	if status != StatusError || msg == "" {
		t.Fatalf("expected error status with message, got %s %q", status, msg)
	}
}

func TestRemove(t *testing.T) {
	f := newFixture(t, Callbacks{})
	ctx := context.Background()

	tx, err := f.tracker.Add(ctx, input())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	f.tracker.Remove(ctx, tx.ID)

	if len(f.tracker.Transactions()) != 0 {
		t.Fatalf("transaction should be removed")
	}
	if cached := f.cache.Load(ctx); len(cached) != 0 {
		t.Fatalf("cache should be empty, got %+v", cached)
	}
	if got := f.events.types(); len(got) != 2 || got[0] != "added" || got[1] != "removed" {
		t.Fatalf("expected added then removed events, got %v", got)
	}
}

func TestClearRemoteFailure(t *testing.T) {
	f := newFixture(t, Callbacks{})
	ctx := context.Background()
	if _, err := f.session.SignIn(ctx); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	first, err := f.tracker.Add(ctx, input())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := f.tracker.Add(ctx, input()); err != nil {
		t.Fatalf("Add: %v", err)
	}
	f.store.Bucket("u1").FailRemove(first.ID, context.DeadlineExceeded)

	f.tracker.Clear(ctx)

	// Local state is cleared regardless of the partial remote failure.
	if len(f.tracker.Transactions()) != 0 {
		t.Fatalf("in-memory list should be empty")
	}
	if cached := f.cache.Load(ctx); len(cached) != 0 {
		t.Fatalf("local cache should be empty, got %+v", cached)
	}
	if status, _ := f.tracker.Status(); status != StatusError {
		t.Fatalf("expected error status, got %s", status)
	}
}

func TestSessionLifecycle(t *testing.T) {
	var mu sync.Mutex
	var displayed [][]core.Transaction
	f := newFixture(t, Callbacks{
		OnDisplayUpdate: func(list []core.Transaction) {
			mu.Lock()
			displayed = append(displayed, list)
			mu.Unlock()
		},
	})
	ctx := context.Background()

	// Seed the remote collection before the session opens.
	if _, err := f.store.Bucket("u1").Add(ctx, core.Transaction{
		Card:     core.CardMRCC,
		Amount:   core.Money{Cents: 250000},
		Category: core.CategoryGroceries,
		Date:     core.NewDate(2026, 8, 1),
	}); err != nil {
		t.Fatalf("seed remote: %v", err)
	}

	f.tracker.Start(ctx)
	if len(f.tracker.Transactions()) != 0 {
		t.Fatalf("expected empty list before sign-in")
	}

	if _, err := f.session.SignIn(ctx); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	// The live subscription replaces the list with the remote contents.
	waitFor(t, func() bool { return len(f.tracker.Transactions()) == 1 })

	// Points are rederived on the way in: ₹2500 on mrcc at 1/50 is 50.
	got := f.tracker.Transactions()[0]
	if got.Points != 50 {
		t.Fatalf("expected rederived 50 points, got %d", got.Points)
	}
	// The snapshot is mirrored into the local cache.
	waitFor(t, func() bool { return len(f.cache.Load(ctx)) == 1 })

	// Sign-out detaches the subscription and reverts to cache contents.
	if err := f.session.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if len(f.tracker.Transactions()) != 1 {
		t.Fatalf("list should revert to the mirrored cache contents")
	}
	if status, _ := f.tracker.Status(); status != StatusIdle {
		t.Fatalf("expected idle after sign-out, got %s", status)
	}

	// A remote mutation after sign-out must not reach the list.
	if _, err := f.store.Bucket("u1").Add(ctx, core.Transaction{
		Card:     core.CardMRCC,
		Amount:   core.Money{Cents: 100},
		Category: core.CategoryOther,
		Date:     core.NewDate(2026, 8, 2),
	}); err != nil {
		t.Fatalf("remote add: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if len(f.tracker.Transactions()) != 1 {
		t.Fatalf("detached subscription must not alter the list")
	}

	mu.Lock()
	updates := len(displayed)
	mu.Unlock()
	if updates == 0 {
		t.Fatalf("display callback never invoked")
	}
}

func TestImportJSON(t *testing.T) {
	f := newFixture(t, Callbacks{})
	ctx := context.Background()

	if _, err := f.tracker.Add(ctx, input()); err != nil {
		t.Fatalf("Add: %v", err)
	}

	payload := `[
		{"card": "mrcc", "amount": 500000, "category": "groceries", "date": "2026-07-01T00:00:00Z"},
		{"id": "keep-me", "card": "platinum-travel", "amount": 99900, "category": "dining", "date": "2026-07-02T00:00:00Z", "createdAt": "2026-07-02T10:00:00Z", "points": 9999},
		{"card": "diners", "amount": 100, "category": "dining", "date": "2026-07-03T00:00:00Z"}
	]`
	count, err := f.tracker.ImportJSON(ctx, []byte(payload))
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 imports (invalid record skipped), got %d", count)
	}

	list := f.tracker.Transactions()
	if len(list) != 3 {
		t.Fatalf("expected imports merged ahead of existing, got %d", len(list))
	}
	// Imported records come first.
	if list[0].ID == "" || list[0].CreatedAt.IsZero() {
		t.Fatalf("missing id/createdAt should be assigned: %+v", list[0])
	}
	if list[1].ID != "keep-me" {
		t.Fatalf("existing id should be kept, got %q", list[1].ID)
	}
	if list[1].Points != 24 {
		t.Fatalf("points must be recomputed on import, got %d", list[1].Points)
	}
	if cached := f.cache.Load(ctx); len(cached) != 3 {
		t.Fatalf("cache should hold the merged list, got %d", len(cached))
	}
}

func TestImportJSONParseError(t *testing.T) {
	f := newFixture(t, Callbacks{})
	if _, err := f.tracker.ImportJSON(context.Background(), []byte(`{not json`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestExportJSON(t *testing.T) {
	f := newFixture(t, Callbacks{})
	ctx := context.Background()

	tx, err := f.tracker.Add(ctx, input())
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	data, filename, err := f.tracker.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	wantName := "amex-points-export-" + time.Now().Format("2006-01-02") + ".json"
	if filename != wantName {
		t.Fatalf("expected filename %q, got %q", wantName, filename)
	}
	if !strings.Contains(string(data), tx.ID) {
		t.Fatalf("export should contain the transaction")
	}

	// The export must round-trip through import.
	f.tracker.Clear(ctx)
	count, err := f.tracker.ImportJSON(ctx, data)
	if err != nil || count != 1 {
		t.Fatalf("round-trip import: count=%d err=%v", count, err)
	}
	if got := f.tracker.Transactions(); len(got) != 1 || got[0].ID != tx.ID {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestSummaries(t *testing.T) {
	f := newFixture(t, Callbacks{})
	ctx := context.Background()

	in := input()
	in.Amount = core.Money{Cents: 19_000_000} // ₹1,90,000 hits the first milestone
	in.Category = core.CategoryShopping
	if _, err := f.tracker.Add(ctx, in); err != nil {
		t.Fatalf("Add: %v", err)
	}

	var platinum core.CardSummary
	for _, s := range f.tracker.Summaries() {
		if s.Card == core.CardPlatinumTravel {
			platinum = s
		}
	}
	if platinum.MilestoneBonus != 15000 {
		t.Fatalf("expected milestone bonus 15000, got %d", platinum.MilestoneBonus)
	}
	if platinum.EarnedPoints != 4750 { // 190000/40
		t.Fatalf("expected 4750 earned points, got %d", platinum.EarnedPoints)
	}
}
