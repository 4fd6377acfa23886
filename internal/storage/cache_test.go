package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sukratu-design/amex-points-tracker/internal/core"
)

func newTestStore(t *testing.T) *CacheStore {
	t.Helper()
	store, err := NewCacheStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("NewCacheStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLoadEmptyStore(t *testing.T) {
	store := newTestStore(t)
	got := store.Load(context.Background())
	if got == nil {
		t.Fatalf("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %d items", len(got))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	want := []core.Transaction{
		{
			ID:          "tx-1",
			Card:        core.CardPlatinumTravel,
			Amount:      core.Money{Cents: 99900},
			Category:    core.CategoryDining,
			Date:        core.NewDate(2026, 8, 29),
			Description: "dinner",
			Points:      24,
			CreatedAt:   created,
		},
		{
			ID:        "tx-2",
			Card:      core.CardMRCC,
			Amount:    core.Money{Cents: 500000},
			Category:  core.CategoryFuel,
			Date:      core.NewDate(2026, 8, 30),
			CreatedAt: created.Add(time.Second),
		},
	}

	store.Save(ctx, want)
	got := store.Load(ctx)

	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i].ID ||
			got[i].Card != want[i].Card ||
			got[i].Amount != want[i].Amount ||
			got[i].Category != want[i].Category ||
			got[i].Description != want[i].Description ||
			got[i].Points != want[i].Points ||
			!got[i].CreatedAt.Equal(want[i].CreatedAt) {
			t.Fatalf("item %d mismatch: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestSaveOverwritesPriorContents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Save(ctx, []core.Transaction{{ID: "a"}, {ID: "b"}})
	store.Save(ctx, []core.Transaction{{ID: "c"}})

	got := store.Load(ctx)
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("expected single item c, got %+v", got)
	}
}

func TestSaveEmptyListRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.Save(ctx, []core.Transaction{{ID: "a"}})
	store.Save(ctx, []core.Transaction{})

	if got := store.Load(ctx); len(got) != 0 {
		t.Fatalf("expected empty list, got %d items", len(got))
	}
}

func TestLoadCorruptPayload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx,
		`INSERT INTO cache (key, payload) VALUES (?, ?)`, transactionsKey, `{"not": "a list"`)
	if err != nil {
		t.Fatalf("seed corrupt payload: %v", err)
	}

	got := store.Load(ctx)
	if len(got) != 0 {
		t.Fatalf("corrupt payload should load as empty, got %d items", len(got))
	}
}

func TestLoadEmptyStringPayload(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx,
		`INSERT INTO cache (key, payload) VALUES (?, ?)`, transactionsKey, "")
	if err != nil {
		t.Fatalf("seed empty payload: %v", err)
	}

	if got := store.Load(ctx); len(got) != 0 {
		t.Fatalf("empty payload should load as empty, got %d items", len(got))
	}
}
