package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sukratu-design/amex-points-tracker/internal/core"

	_ "modernc.org/sqlite"
)

// transactionsKey is the single cache key holding the serialized transaction
// list.
const transactionsKey = "transactions"

// CacheStore is the local, always-available mirror of the transaction list.
// The full list is serialized as JSON under one key. Persistence is
// best-effort: Save never reports failure to the caller and Load treats a
// missing or corrupt payload as an empty list.
type CacheStore struct {
	db *sql.DB
}

func NewCacheStore(dbPath string) (*CacheStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &CacheStore{db: db}, nil
}

func (s *CacheStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load returns the cached transaction list. A missing key, empty payload or
// malformed JSON all load as an empty list; corruption is logged, never
// raised.
func (s *CacheStore) Load(ctx context.Context) []core.Transaction {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM cache WHERE key = ?`, transactionsKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return []core.Transaction{}
	}
	if err != nil {
		slog.WarnContext(ctx, "Failed to read local cache, treating as empty",
			"key", transactionsKey, "error", err)
		return []core.Transaction{}
	}
	if payload == "" {
		return []core.Transaction{}
	}

	var transactions []core.Transaction
	if err := json.Unmarshal([]byte(payload), &transactions); err != nil {
		slog.WarnContext(ctx, "Corrupt local cache payload, treating as empty",
			"key", transactionsKey, "error", err)
		return []core.Transaction{}
	}
	if transactions == nil {
		transactions = []core.Transaction{}
	}
	return transactions
}

// Save persists the full list, overwriting prior contents. Failures are
// logged and swallowed: the in-memory list stays correct for the session and
// local persistence is best-effort by contract.
func (s *CacheStore) Save(ctx context.Context, transactions []core.Transaction) {
	payload, err := json.Marshal(transactions)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to serialize transactions for local cache",
			"count", len(transactions), "error", err)
		return
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cache (key, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`,
		transactionsKey, string(payload))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to write local cache",
			"key", transactionsKey, "count", len(transactions), "error", err)
		return
	}

	slog.DebugContext(ctx, "Local cache updated",
		"key", transactionsKey, "count", len(transactions))
}
