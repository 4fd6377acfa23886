package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sukratu-design/amex-points-tracker/internal/core"
)

// clearConcurrency bounds the fan-out of per-document deletes and imports.
const clearConcurrency = 8

var errUnavailable = errors.New("remote store unavailable")

// Adapter wraps the optional remote store behind the session gate. Every
// operation fails with RemoteError when the store is unreachable; none of
// them touch local state, the caller owns the write-through policy.
//
// At most one live subscription exists per adapter: establishing a new one
// detaches any prior listener, and notifications from a detached listener
// are discarded.
type Adapter struct {
	store   Store
	session Session

	mu         sync.Mutex
	cancelSub  context.CancelFunc
	generation uint64
}

func NewAdapter(store Store, session Session) *Adapter {
	return &Adapter{store: store, session: session}
}

// Available returns true only when a remote store is configured and a
// session is authenticated.
func (a *Adapter) Available() bool {
	return a.store != nil && a.session.UserID() != ""
}

func (a *Adapter) collection() (Collection, error) {
	if a.store == nil {
		return nil, errUnavailable
	}
	uid := a.session.UserID()
	if uid == "" {
		return nil, errUnavailable
	}
	return a.store.Collection(uid), nil
}

// FetchAll loads the signed-in user's full remote transaction list.
func (a *Adapter) FetchAll(ctx context.Context) ([]core.Transaction, error) {
	col, err := a.collection()
	if err != nil {
		return nil, remoteErr("fetch", err)
	}
	list, err := col.FetchAll(ctx)
	if err != nil {
		return nil, remoteErr("fetch", err)
	}
	return list, nil
}

// Add stores a transaction remotely and returns it with the store-assigned
// identifier and creation timestamp.
func (a *Adapter) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	col, err := a.collection()
	if err != nil {
		return core.Transaction{}, remoteErr("add", err)
	}
	added, err := col.Add(ctx, t)
	if err != nil {
		return core.Transaction{}, remoteErr("add", err)
	}
	return added, nil
}

// Remove deletes one remote document by identifier.
func (a *Adapter) Remove(ctx context.Context, id string) error {
	col, err := a.collection()
	if err != nil {
		return remoteErr("remove", err)
	}
	if err := col.Remove(ctx, id); err != nil {
		return remoteErr("remove", err)
	}
	return nil
}

// Clear deletes every document in the user's collection. Deletes are
// attempted for all documents; partial failure is surfaced as RemoteError
// while the deletes that already succeeded stay applied.
func (a *Adapter) Clear(ctx context.Context) error {
	col, err := a.collection()
	if err != nil {
		return remoteErr("clear", err)
	}
	list, err := col.FetchAll(ctx)
	if err != nil {
		return remoteErr("clear", err)
	}

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(clearConcurrency)
	for _, t := range list {
		id := t.ID
		g.Go(func() error {
			if err := col.Remove(ctx, id); err != nil {
				failed.Add(1)
				return fmt.Errorf("remove %s: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return remoteErr("clear", fmt.Errorf("%d of %d deletes failed: %w", failed.Load(), len(list), err))
	}
	return nil
}

// BulkImport attempts to add every transaction. All adds are attempted even
// after a failure; the count of successful adds is returned alongside a
// RemoteError summarizing any sub-failures, since the caller has already
// persisted all of them locally.
func (a *Adapter) BulkImport(ctx context.Context, transactions []core.Transaction) (int, error) {
	col, err := a.collection()
	if err != nil {
		return 0, remoteErr("import", err)
	}

	var added, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(clearConcurrency)
	for _, t := range transactions {
		t := t
		g.Go(func() error {
			if _, err := col.Add(ctx, t); err != nil {
				failed.Add(1)
				return fmt.Errorf("add %s: %w", t.ID, err)
			}
			added.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(added.Load()), remoteErr("import",
			fmt.Errorf("%d of %d adds failed: %w", failed.Load(), len(transactions), err))
	}
	return int(added.Load()), nil
}

// Subscribe attaches a live-change listener and returns its detach handle.
// Any prior listener is detached first, so at most one is live at any
// instant; a notification that races with detachment is dropped by the
// generation check.
func (a *Adapter) Subscribe(onChange func([]core.Transaction), onError func(error)) (func(), error) {
	col, err := a.collection()
	if err != nil {
		return nil, remoteErr("subscribe", err)
	}

	a.mu.Lock()
	if a.cancelSub != nil {
		a.cancelSub()
		a.cancelSub = nil
	}
	a.generation++
	gen := a.generation
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelSub = cancel
	a.mu.Unlock()

	live := func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.generation == gen && a.cancelSub != nil
	}

	go col.Listen(ctx,
		func(list []core.Transaction) {
			if !live() {
				slog.Debug("Dropping notification from detached listener", "generation", gen)
				return
			}
			onChange(list)
		},
		func(err error) {
			if !live() {
				return
			}
			onError(remoteErr("listen", err))
		})

	unsubscribe := func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.generation != gen {
			// A newer subscription replaced this one already.
			return
		}
		if a.cancelSub != nil {
			a.cancelSub()
			a.cancelSub = nil
		}
	}
	return unsubscribe, nil
}
