// Package memory is an in-process remote.Store used for the memory backend
// and as the test double for sync logic. It mimics the document-store
// contract: store-assigned ids, creation-timestamp-descending order and
// change notification to live listeners.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sukratu-design/amex-points-tracker/internal/core"
	"github.com/sukratu-design/amex-points-tracker/internal/remote"
)

type Store struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

func New() *Store {
	return &Store{collections: map[string]*Collection{}}
}

// Collection returns the per-user collection, creating it on first use.
func (s *Store) Collection(userID string) remote.Collection {
	return s.Bucket(userID)
}

// Bucket is Collection with the concrete type, for tests that need the
// fault-injection hooks.
func (s *Store) Bucket(userID string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[userID]
	if !ok {
		col = &Collection{
			docs:       map[string]core.Transaction{},
			listeners:  map[int]chan []core.Transaction{},
			failRemove: map[string]error{},
		}
		s.collections[userID] = col
	}
	return col
}

type Collection struct {
	mu        sync.Mutex
	docs      map[string]core.Transaction
	seq       int64 // insertion counter, tiebreak for equal timestamps
	order     map[string]int64
	nextLis   int
	listeners map[int]chan []core.Transaction

	failAll      error
	failRemove   map[string]error
	addBudget    int64
	addBudgetSet bool
	addErr       error
}

// FailAll makes every subsequent operation fail with err until called with
// nil again. Test hook.
func (c *Collection) FailAll(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAll = err
}

// FailAddAfter lets the next n Adds succeed and fails every one after that
// with err. Test hook for partial bulk-import failures.
func (c *Collection) FailAddAfter(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addBudget = int64(n)
	c.addBudgetSet = true
	c.addErr = err
}

// FailRemove makes Remove of one specific id fail with err. Test hook.
func (c *Collection) FailRemove(id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failRemove[id] = err
}

func (c *Collection) FetchAll(_ context.Context) ([]core.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAll != nil {
		return nil, c.failAll
	}
	return c.snapshotLocked(), nil
}

func (c *Collection) Add(_ context.Context, t core.Transaction) (core.Transaction, error) {
	c.mu.Lock()
	if c.failAll != nil {
		c.mu.Unlock()
		return core.Transaction{}, c.failAll
	}
	if c.addBudgetSet {
		if c.addBudget <= 0 {
			err := c.addErr
			c.mu.Unlock()
			return core.Transaction{}, err
		}
		c.addBudget--
	}
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()
	if c.order == nil {
		c.order = map[string]int64{}
	}
	c.seq++
	c.order[t.ID] = c.seq
	c.docs[t.ID] = t
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot)
	return t, nil
}

func (c *Collection) Remove(_ context.Context, id string) error {
	c.mu.Lock()
	if c.failAll != nil {
		c.mu.Unlock()
		return c.failAll
	}
	if err, ok := c.failRemove[id]; ok {
		c.mu.Unlock()
		return err
	}
	delete(c.docs, id)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snapshot)
	return nil
}

// Listen registers a live listener. It delivers the current contents
// immediately, then every change, and blocks until ctx is cancelled.
func (c *Collection) Listen(ctx context.Context, onChange func([]core.Transaction), onError func(error)) {
	c.mu.Lock()
	if c.failAll != nil {
		err := c.failAll
		c.mu.Unlock()
		onError(err)
		return
	}
	ch := make(chan []core.Transaction, 16)
	id := c.nextLis
	c.nextLis++
	c.listeners[id] = ch
	initial := c.snapshotLocked()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}()

	onChange(initial)
	for {
		select {
		case <-ctx.Done():
			return
		case list := <-ch:
			onChange(list)
		}
	}
}

// snapshotLocked returns the contents sorted by creation timestamp
// descending, newest first. Caller holds c.mu.
func (c *Collection) snapshotLocked() []core.Transaction {
	out := make([]core.Transaction, 0, len(c.docs))
	for _, t := range c.docs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return c.order[out[i].ID] > c.order[out[j].ID]
	})
	return out
}

func (c *Collection) notify(snapshot []core.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.listeners {
		select {
		case ch <- snapshot:
		default:
			// Listener is not draining; drop rather than block a mutation.
		}
	}
}
