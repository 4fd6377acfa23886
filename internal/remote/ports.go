package remote

import (
	"context"

	"github.com/sukratu-design/amex-points-tracker/internal/core"
)

// Ports for the remote document store. Implementations live in the
// firestore and memory subpackages.
type (
	// Store is a remote document store holding one transaction collection
	// per user.
	Store interface {
		Collection(userID string) Collection
	}

	// Collection is a single user's remote transaction collection, ordered
	// by creation timestamp descending.
	Collection interface {
		// FetchAll returns every transaction in the collection.
		FetchAll(ctx context.Context) ([]core.Transaction, error)

		// Add stores a transaction and returns it with the store-assigned
		// identifier and creation timestamp.
		Add(ctx context.Context, t core.Transaction) (core.Transaction, error)

		// Remove deletes the document with the given identifier.
		Remove(ctx context.Context, id string) error

		// Listen delivers the full collection contents to onChange on every
		// remote change, and terminal listener failures to onError. It
		// blocks until ctx is cancelled.
		Listen(ctx context.Context, onChange func([]core.Transaction), onError func(error))
	}

	// Session reports the currently signed-in user; empty string means
	// unauthenticated.
	Session interface {
		UserID() string
	}
)
