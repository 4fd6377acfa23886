package backend

import (
	"context"

	"github.com/sukratu-design/amex-points-tracker/internal/auth"
	"github.com/sukratu-design/amex-points-tracker/internal/remote"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result bundles the remote store with the identity provider that issues the
// user ids for its collections. Store and Provider are both nil for the
// offline backend; the app then runs on the local cache alone.
type Result struct {
	Store    remote.Store
	Provider auth.IdentityProvider
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Memory backend specific
	DefaultUserID string

	// Firestore specific
	FirestoreProjectID string
}

// BackendType represents the type of backend
type BackendType string

const (
	OfflineBackend   BackendType = "offline"
	MemoryBackend    BackendType = "memory"
	FirestoreBackend BackendType = "firestore"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case OfflineBackend, MemoryBackend, FirestoreBackend:
		return true
	default:
		return false
	}
}
