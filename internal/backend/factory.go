package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sukratu-design/amex-points-tracker/internal/auth"
	"github.com/sukratu-design/amex-points-tracker/internal/auth/googleauth"
	"github.com/sukratu-design/amex-points-tracker/internal/remote/firestore"
	"github.com/sukratu-design/amex-points-tracker/internal/remote/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case OfflineBackend:
		return f.createOfflineBackend()
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case FirestoreBackend:
		return f.createFirestoreBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createOfflineBackend() (*Result, error) {
	f.logger.Info("Initialized offline backend, remote sync disabled")

	return &Result{
		Store:    nil,
		Provider: nil,
		Cleanup:  nil,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	store := memory.New()

	f.logger.Info("Initialized memory backend", "default_user", config.DefaultUserID)

	return &Result{
		Store:    store,
		Provider: auth.Static(config.DefaultUserID),
		Cleanup:  nil,
	}, nil
}

func (f *DefaultFactory) createFirestoreBackend(ctx context.Context, config Config) (*Result, error) {
	store, err := firestore.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
	}

	provider, err := googleauth.NewFromEnv(ctx)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize Google identity provider: %w", err)
	}

	f.logger.Info("Initialized Firestore backend", "project_id", config.FirestoreProjectID)

	return &Result{
		Store:    store,
		Provider: provider,
		Cleanup:  store.Close,
	}, nil
}
