package backend

import (
	"context"
	"testing"
)

func TestCreateBackend(t *testing.T) {
	factory := NewFactory(nil)
	ctx := context.Background()

	t.Run("offline", func(t *testing.T) {
		result, err := factory.CreateBackend(ctx, Config{Type: OfflineBackend})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if result.Store != nil || result.Provider != nil {
			t.Fatalf("offline backend must not carry a store or provider")
		}
	})

	t.Run("memory", func(t *testing.T) {
		result, err := factory.CreateBackend(ctx, Config{Type: MemoryBackend, DefaultUserID: "u1"})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if result.Store == nil || result.Provider == nil {
			t.Fatalf("memory backend must provide a store and a provider")
		}
		userID, err := result.Provider.SignIn(ctx)
		if err != nil || userID != "u1" {
			t.Fatalf("expected static sign-in as u1, got %q %v", userID, err)
		}
	})

	t.Run("memory without default user", func(t *testing.T) {
		if _, err := factory.CreateBackend(ctx, Config{Type: MemoryBackend}); err == nil {
			t.Fatalf("expected validation error")
		}
	})

	t.Run("invalid type", func(t *testing.T) {
		if _, err := factory.CreateBackend(ctx, Config{Type: "sheets"}); err == nil {
			t.Fatalf("expected error for unknown backend type")
		}
	})
}
