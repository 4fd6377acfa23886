package backend

import (
	"fmt"

	"github.com/sukratu-design/amex-points-tracker/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:               backendType,
		DefaultUserID:      appConfig.DefaultUserID,
		FirestoreProjectID: appConfig.FirestoreProjectID,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case OfflineBackend:
		// Nothing to configure; the app runs on the local cache alone.

	case MemoryBackend:
		if c.DefaultUserID == "" {
			return fmt.Errorf("default user id is required for memory backend")
		}

	case FirestoreBackend:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("Firestore project id is required for firestore backend")
		}
	}

	return nil
}

// BackendTypes returns all valid backend types
func BackendTypes() []BackendType {
	return []BackendType{OfflineBackend, MemoryBackend, FirestoreBackend}
}
