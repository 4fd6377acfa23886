// Package auth tracks the signed-in identity and notifies observers of
// session transitions. The identity provider itself is an opaque
// capability; when none is configured the app runs in offline mode.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// AuthError wraps identity-provider failures on sign-in or sign-out. It is
// surfaced to the caller but never fatal to local state.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IdentityProvider is the opaque sign-in capability. SignIn returns a
// stable user identifier.
type IdentityProvider interface {
	SignIn(ctx context.Context) (string, error)
	SignOut(ctx context.Context) error
}

// Static returns a provider that always signs in as the given id. Used by
// the memory backend and in tests.
func Static(userID string) IdentityProvider {
	return staticProvider(userID)
}

type staticProvider string

func (p staticProvider) SignIn(context.Context) (string, error) { return string(p), nil }
func (p staticProvider) SignOut(context.Context) error          { return nil }

// SessionManager owns the current session and its observers. A nil provider
// means no remote backend is configured: SignIn reports offline mode rather
// than an error.
type SessionManager struct {
	provider IdentityProvider

	mu        sync.Mutex
	userID    string
	nextLis   int
	listeners map[int]func(userID string)
}

func NewSessionManager(provider IdentityProvider) *SessionManager {
	return &SessionManager{
		provider:  provider,
		listeners: map[int]func(string){},
	}
}

// UserID returns the signed-in user id, or empty when unauthenticated.
func (m *SessionManager) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID
}

// Authenticated reports whether a session is active.
func (m *SessionManager) Authenticated() bool {
	return m.UserID() != ""
}

// SignIn authenticates through the provider. With no provider configured it
// returns an empty id and no error: offline mode is a supported state, not
// a failure.
func (m *SessionManager) SignIn(ctx context.Context) (string, error) {
	if m.provider == nil {
		slog.InfoContext(ctx, "No identity provider configured, staying offline")
		return "", nil
	}

	userID, err := m.provider.SignIn(ctx)
	if err != nil {
		return "", &AuthError{Op: "sign-in", Err: err}
	}

	m.setUser(userID)
	slog.InfoContext(ctx, "Signed in", "user_id", userID)
	return userID, nil
}

// SignOut ends the session. The session is locally considered ended even
// when the provider fails to revoke it remotely; any provider failure is
// returned as AuthError for the caller to report, not to act on.
func (m *SessionManager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	wasSignedIn := m.userID != ""
	m.mu.Unlock()

	if m.provider == nil || !wasSignedIn {
		return nil
	}

	// Local transition first so the UI and subscriptions settle regardless
	// of the remote revoke outcome.
	m.setUser("")

	if err := m.provider.SignOut(ctx); err != nil {
		slog.WarnContext(ctx, "Provider sign-out failed, session ended locally", "error", err)
		return &AuthError{Op: "sign-out", Err: err}
	}
	slog.InfoContext(ctx, "Signed out")
	return nil
}

// OnSessionChange registers an observer. It is invoked once immediately
// with the current session (empty id when offline) and again on every
// transition. The returned handle detaches it.
func (m *SessionManager) OnSessionChange(fn func(userID string)) func() {
	m.mu.Lock()
	id := m.nextLis
	m.nextLis++
	m.listeners[id] = fn
	current := m.userID
	m.mu.Unlock()

	fn(current)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

func (m *SessionManager) setUser(userID string) {
	m.mu.Lock()
	if m.userID == userID {
		m.mu.Unlock()
		return
	}
	m.userID = userID
	observers := make([]func(string), 0, len(m.listeners))
	for _, fn := range m.listeners {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	for _, fn := range observers {
		fn(userID)
	}
}
