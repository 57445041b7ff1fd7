package ports

// Package ports defines interfaces (hexagonal ports) for the hosted backend.
// Implementations live in internal/adapters; orchestration in internal/client.

import (
	"context"

	domainauth "github.com/target/ticketflow/internal/domain/auth"
)

// SessionListener receives every change of the provider's session.
type SessionListener func(domainauth.Change)

// AuthProvider is one client's handle on the hosted auth service. It owns the
// provider-side session (tokens, refresh) for that client.
type AuthProvider interface {
	// SignIn exchanges email and password for a session.
	SignIn(ctx context.Context, email, password string) (domainauth.Session, error)

	// SignUp registers a new account and returns its session.
	SignUp(ctx context.Context, email, password string) (domainauth.Session, error)

	// SignOut invalidates the provider session. The local session is dropped even on error.
	SignOut(ctx context.Context) error

	// GetSession returns the restored session, or nil when there is none.
	GetSession(ctx context.Context) (*domainauth.Session, error)

	// OnSessionChange registers listener and returns a function that removes it.
	OnSessionChange(listener SessionListener) (unsubscribe func())
}

// AuthProviderFactory opens a provider handle for one client, identified by key.
// The key scopes persisted sessions.
type AuthProviderFactory interface {
	Open(key string) AuthProvider
}

// SessionPersister stores the provider session between runs.
type SessionPersister interface {
	Save(ctx context.Context, key string, sess domainauth.Session) error
	// Load returns nil, nil when nothing is stored for key.
	Load(ctx context.Context, key string) (*domainauth.Session, error)
	Delete(ctx context.Context, key string) error
}
