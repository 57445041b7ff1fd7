package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"sync"
	"time"

	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider     = (*StubAuthProvider)(nil)
	_ ports.SessionPersister = (*MemoryPersister)(nil)
)

// StubAuthProvider is a scriptable provider. Unset funcs succeed with DefaultSession.
// Emit pushes a change to every registered listener, as the real provider would.
type StubAuthProvider struct {
	SignInFunc     func(ctx context.Context, email, password string) (domainauth.Session, error)
	SignUpFunc     func(ctx context.Context, email, password string) (domainauth.Session, error)
	SignOutFunc    func(ctx context.Context) error
	GetSessionFunc func(ctx context.Context) (*domainauth.Session, error)

	DefaultSession domainauth.Session

	mu        sync.Mutex
	listeners map[int]ports.SessionListener
	nextID    int
	SignOuts  int
}

// NewStubAuthProvider creates a StubAuthProvider with a fixed default session.
func NewStubAuthProvider() *StubAuthProvider {
	return &StubAuthProvider{
		DefaultSession: domainauth.Session{
			UserID:       "user-1",
			Email:        "user@test.com",
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "bearer",
			ExpiresAt:    time.Now().Add(time.Hour),
		},
		listeners: make(map[int]ports.SessionListener),
	}
}

func (s *StubAuthProvider) SignIn(ctx context.Context, email, password string) (domainauth.Session, error) {
	if s.SignInFunc != nil {
		return s.SignInFunc(ctx, email, password)
	}
	sess := s.DefaultSession
	sess.Email = email
	return sess, nil
}

func (s *StubAuthProvider) SignUp(ctx context.Context, email, password string) (domainauth.Session, error) {
	if s.SignUpFunc != nil {
		return s.SignUpFunc(ctx, email, password)
	}
	sess := s.DefaultSession
	sess.Email = email
	return sess, nil
}

func (s *StubAuthProvider) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.SignOuts++
	s.mu.Unlock()
	if s.SignOutFunc != nil {
		return s.SignOutFunc(ctx)
	}
	return nil
}

func (s *StubAuthProvider) GetSession(ctx context.Context) (*domainauth.Session, error) {
	if s.GetSessionFunc != nil {
		return s.GetSessionFunc(ctx)
	}
	return nil, nil
}

func (s *StubAuthProvider) OnSessionChange(listener ports.SessionListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[int]ports.SessionListener)
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Emit delivers change to every listener synchronously.
func (s *StubAuthProvider) Emit(change domainauth.Change) {
	s.mu.Lock()
	ls := make([]ports.SessionListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()
	for _, l := range ls {
		l(change)
	}
}

// ListenerCount reports how many listeners are registered.
func (s *StubAuthProvider) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// MemoryPersister is an in-memory SessionPersister for unit tests.
type MemoryPersister struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemoryPersister creates a new in-memory persister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{sessions: make(map[string]domainauth.Session)}
}

func (m *MemoryPersister) Save(_ context.Context, key string, sess domainauth.Session) error {
	if key == "" {
		return errors.New("session key cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = sess
	return nil
}

func (m *MemoryPersister) Load(_ context.Context, key string) (*domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[key]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (m *MemoryPersister) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}
