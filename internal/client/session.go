package client

import (
	"context"
	"log/slog"
	"sync"

	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/errors"
	"github.com/target/ticketflow/internal/observability/metrics"
	"github.com/target/ticketflow/internal/ports"
)

// Fallback messages shown when the provider gives nothing displayable.
const (
	msgSignInFailed = "Failed to sign in. Please check your credentials."
	msgSignUpFailed = "Failed to create account. Please try again."
)

// SessionState is the Session Store's lifecycle state.
type SessionState int

const (
	// StateResolving is the initial state, left exactly once.
	StateResolving SessionState = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s SessionState) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// SessionStoreOptions groups dependencies for SessionStore.
type SessionStoreOptions struct {
	Provider ports.AuthProvider // Required
	Logger   *slog.Logger       // Optional
	Metrics  *metrics.Collector // Optional
}

// SessionStore is the single source of truth for who is signed in.
// Only the store mutates the session; readers get copies.
type SessionStore struct {
	provider ports.AuthProvider
	logger   *slog.Logger
	metrics  *metrics.Collector
	notifier *changeNotifier

	mu          sync.RWMutex
	session     *domainauth.Session
	loading     bool
	ready       chan struct{}
	started     bool
	closed      bool
	unsubscribe func()
}

// NewSessionStore creates a store in the resolving state.
func NewSessionStore(opts SessionStoreOptions) (*SessionStore, error) {
	if opts.Provider == nil {
		return nil, errors.Internal("session store requires an auth provider")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		provider: opts.Provider,
		logger:   logger.With("component", "session_store"),
		metrics:  opts.Metrics,
		notifier: newChangeNotifier(),
		loading:  true,
		ready:    make(chan struct{}),
	}, nil
}

// Start subscribes to the provider's session stream and resolves any persisted
// session in the background. It is a no-op after the first call.
func (s *SessionStore) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	unsub := s.provider.OnSessionChange(s.handleChange)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsub()
		return
	}
	s.unsubscribe = unsub
	s.mu.Unlock()

	go s.resolve(context.WithoutCancel(ctx))
}

func (s *SessionStore) resolve(ctx context.Context) {
	sess, err := s.provider.GetSession(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "restore session failed", "error", err)
		sess = nil
	}

	s.mu.Lock()
	if !s.loading || s.closed {
		// A change notification resolved the store first; it is newer.
		s.mu.Unlock()
		return
	}
	s.session = cloneSession(sess)
	s.finishLoadingLocked()
	s.mu.Unlock()

	s.notifier.broadcast()
}

func (s *SessionStore) handleChange(change domainauth.Change) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.session = cloneSession(change.Session)
	s.finishLoadingLocked()
	s.mu.Unlock()

	s.logger.Debug("session changed", "event", string(change.Event), "signed_in", change.Session != nil)
	s.notifier.broadcast()
}

func (s *SessionStore) finishLoadingLocked() {
	if s.loading {
		s.loading = false
		close(s.ready)
	}
}

// set overwrites the local session outside the provider stream.
func (s *SessionStore) set(sess *domainauth.Session) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.session = cloneSession(sess)
	s.finishLoadingLocked()
	s.mu.Unlock()

	s.notifier.broadcast()
}

// SignIn delegates to the provider and populates the session on success.
// Failures are *errors.AppError with code auth and a displayable message.
func (s *SessionStore) SignIn(ctx context.Context, email, password string) error {
	sess, err := s.provider.SignIn(ctx, email, password)
	s.metrics.RecordAuth("sign_in", err)
	if err != nil {
		return authError(err, msgSignInFailed)
	}
	s.set(&sess)
	return nil
}

// SignUp registers and signs in. A successful sign-up is an implicit sign-in.
func (s *SessionStore) SignUp(ctx context.Context, email, password string) error {
	sess, err := s.provider.SignUp(ctx, email, password)
	s.metrics.RecordAuth("sign_up", err)
	if err != nil {
		return authError(err, msgSignUpFailed)
	}
	s.set(&sess)
	return nil
}

// SignOut clears the local session and invalidates the provider session.
// Provider failures are logged; the local session is gone either way.
func (s *SessionStore) SignOut(ctx context.Context) {
	err := s.provider.SignOut(ctx)
	s.metrics.RecordAuth("sign_out", err)
	if err != nil {
		s.logger.WarnContext(ctx, "provider sign out failed", "error", err)
	}
	s.set(nil)
}

// Current returns a copy of the session and whether one exists.
func (s *SessionStore) Current() (domainauth.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return domainauth.Session{}, false
	}
	return *s.session, true
}

// HasSession reports whether someone is signed in.
func (s *SessionStore) HasSession() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session != nil
}

// Loading reports whether the initial resolution is still running.
func (s *SessionStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// State returns the lifecycle state.
func (s *SessionStore) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.loading:
		return StateResolving
	case s.session != nil:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// Ready is closed when the store leaves StateResolving.
func (s *SessionStore) Ready() <-chan struct{} {
	return s.ready
}

// Subscribe registers for change signals. See changeNotifier.
func (s *SessionStore) Subscribe() (func(), <-chan struct{}) {
	return s.notifier.Subscribe()
}

// Close unsubscribes from the provider. Later provider events are ignored.
func (s *SessionStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.notifier.close()
}

func authError(err error, fallback string) error {
	if errors.IsAuth(err) {
		if msg := errors.UserMessage(err, ""); msg != "" {
			return err
		}
		return errors.Auth(fallback, err)
	}
	if errors.IsRateLimited(err) {
		return err
	}
	return errors.Auth(fallback, err)
}

func cloneSession(sess *domainauth.Session) *domainauth.Session {
	if sess == nil {
		return nil
	}
	c := *sess
	return &c
}
