// Package authstate holds the provider-side session shared by the auth adapters:
// the current session, its listeners and optional persistence.
package authstate

import (
	"context"
	"log/slog"
	"sync"

	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/ports"
)

// State is one client's provider session. It is safe for concurrent use.
// Listeners are called outside the lock, in registration order.
type State struct {
	key       string
	persister ports.SessionPersister
	logger    *slog.Logger

	mu        sync.Mutex
	session   *domainauth.Session
	restored  bool
	listeners []listenerEntry
	nextID    int
}

type listenerEntry struct {
	id int
	fn ports.SessionListener
}

// New creates a State for key. persister may be nil.
func New(key string, persister ports.SessionPersister, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	return &State{key: key, persister: persister, logger: logger}
}

// Key returns the client key.
func (s *State) Key() string { return s.key }

// Current returns a copy of the session, or nil.
func (s *State) Current() *domainauth.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.session)
}

// Restore loads the persisted session once. Later calls return the in-memory session.
func (s *State) Restore(ctx context.Context) (*domainauth.Session, error) {
	s.mu.Lock()
	if s.restored || s.persister == nil {
		s.restored = true
		cur := clone(s.session)
		s.mu.Unlock()
		return cur, nil
	}
	s.mu.Unlock()

	loaded, err := s.persister.Load(ctx, s.key)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restored {
		return clone(s.session), nil
	}
	s.restored = true
	if err != nil {
		return nil, err
	}
	if s.session == nil {
		s.session = clone(loaded)
	}
	return clone(s.session), nil
}

// Set replaces the session, persists it, and notifies listeners with event.
// A nil session clears persistence.
func (s *State) Set(ctx context.Context, event domainauth.Event, sess *domainauth.Session) {
	s.mu.Lock()
	s.session = clone(sess)
	s.restored = true
	listeners := make([]ports.SessionListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l.fn)
	}
	s.mu.Unlock()

	s.persist(ctx, sess)

	change := domainauth.Change{Event: event, Session: clone(sess)}
	for _, l := range listeners {
		l(change)
	}
}

func (s *State) persist(ctx context.Context, sess *domainauth.Session) {
	if s.persister == nil {
		return
	}
	var err error
	if sess == nil {
		err = s.persister.Delete(ctx, s.key)
	} else {
		err = s.persister.Save(ctx, s.key, *sess)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "persist session failed", "error", err)
	}
}

// Subscribe registers listener and returns its removal func.
func (s *State) Subscribe(listener ports.SessionListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: listener})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func clone(sess *domainauth.Session) *domainauth.Session {
	if sess == nil {
		return nil
	}
	c := *sess
	return &c
}
