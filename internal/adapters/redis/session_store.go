// Package redis persists auth provider sessions so a restart can restore them.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/ports"
)

var _ ports.SessionPersister = (*SessionStore)(nil)

// DefaultSessionTTL bounds how long an unused session is kept. The refresh
// token outlives the access token, so the TTL is not tied to ExpiresAt.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionStore is a Redis-backed ports.SessionPersister keyed by client key.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithPrefix sets the key prefix; default "ticketflow:session:".
func WithPrefix(prefix string) Option {
	return func(s *SessionStore) { s.prefix = prefix }
}

// WithTTL sets how long a saved session lives; default DefaultSessionTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *SessionStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewSessionStore creates a Redis session persister.
func NewSessionStore(client redis.UniversalClient, opts ...Option) *SessionStore {
	s := &SessionStore{client: client, prefix: "ticketflow:session:", ttl: DefaultSessionTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save stores sess under key, replacing any previous value.
func (s *SessionStore) Save(ctx context.Context, key string, sess domainauth.Session) error {
	if key == "" {
		return errors.New("session key cannot be empty")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Load returns the session for key, or nil when none is stored.
func (s *SessionStore) Load(ctx context.Context, key string) (*domainauth.Session, error) {
	if key == "" {
		return nil, nil
	}
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// A corrupt entry is dropped rather than blocking every restore.
		_ = s.client.Del(ctx, s.prefix+key).Err()
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// Delete removes the session for key.
func (s *SessionStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// StoredSession is one persisted session with its remaining lifetime.
type StoredSession struct {
	Key     string
	Session domainauth.Session
	TTL     time.Duration
}

// List scans every stored session. Entries that no longer decode are skipped.
func (s *SessionStore) List(ctx context.Context) ([]StoredSession, error) {
	var out []StoredSession
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		data, err := s.client.Get(ctx, full).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get: %w", err)
		}
		var sess domainauth.Session
		if json.Unmarshal(data, &sess) != nil {
			continue
		}
		ttl, err := s.client.TTL(ctx, full).Result()
		if err != nil {
			return nil, fmt.Errorf("redis ttl: %w", err)
		}
		out = append(out, StoredSession{Key: strings.TrimPrefix(full, s.prefix), Session: sess, TTL: ttl})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Clear removes every stored session and reports how many were deleted.
func (s *SessionStore) Clear(ctx context.Context) (int, error) {
	deleted := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			return deleted, fmt.Errorf("redis del: %w", err)
		}
		deleted += int(n)
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("redis scan: %w", err)
	}
	return deleted, nil
}
