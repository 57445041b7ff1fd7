package gotrue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/ticketflow/internal/adapters/backend"
	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/errors"
	authmocks "github.com/target/ticketflow/internal/mocks/auth"
)

var now = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func sessionJSON(access, refresh string, expiresIn int) map[string]any {
	return map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    expiresIn,
		"refresh_token": refresh,
		"user":          map[string]any{"id": "uid-1", "email": "user@test.com"},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFactory(t *testing.T, h http.Handler, mutate func(*Config)) *Factory {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := backend.NewClient(backend.Config{URL: srv.URL, AnonKey: "anon"})
	require.NoError(t, err)
	cfg := Config{Client: client, Now: func() time.Time { return now }}
	if mutate != nil {
		mutate(&cfg)
	}
	f, err := NewFactory(context.Background(), cfg)
	require.NoError(t, err)
	return f
}

func TestNewFactory_RequiresClient(t *testing.T) {
	_, err := NewFactory(context.Background(), Config{})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestProvider_SignIn(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		var body credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Password != "secret1" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": "invalid_grant", "error_description": "Invalid login credentials",
			})
			return
		}
		writeJSON(w, http.StatusOK, sessionJSON("at-1", "rt-1", 3600))
	})
	p := newFactory(t, mux, nil).Open("k")

	var events []domainauth.Event
	p.OnSessionChange(func(c domainauth.Change) { events = append(events, c.Event) })

	_, err := p.SignIn(context.Background(), "user@test.com", "wrong")
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.Equal(t, "Invalid login credentials", errors.UserMessage(err, ""))

	sess, err := p.SignIn(context.Background(), "user@test.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "uid-1", sess.UserID)
	assert.Equal(t, "at-1", sess.AccessToken)
	assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)
	assert.Equal(t, []domainauth.Event{domainauth.EventSignedIn}, events)
}

func TestProvider_SignUp(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		wantErr string
	}{
		{name: "auto confirm", status: http.StatusOK, body: sessionJSON("at", "rt", 3600)},
		{
			name: "confirmation required", status: http.StatusOK,
			body:    map[string]any{"id": "uid-1", "email": "user@test.com"},
			wantErr: MsgConfirmEmail,
		},
		{
			name: "duplicate", status: http.StatusUnprocessableEntity,
			body:    map[string]any{"code": 422, "error_code": "user_already_exists", "msg": "User already registered"},
			wantErr: "User already registered",
		},
		{
			name: "weak password", status: http.StatusUnprocessableEntity,
			body:    map[string]any{"code": 422, "msg": "password should be at least 6 characters"},
			wantErr: "Password should be at least 6 characters",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("POST /auth/v1/signup", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			p := newFactory(t, mux, nil).Open("k")
			sess, err := p.SignUp(context.Background(), "user@test.com", "secret1")
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "uid-1", sess.UserID)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, errors.UserMessage(err, ""))
		})
	}
}

func TestProvider_ServerErrorHasNoDisplayMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"msg": "pq: connection refused"})
	})
	p := newFactory(t, mux, nil).Open("k")
	_, err := p.SignIn(context.Background(), "a@b.co", "secret1")
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.Empty(t, errors.UserMessage(err, ""))
}

func TestProvider_RateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"code": 429, "msg": "Request rate limit reached"})
	})
	p := newFactory(t, mux, nil).Open("k")
	_, err := p.SignIn(context.Background(), "a@b.co", "secret1")
	assert.True(t, errors.IsRateLimited(err))
}

func TestProvider_SignOutAlwaysClears(t *testing.T) {
	var logouts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, sessionJSON("at", "rt", 3600))
	})
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		logouts.Add(1)
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusBadGateway)
	})
	persister := authmocks.NewMemoryPersister()
	p := newFactory(t, mux, func(c *Config) { c.Persister = persister }).Open("k")

	_, err := p.SignIn(context.Background(), "a@b.co", "secret1")
	require.NoError(t, err)
	stored, _ := persister.Load(context.Background(), "k")
	require.NotNil(t, stored)

	require.Error(t, p.SignOut(context.Background()))
	assert.Equal(t, int32(1), logouts.Load())
	cur, err := p.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cur)
	stored, _ = persister.Load(context.Background(), "k")
	assert.Nil(t, stored)

	require.NoError(t, p.SignOut(context.Background()), "no session means nothing to revoke")
	assert.Equal(t, int32(1), logouts.Load())
}

func TestProvider_GetSessionRefreshesNearExpiry(t *testing.T) {
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		var body refreshBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "rt-old", body.RefreshToken)
		refreshes.Add(1)
		writeJSON(w, http.StatusOK, sessionJSON("at-new", "rt-new", 3600))
	})
	persister := authmocks.NewMemoryPersister()
	require.NoError(t, persister.Save(context.Background(), "k", domainauth.Session{
		UserID: "uid-1", Email: "user@test.com", AccessToken: "at-old", RefreshToken: "rt-old",
		TokenType: "bearer", ExpiresAt: now.Add(30 * time.Second),
	}))
	p := newFactory(t, mux, func(c *Config) { c.Persister = persister }).Open("k")

	var got []domainauth.Change
	p.OnSessionChange(func(c domainauth.Change) { got = append(got, c) })

	sess, err := p.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "at-new", sess.AccessToken)
	assert.Equal(t, int32(1), refreshes.Load())
	require.Len(t, got, 1)
	assert.Equal(t, domainauth.EventTokenRefreshed, got[0].Event)
}

func TestProvider_FailedRefreshIsExpiry(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "invalid_grant", "error_description": "Invalid Refresh Token: Already Used",
		})
	})
	persister := authmocks.NewMemoryPersister()
	require.NoError(t, persister.Save(context.Background(), "k", domainauth.Session{
		UserID: "uid-1", AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(-time.Minute),
	}))
	p := newFactory(t, mux, func(c *Config) { c.Persister = persister }).Open("k")

	var got []domainauth.Change
	p.OnSessionChange(func(c domainauth.Change) { got = append(got, c) })

	sess, err := p.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	require.Len(t, got, 1)
	assert.Equal(t, domainauth.EventSignedOut, got[0].Event)
	assert.Nil(t, got[0].Session)
}

func TestProvider_GetSessionFreshIsReturnedAsIs(t *testing.T) {
	persister := authmocks.NewMemoryPersister()
	require.NoError(t, persister.Save(context.Background(), "k", domainauth.Session{
		UserID: "uid-1", AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(time.Hour),
	}))
	p := newFactory(t, http.NotFoundHandler(), func(c *Config) { c.Persister = persister }).Open("k")
	sess, err := p.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "at", sess.AccessToken)
}

func TestToken(t *testing.T) {
	tok := Token(domainauth.Session{AccessToken: "a", TokenType: "bearer", ExpiresAt: now})
	assert.Equal(t, "a", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())
	assert.Equal(t, now, tok.Expiry)
}
