package postgrest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/ticketflow/internal/adapters/backend"
	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/domain/model"
	"github.com/target/ticketflow/internal/errors"
)

var sess = domainauth.Session{UserID: "uid-1", AccessToken: "at", TokenType: "bearer"}

func newStore(t *testing.T, h http.HandlerFunc) *TicketStore {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := backend.NewClient(backend.Config{URL: srv.URL, AnonKey: "anon"})
	require.NoError(t, err)
	return NewTicketStore(c)
}

func TestTicketStore_Select(t *testing.T) {
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/tickets", r.URL.Path)
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		assert.Equal(t, "created_at.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"id":"t1","user_id":"uid-1","title":"Printer down","description":"","status":"open","priority":null,"created_at":"2025-01-02T03:04:05Z","updated_at":"2025-01-02T03:04:05Z"}]`)
	})

	got, err := s.Select(context.Background(), sess, model.TicketQuery{Order: model.NewestFirst()})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)
	assert.Nil(t, got[0].Priority)
	assert.Equal(t, created, got[0].CreatedAt)
}

func TestTicketStore_SelectColumnsAndStatus(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "status", r.URL.Query().Get("select"))
		assert.Equal(t, "eq.closed", r.URL.Query().Get("status"))
		assert.Empty(t, r.URL.Query().Get("order"))
		_, _ = io.WriteString(w, `[{"status":"closed"}]`)
	})
	closed := model.TicketStatusClosed
	got, err := s.Select(context.Background(), sess, model.TicketQuery{Columns: []string{"status"}, Status: &closed})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.TicketStatusClosed, got[0].Status)
}

func TestTicketStore_Insert(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "uid-1", body["user_id"])
		assert.Equal(t, "Printer down", body["title"])
		assert.NotContains(t, body, "priority", "an unset priority is omitted on insert")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":"t9","user_id":"uid-1","title":"Printer down","status":"open","created_at":"2025-01-02T03:04:05Z","updated_at":"2025-01-02T03:04:05Z"}]`)
	})
	got, err := s.Insert(context.Background(), sess, model.TicketRow{
		UserID: "uid-1", Title: "Printer down", Status: model.TicketStatusOpen,
	})
	require.NoError(t, err)
	assert.Equal(t, "t9", got.ID)
}

func TestTicketStore_UpdateSendsNullPriority(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.t1", r.URL.Query().Get("id"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		v, ok := body["priority"]
		assert.True(t, ok)
		assert.Nil(t, v)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, s.Update(context.Background(), sess, "t1", model.TicketPatch{
		Title: "x", Status: model.TicketStatusOpen,
	}))
}

func TestTicketStore_Delete(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.t1", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, s.Delete(context.Background(), sess, "t1"))
}

func TestTicketStore_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   errors.ErrorCode
	}{
		{name: "jwt expired", status: 401, body: `{"code":"PGRST301","message":"JWT expired"}`, code: errors.ErrCodeUnauthorized},
		{name: "rls", status: 403, body: `{"code":"42501","message":"new row violates row-level security policy"}`, code: errors.ErrCodeUnauthorized},
		{name: "check", status: 400, body: `{"code":"23514","message":"violates check constraint"}`, code: errors.ErrCodeValidation},
		{name: "unique", status: 409, body: `{"code":"23505","message":"duplicate key"}`, code: errors.ErrCodeConflict},
		{name: "unknown column", status: 400, body: `{"code":"PGRST204","message":"Could not find the column"}`, code: errors.ErrCodeDataService},
		{name: "gateway", status: 502, body: `upstream`, code: errors.ErrCodeDataService},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := s.Select(context.Background(), sess, model.TicketQuery{})
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestTicketStore_Timeout(t *testing.T) {
	s := newStore(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Delete(ctx, sess, "t1")
	assert.Equal(t, errors.ErrCodeTimeout, errors.GetCode(err))
}
