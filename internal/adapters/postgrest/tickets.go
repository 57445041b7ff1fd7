// Package postgrest implements the data service port over the hosted REST API.
// Ownership is enforced by the table's row-level security policy.
package postgrest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/target/ticketflow/internal/adapters/backend"
	"github.com/target/ticketflow/internal/adapters/gotrue"
	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/domain/model"
	"github.com/target/ticketflow/internal/errors"
	"github.com/target/ticketflow/internal/ports"
)

const ticketsPath = "/rest/v1/tickets"

var _ ports.DataService = (*TicketStore)(nil)

// TicketStore reads and writes the tickets table as the session's user.
type TicketStore struct {
	client *backend.Client
}

// NewTicketStore constructs a TicketStore. client is required.
func NewTicketStore(client *backend.Client) *TicketStore {
	if client == nil {
		panic("postgrest: client is required")
	}
	return &TicketStore{client: client}
}

// Select lists rows visible to the session.
func (s *TicketStore) Select(ctx context.Context, sess domainauth.Session, q model.TicketQuery) ([]model.Ticket, error) {
	query := url.Values{}
	if len(q.Columns) > 0 {
		query.Set("select", strings.Join(q.Columns, ","))
	} else {
		query.Set("select", "*")
	}
	if q.Status != nil {
		query.Set("status", "eq."+string(*q.Status))
	}
	if q.Order != nil {
		dir := "asc"
		if q.Order.Descending {
			dir = "desc"
		}
		query.Set("order", q.Order.Column+"."+dir)
	}

	var rows []model.Ticket
	err := s.client.Do(ctx, backend.Request{
		Method: http.MethodGet,
		Path:   ticketsPath,
		Query:  query,
		Token:  gotrue.Token(sess),
		Out:    &rows,
	})
	if err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

// Insert creates row and returns the stored representation.
func (s *TicketStore) Insert(ctx context.Context, sess domainauth.Session, row model.TicketRow) (model.Ticket, error) {
	var rows []model.Ticket
	err := s.client.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   ticketsPath,
		Query:  url.Values{"select": {"*"}},
		Body:   row,
		Token:  gotrue.Token(sess),
		Header: http.Header{"Prefer": {"return=representation"}},
		Out:    &rows,
	})
	if err != nil {
		return model.Ticket{}, mapError(err)
	}
	if len(rows) == 0 {
		return model.Ticket{}, errors.DataService("insert returned no row", nil)
	}
	return rows[0], nil
}

// Update patches ticket id. A row hidden by policy matches nothing and is not an error.
func (s *TicketStore) Update(ctx context.Context, sess domainauth.Session, id string, patch model.TicketPatch) error {
	err := s.client.Do(ctx, backend.Request{
		Method: http.MethodPatch,
		Path:   ticketsPath,
		Query:  url.Values{"id": {"eq." + id}},
		Body:   patch,
		Token:  gotrue.Token(sess),
		Header: http.Header{"Prefer": {"return=minimal"}},
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

// Delete removes ticket id.
func (s *TicketStore) Delete(ctx context.Context, sess domainauth.Session, id string) error {
	err := s.client.Do(ctx, backend.Request{
		Method: http.MethodDelete,
		Path:   ticketsPath,
		Query:  url.Values{"id": {"eq." + id}},
		Token:  gotrue.Token(sess),
		Header: http.Header{"Prefer": {"return=minimal"}},
	})
	if err != nil {
		return mapError(err)
	}
	return nil
}

// mapError translates REST failures. Database errors carry their SQLSTATE;
// PGRST3xx codes are JWT problems.
func mapError(err error) error {
	apiErr, ok := backend.AsAPIError(err)
	if !ok {
		return errors.MapDBError(err)
	}
	switch {
	case apiErr.Status == http.StatusUnauthorized || strings.HasPrefix(apiErr.Code, "PGRST3"):
		return &errors.AppError{Code: errors.ErrCodeUnauthorized, Message: "Your session has expired. Please sign in again.", Cause: err}
	case isSQLState(apiErr.Code):
		return errors.MapSQLState(apiErr.Code, "", err)
	default:
		return errors.DataService(fmt.Sprintf("data service rejected the request (%d)", apiErr.Status), err)
	}
}

func isSQLState(code string) bool {
	if len(code) != 5 {
		return false
	}
	for _, r := range code {
		if (r < '0' || r > '9') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return !strings.HasPrefix(code, "PGRST")
}
