// Package memstore is an in-process tickets table used in development mode and tests.
// It applies the same ownership and constraint rules as the hosted data service.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/domain/model"
	"github.com/target/ticketflow/internal/errors"
	"github.com/target/ticketflow/internal/ports"
)

var _ ports.DataService = (*TicketStore)(nil)

// TicketStore holds every user's tickets. Rows are only visible to their owner.
type TicketStore struct {
	now func() time.Time

	mu   sync.RWMutex
	rows map[string]model.Ticket
}

// Option configures a TicketStore.
type Option func(*TicketStore)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *TicketStore) { s.now = now }
}

// NewTicketStore creates an empty store.
func NewTicketStore(opts ...Option) *TicketStore {
	s := &TicketStore{now: time.Now, rows: make(map[string]model.Ticket)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func owner(sess domainauth.Session) (string, error) {
	if sess.UserID == "" || sess.AccessToken == "" {
		return "", errors.Unauthorized("JWT expired")
	}
	return sess.UserID, nil
}

// Select returns the caller's rows, filtered and ordered per q.
func (s *TicketStore) Select(ctx context.Context, sess domainauth.Session, q model.TicketQuery) ([]model.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.MapDBError(err)
	}
	uid, err := owner(sess)
	if err != nil {
		return nil, err
	}
	for _, c := range q.Columns {
		if !knownColumn(c) {
			return nil, errors.DataService("column tickets."+c+" does not exist", nil)
		}
	}

	s.mu.RLock()
	out := make([]model.Ticket, 0, len(s.rows))
	for _, t := range s.rows {
		if t.UserID != uid {
			continue
		}
		if q.Status != nil && t.Status != *q.Status {
			continue
		}
		out = append(out, t)
	}
	s.mu.RUnlock()

	order := q.Order
	if order == nil {
		order = &model.TicketOrder{Column: "created_at"}
	}
	if !knownColumn(order.Column) {
		return nil, errors.DataService("column tickets."+order.Column+" does not exist", nil)
	}
	sort.SliceStable(out, func(i, j int) bool {
		c := compare(out[i], out[j], order.Column)
		if order.Descending {
			return c > 0
		}
		return c < 0
	})

	if len(q.Columns) > 0 {
		for i := range out {
			out[i] = project(out[i], q.Columns)
		}
	}
	return out, nil
}

// Insert stores row as a new ticket owned by the caller.
func (s *TicketStore) Insert(ctx context.Context, sess domainauth.Session, row model.TicketRow) (model.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return model.Ticket{}, errors.MapDBError(err)
	}
	uid, err := owner(sess)
	if err != nil {
		return model.Ticket{}, err
	}
	if row.UserID != uid {
		return model.Ticket{}, errors.Unauthorized(`new row violates row-level security policy for table "tickets"`)
	}
	if err := checkRow(row.Title, row.Status, row.Priority); err != nil {
		return model.Ticket{}, err
	}

	now := s.now().UTC()
	t := model.Ticket{
		ID:          uuid.NewString(),
		UserID:      uid,
		Title:       row.Title,
		Description: row.Description,
		Status:      row.Status,
		Priority:    clonePriority(row.Priority),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.mu.Lock()
	s.rows[t.ID] = t
	s.mu.Unlock()
	return t, nil
}

// Update applies patch to the caller's ticket id. Rows owned by someone else
// are invisible, so updating them matches nothing and succeeds silently.
func (s *TicketStore) Update(ctx context.Context, sess domainauth.Session, id string, patch model.TicketPatch) error {
	if err := ctx.Err(); err != nil {
		return errors.MapDBError(err)
	}
	uid, err := owner(sess)
	if err != nil {
		return err
	}
	if err := checkRow(patch.Title, patch.Status, patch.Priority); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	if !ok || t.UserID != uid {
		return nil
	}
	t.Title = patch.Title
	t.Description = patch.Description
	t.Status = patch.Status
	t.Priority = clonePriority(patch.Priority)
	t.UpdatedAt = s.now().UTC()
	s.rows[id] = t
	return nil
}

// Delete removes the caller's ticket id. Missing rows are not an error.
func (s *TicketStore) Delete(ctx context.Context, sess domainauth.Session, id string) error {
	if err := ctx.Err(); err != nil {
		return errors.MapDBError(err)
	}
	uid, err := owner(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.rows[id]; ok && t.UserID == uid {
		delete(s.rows, id)
	}
	return nil
}

// Len reports the number of rows across all owners.
func (s *TicketStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// checkRow mirrors the table constraints.
func checkRow(title string, status model.TicketStatus, priority *model.TicketPriority) error {
	if strings.TrimSpace(title) == "" {
		return errors.ValidationField("title", `null value in column "title" violates not-null constraint`)
	}
	if utf8.RuneCountInString(title) > model.MaxTicketTitleLen {
		return errors.ValidationField("title", "value too long for type character varying(200)")
	}
	if !status.Valid() {
		return errors.ValidationField("status", `new row for relation "tickets" violates check constraint "tickets_status_check"`)
	}
	if priority != nil && (*priority == model.TicketPriorityNone || !priority.Valid()) {
		return errors.ValidationField("priority", `new row for relation "tickets" violates check constraint "tickets_priority_check"`)
	}
	return nil
}

var columns = []string{"id", "user_id", "title", "description", "status", "priority", "created_at", "updated_at"}

func knownColumn(c string) bool { return slices.Contains(columns, c) }

func compare(a, b model.Ticket, column string) int {
	switch column {
	case "id":
		return strings.Compare(a.ID, b.ID)
	case "user_id":
		return strings.Compare(a.UserID, b.UserID)
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "description":
		return strings.Compare(a.Description, b.Description)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "priority":
		return strings.Compare(string(a.PriorityValue()), string(b.PriorityValue()))
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func project(t model.Ticket, cols []string) model.Ticket {
	var out model.Ticket
	for _, c := range cols {
		switch c {
		case "id":
			out.ID = t.ID
		case "user_id":
			out.UserID = t.UserID
		case "title":
			out.Title = t.Title
		case "description":
			out.Description = t.Description
		case "status":
			out.Status = t.Status
		case "priority":
			out.Priority = clonePriority(t.Priority)
		case "created_at":
			out.CreatedAt = t.CreatedAt
		case "updated_at":
			out.UpdatedAt = t.UpdatedAt
		}
	}
	return out
}

func clonePriority(p *model.TicketPriority) *model.TicketPriority {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
