// Package data is the direct-database tickets store used when the service
// connects to Postgres itself instead of going through the hosted REST API.
package data

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/target/ticketflow/internal/data/pgxutil"
	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/domain/model"
	"github.com/target/ticketflow/internal/errors"
	"github.com/target/ticketflow/internal/ports"
)

var _ ports.DataService = (*TicketRepo)(nil)

// ticketColumns is the select whitelist; identifiers outside it are rejected
// before any SQL is built.
var ticketColumns = []string{"id", "user_id", "title", "description", "status", "priority", "created_at", "updated_at"}

const ticketReturning = `id, user_id, title, description, status, priority, created_at, updated_at`

// TicketRepo provides owner-scoped database operations for tickets.
// The connection role bypasses row-level security, so every statement
// filters on the session's user id.
type TicketRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewTicketRepo creates a TicketRepo with the real clock.
func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewTicketRepoWithTimeProvider creates a TicketRepo with a custom clock (useful for tests).
func NewTicketRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *TicketRepo {
	return &TicketRepo{DB: db, timeProvider: tp}
}

func ownerOf(sess domainauth.Session) (string, error) {
	if sess.UserID == "" || sess.AccessToken == "" {
		return "", errors.Unauthorized("JWT expired")
	}
	return sess.UserID, nil
}

// Select returns the caller's tickets filtered and ordered per q.
func (r *TicketRepo) Select(ctx context.Context, sess domainauth.Session, q model.TicketQuery) ([]model.Ticket, error) {
	uid, err := ownerOf(sess)
	if err != nil {
		return nil, err
	}
	query, args, err := buildSelect(uid, q)
	if err != nil {
		return nil, err
	}

	var out []model.Ticket
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToStructByNameLax[model.Ticket])
		return err
	}); err != nil {
		return nil, mapTicketErr("select tickets", err)
	}
	if out == nil {
		out = []model.Ticket{}
	}
	return out, nil
}

func buildSelect(uid string, q model.TicketQuery) (string, []any, error) {
	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, 0, len(q.Columns))
		for _, c := range q.Columns {
			if !slices.Contains(ticketColumns, c) {
				return "", nil, errors.DataService("column tickets."+c+" does not exist", nil)
			}
			quoted = append(quoted, pgx.Identifier{c}.Sanitize())
		}
		cols = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	args := []any{uid}
	fmt.Fprintf(&b, "SELECT %s FROM tickets WHERE user_id = $1", cols)
	if q.Status != nil {
		args = append(args, string(*q.Status))
		fmt.Fprintf(&b, " AND status = $%d", len(args))
	}

	order := q.Order
	if order == nil {
		order = &model.TicketOrder{Column: "created_at"}
	}
	if !slices.Contains(ticketColumns, order.Column) {
		return "", nil, errors.DataService("column tickets."+order.Column+" does not exist", nil)
	}
	dir := "ASC"
	if order.Descending {
		dir = "DESC"
	}
	fmt.Fprintf(&b, " ORDER BY %s %s, id %s", pgx.Identifier{order.Column}.Sanitize(), dir, dir)
	return b.String(), args, nil
}

// Insert stores row and returns the created ticket.
func (r *TicketRepo) Insert(ctx context.Context, sess domainauth.Session, row model.TicketRow) (model.Ticket, error) {
	uid, err := ownerOf(sess)
	if err != nil {
		return model.Ticket{}, err
	}
	if row.UserID != uid {
		return model.Ticket{}, errors.Unauthorized(`new row violates row-level security policy for table "tickets"`)
	}

	now := r.timeProvider.Now().UTC()
	var out model.Ticket
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO tickets (user_id, title, description, status, priority, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)
			RETURNING `+ticketReturning,
			uid, row.Title, row.Description, string(row.Status), priorityArg(row.Priority), now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Ticket])
		return err
	}); err != nil {
		return model.Ticket{}, mapTicketErr("insert ticket", err)
	}
	return out, nil
}

// Update overwrites the editable fields of the caller's ticket id.
// A ticket the caller does not own matches nothing and is not an error.
func (r *TicketRepo) Update(ctx context.Context, sess domainauth.Session, id string, patch model.TicketPatch) error {
	uid, err := ownerOf(sess)
	if err != nil {
		return err
	}
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `
			UPDATE tickets
			SET title = $3, description = $4, status = $5, priority = $6, updated_at = $7
			WHERE id = $1 AND user_id = $2`,
			id, uid, patch.Title, patch.Description, string(patch.Status), priorityArg(patch.Priority),
			r.timeProvider.Now().UTC(),
		)
		return err
	})
	return mapTicketErr("update ticket", err)
}

// Delete removes the caller's ticket id. Missing rows are not an error.
func (r *TicketRepo) Delete(ctx context.Context, sess domainauth.Session, id string) error {
	uid, err := ownerOf(sess)
	if err != nil {
		return err
	}
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, `DELETE FROM tickets WHERE id = $1 AND user_id = $2`, id, uid)
		return err
	})
	return mapTicketErr("delete ticket", err)
}

func priorityArg(p *model.TicketPriority) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

// mapTicketErr maps driver errors to AppErrors. Check constraints carry no
// column name, so the field is taken from the tickets_<field>_check name.
func mapTicketErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return err
	}
	mapped := errors.MapDBError(err)
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && stderrors.As(mapped, &appErr) && appErr.Field == "" {
		name := strings.TrimSuffix(strings.TrimPrefix(pgErr.ConstraintName, "tickets_"), "_check")
		if name != pgErr.ConstraintName && slices.Contains(ticketColumns, name) {
			appErr.Field = name
		}
	}
	if stderrors.As(mapped, &appErr) {
		return mapped
	}
	return errors.DataService(op, err)
}
