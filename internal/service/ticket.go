package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/domain/model"
	"github.com/target/ticketflow/internal/errors"
	"github.com/target/ticketflow/internal/observability/metrics"
	"github.com/target/ticketflow/internal/ports"
)

// TicketServiceOptions groups dependencies for TicketService.
type TicketServiceOptions struct {
	Data    ports.DataService  // Required
	Logger  *slog.Logger       // Optional
	Metrics *metrics.Collector // Optional
}

// TicketService applies local validation and ordering on top of the data service.
// Validation failures never reach the network.
type TicketService struct {
	data    ports.DataService
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewTicketService constructs a new TicketService.
func NewTicketService(opts TicketServiceOptions) *TicketService {
	if opts.Data == nil {
		panic("service: TicketServiceOptions.Data is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TicketService{
		data:    opts.Data,
		logger:  logger.With("component", "ticket_service"),
		metrics: opts.Metrics,
	}
}

// List returns the caller's tickets, newest first.
func (s *TicketService) List(ctx context.Context, sess domainauth.Session) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := s.call(ctx, "select", func(ctx context.Context) error {
		var err error
		tickets, err = s.data.Select(ctx, sess, model.TicketQuery{Order: model.NewestFirst()})
		return err
	})
	if err != nil {
		return nil, errors.DataService("list tickets", err)
	}
	return tickets, nil
}

// Stats counts the caller's tickets per status. Only the status column is fetched.
func (s *TicketService) Stats(ctx context.Context, sess domainauth.Session) (model.TicketStats, error) {
	var tickets []model.Ticket
	err := s.call(ctx, "select_status", func(ctx context.Context) error {
		var err error
		tickets, err = s.data.Select(ctx, sess, model.TicketQuery{Columns: []string{"status"}})
		return err
	})
	if err != nil {
		return model.TicketStats{}, errors.DataService("load ticket stats", err)
	}
	return model.CountTickets(tickets), nil
}

// Prepare normalizes in, then validates it. Text is stored as typed; front
// ends escape it on output.
func (s *TicketService) Prepare(in model.TicketInput) (model.TicketInput, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return in, err
	}
	return in, nil
}

// Create validates in and inserts it for the session's user.
func (s *TicketService) Create(
	ctx context.Context,
	sess domainauth.Session,
	in model.TicketInput,
) (model.Ticket, error) {
	in, err := s.Prepare(in)
	if err != nil {
		return model.Ticket{}, err
	}

	var created model.Ticket
	err = s.call(ctx, "insert", func(ctx context.Context) error {
		var err error
		created, err = s.data.Insert(ctx, sess, in.Row(sess.UserID))
		return err
	})
	if err != nil {
		return model.Ticket{}, errors.DataService("create ticket", err)
	}
	return created, nil
}

// Update validates in and replaces the editable fields of ticket id.
func (s *TicketService) Update(ctx context.Context, sess domainauth.Session, id string, in model.TicketInput) error {
	if strings.TrimSpace(id) == "" {
		return errors.ValidationField("id", "Ticket id is required")
	}
	in, err := s.Prepare(in)
	if err != nil {
		return err
	}

	err = s.call(ctx, "update", func(ctx context.Context) error {
		return s.data.Update(ctx, sess, id, in.Patch())
	})
	if err != nil {
		return errors.DataService("update ticket", err)
	}
	return nil
}

// Delete removes ticket id.
func (s *TicketService) Delete(ctx context.Context, sess domainauth.Session, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.ValidationField("id", "Ticket id is required")
	}
	err := s.call(ctx, "delete", func(ctx context.Context) error {
		return s.data.Delete(ctx, sess, id)
	})
	if err != nil {
		return errors.DataService("delete ticket", err)
	}
	return nil
}

func (s *TicketService) call(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	s.metrics.RecordDataCall(op, time.Since(start), err)
	if err != nil {
		s.logger.WarnContext(ctx, "data service call failed", "op", op, "error", err)
	}
	return err
}
