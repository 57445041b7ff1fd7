package client

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"

	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/domain/model"
	"github.com/target/ticketflow/internal/errors"
)

// User-facing ticket notifications.
const (
	msgLoadTicketsFailed  = "Failed to load tickets. Please try again."
	msgLoadStatsFailed    = "Failed to load statistics. Please try again."
	msgTicketCreated      = "Ticket created successfully!"
	msgTicketUpdated      = "Ticket updated successfully!"
	msgTicketDeleted      = "Ticket deleted successfully!"
	msgCreateTicketFailed = "Failed to create ticket. Please try again."
	msgUpdateTicketFailed = "Failed to update ticket. Please try again."
	msgDeleteTicketFailed = "Failed to delete ticket. Please try again."

	// DeleteConfirmPrompt is the question asked before a delete is issued.
	DeleteConfirmPrompt = "Are you sure you want to delete this ticket?"
)

var (
	// ErrSubmitInProgress is returned when a mutation is already running.
	ErrSubmitInProgress = stderrors.New("a submission is already in progress")
	// ErrConfirmationPending is returned while a delete confirmation is open.
	ErrConfirmationPending = stderrors.New("a delete confirmation is pending")
	// ErrNoPendingDelete is returned by ConfirmDelete without a prior RequestDelete.
	ErrNoPendingDelete = stderrors.New("no delete is pending")
	// ErrNotSignedIn is returned when a view is used without a session.
	ErrNotSignedIn = stderrors.New("not signed in")
	// ErrViewClosed is returned after Close.
	ErrViewClosed = stderrors.New("view closed")
	// ErrViewLeft reports a fetch whose page was left before it finished.
	ErrViewLeft = stderrors.New("view left before the fetch finished")
)

// TicketBackend is the ticket service the views call.
type TicketBackend interface {
	List(ctx context.Context, sess domainauth.Session) ([]model.Ticket, error)
	Stats(ctx context.Context, sess domainauth.Session) (model.TicketStats, error)
	Create(ctx context.Context, sess domainauth.Session, in model.TicketInput) (model.Ticket, error)
	Update(ctx context.Context, sess domainauth.Session, id string, in model.TicketInput) error
	Delete(ctx context.Context, sess domainauth.Session, id string) error
}

// sessionSource yields the current session.
type sessionSource interface {
	Current() (domainauth.Session, bool)
}

// TicketForm is the create/edit form state.
type TicketForm struct {
	Open      bool
	EditingID string
	Input     model.TicketInput
	Errors    model.FieldErrors
}

// Editing reports whether the form edits an existing ticket.
func (f TicketForm) Editing() bool { return f.EditingID != "" }

// TicketsSnapshot is a consistent copy of the view state for rendering.
type TicketsSnapshot struct {
	Tickets       []model.Ticket
	Loading       bool
	Loaded        bool
	Submitting    bool
	Form          TicketForm
	PendingDelete *model.Ticket
	PendingID     string
}

// ticketsDeps groups what both data views share.
type ticketsDeps struct {
	backend TicketBackend
	session sessionSource
	toaster *Toaster
	logger  *slog.Logger
}

// TicketsView is the ticket list with its form and delete confirmation.
// The list only ever reflects the last successful fetch.
type TicketsView struct {
	deps ticketsDeps

	mu            sync.Mutex
	tickets       []model.Ticket
	loading       bool
	loaded        bool
	submitting    bool
	form          TicketForm
	pendingDelete string
	closed        bool
	onChange      func()
	// gen counts page visits; results of a fetch started in an earlier
	// visit are dropped.
	gen uint64
}

func newTicketsView(deps ticketsDeps) *TicketsView {
	return &TicketsView{deps: deps}
}

func (v *TicketsView) changed() {
	v.mu.Lock()
	hook := v.onChange
	closed := v.closed
	v.mu.Unlock()
	if hook != nil && !closed {
		hook()
	}
}

// Load re-reads the ticket list. On failure the previous list stays and an
// error notification is shown. A result arriving after the page was left is
// discarded with ErrViewLeft.
func (v *TicketsView) Load(ctx context.Context) error {
	sess, ok := v.deps.session.Current()
	if !ok {
		return ErrNotSignedIn
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	gen := v.gen
	v.loading = true
	v.mu.Unlock()
	v.changed()

	tickets, err := v.deps.backend.List(ctx, sess)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	if v.gen != gen {
		v.mu.Unlock()
		return ErrViewLeft
	}
	v.loading = false
	if err == nil {
		v.tickets = tickets
		v.loaded = true
	}
	v.mu.Unlock()

	if err != nil {
		v.deps.logger.ErrorContext(ctx, "fetch tickets", "error", err)
		v.deps.toaster.Error(msgLoadTicketsFailed)
	}
	v.changed()
	return err
}

// OpenCreateForm opens a blank form.
func (v *TicketsView) OpenCreateForm() {
	v.mu.Lock()
	v.form = TicketForm{Open: true, Input: model.NewTicketInput()}
	v.mu.Unlock()
	v.changed()
}

// OpenEditForm opens the form prefilled with ticket id from the loaded list.
func (v *TicketsView) OpenEditForm(id string) error {
	v.mu.Lock()
	t, ok := v.findLocked(id)
	if !ok {
		v.mu.Unlock()
		return errors.NotFound("Ticket not found")
	}
	v.form = TicketForm{Open: true, EditingID: id, Input: t.Input()}
	v.mu.Unlock()
	v.changed()
	return nil
}

// CloseForm discards the form.
func (v *TicketsView) CloseForm() {
	v.mu.Lock()
	v.form = TicketForm{}
	v.mu.Unlock()
	v.changed()
}

// Submit creates or updates depending on how the form was opened.
func (v *TicketsView) Submit(ctx context.Context, in model.TicketInput) error {
	v.mu.Lock()
	editing := v.form.EditingID
	v.mu.Unlock()
	if editing != "" {
		return v.Update(ctx, editing, in)
	}
	return v.Create(ctx, in)
}

// Create validates locally, inserts, re-fetches and notifies.
func (v *TicketsView) Create(ctx context.Context, in model.TicketInput) error {
	return v.mutate(ctx, in, mutation{
		failed:  msgCreateTicketFailed,
		success: msgTicketCreated,
		run: func(ctx context.Context, sess domainauth.Session) error {
			_, err := v.deps.backend.Create(ctx, sess, in)
			return err
		},
	})
}

// Update validates locally, updates ticket id, re-fetches and notifies.
func (v *TicketsView) Update(ctx context.Context, id string, in model.TicketInput) error {
	return v.mutate(ctx, in, mutation{
		failed:  msgUpdateTicketFailed,
		success: msgTicketUpdated,
		run: func(ctx context.Context, sess domainauth.Session) error {
			return v.deps.backend.Update(ctx, sess, id, in)
		},
	})
}

// RequestDelete opens the confirmation for ticket id. Nothing is sent yet.
func (v *TicketsView) RequestDelete(id string) error {
	v.mu.Lock()
	if v.pendingDelete != "" {
		v.mu.Unlock()
		return ErrConfirmationPending
	}
	if v.submitting {
		v.mu.Unlock()
		return ErrSubmitInProgress
	}
	v.pendingDelete = id
	v.mu.Unlock()
	v.changed()
	return nil
}

// CancelDelete closes the confirmation without issuing a request.
func (v *TicketsView) CancelDelete() {
	v.mu.Lock()
	v.pendingDelete = ""
	v.mu.Unlock()
	v.changed()
}

// ConfirmDelete issues the pending delete.
func (v *TicketsView) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	id := v.pendingDelete
	if id == "" {
		v.mu.Unlock()
		return ErrNoPendingDelete
	}
	v.pendingDelete = ""
	v.mu.Unlock()

	return v.mutate(ctx, nil, mutation{
		failed:  msgDeleteTicketFailed,
		success: msgTicketDeleted,
		run: func(ctx context.Context, sess domainauth.Session) error {
			return v.deps.backend.Delete(ctx, sess, id)
		},
	})
}

type mutation struct {
	failed  string
	success string
	run     func(ctx context.Context, sess domainauth.Session) error
}

// mutate runs one guarded mutation. in is the form input for create and
// update, nil for delete.
func (v *TicketsView) mutate(ctx context.Context, in any, m mutation) error {
	sess, ok := v.deps.session.Current()
	if !ok {
		return ErrNotSignedIn
	}
	if err := v.begin(in); err != nil {
		return err
	}

	err := m.run(ctx, sess)
	if err != nil {
		v.end(func() {
			if fe := model.FieldErrorsOf(err); fe != nil {
				v.form.Errors = fe
			}
		})
		if errors.IsValidation(err) {
			return err
		}
		v.deps.logger.ErrorContext(ctx, "ticket mutation failed", "error", err)
		v.deps.toaster.Error(m.failed)
		return err
	}

	v.end(func() {
		if in != nil {
			v.form = TicketForm{}
		}
	})
	switch loadErr := v.Load(ctx); {
	case loadErr == nil, stderrors.Is(loadErr, ErrViewClosed), stderrors.Is(loadErr, ErrViewLeft):
		v.deps.toaster.Success(m.success)
	default:
		// The load failure notification stays up; the list is stale.
		v.deps.logger.WarnContext(ctx, "re-fetch after mutation failed", "error", loadErr)
	}
	return nil
}

func (v *TicketsView) begin(in any) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	if v.submitting {
		v.mu.Unlock()
		return ErrSubmitInProgress
	}
	if in != nil && v.pendingDelete != "" {
		v.mu.Unlock()
		return ErrConfirmationPending
	}
	v.submitting = true
	if input, ok := in.(model.TicketInput); ok && v.form.Open {
		v.form.Input = input
		v.form.Errors = nil
	}
	v.mu.Unlock()
	v.changed()
	return nil
}

func (v *TicketsView) end(update func()) {
	v.mu.Lock()
	v.submitting = false
	if !v.closed {
		update()
	}
	v.mu.Unlock()
	v.changed()
}

func (v *TicketsView) findLocked(id string) (model.Ticket, bool) {
	for _, t := range v.tickets {
		if t.ID == id {
			return t, true
		}
	}
	return model.Ticket{}, false
}

// Snapshot copies the view state.
func (v *TicketsView) Snapshot() TicketsSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := TicketsSnapshot{
		Tickets:    append([]model.Ticket(nil), v.tickets...),
		Loading:    v.loading,
		Loaded:     v.loaded,
		Submitting: v.submitting,
		Form:       v.form,
		PendingID:  v.pendingDelete,
	}
	if v.pendingDelete != "" {
		if t, ok := v.findLocked(v.pendingDelete); ok {
			snap.PendingDelete = &t
		} else {
			snap.PendingDelete = &model.Ticket{ID: v.pendingDelete}
		}
	}
	return snap
}

// reset drops all state, as when the page is left.
func (v *TicketsView) reset() {
	v.mu.Lock()
	v.gen++
	v.tickets = nil
	v.loading = false
	v.loaded = false
	v.form = TicketForm{}
	v.pendingDelete = ""
	v.mu.Unlock()
}

// Close drops late results from requests still in flight.
func (v *TicketsView) Close() {
	v.mu.Lock()
	v.closed = true
	v.onChange = nil
	v.mu.Unlock()
}

func (v *TicketsView) setOnChange(f func()) {
	v.mu.Lock()
	v.onChange = f
	v.mu.Unlock()
}

// DashboardView shows per-status counters.
type DashboardView struct {
	deps ticketsDeps

	mu       sync.Mutex
	stats    model.TicketStats
	loading  bool
	loaded   bool
	closed   bool
	onChange func()
	gen      uint64
}

func newDashboardView(deps ticketsDeps) *DashboardView {
	return &DashboardView{deps: deps}
}

// DashboardSnapshot is a consistent copy of the dashboard state.
type DashboardSnapshot struct {
	Stats   model.TicketStats
	Loading bool
	Loaded  bool
}

// LoadStats re-reads the counters.
func (d *DashboardView) LoadStats(ctx context.Context) error {
	sess, ok := d.deps.session.Current()
	if !ok {
		return ErrNotSignedIn
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrViewClosed
	}
	gen := d.gen
	d.loading = true
	hook := d.onChange
	d.mu.Unlock()
	if hook != nil {
		hook()
	}

	stats, err := d.deps.backend.Stats(ctx, sess)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrViewClosed
	}
	if d.gen != gen {
		d.mu.Unlock()
		return ErrViewLeft
	}
	d.loading = false
	if err == nil {
		d.stats = stats
		d.loaded = true
	}
	hook = d.onChange
	d.mu.Unlock()

	if err != nil {
		d.deps.logger.ErrorContext(ctx, "fetch stats", "error", err)
		d.deps.toaster.Error(msgLoadStatsFailed)
	}
	if hook != nil {
		hook()
	}
	return err
}

// Snapshot copies the dashboard state.
func (d *DashboardView) Snapshot() DashboardSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DashboardSnapshot{Stats: d.stats, Loading: d.loading, Loaded: d.loaded}
}

func (d *DashboardView) reset() {
	d.mu.Lock()
	d.gen++
	d.stats = model.TicketStats{}
	d.loading = false
	d.loaded = false
	d.mu.Unlock()
}

// Close drops late results from requests still in flight.
func (d *DashboardView) Close() {
	d.mu.Lock()
	d.closed = true
	d.onChange = nil
	d.mu.Unlock()
}

func (d *DashboardView) setOnChange(f func()) {
	d.mu.Lock()
	d.onChange = f
	d.mu.Unlock()
}
