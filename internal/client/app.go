package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/domain/model"
	"github.com/target/ticketflow/internal/errors"
	"github.com/target/ticketflow/internal/observability/metrics"
	"github.com/target/ticketflow/internal/ports"
)

// Auth notifications.
const (
	msgSignedIn    = "Successfully logged in!"
	msgSignedUp    = "Account created successfully! You are now logged in."
	msgSignedOut   = "Successfully logged out."
	msgRateLimited = "Too many attempts. Please wait a moment and try again."
)

// AppOptions configures an App.
type AppOptions struct {
	Auth    ports.AuthProvider // Required
	Tickets TicketBackend      // Required

	// Clock drives toast timers. Defaults to RealClock.
	Clock Clock
	// ToastDuration defaults to DefaultToastDuration.
	ToastDuration time.Duration
	// AuthAttemptsPerMinute limits sign-in and sign-up calls. Zero disables the limit.
	AuthAttemptsPerMinute int

	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// App is the application-root scope: it owns one Session Store, Router, Gate,
// Toaster and the data views, and wires them together. Front ends hold one
// App per user session and render from View.
type App struct {
	Session   *SessionStore
	Router    *Router
	Gate      *Gate
	Toaster   *Toaster
	Tickets   *TicketsView
	Dashboard *DashboardView

	logger   *slog.Logger
	metrics  *metrics.Collector
	limiter  *rate.Limiter
	notifier *changeNotifier

	mu        sync.Mutex
	mounted   Page
	mountDone chan struct{}
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
}

// NewApp builds an App. Call Start before use and Close when done.
func NewApp(opts AppOptions) (*App, error) {
	if opts.Tickets == nil {
		return nil, errors.Internal("app requires a ticket backend")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	session, err := NewSessionStore(SessionStoreOptions{
		Provider: opts.Auth,
		Logger:   logger,
		Metrics:  opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		Session:  session,
		Router:   NewRouter(),
		Toaster:  NewToaster(opts.Clock, opts.ToastDuration, opts.Metrics),
		logger:   logger,
		metrics:  opts.Metrics,
		notifier: newChangeNotifier(),
	}
	if n := opts.AuthAttemptsPerMinute; n > 0 {
		a.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}

	deps := ticketsDeps{
		backend: opts.Tickets,
		session: session,
		toaster: a.Toaster,
		logger:  logger.With("component", "views"),
	}
	a.Tickets = newTicketsView(deps)
	a.Dashboard = newDashboardView(deps)
	a.Gate = NewGate(session, a.redirectToLogin)

	a.Router.setOnChange(a.notifier.broadcast)
	a.Toaster.setOnChange(a.notifier.broadcast)
	a.Tickets.setOnChange(a.notifier.broadcast)
	a.Dashboard.setOnChange(a.notifier.broadcast)
	return a, nil
}

func (a *App) redirectToLogin() {
	a.metrics.RecordGateRedirect()
	a.logger.Debug("access gate redirect", "from", string(a.Router.Current()))
	a.unmount()
	a.Router.Navigate(PageLogin)
}

// Start resolves the session and begins reacting to session changes.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	if a.cancel != nil || a.closed {
		a.mu.Unlock()
		return
	}
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.cancel = cancel
	a.done = make(chan struct{})
	a.mu.Unlock()

	unsub, changes := a.Session.Subscribe()
	a.Session.Start(ctx)

	go func() {
		defer close(a.done)
		defer unsub()
		for {
			select {
			case <-watchCtx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				a.onSessionChange(watchCtx)
			}
		}
	}()
}

// onSessionChange re-evaluates the gate for the page on screen, so an expiry
// on a protected page redirects without user action.
func (a *App) onSessionChange(ctx context.Context) {
	page := a.Router.Current()
	if page.Protected() {
		if a.Gate.Evaluate() == GateRender {
			a.mount(ctx, page)
		}
	}
	a.notifier.broadcast()
}

// Navigate moves to page and, when the gate lets it render, loads its data.
func (a *App) Navigate(ctx context.Context, page Page) {
	if !page.Valid() {
		page = PageLanding
	}
	if a.Router.Current() != page {
		a.unmount()
		a.Gate.Reset()
	}
	a.Router.Navigate(page)
	if !page.Protected() {
		return
	}
	if a.Gate.Evaluate() == GateRender {
		a.mount(ctx, page)
	}
}

// Reload behaves like a fresh page load: back to landing, data dropped.
func (a *App) Reload() {
	a.unmount()
	a.Router.Reset()
	a.Gate.Reset()
	a.Toaster.Dismiss()
}

// mount loads page data once per visit. A caller racing an in-flight mount of
// the same page waits for it, so Navigate always returns with data loaded.
func (a *App) mount(ctx context.Context, page Page) {
	a.mu.Lock()
	if a.mounted == page {
		done := a.mountDone
		a.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}
	done := make(chan struct{})
	a.mounted = page
	a.mountDone = done
	a.mu.Unlock()
	defer close(done)

	switch page {
	case PageDashboard:
		_ = a.Dashboard.LoadStats(ctx)
	case PageTickets:
		_ = a.Tickets.Load(ctx)
	}
}

func (a *App) unmount() {
	a.mu.Lock()
	page := a.mounted
	a.mounted = ""
	a.mountDone = nil
	a.mu.Unlock()

	switch page {
	case PageDashboard:
		a.Dashboard.reset()
	case PageTickets:
		a.Tickets.reset()
	}
}

func (a *App) allowAttempt() error {
	if a.limiter == nil || a.limiter.Allow() {
		return nil
	}
	a.Toaster.Error(msgRateLimited)
	return errors.RateLimited(msgRateLimited)
}

// SignIn validates the form, signs in, and moves to the dashboard.
// Validation errors come back without a notification.
func (a *App) SignIn(ctx context.Context, creds model.Credentials) error {
	creds.Normalize()
	if err := creds.Validate(); err != nil {
		return err
	}
	if err := a.allowAttempt(); err != nil {
		return err
	}
	if err := a.Session.SignIn(ctx, creds.Email, creds.Password); err != nil {
		a.Toaster.Error(errors.UserMessage(err, msgSignInFailed))
		return err
	}
	a.Toaster.Success(msgSignedIn)
	a.Navigate(ctx, PageDashboard)
	return nil
}

// SignUp validates the form, registers, and moves to the dashboard.
func (a *App) SignUp(ctx context.Context, form model.SignUpForm) error {
	form.Normalize()
	if err := form.Validate(); err != nil {
		return err
	}
	if err := a.allowAttempt(); err != nil {
		return err
	}
	if err := a.Session.SignUp(ctx, form.Email, form.Password); err != nil {
		a.Toaster.Error(errors.UserMessage(err, msgSignUpFailed))
		return err
	}
	a.Toaster.Success(msgSignedUp)
	a.Navigate(ctx, PageDashboard)
	return nil
}

// SignOut signs out and moves to the login page. It always succeeds.
func (a *App) SignOut(ctx context.Context) {
	a.Session.SignOut(ctx)
	a.Toaster.Success(msgSignedOut)
	a.Navigate(ctx, PageLogin)
}

// View is everything a front end needs to draw one frame.
type View struct {
	Page      Page
	Gate      GateDecision
	Session   *domainauth.Session
	Toast     *Toast
	Tickets   TicketsSnapshot
	Dashboard DashboardSnapshot
}

// Authenticated reports whether a session is present.
func (v View) Authenticated() bool { return v.Session != nil }

// View evaluates the gate and snapshots every component. A redirect decided
// here is already applied, so Page is the page to draw.
func (a *App) View() View {
	page := a.Router.Current()
	decision := GateRender
	if page.Protected() {
		decision = a.Gate.Evaluate()
		if now := a.Router.Current(); decision == GateRedirect && !now.Protected() {
			page = now
			decision = GateRender
		}
	}

	v := View{
		Page:      page,
		Gate:      decision,
		Tickets:   a.Tickets.Snapshot(),
		Dashboard: a.Dashboard.Snapshot(),
	}
	if sess, ok := a.Session.Current(); ok {
		v.Session = &sess
	}
	if t, ok := a.Toaster.Current(); ok {
		v.Toast = &t
	}
	return v
}

// Subscribe registers for "re-render" signals from any component.
func (a *App) Subscribe() (func(), <-chan struct{}) {
	return a.notifier.Subscribe()
}

// Close tears the scope down: unsubscribes from the provider, stops timers,
// and drops late results.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	cancel := a.cancel
	done := a.done
	a.mu.Unlock()

	a.Session.Close()
	if cancel != nil {
		cancel()
		<-done
	}
	a.Toaster.Close()
	a.Tickets.Close()
	a.Dashboard.Close()
	a.notifier.close()
}
