package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/target/ticketflow/internal/client"
	"github.com/target/ticketflow/internal/observability/metrics"
)

// ClientCookieName identifies a browser's client instance.
const ClientCookieName = "tf_client"

// OpenFunc builds and starts the client for key. release tears it down,
// including anything the auth provider holds open.
type OpenFunc func(ctx context.Context, key string) (app *client.App, release func(), err error)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Open OpenFunc // Required

	// IdleTTL evicts clients not seen for this long; default 30m.
	IdleTTL time.Duration
	// CookieSecure marks the client cookie Secure.
	CookieSecure bool
	// Now overrides the clock used for idle tracking.
	Now func() time.Time

	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Browser is one browser's client plus the form state that is not part of
// the client core: what the sign-in and sign-up forms re-render with.
type Browser struct {
	App *client.App

	release  func()
	lastSeen time.Time

	mu     sync.Mutex
	login  AuthForm
	signup AuthForm
}

// Forms returns the current sign-in and sign-up form state.
func (b *Browser) Forms() (login, signup AuthForm) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.login, b.signup
}

// SetForms replaces the sign-in and sign-up form state.
func (b *Browser) SetForms(login, signup AuthForm) {
	b.mu.Lock()
	b.login, b.signup = login, signup
	b.mu.Unlock()
}

// Registry holds one client.App per browser, keyed by an opaque cookie.
// Each App is the application-root scope for that browser.
type Registry struct {
	opts   RegistryOptions
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*Browser
	closed  bool
}

// NewRegistry constructs a Registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Open == nil {
		panic("httpx: RegistryOptions.Open is required")
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		opts:    opts,
		logger:  logger.With("component", "client_registry"),
		clients: make(map[string]*Browser),
	}
}

// ErrRegistryClosed is returned once the registry has shut down.
var ErrRegistryClosed = errors.New("client registry closed")

// Lookup returns the request's Browser without creating one.
func (reg *Registry) Lookup(r *http.Request) (*Browser, bool) {
	c, err := r.Cookie(ClientCookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	e, ok := reg.clients[c.Value]
	if !ok {
		return nil, false
	}
	e.lastSeen = reg.opts.Now()
	return e, true
}

// Acquire returns the request's Browser, creating one (and setting the
// cookie) when there is none. created reports whether it is new.
func (reg *Registry) Acquire(w http.ResponseWriter, r *http.Request) (b *Browser, created bool, err error) {
	if b, ok := reg.Lookup(r); ok {
		return b, false, nil
	}

	key := ""
	if c, cerr := r.Cookie(ClientCookieName); cerr == nil && uuid.Validate(c.Value) == nil {
		// An evicted client keeps its key so a persisted session can be restored.
		key = c.Value
	}
	if key == "" {
		key = uuid.NewString()
	}

	app, release, err := reg.opts.Open(r.Context(), key)
	if err != nil {
		return nil, false, err
	}

	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		release()
		return nil, false, ErrRegistryClosed
	}
	if existing, ok := reg.clients[key]; ok {
		// Lost a race with a concurrent first request from the same browser.
		existing.lastSeen = reg.opts.Now()
		reg.mu.Unlock()
		release()
		return existing, false, nil
	}
	b = &Browser{App: app, release: release, lastSeen: reg.opts.Now()}
	reg.clients[key] = b
	reg.mu.Unlock()

	reg.opts.Metrics.ClientOpened()
	reg.logger.Debug("client opened", "clients", reg.Len())
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookieName,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		Secure:   reg.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return b, true, nil
}

// Len reports the number of live clients.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.clients)
}

// Sweep closes every client idle for longer than IdleTTL and returns how many
// were evicted.
func (reg *Registry) Sweep() int {
	cutoff := reg.opts.Now().Add(-reg.opts.IdleTTL)

	reg.mu.Lock()
	var stale []*Browser
	for key, e := range reg.clients {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e)
			delete(reg.clients, key)
		}
	}
	reg.mu.Unlock()

	for _, e := range stale {
		e.release()
		reg.opts.Metrics.ClientClosed()
	}
	if len(stale) > 0 {
		reg.logger.Info("evicted idle clients", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done.
func (reg *Registry) Run(ctx context.Context) {
	interval := reg.opts.IdleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reg.Sweep()
		}
	}
}

// Close releases every client. Later Acquire calls fail.
func (reg *Registry) Close() {
	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		return
	}
	reg.closed = true
	all := reg.clients
	reg.clients = make(map[string]*Browser)
	reg.mu.Unlock()

	for _, e := range all {
		e.release()
		reg.opts.Metrics.ClientClosed()
	}
}
