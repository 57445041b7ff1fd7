package devauth

// Package devauth provides an in-process account directory that stands in for
// the hosted auth service during local development and tests.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/ticketflow/internal/adapters/authstate"
	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/errors"
	"github.com/target/ticketflow/internal/ports"
)

// Messages returned by the directory. They mirror the hosted service so the
// client surfaces the same text in every mode.
const (
	MsgInvalidCredentials = "Invalid login credentials"
	MsgAlreadyRegistered  = "User already registered"
)

var (
	_ ports.AuthProviderFactory = (*Directory)(nil)
	_ ports.AuthProvider        = (*Provider)(nil)
)

// Config controls the dev directory.
type Config struct {
	// SessionDuration is the access token lifetime; default 1h when zero.
	SessionDuration time.Duration
	// Persister stores client sessions between runs. Optional.
	Persister ports.SessionPersister
	// Now overrides the clock; default time.Now.
	Now    func() time.Time
	Logger *slog.Logger
	// HashCost is the bcrypt cost; default bcrypt.DefaultCost.
	HashCost int
}

type account struct {
	id    string
	email string
	hash  []byte
}

// Directory is a shared set of accounts. Each client opens its own Provider.
type Directory struct {
	cfg Config

	mu       sync.RWMutex
	accounts map[string]account
}

// NewDirectory constructs an empty directory.
func NewDirectory(cfg Config) *Directory {
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	return &Directory{cfg: cfg, accounts: make(map[string]account)}
}

// Open returns the provider for one client.
func (d *Directory) Open(key string) ports.AuthProvider {
	return d.OpenProvider(key)
}

// OpenProvider is Open with the concrete type, for callers that need Expire.
func (d *Directory) OpenProvider(key string) *Provider {
	return &Provider{
		dir:   d,
		state: authstate.New(key, d.cfg.Persister, d.cfg.Logger.With("component", "devauth")),
	}
}

// Register creates an account directly, bypassing sign-up.
func (d *Directory) Register(email, password string) (string, error) {
	acct, err := d.register(email, password)
	if err != nil {
		return "", err
	}
	return acct.id, nil
}

func (d *Directory) register(email, password string) (account, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cfg.HashCost)
	if err != nil {
		return account{}, errors.Auth("Failed to create account. Please try again.", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.accounts[key]; ok {
		return account{}, errors.Auth(MsgAlreadyRegistered, nil)
	}
	acct := account{id: uuid.NewString(), email: key, hash: hash}
	d.accounts[key] = acct
	return acct, nil
}

func (d *Directory) authenticate(email, password string) (account, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	d.mu.RLock()
	acct, ok := d.accounts[key]
	d.mu.RUnlock()
	if !ok {
		return account{}, errors.Auth(MsgInvalidCredentials, nil)
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return account{}, errors.Auth(MsgInvalidCredentials, nil)
	}
	return acct, nil
}

func (d *Directory) issue(acct account) (domainauth.Session, error) {
	access, err := randomString(32)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("generate access token: %w", err)
	}
	refresh, err := randomString(24)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("generate refresh token: %w", err)
	}
	return domainauth.Session{
		UserID:       acct.id,
		Email:        acct.email,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    d.cfg.Now().Add(d.cfg.SessionDuration),
	}, nil
}

// Provider implements ports.AuthProvider against a Directory.
type Provider struct {
	dir   *Directory
	state *authstate.State
}

// SignIn checks the credentials and starts a session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (domainauth.Session, error) {
	acct, err := p.dir.authenticate(email, password)
	if err != nil {
		return domainauth.Session{}, err
	}
	return p.start(ctx, acct)
}

// SignUp registers the account and signs it in immediately.
func (p *Provider) SignUp(ctx context.Context, email, password string) (domainauth.Session, error) {
	acct, err := p.dir.register(email, password)
	if err != nil {
		return domainauth.Session{}, err
	}
	return p.start(ctx, acct)
}

func (p *Provider) start(ctx context.Context, acct account) (domainauth.Session, error) {
	sess, err := p.dir.issue(acct)
	if err != nil {
		return domainauth.Session{}, errors.Auth("", err)
	}
	p.state.Set(ctx, domainauth.EventSignedIn, &sess)
	return sess, nil
}

// SignOut drops the session.
func (p *Provider) SignOut(ctx context.Context) error {
	p.state.Set(ctx, domainauth.EventSignedOut, nil)
	return nil
}

// GetSession restores the persisted session. An expired session is dropped.
func (p *Provider) GetSession(ctx context.Context) (*domainauth.Session, error) {
	sess, err := p.state.Restore(ctx)
	if err != nil {
		return nil, errors.Auth("", err)
	}
	if sess != nil && sess.Expired(p.dir.cfg.Now()) {
		p.state.Set(ctx, domainauth.EventSignedOut, nil)
		return nil, nil
	}
	return sess, nil
}

// OnSessionChange registers listener.
func (p *Provider) OnSessionChange(listener ports.SessionListener) func() {
	return p.state.Subscribe(listener)
}

// Expire ends the session as if the token lapsed, notifying listeners.
func (p *Provider) Expire(ctx context.Context) {
	p.state.Set(ctx, domainauth.EventSignedOut, nil)
}

// Refresh rotates the access token and extends its expiry.
func (p *Provider) Refresh(ctx context.Context) error {
	cur := p.state.Current()
	if cur == nil {
		return errors.Unauthorized("no session to refresh")
	}
	access, err := randomString(32)
	if err != nil {
		return fmt.Errorf("generate access token: %w", err)
	}
	cur.AccessToken = access
	cur.ExpiresAt = p.dir.cfg.Now().Add(p.dir.cfg.SessionDuration)
	p.state.Set(ctx, domainauth.EventTokenRefreshed, cur)
	return nil
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
