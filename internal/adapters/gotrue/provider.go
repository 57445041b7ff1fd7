// Package gotrue implements the auth provider port against the hosted auth
// service's REST API (password grant, sign-up, refresh, logout).
package gotrue

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/target/ticketflow/internal/adapters/authstate"
	"github.com/target/ticketflow/internal/adapters/backend"
	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/errors"
	"github.com/target/ticketflow/internal/ports"
)

// MsgConfirmEmail is returned when sign-up succeeds but the project requires
// email confirmation before a session is issued.
const MsgConfirmEmail = "Account created. Please confirm your email before signing in."

const (
	defaultRefreshMargin = 60 * time.Second
	defaultAudience      = "authenticated"
)

var (
	_ ports.AuthProviderFactory = (*Factory)(nil)
	_ ports.AuthProvider        = (*Provider)(nil)
)

// Config holds the provider configuration.
type Config struct {
	Client *backend.Client // Required

	// Persister stores sessions between runs. Optional.
	Persister ports.SessionPersister
	// RefreshMargin refreshes the access token this long before it expires.
	RefreshMargin time.Duration

	// JWKSURL enables signature verification of access tokens. Optional.
	JWKSURL string
	// Issuer expected in verified tokens; default <url>/auth/v1.
	Issuer string
	// Audience expected in verified tokens; default "authenticated".
	Audience string

	// AutoRefresh schedules a background refresh before expiry.
	AutoRefresh bool

	Now    func() time.Time
	Logger *slog.Logger
}

// Factory opens one Provider per client.
type Factory struct {
	cfg      Config
	verifier *gooidc.IDTokenVerifier
	logger   *slog.Logger
}

// NewFactory validates cfg and prepares the optional token verifier.
func NewFactory(ctx context.Context, cfg Config) (*Factory, error) {
	if cfg.Client == nil {
		return nil, errors.Configuration("auth provider requires a backend client")
	}
	if cfg.RefreshMargin <= 0 {
		cfg.RefreshMargin = defaultRefreshMargin
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Issuer == "" {
		cfg.Issuer = cfg.Client.BaseURL() + "/auth/v1"
	}
	if cfg.Audience == "" {
		cfg.Audience = defaultAudience
	}

	f := &Factory{cfg: cfg, logger: cfg.Logger.With("component", "gotrue")}
	if cfg.JWKSURL != "" {
		keySet := gooidc.NewRemoteKeySet(ctx, cfg.JWKSURL)
		f.verifier = gooidc.NewVerifier(cfg.Issuer, keySet, &gooidc.Config{
			ClientID: cfg.Audience,
			Now:      cfg.Now,
		})
	}
	return f, nil
}

// Open returns the provider for client key.
func (f *Factory) Open(key string) ports.AuthProvider {
	return f.OpenProvider(key)
}

// OpenProvider is Open with the concrete type.
func (f *Factory) OpenProvider(key string) *Provider {
	return &Provider{
		f:     f,
		state: authstate.New(key, f.cfg.Persister, f.logger),
	}
}

// Provider is one client's handle on the auth service.
type Provider struct {
	f       *Factory
	state   *authstate.State
	refresh singleflight.Group

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// tokenResponse is the session payload returned by token and sign-up calls.
// Sign-up without auto-confirm returns only the user fields.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *user  `json:"user"`

	ID    string `json:"id"`
	Email string `json:"email"`
}

func (r tokenResponse) token(now time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
	}
	switch {
	case r.ExpiresAt > 0:
		tok.Expiry = time.Unix(r.ExpiresAt, 0).UTC()
	case r.ExpiresIn > 0:
		tok.Expiry = now.Add(time.Duration(r.ExpiresIn) * time.Second).UTC()
	}
	return tok
}

func toSession(tok *oauth2.Token, u user) domainauth.Session {
	return domainauth.Session{
		UserID:       u.ID,
		Email:        u.Email,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresAt:    tok.Expiry,
	}
}

// Token converts a session into the bearer credential for data calls.
func Token(sess domainauth.Session) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  sess.AccessToken,
		TokenType:    sess.TokenType,
		RefreshToken: sess.RefreshToken,
		Expiry:       sess.ExpiresAt,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignIn uses the password grant.
func (p *Provider) SignIn(ctx context.Context, email, password string) (domainauth.Session, error) {
	var resp tokenResponse
	err := p.f.cfg.Client.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   "/auth/v1/token",
		Query:  url.Values{"grant_type": {"password"}},
		Body:   credentials{Email: email, Password: password},
		Out:    &resp,
	})
	if err != nil {
		return domainauth.Session{}, authError(err)
	}
	return p.start(ctx, domainauth.EventSignedIn, resp)
}

// SignUp registers the account. Projects with auto-confirm return a session.
func (p *Provider) SignUp(ctx context.Context, email, password string) (domainauth.Session, error) {
	var resp tokenResponse
	err := p.f.cfg.Client.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   "/auth/v1/signup",
		Body:   credentials{Email: email, Password: password},
		Out:    &resp,
	})
	if err != nil {
		return domainauth.Session{}, authError(err)
	}
	if resp.AccessToken == "" {
		return domainauth.Session{}, errors.Auth(MsgConfirmEmail, nil)
	}
	return p.start(ctx, domainauth.EventSignedIn, resp)
}

func (p *Provider) start(ctx context.Context, event domainauth.Event, resp tokenResponse) (domainauth.Session, error) {
	if resp.AccessToken == "" || resp.User == nil || resp.User.ID == "" {
		return domainauth.Session{}, errors.Auth("", fmt.Errorf("token response missing session fields"))
	}
	tok := resp.token(p.f.cfg.Now())
	if err := p.verify(ctx, tok, resp.User.ID); err != nil {
		return domainauth.Session{}, errors.Auth("", err)
	}
	sess := toSession(tok, *resp.User)
	p.state.Set(ctx, event, &sess)
	p.schedule(sess)
	return sess, nil
}

// verify checks the access token signature and subject when a JWKS is configured.
func (p *Provider) verify(ctx context.Context, tok *oauth2.Token, userID string) error {
	if p.f.verifier == nil {
		return nil
	}
	idTok, err := p.f.verifier.Verify(ctx, tok.AccessToken)
	if err != nil {
		return fmt.Errorf("verify access token: %w", err)
	}
	if idTok.Subject != userID {
		return fmt.Errorf("access token subject %q does not match user %q", idTok.Subject, userID)
	}
	return nil
}

// SignOut revokes the session server-side and always drops it locally.
func (p *Provider) SignOut(ctx context.Context) error {
	p.stopTimer()
	cur := p.state.Current()
	p.state.Set(ctx, domainauth.EventSignedOut, nil)
	if cur == nil {
		return nil
	}
	err := p.f.cfg.Client.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Path:   "/auth/v1/logout",
		Token:  Token(*cur),
	})
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// GetSession restores the persisted session, refreshing it when it is close
// to expiry. A failed refresh ends the session.
func (p *Provider) GetSession(ctx context.Context) (*domainauth.Session, error) {
	sess, err := p.state.Restore(ctx)
	if err != nil {
		return nil, errors.Auth("", err)
	}
	if sess == nil {
		return nil, nil
	}
	if !p.dueForRefresh(*sess) {
		p.schedule(*sess)
		return sess, nil
	}
	if err := p.Refresh(ctx); err != nil {
		p.f.logger.InfoContext(ctx, "restored session could not be refreshed", "error", err)
		return nil, nil
	}
	return p.state.Current(), nil
}

// OnSessionChange registers listener.
func (p *Provider) OnSessionChange(listener ports.SessionListener) func() {
	return p.state.Subscribe(listener)
}

func (p *Provider) dueForRefresh(sess domainauth.Session) bool {
	if sess.ExpiresAt.IsZero() {
		return false
	}
	return !p.f.cfg.Now().Add(p.f.cfg.RefreshMargin).Before(sess.ExpiresAt)
}

type refreshBody struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges the refresh token for a new session. Concurrent callers
// share one request. On failure the session is dropped with a signed-out event.
func (p *Provider) Refresh(ctx context.Context) error {
	_, err, _ := p.refresh.Do("refresh", func() (any, error) {
		cur := p.state.Current()
		if cur == nil {
			return nil, errors.Unauthorized("no session to refresh")
		}
		if cur.RefreshToken == "" {
			p.expire(ctx)
			return nil, errors.Unauthorized("session has no refresh token")
		}

		var resp tokenResponse
		err := p.f.cfg.Client.Do(ctx, backend.Request{
			Method: http.MethodPost,
			Path:   "/auth/v1/token",
			Query:  url.Values{"grant_type": {"refresh_token"}},
			Body:   refreshBody{RefreshToken: cur.RefreshToken},
			Out:    &resp,
		})
		if err != nil {
			p.expire(ctx)
			return nil, authError(err)
		}
		if resp.User == nil {
			resp.User = &user{ID: cur.UserID, Email: cur.Email}
		}
		if _, err := p.start(ctx, domainauth.EventTokenRefreshed, resp); err != nil {
			p.expire(ctx)
			return nil, err
		}
		return nil, nil
	})
	return err
}

func (p *Provider) expire(ctx context.Context) {
	p.stopTimer()
	p.state.Set(ctx, domainauth.EventSignedOut, nil)
}

func (p *Provider) schedule(sess domainauth.Session) {
	if !p.f.cfg.AutoRefresh || sess.ExpiresAt.IsZero() {
		return
	}
	wait := sess.ExpiresAt.Sub(p.f.cfg.Now()) - p.f.cfg.RefreshMargin
	if wait < 0 {
		wait = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(wait, func() {
		ctx := context.Background()
		if err := p.Refresh(ctx); err != nil {
			p.f.logger.InfoContext(ctx, "background refresh failed; session ended", "error", err)
		}
	})
}

func (p *Provider) stopTimer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Close stops background refresh. The session itself is kept.
func (p *Provider) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.stopTimer()
}

// authError turns a service rejection into an auth error carrying the
// service's message, which is meant for display.
func authError(err error) error {
	apiErr, ok := backend.AsAPIError(err)
	if !ok {
		return errors.Auth("", err)
	}
	if apiErr.Status == http.StatusTooManyRequests {
		return errors.RateLimited(displayable(apiErr.Message))
	}
	if apiErr.Status >= 500 {
		return errors.Auth("", err)
	}
	return errors.Auth(displayable(apiErr.Message), err)
}

func displayable(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return ""
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
