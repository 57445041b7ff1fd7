package client_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/target/ticketflow/internal/adapters/devauth"
	"github.com/target/ticketflow/internal/adapters/memstore"
	"github.com/target/ticketflow/internal/client"
	"github.com/target/ticketflow/internal/client/clienttest"
	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/domain/model"
	"github.com/target/ticketflow/internal/errors"
	"github.com/target/ticketflow/internal/service"
)

type e2e struct {
	app      *client.App
	provider *devauth.Provider
	store    *memstore.TicketStore
	clock    *clienttest.FakeClock
}

// newE2E runs an App against the in-process backend.
func newE2E(t *testing.T) *e2e {
	t.Helper()
	dir := devauth.NewDirectory(devauth.Config{HashCost: bcrypt.MinCost, Logger: discardLogger()})
	e := &e2e{
		provider: dir.OpenProvider("browser-1"),
		store:    memstore.NewTicketStore(),
		clock:    clienttest.NewFakeClock(epoch),
	}
	app, err := client.NewApp(client.AppOptions{
		Auth:    e.provider,
		Tickets: service.NewTicketService(service.TicketServiceOptions{Data: e.store, Logger: discardLogger()}),
		Clock:   e.clock,
		Logger:  discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	app.Start(context.Background())
	waitReady(t, app.Session)
	e.app = app
	return e
}

func signUpForm() model.SignUpForm {
	return model.SignUpForm{
		Credentials:     model.Credentials{Email: "user@test.com", Password: "secret1"},
		ConfirmPassword: "secret1",
	}
}

func TestScenario_SignUpLandsOnEmptyDashboard(t *testing.T) {
	e := newE2E(t)
	ctx := context.Background()

	e.app.Navigate(ctx, client.PageSignup)
	require.NoError(t, e.app.SignUp(ctx, signUpForm()))

	v := e.app.View()
	require.True(t, v.Authenticated())
	assert.Equal(t, "user@test.com", v.Session.Email)
	assert.Equal(t, client.PageDashboard, v.Page)
	assert.Equal(t, client.GateRender, v.Gate)
	assert.True(t, v.Dashboard.Loaded)
	assert.Equal(t, model.TicketStats{}, v.Dashboard.Stats)
	require.NotNil(t, v.Toast)
	assert.Equal(t, "Account created successfully! You are now logged in.", v.Toast.Text)
}

func TestScenario_CreateTicketAppearsInList(t *testing.T) {
	e := newE2E(t)
	ctx := context.Background()
	require.NoError(t, e.app.SignUp(ctx, signUpForm()))

	e.app.Navigate(ctx, client.PageTickets)
	assert.Empty(t, e.app.View().Tickets.Tickets)

	e.app.Tickets.OpenCreateForm()
	in := model.NewTicketInput()
	in.Title = "Printer down"
	require.NoError(t, e.app.Tickets.Submit(ctx, in))

	v := e.app.View()
	require.NotNil(t, v.Toast)
	assert.Equal(t, "Ticket created successfully!", v.Toast.Text)
	require.Len(t, v.Tickets.Tickets, 1)
	got := v.Tickets.Tickets[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "Printer down", got.Title)
	assert.Equal(t, model.TicketStatusOpen, got.Status)
	assert.Equal(t, v.Session.UserID, got.UserID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestScenario_DeleteNeedsConfirmation(t *testing.T) {
	e := newE2E(t)
	ctx := context.Background()
	require.NoError(t, e.app.SignUp(ctx, signUpForm()))
	e.app.Navigate(ctx, client.PageTickets)

	in := model.NewTicketInput()
	in.Title = "Printer down"
	require.NoError(t, e.app.Tickets.Create(ctx, in))
	id := e.app.View().Tickets.Tickets[0].ID

	require.NoError(t, e.app.Tickets.RequestDelete(id))
	e.app.Tickets.CancelDelete()
	assert.Equal(t, 1, e.store.Len(), "no request issued without confirmation")
	assert.Len(t, e.app.View().Tickets.Tickets, 1)

	require.NoError(t, e.app.Tickets.RequestDelete(id))
	require.NoError(t, e.app.Tickets.ConfirmDelete(ctx))
	v := e.app.View()
	assert.Empty(t, v.Tickets.Tickets)
	assert.Zero(t, e.store.Len())
	require.NotNil(t, v.Toast)
	assert.Equal(t, "Ticket deleted successfully!", v.Toast.Text)
}

func TestScenario_ExpiryOnTicketsRedirectsToLogin(t *testing.T) {
	e := newE2E(t)
	ctx := context.Background()
	require.NoError(t, e.app.SignUp(ctx, signUpForm()))
	e.app.Navigate(ctx, client.PageTickets)
	require.Equal(t, client.PageTickets, e.app.Router.Current())

	e.provider.Expire(ctx)

	require.Eventually(t, func() bool {
		return e.app.Router.Current() == client.PageLogin
	}, 2*time.Second, 5*time.Millisecond)

	v := e.app.View()
	assert.False(t, v.Authenticated())
	assert.Equal(t, client.PageLogin, v.Page)
	assert.Empty(t, v.Tickets.Tickets, "protected data is dropped on redirect")
}

func TestApp_GateWhileResolving(t *testing.T) {
	f := newFixtureUnstarted(t)
	release := make(chan struct{})
	f.auth.GetSessionFunc = func(context.Context) (*domainauth.Session, error) {
		<-release
		return nil, nil
	}
	f.app.Start(context.Background())
	f.app.Navigate(context.Background(), client.PageDashboard)

	v := f.app.View()
	assert.Equal(t, client.PageDashboard, v.Page)
	assert.Equal(t, client.GateLoading, v.Gate)

	close(release)
	waitReady(t, f.app.Session)
	require.Eventually(t, func() bool {
		return f.app.Router.Current() == client.PageLogin
	}, 2*time.Second, 5*time.Millisecond)
}

func TestApp_NavigateProtectedWithoutSession(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.app.Navigate(context.Background(), client.PageTickets)

	v := f.app.View()
	assert.Equal(t, client.PageLogin, v.Page)
	assert.Equal(t, client.GateRender, v.Gate)

	// Coming back later is a fresh visit and redirects again.
	f.app.Navigate(context.Background(), client.PageDashboard)
	assert.Equal(t, client.PageLogin, f.app.View().Page)
}

func TestApp_SignInFlow(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	err := f.app.SignIn(ctx, model.Credentials{Email: "bad", Password: "x"})
	require.Error(t, err)
	fe := model.FieldErrorsOf(err)
	assert.Contains(t, fe, "email")
	assert.Contains(t, fe, "password")
	assert.Empty(t, toastText(t, f.app))

	f.auth.SignInFunc = func(context.Context, string, string) (domainauth.Session, error) {
		return domainauth.Session{}, errors.Auth("Invalid login credentials", nil)
	}
	require.Error(t, f.app.SignIn(ctx, model.Credentials{Email: "a@b.co", Password: "secret1"}))
	assert.Equal(t, "Invalid login credentials", toastText(t, f.app))
	assert.Equal(t, client.PageLanding, f.app.Router.Current())

	f.auth.SignInFunc = nil
	f.data.EXPECT().Select(gomockAny(), gomockAny(), gomockAny()).Return(nil, nil)
	require.NoError(t, f.app.SignIn(ctx, model.Credentials{Email: "a@b.co", Password: "secret1"}))
	assert.Equal(t, "Successfully logged in!", toastText(t, f.app))
	assert.Equal(t, client.PageDashboard, f.app.Router.Current())
	assert.True(t, f.app.Session.HasSession())

	f.app.SignOut(ctx)
	assert.False(t, f.app.Session.HasSession())
	assert.Equal(t, client.PageLogin, f.app.Router.Current())
	assert.Equal(t, "Successfully logged out.", toastText(t, f.app))
}

func TestApp_SignUpMismatch(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	form := signUpForm()
	form.ConfirmPassword = "different"
	err := f.app.SignUp(context.Background(), form)
	require.Error(t, err)
	assert.Contains(t, model.FieldErrorsOf(err), "confirm_password")
}

func TestApp_AuthRateLimit(t *testing.T) {
	f := newFixture(t, fixtureOpts{limit: 2})
	f.auth.SignInFunc = func(context.Context, string, string) (domainauth.Session, error) {
		return domainauth.Session{}, stderrors.New("nope")
	}
	creds := model.Credentials{Email: "a@b.co", Password: "secret1"}
	ctx := context.Background()

	require.Error(t, f.app.SignIn(ctx, creds))
	require.Error(t, f.app.SignIn(ctx, creds))
	err := f.app.SignIn(ctx, creds)
	assert.True(t, errors.IsRateLimited(err))
	assert.Equal(t, "Too many attempts. Please wait a moment and try again.", toastText(t, f.app))
}

func TestApp_ReloadReturnsToLanding(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	f.app.Navigate(context.Background(), client.PageSignup)
	f.app.Toaster.Success("hi")

	f.app.Reload()
	v := f.app.View()
	assert.Equal(t, client.PageLanding, v.Page)
	assert.Nil(t, v.Toast)
}

func TestApp_SubscribeSignalsChanges(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	unsub, ch := f.app.Subscribe()
	defer unsub()

	f.app.Navigate(context.Background(), client.PageLogin)
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no change signal")
	}

	f.app.Close()
	_, open := <-ch
	for open {
		_, open = <-ch
	}
}
