package client_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/ticketflow/internal/client"
	"github.com/target/ticketflow/internal/client/clienttest"
	domainauth "github.com/target/ticketflow/internal/domain/auth"
	"github.com/target/ticketflow/internal/mocks"
	authmocks "github.com/target/ticketflow/internal/mocks/auth"
	"github.com/target/ticketflow/internal/ports"
	"github.com/target/ticketflow/internal/service"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type appFixture struct {
	app   *client.App
	auth  *authmocks.StubAuthProvider
	clock *clienttest.FakeClock
	data  *mocks.MockDataService
}

type fixtureOpts struct {
	signedIn bool
	data     ports.DataService
	limit    int
}

func gomockAny() gomock.Matcher { return gomock.Any() }

// newFixtureUnstarted builds the App without starting it.
func newFixtureUnstarted(t *testing.T) *appFixture {
	t.Helper()
	return buildFixture(t, fixtureOpts{})
}

// newFixture starts an App over a stub provider and a gomock data service and
// waits for the session to resolve.
func newFixture(t *testing.T, o fixtureOpts) *appFixture {
	t.Helper()
	f := buildFixture(t, o)
	f.app.Start(context.Background())
	waitReady(t, f.app.Session)
	return f
}

func buildFixture(t *testing.T, o fixtureOpts) *appFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &appFixture{
		auth:  authmocks.NewStubAuthProvider(),
		clock: clienttest.NewFakeClock(epoch),
		data:  mocks.NewMockDataService(ctrl),
	}
	if o.signedIn {
		sess := f.auth.DefaultSession
		f.auth.GetSessionFunc = func(context.Context) (*domainauth.Session, error) { return &sess, nil }
	}
	data := o.data
	if data == nil {
		data = f.data
	}

	app, err := client.NewApp(client.AppOptions{
		Auth:                  f.auth,
		Tickets:               service.NewTicketService(service.TicketServiceOptions{Data: data, Logger: discardLogger()}),
		Clock:                 f.clock,
		AuthAttemptsPerMinute: o.limit,
		Logger:                discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	f.app = app
	return f
}

func waitReady(t *testing.T, s *client.SessionStore) {
	t.Helper()
	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("session store never resolved")
	}
}

func toastText(t *testing.T, app *client.App) string {
	t.Helper()
	toast, ok := app.Toaster.Current()
	if !ok {
		return ""
	}
	return toast.Text
}
