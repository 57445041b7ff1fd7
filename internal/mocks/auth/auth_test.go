package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/ticketflow/internal/domain/auth"
)

func TestStubAuthProvider_Defaults(t *testing.T) {
	provider := NewStubAuthProvider()
	ctx := context.Background()

	sess, err := provider.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", sess.Email)
	assert.Equal(t, provider.DefaultSession.UserID, sess.UserID)

	sess, err = provider.SignUp(ctx, "b@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", sess.Email)

	got, err := provider.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, provider.SignOut(ctx))
	require.NoError(t, provider.SignOut(ctx))
	assert.Equal(t, 2, provider.SignOuts)
}

func TestStubAuthProvider_ScriptedFuncs(t *testing.T) {
	provider := NewStubAuthProvider()
	boom := errors.New("boom")
	provider.SignInFunc = func(context.Context, string, string) (domainauth.Session, error) {
		return domainauth.Session{}, boom
	}
	provider.SignOutFunc = func(context.Context) error { return boom }

	_, err := provider.SignIn(context.Background(), "a@example.com", "x")
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, provider.SignOut(context.Background()), boom)
	assert.Equal(t, 1, provider.SignOuts, "sign-out is counted even when it fails")
}

func TestStubAuthProvider_EmitAndUnsubscribe(t *testing.T) {
	provider := NewStubAuthProvider()

	var got []domainauth.Event
	unsub := provider.OnSessionChange(func(c domainauth.Change) { got = append(got, c.Event) })
	assert.Equal(t, 1, provider.ListenerCount())

	provider.Emit(domainauth.Change{Event: domainauth.EventSignedIn})
	unsub()
	provider.Emit(domainauth.Change{Event: domainauth.EventSignedOut})

	assert.Equal(t, []domainauth.Event{domainauth.EventSignedIn}, got)
	assert.Zero(t, provider.ListenerCount())
}

func TestMemoryPersister(t *testing.T) {
	p := NewMemoryPersister()
	ctx := context.Background()

	require.Error(t, p.Save(ctx, "", domainauth.Session{}))

	got, err := p.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, p.Save(ctx, "k", domainauth.Session{UserID: "u1"}))
	got, err = p.Load(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)

	require.NoError(t, p.Delete(ctx, "k"))
	got, err = p.Load(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, got)
}
