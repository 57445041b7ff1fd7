package client_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/target/ticketflow/internal/client"
)

type fakeSession struct {
	loading bool
	signed  bool
}

func (f *fakeSession) Loading() bool    { return f.loading }
func (f *fakeSession) HasSession() bool { return f.signed }

func TestGate_Evaluate(t *testing.T) {
	s := &fakeSession{loading: true}
	redirects := 0
	g := client.NewGate(s, func() { redirects++ })

	assert.Equal(t, client.GateLoading, g.Evaluate())
	assert.Zero(t, redirects, "no redirect while resolving")

	s.loading = false
	for range 5 {
		assert.Equal(t, client.GateRedirect, g.Evaluate())
	}
	assert.Equal(t, 1, redirects, "redirect fires once per transition")

	s.signed = true
	assert.Equal(t, client.GateRender, g.Evaluate())

	s.signed = false
	assert.Equal(t, client.GateRedirect, g.Evaluate())
	assert.Equal(t, 2, redirects, "losing the session again is a new transition")
}

func TestGate_Reset(t *testing.T) {
	s := &fakeSession{}
	redirects := 0
	g := client.NewGate(s, func() { redirects++ })

	g.Evaluate()
	g.Evaluate()
	g.Reset()
	g.Evaluate()
	assert.Equal(t, 2, redirects)
}

func TestGateDecision_String(t *testing.T) {
	assert.Equal(t, "loading", client.GateLoading.String())
	assert.Equal(t, "redirect", client.GateRedirect.String())
	assert.Equal(t, "render", client.GateRender.String())
}
