package client

import "sync"

// GateDecision is what a protected page shows.
type GateDecision int

const (
	// GateLoading shows only a loading indicator.
	GateLoading GateDecision = iota
	// GateRedirect shows nothing; the redirect callback has been invoked.
	GateRedirect
	// GateRender shows the protected content.
	GateRender
)

func (d GateDecision) String() string {
	switch d {
	case GateLoading:
		return "loading"
	case GateRedirect:
		return "redirect"
	case GateRender:
		return "render"
	default:
		return "unknown"
	}
}

// sessionReader is the part of SessionStore the gate needs.
type sessionReader interface {
	Loading() bool
	HasSession() bool
}

// Gate guards protected content. The redirect callback fires once per
// transition into the signed-out state, no matter how often Evaluate runs.
type Gate struct {
	session  sessionReader
	redirect func()

	mu         sync.Mutex
	redirected bool
}

// NewGate creates a gate over session that calls redirect when access is denied.
func NewGate(session sessionReader, redirect func()) *Gate {
	return &Gate{session: session, redirect: redirect}
}

// Evaluate decides what to show for the current session state.
func (g *Gate) Evaluate() GateDecision {
	if g.session.Loading() {
		return GateLoading
	}

	g.mu.Lock()
	if g.session.HasSession() {
		g.redirected = false
		g.mu.Unlock()
		return GateRender
	}
	fire := !g.redirected
	g.redirected = true
	g.mu.Unlock()

	if fire && g.redirect != nil {
		g.redirect()
	}
	return GateRedirect
}

// Reset forgets a previous redirect, as when the guarded page is left.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.redirected = false
	g.mu.Unlock()
}
