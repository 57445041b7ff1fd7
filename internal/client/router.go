package client

import (
	"strings"
	"sync"
)

// Page is the single enumerated view selector.
type Page string

const (
	PageLanding   Page = "landing"
	PageLogin     Page = "login"
	PageSignup    Page = "signup"
	PageDashboard Page = "dashboard"
	PageTickets   Page = "tickets"
)

// Pages lists every page.
func Pages() []Page {
	return []Page{PageLanding, PageLogin, PageSignup, PageDashboard, PageTickets}
}

// Valid reports whether p is a known page.
func (p Page) Valid() bool {
	switch p {
	case PageLanding, PageLogin, PageSignup, PageDashboard, PageTickets:
		return true
	default:
		return false
	}
}

// Protected reports whether p requires a session.
func (p Page) Protected() bool {
	return p == PageDashboard || p == PageTickets
}

// Title is the page heading.
func (p Page) Title() string {
	switch p {
	case PageLogin:
		return "Sign In"
	case PageSignup:
		return "Create Account"
	case PageDashboard:
		return "Dashboard"
	case PageTickets:
		return "Tickets"
	default:
		return "TicketFlow"
	}
}

// ParsePage maps user input to a page; anything unknown is the landing page.
func ParsePage(v string) Page {
	p := Page(strings.ToLower(strings.TrimSpace(v)))
	if !p.Valid() {
		return PageLanding
	}
	return p
}

// Router holds the current page. It has no history and applies no guards;
// the Gate decides what a protected page actually shows.
type Router struct {
	mu       sync.RWMutex
	current  Page
	onChange func()
}

// NewRouter returns a router on the landing page.
func NewRouter() *Router {
	return &Router{current: PageLanding}
}

// Navigate sets the current page unconditionally.
func (r *Router) Navigate(p Page) {
	if !p.Valid() {
		p = PageLanding
	}
	r.mu.Lock()
	changed := r.current != p
	r.current = p
	hook := r.onChange
	r.mu.Unlock()

	if changed && hook != nil {
		hook()
	}
}

// Current returns the current page.
func (r *Router) Current() Page {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Reset returns to the landing page, as a reload would.
func (r *Router) Reset() {
	r.Navigate(PageLanding)
}

func (r *Router) setOnChange(f func()) {
	r.mu.Lock()
	r.onChange = f
	r.mu.Unlock()
}
