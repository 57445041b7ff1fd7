package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/html"

	"github.com/target/ticketflow/internal/adapters/devauth"
	"github.com/target/ticketflow/internal/adapters/memstore"
	"github.com/target/ticketflow/internal/client"
	"github.com/target/ticketflow/internal/service"
)

const templatesDir = "../../frontend/templates"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRenderer(t *testing.T) *TemplateRenderer {
	t.Helper()
	r, err := NewTemplateRenderer(TemplateRendererConfig{
		TemplateFS: os.DirFS(templatesDir),
		Logger:     discardLogger(),
	})
	require.NoError(t, err)
	return r
}

// testEnv is a running front end over the in-memory auth directory and store.
type testEnv struct {
	t        *testing.T
	srv      *httptest.Server
	client   *http.Client
	dir      *devauth.Directory
	store    *memstore.TicketStore
	registry *Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := discardLogger()
	dir := devauth.NewDirectory(devauth.Config{HashCost: bcrypt.MinCost, Logger: logger})
	store := memstore.NewTicketStore()
	tickets := service.NewTicketService(service.TicketServiceOptions{Data: store, Logger: logger})

	open := func(ctx context.Context, key string) (*client.App, func(), error) {
		app, err := client.NewApp(client.AppOptions{Auth: dir.Open(key), Tickets: tickets, Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		app.Start(ctx)
		select {
		case <-app.Session.Ready():
		case <-time.After(2 * time.Second):
			app.Close()
			return nil, nil, context.DeadlineExceeded
		}
		return app, app.Close, nil
	}

	reg := NewRegistry(RegistryOptions{Open: open, Logger: logger})
	t.Cleanup(reg.Close)

	mux := NewRouter(RouterServices{
		Clients:   reg,
		Renderer:  newTestRenderer(t),
		Static:    os.DirFS("../../frontend/static"),
		Heartbeat: time.Hour,
		Logger:    logger,
	})
	handler := RequestID()(CSRFProtection(CSRFConfig{})(mux))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{
		t:        t,
		srv:      srv,
		client:   &http.Client{Jar: jar},
		dir:      dir,
		store:    store,
		registry: reg,
	}
}

// newBrowser is a second browser against the same server.
func (e *testEnv) newBrowser() *testEnv {
	e.t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(e.t, err)
	other := *e
	other.client = &http.Client{Jar: jar}
	return &other
}

func (e *testEnv) cookie(name string) string {
	u, err := url.Parse(e.srv.URL)
	require.NoError(e.t, err)
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

// get fetches path and parses the document.
func (e *testEnv) get(path string) (*http.Response, *html.Node) {
	e.t.Helper()
	resp, err := e.client.Get(e.srv.URL + path)
	require.NoError(e.t, err)
	return resp, parseBody(e.t, resp)
}

// post submits form as htmx would, echoing the CSRF token in the form.
func (e *testEnv) post(path string, form url.Values) (*http.Response, *html.Node) {
	e.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	form.Set(DefaultCSRFCookieName, e.cookie(DefaultCSRFCookieName))
	req, err := http.NewRequest(http.MethodPost, e.srv.URL+path, strings.NewReader(form.Encode()))
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Hx-Request", "true")
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	return resp, parseBody(e.t, resp)
}

// signUp registers email and lands on the dashboard.
func (e *testEnv) signUp(email string) *html.Node {
	e.t.Helper()
	e.get("/")
	resp, doc := e.post("/signup", url.Values{
		"email":            {email},
		"password":         {"secret123"},
		"confirm_password": {"secret123"},
	})
	require.Equal(e.t, http.StatusOK, resp.StatusCode)
	require.Equal(e.t, "dashboard", pageOf(doc))
	return doc
}

func parseBody(t *testing.T, resp *http.Response) *html.Node {
	t.Helper()
	defer resp.Body.Close()
	doc, err := html.Parse(resp.Body)
	require.NoError(t, err)
	return doc
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if all := findAll(n, match); len(all) > 0 {
		return all[0]
	}
	return nil
}

func byID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool { return attr(n, "id") == id }
}

func byAttr(key, val string) func(*html.Node) bool {
	return func(n *html.Node) bool { return attr(n, key) == val }
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

// pageOf returns the page the #app frame shows.
func pageOf(doc *html.Node) string {
	app := findFirst(doc, byID("app"))
	if app == nil {
		return ""
	}
	return attr(app, "data-page")
}

func toastOf(doc *html.Node) string {
	return textOf(findFirst(doc, byAttr("class", "toast-text")))
}

func fieldErrorOf(doc *html.Node, field string) string {
	return textOf(findFirst(doc, func(n *html.Node) bool {
		return attr(n, "class") == "field-error" && attr(n, "data-field") == field
	}))
}

func ticketIDs(doc *html.Node) []string {
	var ids []string
	for _, n := range findAll(doc, func(n *html.Node) bool { return hasAttr(n, "data-ticket-id") }) {
		ids = append(ids, attr(n, "data-ticket-id"))
	}
	return ids
}
