package httpx

import (
	"bytes"
	"errors"
	"html"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/target/ticketflow/internal/client"
	"github.com/target/ticketflow/internal/domain/model"
)

// Template names.
const (
	tmplLayout = "layout"
	tmplApp    = "app"
)

// TemplateRenderer renders the HTML front end.
type TemplateRenderer struct {
	t      *template.Template
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS        // Filesystem containing templates (required)
	Logger     *slog.Logger // Logger for template errors (optional)
}

// NewTemplateRenderer parses every template in cfg.TemplateFS.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t, err := template.New("root").Funcs(templateFuncs()).ParseFS(cfg.TemplateFS,
		"*.tmpl",
		"pages/*.tmpl",
		"partials/*.tmpl",
	)
	if err != nil {
		logger.Error("template parsing failed",
			slog.Any("error", err),
			slog.String("phase", "initialization"),
		)
		return nil, err
	}
	return &TemplateRenderer{t: t, logger: logger}, nil
}

// RenderFull renders the whole document.
func (r *TemplateRenderer) RenderFull(w http.ResponseWriter, data PageData) error {
	return r.renderTemplate(w, tmplLayout, data)
}

// RenderPartial renders only the #app fragment swapped by htmx.
func (r *TemplateRenderer) RenderPartial(w http.ResponseWriter, data PageData) error {
	return r.renderTemplate(w, tmplApp, data)
}

// Fragment renders the #app fragment to a string, for the event stream.
func (r *TemplateRenderer) Fragment(data PageData) (string, error) {
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, tmplApp, data); err != nil {
		r.logTemplateError(tmplApp, err)
		return "", err
	}
	return buf.String(), nil
}

func (r *TemplateRenderer) renderTemplate(w http.ResponseWriter, name string, data any) error {
	var buf bytes.Buffer
	if err := r.t.ExecuteTemplate(&buf, name, data); err != nil {
		r.logTemplateError(name, err)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Error("failed to write rendered template",
			slog.String("template", name),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

func (r *TemplateRenderer) logTemplateError(name string, err error) {
	r.logger.Error("template execution failed",
		slog.String("template", name),
		slog.Any("error", err),
	)
}

// AuthForm is what a sign-in or sign-up form re-renders with. Passwords are
// never echoed back.
type AuthForm struct {
	Email  string
	Errors model.FieldErrors
}

// PageData is the template model for one frame.
type PageData struct {
	client.View
	CSRFToken string
	Login     AuthForm
	Signup    AuthForm
}

func (d PageData) Statuses() []model.TicketStatus { return model.TicketStatuses() }

func (d PageData) Priorities() []model.TicketPriority { return model.TicketPriorities() }

func (d PageData) ConfirmPrompt() string { return client.DeleteConfirmPrompt }

// multilinePolicy admits only the line breaks multiline inserts.
var multilinePolicy = bluemonday.NewPolicy().AllowElements("br")

// multiline renders plain text with its line breaks kept. The text is
// escaped first, so nothing the user typed is dropped or interpreted.
func multiline(text string) template.HTML {
	escaped := html.EscapeString(strings.ReplaceAll(text, "\r\n", "\n"))
	withBreaks := strings.ReplaceAll(escaped, "\n", "<br>")
	return template.HTML(multilinePolicy.Sanitize(withBreaks)) //nolint:gosec // escaped and sanitized above
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"multiline": multiline,
		"fieldError": func(fe model.FieldErrors, field string) string {
			if fe == nil {
				return ""
			}
			return fe[field]
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("Jan 2, 2006 3:04 PM")
		},
		"isoTime": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
		"gateLoading": func(d client.GateDecision) bool {
			return d == client.GateLoading
		},
		"navPages": func(authenticated bool) []client.Page {
			if authenticated {
				return []client.Page{client.PageDashboard, client.PageTickets}
			}
			return []client.Page{client.PageLogin, client.PageSignup}
		},
	}
}
