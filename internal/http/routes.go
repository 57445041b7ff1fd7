package httpx

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"
)

// RouterServices holds what the router needs.
type RouterServices struct {
	Clients  *Registry         // Required
	Renderer *TemplateRenderer // Required

	// Static serves /static/ when set.
	Static fs.FS
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Heartbeat is the event stream keep-alive interval; default 25s.
	Heartbeat time.Duration

	Logger *slog.Logger
}

// NewRouter wires every route onto a ServeMux.
func NewRouter(svc RouterServices) *http.ServeMux {
	if svc.Clients == nil || svc.Renderer == nil {
		panic("httpx: RouterServices.Clients and Renderer are required")
	}
	if svc.Logger == nil {
		svc.Logger = slog.Default()
	}
	if svc.Heartbeat <= 0 {
		svc.Heartbeat = 25 * time.Second
	}

	h := &UIHandlers{
		clients:   svc.Clients,
		renderer:  svc.Renderer,
		heartbeat: svc.Heartbeat,
		logger:    svc.Logger.With("component", "ui"),
	}

	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recordRoute(r)
			fn(w, r)
		}))
	}

	handle("GET /{$}", h.Root)
	handle("GET /view", h.View)
	handle("GET /events", h.Events)
	handle("POST /navigate", h.Navigate)

	handle("POST /login", h.Login)
	handle("POST /signup", h.Signup)
	handle("POST /logout", h.Logout)

	handle("POST /tickets", h.SubmitTicket)
	handle("POST /tickets/new", h.OpenCreateForm)
	handle("POST /tickets/{id}/edit", h.OpenEditForm)
	handle("POST /tickets/{id}", h.UpdateTicket)
	handle("POST /tickets/{id}/delete", h.RequestDelete)
	handle("POST /tickets/delete/confirm", h.ConfirmDelete)
	handle("POST /tickets/delete/cancel", h.CancelDelete)
	handle("POST /form/close", h.CloseForm)
	handle("POST /toast/dismiss", h.DismissToast)

	handle("GET /healthz", healthHandler)
	if svc.Metrics != nil {
		mux.Handle("GET /metrics", svc.Metrics)
	}
	if svc.Static != nil {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(svc.Static)))
	}
	return mux
}
