package httpx

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/ticketflow/internal/client"
	"github.com/target/ticketflow/internal/domain/model"
	"github.com/target/ticketflow/internal/errors"
)

// maxFormBytes bounds every form body.
const maxFormBytes = 64 << 10

// UIHandlers serves the server-rendered front end. Every action runs against
// the browser's own client.App and answers with the re-rendered frame.
type UIHandlers struct {
	clients   *Registry
	renderer  *TemplateRenderer
	heartbeat time.Duration
	logger    *slog.Logger
}

func (h *UIHandlers) pageData(r *http.Request, b *Browser) PageData {
	login, signup := b.Forms()
	return PageData{
		View:      b.App.View(),
		CSRFToken: GetCSRFToken(r),
		Login:     login,
		Signup:    signup,
	}
}

// render answers with the #app fragment for htmx and the whole document otherwise.
func (h *UIHandlers) render(w http.ResponseWriter, r *http.Request, b *Browser) {
	w.Header().Set("Cache-Control", "no-store")
	data := h.pageData(r, b)
	var err error
	if WantsPartial(r) {
		SetHXTrigger(w, "tf:view", map[string]string{"page": string(data.Page), "title": data.Page.Title()})
		err = h.renderer.RenderPartial(w, data)
	} else {
		err = h.renderer.RenderFull(w, data)
	}
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// browser resolves the request's client, creating it when missing.
func (h *UIHandlers) browser(w http.ResponseWriter, r *http.Request) (*Browser, bool) {
	b, _, err := h.clients.Acquire(w, r)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "open client", "error", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return nil, false
	}
	return b, true
}

// action parses the form, runs fn against the browser and renders the result.
func (h *UIHandlers) action(w http.ResponseWriter, r *http.Request, fn func(b *Browser)) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	b, ok := h.browser(w, r)
	if !ok {
		return
	}
	fn(b)
	h.render(w, r, b)
}

// logRejected logs view errors that are not shown to the user any other way.
func (h *UIHandlers) logRejected(r *http.Request, op string, err error) {
	if err == nil || errors.IsValidation(err) {
		return
	}
	level := slog.LevelWarn
	if stderrors.Is(err, client.ErrSubmitInProgress) || stderrors.Is(err, client.ErrConfirmationPending) {
		level = slog.LevelDebug
	}
	h.logger.Log(r.Context(), level, "ui action rejected", "op", op, "error", err)
}

// Root is a full page load: the browser's client starts over on landing.
func (h *UIHandlers) Root(w http.ResponseWriter, r *http.Request) {
	b, created, err := h.clients.Acquire(w, r)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "open client", "error", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}
	if !created {
		b.App.Reload()
		b.SetForms(AuthForm{}, AuthForm{})
	}
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.RenderFull(w, h.pageData(r, b)); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// View re-renders the current frame without changing anything.
func (h *UIHandlers) View(w http.ResponseWriter, r *http.Request) {
	b, ok := h.browser(w, r)
	if !ok {
		return
	}
	h.render(w, r, b)
}

// Navigate moves the router to the posted page.
func (h *UIHandlers) Navigate(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) {
		b.SetForms(AuthForm{}, AuthForm{})
		b.App.Navigate(r.Context(), client.ParsePage(r.PostFormValue("page")))
	})
}

// Login submits the sign-in form.
func (h *UIHandlers) Login(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) {
		creds := model.Credentials{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
		}
		err := b.App.SignIn(r.Context(), creds)
		_, signup := b.Forms()
		if err != nil {
			b.SetForms(AuthForm{Email: creds.Email, Errors: model.FieldErrorsOf(err)}, signup)
			h.logRejected(r, "login", err)
			return
		}
		b.SetForms(AuthForm{}, AuthForm{})
	})
}

// Signup submits the sign-up form.
func (h *UIHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) {
		form := model.SignUpForm{
			Credentials: model.Credentials{
				Email:    r.PostFormValue("email"),
				Password: r.PostFormValue("password"),
			},
			ConfirmPassword: r.PostFormValue("confirm_password"),
		}
		err := b.App.SignUp(r.Context(), form)
		login, _ := b.Forms()
		if err != nil {
			b.SetForms(login, AuthForm{Email: form.Email, Errors: model.FieldErrorsOf(err)})
			h.logRejected(r, "signup", err)
			return
		}
		b.SetForms(AuthForm{}, AuthForm{})
	})
}

// Logout signs out and shows the login page.
func (h *UIHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) {
		b.SetForms(AuthForm{}, AuthForm{})
		b.App.SignOut(r.Context())
	})
}

func ticketInput(r *http.Request) model.TicketInput {
	return model.TicketInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Status:      model.TicketStatus(r.PostFormValue("status")),
		Priority:    model.TicketPriority(r.PostFormValue("priority")),
	}
}

// SubmitTicket creates or updates, depending on how the form was opened.
func (h *UIHandlers) SubmitTicket(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) {
		h.logRejected(r, "submit ticket", b.App.Tickets.Submit(r.Context(), ticketInput(r)))
	})
}

// UpdateTicket updates the ticket named in the path.
func (h *UIHandlers) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) {
		h.logRejected(r, "update ticket", b.App.Tickets.Update(r.Context(), r.PathValue("id"), ticketInput(r)))
	})
}

// OpenCreateForm opens a blank ticket form.
func (h *UIHandlers) OpenCreateForm(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) { b.App.Tickets.OpenCreateForm() })
}

// OpenEditForm opens the form for the ticket named in the path.
func (h *UIHandlers) OpenEditForm(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) {
		h.logRejected(r, "edit ticket", b.App.Tickets.OpenEditForm(r.PathValue("id")))
	})
}

// CloseForm discards the ticket form.
func (h *UIHandlers) CloseForm(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) { b.App.Tickets.CloseForm() })
}

// RequestDelete opens the delete confirmation.
func (h *UIHandlers) RequestDelete(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) {
		h.logRejected(r, "request delete", b.App.Tickets.RequestDelete(r.PathValue("id")))
	})
}

// ConfirmDelete issues the pending delete.
func (h *UIHandlers) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) {
		h.logRejected(r, "confirm delete", b.App.Tickets.ConfirmDelete(r.Context()))
	})
}

// CancelDelete closes the confirmation without deleting.
func (h *UIHandlers) CancelDelete(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) { b.App.Tickets.CancelDelete() })
}

// DismissToast clears the notification.
func (h *UIHandlers) DismissToast(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(b *Browser) { b.App.Toaster.Dismiss() })
}
