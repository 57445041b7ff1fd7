// Package tui is the terminal front end: a Bubble Tea program over one
// client.App. Every call into the App that may block runs as a tea.Cmd; the
// App's change signal drives re-rendering.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/target/ticketflow/internal/client"
	"github.com/target/ticketflow/internal/domain/model"
)

// viewChangedMsg is delivered when any App component changed.
type viewChangedMsg struct{}

// appClosedMsg is delivered once the App has been closed.
type appClosedMsg struct{}

type actionKind int

const (
	actionNavigate actionKind = iota
	actionSignIn
	actionSignUp
	actionSignOut
	actionTickets
)

// actionDoneMsg reports the end of a call run as a command.
type actionDoneMsg struct {
	kind actionKind
	err  error
}

// Ticket form fields in focus order.
const (
	fieldTitle = iota
	fieldDescription
	fieldStatus
	fieldPriority
	formFieldCount
)

// Model is the root Bubble Tea model.
type Model struct {
	app     *client.App
	ctx     context.Context
	changes <-chan struct{}

	keys    KeyMap
	styles  styles
	help    help.Model
	spinner spinner.Model

	width  int
	height int

	// page is the page the inputs below were last reset for.
	page client.Page

	email      textinput.Model
	password   textinput.Model
	confirm    textinput.Model
	authFocus  int
	authErrors model.FieldErrors
	authBusy   bool

	title       textinput.Model
	description textarea.Model
	status      model.TicketStatus
	priority    model.TicketPriority
	formFocus   int
	// formKey identifies the form the inputs were loaded from.
	formKey string

	cursor int
}

// NewModel builds the model for a started App. ctx bounds every call the
// model makes.
func NewModel(ctx context.Context, app *client.App) Model {
	_, changes := app.Subscribe()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	st := newStyles(DefaultTheme)
	sp.Style = st.title

	desc := textarea.New()
	desc.Placeholder = "Optional details"
	desc.ShowLineNumbers = false
	desc.SetHeight(4)
	desc.SetWidth(48)
	_ = desc.Cursor.SetMode(cursor.CursorStatic)

	m := Model{
		app:         app,
		ctx:         ctx,
		changes:     changes,
		keys:        DefaultKeyMap,
		styles:      st,
		help:        help.New(),
		spinner:     sp,
		email:       newInput("you@example.com", false),
		password:    newInput("at least 6 characters", true),
		confirm:     newInput("repeat password", true),
		title:       newInput("Short summary", false),
		description: desc,
		status:      model.TicketStatusOpen,
	}
	m.sync()
	return m
}

func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Width = 40
	if secret {
		ti.EchoMode = textinput.EchoPassword
	}
	_ = ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// Init starts listening for App changes and the loading spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForChange(m.changes), m.spinner.Tick)
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return appClosedMsg{}
		}
		return viewChangedMsg{}
	}
}

// Update handles one message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.description.SetWidth(max(20, min(60, msg.Width-24)))
	case viewChangedMsg:
		cmd = waitForChange(m.changes)
	case appClosedMsg:
		return m, tea.Quit
	case actionDoneMsg:
		m.finish(msg)
	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
	case tea.KeyMsg:
		m, cmd = m.handleKey(msg)
	}
	m.sync()
	return m, cmd
}

func (m *Model) finish(msg actionDoneMsg) {
	switch msg.kind {
	case actionSignIn, actionSignUp:
		m.authBusy = false
		m.authErrors = model.FieldErrorsOf(msg.err)
	}
}

// sync aligns local input state with the App after every message.
func (m *Model) sync() {
	v := m.app.View()
	if v.Page != m.page {
		m.enterPage(v.Page)
	}

	form := v.Tickets.Form
	if k := formKey(form); k != m.formKey {
		m.formKey = k
		if form.Open {
			m.loadForm(form.Input)
		}
	}

	if n := len(v.Tickets.Tickets); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m *Model) enterPage(p client.Page) {
	m.page = p
	m.cursor = 0
	m.authErrors = nil
	m.authBusy = false
	m.email.SetValue("")
	m.password.SetValue("")
	m.confirm.SetValue("")
	m.setAuthFocus(0)
}

func formKey(f client.TicketForm) string {
	switch {
	case !f.Open:
		return ""
	case f.Editing():
		return "edit:" + f.EditingID
	default:
		return "new"
	}
}

func (m *Model) loadForm(in model.TicketInput) {
	m.title.SetValue(in.Title)
	m.description.SetValue(in.Description)
	m.status = in.Status
	if !m.status.Valid() {
		m.status = model.TicketStatusOpen
	}
	m.priority = in.Priority
	m.setFormFocus(fieldTitle)
}

func (m Model) formInput() model.TicketInput {
	return model.TicketInput{
		Title:       m.title.Value(),
		Description: m.description.Value(),
		Status:      m.status,
		Priority:    m.priority,
	}
}

func (m *Model) authInputs() []*textinput.Model {
	if m.page == client.PageSignup {
		return []*textinput.Model{&m.email, &m.password, &m.confirm}
	}
	return []*textinput.Model{&m.email, &m.password}
}

func (m *Model) setAuthFocus(i int) {
	inputs := m.authInputs()
	m.authFocus = (i + len(inputs)) % len(inputs)
	m.confirm.Blur()
	for j, in := range inputs {
		if j == m.authFocus {
			_ = in.Focus()
		} else {
			in.Blur()
		}
	}
}

func (m *Model) setFormFocus(i int) {
	m.formFocus = (i + formFieldCount) % formFieldCount
	m.title.Blur()
	m.description.Blur()
	switch m.formFocus {
	case fieldTitle:
		_ = m.title.Focus()
	case fieldDescription:
		_ = m.description.Focus()
	}
}

// do runs fn as a command and reports its result.
func (m Model) do(kind actionKind, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionDoneMsg{kind: kind, err: fn(ctx)}
	}
}

func (m Model) navigate(p client.Page) tea.Cmd {
	app := m.app
	return m.do(actionNavigate, func(ctx context.Context) error {
		app.Navigate(ctx, p)
		return nil
	})
}

func (m Model) signOut() tea.Cmd {
	app := m.app
	return m.do(actionSignOut, func(ctx context.Context) error {
		app.SignOut(ctx)
		return nil
	})
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ForceQuit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.DismissToast):
		m.app.Toaster.Dismiss()
		return m, nil
	}

	v := m.app.View()
	if v.Page.Protected() && v.Gate != client.GateRender {
		return m, nil
	}
	switch v.Page {
	case client.PageLogin, client.PageSignup:
		return m.handleAuthKey(msg)
	case client.PageDashboard:
		return m.handleDashboardKey(msg)
	case client.PageTickets:
		switch {
		case v.Tickets.PendingDelete != nil:
			return m.handleDeleteKey(msg)
		case v.Tickets.Form.Open:
			return m.handleFormKey(msg, v.Tickets)
		default:
			return m.handleListKey(msg, v.Tickets)
		}
	default:
		return m.handleLandingKey(msg)
	}
}

func (m Model) handleLandingKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Login):
		return m, m.navigate(client.PageLogin)
	case key.Matches(msg, m.keys.Signup):
		return m, m.navigate(client.PageSignup)
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleAuthKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, m.navigate(client.PageLanding)
	case key.Matches(msg, m.keys.SwitchAuth):
		if m.page == client.PageLogin {
			return m, m.navigate(client.PageSignup)
		}
		return m, m.navigate(client.PageLogin)
	case key.Matches(msg, m.keys.NextField):
		m.setAuthFocus(m.authFocus + 1)
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		m.setAuthFocus(m.authFocus - 1)
		return m, nil
	case key.Matches(msg, m.keys.Submit):
		return m.submitAuth()
	}

	in := m.authInputs()[m.authFocus]
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	return m, cmd
}

func (m Model) submitAuth() (Model, tea.Cmd) {
	if m.authBusy {
		return m, nil
	}
	m.authBusy = true
	app := m.app
	creds := model.Credentials{Email: m.email.Value(), Password: m.password.Value()}
	if m.page == client.PageSignup {
		form := model.SignUpForm{Credentials: creds, ConfirmPassword: m.confirm.Value()}
		return m, m.do(actionSignUp, func(ctx context.Context) error {
			return app.SignUp(ctx, form)
		})
	}
	return m, m.do(actionSignIn, func(ctx context.Context) error {
		return app.SignIn(ctx, creds)
	})
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	app := m.app
	switch {
	case key.Matches(msg, m.keys.Tickets):
		return m, m.navigate(client.PageTickets)
	case key.Matches(msg, m.keys.Refresh):
		return m, m.do(actionTickets, app.Dashboard.LoadStats)
	case key.Matches(msg, m.keys.Logout):
		return m, m.signOut()
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg, snap client.TicketsSnapshot) (Model, tea.Cmd) {
	app := m.app
	selected := func() (string, bool) {
		if m.cursor < 0 || m.cursor >= len(snap.Tickets) {
			return "", false
		}
		return snap.Tickets[m.cursor].ID, true
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(snap.Tickets)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.New):
		app.Tickets.OpenCreateForm()
	case key.Matches(msg, m.keys.Edit):
		if id, ok := selected(); ok {
			_ = app.Tickets.OpenEditForm(id)
		}
	case key.Matches(msg, m.keys.Delete):
		if id, ok := selected(); ok {
			_ = app.Tickets.RequestDelete(id)
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.do(actionTickets, app.Tickets.Load)
	case key.Matches(msg, m.keys.Dashboard):
		return m, m.navigate(client.PageDashboard)
	case key.Matches(msg, m.keys.Logout):
		return m, m.signOut()
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg, snap client.TicketsSnapshot) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.app.Tickets.CloseForm()
		return m, nil
	case key.Matches(msg, m.keys.Save):
		return m.submitForm(snap)
	case key.Matches(msg, m.keys.NextField):
		m.setFormFocus(m.formFocus + 1)
		return m, nil
	case key.Matches(msg, m.keys.PrevField):
		m.setFormFocus(m.formFocus - 1)
		return m, nil
	}

	var cmd tea.Cmd
	switch m.formFocus {
	case fieldTitle:
		if key.Matches(msg, m.keys.Submit) {
			m.setFormFocus(fieldDescription)
			return m, nil
		}
		m.title, cmd = m.title.Update(msg)
	case fieldDescription:
		m.description, cmd = m.description.Update(msg)
	case fieldStatus:
		switch {
		case key.Matches(msg, m.keys.Cycle):
			m.status = cycle(model.TicketStatuses(), m.status, 1)
		case key.Matches(msg, m.keys.CycleBack):
			m.status = cycle(model.TicketStatuses(), m.status, -1)
		case key.Matches(msg, m.keys.Submit):
			return m.submitForm(snap)
		}
	case fieldPriority:
		switch {
		case key.Matches(msg, m.keys.Cycle):
			m.priority = cycle(priorityChoices(), m.priority, 1)
		case key.Matches(msg, m.keys.CycleBack):
			m.priority = cycle(priorityChoices(), m.priority, -1)
		case key.Matches(msg, m.keys.Submit):
			return m.submitForm(snap)
		}
	}
	return m, cmd
}

func (m Model) submitForm(snap client.TicketsSnapshot) (Model, tea.Cmd) {
	if snap.Submitting {
		return m, nil
	}
	app := m.app
	in := m.formInput()
	return m, m.do(actionTickets, func(ctx context.Context) error {
		return app.Tickets.Submit(ctx, in)
	})
}

func (m Model) handleDeleteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		return m, m.do(actionTickets, m.app.Tickets.ConfirmDelete)
	case key.Matches(msg, m.keys.Cancel):
		m.app.Tickets.CancelDelete()
	}
	return m, nil
}

// priorityChoices is every settable priority, unset first.
func priorityChoices() []model.TicketPriority {
	return append([]model.TicketPriority{model.TicketPriorityNone}, model.TicketPriorities()...)
}

// cycle steps through all from cur, wrapping at both ends.
func cycle[T comparable](all []T, cur T, step int) T {
	for i, v := range all {
		if v == cur {
			n := len(all)
			return all[((i+step)%n+n)%n]
		}
	}
	return all[0]
}
