package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/target/ticketflow/internal/client"
	"github.com/target/ticketflow/internal/domain/model"
)

const timeLayout = "Jan 2, 2006 3:04 PM"

// View renders the current frame.
func (m Model) View() string {
	v := m.app.View()

	var b strings.Builder
	b.WriteString(m.renderHeader(v))
	b.WriteString("\n\n")
	b.WriteString(m.renderBody(v))
	b.WriteString("\n")
	if v.Toast != nil {
		b.WriteString("\n")
		b.WriteString(m.styles.toast(v.Toast.Kind).Render(v.Toast.Text))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.bindings(v)))
	return b.String()
}

func (m Model) renderHeader(v client.View) string {
	left := m.styles.title.Render("TicketFlow") + m.styles.faint.Render("  ·  "+v.Page.Title())
	if !v.Authenticated() {
		return left
	}
	right := m.styles.text.Render(v.Session.Email)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderBody(v client.View) string {
	if v.Page.Protected() && v.Gate == client.GateLoading {
		return m.spinner.View() + " Loading..."
	}
	switch v.Page {
	case client.PageLogin:
		return m.renderAuth("Sign in to your account", false)
	case client.PageSignup:
		return m.renderAuth("Create your account", true)
	case client.PageDashboard:
		return m.renderDashboard(v.Dashboard)
	case client.PageTickets:
		if v.Tickets.PendingDelete != nil {
			return m.renderDeleteModal(*v.Tickets.PendingDelete)
		}
		if v.Tickets.Form.Open {
			return m.renderForm(v.Tickets)
		}
		return m.renderList(v.Tickets)
	default:
		return m.renderLanding()
	}
}

func (m Model) renderLanding() string {
	return strings.Join([]string{
		m.styles.title.Render("Welcome to TicketFlow"),
		m.styles.text.Render("Track and manage your support tickets."),
		"",
		m.styles.faint.Render("Press l to sign in or s to create an account."),
	}, "\n")
}

func (m Model) renderAuth(heading string, signup bool) string {
	lines := []string{m.styles.title.Render(heading), ""}
	lines = append(lines, m.renderField("Email", m.email.View(), m.authFocus == 0, m.authErrors["email"]))
	lines = append(lines, m.renderField("Password", m.password.View(), m.authFocus == 1, m.authErrors["password"]))
	if signup {
		lines = append(lines,
			m.renderField("Confirm password", m.confirm.View(), m.authFocus == 2, m.authErrors["confirm_password"]))
	}
	if m.authBusy {
		lines = append(lines, "", m.spinner.View()+" Please wait...")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderField(label, input string, focused bool, errText string) string {
	ls := m.styles.label
	if focused {
		ls = m.styles.focused
	}
	out := ls.Render(label) + input
	if errText != "" {
		out += "\n" + strings.Repeat(" ", 18) + m.styles.errText.Render(errText)
	}
	return out
}

func (m Model) renderDashboard(d client.DashboardSnapshot) string {
	if d.Loading && !d.Loaded {
		return m.spinner.View() + " Loading statistics..."
	}
	stat := func(label string, n int) string {
		return m.styles.stat.Render(fmt.Sprintf("%d\n%s", n, m.styles.faint.Render(label)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		stat("Total", d.Stats.Total),
		stat("Open", d.Stats.Open),
		stat("In Progress", d.Stats.InProgress),
		stat("Closed", d.Stats.Closed),
	)
}

func (m Model) renderList(snap client.TicketsSnapshot) string {
	if snap.Loading && !snap.Loaded {
		return m.spinner.View() + " Loading tickets..."
	}
	if len(snap.Tickets) == 0 {
		return m.styles.faint.Render("No tickets yet. Create your first one.")
	}

	rows := make([]string, 0, len(snap.Tickets)+1)
	for i, t := range snap.Tickets {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		row := fmt.Sprintf("%s%-40s %s  %s  %s",
			marker,
			truncate(t.Title, 40),
			m.styles.status(t.Status).Render(fmt.Sprintf("%-11s", t.Status.Label())),
			m.styles.priority(t.PriorityValue()).Render(fmt.Sprintf("%-6s", t.PriorityValue().Label())),
			m.styles.faint.Render(t.UpdatedAt.Local().Format(timeLayout)),
		)
		if i == m.cursor {
			row = m.styles.selected.Render(row)
		}
		rows = append(rows, row)
	}
	if m.cursor < len(snap.Tickets) {
		if desc := snap.Tickets[m.cursor].Description; desc != "" {
			rows = append(rows, "", m.styles.box.Render(desc))
		}
	}
	if snap.Submitting {
		rows = append(rows, "", m.spinner.View()+" Saving...")
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderForm(snap client.TicketsSnapshot) string {
	heading := "New Ticket"
	if snap.Form.Editing() {
		heading = "Edit Ticket"
	}
	errs := snap.Form.Errors
	lines := []string{
		m.styles.title.Render(heading),
		"",
		m.renderField("Title", m.title.View(), m.formFocus == fieldTitle, errs["title"]),
		m.renderField("Description", m.description.View(), m.formFocus == fieldDescription, errs["description"]),
		m.renderField("Status", m.picker(m.status.Label(), m.formFocus == fieldStatus), m.formFocus == fieldStatus, errs["status"]),
		m.renderField("Priority", m.picker(m.priority.Label(), m.formFocus == fieldPriority), m.formFocus == fieldPriority, errs["priority"]),
	}
	if snap.Submitting {
		lines = append(lines, "", m.spinner.View()+" Saving...")
	}
	return m.styles.box.Render(strings.Join(lines, "\n"))
}

func (m Model) picker(value string, focused bool) string {
	if focused {
		return m.styles.text.Render("‹ " + value + " ›")
	}
	return m.styles.faint.Render("  " + value)
}

func (m Model) renderDeleteModal(t model.Ticket) string {
	body := m.styles.text.Render(client.DeleteConfirmPrompt)
	if t.Title != "" {
		body += "\n\n" + m.styles.title.Render(t.Title)
	}
	body += "\n\n" + m.styles.faint.Render("y delete · n cancel")
	box := m.styles.modal.Render(body)
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, max(m.height-6, lipgloss.Height(box)), lipgloss.Center, lipgloss.Center, box)
}

// bindings is the help line for the current state.
func (m Model) bindings(v client.View) []key.Binding {
	k := m.keys
	var out []key.Binding
	switch v.Page {
	case client.PageLogin, client.PageSignup:
		out = []key.Binding{k.NextField, k.Submit, k.SwitchAuth, k.Back}
	case client.PageDashboard:
		out = []key.Binding{k.Tickets, k.Refresh, k.Logout, k.Quit}
	case client.PageTickets:
		switch {
		case v.Tickets.PendingDelete != nil:
			out = []key.Binding{k.Confirm, k.Cancel}
		case v.Tickets.Form.Open:
			out = []key.Binding{k.NextField, k.Cycle, k.Save, k.Back}
		default:
			out = []key.Binding{k.Up, k.Down, k.New, k.Edit, k.Delete, k.Refresh, k.Dashboard, k.Logout, k.Quit}
		}
	default:
		out = []key.Binding{k.Login, k.Signup, k.Quit}
	}
	if v.Toast != nil {
		out = append(out, k.DismissToast)
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
