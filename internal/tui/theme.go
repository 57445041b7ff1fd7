package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/target/ticketflow/internal/client"
	"github.com/target/ticketflow/internal/domain/model"
)

// Theme is the colour palette. Colours are ANSI 256 codes so they render on
// most terminals.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color
	Accent     lipgloss.Color
	Border     lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	StatusOpen       lipgloss.Color
	StatusInProgress lipgloss.Color
	StatusClosed     lipgloss.Color

	PriorityLow    lipgloss.Color
	PriorityMedium lipgloss.Color
	PriorityHigh   lipgloss.Color

	ToastSuccess lipgloss.Color
	ToastError   lipgloss.Color
}

// DefaultTheme matches the web front end's palette.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("243"),
	Accent:     lipgloss.Color("69"),
	Border:     lipgloss.Color("240"),

	SelectedBackground: lipgloss.Color("237"),
	SelectedForeground: lipgloss.Color("231"),

	StatusOpen:       lipgloss.Color("39"),
	StatusInProgress: lipgloss.Color("214"),
	StatusClosed:     lipgloss.Color("245"),

	PriorityLow:    lipgloss.Color("71"),
	PriorityMedium: lipgloss.Color("178"),
	PriorityHigh:   lipgloss.Color("203"),

	ToastSuccess: lipgloss.Color("35"),
	ToastError:   lipgloss.Color("160"),
}

// styles are derived from a Theme once per model.
type styles struct {
	title    lipgloss.Style
	faint    lipgloss.Style
	text     lipgloss.Style
	label    lipgloss.Style
	focused  lipgloss.Style
	errText  lipgloss.Style
	selected lipgloss.Style
	box      lipgloss.Style
	modal    lipgloss.Style
	stat     lipgloss.Style

	theme Theme
}

func newStyles(t Theme) styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(t.Accent),
		faint:    lipgloss.NewStyle().Foreground(t.FaintText),
		text:     lipgloss.NewStyle().Foreground(t.NormalText),
		label:    lipgloss.NewStyle().Foreground(t.FaintText).Width(18),
		focused:  lipgloss.NewStyle().Foreground(t.Accent).Width(18),
		errText:  lipgloss.NewStyle().Foreground(t.ToastError),
		selected: lipgloss.NewStyle().Background(t.SelectedBackground).Foreground(t.SelectedForeground),
		box:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).Padding(0, 1),
		modal: lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(t.ToastError).
			Padding(1, 3),
		stat: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(t.Border).
			Width(14).Align(lipgloss.Center),
		theme: t,
	}
}

func (s styles) status(st model.TicketStatus) lipgloss.Style {
	c := s.theme.NormalText
	switch st {
	case model.TicketStatusOpen:
		c = s.theme.StatusOpen
	case model.TicketStatusInProgress:
		c = s.theme.StatusInProgress
	case model.TicketStatusClosed:
		c = s.theme.StatusClosed
	}
	return lipgloss.NewStyle().Foreground(c)
}

func (s styles) priority(p model.TicketPriority) lipgloss.Style {
	c := s.theme.FaintText
	switch p {
	case model.TicketPriorityLow:
		c = s.theme.PriorityLow
	case model.TicketPriorityMedium:
		c = s.theme.PriorityMedium
	case model.TicketPriorityHigh:
		c = s.theme.PriorityHigh
	}
	return lipgloss.NewStyle().Foreground(c)
}

func (s styles) toast(kind client.ToastKind) lipgloss.Style {
	c := s.theme.ToastSuccess
	if kind == client.ToastError {
		c = s.theme.ToastError
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(c).Padding(0, 1)
}
