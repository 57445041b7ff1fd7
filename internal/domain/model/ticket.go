package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTicketTitleLen is the longest accepted title, in characters.
const MaxTicketTitleLen = 200

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in display order.
func TicketStatuses() []TicketStatus {
	return []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed}
}

// Valid reports whether the status is supported.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusClosed:
		return true
	default:
		return false
	}
}

// Label returns the human readable status.
func (s TicketStatus) Label() string {
	switch s {
	case TicketStatusOpen:
		return "Open"
	case TicketStatusInProgress:
		return "In Progress"
	case TicketStatusClosed:
		return "Closed"
	default:
		return string(s)
	}
}

// TicketPriority is an optional urgency marker.
type TicketPriority string

const (
	TicketPriorityNone   TicketPriority = ""
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// TicketPriorities lists every settable priority in display order.
func TicketPriorities() []TicketPriority {
	return []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh}
}

// Valid reports whether the priority is supported. The empty priority is valid.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityNone, TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	default:
		return false
	}
}

// Label returns the human readable priority, or "None".
func (p TicketPriority) Label() string {
	switch p {
	case TicketPriorityLow:
		return "Low"
	case TicketPriorityMedium:
		return "Medium"
	case TicketPriorityHigh:
		return "High"
	case TicketPriorityNone:
		return "None"
	default:
		return string(p)
	}
}

// Ticket is a support request owned by one user.
type Ticket struct {
	ID          string          `json:"id"                 db:"id"`
	UserID      string          `json:"user_id"            db:"user_id"`
	Title       string          `json:"title"              db:"title"`
	Description string          `json:"description"        db:"description"`
	Status      TicketStatus    `json:"status"             db:"status"`
	Priority    *TicketPriority `json:"priority,omitempty" db:"priority"`
	CreatedAt   time.Time       `json:"created_at"         db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"         db:"updated_at"`
}

// PriorityValue returns the priority or TicketPriorityNone.
func (t Ticket) PriorityValue() TicketPriority {
	if t.Priority == nil {
		return TicketPriorityNone
	}
	return *t.Priority
}

// Input returns the editable fields of t, used to prefill the edit form.
func (t Ticket) Input() TicketInput {
	return TicketInput{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.PriorityValue(),
	}
}

// TicketInput is the editable part of a ticket as submitted by a form.
// Create and update both send the full set of fields.
type TicketInput struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      TicketStatus   `json:"status"`
	Priority    TicketPriority `json:"priority"`
}

// NewTicketInput returns the blank create-form state.
func NewTicketInput() TicketInput {
	return TicketInput{Status: TicketStatusOpen}
}

// Normalize trims free text and lowercases enumerations.
func (in *TicketInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Status = TicketStatus(strings.ToLower(strings.TrimSpace(string(in.Status))))
	in.Priority = TicketPriority(strings.ToLower(strings.TrimSpace(string(in.Priority))))
}

// Validate runs the local pre-flight checks. It never touches the network.
func (in TicketInput) Validate() error {
	fe := FieldErrors{}

	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		fe["title"] = "Title is required"
	case utf8.RuneCountInString(title) > MaxTicketTitleLen:
		fe["title"] = "Title must be less than 200 characters"
	}

	switch {
	case strings.TrimSpace(string(in.Status)) == "":
		fe["status"] = "Status is required"
	case !in.Status.Valid():
		fe["status"] = "Status must be open, in_progress, or closed"
	}

	if !in.Priority.Valid() {
		fe["priority"] = "Priority must be low, medium, or high"
	}

	return fe.asError("title", "status", "priority")
}

// TicketRow is the insert payload. UserID ties the row to its owner.
type TicketRow struct {
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      TicketStatus    `json:"status"`
	Priority    *TicketPriority `json:"priority,omitempty"`
}

// Row builds the insert payload for the given owner.
func (in TicketInput) Row(userID string) TicketRow {
	return TicketRow{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    priorityPtr(in.Priority),
	}
}

// TicketPatch is the update payload. A nil Priority clears the column.
type TicketPatch struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      TicketStatus    `json:"status"`
	Priority    *TicketPriority `json:"priority"`
}

// Patch builds the update payload.
func (in TicketInput) Patch() TicketPatch {
	return TicketPatch{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    priorityPtr(in.Priority),
	}
}

func priorityPtr(p TicketPriority) *TicketPriority {
	if p == TicketPriorityNone {
		return nil
	}
	return &p
}

// TicketOrder describes the sort applied to a select.
type TicketOrder struct {
	Column     string
	Descending bool
}

// TicketQuery is a row-level select against the tickets table.
// Columns empty means all columns.
type TicketQuery struct {
	Columns []string
	Status  *TicketStatus
	Order   *TicketOrder
}

// NewestFirst is the ordering used by the ticket list.
func NewestFirst() *TicketOrder {
	return &TicketOrder{Column: "created_at", Descending: true}
}
