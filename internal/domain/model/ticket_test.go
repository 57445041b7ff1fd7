package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/ticketflow/internal/errors"
)

func TestTicketInput_Validate(t *testing.T) {
	tests := []struct {
		name       string
		in         TicketInput
		wantFields FieldErrors
	}{
		{
			name: "valid minimal",
			in:   TicketInput{Title: "Printer down", Status: TicketStatusOpen},
		},
		{
			name: "title of exactly 200 characters",
			in:   TicketInput{Title: strings.Repeat("a", 200), Status: TicketStatusClosed},
		},
		{
			name: "multibyte title counted in characters",
			in:   TicketInput{Title: strings.Repeat("é", 200), Status: TicketStatusOpen},
		},
		{
			name:       "empty title",
			in:         TicketInput{Title: "", Status: TicketStatusOpen},
			wantFields: FieldErrors{"title": "Title is required"},
		},
		{
			name:       "whitespace title",
			in:         TicketInput{Title: "   \t", Status: TicketStatusOpen},
			wantFields: FieldErrors{"title": "Title is required"},
		},
		{
			name:       "title of 201 characters",
			in:         TicketInput{Title: strings.Repeat("a", 201), Status: TicketStatusOpen},
			wantFields: FieldErrors{"title": "Title must be less than 200 characters"},
		},
		{
			name:       "missing status",
			in:         TicketInput{Title: "x"},
			wantFields: FieldErrors{"status": "Status is required"},
		},
		{
			name:       "unknown status",
			in:         TicketInput{Title: "x", Status: "done"},
			wantFields: FieldErrors{"status": "Status must be open, in_progress, or closed"},
		},
		{
			name:       "unknown priority",
			in:         TicketInput{Title: "x", Status: TicketStatusOpen, Priority: "urgent"},
			wantFields: FieldErrors{"priority": "Priority must be low, medium, or high"},
		},
		{
			name: "every field wrong",
			in:   TicketInput{Status: "nope", Priority: "urgent"},
			wantFields: FieldErrors{
				"title":    "Title is required",
				"status":   "Status must be open, in_progress, or closed",
				"priority": "Priority must be low, medium, or high",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Equal(t, tt.wantFields, FieldErrorsOf(err))
		})
	}
}

func TestTicketInput_ValidateReportsTitleFirst(t *testing.T) {
	err := TicketInput{Status: "nope"}.Validate()
	assert.Equal(t, "title", errors.GetField(err))
	assert.Equal(t, "Title is required", errors.UserMessage(err, ""))
}

func TestTicketInput_Normalize(t *testing.T) {
	in := TicketInput{Title: "  Printer down ", Description: "\n paper jam \n", Status: " OPEN ", Priority: "High"}
	in.Normalize()

	assert.Equal(t, TicketInput{
		Title:       "Printer down",
		Description: "paper jam",
		Status:      TicketStatusOpen,
		Priority:    TicketPriorityHigh,
	}, in)
}

func TestTicketInput_RowAndPatch(t *testing.T) {
	in := TicketInput{Title: "t", Status: TicketStatusInProgress}

	row := in.Row("user-1")
	assert.Equal(t, "user-1", row.UserID)
	assert.Nil(t, row.Priority)

	in.Priority = TicketPriorityLow
	patch := in.Patch()
	require.NotNil(t, patch.Priority)
	assert.Equal(t, TicketPriorityLow, *patch.Priority)
}

func TestTicket_Input(t *testing.T) {
	high := TicketPriorityHigh
	tk := Ticket{ID: "1", Title: "a", Description: "b", Status: TicketStatusClosed, Priority: &high}
	assert.Equal(t, TicketInput{Title: "a", Description: "b", Status: TicketStatusClosed, Priority: high}, tk.Input())
	assert.Equal(t, TicketPriorityNone, Ticket{}.PriorityValue())
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "In Progress", TicketStatusInProgress.Label())
	assert.Equal(t, "None", TicketPriorityNone.Label())
	assert.Equal(t, "Medium", TicketPriorityMedium.Label())
}

func TestCountTickets(t *testing.T) {
	assert.Equal(t, TicketStats{}, CountTickets(nil))

	stats := CountTickets([]Ticket{
		{Status: TicketStatusOpen},
		{Status: TicketStatusOpen},
		{Status: TicketStatusInProgress},
		{Status: TicketStatusClosed},
		{Status: "archived"},
	})
	assert.Equal(t, TicketStats{Total: 5, Open: 2, InProgress: 1, Closed: 1}, stats)
}
