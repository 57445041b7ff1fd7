package model

import (
	stderrors "errors"
	"sort"
	"strings"

	"github.com/target/ticketflow/internal/errors"
)

// FieldErrors maps form field names to user-facing messages.
type FieldErrors map[string]string

// Error implements error with a stable field order.
func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+fe[f])
	}
	return strings.Join(parts, "; ")
}

// asError returns nil when there are no field errors, otherwise a validation
// AppError that carries the full map as its cause.
func (fe FieldErrors) asError(order ...string) error {
	if len(fe) == 0 {
		return nil
	}
	for _, f := range order {
		if msg, ok := fe[f]; ok {
			return &errors.AppError{Code: errors.ErrCodeValidation, Message: msg, Field: f, Cause: fe}
		}
	}
	return &errors.AppError{Code: errors.ErrCodeValidation, Message: fe.Error(), Cause: fe}
}

// FieldErrorsOf extracts per-field messages from a validation error.
// It returns nil for any other error.
func FieldErrorsOf(err error) FieldErrors {
	var fe FieldErrors
	if stderrors.As(err, &fe) {
		return fe
	}
	if errors.IsValidation(err) {
		if field := errors.GetField(err); field != "" {
			return FieldErrors{field: errors.UserMessage(err, "")}
		}
	}
	return nil
}
