package errors

import (
	"context"
	"errors"
	"regexp"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField extracts field name from unique violation detail: "Key (field)=(value) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// MapDBError maps database errors to AppError instances.
// It handles common database error patterns including:
// - pgx.ErrNoRows → NotFound
// - Unique constraint violations → Conflict
// - Check and NOT NULL violations → Validation
// - Privilege and row-level security violations → Unauthorized
// - Context timeouts/cancellations → Timeout/Canceled
//
// If the error is not a recognized database error, it returns the original error.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	// Check for context errors first
	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out. Please try again.",
			Cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{
			Code:    ErrCodeCanceled,
			Message: "Request was canceled.",
			Cause:   err,
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{
			Code:    ErrCodeNotFound,
			Message: "Ticket not found",
			Cause:   err,
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return MapSQLState(pgErr.Code, pgErr.ColumnName, pgErr)
	}

	return err
}

// MapSQLState maps a SQLSTATE code to an AppError. The data service's REST
// endpoint reports the same codes as the database, so both adapters use it.
func MapSQLState(code, column string, cause error) error {
	switch code {
	case pgerrcode.UniqueViolation:
		field := column
		var pgErr *pgconn.PgError
		if field == "" && errors.As(cause, &pgErr) {
			if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 {
				field = m[1]
			}
		}
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "This value already exists. Please choose a different one.",
			Field:   field,
			Cause:   cause,
		}
	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation,
		pgerrcode.InvalidTextRepresentation, pgerrcode.StringDataRightTruncationDataException:
		return &AppError{
			Code:    ErrCodeValidation,
			Message: "Invalid data. Please check your input.",
			Field:   column,
			Cause:   cause,
		}
	case pgerrcode.InsufficientPrivilege, pgerrcode.InvalidAuthorizationSpecification:
		return &AppError{
			Code:    ErrCodeUnauthorized,
			Message: "You are not allowed to change this ticket.",
			Cause:   cause,
		}
	default:
		return &AppError{
			Code:    ErrCodeDataService,
			Message: "A database error occurred. Please try again.",
			Cause:   cause,
		}
	}
}
