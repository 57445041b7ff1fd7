// Package errors maps errors onto the small, bounded label set used by metrics.
package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strings"

	apperrors "github.com/target/ticketflow/internal/errors"
)

// Classes that do not come from an application error code.
const (
	ClassTimeout  = "timeout"
	ClassCanceled = "canceled"
	ClassNetwork  = "network"
	ClassUnknown  = "unknown"
)

// Classify returns the metrics class of err. Application errors use their
// code; timeouts, cancellations and transport failures get fixed classes;
// anything else falls back to the innermost concrete type name.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case goerrors.Is(err, context.Canceled):
		return ClassCanceled
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}
	return typeName(err)
}

func typeName(err error) string {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.String() == "" {
		return ClassUnknown
	}
	return strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
}
