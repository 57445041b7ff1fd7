package errors

import (
	"context"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/target/ticketflow/internal/errors"
)

type customErr struct{}

func (customErr) Error() string { return "custom" }

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string   { return "net" }
func (e timeoutErr) Timeout() bool   { return e.timeout }
func (e timeoutErr) Temporary() bool { return false }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "app code", err: fmt.Errorf("sign in: %w", apperrors.Auth("bad", nil)), want: "auth"},
		{name: "deadline", err: fmt.Errorf("select: %w", context.DeadlineExceeded), want: ClassTimeout},
		{name: "canceled", err: context.Canceled, want: ClassCanceled},
		{name: "net timeout", err: fmt.Errorf("dial: %w", timeoutErr{timeout: true}), want: ClassTimeout},
		{name: "net failure", err: timeoutErr{}, want: ClassNetwork},
		{name: "other", err: fmt.Errorf("wrap: %w", customErr{}), want: "errors_customerr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
