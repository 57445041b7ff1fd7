package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCredentials_Validate(t *testing.T) {
	tests := []struct {
		name string
		in   Credentials
		want FieldErrors
	}{
		{name: "valid", in: Credentials{Email: "user@test.com", Password: "secret1"}},
		{name: "missing email", in: Credentials{Password: "secret1"}, want: FieldErrors{"email": "Email is required"}},
		{name: "invalid email", in: Credentials{Email: "user@test", Password: "secret1"}, want: FieldErrors{"email": "Email is invalid"}},
		{name: "missing password", in: Credentials{Email: "a@b.co"}, want: FieldErrors{"password": "Password is required"}},
		{
			name: "short password",
			in:   Credentials{Email: "a@b.co", Password: "12345"},
			want: FieldErrors{"password": "Password must be at least 6 characters"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, FieldErrorsOf(err))
		})
	}
}

func TestSignUpForm_Validate(t *testing.T) {
	ok := Credentials{Email: "user@test.com", Password: "secret1"}

	assert.NoError(t, SignUpForm{Credentials: ok, ConfirmPassword: "secret1"}.Validate())
	assert.Equal(t,
		FieldErrors{"confirm_password": "Please confirm your password"},
		FieldErrorsOf(SignUpForm{Credentials: ok}.Validate()))
	assert.Equal(t,
		FieldErrors{"confirm_password": "Passwords do not match"},
		FieldErrorsOf(SignUpForm{Credentials: ok, ConfirmPassword: "secret2"}.Validate()))
}

func TestCredentials_Normalize(t *testing.T) {
	c := Credentials{Email: "  user@test.com ", Password: " pass "}
	c.Normalize()
	assert.Equal(t, "user@test.com", c.Email)
	assert.Equal(t, " pass ", c.Password)
}

func TestFieldErrorsOf_NonValidation(t *testing.T) {
	assert.Nil(t, FieldErrorsOf(nil))
	assert.Nil(t, FieldErrorsOf(assert.AnError))
}
