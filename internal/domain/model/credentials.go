package model

import (
	"regexp"
	"strings"
)

// MinPasswordLen is the shortest password the sign-in and sign-up forms accept.
const MinPasswordLen = 6

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// Credentials is the sign-in form.
type Credentials struct {
	Email    string
	Password string
}

// Normalize trims the email. Passwords are taken as typed.
func (c *Credentials) Normalize() {
	c.Email = strings.TrimSpace(c.Email)
}

// Validate checks the sign-in form locally.
func (c Credentials) Validate() error {
	fe := FieldErrors{}
	validateCredentials(fe, c)
	return fe.asError("email", "password")
}

// SignUpForm is the sign-up form with a confirmation field.
type SignUpForm struct {
	Credentials
	ConfirmPassword string
}

// Validate checks the sign-up form locally.
func (f SignUpForm) Validate() error {
	fe := FieldErrors{}
	validateCredentials(fe, f.Credentials)
	switch {
	case f.ConfirmPassword == "":
		fe["confirm_password"] = "Please confirm your password"
	case f.ConfirmPassword != f.Password:
		fe["confirm_password"] = "Passwords do not match"
	}
	return fe.asError("email", "password", "confirm_password")
}

func validateCredentials(fe FieldErrors, c Credentials) {
	email := strings.TrimSpace(c.Email)
	switch {
	case email == "":
		fe["email"] = "Email is required"
	case !emailPattern.MatchString(email):
		fe["email"] = "Email is invalid"
	}

	switch {
	case c.Password == "":
		fe["password"] = "Password is required"
	case len(c.Password) < MinPasswordLen:
		fe["password"] = "Password must be at least 6 characters"
	}
}
