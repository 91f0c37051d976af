package user

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	maxNameLen     = 100
	minPasswordLen = 6
	maxPasswordLen = 25
)

// NormalizeEmail is the lookup and uniqueness key for an account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < minPasswordLen || n > maxPasswordLen {
		return ErrPasswordLength
	}
	return nil
}

func checkName(name string) error {
	if utf8.RuneCountInString(name) > maxNameLen {
		return ErrNameTooLong
	}
	return nil
}

func checkEmail(v *validator.Validate, email string) error {
	if err := v.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}
