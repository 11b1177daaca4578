package grpcserver

import (
	"fmt"
	"net/mail"
	"unicode"

	"github.com/and161185/tunehub/internal/errs"
)

const (
	usernameMin = 4
	usernameMax = 30
	passwordMin = 6
	passwordMax = 30
)

func validateUsername(s string) error {
	if n := len([]rune(s)); n < usernameMin || n > usernameMax {
		return fmt.Errorf("%w: username must be %d-%d characters", errs.ErrValidation, usernameMin, usernameMax)
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("%w: username must be alphanumeric", errs.ErrValidation)
		}
	}
	return nil
}

func validatePassword(s string) error {
	if n := len([]rune(s)); n < passwordMin || n > passwordMax {
		return fmt.Errorf("%w: password must be %d-%d characters", errs.ErrValidation, passwordMin, passwordMax)
	}
	return nil
}

// validateEmail accepts a bare address only ("a@b.c", not "A <a@b.c>").
func validateEmail(s string) error {
	a, err := mail.ParseAddress(s)
	if err != nil || a.Address != s {
		return fmt.Errorf("%w: invalid email", errs.ErrValidation)
	}
	return nil
}

func validateLogin(username, password string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	return validatePassword(password)
}

func validateSignup(email, username, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if err := validateUsername(username); err != nil {
		return err
	}
	return validatePassword(password)
}
