package model

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. The HTTP layer maps these 1:1 to response codes;
// nothing below the handlers knows about status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrExpired      = errors.New("expired")
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError marks malformed caller input, e.g. an end date before the
// start date.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
