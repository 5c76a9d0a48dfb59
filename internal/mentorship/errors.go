package mentorship

import (
	"errors"
	"fmt"

	"github.com/PaulBabatuyi/mentorship-hub/internal/data"
)

// Error kinds returned by Service. Callers classify with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalid         = errors.New("invalid input")
	ErrUnavailable     = errors.New("store unavailable")
)

// Error pairs an error kind with a message fit for API clients.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &Error{kind: kind, msg: msg}
}

// storeErr maps a store failure onto the error kinds. what names the
// document for not-found messages.
func storeErr(what string, err error) error {
	switch {
	case errors.Is(err, data.ErrNotFound):
		return newError(ErrNotFound, what+" not found")
	case errors.Is(err, data.ErrNotPending):
		return newError(ErrConflict, "Request has already been resolved")
	}
	return fmt.Errorf("%s: %w: %v", what, ErrUnavailable, err)
}
