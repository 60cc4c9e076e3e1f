// Package apperr holds the error taxonomy shared by the client and the backend.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrValidation is returned for client-side validation failures; no
	// request is sent when it occurs.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized means the shared secret was rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTransport covers network failures and undecodable responses.
	ErrTransport = errors.New("transport error")
	// ErrCanceled is returned when the user dismisses a prompt.
	ErrCanceled = errors.New("canceled")
)

// RemoteError is a `success: false` response; the message is shown verbatim.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error (status %d)", e.Status)
	}
	return e.Message
}

// Validation wraps msg as an ErrValidation.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
