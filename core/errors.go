package core

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// GenericErrorMessage is shown when a failure carries no message of its own.
const GenericErrorMessage = "Something went wrong. Please try again."

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// RemoteError is a non-2xx answer from the timetable service.
// Message is the server's `error` field verbatim, when it sent one.
type RemoteError struct {
	Status  int
	Message string
}

func NewRemoteError(status int, msg string) error {
	return &RemoteError{Status: status, Message: msg}
}

func (err RemoteError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("remote: %d %s", err.Status, http.StatusText(err.Status))
	}
	return err.Message
}

// UserMessage returns the text to show the user for `err`:
// the server's literal message for remote errors, the cause for validation errors,
// an error's own UserMessage when it has one, else GenericErrorMessage.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch e := errors.Cause(err).(type) {
	case interface{ UserMessage() string }:
		if msg := e.UserMessage(); msg != "" {
			return msg
		}
	case *RemoteError:
		if e.Message != "" {
			return e.Message
		}
	case *ValidationError:
		if msg := e.Error(); msg != "" {
			return msg
		}
	}
	return GenericErrorMessage
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
