// Package apperr defines the error taxonomy shared by the console workflow.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the bearer token is missing, expired or rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrNotConfirmed is returned when the operator declined a destructive action.
	ErrNotConfirmed = errors.New("action not confirmed")
	// ErrMalformedResponse is returned when a backend payload fails schema validation.
	ErrMalformedResponse = errors.New("malformed response")
)

// ValidationError is a local, pre-submission failure.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError for field.
func Invalid(field, msg string) error { return &ValidationError{Field: field, Msg: msg} }

// NetworkError wraps a transport failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: network error: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response from the backend.
type ServerError struct {
	Op     string
	Status int
	Title  string
	Detail string
}

func (e *ServerError) Error() string {
	msg := fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
	if e.Title != "" {
		msg += " " + e.Title
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// UserMessage converts err into the text shown in a toast or banner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	var ne *NetworkError
	var se *ServerError
	switch {
	case errors.As(err, &ve):
		return ve.Msg
	case errors.Is(err, ErrUnauthorized):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrBusy):
		return "Please wait for the current request to finish."
	case errors.Is(err, ErrNotConfirmed):
		return "Action cancelled."
	case errors.Is(err, ErrMalformedResponse):
		return "The server sent an unexpected response."
	case errors.As(err, &ne):
		return "Network error. Check your connection and try again."
	case errors.As(err, &se):
		if se.Detail != "" {
			return se.Detail
		}
		if se.Title != "" {
			return se.Title
		}
		return fmt.Sprintf("Request failed (%d).", se.Status)
	default:
		return "Something went wrong."
	}
}
