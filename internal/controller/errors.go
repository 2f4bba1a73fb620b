package controller

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an open failed.
type ErrorKind int

const (
	CannotOpen ErrorKind = iota
	BackendFailure
	InvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case CannotOpen:
		return "cannot open"
	case BackendFailure:
		return "backend failure"
	case InvalidInput:
		return "invalid input"
	default:
		return "unknown"
	}
}

// cannotOpenMessage is shown when the backend produced nothing playable.
const cannotOpenMessage = "Cannot open media"

// Sentinels for errors.Is against an *OpenError.
var (
	ErrCannotOpen     = errors.New("cannot open media")
	ErrBackendFailure = errors.New("backend failure")
	ErrInvalidInput   = errors.New("invalid input")

	// ErrSuperseded is returned by an open that a newer open replaced
	// before it completed. It is never reported to the user.
	ErrSuperseded = errors.New("open superseded by a newer request")
)

// OpenError is the failure of an open attempt. Message is the text shown
// to the user.
type OpenError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *OpenError) Error() string {
	if e.Err != nil && e.Message != e.Err.Error() {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Is matches the kind sentinels.
func (e *OpenError) Is(target error) bool {
	switch target {
	case ErrCannotOpen:
		return e.Kind == CannotOpen
	case ErrBackendFailure:
		return e.Kind == BackendFailure
	case ErrInvalidInput:
		return e.Kind == InvalidInput
	}
	return false
}

func cannotOpen() *OpenError {
	return &OpenError{Kind: CannotOpen, Message: cannotOpenMessage}
}

func backendFailure(err error) *OpenError {
	msg := err.Error()
	if msg == "" {
		msg = cannotOpenMessage
	}
	return &OpenError{Kind: BackendFailure, Message: msg, Err: err}
}

func invalidInput(err error) *OpenError {
	return &OpenError{Kind: InvalidInput, Message: err.Error(), Err: err}
}
