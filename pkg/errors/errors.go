package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the class of failure an operation ran into
type ErrorType string

const (
	ErrorTypeSession    ErrorType = "session"
	ErrorTypeNavigation ErrorType = "navigation"
	ErrorTypeNoResponse ErrorType = "no_response"
	ErrorTypeParsing    ErrorType = "parsing"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeUnknown    ErrorType = "unknown"
)

// Error is the error type returned by every package of the fetcher.
// URL is set for errors tied to a remote request, Path for file errors.
type Error struct {
	Type ErrorType
	Op   string
	URL  string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error", e.Type)
	if e.Op != "" {
		msg += " during " + e.Op
	}
	switch {
	case e.URL != "":
		msg += " for " + e.URL
	case e.Path != "":
		msg += " on " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an error of the given type without an underlying cause
func New(errType ErrorType, op, message string) *Error {
	return &Error{Type: errType, Op: op, Err: errors.New(message)}
}

// Wrap annotates err with a type and operation. It returns nil for a nil err.
func Wrap(err error, errType ErrorType, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Type: errType, Op: op, Err: err}
}

// WrapURL is Wrap for failures that belong to a remote URL
func WrapURL(err error, errType ErrorType, op, url string) error {
	if err == nil {
		return nil
	}
	return &Error{Type: errType, Op: op, URL: url, Err: err}
}

// WrapPath is Wrap for failures that belong to a file on disk
func WrapPath(err error, errType ErrorType, op, path string) error {
	if err == nil {
		return nil
	}
	return &Error{Type: errType, Op: op, Path: path, Err: err}
}

// TypeOf returns the type of the first *Error in err's chain
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err's chain contains an *Error of the given type
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == errType {
			return true
		}
		err = e.Err
	}
	return false
}

// Is and As re-export the standard helpers so callers need a single import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// Join re-exports errors.Join.
func Join(errs ...error) error { return errors.Join(errs...) }
