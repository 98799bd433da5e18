// Package domainerrors carries a transport-neutral error code alongside an
// error so HTTP and CLI boundaries can translate failures without string
// matching.
package domainerrors

import (
	"errors"
)

// Code classifies a domain error.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnauthorized       Code = "unauthorized"
	CodeNotFound           Code = "not_found"
	CodePayloadTooLarge    Code = "payload_too_large"
	CodeUnsupportedMedia   Code = "unsupported_media_type"
	CodeUnprocessable      Code = "unprocessable_entity"
	CodeTooManyRequests    Code = "rate_limit_exceeded"
	CodeUnavailable        Code = "service_unavailable"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"
)

// Error is an error tagged with a Code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error with code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap tags err with code. A nil err yields nil.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost domain error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether any domain error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Is reports whether the outermost domain error in err's chain carries code.
func Is(err error, code Code) bool {
	var de *Error
	return errors.As(err, &de) && de.Code == code
}
