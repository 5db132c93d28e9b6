// Package errors carries typed, coded errors from the settlement core out to the HTTP
// layer and the result envelope.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// Error is a coded error with an optional cause and caller-visible details. Every method
// is safe on a nil receiver.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// WithDetails sets structured details and returns the same error for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Kind() Kind { return KindFor(e.Code()) }

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// PublicMessage is the message safe to show a caller. Internal, dependency and gateway
// failures always use the generic text.
func PublicMessage(e *Error) string {
	meta := MetadataFor(e.Code())
	switch e.Code() {
	case CodeInternal, CodeDependency, CodeGateway:
		return meta.PublicMessage
	}
	if m := e.Message(); m != "" {
		return m
	}
	return meta.PublicMessage
}
