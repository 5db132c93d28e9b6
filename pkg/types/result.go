package types

import (
	pkgerrors "github.com/angelmondragon/shootpay-backend/pkg/errors"
)

// ResultError is the failure side of a Result.
type ResultError struct {
	Kind    pkgerrors.Kind `json:"kind"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details any            `json:"details,omitempty"`
}

// Result is the discriminated outcome every settlement operation returns to its callers.
type Result[T any] struct {
	Success bool         `json:"success"`
	Data    T            `json:"data,omitempty"`
	Error   *ResultError `json:"error,omitempty"`
}

func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// Fail converts err into a failed Result. Untyped errors become UnexpectedError.
func Fail[T any](err error) Result[T] {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	out := &ResultError{
		Kind:    typed.Kind(),
		Code:    string(typed.Code()),
		Message: pkgerrors.PublicMessage(typed),
	}
	if pkgerrors.MetadataFor(typed.Code()).DetailsAllowed {
		out.Details = typed.Details()
	}
	return Result[T]{Success: false, Error: out}
}

// Err rebuilds a typed error from a failed Result, or nil on success.
func (r Result[T]) Err() error {
	if r.Success || r.Error == nil {
		return nil
	}
	return pkgerrors.New(pkgerrors.Code(r.Error.Code), r.Error.Message).WithDetails(r.Error.Details)
}
