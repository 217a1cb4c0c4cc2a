// Package result defines the uniform envelope returned by every adapter
// operation. Callers branch on Success instead of catching errors; raw
// driver errors never cross the adapter boundary.
package result

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound marks lookups that matched no row. Modules return it from
// their inner operation so the envelope carries the NOT_FOUND code.
var ErrNotFound = errors.New("not found")

// ErrRollback signals an intentional transaction rollback. It is matched
// with errors.Is at the transaction boundary, never by message text.
var ErrRollback = errors.New("transaction rolled back")

// Error is the machine-readable failure payload inside a Result.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode,omitempty"`
	Details    any    `json:"details,omitempty"`
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

// Meta carries optional per-operation metadata such as pagination totals
// and the measured execution time of query-builder terminals.
type Meta struct {
	Total         int64         `json:"total,omitempty"`
	Page          int           `json:"page,omitempty"`
	PageSize      int           `json:"pageSize,omitempty"`
	ExecutionTime time.Duration `json:"executionTime,omitempty"`
}

// Result is the discriminated envelope: either Success with Data, or a
// failure with Message and Error populated.
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   *Error `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// OK builds a success envelope.
func OK[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

// OKMeta builds a success envelope with metadata attached.
func OKMeta[T any](data T, meta *Meta) Result[T] {
	return Result[T]{Success: true, Data: data, Meta: meta}
}

// Fail builds a failure envelope with the given code and message.
func Fail[T any](code, message string) Result[T] {
	return Result[T]{
		Success: false,
		Message: message,
		Error:   &Error{Code: code, Message: message, StatusCode: statusFor(code)},
	}
}

// FailDetails is Fail with an arbitrary details payload, used by batch
// execution to surface per-item outcomes alongside the overall failure.
func FailDetails[T any](code, message string, details any) Result[T] {
	r := Fail[T](code, message)
	r.Error.Details = details
	return r
}

// FromError converts an operation error into a failure envelope. Sentinel
// errors are promoted to their taxonomy codes; anything else keeps the
// operation's code with the error text as message.
func FromError[T any](code string, err error) Result[T] {
	switch {
	case errors.Is(err, ErrNotFound):
		code = CodeNotFound
	case errors.Is(err, ErrRollback):
		code = CodeTransactionRolledBack
	}
	var e *Error
	if errors.As(err, &e) {
		return Result[T]{Success: false, Message: e.Message, Error: e}
	}
	return Fail[T](code, err.Error())
}

func statusFor(code string) int {
	switch code {
	case CodeNotFound:
		return 404
	case CodeNotImplemented:
		return 501
	case CodeNotConnected, CodeConnectionFailed:
		return 503
	default:
		return 500
	}
}
