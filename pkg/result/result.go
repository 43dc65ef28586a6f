// Package result provides the success/failure envelope returned by every
// client-facing operation.
package result

import "fmt"

// Result holds either a payload or a human readable failure message, never
// both.
type Result[T any] struct {
	value   T
	message string
	ok      bool
}

func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

func Fail[T any](message string) Result[T] {
	return Result[T]{message: message}
}

func Failf[T any](format string, args ...any) Result[T] {
	return Fail[T](fmt.Sprintf(format, args...))
}

// Forward carries a failure over to a result of another payload type. The
// message is kept verbatim. Forwarding a success is a programming error.
func Forward[U, T any](r Result[T]) Result[U] {
	if r.ok {
		panic("result: forwarding a successful result")
	}
	return Fail[U](r.message)
}

func (r Result[T]) IsOk() bool {
	return r.ok
}

// Value returns the payload and whether the result is a success.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.ok
}

// MustValue returns the payload of a successful result and panics otherwise.
func (r Result[T]) MustValue() T {
	if !r.ok {
		panic(fmt.Sprintf("result: value of failed result: %s", r.message))
	}
	return r.value
}

// Message is empty for a successful result.
func (r Result[T]) Message() string {
	return r.message
}

// Err converts a failed result to an error; nil on success.
func (r Result[T]) Err() error {
	if r.ok {
		return nil
	}
	return &Error{Message: r.message}
}

func (r Result[T]) String() string {
	if r.ok {
		return fmt.Sprintf("ok(%v)", r.value)
	}
	return fmt.Sprintf("fail(%s)", r.message)
}

// Error is the error form of a failed Result.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
