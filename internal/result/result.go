// Package result provides the two-variant container returned by every
// fallible registry operation.
//
// A Result holds either a failure, classified by errors.Kind, or a success
// value. Expected domain failures (not found, conflict, invalid reference,
// no markets) travel only through a Result; they are never raised as panics.
// Unexpected store errors are folded into KindFault with the cause retained.
package result

import (
	"fmt"

	"github.com/xtxerr/marketstats/internal/errors"
)

// Result is either a failure or a success value of type T.
//
// The zero value is a failure of KindFault so that an uninitialised Result
// can never be mistaken for success.
type Result[T any] struct {
	kind  errors.Kind
	cause error
	value T
	ok    bool
}

// Unit is the success payload of operations with no value.
type Unit = struct{}

// Void is the result of pure side-effecting mutations.
type Void = Result[Unit]

// Ok wraps a success value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v, ok: true}
}

// Done is the successful Void.
func Done() Void {
	return Ok(Unit{})
}

// Fail builds a failure of the given kind. A nil cause is replaced by the
// kind's canonical sentinel.
func Fail[T any](kind errors.Kind, cause error) Result[T] {
	if kind == errors.KindNone {
		kind = errors.KindFault
	}
	if cause == nil {
		cause = errors.KindToError(kind)
	}
	return Result[T]{kind: kind, cause: cause}
}

// Fault builds a KindFault failure wrapping an unexpected store error.
func Fault[T any](cause error) Result[T] {
	return Fail[T](errors.KindFault, cause)
}

// FromError classifies err with errors.KindOf. A nil err yields Ok of the
// zero value.
func FromError[T any](err error) Result[T] {
	if err == nil {
		var zero T
		return Ok(zero)
	}
	return Fail[T](errors.KindOf(err), err)
}

// Of lifts a conventional (value, error) pair.
func Of[T any](v T, err error) Result[T] {
	if err != nil {
		return Fail[T](errors.KindOf(err), err)
	}
	return Ok(v)
}

// Propagate re-types a failure. It panics if r is a success, which is a
// programming error at the call site.
func Propagate[U, T any](r Result[T]) Result[U] {
	if r.ok {
		panic("result: Propagate called on a success")
	}
	return Result[U]{kind: r.Kind(), cause: r.Err()}
}

// IsOk reports whether r holds a success value.
func (r Result[T]) IsOk() bool { return r.ok }

// IsFailure reports whether r holds a failure.
func (r Result[T]) IsFailure() bool { return !r.ok }

// Kind returns the failure kind, or KindNone on success.
func (r Result[T]) Kind() errors.Kind {
	if r.ok {
		return errors.KindNone
	}
	if r.kind == errors.KindNone {
		return errors.KindFault
	}
	return r.kind
}

// Value returns the success value, or the zero value on failure.
func (r Result[T]) Value() T { return r.value }

// Err returns the failure cause, or nil on success.
func (r Result[T]) Err() error {
	if r.ok {
		return nil
	}
	if r.cause == nil {
		return errors.ErrInternal
	}
	return r.cause
}

// Unwrap returns the conventional Go (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.Err()
}

// String implements fmt.Stringer.
func (r Result[T]) String() string {
	if r.ok {
		return fmt.Sprintf("Ok(%v)", r.value)
	}
	return fmt.Sprintf("Fail(%s: %v)", r.Kind(), r.Err())
}

// Match forces both variants to be handled.
func Match[T, R any](r Result[T], onFailure func(errors.Kind, error) R, onSuccess func(T) R) R {
	if r.ok {
		return onSuccess(r.value)
	}
	return onFailure(r.Kind(), r.Err())
}

// Map transforms the success value and passes failures through.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	if !r.ok {
		return Propagate[U](r)
	}
	return Ok(fn(r.value))
}
