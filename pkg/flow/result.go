package flow

import (
	"time"

	"github.com/google/uuid"
)

type status uint8

const (
	statusEmpty status = iota
	statusSuccess
	statusFailure
	statusCancel
)

type Result[T any] struct {
	id        uuid.UUID
	createdAt time.Time
	result    T
	err       error
	status    status
}

func Success[T any](r T) Result[T] {
	return Result[T]{
		id:        uuid.New(),
		createdAt: time.Now().UTC(),
		result:    r,
		status:    statusSuccess,
	}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{
		id:        uuid.New(),
		createdAt: time.Now().UTC(),
		err:       err,
		status:    statusFailure,
	}
}

// FailWith keeps the partial value next to the failure, e.g. the stats of a
// transfer that broke half way.
func FailWith[T any](r T, err error) Result[T] {
	res := Fail[T](err)
	res.result = r
	return res
}

func Cancel[T any](err error) Result[T] {
	return Result[T]{
		id:        uuid.New(),
		createdAt: time.Now().UTC(),
		err:       err,
		status:    statusCancel,
	}
}

func CancelWith[T any](r T, err error) Result[T] {
	res := Cancel[T](err)
	res.result = r
	return res
}

// FromError returns a success for a nil error, a cancellation for context
// errors and a failure otherwise. The value is kept in every case.
func FromError[T any](r T, err error) Result[T] {
	switch {
	case IsNil(err):
		return Success(r)
	case IsCancellationError(err):
		return CancelWith(r, err)
	default:
		return FailWith(r, err)
	}
}

func (r Result[T]) Result() T {
	return r.result
}

func (r Result[T]) Err() error {
	return r.err
}

func (r Result[T]) IsSuccess() bool {
	return r.status == statusSuccess
}

func (r Result[T]) IsFailure() bool {
	return r.status == statusFailure
}

func (r Result[T]) IsCancel() bool {
	return r.status == statusCancel
}

func (r Result[T]) IsEmpty() bool {
	return r.status == statusEmpty
}

func (r Result[T]) CreatedAt() time.Time {
	return r.createdAt
}

func (r Result[T]) Id() uuid.UUID {
	return r.id
}
