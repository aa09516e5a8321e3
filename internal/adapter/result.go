package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Reason explains why a Result carries no data.
type Reason string

const (
	ReasonTimeout        Reason = "timeout"
	ReasonStatus         Reason = "bad_status"
	ReasonEmpty          Reason = "empty_body"
	ReasonMalformed      Reason = "malformed_body"
	ReasonMissingElement Reason = "missing_element"
	ReasonTransport      Reason = "transport"
	ReasonCancelled      Reason = "cancelled"
)

// Result is what an adapter call hands back: either a populated Value, or an
// empty variant with a Reason (and the underlying error, if any). Callers branch
// on OK() and move on to the next source when it is false.
type Result[T any] struct {
	Value  T
	Reason Reason
	Err    error
}

func OK[T any](value T) Result[T] {
	return Result[T]{Value: value}
}

func Empty[T any](reason Reason, err error) Result[T] {
	return Result[T]{Reason: reason, Err: err}
}

func (r Result[T]) OK() bool {
	return r.Reason == ""
}

// Error describes an empty result, it is nil for a populated one.
func (r Result[T]) Error() error {
	if r.OK() {
		return nil
	}
	if r.Err == nil {
		return fmt.Errorf("%s", r.Reason)
	}
	return fmt.Errorf("%s: %w", r.Reason, r.Err)
}

// Map converts a populated result, empty results pass through with their reason.
func Map[T, U any](r Result[T], fn func(T) (U, error)) Result[U] {
	if !r.OK() {
		return Empty[U](r.Reason, r.Err)
	}
	u, err := fn(r.Value)
	if err != nil {
		return Empty[U](ReasonMalformed, err)
	}
	return OK(u)
}

// classify maps a transport error to a Reason.
func classify(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ReasonCancelled
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}
	return ReasonTransport
}
