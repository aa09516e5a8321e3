package record

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRecord = errors.New("invalid record")
	ErrInvalidDate   = errors.New("invalid date")
)

// OutOfBoundsError is returned when a value falls outside an indicator's plausibility bound.
type OutOfBoundsError struct {
	Indicator string
	Value     float64
	Bounds    Bounds
}

func (e OutOfBoundsError) Error() string {
	return fmt.Sprintf(
		"%s: value %v outside plausible range %s",
		e.Indicator, e.Value, e.Bounds,
	)
}
