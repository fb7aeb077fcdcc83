// Package pipe holds the errors shared by the pipes.
package pipe

import (
	"errors"
	"fmt"
)

// ErrMissingInput is matched by every *MissingInputError.
var ErrMissingInput = errors.New("missing input")

// MissingInputError is returned when a file the pipeline needs does not exist.
type MissingInputError struct {
	What string
	Path string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Path)
}

func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput
}

// IsSkip returns true if the error is an ErrSkip.
func IsSkip(err error) bool {
	return errors.As(err, &ErrSkip{})
}

// ErrSkip occurs when a pipe is skipped for some reason.
type ErrSkip struct {
	reason string
}

// Error implements the error interface. returns the reason the pipe was skipped.
func (e ErrSkip) Error() string {
	return e.reason
}

// Skip skips this pipe with the given reason.
func Skip(reason string) ErrSkip {
	return ErrSkip{reason: reason}
}
