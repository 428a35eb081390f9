package utils

import (
	"github.com/pkg/errors"
)

// ErrDimensionMismatch is the cause of every error raised when a vector, matrix or joint array
// does not have the length the receiver expects.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// NewDimensionMismatchError is used when the length of some input does not match what was expected.
func NewDimensionMismatchError(what string, expected, actual int) error {
	return errors.Wrapf(ErrDimensionMismatch, "%s: expected %d values but got %d", what, expected, actual)
}

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError(expected interface{}, actual interface{}) error {
	return errors.Errorf("expected %T but got %T", expected, actual)
}
