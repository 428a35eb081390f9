package referenceframe

import "github.com/pkg/errors"

// ErrUnknownFrame is the cause of every error raised for a frame name that is neither the global
// frame nor a link of the queried model.
var ErrUnknownFrame = errors.New("unknown frame")

// NewUnknownFrameError returns an error wrapping ErrUnknownFrame for the given name.
func NewUnknownFrameError(name string) error {
	return errors.Wrapf(ErrUnknownFrame, "%q", name)
}

// IsUnknownFrame reports whether err was caused by an unknown frame name.
func IsUnknownFrame(err error) bool {
	return errors.Is(err, ErrUnknownFrame)
}
