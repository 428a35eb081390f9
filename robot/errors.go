package robot

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotInitialized is returned by operations attempted before the model is loaded.
	ErrNotInitialized = errors.New("robot model not initialized")
	// ErrUnreachablePose is logged when inverse kinematics lands outside the joint limits.
	ErrUnreachablePose = errors.New("unreachable pose")
	// ErrControlUnsupported is logged when a command kind cannot be executed by the actuators.
	ErrControlUnsupported = errors.New("control kind unsupported")
)

// NewNotInitializedError returns an error wrapping ErrNotInitialized for the named robot.
func NewNotInitializedError(name string) error {
	return errors.Wrapf(ErrNotInitialized, "robot %q", name)
}

// NewUnreachablePoseError wraps ErrUnreachablePose with the reason.
func NewUnreachablePoseError(reason error) error {
	return errors.Wrap(ErrUnreachablePose, reason.Error())
}

// NewControlUnsupportedError wraps ErrControlUnsupported with the offending kind.
func NewControlUnsupportedError(kind fmt.Stringer) error {
	return errors.Wrapf(ErrControlUnsupported, "%s", kind)
}
