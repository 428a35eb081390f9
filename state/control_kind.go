package state

import (
	"strings"

	"github.com/pkg/errors"
)

// ControlKind names the quantity a command or controller stage acts on.
type ControlKind int

// The closed set of control kinds.
const (
	JointPositions ControlKind = iota
	JointVelocities
	JointTorques
	CartesianTwist
)

func (k ControlKind) String() string {
	switch k {
	case JointPositions:
		return "joint_positions"
	case JointVelocities:
		return "joint_velocities"
	case JointTorques:
		return "joint_torques"
	case CartesianTwist:
		return "cartesian_twist"
	}
	return "unknown"
}

// IsJointSpace reports whether the kind is one the robot can actuate directly.
func (k ControlKind) IsJointSpace() bool {
	return k == JointPositions || k == JointVelocities || k == JointTorques
}

// ParseControlKind parses the names produced by String.
func ParseControlKind(s string) (ControlKind, error) {
	switch strings.ToLower(s) {
	case "joint_positions":
		return JointPositions, nil
	case "joint_velocities":
		return JointVelocities, nil
	case "joint_torques":
		return JointTorques, nil
	case "cartesian_twist":
		return CartesianTwist, nil
	}
	return 0, errors.Errorf("unknown control kind %q", s)
}
