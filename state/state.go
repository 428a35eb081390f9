// Package state defines the value types exchanged between robots, frame queries and
// controllers: joint states, end-effector states, motions and joint limits.
package state

import (
	"fmt"

	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/utils"
)

// JointState holds positions, velocities and torques of every actuated joint, in actuator order.
// All three slices always have the same length.
type JointState struct {
	Positions  []float64
	Velocities []float64
	Torques    []float64
}

// NewJointState returns a zero state for n joints.
func NewJointState(n int) *JointState {
	return &JointState{
		Positions:  make([]float64, n),
		Velocities: make([]float64, n),
		Torques:    make([]float64, n),
	}
}

// NewJointStateFrom builds a state from the three arrays. Nil arrays are zero-filled to the length
// of the first non-nil one; non-nil arrays of different lengths are rejected.
func NewJointStateFrom(positions, velocities, torques []float64) (*JointState, error) {
	n := -1
	for _, arr := range [][]float64{positions, velocities, torques} {
		if arr == nil {
			continue
		}
		if n == -1 {
			n = len(arr)
		} else if len(arr) != n {
			return nil, utils.NewDimensionMismatchError("joint state", n, len(arr))
		}
	}
	if n == -1 {
		n = 0
	}
	js := NewJointState(n)
	copy(js.Positions, positions)
	copy(js.Velocities, velocities)
	copy(js.Torques, torques)
	return js, nil
}

// JointStateFromPositions returns a state with the given positions and zero velocities and torques.
func JointStateFromPositions(positions []float64) *JointState {
	js := NewJointState(len(positions))
	copy(js.Positions, positions)
	return js
}

// JointStateFromVelocities returns a state with the given velocities and zero positions and torques.
func JointStateFromVelocities(velocities []float64) *JointState {
	js := NewJointState(len(velocities))
	copy(js.Velocities, velocities)
	return js
}

// JointStateFromTorques returns a state with the given torques and zero positions and velocities.
func JointStateFromTorques(torques []float64) *JointState {
	js := NewJointState(len(torques))
	copy(js.Torques, torques)
	return js
}

// NumJoints returns the number of joints described.
func (js *JointState) NumJoints() int {
	return len(js.Positions)
}

// Validate checks that the three arrays have the same length, and that this length is n when n
// is not negative.
func (js *JointState) Validate(n int) error {
	if n < 0 {
		n = len(js.Positions)
	}
	for _, arr := range [][]float64{js.Positions, js.Velocities, js.Torques} {
		if len(arr) != n {
			return utils.NewDimensionMismatchError("joint state", n, len(arr))
		}
	}
	return nil
}

// Clone returns a deep copy.
func (js *JointState) Clone() *JointState {
	if js == nil {
		return nil
	}
	return &JointState{
		Positions:  append([]float64(nil), js.Positions...),
		Velocities: append([]float64(nil), js.Velocities...),
		Torques:    append([]float64(nil), js.Torques...),
	}
}

func (js *JointState) String() string {
	return fmt.Sprintf("q=%v qd=%v tau=%v", js.Positions, js.Velocities, js.Torques)
}

// EEState is the state of a link expressed in a reference frame. TF is the pose of EELink relative
// to RefFrame; Twist and ForceTorque are expressed in RefFrame's basis.
type EEState struct {
	TF          spatialmath.Pose
	Twist       spatialmath.Vector6
	ForceTorque spatialmath.Vector6
	EELink      string
	RefFrame    string
}

// NewEEState returns a state with an identity pose and zero twist and wrench.
func NewEEState(eeLink, refFrame string) *EEState {
	return &EEState{TF: spatialmath.NewZeroPose(), EELink: eeLink, RefFrame: refFrame}
}

// EEStateFromPose returns a state with the given pose and zero twist and wrench.
func EEStateFromPose(tf spatialmath.Pose, eeLink, refFrame string) *EEState {
	return &EEState{TF: tf, EELink: eeLink, RefFrame: refFrame}
}

// EEStateFromTwist returns a state with an identity pose, the given twist and zero wrench.
func EEStateFromTwist(twist spatialmath.Vector6, eeLink, refFrame string) *EEState {
	return &EEState{TF: spatialmath.NewZeroPose(), Twist: twist, EELink: eeLink, RefFrame: refFrame}
}

// Clone returns a copy. EEState holds only values so a shallow copy is deep.
func (ee *EEState) Clone() *EEState {
	if ee == nil {
		return nil
	}
	cp := *ee
	return &cp
}

func (ee *EEState) String() string {
	return fmt.Sprintf("%s in %s: tf=%v twist=%v wrench=%v", ee.EELink, ee.RefFrame, ee.TF, ee.Twist, ee.ForceTorque)
}

// Motion is the value passed between controller stages: a joint-space and a task-space part.
// Either may be nil when a stage only reads the other.
type Motion struct {
	Joint *JointState
	EE    *EEState
}

// NewMotion pairs a joint state and an end-effector state.
func NewMotion(joint *JointState, ee *EEState) *Motion {
	return &Motion{Joint: joint, EE: ee}
}

// Clone returns a deep copy.
func (m *Motion) Clone() *Motion {
	if m == nil {
		return nil
	}
	return &Motion{Joint: m.Joint.Clone(), EE: m.EE.Clone()}
}
