// Package control turns motion targets into joint commands through a cascade of stages. Each stage
// rewrites the target according to its control law and hands it to the next; the last stage sends
// the result to the actuator as a command of its own kind.
package control

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/state"
	"github.com/robokit/kinsim/utils"
)

// Actuator is the robot a cascade drives.
type Actuator interface {
	SetControl(ctx context.Context, kind state.ControlKind, motion *state.Motion) (bool, error)
	JointState() (*state.JointState, error)
	EEState(link, ref string) (*state.EEState, error)
	Jacobian(positions []float64, link, ref string) (*mat.Dense, error)
}

// Stage is one step of a cascade. The set of stages is closed; build them with the constructors
// in this package.
type Stage interface {
	// Name identifies the stage in logs.
	Name() string
	// Kind is the control kind the stage produces.
	Kind() state.ControlKind
	// Compute rewrites target in place. It returns false when no output can be produced.
	Compute(ctx context.Context, act Actuator, target *state.Motion) (bool, error)

	isStage()
}

// resetter is implemented by stages that carry memory between ticks.
type resetter interface {
	Reset()
}

// passThrough forwards the joint half of the target untouched.
type passThrough struct {
	kind state.ControlKind
}

// NewJointPositions returns a stage that sends joint positions as they are.
func NewJointPositions() Stage {
	return passThrough{kind: state.JointPositions}
}

// NewJointVelocities returns a stage that sends joint velocities as they are.
func NewJointVelocities() Stage {
	return passThrough{kind: state.JointVelocities}
}

// NewJointTorques returns a stage that sends joint torques as they are.
func NewJointTorques() Stage {
	return passThrough{kind: state.JointTorques}
}

func (s passThrough) Name() string {
	return s.kind.String()
}

func (s passThrough) Kind() state.ControlKind {
	return s.kind
}

func (s passThrough) Compute(ctx context.Context, act Actuator, target *state.Motion) (bool, error) {
	if target.Joint == nil {
		return false, errors.Errorf("%s stage needs a joint target", s.kind)
	}
	return true, nil
}

func (passThrough) isStage() {}

// zeroVelocityHold brakes every joint: whatever the target, it commands zero torque and records a
// zero velocity target.
type zeroVelocityHold struct{}

// NewZeroVelocityHold returns a torque stage that holds the joints with a zero net torque.
func NewZeroVelocityHold() Stage {
	return zeroVelocityHold{}
}

func (zeroVelocityHold) Name() string {
	return "zero_velocity_hold"
}

func (zeroVelocityHold) Kind() state.ControlKind {
	return state.JointTorques
}

func (zeroVelocityHold) Compute(ctx context.Context, act Actuator, target *state.Motion) (bool, error) {
	if target.Joint == nil {
		current, err := act.JointState()
		if err != nil {
			return false, err
		}
		target.Joint = state.JointStateFromPositions(current.Positions)
		return true, nil
	}
	for i := range target.Joint.Torques {
		target.Joint.Torques[i] = 0
	}
	for i := range target.Joint.Velocities {
		target.Joint.Velocities[i] = 0
	}
	return true, nil
}

func (zeroVelocityHold) isStage() {}

// setJointVelocities writes qd into the target's joint half, creating it if needed.
func setJointVelocities(target *state.Motion, qd []float64) error {
	if target.Joint == nil {
		target.Joint = state.JointStateFromVelocities(qd)
		return nil
	}
	if n := target.Joint.NumJoints(); n != len(qd) {
		return utils.NewDimensionMismatchError("joint target", len(qd), n)
	}
	copy(target.Joint.Velocities, qd)
	return nil
}
