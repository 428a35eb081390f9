package control

import (
	"context"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/referenceframe"
	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/state"
)

func eeTarget(name string, target *state.Motion) (*state.EEState, error) {
	if target.EE == nil {
		return nil, errors.Errorf("%s stage needs an end-effector target", name)
	}
	return target.EE, nil
}

// eePositionToEEVelocity drives the end effector toward a target pose with a twist from a PID on
// the pose error.
type eePositionToEEVelocity struct {
	pid *VectorPID
}

// NewEEPositionToEEVelocity returns a stage turning the target's pose into a target twist. The
// pid must work on 6-vectors.
func NewEEPositionToEEVelocity(pid *VectorPID) (Stage, error) {
	if pid.Dim() != 6 {
		return nil, errors.Errorf("pose PID must be 6 dimensional, got %d", pid.Dim())
	}
	return &eePositionToEEVelocity{pid: pid}, nil
}

func (s *eePositionToEEVelocity) Name() string {
	return "ee_position_to_ee_velocity"
}

func (s *eePositionToEEVelocity) Kind() state.ControlKind {
	return state.CartesianTwist
}

func (s *eePositionToEEVelocity) Compute(ctx context.Context, act Actuator, target *state.Motion) (bool, error) {
	ee, err := eeTarget(s.Name(), target)
	if err != nil {
		return false, err
	}
	current, err := act.EEState(ee.EELink, ee.RefFrame)
	if err != nil {
		return false, err
	}
	u, err := s.pid.U(spatialmath.PoseErrorTwist(ee.TF, current.TF).Slice())
	if err != nil {
		return false, err
	}
	if ee.Twist, err = spatialmath.Vector6FromSlice(u); err != nil {
		return false, err
	}
	return true, nil
}

func (s *eePositionToEEVelocity) Reset() {
	s.pid.Reset()
}

func (*eePositionToEEVelocity) isStage() {}

// eeForceHybridToEEVelocity splits the commanded twist into a motion subspace following the pose
// PID and a force subspace where the end effector yields like a spring of the given stiffness.
type eeForceHybridToEEVelocity struct {
	pid       *VectorPID
	t, y      *mat.DiagDense
	stiffness mat.Matrix
	basis     string
}

// NewEEForceHybridToEEVelocity returns a hybrid force/motion stage. mask selects the axes that
// follow the pose; the others follow the wrench error through stiffness. Axes are interpreted in
// the frame named by basis, which may be referenceframe.Global.
func NewEEForceHybridToEEVelocity(pid *VectorPID, mask [6]bool, stiffness mat.Matrix, basis string) (Stage, error) {
	if pid.Dim() != 6 {
		return nil, errors.Errorf("pose PID must be 6 dimensional, got %d", pid.Dim())
	}
	if r, c := stiffness.Dims(); r != 6 || c != 6 {
		return nil, errors.Errorf("stiffness must be 6x6, got %dx%d", r, c)
	}
	if basis == "" {
		basis = referenceframe.Global
	}
	t, y := spatialmath.SelectionMatrices(mask)
	return &eeForceHybridToEEVelocity{pid: pid, t: t, y: y, stiffness: stiffness, basis: basis}, nil
}

func (s *eeForceHybridToEEVelocity) Name() string {
	return "ee_force_hybrid_to_ee_velocity"
}

func (s *eeForceHybridToEEVelocity) Kind() state.ControlKind {
	return state.CartesianTwist
}

func (s *eeForceHybridToEEVelocity) Compute(ctx context.Context, act Actuator, target *state.Motion) (bool, error) {
	ee, err := eeTarget(s.Name(), target)
	if err != nil {
		return false, err
	}
	basis, err := act.EEState(s.basis, referenceframe.Global)
	if err != nil {
		return false, err
	}
	rot := basis.TF.Rotation()
	moveBlock := spatialmath.BlockDiag(rot, spatialmath.IdentityRotation())
	forceBlock := spatialmath.SpatialRotation(rot)

	current, err := act.EEState(ee.EELink, ee.RefFrame)
	if err != nil {
		return false, err
	}
	posErr := ee.TF.Point.Sub(rot.Transpose().MulVec(current.TF.Point))
	twistErr := spatialmath.NewVector6(posErr, spatialmath.OrientationError(ee.TF, current.TF))

	var measured mat.VecDense
	measured.MulVec(moveBlock.T(), current.ForceTorque.VecDense())
	var ftErr mat.VecDense
	ftErr.SubVec(ee.ForceTorque.VecDense(), &measured)

	u, err := s.pid.U(twistErr.Slice())
	if err != nil {
		return false, err
	}
	// move = diag(Rb, I)·T·u
	var selected, move mat.VecDense
	selected.MulVec(s.t, mat.NewVecDense(6, u))
	move.MulVec(moveBlock, &selected)

	// force = diag(Rb, Rb)·Y·K·(-ftErr)
	var yielded, constrained, force mat.VecDense
	ftErr.ScaleVec(-1, &ftErr)
	yielded.MulVec(s.stiffness, &ftErr)
	constrained.MulVec(s.y, &yielded)
	force.MulVec(forceBlock, &constrained)

	var sum mat.VecDense
	sum.AddVec(&move, &force)
	if ee.Twist, err = spatialmath.Vector6FromVec(&sum); err != nil {
		return false, err
	}
	return true, nil
}

func (s *eeForceHybridToEEVelocity) Reset() {
	s.pid.Reset()
}

func (*eeForceHybridToEEVelocity) isStage() {}

// eeVelocityToJointVelocity maps the target twist to joint velocities through the pseudo-inverse
// of the Jacobian at the current joint positions.
type eeVelocityToJointVelocity struct {
	local bool
}

// NewEEVelocityToJointVelocity returns a stage converting a twist expressed in the target's
// reference frame into joint velocities.
func NewEEVelocityToJointVelocity() Stage {
	return eeVelocityToJointVelocity{}
}

// NewEELocalVelocityToJointVelocity is like NewEEVelocityToJointVelocity for twists expressed in
// the end effector's own frame. The target twist is rewritten into the reference frame.
func NewEELocalVelocityToJointVelocity() Stage {
	return eeVelocityToJointVelocity{local: true}
}

func (s eeVelocityToJointVelocity) Name() string {
	if s.local {
		return "ee_local_velocity_to_joint_velocity"
	}
	return "ee_velocity_to_joint_velocity"
}

func (s eeVelocityToJointVelocity) Kind() state.ControlKind {
	return state.JointVelocities
}

func (s eeVelocityToJointVelocity) Compute(ctx context.Context, act Actuator, target *state.Motion) (bool, error) {
	ee, err := eeTarget(s.Name(), target)
	if err != nil {
		return false, err
	}
	if s.local {
		current, err := act.EEState(ee.EELink, ee.RefFrame)
		if err != nil {
			return false, err
		}
		ee.Twist = spatialmath.RotateVector6(current.TF.Rotation(), ee.Twist)
	}
	js, err := act.JointState()
	if err != nil {
		return false, err
	}
	jac, err := act.Jacobian(js.Positions, ee.EELink, ee.RefFrame)
	if err != nil {
		return false, err
	}
	pinv, err := spatialmath.PseudoInverse(jac)
	if err != nil {
		return false, err
	}
	qd, err := spatialmath.MulVec(pinv, ee.Twist.Slice())
	if err != nil {
		return false, err
	}
	if err := setJointVelocities(target, qd); err != nil {
		return false, err
	}
	return true, nil
}

func (eeVelocityToJointVelocity) isStage() {}
