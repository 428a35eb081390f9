// Package referenceframe answers frame queries against a loaded model: relative poses, relative
// twists, reprojected Jacobians and end-effector states. Frames are named by link name, or by
// Global for the world frame.
package referenceframe

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/state"
	"github.com/robokit/kinsim/utils"
)

// Global is the name of the world frame.
const Global = "global"

// LinkQuerier exposes the world-frame kinematics of one loaded model. Implementations resolve
// Global themselves and return an error wrapping ErrUnknownFrame for names they do not know.
type LinkQuerier interface {
	// LinkPose returns the pose of the link relative to the world.
	LinkPose(name string) (spatialmath.Pose, error)
	// LinkTwist returns the twist of the link origin, expressed in the world frame.
	LinkTwist(name string) (spatialmath.Vector6, error)
	// WorldJacobian returns the 6xN geometric Jacobian of the link origin at the given joint
	// positions, expressed in the world frame. The root link yields zeros.
	WorldJacobian(name string, positions []float64) (*mat.Dense, error)
	// NumJoints returns the number of actuated joints.
	NumJoints() int
}

// Transform returns the pose of frame relative to ref, inverse(pose(ref))·pose(frame). When ref is
// Global this is the world pose of frame.
func Transform(q LinkQuerier, frame, ref string) (spatialmath.Pose, error) {
	pose, err := linkPose(q, frame)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	if ref == Global {
		return pose, nil
	}
	refPose, err := linkPose(q, ref)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	return spatialmath.PoseBetween(refPose, pose), nil
}

// Twist returns the twist of frame relative to ref, expressed in ref. The reference frame's own
// motion is subtracted, including the velocity its rotation induces at frame's origin.
func Twist(q LinkQuerier, frame, ref string) (spatialmath.Vector6, error) {
	var zero spatialmath.Vector6
	pose, err := linkPose(q, frame)
	if err != nil {
		return zero, err
	}
	twist, err := linkTwist(q, frame)
	if err != nil {
		return zero, err
	}
	if ref == Global {
		return twist, nil
	}
	refPose, err := linkPose(q, ref)
	if err != nil {
		return zero, err
	}
	refTwist, err := linkTwist(q, ref)
	if err != nil {
		return zero, err
	}
	return spatialmath.TransportTwist(twist, pose, refTwist, refPose), nil
}

// Jacobian returns the 6xN Jacobian of eeLink at the given joint positions with both halves
// projected onto ref's axes. The world Jacobian is left-multiplied by diag(Rᵀ, Rᵀ) where R is the
// world rotation of ref. A Global eeLink yields zeros.
func Jacobian(q LinkQuerier, positions []float64, eeLink, ref string) (*mat.Dense, error) {
	n := q.NumJoints()
	if len(positions) != n {
		return nil, utils.NewDimensionMismatchError("joint positions", n, len(positions))
	}
	if n == 0 {
		return nil, errors.New("model has no actuated joints")
	}
	rot, err := rotation(q, ref)
	if err != nil {
		return nil, err
	}
	if eeLink == Global {
		return mat.NewDense(6, n, nil), nil
	}
	world, err := q.WorldJacobian(eeLink, positions)
	if err != nil {
		return nil, err
	}
	return spatialmath.RotateJacobian(world, rot.Transpose())
}

// ReexpressWrench re-expresses a world-frame wrench in ref's basis.
func ReexpressWrench(q LinkQuerier, wrench spatialmath.Vector6, ref string) (spatialmath.Vector6, error) {
	rot, err := rotation(q, ref)
	if err != nil {
		return spatialmath.Vector6{}, err
	}
	return spatialmath.ReexpressVector6(wrench, rot), nil
}

// EEState assembles the state of link relative to ref. The world-frame wrench measured at link is
// re-expressed in ref's basis.
func EEState(q LinkQuerier, link, ref string, worldWrench spatialmath.Vector6) (*state.EEState, error) {
	tf, err := Transform(q, link, ref)
	if err != nil {
		return nil, err
	}
	twist, err := Twist(q, link, ref)
	if err != nil {
		return nil, err
	}
	ft, err := ReexpressWrench(q, worldWrench, ref)
	if err != nil {
		return nil, err
	}
	return &state.EEState{TF: tf, Twist: twist, ForceTorque: ft, EELink: link, RefFrame: ref}, nil
}

func rotation(q LinkQuerier, name string) (*spatialmath.RotationMatrix, error) {
	pose, err := linkPose(q, name)
	if err != nil {
		return nil, err
	}
	return pose.Rotation(), nil
}

func linkPose(q LinkQuerier, name string) (spatialmath.Pose, error) {
	if name == Global {
		return spatialmath.NewZeroPose(), nil
	}
	return q.LinkPose(name)
}

func linkTwist(q LinkQuerier, name string) (spatialmath.Vector6, error) {
	if name == Global {
		return spatialmath.Vector6{}, nil
	}
	return q.LinkTwist(name)
}
