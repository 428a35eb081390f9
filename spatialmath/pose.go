// Package spatialmath defines rigid transforms, spatial 6-vectors and the frame algebra used to
// move twists, wrenches and Jacobians between frames.
package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform: a translation and a unit quaternion orientation. Poses are values;
// every operation returns a new Pose.
type Pose struct {
	Point       r3.Vector
	Orientation quat.Number
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return Pose{Orientation: NewZeroOrientation()}
}

// NewPose creates a pose from a point and an orientation. The orientation is normalized.
func NewPose(p r3.Vector, q quat.Number) Pose {
	return Pose{Point: p, Orientation: Normalize(q)}
}

// NewPoseFromPoint creates a pure translation.
func NewPoseFromPoint(p r3.Vector) Pose {
	return Pose{Point: p, Orientation: NewZeroOrientation()}
}

// NewPoseFromRPY creates a pose from a point and fixed-axis roll, pitch, yaw in radians.
func NewPoseFromRPY(p r3.Vector, roll, pitch, yaw float64) Pose {
	return Pose{Point: p, Orientation: QuatFromRPY(roll, pitch, yaw)}
}

// Rotation returns the orientation as a rotation matrix.
func (p Pose) Rotation() *RotationMatrix {
	return QuatToRotationMatrix(p.Orientation)
}

// Compose returns p·other, the transform that applies other first and then p.
func (p Pose) Compose(other Pose) Pose {
	return Pose{
		Point:       p.Point.Add(RotateVector(p.Orientation, other.Point)),
		Orientation: Normalize(quat.Mul(p.Orientation, other.Orientation)),
	}
}

// Inverse returns the inverse transform.
func (p Pose) Inverse() Pose {
	inv := quat.Conj(p.Orientation)
	return Pose{
		Point:       RotateVector(inv, p.Point).Mul(-1),
		Orientation: inv,
	}
}

// Transform maps a point expressed in p's frame into the frame p is expressed in.
func (p Pose) Transform(v r3.Vector) r3.Vector {
	return p.Point.Add(RotateVector(p.Orientation, v))
}

// RPY returns the orientation as fixed-axis roll, pitch, yaw.
func (p Pose) RPY() (roll, pitch, yaw float64) {
	return p.Rotation().RPY()
}

func (p Pose) String() string {
	r, pi, y := p.RPY()
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f R:%.4f P:%.4f Y:%.4f}", p.Point.X, p.Point.Y, p.Point.Z, r, pi, y)
}

// PoseBetween returns the pose of b relative to a, inverse(a)·b.
func PoseBetween(a, b Pose) Pose {
	return a.Inverse().Compose(b)
}

// PoseAlmostEqual reports whether two poses agree in position and orientation within eps.
func PoseAlmostEqual(a, b Pose, eps float64) bool {
	return a.Point.Sub(b.Point).Norm() <= eps && QuaternionAlmostEqual(a.Orientation, b.Orientation, eps)
}
