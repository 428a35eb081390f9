package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// NewZeroOrientation returns the identity quaternion.
func NewZeroOrientation() quat.Number {
	return quat.Number{Real: 1}
}

// Normalize scales q to unit length. A zero quaternion becomes the identity.
func Normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm < 1e-12 {
		return NewZeroOrientation()
	}
	return quat.Scale(1/norm, q)
}

// QuatFromRPY builds the orientation for fixed-axis roll, pitch, yaw angles (radians), applied
// about x, then y, then z. This matches the rpy attribute of URDF origins.
func QuatFromRPY(roll, pitch, yaw float64) quat.Number {
	qx := quat.Number{Real: math.Cos(roll / 2), Imag: math.Sin(roll / 2)}
	qy := quat.Number{Real: math.Cos(pitch / 2), Jmag: math.Sin(pitch / 2)}
	qz := quat.Number{Real: math.Cos(yaw / 2), Kmag: math.Sin(yaw / 2)}
	return Normalize(quat.Mul(qz, quat.Mul(qy, qx)))
}

// AxisAngleToQuat converts an R3 axis angle (axis scaled by the angle) to a quaternion.
func AxisAngleToQuat(v r3.Vector) quat.Number {
	angle := v.Norm()
	if angle < 1e-9 {
		return NewZeroOrientation()
	}
	s := math.Sin(angle/2) / angle
	return quat.Number{Real: math.Cos(angle / 2), Imag: v.X * s, Jmag: v.Y * s, Kmag: v.Z * s}
}

// QuatToAxisAngle converts a unit quaternion to an R3 axis angle in the same way the C++ Eigen
// library does. The returned angle is in [-π, π].
func QuatToAxisAngle(q quat.Number) r3.Vector {
	denom := math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if denom < 1e-12 {
		return r3.Vector{}
	}
	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}
	return r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}.Mul(angle / denom)
}

// RotateVector rotates v by the unit quaternion q.
func RotateVector(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// QuaternionAlmostEqual reports whether two unit quaternions describe the same rotation within
// tol. q and -q are treated as equal.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	d := math.Abs(a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag)
	return 1-d <= tol
}
