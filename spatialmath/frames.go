package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/utils"
)

// BlockDiag returns the 6x6 block-diagonal matrix diag(a, b).
func BlockDiag(a, b *RotationMatrix) *mat.Dense {
	out := mat.NewDense(6, 6, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, a.At(i, j))
			out.Set(i+3, j+3, b.At(i, j))
		}
	}
	return out
}

// SpatialRotation returns diag(r, r), which rotates both halves of a spatial vector.
func SpatialRotation(r *RotationMatrix) *mat.Dense {
	return BlockDiag(r, r)
}

// RotateVector6 applies r to both halves of v.
func RotateVector6(r *RotationMatrix, v Vector6) Vector6 {
	return NewVector6(r.MulVec(v.Linear()), r.MulVec(v.Angular()))
}

// ReexpressVector6 re-expresses a spatial vector given in the world frame in a frame whose world
// orientation is r. Only the basis changes; no velocity transport takes place.
func ReexpressVector6(v Vector6, r *RotationMatrix) Vector6 {
	return RotateVector6(r.Transpose(), v)
}

// TransportTwist returns the twist of a frame A relative to a moving reference frame, expressed
// in the reference frame. Both input twists and poses are given in the world frame.
//
//	ω_rel = Rᵀ(ω_A - ω_ref)
//	v_rel = Rᵀ(v_A - v_ref - ω_ref × (p_A - p_ref))
func TransportTwist(twistA Vector6, poseA Pose, twistRef Vector6, poseRef Pose) Vector6 {
	rt := poseRef.Rotation().Transpose()
	omegaRef := twistRef.Angular()
	lever := poseA.Point.Sub(poseRef.Point)
	linear := twistA.Linear().Sub(twistRef.Linear()).Sub(omegaRef.Cross(lever))
	angular := twistA.Angular().Sub(omegaRef)
	return NewVector6(rt.MulVec(linear), rt.MulVec(angular))
}

// RotateJacobian left-multiplies a 6xN Jacobian by diag(r, r). Passing the transpose of a frame's
// world rotation reprojects a world Jacobian into that frame.
func RotateJacobian(j mat.Matrix, r *RotationMatrix) (*mat.Dense, error) {
	rows, cols := j.Dims()
	if rows != 6 {
		return nil, utils.NewDimensionMismatchError("jacobian rows", 6, rows)
	}
	out := mat.NewDense(6, cols, nil)
	out.Mul(SpatialRotation(r), j)
	return out, nil
}

// SelectionMatrices builds the complementary diagonal selection matrices for hybrid
// motion/force control. T holds the mask and Y holds its complement, so T + Y = I.
func SelectionMatrices(mask [6]bool) (t, y *mat.DiagDense) {
	tDiag := make([]float64, 6)
	yDiag := make([]float64, 6)
	for i, selected := range mask {
		if selected {
			tDiag[i] = 1
		} else {
			yDiag[i] = 1
		}
	}
	return mat.NewDiagDense(6, tDiag), mat.NewDiagDense(6, yDiag)
}

// PoseErrorTwist returns the error between a target and a current pose as a 6-vector. The
// linear part is the plain difference of positions. The angular part is the axis-angle of the
// rotation taking current onto target, Rt·Rcᵀ.
func PoseErrorTwist(target, current Pose) Vector6 {
	return NewVector6(target.Point.Sub(current.Point), OrientationError(target, current))
}

// OrientationError returns the axis-angle vector of Rt·Rcᵀ.
func OrientationError(target, current Pose) r3.Vector {
	rel := target.Rotation().Mul(current.Rotation().Transpose())
	return QuatToAxisAngle(rel.Quaternion())
}
