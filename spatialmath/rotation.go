package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/robokit/kinsim/utils"
)

// RotationMatrix is a 3x3 rotation stored in row-major order.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates a rotation matrix from nine row-major values.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, utils.NewDimensionMismatchError("rotation matrix", 9, len(m))
	}
	var r RotationMatrix
	copy(r.mat[:], m)
	return &r, nil
}

// IdentityRotation returns the 3x3 identity.
func IdentityRotation() *RotationMatrix {
	return &RotationMatrix{mat: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// QuatToRotationMatrix converts a unit quaternion to its rotation matrix.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return &RotationMatrix{mat: [9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}}
}

// At returns the value at the given row and column.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[row*3+col]
}

// Row returns one row of the matrix as a vector.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm.mat[row*3], Y: rm.mat[row*3+1], Z: rm.mat[row*3+2]}
}

// Col returns one column of the matrix as a vector.
func (rm *RotationMatrix) Col(col int) r3.Vector {
	return r3.Vector{X: rm.mat[col], Y: rm.mat[3+col], Z: rm.mat[6+col]}
}

// Transpose returns the transpose, which is also the inverse rotation.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	var t RotationMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			t.mat[j*3+i] = rm.mat[i*3+j]
		}
	}
	return &t
}

// Mul returns rm·other.
func (rm *RotationMatrix) Mul(other *RotationMatrix) *RotationMatrix {
	var out RotationMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += rm.mat[i*3+k] * other.mat[k*3+j]
			}
			out.mat[i*3+j] = sum
		}
	}
	return &out
}

// MulVec returns rm·v.
func (rm *RotationMatrix) MulVec(v r3.Vector) r3.Vector {
	return r3.Vector{X: rm.Row(0).Dot(v), Y: rm.Row(1).Dot(v), Z: rm.Row(2).Dot(v)}
}

// Dense returns the rotation as a 3x3 gonum matrix.
func (rm *RotationMatrix) Dense() *mat.Dense {
	data := make([]float64, 9)
	copy(data, rm.mat[:])
	return mat.NewDense(3, 3, data)
}

// Quaternion converts the rotation back to a unit quaternion.
func (rm *RotationMatrix) Quaternion() quat.Number {
	// mgl64 matrices are column-major.
	m3 := mgl64.Mat3{
		rm.mat[0], rm.mat[3], rm.mat[6],
		rm.mat[1], rm.mat[4], rm.mat[7],
		rm.mat[2], rm.mat[5], rm.mat[8],
	}
	q := mgl64.Mat4ToQuat(m3.Mat4())
	return Normalize(quat.Number{Real: q.W, Imag: q.V[0], Jmag: q.V[1], Kmag: q.V[2]})
}

// RPY returns fixed-axis roll, pitch and yaw angles, the inverse of QuatFromRPY.
func (rm *RotationMatrix) RPY() (roll, pitch, yaw float64) {
	sp := -rm.At(2, 0)
	if sp > 1 {
		sp = 1
	} else if sp < -1 {
		sp = -1
	}
	pitch = math.Asin(sp)
	if math.Abs(sp) > 1-1e-9 {
		// gimbal lock, fold everything into yaw
		return 0, pitch, math.Atan2(-rm.At(0, 1), rm.At(1, 1))
	}
	return math.Atan2(rm.At(2, 1), rm.At(2, 2)), pitch, math.Atan2(rm.At(1, 0), rm.At(0, 0))
}
