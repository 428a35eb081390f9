package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/utils"
)

// Vector6 is a stacked spatial 6-vector, linear part first. Twists are (v, ω) and wrenches are
// (f, τ).
type Vector6 [6]float64

// NewVector6 stacks a linear and an angular part.
func NewVector6(linear, angular r3.Vector) Vector6 {
	return Vector6{linear.X, linear.Y, linear.Z, angular.X, angular.Y, angular.Z}
}

// Vector6FromSlice copies six values into a Vector6.
func Vector6FromSlice(s []float64) (Vector6, error) {
	var v Vector6
	if len(s) != 6 {
		return v, utils.NewDimensionMismatchError("spatial vector", 6, len(s))
	}
	copy(v[:], s)
	return v, nil
}

// Vector6FromVec copies a length-6 gonum vector into a Vector6.
func Vector6FromVec(vec mat.Vector) (Vector6, error) {
	var v Vector6
	if vec.Len() != 6 {
		return v, utils.NewDimensionMismatchError("spatial vector", 6, vec.Len())
	}
	for i := range v {
		v[i] = vec.AtVec(i)
	}
	return v, nil
}

// Linear returns the first three components.
func (v Vector6) Linear() r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// Angular returns the last three components.
func (v Vector6) Angular() r3.Vector {
	return r3.Vector{X: v[3], Y: v[4], Z: v[5]}
}

// Add returns v+o.
func (v Vector6) Add(o Vector6) Vector6 {
	floats.Add(v[:], o[:])
	return v
}

// Sub returns v-o.
func (v Vector6) Sub(o Vector6) Vector6 {
	floats.Sub(v[:], o[:])
	return v
}

// Scale returns s·v.
func (v Vector6) Scale(s float64) Vector6 {
	floats.Scale(s, v[:])
	return v
}

// Norm returns the euclidean norm over all six components.
func (v Vector6) Norm() float64 {
	return floats.Norm(v[:], 2)
}

// Slice returns the components as a new slice.
func (v Vector6) Slice() []float64 {
	out := make([]float64, 6)
	copy(out, v[:])
	return out
}

// VecDense returns the components as a new gonum vector.
func (v Vector6) VecDense() *mat.VecDense {
	return mat.NewVecDense(6, v.Slice())
}

// AlmostEqual compares componentwise within eps.
func (v Vector6) AlmostEqual(o Vector6, eps float64) bool {
	for i := range v {
		if math.Abs(v[i]-o[i]) > eps {
			return false
		}
	}
	return true
}

func (v Vector6) String() string {
	return fmt.Sprintf("[%.4f %.4f %.4f | %.4f %.4f %.4f]", v[0], v[1], v[2], v[3], v[4], v[5])
}
