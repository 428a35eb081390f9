package spatialmath

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/utils"
)

// PseudoInverse returns the Moore-Penrose pseudo-inverse of m computed through a thin SVD.
// Singular values below max(rows, cols)·σmax·ε are treated as zero, so rank deficient inputs
// (singular Jacobians) still produce a finite result.
func PseudoInverse(m mat.Matrix) (*mat.Dense, error) {
	rows, cols := m.Dims()
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return nil, errors.New("singular value decomposition failed to converge")
	}
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var sigmaMax float64
	for _, s := range values {
		sigmaMax = math.Max(sigmaMax, s)
	}
	tol := float64(max(rows, cols)) * sigmaMax * 2.220446049250313e-16

	inv := make([]float64, len(values))
	for i, s := range values {
		if s > tol {
			inv[i] = 1 / s
		}
	}

	// V · Σ⁺ · Uᵀ
	var vs mat.Dense
	vs.Mul(&v, mat.NewDiagDense(len(inv), inv))
	out := mat.NewDense(cols, rows, nil)
	out.Mul(&vs, u.T())
	return out, nil
}

// MulVec returns m·v as a new slice.
func MulVec(m mat.Matrix, v []float64) ([]float64, error) {
	rows, cols := m.Dims()
	if cols != len(v) {
		return nil, utils.NewDimensionMismatchError("matrix-vector product", cols, len(v))
	}
	if cols == 0 {
		return make([]float64, rows), nil
	}
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(len(v), append([]float64(nil), v...)))
	return out.RawVector().Data, nil
}
