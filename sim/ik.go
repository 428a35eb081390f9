package sim

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/spatialmath"
)

// ikSolver is a damped least squares solver. When progress stalls it restarts from the rest pose
// with one joint nudged, trying each joint in both directions, and keeps the best result seen.
type ikSolver struct {
	m          *model
	epsilon    float64
	damping    float64
	iterations int
	restartAt  int
	maxStep    float64
}

func newIKSolver(m *model) *ikSolver {
	return &ikSolver{
		m:          m,
		epsilon:    1e-6,
		damping:    0.05,
		iterations: 3000,
		restartAt:  150,
		maxStep:    0.2,
	}
}

// solve returns the best joint positions found and the norm of their residual pose error.
func (ik *ikSolver) solve(link int, target spatialmath.Pose, rest []float64) ([]float64, float64) {
	n := len(rest)
	q := append([]float64(nil), rest...)
	best := append([]float64(nil), rest...)
	bestErr := ik.residual(link, target, q).Norm()

	jointMut := 0
	jointAmt := 0.05
	for iteration := 1; iteration <= ik.iterations; iteration++ {
		dx := ik.residual(link, target, q)
		errNorm := dx.Norm()
		if errNorm < bestErr {
			bestErr = errNorm
			copy(best, q)
		}
		if errNorm < ik.epsilon {
			return best, bestErr
		}

		dq, ok := ik.dampedStep(link, q, dx)
		if !ok {
			break
		}
		if norm := floats.Norm(dq, 2); norm > ik.maxStep {
			floats.Scale(ik.maxStep/norm, dq)
		}
		floats.Add(q, dq)

		if iteration%ik.restartAt == 0 {
			copy(q, rest)
			if jointMut < n {
				q[jointMut] += jointAmt
				jointAmt *= -1
				if jointAmt > 0 {
					jointMut++
				}
			}
		}
	}
	return best, bestErr
}

func (ik *ikSolver) residual(link int, target spatialmath.Pose, q []float64) spatialmath.Vector6 {
	return spatialmath.PoseErrorTwist(target, ik.m.linkPose(link, q))
}

// dampedStep computes Jᵀ(JJᵀ + λ²I)⁻¹·dx.
func (ik *ikSolver) dampedStep(link int, q []float64, dx spatialmath.Vector6) ([]float64, bool) {
	jac, err := ik.m.jacobian(link, q)
	if err != nil {
		return nil, false
	}
	var jjt mat.Dense
	jjt.Mul(jac, jac.T())
	for i := 0; i < 6; i++ {
		jjt.Set(i, i, jjt.At(i, i)+ik.damping*ik.damping)
	}
	var y mat.VecDense
	if err := y.SolveVec(&jjt, dx.VecDense()); err != nil {
		return nil, false
	}
	var dq mat.VecDense
	dq.MulVec(jac.T(), &y)
	return dq.RawVector().Data, true
}
