package control

import (
	"math"
	"reflect"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/utils"
)

// Defaults of the pose PID used by the Cartesian stages.
const (
	DefaultKp     = 10.0
	DefaultKi     = 1e-4
	DefaultKd     = 1e-1
	DefaultDT     = 1e-3
	DefaultWindup = 0.1
)

// derivativeEpsilon keeps the derivative term finite for tiny time steps.
const derivativeEpsilon = 1e-3

// VectorPID is a discrete PID law over vectors with matrix gains. The integral term is clamped
// component-wise to the windup bound.
type VectorPID struct {
	p, i, d  mat.Matrix
	dt       float64
	windup   []float64
	integral []float64
	lastErr  []float64
}

// NewVectorPID returns a PID with square n×n gains, a time step and an n-vector windup bound.
func NewVectorPID(p, i, d mat.Matrix, dt float64, windup []float64) (*VectorPID, error) {
	gains := map[string]mat.Matrix{"P": p, "I": i, "D": d}
	for what, m := range gains {
		if isNilMatrix(m) {
			return nil, errors.Errorf("%s gain is required", what)
		}
	}
	n, _ := p.Dims()
	for what, m := range gains {
		r, c := m.Dims()
		if r != n {
			return nil, utils.NewDimensionMismatchError(what+" gain rows", n, r)
		}
		if c != n {
			return nil, utils.NewDimensionMismatchError(what+" gain columns", n, c)
		}
	}
	if len(windup) != n {
		return nil, utils.NewDimensionMismatchError("windup", n, len(windup))
	}
	for k, w := range windup {
		if !(w >= 0) {
			return nil, errors.Errorf("windup bound %d must be non-negative, got %v", k, w)
		}
	}
	if dt <= 0 {
		return nil, errors.Errorf("PID time step must be positive, got %v", dt)
	}
	return &VectorPID{
		p:        p,
		i:        i,
		d:        d,
		dt:       dt,
		windup:   append([]float64(nil), windup...),
		integral: make([]float64, n),
		lastErr:  make([]float64, n),
	}, nil
}

func isNilMatrix(m mat.Matrix) bool {
	if m == nil {
		return true
	}
	v := reflect.ValueOf(m)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// NewPosePID returns the 6-axis PID used on pose errors, with scalar gains on every axis.
func NewPosePID(kp, ki, kd, dt, windup float64) (*VectorPID, error) {
	return NewVectorPID(
		scaledIdentity(6, kp),
		scaledIdentity(6, ki),
		scaledIdentity(6, kd),
		dt,
		[]float64{windup, windup, windup, windup, windup, windup},
	)
}

// NewDefaultPosePID returns a pose PID with the default gains.
func NewDefaultPosePID() *VectorPID {
	pid, err := NewPosePID(DefaultKp, DefaultKi, DefaultKd, DefaultDT, DefaultWindup)
	if err != nil {
		panic(err)
	}
	return pid
}

func scaledIdentity(n int, s float64) *mat.DiagDense {
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = s
	}
	return mat.NewDiagDense(n, diag)
}

// Dim returns the length of the vectors the PID works on.
func (pid *VectorPID) Dim() int {
	return len(pid.windup)
}

// U returns the control for the given error and advances the PID's memory.
func (pid *VectorPID) U(err []float64) ([]float64, error) {
	n := pid.Dim()
	if len(err) != n {
		return nil, utils.NewDimensionMismatchError("PID error", n, len(err))
	}

	raw, mulErr := spatialmath.MulVec(pid.i, err)
	if mulErr != nil {
		return nil, mulErr
	}
	floats.Scale(pid.dt, raw)
	floats.Add(raw, pid.integral)
	for k, v := range raw {
		pid.integral[k] = math.Copysign(math.Min(pid.windup[k], math.Abs(v)), v)
	}

	dErr := make([]float64, n)
	floats.SubTo(dErr, err, pid.lastErr)
	floats.Scale(1/(pid.dt+derivativeEpsilon), dErr)

	u, mulErr := spatialmath.MulVec(pid.p, err)
	if mulErr != nil {
		return nil, mulErr
	}
	dTerm, mulErr := spatialmath.MulVec(pid.d, dErr)
	if mulErr != nil {
		return nil, mulErr
	}
	floats.Add(u, pid.integral)
	floats.Add(u, dTerm)
	copy(pid.lastErr, err)
	return u, nil
}

// Integral returns a copy of the accumulated integral term.
func (pid *VectorPID) Integral() []float64 {
	return append([]float64(nil), pid.integral...)
}

// Reset clears the integral and the remembered error.
func (pid *VectorPID) Reset() {
	for k := range pid.integral {
		pid.integral[k] = 0
		pid.lastErr[k] = 0
	}
}
