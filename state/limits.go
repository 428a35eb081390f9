package state

import (
	"math"

	"github.com/pkg/errors"

	"github.com/robokit/kinsim/utils"
)

// Limit represents the limits of motion for a single joint quantity.
type Limit struct {
	Min float64
	Max float64
}

// Unbounded reports whether the limit places no restriction, as for continuous joints.
func (l Limit) Unbounded() bool {
	return l.Min >= l.Max
}

// Contains reports whether v lies within the limit. Unbounded limits contain everything.
func (l Limit) Contains(v float64) bool {
	return l.Unbounded() || (v >= l.Min && v <= l.Max)
}

// JointLimits holds per-joint position, velocity and torque limits in actuator order.
type JointLimits struct {
	Position []Limit
	Velocity []Limit
	Torque   []Limit
}

// NewJointLimits returns unbounded limits for n joints.
func NewJointLimits(n int) JointLimits {
	return JointLimits{
		Position: make([]Limit, n),
		Velocity: make([]Limit, n),
		Torque:   make([]Limit, n),
	}
}

// NumJoints returns the number of joints described.
func (jl JointLimits) NumJoints() int {
	return len(jl.Position)
}

// Validate checks that all three arrays describe the same number of joints.
func (jl JointLimits) Validate() error {
	n := len(jl.Position)
	if len(jl.Velocity) != n {
		return utils.NewDimensionMismatchError("velocity limits", n, len(jl.Velocity))
	}
	if len(jl.Torque) != n {
		return utils.NewDimensionMismatchError("torque limits", n, len(jl.Torque))
	}
	return nil
}

// Lower returns the lower position limits, with unbounded joints reported as -Inf.
func (jl JointLimits) Lower() []float64 {
	out := make([]float64, len(jl.Position))
	for i, l := range jl.Position {
		if l.Unbounded() {
			out[i] = math.Inf(-1)
		} else {
			out[i] = l.Min
		}
	}
	return out
}

// Upper returns the upper position limits, with unbounded joints reported as +Inf.
func (jl JointLimits) Upper() []float64 {
	out := make([]float64, len(jl.Position))
	for i, l := range jl.Position {
		if l.Unbounded() {
			out[i] = math.Inf(1)
		} else {
			out[i] = l.Max
		}
	}
	return out
}

// WrapPositions brings every joint position within its limits by at most one whole turn. The
// returned error names the first joint that cannot be brought into range.
func (jl JointLimits) WrapPositions(positions []float64) ([]float64, error) {
	if len(positions) != len(jl.Position) {
		return nil, utils.NewDimensionMismatchError("joint positions", len(jl.Position), len(positions))
	}
	out := make([]float64, len(positions))
	for i, q := range positions {
		lim := jl.Position[i]
		if lim.Unbounded() {
			out[i] = q
			continue
		}
		wrapped, ok := utils.WrapIntoLimits(q, lim.Min, lim.Max)
		if !ok {
			return nil, errors.Errorf("joint %d position %.4f outside limits [%.4f, %.4f]", i, q, lim.Min, lim.Max)
		}
		out[i] = wrapped
	}
	return out, nil
}
