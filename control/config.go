package control

import (
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/logging"
	"github.com/robokit/kinsim/referenceframe"
	"github.com/robokit/kinsim/utils"
)

// StageType names a stage in configuration.
type StageType string

// The known stage types.
const (
	StageJointPositions                 StageType = "joint_positions"
	StageJointVelocities                StageType = "joint_velocities"
	StageJointTorques                   StageType = "joint_torques"
	StageZeroVelocityHold               StageType = "zero_velocity_hold"
	StageEEPositionToEEVelocity         StageType = "ee_position_to_ee_velocity"
	StageEEForceHybridToEEVelocity      StageType = "ee_force_hybrid_to_ee_velocity"
	StageEEVelocityToJointVelocity      StageType = "ee_velocity_to_joint_velocity"
	StageEELocalVelocityToJointVelocity StageType = "ee_local_velocity_to_joint_velocity"
)

// StageConfig describes one stage of a cascade.
//
// The PID stages read kp, ki, kd (a number for every axis or a list of six), dt and windup. The
// hybrid stage also reads mask (six bools, true for pose controlled axes), stiffness (a number or
// six diagonal entries) and basis (a frame name, global by default).
type StageConfig struct {
	Type       StageType          `yaml:"type" json:"type"`
	Attributes utils.AttributeMap `yaml:"attributes,omitempty" json:"attributes,omitempty"`
}

// Validate checks that the stage can be built.
func (cfg StageConfig) Validate(path string) error {
	if cfg.Type == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "type")
	}
	if _, err := NewStage(cfg); err != nil {
		return errors.Wrap(err, path)
	}
	return nil
}

// NewStage builds the stage described by cfg.
func NewStage(cfg StageConfig) (Stage, error) {
	switch cfg.Type {
	case StageJointPositions:
		return NewJointPositions(), nil
	case StageJointVelocities:
		return NewJointVelocities(), nil
	case StageJointTorques:
		return NewJointTorques(), nil
	case StageZeroVelocityHold:
		return NewZeroVelocityHold(), nil
	case StageEEVelocityToJointVelocity:
		return NewEEVelocityToJointVelocity(), nil
	case StageEELocalVelocityToJointVelocity:
		return NewEELocalVelocityToJointVelocity(), nil
	case StageEEPositionToEEVelocity:
		pid, err := posePIDFromAttributes(cfg.Attributes)
		if err != nil {
			return nil, err
		}
		return NewEEPositionToEEVelocity(pid)
	case StageEEForceHybridToEEVelocity:
		pid, err := posePIDFromAttributes(cfg.Attributes)
		if err != nil {
			return nil, err
		}
		mask, err := maskFromAttributes(cfg.Attributes)
		if err != nil {
			return nil, err
		}
		stiffness, err := diagFromAttributes(cfg.Attributes, "stiffness", 1)
		if err != nil {
			return nil, err
		}
		basis, err := cfg.Attributes.String("basis", referenceframe.Global)
		if err != nil {
			return nil, err
		}
		return NewEEForceHybridToEEVelocity(pid, mask, stiffness, basis)
	default:
		return nil, errors.Errorf("unknown stage type %q", cfg.Type)
	}
}

// NewCascadeFromConfig builds a cascade from stage configs.
func NewCascadeFromConfig(act Actuator, cfgs []StageConfig, logger logging.Logger) (*Cascade, error) {
	stages := make([]Stage, 0, len(cfgs))
	for i, cfg := range cfgs {
		s, err := NewStage(cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "stage %d", i)
		}
		stages = append(stages, s)
	}
	return NewCascade(act, logger, stages...)
}

func posePIDFromAttributes(am utils.AttributeMap) (*VectorPID, error) {
	kp, err := diagFromAttributes(am, "kp", DefaultKp)
	if err != nil {
		return nil, err
	}
	ki, err := diagFromAttributes(am, "ki", DefaultKi)
	if err != nil {
		return nil, err
	}
	kd, err := diagFromAttributes(am, "kd", DefaultKd)
	if err != nil {
		return nil, err
	}
	dt, err := am.Float64("dt", DefaultDT)
	if err != nil {
		return nil, err
	}
	windup, err := sixFromAttributes(am, "windup", DefaultWindup)
	if err != nil {
		return nil, err
	}
	return NewVectorPID(kp, ki, kd, dt, windup)
}

// sixFromAttributes reads a number applied to all six axes, or a list of six.
func sixFromAttributes(am utils.AttributeMap, name string, def float64) ([]float64, error) {
	if v, err := am.Float64(name, def); err == nil {
		return []float64{v, v, v, v, v, v}, nil
	}
	values, err := am.Float64Slice(name)
	if err != nil {
		return nil, err
	}
	if len(values) != 6 {
		return nil, utils.NewDimensionMismatchError(name, 6, len(values))
	}
	return values, nil
}

func diagFromAttributes(am utils.AttributeMap, name string, def float64) (*mat.DiagDense, error) {
	values, err := sixFromAttributes(am, name, def)
	if err != nil {
		return nil, err
	}
	return mat.NewDiagDense(6, values), nil
}

func maskFromAttributes(am utils.AttributeMap) ([6]bool, error) {
	var mask [6]bool
	values, err := am.BoolSlice("mask")
	if err != nil {
		return mask, err
	}
	if values == nil {
		return [6]bool{true, true, true, true, true, true}, nil
	}
	if len(values) != 6 {
		return mask, utils.NewDimensionMismatchError("mask", 6, len(values))
	}
	copy(mask[:], values)
	return mask, nil
}
