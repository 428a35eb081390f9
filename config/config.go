// Package config reads scenario files: the world's time base, the robots with their tools and
// control cascades, and the static objects placed around them.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
	"gopkg.in/yaml.v3"

	"github.com/robokit/kinsim/control"
	"github.com/robokit/kinsim/referenceframe"
	"github.com/robokit/kinsim/sim"
	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/state"
)

// Defaults for a scenario.
const (
	DefaultTimeStep  = 1e-3
	DefaultTimeScale = 1.0
	DefaultDuration  = 1.0
)

// Config is a whole scenario.
type Config struct {
	World    WorldConfig    `yaml:"world"`
	Duration float64        `yaml:"duration"`
	Robots   []RobotConfig  `yaml:"robots"`
	Objects  []ObjectConfig `yaml:"objects,omitempty"`
}

// WorldConfig is the time base of the simulation.
type WorldConfig struct {
	TimeStep  float64 `yaml:"time_step"`
	TimeScale float64 `yaml:"time_scale"`
	Pacing    bool    `yaml:"pacing"`
}

// PoseConfig is a pose written as a translation and roll, pitch, yaw angles in radians.
type PoseConfig struct {
	XYZ [3]float64 `yaml:"xyz,flow"`
	RPY [3]float64 `yaml:"rpy,flow"`
}

// RobotConfig describes one robot and how it is driven.
type RobotConfig struct {
	Name            string                `yaml:"name"`
	URDF            string                `yaml:"urdf"`
	Base            PoseConfig            `yaml:"base"`
	EELink          string                `yaml:"ee_link"`
	ForceSensorLink string                `yaml:"force_sensor_link,omitempty"`
	Gains           *GainsConfig          `yaml:"gains,omitempty"`
	Tools           []ToolConfig          `yaml:"tools,omitempty"`
	Stages          []control.StageConfig `yaml:"stages"`
	Target          TargetConfig          `yaml:"target"`
}

// GainsConfig holds per joint controller parameters, one entry per actuated joint.
type GainsConfig struct {
	KP        []float64 `yaml:"kp,flow"`
	KD        []float64 `yaml:"kd,flow"`
	MaxTorque []float64 `yaml:"max_torque,flow"`
}

// ToolConfig is a tool attached to a robot during the run. It is attached at AttachAt seconds of
// simulated time and, when DetachAt is later than AttachAt, removed again at DetachAt.
type ToolConfig struct {
	Name     string     `yaml:"name"`
	URDF     string     `yaml:"urdf"`
	Link     string     `yaml:"link"`
	Offset   PoseConfig `yaml:"offset"`
	Persist  bool       `yaml:"persist"`
	AttachAt float64    `yaml:"attach_at"`
	DetachAt float64    `yaml:"detach_at,omitempty"`
}

// TargetConfig is the motion a robot's cascade follows. Joint space cascades read the joint
// arrays; Cartesian cascades read the pose, twist and wrench of the robot's end-effector link
// relative to RefFrame.
type TargetConfig struct {
	RefFrame        string      `yaml:"ref_frame,omitempty"`
	Pose            *PoseConfig `yaml:"pose,omitempty"`
	Twist           []float64   `yaml:"twist,omitempty,flow"`
	ForceTorque     []float64   `yaml:"force_torque,omitempty,flow"`
	JointPositions  []float64   `yaml:"joint_positions,omitempty,flow"`
	JointVelocities []float64   `yaml:"joint_velocities,omitempty,flow"`
	JointTorques    []float64   `yaml:"joint_torques,omitempty,flow"`
}

// ObjectConfig is a static object in the world.
type ObjectConfig struct {
	Name    string     `yaml:"name"`
	URDF    string     `yaml:"urdf"`
	Pose    PoseConfig `yaml:"pose"`
	Persist bool       `yaml:"persist"`
}

// DefaultConfig returns a scenario with the default time base and nothing in it.
func DefaultConfig() *Config {
	return &Config{
		World: WorldConfig{
			TimeStep:  DefaultTimeStep,
			TimeScale: DefaultTimeScale,
		},
		Duration: DefaultDuration,
	}
}

// Load reads and validates the scenario at path. Relative URDF paths are resolved against the
// directory of the scenario file.
func Load(path string) (*Config, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading scenario")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "decoding scenario %q", path)
	}
	cfg.resolvePaths(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the scenario as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) resolvePaths(dir string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	for i := range c.Robots {
		c.Robots[i].URDF = resolve(c.Robots[i].URDF)
		for j := range c.Robots[i].Tools {
			c.Robots[i].Tools[j].URDF = resolve(c.Robots[i].Tools[j].URDF)
		}
	}
	for i := range c.Objects {
		c.Objects[i].URDF = resolve(c.Objects[i].URDF)
	}
}

// Validate checks the whole scenario.
func (c *Config) Validate() error {
	if err := c.World.Validate("world"); err != nil {
		return err
	}
	if c.Duration <= 0 {
		return goutils.NewConfigValidationError("duration", errors.New("must be positive"))
	}
	names := map[string]bool{}
	for i, r := range c.Robots {
		path := fmt.Sprintf("robots.%d", i)
		if err := r.Validate(path); err != nil {
			return err
		}
		if names[r.Name] {
			return goutils.NewConfigValidationError(path, errors.Errorf("duplicate name %q", r.Name))
		}
		names[r.Name] = true
	}
	for i, o := range c.Objects {
		path := fmt.Sprintf("objects.%d", i)
		if err := o.Validate(path); err != nil {
			return err
		}
		if names[o.Name] {
			return goutils.NewConfigValidationError(path, errors.Errorf("duplicate name %q", o.Name))
		}
		names[o.Name] = true
	}
	return nil
}

// Validate checks the time base.
func (w WorldConfig) Validate(path string) error {
	if err := w.Sim().Validate(); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	return nil
}

// Sim converts the time base for sim.NewWorld.
func (w WorldConfig) Sim() sim.WorldConfig {
	return sim.WorldConfig{TimeStep: w.TimeStep, TimeScale: w.TimeScale, Pacing: w.Pacing}
}

// Pose converts to a spatialmath.Pose.
func (p PoseConfig) Pose() spatialmath.Pose {
	return spatialmath.NewPoseFromRPY(r3.Vector{X: p.XYZ[0], Y: p.XYZ[1], Z: p.XYZ[2]}, p.RPY[0], p.RPY[1], p.RPY[2])
}

// Validate checks the robot, its tools and its cascade.
func (r *RobotConfig) Validate(path string) error {
	if r.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if r.URDF == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "urdf")
	}
	if r.EELink == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "ee_link")
	}
	if len(r.Stages) == 0 {
		return goutils.NewConfigValidationFieldRequiredError(path, "stages")
	}
	for i, s := range r.Stages {
		if err := s.Validate(fmt.Sprintf("%s.stages.%d", path, i)); err != nil {
			return err
		}
	}
	if g := r.Gains; g != nil {
		if len(g.KP) != len(g.KD) || len(g.KP) != len(g.MaxTorque) {
			return goutils.NewConfigValidationError(path+".gains",
				errors.New("kp, kd and max_torque must have one entry per joint"))
		}
	}
	for i, tool := range r.Tools {
		if err := tool.Validate(fmt.Sprintf("%s.tools.%d", path, i)); err != nil {
			return err
		}
	}
	for what, v := range map[string][]float64{"twist": r.Target.Twist, "force_torque": r.Target.ForceTorque} {
		if v != nil && len(v) != 6 {
			return goutils.NewConfigValidationError(path+".target."+what, errors.New("must have 6 entries"))
		}
	}
	return nil
}

// Validate checks the tool.
func (t ToolConfig) Validate(path string) error {
	if t.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if t.URDF == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "urdf")
	}
	if t.Link == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "link")
	}
	if t.AttachAt < 0 || (t.DetachAt != 0 && t.DetachAt <= t.AttachAt) {
		return goutils.NewConfigValidationError(path, errors.New("detach_at must come after attach_at"))
	}
	return nil
}

// Validate checks the object.
func (o ObjectConfig) Validate(path string) error {
	if o.Name == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "name")
	}
	if o.URDF == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "urdf")
	}
	return nil
}

// Motion builds the target motion for the robot's end-effector link.
func (r *RobotConfig) Motion() (*state.Motion, error) {
	t := r.Target
	ref := t.RefFrame
	if ref == "" {
		ref = referenceframe.Global
	}
	ee := state.NewEEState(r.EELink, ref)
	if t.Pose != nil {
		ee.TF = t.Pose.Pose()
	}
	var err error
	if t.Twist != nil {
		if ee.Twist, err = spatialmath.Vector6FromSlice(t.Twist); err != nil {
			return nil, err
		}
	}
	if t.ForceTorque != nil {
		if ee.ForceTorque, err = spatialmath.Vector6FromSlice(t.ForceTorque); err != nil {
			return nil, err
		}
	}
	var js *state.JointState
	if t.JointPositions != nil || t.JointVelocities != nil || t.JointTorques != nil {
		if js, err = state.NewJointStateFrom(t.JointPositions, t.JointVelocities, t.JointTorques); err != nil {
			return nil, err
		}
	}
	return state.NewMotion(js, ee), nil
}
