// Package scenario drives the robots of a scenario file through a world: it builds the robots and
// their control cascades, attaches and detaches tools on schedule, and records how closely each
// robot tracks its target.
package scenario

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/floats"

	"github.com/robokit/kinsim/config"
	"github.com/robokit/kinsim/control"
	"github.com/robokit/kinsim/logging"
	"github.com/robokit/kinsim/robot"
	"github.com/robokit/kinsim/sim"
	"github.com/robokit/kinsim/state"
)

// Tool actions reported in events.
const (
	ActionAttach = "attach"
	ActionDetach = "detach"
)

// Sample is the tracking error of one robot at a point in simulated time.
type Sample struct {
	Time  float64
	Error float64
}

// Trace is the tracking error history of one robot.
type Trace struct {
	Robot   string
	Samples []Sample
	// Failures counts ticks on which the cascade produced no command.
	Failures int
}

// Errors returns the error values of the trace.
func (t Trace) Errors() []float64 {
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = s.Error
	}
	return out
}

// Event is a tool being attached or detached.
type Event struct {
	Time   float64
	Robot  string
	Tool   string
	Action string
}

// Result is what a run produced.
type Result struct {
	Steps   int
	SimTime float64
	Traces  []Trace
	Events  []Event
}

type toolState struct {
	cfg      config.ToolConfig
	attached bool
	done     bool
}

type entry struct {
	cfg     config.RobotConfig
	robot   *robot.Robot
	cascade *control.Cascade
	target  *state.Motion
	metric  Metric
	tools   []*toolState
	trace   Trace
}

// Runner owns the world built from a scenario.
type Runner struct {
	cfg     *config.Config
	world   *sim.World
	logger  logging.Logger
	entries []*entry
}

// New builds the world, robots, cascades and objects of cfg.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...sim.WorldOption) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	world, err := sim.NewWorld(cfg.World.Sim(), logger.Sublogger("world"), opts...)
	if err != nil {
		return nil, err
	}
	r := &Runner{cfg: cfg, world: world, logger: logger}
	if err := r.build(ctx); err != nil {
		return nil, multierr.Combine(err, world.Close(ctx))
	}
	return r, nil
}

func (r *Runner) build(ctx context.Context) error {
	for _, oc := range r.cfg.Objects {
		if err := r.world.AddObject(ctx, oc.Name, oc.URDF, oc.Pose.Pose(), oc.Persist); err != nil {
			return errors.Wrapf(err, "object %q", oc.Name)
		}
	}
	for _, rc := range r.cfg.Robots {
		e, err := r.buildRobot(ctx, rc)
		if err != nil {
			return errors.Wrapf(err, "robot %q", rc.Name)
		}
		r.entries = append(r.entries, e)
	}
	return nil
}

func (r *Runner) buildRobot(ctx context.Context, rc config.RobotConfig) (*entry, error) {
	logger := r.logger.Sublogger(rc.Name)
	rob, err := robot.NewFromURDF(
		robot.Config{Name: rc.Name, BasePose: rc.Base.Pose(), EELink: rc.EELink},
		rc.URDF, r.world.Engine(), logger,
	)
	if err != nil {
		return nil, err
	}
	// the world owns the robot from here and closes it
	if err := r.world.AddRobot(ctx, rob); err != nil {
		return nil, err
	}
	if rc.ForceSensorLink != "" {
		if err := rob.ApplyForceSensor(rc.ForceSensorLink); err != nil {
			return nil, err
		}
	}
	if g := rc.Gains; g != nil {
		if err := rob.SetJointControllerParams(g.KP, g.KD, g.MaxTorque); err != nil {
			return nil, err
		}
	}
	cascade, err := control.NewCascadeFromConfig(rob, rc.Stages, logger.Sublogger("control"))
	if err != nil {
		return nil, err
	}
	target, err := rc.Motion()
	if err != nil {
		return nil, err
	}
	e := &entry{
		cfg:     rc,
		robot:   rob,
		cascade: cascade,
		target:  target,
		metric:  MetricFor(rc.Target),
		trace:   Trace{Robot: rc.Name},
	}
	for _, tc := range rc.Tools {
		e.tools = append(e.tools, &toolState{cfg: tc})
	}
	return e, nil
}

// World returns the world the runner drives.
func (r *Runner) World() *sim.World {
	return r.world
}

// Robot returns the named robot.
func (r *Runner) Robot(name string) (*robot.Robot, bool) {
	for _, e := range r.entries {
		if e.cfg.Name == name {
			return e.robot, true
		}
	}
	return nil, false
}

// Run steps the world for the scenario's duration. Each tick it applies the tool schedule, submits
// every cascade, steps the world and samples the tracking error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	dt := r.cfg.World.TimeStep
	steps := int(math.Round(r.cfg.Duration / dt))
	res := &Result{}

	for _, e := range r.entries {
		r.sample(e)
	}
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		now := r.world.SimTime()
		for _, e := range r.entries {
			events, err := r.applySchedule(ctx, e, now)
			if err != nil {
				return nil, err
			}
			res.Events = append(res.Events, events...)
		}
		for _, e := range r.entries {
			// stages rewrite their target in place
			ok, err := e.cascade.Submit(ctx, e.target.Clone())
			if err != nil {
				return nil, errors.Wrapf(err, "robot %q", e.cfg.Name)
			}
			if !ok {
				e.trace.Failures++
			}
		}
		if err := r.world.Step(ctx); err != nil {
			return nil, err
		}
		for _, e := range r.entries {
			r.sample(e)
		}
	}

	res.Steps = steps
	res.SimTime = r.world.SimTime()
	for _, e := range r.entries {
		res.Traces = append(res.Traces, e.trace)
	}
	return res, nil
}

func (r *Runner) applySchedule(ctx context.Context, e *entry, now float64) ([]Event, error) {
	var events []Event
	for _, ts := range e.tools {
		switch {
		case ts.done:
		case !ts.attached && now >= ts.cfg.AttachAt:
			if err := e.robot.ConnectTool(ctx, ts.cfg.Name, ts.cfg.URDF, ts.cfg.Link, ts.cfg.Offset.Pose(), ts.cfg.Persist); err != nil {
				return nil, errors.Wrapf(err, "attaching %q to %q", ts.cfg.Name, e.cfg.Name)
			}
			ts.attached = true
			ts.done = ts.cfg.DetachAt == 0
			events = append(events, Event{Time: now, Robot: e.cfg.Name, Tool: ts.cfg.Name, Action: ActionAttach})
		case ts.attached && now >= ts.cfg.DetachAt:
			if err := e.robot.RemoveTool(ctx, ts.cfg.Name); err != nil {
				return nil, errors.Wrapf(err, "detaching %q from %q", ts.cfg.Name, e.cfg.Name)
			}
			ts.attached, ts.done = false, true
			events = append(events, Event{Time: now, Robot: e.cfg.Name, Tool: ts.cfg.Name, Action: ActionDetach})
		}
	}
	return events, nil
}

func (r *Runner) sample(e *entry) {
	errVal, err := TrackingError(e.robot, e.target, e.metric)
	if err != nil {
		r.logger.Debugw("cannot sample tracking error", "robot", e.cfg.Name, "error", err)
		return
	}
	if math.IsNaN(errVal) {
		return
	}
	e.trace.Samples = append(e.trace.Samples, Sample{Time: r.world.SimTime(), Error: errVal})
}

// Metric selects what TrackingError compares.
type Metric int

// The tracking metrics.
const (
	MetricNone Metric = iota
	// MetricPosition is the distance between the end-effector origin and the target position.
	MetricPosition
	// MetricTwist is the norm of the end-effector twist difference.
	MetricTwist
	// MetricJointPositions is the Euclidean distance in joint space.
	MetricJointPositions
	// MetricJointVelocities is the Euclidean distance between joint velocity vectors.
	MetricJointVelocities
)

// MetricFor picks the metric for a target, preferring the pose over the twist and positions over
// velocities.
func MetricFor(t config.TargetConfig) Metric {
	switch {
	case t.Pose != nil:
		return MetricPosition
	case t.Twist != nil:
		return MetricTwist
	case t.JointPositions != nil:
		return MetricJointPositions
	case t.JointVelocities != nil:
		return MetricJointVelocities
	default:
		return MetricNone
	}
}

// TrackingError measures how far act is from target under metric. The result is NaN when the
// metric is MetricNone or the joint count no longer matches the target.
func TrackingError(act control.Actuator, target *state.Motion, metric Metric) (float64, error) {
	switch metric {
	case MetricPosition, MetricTwist:
		ee := target.EE
		cur, err := act.EEState(ee.EELink, ee.RefFrame)
		if err != nil {
			return 0, err
		}
		if metric == MetricPosition {
			return cur.TF.Point.Sub(ee.TF.Point).Norm(), nil
		}
		return cur.Twist.Sub(ee.Twist).Norm(), nil
	case MetricJointPositions, MetricJointVelocities:
		cur, err := act.JointState()
		if err != nil {
			return 0, err
		}
		js := target.Joint
		if cur.NumJoints() != js.NumJoints() {
			return math.NaN(), nil
		}
		if metric == MetricJointPositions {
			return floats.Distance(cur.Positions, js.Positions, 2), nil
		}
		return floats.Distance(cur.Velocities, js.Velocities, 2), nil
	default:
		return math.NaN(), nil
	}
}

// Close releases every robot and the world.
func (r *Runner) Close(ctx context.Context) error {
	return r.world.Close(ctx)
}
