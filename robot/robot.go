// Package robot drives one kinematic model loaded into a Backend. A Robot keeps the joint and link
// indices of the loaded model, reads its state in any named frame, sends primitive joint commands
// and grafts tools onto the model through a tree composer.
//
// A Robot is driven from a single goroutine, between simulation steps.
package robot

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/composer"
	"github.com/robokit/kinsim/logging"
	"github.com/robokit/kinsim/referenceframe"
	"github.com/robokit/kinsim/referenceframe/urdf"
	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/state"
	"github.com/robokit/kinsim/utils"
)

// Defaults for the per joint controller parameters.
const (
	DefaultPositionGain = 1.0
	DefaultVelocityGain = 1.0
	DefaultMaxTorque    = 100.0
)

// reachTolerance bounds the pose error ResetEEState accepts from inverse kinematics.
const reachTolerance = 1e-3

// TreeComposer maintains the tree description a Robot loads.
type TreeComposer interface {
	Active() string
	Stack() []composer.Attachment
	Restore(records []composer.Attachment) string
	Attach(toolName, toolPath, rootLink string, offset spatialmath.Pose, persist bool) (string, error)
	Detach(toolName string) string
	FilterPersistent() string
	Close() error
}

// Config describes a robot.
type Config struct {
	Name string
	// BasePose is the world pose of the model's root link.
	BasePose spatialmath.Pose
	// EELink is the default end-effector link.
	EELink string
}

type jointParams struct {
	kp, kd, maxTorque float64
}

// Robot is one model in a Backend. Every index it holds is rebuilt on reload.
type Robot struct {
	cfg      Config
	backend  Backend
	composer TreeComposer
	logger   logging.Logger

	id          ModelID
	initialized bool
	baseLink    string
	joints      []JointInfo
	actuated    []int
	linkIndex   map[string]int
	limits      state.JointLimits

	params     map[string]jointParams
	sensorLink string
}

var _ referenceframe.LinkQuerier = (*Robot)(nil)

// New returns a robot that is not yet loaded; call Reset to load it.
func New(cfg Config, backend Backend, comp TreeComposer, logger logging.Logger) (*Robot, error) {
	if cfg.Name == "" {
		return nil, errors.New("robot name is required")
	}
	return &Robot{
		cfg:       cfg,
		backend:   backend,
		composer:  comp,
		logger:    logger,
		linkIndex: map[string]int{},
		params:    map[string]jointParams{},
	}, nil
}

// NewFromURDF returns a robot whose base description is the URDF at path. Tool descriptions are
// merged into temporary files owned by the robot and removed by Close.
func NewFromURDF(cfg Config, path string, backend Backend, logger logging.Logger) (*Robot, error) {
	comp, err := composer.New[*urdf.ModelConfig](path, urdf.Editor{}, logger.Sublogger("composer"))
	if err != nil {
		return nil, err
	}
	r, err := New(cfg, backend, comp, logger)
	if err != nil {
		return nil, multierr.Combine(err, comp.Close())
	}
	return r, nil
}

// Name returns the robot's name.
func (r *Robot) Name() string {
	return r.cfg.Name
}

// EELink returns the default end-effector link.
func (r *Robot) EELink() string {
	return r.cfg.EELink
}

// BaseLink returns the root link of the loaded model.
func (r *Robot) BaseLink() string {
	return r.baseLink
}

// Initialized reports whether the model is loaded.
func (r *Robot) Initialized() bool {
	return r.initialized
}

// ID returns the backend id of the loaded model.
func (r *Robot) ID() (ModelID, error) {
	if !r.initialized {
		return 0, NewNotInitializedError(r.cfg.Name)
	}
	return r.id, nil
}

// Reset drops every non-persistent tool and reloads the model with all joints at rest.
func (r *Robot) Reset(ctx context.Context) error {
	path := r.composer.FilterPersistent()
	return r.load(ctx, path)
}

// ClearID forgets the loaded model without removing it. Use it after the backend has been emptied
// by someone else.
func (r *Robot) ClearID() {
	r.initialized = false
}

func (r *Robot) load(ctx context.Context, path string) error {
	if r.initialized {
		if err := r.backend.RemoveModel(ctx, r.id); err != nil {
			return err
		}
		r.initialized = false
	}
	id, err := r.backend.LoadModel(ctx, path, r.cfg.BasePose)
	if err != nil {
		return errors.Wrapf(err, "loading robot %q", r.cfg.Name)
	}
	if err := r.rebuild(id); err != nil {
		return multierr.Combine(err, r.backend.RemoveModel(ctx, id))
	}
	r.id, r.initialized = id, true

	if r.sensorLink != "" {
		if err := r.enableSensor(r.sensorLink); err != nil {
			r.logger.Warnw("force sensor link gone after reload", "link", r.sensorLink, "error", err)
			r.sensorLink = ""
		}
	}
	r.logger.Debugw("loaded model", "robot", r.cfg.Name, "path", path, "joints", len(r.actuated))
	return nil
}

func (r *Robot) rebuild(id ModelID) error {
	base, err := r.backend.BaseLink(id)
	if err != nil {
		return err
	}
	joints, err := r.backend.Joints(id)
	if err != nil {
		return err
	}
	actuated := lo.Filter(joints, func(j JointInfo, _ int) bool { return j.Actuated })

	linkIndex := map[string]int{base: BaseLinkIndex}
	for _, j := range joints {
		linkIndex[j.ChildLink] = j.Index
	}
	limits := state.NewJointLimits(len(actuated))
	for i, j := range actuated {
		limits.Position[i] = state.Limit{Min: j.Lower, Max: j.Upper}
		limits.Velocity[i] = state.Limit{Min: -j.MaxVelocity, Max: j.MaxVelocity}
		limits.Torque[i] = state.Limit{Min: -j.MaxEffort, Max: j.MaxEffort}
	}

	r.baseLink = base
	r.joints = joints
	r.actuated = lo.Map(actuated, func(j JointInfo, _ int) int { return j.Index })
	r.linkIndex = linkIndex
	r.limits = limits
	return nil
}

// ConnectTool merges the tool description at toolPath onto rootLink with the given offset and
// reloads the model, keeping the joint positions and velocities it had.
func (r *Robot) ConnectTool(
	ctx context.Context, toolName, toolPath, rootLink string, offset spatialmath.Pose, persist bool,
) error {
	if !r.initialized {
		return NewNotInitializedError(r.cfg.Name)
	}
	if _, ok := r.linkIndex[rootLink]; !ok {
		return referenceframe.NewUnknownFrameError(rootLink)
	}
	saved, err := r.captureJoints()
	if err != nil {
		return err
	}
	prev := r.composer.Stack()
	path, err := r.composer.Attach(toolName, toolPath, rootLink, offset, persist)
	if err != nil {
		return err
	}
	if err := r.reload(ctx, path, prev, saved); err != nil {
		return errors.Wrapf(err, "connecting tool %q", toolName)
	}
	r.logger.Infow("connected tool", "robot", r.cfg.Name, "tool", toolName, "link", rootLink)
	return nil
}

// RemoveTool detaches the named tool and everything attached after it, then reloads the model
// keeping the joint positions and velocities it had.
func (r *Robot) RemoveTool(ctx context.Context, toolName string) error {
	if !r.initialized {
		return NewNotInitializedError(r.cfg.Name)
	}
	saved, err := r.captureJoints()
	if err != nil {
		return err
	}
	prev := r.composer.Stack()
	path := r.composer.Detach(toolName)
	if err := r.reload(ctx, path, prev, saved); err != nil {
		return errors.Wrapf(err, "removing tool %q", toolName)
	}
	r.logger.Infow("removed tool", "robot", r.cfg.Name, "tool", toolName)
	return nil
}

// reload loads path and restores saved joints. When path fails to load, the attachment stack goes
// back to prev and the description it names is loaded again, so the robot stays usable.
func (r *Robot) reload(ctx context.Context, path string, prev []composer.Attachment, saved map[string]JointReading) error {
	err := r.load(ctx, path)
	if err == nil {
		return r.restoreJoints(saved)
	}
	prevPath := r.composer.Restore(prev)
	r.logger.Warnw("reload failed, restoring previous description", "robot", r.cfg.Name, "path", prevPath, "error", err)
	if revertErr := r.load(ctx, prevPath); revertErr != nil {
		return multierr.Combine(err, revertErr)
	}
	return multierr.Combine(err, r.restoreJoints(saved))
}

func (r *Robot) captureJoints() (map[string]JointReading, error) {
	readings, err := r.backend.ReadJoints(r.id, r.actuated)
	if err != nil {
		return nil, err
	}
	out := make(map[string]JointReading, len(readings))
	for i, idx := range r.actuated {
		out[r.joints[idx].Name] = readings[i]
	}
	return out, nil
}

// restoreJoints puts joints back where they were. Torques start at zero after a reload.
func (r *Robot) restoreJoints(saved map[string]JointReading) error {
	for _, idx := range r.actuated {
		reading, ok := saved[r.joints[idx].Name]
		if !ok {
			continue
		}
		if err := r.backend.ResetJoint(r.id, idx, reading.Position, reading.Velocity); err != nil {
			return err
		}
	}
	return nil
}

// NumJoints returns the number of actuated joints.
func (r *Robot) NumJoints() int {
	return len(r.actuated)
}

// JointNames returns the names of the actuated joints in order.
func (r *Robot) JointNames() []string {
	return lo.Map(r.actuated, func(idx, _ int) string { return r.joints[idx].Name })
}

// LinkNames returns the root link followed by every other link in index order.
func (r *Robot) LinkNames() []string {
	if !r.initialized {
		return nil
	}
	return append([]string{r.baseLink}, lo.Map(r.joints, func(j JointInfo, _ int) string { return j.ChildLink })...)
}

// JointLimits returns the limits of the actuated joints.
func (r *Robot) JointLimits() state.JointLimits {
	return r.limits
}

func (r *Robot) link(name string) (int, error) {
	if !r.initialized {
		return 0, NewNotInitializedError(r.cfg.Name)
	}
	idx, ok := r.linkIndex[name]
	if !ok {
		return 0, referenceframe.NewUnknownFrameError(name)
	}
	return idx, nil
}

// LinkPose returns the world pose of a link.
func (r *Robot) LinkPose(name string) (spatialmath.Pose, error) {
	if name == referenceframe.Global {
		return spatialmath.NewZeroPose(), nil
	}
	idx, err := r.link(name)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	return r.backend.LinkPose(r.id, idx)
}

// LinkTwist returns the world twist of a link origin.
func (r *Robot) LinkTwist(name string) (spatialmath.Vector6, error) {
	if name == referenceframe.Global {
		return spatialmath.Vector6{}, nil
	}
	idx, err := r.link(name)
	if err != nil {
		return spatialmath.Vector6{}, err
	}
	return r.backend.LinkTwist(r.id, idx)
}

// WorldJacobian returns the world Jacobian of a link at the given joint positions.
func (r *Robot) WorldJacobian(name string, positions []float64) (*mat.Dense, error) {
	idx, err := r.link(name)
	if err != nil {
		return nil, err
	}
	return r.backend.Jacobian(r.id, idx, positions)
}

// Jacobian returns the Jacobian of link at positions projected onto ref's axes.
func (r *Robot) Jacobian(positions []float64, link, ref string) (*mat.Dense, error) {
	if !r.initialized {
		return nil, NewNotInitializedError(r.cfg.Name)
	}
	return referenceframe.Jacobian(r, positions, link, ref)
}

// JointState reads the actuated joints.
func (r *Robot) JointState() (*state.JointState, error) {
	if !r.initialized {
		return nil, NewNotInitializedError(r.cfg.Name)
	}
	readings, err := r.backend.ReadJoints(r.id, r.actuated)
	if err != nil {
		return nil, err
	}
	js := state.NewJointState(len(readings))
	for i, reading := range readings {
		js.Positions[i] = reading.Position
		js.Velocities[i] = reading.Velocity
		js.Torques[i] = reading.Torque
	}
	return js, nil
}

// EEState returns the state of link relative to ref. ForceTorque carries the reading of the force
// sensor wherever it is mounted, or zero when no sensor is enabled.
func (r *Robot) EEState(link, ref string) (*state.EEState, error) {
	if !r.initialized {
		return nil, NewNotInitializedError(r.cfg.Name)
	}
	var wrench spatialmath.Vector6
	if r.sensorLink != "" {
		idx, err := r.link(r.sensorLink)
		if err != nil {
			return nil, err
		}
		if wrench, err = r.backend.ForceTorque(r.id, idx); err != nil {
			return nil, err
		}
	}
	return referenceframe.EEState(r, link, ref, wrench)
}

// ApplyForceSensor enables the force/torque sensor on the joint whose child is link. The sensor
// survives reloads as long as the link does.
func (r *Robot) ApplyForceSensor(link string) error {
	if !r.initialized {
		return NewNotInitializedError(r.cfg.Name)
	}
	if err := r.enableSensor(link); err != nil {
		return err
	}
	r.sensorLink = link
	return nil
}

func (r *Robot) enableSensor(link string) error {
	idx, err := r.link(link)
	if err != nil {
		return err
	}
	if idx == BaseLinkIndex {
		return errors.Errorf("root link %q has no joint to sense", link)
	}
	return r.backend.EnableForceSensor(r.id, idx)
}

// ResetJointState teleports the actuated joints to js. Torques are ignored.
func (r *Robot) ResetJointState(js *state.JointState) error {
	if !r.initialized {
		return NewNotInitializedError(r.cfg.Name)
	}
	if err := js.Validate(len(r.actuated)); err != nil {
		return err
	}
	for i, idx := range r.actuated {
		if err := r.backend.ResetJoint(r.id, idx, js.Positions[i], js.Velocities[i]); err != nil {
			return err
		}
	}
	return nil
}

// ResetEEState teleports the robot so that ee.EELink sits at ee.TF relative to ee.RefFrame and
// moves with ee.Twist. It returns false when no joint configuration within limits reaches the pose.
func (r *Robot) ResetEEState(ee *state.EEState) (bool, error) {
	if !r.initialized {
		return false, NewNotInitializedError(r.cfg.Name)
	}
	link, err := r.link(ee.EELink)
	if err != nil {
		return false, err
	}
	refPose, err := r.LinkPose(ee.RefFrame)
	if err != nil {
		return false, err
	}
	current, err := r.JointState()
	if err != nil {
		return false, err
	}
	target := refPose.Compose(ee.TF)
	q, err := r.backend.InverseKinematics(r.id, link, target, current.Positions)
	if err != nil {
		return false, err
	}
	q, err = r.limits.WrapPositions(q)
	if err != nil {
		if errors.Is(err, utils.ErrDimensionMismatch) {
			return false, err
		}
		r.logger.Warnw("cannot reset end effector", "robot", r.cfg.Name, "error", NewUnreachablePoseError(err))
		return false, nil
	}

	if err := r.ResetJointState(state.JointStateFromPositions(q)); err != nil {
		return false, err
	}
	reached, err := r.backend.LinkPose(r.id, link)
	if err != nil {
		return false, err
	}
	if !spatialmath.PoseAlmostEqual(reached, target, reachTolerance) {
		reason := errors.Errorf("closest pose found is %v, wanted %v", reached, target)
		r.logger.Warnw("cannot reset end effector", "robot", r.cfg.Name, "error", NewUnreachablePoseError(reason))
		return false, r.ResetJointState(current)
	}

	jac, err := r.Jacobian(q, ee.EELink, ee.RefFrame)
	if err != nil {
		return false, err
	}
	pinv, err := spatialmath.PseudoInverse(jac)
	if err != nil {
		return false, err
	}
	qd, err := spatialmath.MulVec(pinv, ee.Twist.Slice())
	if err != nil {
		return false, err
	}
	js, err := state.NewJointStateFrom(q, qd, nil)
	if err != nil {
		return false, err
	}
	return true, r.ResetJointState(js)
}

// SetControl sends the joint half of motion to the actuators as a command of the given kind. It
// returns false without commanding anything when the robot is not loaded or when kind is not a
// joint space kind.
func (r *Robot) SetControl(ctx context.Context, kind state.ControlKind, motion *state.Motion) (bool, error) {
	if !r.initialized {
		r.logger.Warnw("cannot command robot", "error", NewNotInitializedError(r.cfg.Name))
		return false, nil
	}
	if !kind.IsJointSpace() {
		r.logger.Warnw("cannot command robot", "robot", r.cfg.Name, "error", NewControlUnsupportedError(kind))
		return false, nil
	}
	if motion == nil || motion.Joint == nil {
		return false, errors.Errorf("%s command without a joint target", kind)
	}
	n := len(r.actuated)
	var values []float64
	switch kind {
	case state.JointPositions:
		values = motion.Joint.Positions
	case state.JointVelocities:
		values = motion.Joint.Velocities
	case state.JointTorques:
		values = motion.Joint.Torques
	}
	if len(values) != n {
		return false, utils.NewDimensionMismatchError(kind.String(), n, len(values))
	}
	kp, kd, maxTorque := r.JointControllerParams()
	cmd := JointCommand{Kind: kind, Values: values}
	switch kind {
	case state.JointPositions:
		cmd.PositionGains, cmd.VelocityGains, cmd.Forces = kp, kd, maxTorque
	case state.JointVelocities:
		cmd.VelocityGains, cmd.Forces = kd, maxTorque
	case state.JointTorques:
		// velocity motors have to let go before torques act
		release := JointCommand{Kind: state.JointVelocities, Values: make([]float64, n), Forces: make([]float64, n)}
		if err := r.backend.CommandJoints(r.id, r.actuated, release); err != nil {
			return false, err
		}
	}
	if err := r.backend.CommandJoints(r.id, r.actuated, cmd); err != nil {
		return false, err
	}
	return true, nil
}

// JointControllerParams returns the position gain, velocity gain and torque limit used for each
// actuated joint.
func (r *Robot) JointControllerParams() (kp, kd, maxTorque []float64) {
	n := len(r.actuated)
	kp, kd, maxTorque = make([]float64, n), make([]float64, n), make([]float64, n)
	for i, idx := range r.actuated {
		p, ok := r.params[r.joints[idx].Name]
		if !ok {
			p = jointParams{kp: DefaultPositionGain, kd: DefaultVelocityGain, maxTorque: DefaultMaxTorque}
		}
		kp[i], kd[i], maxTorque[i] = p.kp, p.kd, p.maxTorque
	}
	return kp, kd, maxTorque
}

// SetJointControllerParams sets the position gain, velocity gain and torque limit of each actuated
// joint. The values follow the joints by name across reloads.
func (r *Robot) SetJointControllerParams(kp, kd, maxTorque []float64) error {
	n := len(r.actuated)
	for what, arr := range map[string][]float64{"position gains": kp, "velocity gains": kd, "max torques": maxTorque} {
		if len(arr) != n {
			return utils.NewDimensionMismatchError(what, n, len(arr))
		}
	}
	for i, idx := range r.actuated {
		r.params[r.joints[idx].Name] = jointParams{kp: kp[i], kd: kd[i], maxTorque: maxTorque[i]}
	}
	return nil
}

// Close removes the model from the backend and deletes any merged tool descriptions.
func (r *Robot) Close(ctx context.Context) error {
	var err error
	if r.initialized {
		err = r.backend.RemoveModel(ctx, r.id)
		r.initialized = false
	}
	return multierr.Combine(err, r.composer.Close())
}
