// Package sim implements a kinematic physics backend and the world that paces it. Joints follow
// their latched commands exactly; there is no dynamics, gravity or contact.
package sim

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/logging"
	"github.com/robokit/kinsim/referenceframe"
	"github.com/robokit/kinsim/referenceframe/urdf"
	"github.com/robokit/kinsim/robot"
	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/utils"
)

// Engine is an in-process kinematic Backend. It is safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	models map[robot.ModelID]*model
	nextID robot.ModelID
	logger logging.Logger
}

var _ robot.Backend = (*Engine)(nil)

// NewEngine returns an empty engine.
func NewEngine(logger logging.Logger) *Engine {
	return &Engine{models: map[robot.ModelID]*model{}, logger: logger}
}

func (e *Engine) model(id robot.ModelID) (*model, error) {
	m, ok := e.models[id]
	if !ok {
		return nil, errors.Errorf("no model with id %d", id)
	}
	return m, nil
}

func (m *model) joint(idx int) (*simJoint, error) {
	if idx < 0 || idx >= len(m.joints) {
		return nil, errors.Errorf("model %d has no joint %d", m.id, idx)
	}
	return m.joints[idx], nil
}

// LoadModel parses the URDF at path and places its root link at base.
func (e *Engine) LoadModel(ctx context.Context, path string, base spatialmath.Pose) (robot.ModelID, error) {
	cfg, err := urdf.ParseModelXMLFile(path)
	if err != nil {
		return 0, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	m, err := newModel(id, path, cfg, base)
	if err != nil {
		return 0, err
	}
	e.nextID++
	e.models[id] = m
	e.logger.Debugw("loaded model", "id", id, "name", m.name, "joints", len(m.joints), "actuated", len(m.actuated))
	return id, nil
}

// RemoveModel removes a loaded model.
func (e *Engine) RemoveModel(ctx context.Context, id robot.ModelID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.model(id); err != nil {
		return err
	}
	delete(e.models, id)
	e.logger.Debugw("removed model", "id", id)
	return nil
}

// Reset removes every model.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.models = map[robot.ModelID]*model{}
}

// ModelIDs returns the ids of all loaded models in load order.
func (e *Engine) ModelIDs() []robot.ModelID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]robot.ModelID, 0, len(e.models))
	for id := range e.models {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// BaseLink returns the name of the model's root link.
func (e *Engine) BaseLink(id robot.ModelID) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return "", err
	}
	return m.baseLink, nil
}

// Joints returns every joint of the model in index order.
func (e *Engine) Joints(id robot.ModelID) ([]robot.JointInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return nil, err
	}
	out := make([]robot.JointInfo, len(m.joints))
	for i, j := range m.joints {
		out[i] = j.info
	}
	return out, nil
}

// LinkIndex resolves a link name of the model to its index.
func (e *Engine) LinkIndex(id robot.ModelID, name string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return 0, err
	}
	if name == m.baseLink {
		return robot.BaseLinkIndex, nil
	}
	for i, j := range m.joints {
		if j.info.ChildLink == name {
			return i, nil
		}
	}
	return 0, referenceframe.NewUnknownFrameError(name)
}

// LinkPose returns the world pose of a link at the current joint positions.
func (e *Engine) LinkPose(id robot.ModelID, link int) (spatialmath.Pose, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return spatialmath.Pose{}, err
	}
	if err := m.checkLink(link); err != nil {
		return spatialmath.Pose{}, err
	}
	return m.linkPose(link, m.positions()), nil
}

// LinkTwist returns the world twist of a link origin, J(q)·q̇.
func (e *Engine) LinkTwist(id robot.ModelID, link int) (spatialmath.Vector6, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return spatialmath.Vector6{}, err
	}
	if err := m.checkLink(link); err != nil {
		return spatialmath.Vector6{}, err
	}
	return m.linkTwist(link)
}

// ReadJoints returns the state of the given joints.
func (e *Engine) ReadJoints(id robot.ModelID, joints []int) ([]robot.JointReading, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return nil, err
	}
	out := make([]robot.JointReading, len(joints))
	for i, idx := range joints {
		j, err := m.joint(idx)
		if err != nil {
			return nil, err
		}
		out[i] = robot.JointReading{Position: j.pos, Velocity: j.vel, Torque: j.torque}
	}
	return out, nil
}

// ResetJoint teleports a joint. Any latched command is cleared.
func (e *Engine) ResetJoint(id robot.ModelID, joint int, position, velocity float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return err
	}
	j, err := m.joint(joint)
	if err != nil {
		return err
	}
	j.pos, j.vel, j.torque = position, velocity, 0
	j.cmd = jointCommand{}
	return nil
}

// CommandJoints latches a command on each of the given joints.
func (e *Engine) CommandJoints(id robot.ModelID, joints []int, cmd robot.JointCommand) error {
	if !cmd.Kind.IsJointSpace() {
		return errors.Errorf("joints cannot execute %s commands", cmd.Kind)
	}
	n := len(joints)
	if len(cmd.Values) != n {
		return utils.NewDimensionMismatchError("command values", n, len(cmd.Values))
	}
	for what, arr := range map[string][]float64{
		"position gains": cmd.PositionGains,
		"velocity gains": cmd.VelocityGains,
		"forces":         cmd.Forces,
	} {
		if arr != nil && len(arr) != n {
			return utils.NewDimensionMismatchError(what, n, len(arr))
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return err
	}
	for i, idx := range joints {
		j, err := m.joint(idx)
		if err != nil {
			return err
		}
		if !j.info.Actuated {
			return errors.Errorf("joint %q is fixed", j.info.Name)
		}
		c := jointCommand{kind: cmd.Kind, target: cmd.Values[i], force: j.info.MaxEffort, active: true}
		if c.force == 0 {
			c.force = 1
		}
		if cmd.PositionGains != nil {
			c.posGain = cmd.PositionGains[i]
		}
		if cmd.VelocityGains != nil {
			c.velGain = cmd.VelocityGains[i]
		}
		if cmd.Forces != nil {
			c.force = cmd.Forces[i]
		}
		j.cmd = c
	}
	return nil
}

// Jacobian returns the 6xN world Jacobian of a link at the given actuated joint positions.
func (e *Engine) Jacobian(id robot.ModelID, link int, positions []float64) (*mat.Dense, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return nil, err
	}
	if err := m.checkLink(link); err != nil {
		return nil, err
	}
	return m.jacobian(link, positions)
}

// InverseKinematics solves for actuated joint positions placing link at target.
func (e *Engine) InverseKinematics(
	id robot.ModelID, link int, target spatialmath.Pose, rest []float64,
) ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return nil, err
	}
	if err := m.checkLink(link); err != nil {
		return nil, err
	}
	if len(rest) != len(m.actuated) {
		return nil, utils.NewDimensionMismatchError("rest pose", len(m.actuated), len(rest))
	}
	q, residual := newIKSolver(m).solve(link, target, rest)
	e.logger.Debugw("inverse kinematics", "model", id, "link", link, "residual", residual)
	return q, nil
}

// EnableForceSensor turns on the sensor of a joint.
func (e *Engine) EnableForceSensor(id robot.ModelID, joint int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return err
	}
	j, err := m.joint(joint)
	if err != nil {
		return err
	}
	j.sensor = true
	return nil
}

// ForceTorque returns the wrench acting on a joint's child link. Disabled sensors read zero.
func (e *Engine) ForceTorque(id robot.ModelID, joint int) (spatialmath.Vector6, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return spatialmath.Vector6{}, err
	}
	j, err := m.joint(joint)
	if err != nil {
		return spatialmath.Vector6{}, err
	}
	if !j.sensor {
		return spatialmath.Vector6{}, nil
	}
	return j.wrench, nil
}

// ApplyExternalWrench sets the world-frame wrench felt by the child link of joint until replaced.
func (e *Engine) ApplyExternalWrench(id robot.ModelID, joint int, wrench spatialmath.Vector6) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.model(id)
	if err != nil {
		return err
	}
	j, err := m.joint(joint)
	if err != nil {
		return err
	}
	j.wrench = wrench
	return nil
}

// Step advances every model by dt seconds.
func (e *Engine) Step(dt float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, m := range e.models {
		m.step(dt)
	}
}
