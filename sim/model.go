package sim

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/referenceframe/urdf"
	"github.com/robokit/kinsim/robot"
	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/state"
	"github.com/robokit/kinsim/utils"
)

// jointCommand is the command latched on one joint until replaced.
type jointCommand struct {
	kind    state.ControlKind
	target  float64
	posGain float64
	velGain float64
	force   float64
	active  bool
}

type simJoint struct {
	info   robot.JointInfo
	origin spatialmath.Pose
	axis   r3.Vector
	// actuated index, or -1 for fixed joints
	actIdx int

	pos, vel, torque float64
	cmd              jointCommand

	sensor bool
	wrench spatialmath.Vector6
}

func (j *simJoint) motion(q float64) spatialmath.Pose {
	switch j.info.Type {
	case urdf.RevoluteJoint, urdf.ContinuousJoint:
		return spatialmath.Pose{Orientation: spatialmath.AxisAngleToQuat(j.axis.Mul(q))}
	case urdf.PrismaticJoint:
		return spatialmath.NewPoseFromPoint(j.axis.Mul(q))
	default:
		return spatialmath.NewZeroPose()
	}
}

func (j *simJoint) clampPosition() {
	if j.info.Type == urdf.ContinuousJoint || j.info.Lower >= j.info.Upper {
		return
	}
	if j.pos < j.info.Lower {
		j.pos, j.vel = j.info.Lower, 0
	} else if j.pos > j.info.Upper {
		j.pos, j.vel = j.info.Upper, 0
	}
}

func (j *simJoint) clampVelocity(v float64) float64 {
	if j.info.MaxVelocity <= 0 {
		return v
	}
	return utils.Clamp(v, -j.info.MaxVelocity, j.info.MaxVelocity)
}

// model is an arena of joints. Link i is the child link of joint i; the root link has index
// robot.BaseLinkIndex.
type model struct {
	id       robot.ModelID
	name     string
	path     string
	base     spatialmath.Pose
	baseLink string
	joints   []*simJoint
	actuated []int
}

func newModel(id robot.ModelID, path string, cfg *urdf.ModelConfig, base spatialmath.Pose) (*model, error) {
	root, err := cfg.RootLink()
	if err != nil {
		return nil, err
	}
	ordered, err := cfg.OrderedJoints()
	if err != nil {
		return nil, err
	}
	m := &model{id: id, name: cfg.Name, path: path, base: base, baseLink: root}
	linkIdx := map[string]int{root: robot.BaseLinkIndex}
	for i, uj := range ordered {
		parent, ok := linkIdx[uj.Parent.Link]
		if !ok {
			return nil, errors.Errorf("joint %q parent %q not yet placed", uj.Name, uj.Parent.Link)
		}
		linkIdx[uj.Child.Link] = i
		origin, err := uj.Origin.Parse()
		if err != nil {
			return nil, errors.Wrapf(err, "joint %q", uj.Name)
		}
		j := &simJoint{
			origin: origin,
			actIdx: -1,
			info: robot.JointInfo{
				Index:       i,
				Name:        uj.Name,
				Type:        uj.Type,
				ChildLink:   uj.Child.Link,
				ParentIndex: parent,
				Actuated:    uj.Movable(),
			},
		}
		if uj.Movable() {
			if j.axis, err = uj.Axis.Parse(); err != nil {
				return nil, errors.Wrapf(err, "joint %q", uj.Name)
			}
			j.actIdx = len(m.actuated)
			m.actuated = append(m.actuated, i)
		}
		if uj.Limit != nil {
			j.info.MaxVelocity = uj.Limit.Velocity
			j.info.MaxEffort = uj.Limit.Effort
			if uj.Type != urdf.ContinuousJoint {
				j.info.Lower, j.info.Upper = uj.Limit.Lower, uj.Limit.Upper
			}
		}
		m.joints = append(m.joints, j)
	}
	return m, nil
}

func (m *model) checkLink(link int) error {
	if link < robot.BaseLinkIndex || link >= len(m.joints) {
		return errors.Errorf("model %d has no link %d", m.id, link)
	}
	return nil
}

func (m *model) positions() []float64 {
	q := make([]float64, len(m.actuated))
	for i, ji := range m.actuated {
		q[i] = m.joints[ji].pos
	}
	return q
}

func (m *model) velocities() []float64 {
	qd := make([]float64, len(m.actuated))
	for i, ji := range m.actuated {
		qd[i] = m.joints[ji].vel
	}
	return qd
}

// forward returns, for every joint, the world pose of its frame before and after the joint motion.
// The pose after the motion is the pose of the joint's child link.
func (m *model) forward(q []float64) (frames, links []spatialmath.Pose) {
	frames = make([]spatialmath.Pose, len(m.joints))
	links = make([]spatialmath.Pose, len(m.joints))
	for i, j := range m.joints {
		parent := m.base
		if j.info.ParentIndex != robot.BaseLinkIndex {
			parent = links[j.info.ParentIndex]
		}
		frames[i] = parent.Compose(j.origin)
		var qi float64
		if j.actIdx >= 0 {
			qi = q[j.actIdx]
		}
		links[i] = frames[i].Compose(j.motion(qi))
	}
	return frames, links
}

func (m *model) linkPose(link int, q []float64) spatialmath.Pose {
	if link == robot.BaseLinkIndex {
		return m.base
	}
	_, links := m.forward(q)
	return links[link]
}

// jacobian returns the 6xN geometric Jacobian of the link origin in the world frame.
func (m *model) jacobian(link int, q []float64) (*mat.Dense, error) {
	n := len(m.actuated)
	if n == 0 {
		return nil, errors.Errorf("model %d has no actuated joints", m.id)
	}
	if len(q) != n {
		return nil, utils.NewDimensionMismatchError("joint positions", n, len(q))
	}
	jac := mat.NewDense(6, n, nil)
	if link == robot.BaseLinkIndex {
		return jac, nil
	}
	frames, links := m.forward(q)
	target := links[link].Point
	for l := link; l != robot.BaseLinkIndex; l = m.joints[l].info.ParentIndex {
		j := m.joints[l]
		if j.actIdx < 0 {
			continue
		}
		z := frames[l].Rotation().MulVec(j.axis)
		var lin, ang r3.Vector
		switch j.info.Type {
		case urdf.PrismaticJoint:
			lin = z
		default:
			lin = z.Cross(target.Sub(frames[l].Point))
			ang = z
		}
		col := spatialmath.NewVector6(lin, ang)
		for r := 0; r < 6; r++ {
			jac.Set(r, j.actIdx, col[r])
		}
	}
	return jac, nil
}

func (m *model) linkTwist(link int) (spatialmath.Vector6, error) {
	if link == robot.BaseLinkIndex || len(m.actuated) == 0 {
		return spatialmath.Vector6{}, nil
	}
	jac, err := m.jacobian(link, m.positions())
	if err != nil {
		return spatialmath.Vector6{}, err
	}
	var v mat.VecDense
	v.MulVec(jac, mat.NewVecDense(len(m.actuated), m.velocities()))
	return spatialmath.Vector6FromVec(&v)
}

// step advances every actuated joint by dt under its latched command.
func (m *model) step(dt float64) {
	for _, ji := range m.actuated {
		j := m.joints[ji]
		switch {
		case !j.cmd.active:
			j.vel, j.torque = 0, 0
		case j.cmd.kind == state.JointPositions:
			kp, kd := j.cmd.posGain, j.cmd.velGain
			if kp <= 0 {
				kp = 1
			}
			if kd <= 0 || kd > 1 {
				kd = 1
			}
			// kp scales the desired velocity, kd is how far the joint moves toward it per step
			desired := kp * (j.cmd.target - j.pos) / dt
			j.vel = j.clampVelocity(j.vel + kd*(desired-j.vel))
			j.pos += j.vel * dt
			j.torque = 0
		case j.cmd.kind == state.JointVelocities:
			if j.cmd.force == 0 {
				// motor disabled, the joint coasts
				j.pos += j.vel * dt
				break
			}
			j.vel = j.clampVelocity(j.cmd.target)
			j.pos += j.vel * dt
			j.torque = 0
		case j.cmd.kind == state.JointTorques:
			tau := j.cmd.target
			if j.info.MaxEffort > 0 {
				tau = utils.Clamp(tau, -j.info.MaxEffort, j.info.MaxEffort)
			}
			// unit inertia, no gravity
			j.vel = j.clampVelocity(j.vel + tau*dt)
			j.pos += j.vel * dt
			j.torque = tau
		}
		j.clampPosition()
	}
}
