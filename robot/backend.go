package robot

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/state"
)

// ModelID identifies a model loaded into a Backend. IDs are never reused within one Backend.
type ModelID int

// BaseLinkIndex is the link index of a model's root link.
const BaseLinkIndex = -1

// JointInfo describes one joint of a loaded model. The child link of joint i has link index i.
type JointInfo struct {
	Index       int
	Name        string
	Type        string
	ChildLink   string
	ParentIndex int
	Actuated    bool
	Lower       float64
	Upper       float64
	MaxVelocity float64
	MaxEffort   float64
}

// JointReading is the measured state of one joint.
type JointReading struct {
	Position float64
	Velocity float64
	Torque   float64
}

// JointCommand is a command for a set of joints. Values holds targets of the given Kind. Gains and
// Forces may be nil, in which case the backend defaults apply.
type JointCommand struct {
	Kind          state.ControlKind
	Values        []float64
	PositionGains []float64
	VelocityGains []float64
	Forces        []float64
}

// Backend is the physics collaborator a Robot drives. All poses and twists are in the world frame.
type Backend interface {
	// LoadModel loads the description at path with its root link at base.
	LoadModel(ctx context.Context, path string, base spatialmath.Pose) (ModelID, error)
	// RemoveModel removes a loaded model. Removing an unknown model is an error.
	RemoveModel(ctx context.Context, id ModelID) error
	// BaseLink returns the name of the model's root link.
	BaseLink(id ModelID) (string, error)
	// Joints returns every joint of the model, fixed ones included, in index order.
	Joints(id ModelID) ([]JointInfo, error)
	// LinkPose returns the world pose of a link. BaseLinkIndex addresses the root link.
	LinkPose(id ModelID, link int) (spatialmath.Pose, error)
	// LinkTwist returns the world twist of a link origin.
	LinkTwist(id ModelID, link int) (spatialmath.Vector6, error)
	// ReadJoints returns the state of the given joints.
	ReadJoints(id ModelID, joints []int) ([]JointReading, error)
	// ResetJoint teleports a joint to a position and velocity.
	ResetJoint(id ModelID, joint int, position, velocity float64) error
	// CommandJoints sends one command to the given joints.
	CommandJoints(id ModelID, joints []int, cmd JointCommand) error
	// Jacobian returns the 6xN world Jacobian of a link origin at the given positions of the N
	// actuated joints.
	Jacobian(id ModelID, link int, positions []float64) (*mat.Dense, error)
	// InverseKinematics returns actuated joint positions placing link at target, seeded from rest.
	InverseKinematics(id ModelID, link int, target spatialmath.Pose, rest []float64) ([]float64, error)
	// EnableForceSensor turns on the force/torque sensor of a joint.
	EnableForceSensor(id ModelID, joint int) error
	// ForceTorque returns the world-frame wrench measured by a joint's sensor.
	ForceTorque(id ModelID, joint int) (spatialmath.Vector6, error)
}
