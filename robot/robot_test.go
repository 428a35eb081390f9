package robot_test

import (
	"context"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/logging"
	"github.com/robokit/kinsim/referenceframe"
	"github.com/robokit/kinsim/robot"
	"github.com/robokit/kinsim/sim"
	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/state"
	"github.com/robokit/kinsim/testutils"
	"github.com/robokit/kinsim/utils"
)

type fixture struct {
	engine  *sim.Engine
	robot   *robot.Robot
	peg     string
	gripper string
}

func newFixture(t *testing.T, logger logging.Logger) fixture {
	t.Helper()
	dir := t.TempDir()
	engine := sim.NewEngine(logger)
	r, err := robot.NewFromURDF(
		robot.Config{Name: "arm", BasePose: spatialmath.NewZeroPose(), EELink: "ee_tool"},
		testutils.WriteArm(t, dir),
		engine,
		logger,
	)
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() { test.That(t, r.Close(context.Background()), test.ShouldBeNil) })
	return fixture{engine: engine, robot: r, peg: testutils.WritePeg(t, dir), gripper: testutils.WriteGripper(t, dir)}
}

func loadedFixture(t *testing.T) fixture {
	t.Helper()
	f := newFixture(t, logging.NewTestLogger(t))
	test.That(t, f.robot.Reset(context.Background()), test.ShouldBeNil)
	return f
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestNotInitialized(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	f := newFixture(t, logger)
	r := f.robot
	ctx := context.Background()

	test.That(t, r.Initialized(), test.ShouldBeFalse)
	_, err := r.ID()
	test.That(t, errors.Is(err, robot.ErrNotInitialized), test.ShouldBeTrue)
	err = r.ConnectTool(ctx, "peg", f.peg, "ee_tool", spatialmath.NewZeroPose(), false)
	test.That(t, errors.Is(err, robot.ErrNotInitialized), test.ShouldBeTrue)
	err = r.RemoveTool(ctx, "peg")
	test.That(t, errors.Is(err, robot.ErrNotInitialized), test.ShouldBeTrue)
	_, err = r.JointState()
	test.That(t, errors.Is(err, robot.ErrNotInitialized), test.ShouldBeTrue)
	_, err = r.EEState("ee_tool", referenceframe.Global)
	test.That(t, errors.Is(err, robot.ErrNotInitialized), test.ShouldBeTrue)
	_, err = r.LinkPose("ee_tool")
	test.That(t, errors.Is(err, robot.ErrNotInitialized), test.ShouldBeTrue)

	ok, err := r.SetControl(ctx, state.JointVelocities, state.NewMotion(state.NewJointState(6), nil))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, logs.FilterMessage("cannot command robot").Len(), test.ShouldEqual, 1)

	_, err = robot.New(robot.Config{}, f.engine, nil, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReset(t *testing.T) {
	f := loadedFixture(t)
	r := f.robot
	test.That(t, r.Initialized(), test.ShouldBeTrue)
	test.That(t, r.NumJoints(), test.ShouldEqual, 6)
	test.That(t, r.BaseLink(), test.ShouldEqual, "base_link")
	test.That(t, r.JointNames(), test.ShouldResemble,
		[]string{"joint1", "joint2", "joint3", "joint4", "joint5", "joint6"})
	test.That(t, r.LinkNames(), test.ShouldResemble,
		[]string{"base_link", "link1", "link2", "link3", "link4", "link5", "link6", "ee_tool"})

	limits := r.JointLimits()
	test.That(t, limits.NumJoints(), test.ShouldEqual, 6)
	test.That(t, limits.Position[1], test.ShouldResemble, state.Limit{Min: -2, Max: 2})
	test.That(t, limits.Velocity[0], test.ShouldResemble, state.Limit{Min: -3, Max: 3})
	test.That(t, limits.Torque[3], test.ShouldResemble, state.Limit{Min: -50, Max: 50})

	first, err := r.ID()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.ResetJointState(state.JointStateFromPositions([]float64{0.1, 0.2, 0.3, 0, 0, 0})), test.ShouldBeNil)
	test.That(t, r.Reset(context.Background()), test.ShouldBeNil)
	second, err := r.ID()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second, test.ShouldNotEqual, first)
	test.That(t, f.engine.ModelIDs(), test.ShouldResemble, []robot.ModelID{second})
	js, err := r.JointState()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, js.Positions, test.ShouldResemble, make([]float64, 6))
}

func TestPegAttachDetach(t *testing.T) {
	f := loadedFixture(t)
	r := f.robot
	ctx := context.Background()

	q := []float64{0.1, -0.2, 0.3, 0.4, -0.5, 0.6}
	qd := []float64{0, 0.1, 0, 0, 0, -0.1}
	js, err := state.NewJointStateFrom(q, qd, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.ResetJointState(js), test.ShouldBeNil)
	linksBefore := r.LinkNames()
	jointsBefore := r.NumJoints()

	offset := spatialmath.NewPoseFromPoint(r3.Vector{Z: 0.1})
	test.That(t, r.ConnectTool(ctx, "peg", f.peg, "ee_tool", offset, false), test.ShouldBeNil)
	test.That(t, len(r.LinkNames()), test.ShouldEqual, len(linksBefore)+1)
	test.That(t, r.LinkNames(), test.ShouldContain, "peg")
	test.That(t, r.NumJoints(), test.ShouldEqual, jointsBefore)
	test.That(t, r.EELink(), test.ShouldEqual, "ee_tool")

	after, err := r.JointState()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmp.Diff(q, after.Positions, approx), test.ShouldBeEmpty)
	test.That(t, cmp.Diff(qd, after.Velocities, approx), test.ShouldBeEmpty)
	test.That(t, after.Torques, test.ShouldResemble, make([]float64, 6))

	ee, err := r.LinkPose("ee_tool")
	test.That(t, err, test.ShouldBeNil)
	peg, err := r.LinkPose("peg")
	test.That(t, err, test.ShouldBeNil)
	rel := spatialmath.PoseBetween(ee, peg)
	test.That(t, spatialmath.PoseAlmostEqual(rel, offset, 1e-9), test.ShouldBeTrue)

	test.That(t, r.RemoveTool(ctx, "peg"), test.ShouldBeNil)
	test.That(t, cmp.Diff(linksBefore, r.LinkNames()), test.ShouldBeEmpty)
	test.That(t, r.NumJoints(), test.ShouldEqual, jointsBefore)
	after, err = r.JointState()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmp.Diff(q, after.Positions, approx), test.ShouldBeEmpty)
	_, err = r.LinkPose("peg")
	test.That(t, referenceframe.IsUnknownFrame(err), test.ShouldBeTrue)
}

func TestToolJointsAndPersistence(t *testing.T) {
	f := loadedFixture(t)
	r := f.robot
	ctx := context.Background()

	err := r.ConnectTool(ctx, "peg", f.peg, "nowhere", spatialmath.NewZeroPose(), false)
	test.That(t, referenceframe.IsUnknownFrame(err), test.ShouldBeTrue)

	test.That(t, r.ResetJointState(state.JointStateFromPositions([]float64{0.5, 0, 0, 0, 0, 0})), test.ShouldBeNil)
	test.That(t, r.ConnectTool(ctx, "gripper", f.gripper, "ee_tool", spatialmath.NewZeroPose(), true), test.ShouldBeNil)
	test.That(t, r.NumJoints(), test.ShouldEqual, 7)
	test.That(t, r.JointNames()[6], test.ShouldEqual, "finger_joint")
	js, err := r.JointState()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, js.Positions[0], test.ShouldAlmostEqual, 0.5)
	test.That(t, js.Positions[6], test.ShouldEqual, 0.)

	test.That(t, r.ConnectTool(ctx, "peg", f.peg, "finger", spatialmath.NewZeroPose(), false), test.ShouldBeNil)
	test.That(t, len(r.LinkNames()), test.ShouldEqual, 11)

	// the transient peg is dropped, the persistent gripper stays
	test.That(t, r.Reset(ctx), test.ShouldBeNil)
	test.That(t, r.NumJoints(), test.ShouldEqual, 7)
	test.That(t, len(r.LinkNames()), test.ShouldEqual, 10)
	js, err = r.JointState()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, js.Positions[0], test.ShouldEqual, 0.)
}

// rejectingEngine fails to load any description rejected by reject.
type rejectingEngine struct {
	*sim.Engine
	reject func(path string) bool
}

func (e *rejectingEngine) LoadModel(ctx context.Context, path string, base spatialmath.Pose) (robot.ModelID, error) {
	if e.reject != nil && e.reject(path) {
		return 0, errors.New("load failed")
	}
	return e.Engine.LoadModel(ctx, path, base)
}

func TestFailedReloadRestoresRobot(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	dir := t.TempDir()
	base := testutils.WriteArm(t, dir)
	peg := testutils.WritePeg(t, dir)
	engine := &rejectingEngine{Engine: sim.NewEngine(logger)}
	r, err := robot.NewFromURDF(robot.Config{Name: "arm", BasePose: spatialmath.NewZeroPose(), EELink: "ee_tool"}, base, engine, logger)
	test.That(t, err, test.ShouldBeNil)
	defer func() { test.That(t, r.Close(context.Background()), test.ShouldBeNil) }()
	ctx := context.Background()
	test.That(t, r.Reset(ctx), test.ShouldBeNil)

	q := []float64{0.1, -0.2, 0.3, 0.4, -0.5, 0.6}
	test.That(t, r.ResetJointState(state.JointStateFromPositions(q)), test.ShouldBeNil)
	linksBefore := r.LinkNames()

	t.Run("connect", func(t *testing.T) {
		engine.reject = func(path string) bool { return path != base }
		defer func() { engine.reject = nil }()

		err := r.ConnectTool(ctx, "peg", peg, "ee_tool", spatialmath.NewZeroPose(), true)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "load failed")
		test.That(t, r.Initialized(), test.ShouldBeTrue)
		test.That(t, cmp.Diff(linksBefore, r.LinkNames()), test.ShouldBeEmpty)
		js, err := r.JointState()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cmp.Diff(q, js.Positions, approx), test.ShouldBeEmpty)
		test.That(t, logs.FilterMessage("reload failed, restoring previous description").Len(), test.ShouldEqual, 1)

		// the rejected tool must not come back with a scene reset
		test.That(t, r.Reset(ctx), test.ShouldBeNil)
		test.That(t, cmp.Diff(linksBefore, r.LinkNames()), test.ShouldBeEmpty)
	})

	t.Run("remove", func(t *testing.T) {
		test.That(t, r.ResetJointState(state.JointStateFromPositions(q)), test.ShouldBeNil)
		test.That(t, r.ConnectTool(ctx, "peg", peg, "ee_tool", spatialmath.NewZeroPose(), true), test.ShouldBeNil)
		engine.reject = func(path string) bool { return path == base }
		defer func() { engine.reject = nil }()

		err := r.RemoveTool(ctx, "peg")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, r.Initialized(), test.ShouldBeTrue)
		test.That(t, r.LinkNames(), test.ShouldContain, "peg")
		js, err := r.JointState()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cmp.Diff(q, js.Positions, approx), test.ShouldBeEmpty)
	})

	t.Run("revert fails too", func(t *testing.T) {
		engine.reject = func(string) bool { return true }
		defer func() { engine.reject = nil }()

		err := r.RemoveTool(ctx, "peg")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, r.Initialized(), test.ShouldBeFalse)
		engine.reject = nil
		test.That(t, r.Reset(ctx), test.ShouldBeNil)
		test.That(t, r.LinkNames(), test.ShouldContain, "peg")
	})
}

func TestEEState(t *testing.T) {
	f := loadedFixture(t)
	r := f.robot

	ee, err := r.EEState("ee_tool", referenceframe.Global)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ee.EELink, test.ShouldEqual, "ee_tool")
	test.That(t, ee.RefFrame, test.ShouldEqual, referenceframe.Global)
	test.That(t, ee.TF.Point.X, test.ShouldAlmostEqual, 0.6)
	test.That(t, ee.TF.Point.Z, test.ShouldAlmostEqual, 0.7)

	ee, err = r.EEState("ee_tool", "link1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ee.TF.Point.X, test.ShouldAlmostEqual, 0.6)
	test.That(t, ee.TF.Point.Z, test.ShouldAlmostEqual, 0.6)

	_, err = r.EEState("ee_tool", "nope")
	test.That(t, referenceframe.IsUnknownFrame(err), test.ShouldBeTrue)

	// spinning the first joint moves the end effector, but not relative to link1 which spins with it
	js, err := state.NewJointStateFrom(make([]float64, 6), []float64{1, 0, 0, 0, 0, 0}, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.ResetJointState(js), test.ShouldBeNil)
	ee, err = r.EEState("ee_tool", referenceframe.Global)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ee.Twist.Linear().Y, test.ShouldAlmostEqual, 0.6)
	test.That(t, ee.Twist.Angular().Z, test.ShouldAlmostEqual, 1)
	ee, err = r.EEState("ee_tool", "link1")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ee.Twist.Norm(), test.ShouldAlmostEqual, 0, 1e-9)
}

func TestForceSensor(t *testing.T) {
	f := loadedFixture(t)
	r := f.robot
	id, err := r.ID()
	test.That(t, err, test.ShouldBeNil)
	wrench := spatialmath.NewVector6(r3.Vector{Z: -2}, r3.Vector{Y: 0.5})
	test.That(t, f.engine.ApplyExternalWrench(id, 6, wrench), test.ShouldBeNil)

	ee, err := r.EEState("ee_tool", referenceframe.Global)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ee.ForceTorque, test.ShouldResemble, spatialmath.Vector6{})

	test.That(t, r.ApplyForceSensor("ee_tool"), test.ShouldBeNil)
	ee, err = r.EEState("ee_tool", referenceframe.Global)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ee.ForceTorque, test.ShouldResemble, wrench)

	// the sensor reading is reported whichever link is queried
	wrist, err := r.EEState("link6", referenceframe.Global)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, wrist.ForceTorque, test.ShouldResemble, wrench)
	test.That(t, wrist.EELink, test.ShouldEqual, "link6")

	test.That(t, r.ApplyForceSensor("base_link"), test.ShouldNotBeNil)
	test.That(t, referenceframe.IsUnknownFrame(r.ApplyForceSensor("nope")), test.ShouldBeTrue)
}

func TestJacobian(t *testing.T) {
	f := loadedFixture(t)
	r := f.robot
	q := []float64{0.3, -0.4, 0.5, 0.2, 0.3, -0.1}
	v := []float64{0.1, -0.2, 0.3, 0.05, -0.1, 0.2}

	for _, ref := range []string{referenceframe.Global, "base_link", "link3"} {
		t.Run(ref, func(t *testing.T) {
			jac, err := r.Jacobian(q, "ee_tool", ref)
			test.That(t, err, test.ShouldBeNil)
			twist, err := spatialmath.MulVec(jac, v)
			test.That(t, err, test.ShouldBeNil)
			pinv, err := spatialmath.PseudoInverse(jac)
			test.That(t, err, test.ShouldBeNil)
			back, err := spatialmath.MulVec(pinv, twist)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, cmp.Diff(v, back, cmpopts.EquateApprox(0, 1e-6)), test.ShouldBeEmpty)
		})
	}

	for _, link := range []string{referenceframe.Global, "base_link"} {
		jac, err := r.Jacobian(q, link, referenceframe.Global)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, mat.Norm(jac, 2), test.ShouldEqual, 0.)
	}

	_, err := r.Jacobian(q[:5], "ee_tool", referenceframe.Global)
	test.That(t, errors.Is(err, utils.ErrDimensionMismatch), test.ShouldBeTrue)
	_, err = r.Jacobian(q, "ee_tool", "nope")
	test.That(t, referenceframe.IsUnknownFrame(err), test.ShouldBeTrue)
}

func TestResetJointState(t *testing.T) {
	f := loadedFixture(t)
	r := f.robot
	err := r.ResetJointState(state.JointStateFromPositions([]float64{1, 2}))
	test.That(t, errors.Is(err, utils.ErrDimensionMismatch), test.ShouldBeTrue)
}

func TestResetEEState(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	f := newFixture(t, logger)
	r := f.robot
	test.That(t, r.Reset(context.Background()), test.ShouldBeNil)

	q := []float64{0.3, -0.4, 0.5, 0.2, 0.3, -0.1}
	test.That(t, r.ResetJointState(state.JointStateFromPositions(q)), test.ShouldBeNil)
	goal, err := r.EEState("ee_tool", "base_link")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, r.ResetJointState(state.JointStateFromPositions([]float64{0.4, -0.3, 0.4, 0.3, 0.2, 0})), test.ShouldBeNil)

	goal.Twist = spatialmath.NewVector6(r3.Vector{X: 0.05}, r3.Vector{})
	ok, err := r.ResetEEState(goal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	got, err := r.EEState("ee_tool", "base_link")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(got.TF, goal.TF, 1e-3), test.ShouldBeTrue)
	test.That(t, got.Twist.AlmostEqual(goal.Twist, 1e-6), test.ShouldBeTrue)

	before, err := r.JointState()
	test.That(t, err, test.ShouldBeNil)
	far := state.EEStateFromPose(spatialmath.NewPoseFromPoint(r3.Vector{X: 5}), "ee_tool", referenceframe.Global)
	ok, err = r.ResetEEState(far)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, logs.FilterMessage("cannot reset end effector").Len(), test.ShouldEqual, 1)
	after, err := r.JointState()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, after.Positions, test.ShouldResemble, before.Positions)

	_, err = r.ResetEEState(state.EEStateFromPose(spatialmath.NewZeroPose(), "nope", referenceframe.Global))
	test.That(t, referenceframe.IsUnknownFrame(err), test.ShouldBeTrue)
}

func TestSetControl(t *testing.T) {
	const dt = 0.01
	ctx := context.Background()

	t.Run("positions", func(t *testing.T) {
		f := loadedFixture(t)
		target := []float64{0.02, -0.01, 0, 0, 0.01, 0}
		ok, err := f.robot.SetControl(ctx, state.JointPositions, state.NewMotion(state.JointStateFromPositions(target), nil))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeTrue)
		f.engine.Step(dt)
		js, err := f.robot.JointState()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cmp.Diff(target, js.Positions, approx), test.ShouldBeEmpty)
	})

	t.Run("velocities", func(t *testing.T) {
		f := loadedFixture(t)
		qd := []float64{0.5, 0, 0, 0, 0, -0.5}
		ok, err := f.robot.SetControl(ctx, state.JointVelocities, state.NewMotion(state.JointStateFromVelocities(qd), nil))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeTrue)
		for i := 0; i < 10; i++ {
			f.engine.Step(dt)
		}
		js, err := f.robot.JointState()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, js.Positions[0], test.ShouldAlmostEqual, 0.05)
		test.That(t, js.Positions[5], test.ShouldAlmostEqual, -0.05)
	})

	t.Run("torques", func(t *testing.T) {
		f := loadedFixture(t)
		tau := []float64{1, 0, 0, 0, 0, 0}
		ok, err := f.robot.SetControl(ctx, state.JointTorques, state.NewMotion(state.JointStateFromTorques(tau), nil))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeTrue)
		f.engine.Step(dt)
		js, err := f.robot.JointState()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, js.Torques, test.ShouldResemble, tau)
		test.That(t, js.Velocities[0], test.ShouldAlmostEqual, 0.01)
	})

	t.Run("twist unsupported", func(t *testing.T) {
		logger, logs := logging.NewObservedTestLogger(t)
		f := newFixture(t, logger)
		test.That(t, f.robot.Reset(ctx), test.ShouldBeNil)
		motion := state.NewMotion(nil, state.EEStateFromTwist(spatialmath.Vector6{1}, "ee_tool", referenceframe.Global))
		ok, err := f.robot.SetControl(ctx, state.CartesianTwist, motion)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ok, test.ShouldBeFalse)
		entries := logs.FilterMessage("cannot command robot").All()
		test.That(t, len(entries), test.ShouldEqual, 1)
		test.That(t, entries[0].ContextMap()["error"], test.ShouldContainSubstring, robot.ErrControlUnsupported.Error())
	})

	t.Run("wrong length", func(t *testing.T) {
		f := loadedFixture(t)
		_, err := f.robot.SetControl(ctx, state.JointVelocities, state.NewMotion(state.JointStateFromVelocities([]float64{1}), nil))
		test.That(t, errors.Is(err, utils.ErrDimensionMismatch), test.ShouldBeTrue)
		_, err = f.robot.SetControl(ctx, state.JointVelocities, state.NewMotion(nil, nil))
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestJointControllerParams(t *testing.T) {
	f := loadedFixture(t)
	r := f.robot
	kp, kd, maxTorque := r.JointControllerParams()
	test.That(t, kp, test.ShouldResemble, []float64{1, 1, 1, 1, 1, 1})
	test.That(t, kd, test.ShouldResemble, []float64{1, 1, 1, 1, 1, 1})
	test.That(t, maxTorque, test.ShouldResemble, []float64{100, 100, 100, 100, 100, 100})

	err := r.SetJointControllerParams(kp[:2], kd, maxTorque)
	test.That(t, errors.Is(err, utils.ErrDimensionMismatch), test.ShouldBeTrue)

	kp[0], kd[0], maxTorque[0] = 0.5, 0.2, 10
	test.That(t, r.SetJointControllerParams(kp, kd, maxTorque), test.ShouldBeNil)
	test.That(t, r.Reset(context.Background()), test.ShouldBeNil)
	kp2, kd2, mt2 := r.JointControllerParams()
	test.That(t, kp2[0], test.ShouldEqual, 0.5)
	test.That(t, kd2[0], test.ShouldEqual, 0.2)
	test.That(t, mt2[0], test.ShouldEqual, 10.)
	test.That(t, kp2[1], test.ShouldEqual, robot.DefaultPositionGain)
}

func TestClose(t *testing.T) {
	f := loadedFixture(t)
	ctx := context.Background()
	test.That(t, f.robot.ConnectTool(ctx, "peg", f.peg, "ee_tool", spatialmath.NewZeroPose(), false), test.ShouldBeNil)
	test.That(t, f.robot.Close(ctx), test.ShouldBeNil)
	test.That(t, f.engine.ModelIDs(), test.ShouldBeEmpty)
	test.That(t, f.robot.Initialized(), test.ShouldBeFalse)
}
