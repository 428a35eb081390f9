package referenceframe

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/utils"
)

type fakeQuerier struct {
	poses  map[string]spatialmath.Pose
	twists map[string]spatialmath.Vector6
	jac    *mat.Dense
}

func (f *fakeQuerier) LinkPose(name string) (spatialmath.Pose, error) {
	p, ok := f.poses[name]
	if !ok {
		return spatialmath.Pose{}, NewUnknownFrameError(name)
	}
	return p, nil
}

func (f *fakeQuerier) LinkTwist(name string) (spatialmath.Vector6, error) {
	if _, ok := f.poses[name]; !ok {
		return spatialmath.Vector6{}, NewUnknownFrameError(name)
	}
	return f.twists[name], nil
}

func (f *fakeQuerier) WorldJacobian(name string, positions []float64) (*mat.Dense, error) {
	if _, ok := f.poses[name]; !ok {
		return nil, NewUnknownFrameError(name)
	}
	return mat.DenseCopyOf(f.jac), nil
}

func (f *fakeQuerier) NumJoints() int {
	_, c := f.jac.Dims()
	return c
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		poses: map[string]spatialmath.Pose{
			"base": spatialmath.NewZeroPose(),
			"a":    spatialmath.NewPoseFromRPY(r3.Vector{X: 0.4, Y: 0.1, Z: 0.9}, 0.3, -0.2, 1.1),
			"b":    spatialmath.NewPoseFromRPY(r3.Vector{X: -0.2, Y: 0.5, Z: 0.3}, -0.7, 0.4, 0.2),
		},
		twists: map[string]spatialmath.Vector6{
			"a": {0.1, 0.2, -0.1, 0.3, 0, 0.5},
			"b": {0, 0.1, 0, 0, 0.2, 0},
		},
		jac: mat.NewDense(6, 2, []float64{
			1, 0,
			0, 1,
			0, 0,
			0, 0,
			0, 0,
			1, 1,
		}),
	}
}

func TestTransformRoundTrip(t *testing.T) {
	q := newFakeQuerier()

	world, err := Transform(q, "a", Global)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(world, q.poses["a"], 1e-12), test.ShouldBeTrue)

	rel, err := Transform(q, "a", "b")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(q.poses["b"].Compose(rel), q.poses["a"], 1e-9), test.ShouldBeTrue)

	self, err := Transform(q, "a", "a")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(self, spatialmath.NewZeroPose(), 1e-9), test.ShouldBeTrue)

	global, err := Transform(q, Global, "a")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(global, q.poses["a"].Inverse(), 1e-9), test.ShouldBeTrue)
}

func TestUnknownFrame(t *testing.T) {
	q := newFakeQuerier()
	_, err := Transform(q, "nope", Global)
	test.That(t, IsUnknownFrame(err), test.ShouldBeTrue)
	_, err = Transform(q, "a", "nope")
	test.That(t, IsUnknownFrame(err), test.ShouldBeTrue)
	_, err = Twist(q, "a", "nope")
	test.That(t, IsUnknownFrame(err), test.ShouldBeTrue)
	_, err = Jacobian(q, []float64{0, 0}, "a", "nope")
	test.That(t, IsUnknownFrame(err), test.ShouldBeTrue)
	_, err = Jacobian(q, []float64{0, 0}, "nope", Global)
	test.That(t, IsUnknownFrame(err), test.ShouldBeTrue)
}

func TestTwist(t *testing.T) {
	q := newFakeQuerier()

	world, err := Twist(q, "a", Global)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, world, test.ShouldResemble, q.twists["a"])

	rel, err := Twist(q, "a", "b")
	test.That(t, err, test.ShouldBeNil)
	want := spatialmath.TransportTwist(q.twists["a"], q.poses["a"], q.twists["b"], q.poses["b"])
	test.That(t, rel.AlmostEqual(want, 1e-12), test.ShouldBeTrue)

	// a static reference only rotates the twist
	static, err := Twist(q, "a", "base")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, static.AlmostEqual(q.twists["a"], 1e-12), test.ShouldBeTrue)
}

func TestJacobian(t *testing.T) {
	q := newFakeQuerier()

	world, err := Jacobian(q, []float64{0, 0}, "a", Global)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.EqualApprox(world, q.jac, 1e-12), test.ShouldBeTrue)

	inB, err := Jacobian(q, []float64{0, 0}, "a", "b")
	test.That(t, err, test.ShouldBeNil)
	want, err := spatialmath.RotateJacobian(q.jac, q.poses["b"].Rotation().Transpose())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.EqualApprox(inB, want, 1e-12), test.ShouldBeTrue)

	zero, err := Jacobian(q, []float64{0, 0}, Global, "b")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Norm(zero, 1), test.ShouldEqual, 0.)

	_, err = Jacobian(q, []float64{0}, "a", Global)
	test.That(t, errors.Is(err, utils.ErrDimensionMismatch), test.ShouldBeTrue)
}

func TestEEState(t *testing.T) {
	q := newFakeQuerier()
	wrench := spatialmath.Vector6{0, 0, -9.81, 0, 0, 0}

	ee, err := EEState(q, "a", "b", wrench)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ee.EELink, test.ShouldEqual, "a")
	test.That(t, ee.RefFrame, test.ShouldEqual, "b")
	test.That(t, spatialmath.RotateVector6(q.poses["b"].Rotation(), ee.ForceTorque).AlmostEqual(wrench, 1e-9), test.ShouldBeTrue)

	tf, err := Transform(q, "a", "b")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(ee.TF, tf, 1e-12), test.ShouldBeTrue)
}
