package sim

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/robokit/kinsim/logging"
	"github.com/robokit/kinsim/referenceframe"
	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/testutils"
)

type fakeRobot struct {
	name    string
	pose    spatialmath.Pose
	resets  int
	cleared int
	closed  bool
}

func (r *fakeRobot) Name() string { return r.name }

func (r *fakeRobot) Reset(ctx context.Context) error {
	r.resets++
	return nil
}

func (r *fakeRobot) ClearID() { r.cleared++ }

func (r *fakeRobot) LinkPose(name string) (spatialmath.Pose, error) {
	if name != "ee" {
		return spatialmath.Pose{}, referenceframe.NewUnknownFrameError(name)
	}
	return r.pose, nil
}

func (r *fakeRobot) Close(ctx context.Context) error {
	r.closed = true
	return nil
}

func newTestWorld(t *testing.T, cfg WorldConfig, opts ...WorldOption) *World {
	t.Helper()
	w, err := NewWorld(cfg, logging.NewTestLogger(t), opts...)
	test.That(t, err, test.ShouldBeNil)
	return w
}

func TestWorldConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  WorldConfig
		ok   bool
	}{
		{"default", WorldConfig{TimeStep: 0.01, TimeScale: 1}, true},
		{"zero step", WorldConfig{TimeStep: 0, TimeScale: 1}, false},
		{"step too large", WorldConfig{TimeStep: 1, TimeScale: 1}, false},
		{"zero scale", WorldConfig{TimeStep: 0.01, TimeScale: 0}, false},
		{"scale too large", WorldConfig{TimeStep: 0.01, TimeScale: 1000}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok {
				test.That(t, err, test.ShouldBeNil)
			} else {
				test.That(t, err, test.ShouldNotBeNil)
			}
		})
	}
}

func TestWorldObjects(t *testing.T) {
	ctx := context.Background()
	w := newTestWorld(t, WorldConfig{TimeStep: 0.01, TimeScale: 1})
	box := testutils.WriteBox(t, t.TempDir())

	pose := spatialmath.NewPoseFromPoint(r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, w.AddObject(ctx, "table", box, pose, true), test.ShouldBeNil)
	test.That(t, w.AddObject(ctx, "cup", box, spatialmath.NewZeroPose(), false), test.ShouldBeNil)
	test.That(t, w.ObjectNames(), test.ShouldResemble, []string{"cup", "table"})
	test.That(t, len(w.Engine().ModelIDs()), test.ShouldEqual, 2)

	tf, err := w.LinkTF("table", "box_link", referenceframe.Global, "")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(tf, pose, 1e-9), test.ShouldBeTrue)

	moved := spatialmath.NewPoseFromPoint(r3.Vector{X: -1})
	test.That(t, w.AddObject(ctx, "table", box, moved, true), test.ShouldBeNil)
	test.That(t, len(w.Engine().ModelIDs()), test.ShouldEqual, 2)
	tf, err = w.LinkTF("table", "box_link", "cup", "box_link")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf.Point.X, test.ShouldAlmostEqual, -1)

	_, err = w.LinkTF("chair", "box_link", referenceframe.Global, "")
	test.That(t, referenceframe.IsUnknownFrame(err), test.ShouldBeTrue)
	_, err = w.LinkTF("table", "leg", referenceframe.Global, "")
	test.That(t, referenceframe.IsUnknownFrame(err), test.ShouldBeTrue)

	test.That(t, w.RemoveObject(ctx, "cup"), test.ShouldBeNil)
	test.That(t, w.RemoveObject(ctx, "cup"), test.ShouldNotBeNil)
	test.That(t, w.ObjectNames(), test.ShouldResemble, []string{"table"})
}

func TestWorldReset(t *testing.T) {
	ctx := context.Background()
	w := newTestWorld(t, WorldConfig{TimeStep: 0.01, TimeScale: 1})
	box := testutils.WriteBox(t, t.TempDir())
	r := &fakeRobot{name: "arm", pose: spatialmath.NewPoseFromPoint(r3.Vector{Z: 1})}

	test.That(t, w.AddRobot(ctx, r), test.ShouldBeNil)
	test.That(t, r.resets, test.ShouldEqual, 1)
	test.That(t, w.AddRobot(ctx, &fakeRobot{name: "arm"}), test.ShouldNotBeNil)

	test.That(t, w.AddObject(ctx, "table", box, spatialmath.NewZeroPose(), true), test.ShouldBeNil)
	test.That(t, w.AddObject(ctx, "cup", box, spatialmath.NewZeroPose(), false), test.ShouldBeNil)
	for i := 0; i < 5; i++ {
		test.That(t, w.Step(ctx), test.ShouldBeNil)
	}
	test.That(t, w.SimTime(), test.ShouldAlmostEqual, 0.05)

	tf, err := w.LinkTF("arm", "ee", "table", "box_link")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf.Point.Z, test.ShouldAlmostEqual, 1)

	test.That(t, w.Reset(ctx), test.ShouldBeNil)
	test.That(t, w.SimTime(), test.ShouldEqual, 0.)
	test.That(t, r.cleared, test.ShouldEqual, 1)
	test.That(t, r.resets, test.ShouldEqual, 2)
	test.That(t, w.ObjectNames(), test.ShouldResemble, []string{"table"})
	test.That(t, len(w.Engine().ModelIDs()), test.ShouldEqual, 1)

	test.That(t, w.Close(ctx), test.ShouldBeNil)
	test.That(t, r.closed, test.ShouldBeTrue)
	test.That(t, w.Robots(), test.ShouldBeEmpty)
}

func TestWorldPacing(t *testing.T) {
	mock := clock.NewMock()
	cfg := WorldConfig{TimeStep: 0.01, TimeScale: 0.5, Pacing: true}
	w := newTestWorld(t, cfg, WithClock(mock))

	done := make(chan error, 1)
	go func() {
		done <- w.Step(context.Background())
	}()

	// one step of 10ms at half speed waits 20ms of wall time
	mock.Add(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("step returned before its pacing delay")
	case <-time.After(20 * time.Millisecond):
	}
	for {
		mock.Add(10 * time.Millisecond)
		select {
		case err := <-done:
			test.That(t, err, test.ShouldBeNil)
			test.That(t, w.SimTime(), test.ShouldAlmostEqual, 0.01)
			return
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWorldPacingCancelled(t *testing.T) {
	mock := clock.NewMock()
	w := newTestWorld(t, WorldConfig{TimeStep: 0.01, TimeScale: 1, Pacing: true}, WithClock(mock))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	test.That(t, w.Step(ctx), test.ShouldEqual, context.Canceled)
	test.That(t, w.SimTime(), test.ShouldAlmostEqual, 0.01)
}
