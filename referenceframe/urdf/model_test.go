package urdf

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/testutils"
)

func TestParseArm(t *testing.T) {
	cfg, err := ParseModelXMLFile(testutils.WriteArm(t, t.TempDir()))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Name, test.ShouldEqual, "arm6")
	test.That(t, len(cfg.Links), test.ShouldEqual, 8)
	test.That(t, cfg.NumMovableJoints(), test.ShouldEqual, 6)

	root, err := cfg.RootLink()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, root, test.ShouldEqual, "base_link")

	ordered, err := cfg.OrderedJoints()
	test.That(t, err, test.ShouldBeNil)
	names := make([]string, 0, len(ordered))
	for _, j := range ordered {
		names = append(names, j.Name)
	}
	test.That(t, names, test.ShouldResemble, []string{"joint1", "joint2", "joint3", "joint4", "joint5", "joint6", "ee_joint"})

	origin, err := ordered[1].Origin.Parse()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, origin.Point, test.ShouldResemble, r3.Vector{Z: 0.2})
	axis, err := ordered[1].Axis.Parse()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, axis, test.ShouldResemble, r3.Vector{Y: 1})
	test.That(t, ordered[1].Limit.Velocity, test.ShouldEqual, 3.)
}

func TestValidateRejects(t *testing.T) {
	for _, tc := range []struct {
		name string
		xml  string
		msg  string
	}{
		{
			"no links",
			`<robot name="r"></robot>`,
			"no links",
		},
		{
			"unknown parent",
			`<robot name="r"><link name="a"/><link name="b"/>
			<joint name="j" type="fixed"><parent link="x"/><child link="b"/></joint></robot>`,
			"unknown parent",
		},
		{
			"two roots",
			`<robot name="r"><link name="a"/><link name="b"/></robot>`,
			"exactly one root",
		},
		{
			"cycle",
			`<robot name="r"><link name="a"/><link name="b"/><link name="c"/>
			<joint name="j1" type="fixed"><parent link="a"/><child link="b"/></joint>
			<joint name="j2" type="fixed"><parent link="b"/><child link="c"/></joint>
			<joint name="j3" type="fixed"><parent link="c"/><child link="b"/></joint></robot>`,
			"two parent joints",
		},
		{
			"revolute without limit",
			`<robot name="r"><link name="a"/><link name="b"/>
			<joint name="j" type="revolute"><parent link="a"/><child link="b"/></joint></robot>`,
			"no limit",
		},
		{
			"unsupported type",
			`<robot name="r"><link name="a"/><link name="b"/>
			<joint name="j" type="floating"><parent link="a"/><child link="b"/></joint></robot>`,
			"unsupported joint type",
		},
		{
			"bad origin",
			`<robot name="r"><link name="a"/><link name="b"/>
			<joint name="j" type="fixed"><parent link="a"/><child link="b"/><origin xyz="1 2"/></joint></robot>`,
			"origin xyz",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := UnmarshalModelXML([]byte(tc.xml))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.msg)
		})
	}
}

func TestMergeAndSerialize(t *testing.T) {
	dir := t.TempDir()
	base, err := ParseModelXMLFile(testutils.WriteArm(t, dir))
	test.That(t, err, test.ShouldBeNil)
	peg, err := ParseModelXMLFile(testutils.WritePeg(t, dir))
	test.That(t, err, test.ShouldBeNil)

	offset := spatialmath.NewPoseFromRPY(r3.Vector{X: 0.02}, 0, 0.5, 0)
	merged, err := Merge(base, peg, "ee_tool", offset)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(merged.Links), test.ShouldEqual, len(base.Links)+len(peg.Links))
	test.That(t, len(merged.Joints), test.ShouldEqual, len(base.Joints)+len(peg.Joints)+1)
	test.That(t, len(base.Joints), test.ShouldEqual, 7)

	out := filepath.Join(dir, "merged.urdf")
	test.That(t, Editor{}.Serialize(merged, out), test.ShouldBeNil)
	reread, err := Editor{}.Parse(out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, reread.Name, test.ShouldEqual, "arm6")
	test.That(t, len(reread.Other), test.ShouldEqual, 1)

	l, ok := reread.Link("ee_tool")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, strings.Contains(l.Inner, "inertial"), test.ShouldBeTrue)

	var attach *Joint
	for i := range reread.Joints {
		if reread.Joints[i].Name == "ee_tool_to_peg" {
			attach = &reread.Joints[i]
		}
	}
	test.That(t, attach, test.ShouldNotBeNil)
	got, err := attach.Origin.Parse()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(got, offset, 1e-9), test.ShouldBeTrue)

	t.Run("unknown attach link", func(t *testing.T) {
		_, err := Merge(base, peg, "nope", offset)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("name collision", func(t *testing.T) {
		_, err := Merge(merged, peg, "ee_tool", offset)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "exists in both")
	})
}
