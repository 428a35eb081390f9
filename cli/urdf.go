package cli

import (
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/robokit/kinsim/referenceframe/urdf"
	"github.com/robokit/kinsim/spatialmath"
)

// InspectAction is the corresponding action for 'inspect'.
func InspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("inspect expects exactly one URDF file")
	}
	cfg, err := urdf.ParseModelXMLFile(c.Args().First())
	if err != nil {
		return err
	}
	root, err := cfg.RootLink()
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s (root link %q, %d movable joints)", cfg, root, cfg.NumMovableJoints())

	joints, err := cfg.OrderedJoints()
	if err != nil {
		return err
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Joint", "Type", "Parent", "Child", "Axis", "Limits"})
	for i, j := range joints {
		axis, limits := "", ""
		if j.Axis != nil {
			axis = j.Axis.XYZ
		}
		if j.Limit != nil {
			limits = fmt.Sprintf("[%.3f, %.3f]", j.Limit.Lower, j.Limit.Upper)
		}
		t.AppendRow(table.Row{i, j.Name, j.Type, j.Parent.Link, j.Child.Link, axis, limits})
	}
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

// MergeAction is the corresponding action for 'merge'.
func MergeAction(c *cli.Context) error {
	offset, err := offsetFromFlags(c)
	if err != nil {
		return err
	}
	base, err := urdf.ParseModelXMLFile(c.String(flagBase))
	if err != nil {
		return errors.Wrap(err, "base")
	}
	tool, err := urdf.ParseModelXMLFile(c.String(flagTool))
	if err != nil {
		return errors.Wrap(err, "tool")
	}
	merged, err := urdf.Merge(base, tool, c.String(flagLink), offset)
	if err != nil {
		return err
	}
	if err := merged.WriteFile(c.String(flagOut)); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %s: %s", c.String(flagOut), merged)
	return nil
}

func offsetFromFlags(c *cli.Context) (spatialmath.Pose, error) {
	var xyz, rpy [3]float64
	for name, dst := range map[string]*[3]float64{flagXYZ: &xyz, flagRPY: &rpy} {
		values := c.Float64Slice(name)
		if len(values) == 0 {
			continue
		}
		if len(values) != 3 {
			return spatialmath.Pose{}, errors.Errorf("--%s needs 3 values, got %d", name, len(values))
		}
		copy(dst[:], values)
	}
	return spatialmath.NewPoseFromRPY(r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, rpy[0], rpy[1], rpy[2]), nil
}
