package urdf

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/robokit/kinsim/spatialmath"
)

// Validate checks that the description is a single tree: unique link and joint names, joints that
// reference existing links, at most one parent per link, exactly one root and no cycles.
func (cfg *ModelConfig) Validate() error {
	if len(cfg.Links) == 0 {
		return errors.Errorf("robot %q has no links", cfg.Name)
	}
	linkIdx := make(map[string]int, len(cfg.Links))
	for i, l := range cfg.Links {
		if l.Name == "" {
			return errors.New("link with empty name")
		}
		if _, ok := linkIdx[l.Name]; ok {
			return errors.Errorf("duplicate link %q", l.Name)
		}
		linkIdx[l.Name] = i
	}

	g := simple.NewDirectedGraph()
	for i := range cfg.Links {
		g.AddNode(simple.Node(i))
	}
	jointNames := make(map[string]bool, len(cfg.Joints))
	hasParent := make(map[string]string, len(cfg.Joints))
	for _, j := range cfg.Joints {
		if jointNames[j.Name] {
			return errors.Errorf("duplicate joint %q", j.Name)
		}
		jointNames[j.Name] = true
		switch j.Type {
		case RevoluteJoint, PrismaticJoint:
			if j.Limit == nil {
				return errors.Errorf("%s joint %q has no limit", j.Type, j.Name)
			}
		case ContinuousJoint, FixedJoint:
		default:
			return errors.Errorf("unsupported joint type %q on joint %q", j.Type, j.Name)
		}
		p, ok := linkIdx[j.Parent.Link]
		if !ok {
			return errors.Errorf("joint %q references unknown parent link %q", j.Name, j.Parent.Link)
		}
		c, ok := linkIdx[j.Child.Link]
		if !ok {
			return errors.Errorf("joint %q references unknown child link %q", j.Name, j.Child.Link)
		}
		if p == c {
			return errors.Errorf("joint %q connects link %q to itself", j.Name, j.Child.Link)
		}
		if other, ok := hasParent[j.Child.Link]; ok {
			return errors.Errorf("link %q has two parent joints, %q and %q", j.Child.Link, other, j.Name)
		}
		hasParent[j.Child.Link] = j.Name
		g.SetEdge(g.NewEdge(simple.Node(p), simple.Node(c)))
		if _, err := j.Origin.Parse(); err != nil {
			return errors.Wrapf(err, "joint %q", j.Name)
		}
		if j.Movable() {
			if _, err := j.Axis.Parse(); err != nil {
				return errors.Wrapf(err, "joint %q", j.Name)
			}
		}
	}

	if _, err := topo.Sort(g); err != nil {
		return errors.Wrap(err, "kinematic tree contains a cycle")
	}
	if roots := len(cfg.Links) - len(hasParent); roots != 1 {
		return errors.Errorf("robot %q must have exactly one root link but has %d", cfg.Name, roots)
	}
	return nil
}

// RootLink returns the name of the only link without a parent joint.
func (cfg *ModelConfig) RootLink() (string, error) {
	children := make(map[string]bool, len(cfg.Joints))
	for _, j := range cfg.Joints {
		children[j.Child.Link] = true
	}
	for _, l := range cfg.Links {
		if !children[l.Name] {
			return l.Name, nil
		}
	}
	return "", errors.Errorf("robot %q has no root link", cfg.Name)
}

// OrderedJoints returns the joints sorted so that every joint comes after the joint producing its
// parent link. Ties are broken by declaration order of the child links, which keeps the order
// stable across reloads of the same file.
func (cfg *ModelConfig) OrderedJoints() ([]Joint, error) {
	linkIdx := make(map[string]int, len(cfg.Links))
	for i, l := range cfg.Links {
		linkIdx[l.Name] = i
	}
	byChild := make(map[int]Joint, len(cfg.Joints))
	g := simple.NewDirectedGraph()
	for i := range cfg.Links {
		g.AddNode(simple.Node(i))
	}
	for _, j := range cfg.Joints {
		p, c := linkIdx[j.Parent.Link], linkIdx[j.Child.Link]
		g.SetEdge(g.NewEdge(simple.Node(p), simple.Node(c)))
		byChild[c] = j
	}
	sorted, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		sort.Slice(nodes, func(a, b int) bool { return nodes[a].ID() < nodes[b].ID() })
	})
	if err != nil {
		return nil, errors.Wrap(err, "kinematic tree contains a cycle")
	}
	out := make([]Joint, 0, len(cfg.Joints))
	for _, n := range sorted {
		if j, ok := byChild[int(n.ID())]; ok {
			out = append(out, j)
		}
	}
	return out, nil
}

// Clone returns a deep copy of the description.
func (cfg *ModelConfig) Clone() *ModelConfig {
	out := &ModelConfig{
		Name:   cfg.Name,
		Links:  append([]Link(nil), cfg.Links...),
		Joints: make([]Joint, len(cfg.Joints)),
		Other:  append([]rawElement(nil), cfg.Other...),
	}
	for i, j := range cfg.Joints {
		cp := j
		if j.Origin != nil {
			o := *j.Origin
			cp.Origin = &o
		}
		if j.Axis != nil {
			a := *j.Axis
			cp.Axis = &a
		}
		if j.Limit != nil {
			l := *j.Limit
			cp.Limit = &l
		}
		out.Joints[i] = cp
	}
	return out
}

// Merge returns a new description with tool's tree rigidly attached to link of base. The tool's
// root link is connected through a fixed joint whose origin is offset. Neither input is modified.
func Merge(base, tool *ModelConfig, link string, offset spatialmath.Pose) (*ModelConfig, error) {
	if _, ok := base.Link(link); !ok {
		return nil, errors.Errorf("cannot attach to unknown link %q", link)
	}
	toolRoot, err := tool.RootLink()
	if err != nil {
		return nil, err
	}
	merged := base.Clone()
	for _, l := range tool.Links {
		if _, ok := base.Link(l.Name); ok {
			return nil, errors.Errorf("link %q exists in both %q and %q", l.Name, base.Name, tool.Name)
		}
	}
	toolCopy := tool.Clone()
	merged.Links = append(merged.Links, toolCopy.Links...)
	merged.Joints = append(merged.Joints, Joint{
		Name:   link + "_to_" + toolRoot,
		Type:   FixedJoint,
		Parent: Frame{Link: link},
		Child:  Frame{Link: toolRoot},
		Origin: NewOrigin(offset),
	})
	merged.Joints = append(merged.Joints, toolCopy.Joints...)
	if err := merged.Validate(); err != nil {
		return nil, errors.Wrapf(err, "merging %q onto %q", tool.Name, base.Name)
	}
	return merged, nil
}

// Editor parses, merges and serializes URDF files. It is the tree editor used by the composer.
type Editor struct{}

// Parse reads a URDF file.
func (Editor) Parse(path string) (*ModelConfig, error) {
	return ParseModelXMLFile(path)
}

// Merge attaches tool to link of base at offset.
func (Editor) Merge(base, tool *ModelConfig, link string, offset spatialmath.Pose) (*ModelConfig, error) {
	return Merge(base, tool, link, offset)
}

// Serialize writes the tree to path.
func (Editor) Serialize(cfg *ModelConfig, path string) error {
	return cfg.WriteFile(path)
}
