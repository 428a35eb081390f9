// Package urdf reads, validates, merges and writes Universal Robot Description Format files.
package urdf

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/utils"
)

// Extension is the file extension associated with URDF files.
const Extension string = "urdf"

// Joint types understood by the kinematic engine.
const (
	RevoluteJoint   = "revolute"
	ContinuousJoint = "continuous"
	PrismaticJoint  = "prismatic"
	FixedJoint      = "fixed"
)

// ModelConfig represents a URDF robot element. Links keep their inner XML untouched so visual,
// collision and inertial data survive a merge; joints are decoded fully.
type ModelConfig struct {
	XMLName xml.Name     `xml:"robot"`
	Name    string       `xml:"name,attr"`
	Links   []Link       `xml:"link"`
	Joints  []Joint      `xml:"joint"`
	Other   []rawElement `xml:",any"`
}

// Link is a URDF link element.
type Link struct {
	XMLName xml.Name `xml:"link"`
	Name    string   `xml:"name,attr"`
	Inner   string   `xml:",innerxml"`
}

// Joint is a URDF joint element.
type Joint struct {
	XMLName xml.Name `xml:"joint"`
	Name    string   `xml:"name,attr"`
	Type    string   `xml:"type,attr"`
	Parent  Frame    `xml:"parent"`
	Child   Frame    `xml:"child"`
	Origin  *Origin  `xml:"origin,omitempty"`
	Axis    *Axis    `xml:"axis,omitempty"`
	Limit   *Limit   `xml:"limit,omitempty"`
}

// Frame names a link from inside a joint element.
type Frame struct {
	Link string `xml:"link,attr"`
}

// Limit is a URDF joint limit. Translation limits are in meters, revolute limits in radians.
type Limit struct {
	XMLName  xml.Name `xml:"limit"`
	Lower    float64  `xml:"lower,attr"`
	Upper    float64  `xml:"upper,attr"`
	Effort   float64  `xml:"effort,attr,omitempty"`
	Velocity float64  `xml:"velocity,attr,omitempty"`
}

// Axis is a URDF joint axis.
type Axis struct {
	XMLName xml.Name `xml:"axis"`
	XYZ     string   `xml:"xyz,attr"`
}

// Origin is a URDF origin element: "x y z" in meters and fixed-axis "r p y" in radians.
type Origin struct {
	XMLName xml.Name `xml:"origin"`
	RPY     string   `xml:"rpy,attr,omitempty"`
	XYZ     string   `xml:"xyz,attr,omitempty"`
}

type rawElement struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// NewOrigin converts a pose to a URDF origin.
func NewOrigin(p spatialmath.Pose) *Origin {
	r, pi, y := p.RPY()
	return &Origin{
		XYZ: utils.FloatSliceToSpaceDelimitedString([]float64{p.Point.X, p.Point.Y, p.Point.Z}),
		RPY: utils.FloatSliceToSpaceDelimitedString([]float64{r, pi, y}),
	}
}

// Parse converts the origin to a pose. A nil origin is the identity.
func (o *Origin) Parse() (spatialmath.Pose, error) {
	if o == nil {
		return spatialmath.NewZeroPose(), nil
	}
	xyz, err := parseTriple(o.XYZ, "origin xyz")
	if err != nil {
		return spatialmath.Pose{}, err
	}
	rpy, err := parseTriple(o.RPY, "origin rpy")
	if err != nil {
		return spatialmath.Pose{}, err
	}
	return spatialmath.NewPoseFromRPY(r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, rpy[0], rpy[1], rpy[2]), nil
}

// Parse returns the unit joint axis. A nil axis is the URDF default, +x.
func (a *Axis) Parse() (r3.Vector, error) {
	if a == nil {
		return r3.Vector{X: 1}, nil
	}
	xyz, err := parseTriple(a.XYZ, "axis xyz")
	if err != nil {
		return r3.Vector{}, err
	}
	v := r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	if v.Norm() == 0 {
		return r3.Vector{}, errors.New("joint axis must be non-zero")
	}
	return v.Normalize(), nil
}

// Movable reports whether the joint has a degree of freedom.
func (j *Joint) Movable() bool {
	return j.Type != FixedJoint
}

func parseTriple(s, what string) ([]float64, error) {
	if s == "" {
		return []float64{0, 0, 0}, nil
	}
	vals := utils.SpaceDelimitedStringToFloatSlice(s)
	if len(vals) != 3 {
		return nil, utils.NewDimensionMismatchError(what, 3, len(vals))
	}
	for _, v := range vals {
		if math.IsNaN(v) {
			return nil, errors.Errorf("%s: cannot parse %q", what, s)
		}
	}
	return vals, nil
}

// UnmarshalModelXML decodes URDF data and validates the resulting tree.
func UnmarshalModelXML(xmlData []byte) (*ModelConfig, error) {
	if len(xmlData) == 0 {
		return nil, errors.New("no URDF data")
	}
	cfg := &ModelConfig{}
	if err := xml.Unmarshal(xmlData, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to convert URDF data to equivalent ModelConfig struct")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseModelXMLFile reads and decodes a URDF file.
func ParseModelXMLFile(filename string) (*ModelConfig, error) {
	//nolint:gosec
	xmlData, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read URDF file")
	}
	cfg, err := UnmarshalModelXML(xmlData)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", filename)
	}
	return cfg, nil
}

// MarshalModelXML encodes the tree as indented URDF.
func (cfg *ModelConfig) MarshalModelXML() ([]byte, error) {
	body, err := xml.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

// WriteFile serializes the tree to filename.
func (cfg *ModelConfig) WriteFile(filename string) error {
	data, err := cfg.MarshalModelXML()
	if err != nil {
		return err
	}
	//nolint:gosec
	return os.WriteFile(filename, data, 0o644)
}

// Link returns the named link.
func (cfg *ModelConfig) Link(name string) (*Link, bool) {
	for i := range cfg.Links {
		if cfg.Links[i].Name == name {
			return &cfg.Links[i], true
		}
	}
	return nil, false
}

// NumMovableJoints counts the joints with a degree of freedom.
func (cfg *ModelConfig) NumMovableJoints() int {
	n := 0
	for i := range cfg.Joints {
		if cfg.Joints[i].Movable() {
			n++
		}
	}
	return n
}

func (cfg *ModelConfig) String() string {
	return fmt.Sprintf("robot %q: %d links, %d joints", cfg.Name, len(cfg.Links), len(cfg.Joints))
}
