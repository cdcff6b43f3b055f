package mapping

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// epsilon bounds every "is this zero" test on projected quantities.
const epsilon = 1e-12

// Point is a real-valued 2D coordinate in either frame.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dimensions is the size of the camera image in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FieldOfView converts centered pixel positions into 3D view directions.
// All three components must be positive.
type FieldOfView [3]float64

// Corner is one calibration reference: where it appears in the image and how
// far it is from the camera, in blueprint units.
type Corner struct {
	Position Point   `json:"position"`
	Distance float64 `json:"distance"`
}

// CornerNames lists the calibration corners in the order Build expects them.
var CornerNames = [4]string{"upperleft", "upperright", "lowerleft", "lowerright"}

// Calibration holds everything needed to build a Geometry. It is the
// persisted form of a Geometry.
type Calibration struct {
	Dim     Dimensions  `json:"dimensions"`
	FOV     FieldOfView `json:"fov"`
	Corners [4]Corner   `json:"corners"`
}

// Rect is an axis-aligned range in blueprint space.
type Rect struct {
	MinU float64 `json:"min_u"`
	MinV float64 `json:"min_v"`
	MaxU float64 `json:"max_u"`
	MaxV float64 `json:"max_v"`
}

// Width returns the extent of the range along u.
func (r Rect) Width() float64 { return r.MaxU - r.MinU }

// Height returns the extent of the range along v.
func (r Rect) Height() float64 { return r.MaxV - r.MinV }

// Contains reports whether uv lies inside the range, edges included.
func (r Rect) Contains(uv Point) bool {
	return uv.X >= r.MinU && uv.X <= r.MaxU && uv.Y >= r.MinV && uv.Y <= r.MaxV
}

// Geometry is a built, immutable camera calibration.
//
// Geometry values are created by Build and are safe for concurrent use.
type Geometry struct {
	cal Calibration
	fov r3.Vector

	directions [4]r3.Vector // per-corner view directions
	world      [4]r3.Vector // per-corner projected points

	origin r3.Vector
	normal r3.Vector
	uAxis  r3.Vector
	vAxis  r3.Vector

	// inverse Gram matrix of the unit axes, used by BlueprintToImage
	gramInv *mat.Dense

	field Rect
}

// Build validates a calibration and derives its Geometry.
//
// Parameters:
//   - cal: image dimensions, field of view and the four corners in
//     upperleft, upperright, lowerleft, lowerright order.
//
// Returns:
//   - *Geometry: the immutable calibration, ready for transforms.
//   - error: ErrConfiguration for invalid inputs, ErrDegenerateGeometry when the
//     corners do not span a plane.
//
// Zero distances are rejected along with negative ones. The four projected
// corners are assumed coplanar; only the first three define the plane.
func Build(cal Calibration) (*Geometry, error) {
	if err := validate(cal); err != nil {
		return nil, err
	}

	g := &Geometry{
		cal: cal,
		fov: r3.Vector{X: cal.FOV[0], Y: cal.FOV[1], Z: cal.FOV[2]},
	}

	for i, c := range cal.Corners {
		dir := g.direction(center(c.Position, cal.Dim))
		g.directions[i] = dir
		g.world[i] = dir.Mul(c.Distance / dir.Norm())
	}

	g.origin = g.world[0]
	g.uAxis = g.world[1].Sub(g.origin)
	g.vAxis = g.world[2].Sub(g.origin)

	if g.uAxis.Norm() < epsilon || g.vAxis.Norm() < epsilon {
		return nil, fmt.Errorf("%w: zero-length blueprint axis", ErrDegenerateGeometry)
	}

	n := g.uAxis.Cross(g.vAxis)
	if n.Norm() < epsilon {
		return nil, fmt.Errorf("%w: calibration corners are collinear", ErrDegenerateGeometry)
	}
	g.normal = n.Normalize()

	a, b := g.uAxis.Normalize(), g.vAxis.Normalize()
	ab := a.Dot(b)
	gram := mat.NewDense(2, 2, []float64{1, ab, ab, 1})
	var inv mat.Dense
	if err := inv.Inverse(gram); err != nil {
		return nil, fmt.Errorf("%w: blueprint axes are parallel: %v", ErrDegenerateGeometry, err)
	}
	g.gramInv = &inv

	field, err := g.fieldOfInterest()
	if err != nil {
		return nil, err
	}
	g.field = field

	return g, nil
}

func validate(cal Calibration) error {
	if cal.Dim.Width <= 0 || cal.Dim.Height <= 0 {
		return fmt.Errorf("%w: image dimensions must be positive, got %dx%d",
			ErrConfiguration, cal.Dim.Width, cal.Dim.Height)
	}
	for i, f := range cal.FOV {
		if !(f > 0) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: all FOV values must be positive, fov[%d]=%v", ErrConfiguration, i, f)
		}
	}
	for i, c := range cal.Corners {
		if !(c.Distance > 0) || math.IsInf(c.Distance, 0) {
			return fmt.Errorf("%w: %s distance must be positive, got %v",
				ErrConfiguration, CornerNames[i], c.Distance)
		}
	}
	for i := 0; i < len(cal.Corners); i++ {
		for j := i + 1; j < len(cal.Corners); j++ {
			if cal.Corners[i].Position == cal.Corners[j].Position {
				return fmt.Errorf("%w: %s and %s overlap at (%v,%v)", ErrConfiguration,
					CornerNames[i], CornerNames[j], cal.Corners[i].Position.X, cal.Corners[i].Position.Y)
			}
		}
	}
	return nil
}

// fieldOfInterest maps the four corners forward and returns their bounding range.
func (g *Geometry) fieldOfInterest() (Rect, error) {
	r := Rect{MinU: math.Inf(1), MinV: math.Inf(1), MaxU: math.Inf(-1), MaxV: math.Inf(-1)}
	for _, c := range g.cal.Corners {
		uv, err := g.project(c.Position, g.cal.Dim)
		if err != nil {
			return Rect{}, err
		}
		r.MinU = math.Min(r.MinU, uv.X)
		r.MinV = math.Min(r.MinV, uv.Y)
		r.MaxU = math.Max(r.MaxU, uv.X)
		r.MaxV = math.Max(r.MaxV, uv.Y)
	}
	if r.Width() < epsilon || r.Height() < epsilon {
		return Rect{}, fmt.Errorf("%w: field of interest has no area", ErrDegenerateGeometry)
	}
	return r, nil
}

// direction turns a centered image position into a view direction.
func (g *Geometry) direction(c Point) r3.Vector {
	return r3.Vector{X: c.X * g.fov.X, Y: c.Y * g.fov.Y, Z: g.fov.Z}
}

// Calibration returns the inputs the Geometry was built from.
func (g *Geometry) Calibration() Calibration { return g.cal }

// Dimensions returns the calibrated image size.
func (g *Geometry) Dimensions() Dimensions { return g.cal.Dim }

// FieldOfInterest returns the blueprint range spanned by the four corners.
func (g *Geometry) FieldOfInterest() Rect { return g.field }

// Normal returns the unit normal of the calibrated plane.
func (g *Geometry) Normal() r3.Vector { return g.normal }

// Origin returns the projected first corner, the blueprint origin.
func (g *Geometry) Origin() r3.Vector { return g.origin }

// Axes returns the u and v basis vectors. Their lengths are the blueprint
// distances from the first corner to the second and third corners.
func (g *Geometry) Axes() (u, v r3.Vector) { return g.uAxis, g.vAxis }

// WorldCorners returns the four corners projected into camera space.
func (g *Geometry) WorldCorners() [4]r3.Vector { return g.world }

func center(p Point, dim Dimensions) Point {
	w, h := float64(dim.Width), float64(dim.Height)
	return Point{
		X: (p.X - w/2) / w,
		Y: -(p.Y - h/2) / h,
	}
}

func uncenter(p Point, dim Dimensions) Point {
	w, h := float64(dim.Width), float64(dim.Height)
	return Point{
		X: w/2 + p.X*w,
		Y: h/2 - p.Y*h,
	}
}
