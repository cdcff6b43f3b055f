package mapping

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ImageToBlueprint maps a pixel position into blueprint space using the
// calibrated image dimensions.
//
// Returns ErrRange when p lies outside [0,W]x[0,H] and ErrDegenerateGeometry
// when the view ray through p never meets the calibrated plane in front of
// the camera.
func (g *Geometry) ImageToBlueprint(p Point) (Point, error) {
	return g.project(p, g.cal.Dim)
}

// BlueprintToImage maps a blueprint position back to pixel space using the
// calibrated image dimensions. The result may lie outside the image.
//
// The inverse is exact for every point the forward transform produced.
// Points on or behind the camera's image plane return ErrDegenerateGeometry.
func (g *Geometry) BlueprintToImage(uv Point) (Point, error) {
	return g.unproject(uv, g.cal.Dim)
}

// ImageToBlueprint maps pixelCoord from an image of size dim into blueprint
// space through geom.
func ImageToBlueprint(pixelCoord Point, geom *Geometry, dim Dimensions) (Point, error) {
	return geom.project(pixelCoord, dim)
}

// BlueprintToImage maps blueprintCoord back into an image of size dim through geom.
func BlueprintToImage(blueprintCoord Point, geom *Geometry, dim Dimensions) (Point, error) {
	return geom.unproject(blueprintCoord, dim)
}

func (g *Geometry) project(p Point, dim Dimensions) (Point, error) {
	if p.X < 0 || p.Y < 0 {
		return Point{}, fmt.Errorf("%w: negative position (%v,%v)", ErrRange, p.X, p.Y)
	}
	if p.X > float64(dim.Width) || p.Y > float64(dim.Height) {
		return Point{}, fmt.Errorf("%w: (%v,%v) outside %dx%d image", ErrRange, p.X, p.Y, dim.Width, dim.Height)
	}

	dir := g.direction(center(p, dim))
	denom := g.normal.Dot(dir)
	if math.Abs(denom) < epsilon {
		return Point{}, fmt.Errorf("%w: view ray through (%v,%v) is parallel to the plane",
			ErrDegenerateGeometry, p.X, p.Y)
	}

	scale := g.normal.Dot(g.origin) / denom
	if scale <= 0 {
		return Point{}, fmt.Errorf("%w: view ray through (%v,%v) meets the plane behind the camera",
			ErrDegenerateGeometry, p.X, p.Y)
	}
	offset := dir.Mul(scale).Sub(g.origin)

	return Point{
		X: offset.Dot(g.uAxis) / g.uAxis.Norm(),
		Y: offset.Dot(g.vAxis) / g.vAxis.Norm(),
	}, nil
}

func (g *Geometry) unproject(uv Point, dim Dimensions) (Point, error) {
	if math.IsNaN(uv.X) || math.IsNaN(uv.Y) || math.IsInf(uv.X, 0) || math.IsInf(uv.Y, 0) {
		return Point{}, fmt.Errorf("%w: blueprint coordinate (%v,%v) is not finite", ErrRange, uv.X, uv.Y)
	}

	// Coefficients along the unit axes whose scalar projections are (u, v).
	var coef mat.VecDense
	coef.MulVec(g.gramInv, mat.NewVecDense(2, []float64{uv.X, uv.Y}))

	world := g.origin.
		Add(g.uAxis.Normalize().Mul(coef.AtVec(0))).
		Add(g.vAxis.Normalize().Mul(coef.AtVec(1)))

	depth := world.Z / g.fov.Z
	if depth < epsilon {
		return Point{}, fmt.Errorf("%w: blueprint point (%v,%v) is not in front of the camera", ErrDegenerateGeometry, uv.X, uv.Y)
	}

	onPlane := world.Mul(1 / depth)
	return uncenter(Point{X: onPlane.X / g.fov.X, Y: onPlane.Y / g.fov.Y}, dim), nil
}
