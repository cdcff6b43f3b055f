package source

import (
	"image"
	"time"

	"github.com/ironsheep/pathfinder-heatmap/internal/imaging"
	"github.com/ironsheep/pathfinder-heatmap/internal/mapping"
)

// Source is one capture of the monitored area.
//
// Implementations are immutable after load and safe for concurrent reads.
type Source interface {
	// Kind reports the representation.
	Kind() Kind

	// Path is the file the source was loaded from, if any.
	Path() string

	// TimeTaken is the capture time.
	TimeTaken() time.Time

	// At returns the color sample at a coordinate produced by Coordinates.
	At(p image.Point) imaging.RGB

	// Coordinates enumerates every sample coordinate for an image of the
	// given size, row by row.
	Coordinates(dim mapping.Dimensions) []image.Point

	// Footprint is the pixel area that movement at p stands for.
	Footprint(p image.Point) image.Rectangle
}

// WholeImage samples a decoded raster per pixel.
type WholeImage struct {
	path  string
	img   *image.NRGBA
	taken time.Time
}

// NewWholeImage wraps an already decoded image. img must have its bounds at
// the origin, as imaging.Decode returns.
func NewWholeImage(path string, img *image.NRGBA, taken time.Time) *WholeImage {
	return &WholeImage{path: path, img: img, taken: taken}
}

func (w *WholeImage) Kind() Kind           { return Whole }
func (w *WholeImage) Path() string         { return w.path }
func (w *WholeImage) TimeTaken() time.Time { return w.taken }

// Image exposes the decoded raster. It must not be modified.
func (w *WholeImage) Image() *image.NRGBA { return w.img }

// At returns the pixel color, or black outside the raster.
func (w *WholeImage) At(p image.Point) imaging.RGB {
	if !p.In(w.img.Rect) {
		return imaging.RGB{}
	}
	return imaging.RGBAt(w.img, p.X, p.Y)
}

// Coordinates lists every pixel of dim.
func (w *WholeImage) Coordinates(dim mapping.Dimensions) []image.Point {
	return gridPoints(dim, 1, 1)
}

// Footprint is the single pixel at p.
func (w *WholeImage) Footprint(p image.Point) image.Rectangle {
	return image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))}
}

// ChunkSample is the summary of one block.
type ChunkSample struct {
	Color    imaging.RGB
	Variance float64
}

// ChunkImage samples a block summary.
type ChunkImage struct {
	path    string
	taken   time.Time
	size    ChunkSize
	samples map[image.Point]ChunkSample
}

// NewChunkImage builds a chunk source from block samples keyed by each
// block's top-left pixel.
func NewChunkImage(path string, taken time.Time, size ChunkSize, samples map[image.Point]ChunkSample) *ChunkImage {
	return &ChunkImage{path: path, taken: taken, size: size, samples: samples}
}

func (c *ChunkImage) Kind() Kind           { return Chunk }
func (c *ChunkImage) Path() string         { return c.path }
func (c *ChunkImage) TimeTaken() time.Time { return c.taken }

// Size is the block size the summary was built with.
func (c *ChunkImage) Size() ChunkSize { return c.size }

// At returns the average color of the block whose top-left pixel is p, or
// black when the summary has no such block.
func (c *ChunkImage) At(p image.Point) imaging.RGB {
	return c.samples[p].Color
}

// Variance returns the color variance of the block at p.
func (c *ChunkImage) Variance(p image.Point) float64 {
	return c.samples[p].Variance
}

// Coordinates lists the top-left pixel of every block covering dim.
func (c *ChunkImage) Coordinates(dim mapping.Dimensions) []image.Point {
	return gridPoints(dim, c.size.Width, c.size.Height)
}

// Footprint is the block starting at p. It may extend past the image edge;
// callers clip it.
func (c *ChunkImage) Footprint(p image.Point) image.Rectangle {
	return image.Rect(p.X, p.Y, p.X+c.size.Width, p.Y+c.size.Height)
}

func gridPoints(dim mapping.Dimensions, stepX, stepY int) []image.Point {
	if dim.Width <= 0 || dim.Height <= 0 || stepX <= 0 || stepY <= 0 {
		return nil
	}
	cols := (dim.Width + stepX - 1) / stepX
	rows := (dim.Height + stepY - 1) / stepY
	pts := make([]image.Point, 0, cols*rows)
	for y := 0; y < dim.Height; y += stepY {
		for x := 0; x < dim.Width; x += stepX {
			pts = append(pts, image.Pt(x, y))
		}
	}
	return pts
}
