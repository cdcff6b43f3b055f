package heatmap

import (
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/ironsheep/pathfinder-heatmap/internal/imaging"
	"github.com/ironsheep/pathfinder-heatmap/internal/mapping"
)

// DefaultProjectBlur is the Gaussian radius applied to projections, in output
// pixels.
const DefaultProjectBlur = 2.0

// ProjectOptions tune projection rendering. The zero value renders with the
// default gradient and blur and no grid.
type ProjectOptions struct {
	// Gradient colors normalized density; the zero value means
	// imaging.DefaultGradient.
	Gradient *imaging.Gradient

	// Blur is the Gaussian radius in output pixels. Zero uses
	// DefaultProjectBlur; negative disables blurring.
	Blur float64

	// GridStep, when positive, draws a grid line every GridStep blueprint
	// units, labelled with its coordinate.
	GridStep float64
}

// RenderImage draws normalized counts as an 8-bit grayscale image the size of
// the grid.
func (h *Heatmap) RenderImage() *image.Gray {
	return imaging.Intensity(h.Points())
}

// Render writes RenderImage to path. The format follows the extension.
func (h *Heatmap) Render(path string) error {
	return imaging.Save(h.RenderImage(), path)
}

// Density re-buckets the grid into blueprint space: a width-column raster
// covering the field of interest, with the row count chosen to keep its
// aspect. Each occupied pixel is mapped through the calibration and its count
// added to the cell it lands in. Pixels whose view ray misses the plane, or
// that land outside the field, are dropped. It returns the raster indexed
// [row][col] and the number of output pixels per blueprint unit.
func (h *Heatmap) Density(width int) ([][]float64, float64, error) {
	if width < 1 {
		return nil, 0, fmt.Errorf("projection width must be positive, got %d", width)
	}
	field := h.geom.FieldOfInterest()
	if !(field.Width() > 0) || !(field.Height() > 0) {
		return nil, 0, fmt.Errorf("%w: empty field of interest", mapping.ErrDegenerateGeometry)
	}

	scale := float64(width) / field.Width()
	height := max(1, int(math.Ceil(field.Height()*scale)))
	out := make([][]float64, height)
	for i := range out {
		out[i] = make([]float64, width)
	}

	var dropped int
	for y := 0; y < h.dim.Height; y++ {
		for x := 0; x < h.dim.Width; x++ {
			c := h.counts[y*h.dim.Width+x]
			if c == 0 {
				continue
			}
			uv, err := mapping.ImageToBlueprint(mapping.Point{X: float64(x), Y: float64(y)}, h.geom, h.dim)
			if err != nil {
				if errors.Is(err, mapping.ErrDegenerateGeometry) {
					dropped++
					continue
				}
				return nil, 0, err
			}
			col := int(math.Floor((uv.X - field.MinU) * scale))
			row := int(math.Floor((uv.Y - field.MinV) * scale))
			if col == width && uv.X <= field.MaxU {
				col--
			}
			if row == height && uv.Y <= field.MaxV {
				row--
			}
			if col < 0 || col >= width || row < 0 || row >= height {
				dropped++
				continue
			}
			out[row][col] += float64(c)
		}
	}
	if dropped > 0 {
		log.Printf("[Heatmap] projection dropped %d occupied pixels outside the field of interest", dropped)
	}
	return out, scale, nil
}

// ProjectImage renders the blueprint-space density colorized between the
// gradient endpoints and blurred, width pixels wide.
func (h *Heatmap) ProjectImage(width int, opts ProjectOptions) (image.Image, error) {
	density, scale, err := h.Density(width)
	if err != nil {
		return nil, err
	}
	normalize(density)

	gradient := imaging.DefaultGradient()
	if opts.Gradient != nil {
		gradient = *opts.Gradient
	}
	blur := opts.Blur
	if blur == 0 {
		blur = DefaultProjectBlur
	}

	img := imaging.Blur(imaging.Colorize(imaging.Intensity(density), gradient), blur)

	if opts.GridStep > 0 {
		field := h.geom.FieldOfInterest()
		step := opts.GridStep
		gridded, err := imaging.GridOverlay(img, imaging.GridOptions{
			Spacing: step * scale,
			Color:   "#FFFFFF60",
			Label: func(i, j int) string {
				return formatUnit(field.MinU+float64(i)*step) + "," + formatUnit(field.MinV+float64(j)*step)
			},
		})
		if err != nil {
			return nil, err
		}
		return gridded, nil
	}
	return img, nil
}

// Project writes ProjectImage to path and extends the projection period to
// moment. The caller persists the heatmap afterwards.
func (h *Heatmap) Project(path string, width int, moment time.Time, opts ProjectOptions) error {
	img, err := h.ProjectImage(width, opts)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return err
	}
	h.projected = h.projected.Include(moment)
	return nil
}

// OverlayImage paints normalized counts into the red channel, multiplied by
// scale, blurs them by blur pixels and adds them, clipped, onto a copy of
// base. The layer is resized to base when their sizes differ.
func (h *Heatmap) OverlayImage(base image.Image, scale, blur float64) image.Image {
	layer := imaging.Blur(imaging.ChannelLayer(h.Points(), imaging.Red, scale), blur)
	return imaging.AddClipped(base, layer)
}

// Overlay reads the image at basePath, overlays the heatmap and writes the
// result to path.
func (h *Heatmap) Overlay(basePath, path string, scale, blur float64) error {
	base, err := imaging.Decode(basePath)
	if err != nil {
		return err
	}
	return imaging.Save(h.OverlayImage(base, scale, blur), path)
}

// normalize divides every cell by the largest one, leaving an all-zero raster
// unchanged.
func normalize(grid [][]float64) {
	var m float64
	for _, row := range grid {
		for _, v := range row {
			m = math.Max(m, v)
		}
	}
	if m == 0 {
		return
	}
	for _, row := range grid {
		for i := range row {
			row[i] /= m
		}
	}
}

func formatUnit(v float64) string {
	r := math.Round(v*10) / 10
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
