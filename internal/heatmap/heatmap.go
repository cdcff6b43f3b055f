package heatmap

import (
	"fmt"
	"image"

	"github.com/ironsheep/pathfinder-heatmap/internal/mapping"
	"github.com/ironsheep/pathfinder-heatmap/internal/period"
)

// Heatmap accumulates movement counts over the camera's pixel grid.
//
// Counts only grow: Add and Record are the only mutators. A Heatmap is not
// safe for concurrent mutation; Update serializes access to a persisted one.
type Heatmap struct {
	geom *mapping.Geometry
	dim  mapping.Dimensions

	// counts is row-major: counts[y*dim.Width+x].
	counts []uint32
	total  uint64

	ingest    period.Period
	projected period.Period
}

// New returns an empty heatmap over a dim-sized grid calibrated by geom.
func New(geom *mapping.Geometry, dim mapping.Dimensions) (*Heatmap, error) {
	if geom == nil {
		return nil, fmt.Errorf("%w: nil geometry", mapping.ErrConfiguration)
	}
	if dim.Width <= 0 || dim.Height <= 0 {
		return nil, fmt.Errorf("%w: heatmap dimensions %dx%d", mapping.ErrConfiguration, dim.Width, dim.Height)
	}
	return &Heatmap{
		geom:   geom,
		dim:    dim,
		counts: make([]uint32, dim.Width*dim.Height),
	}, nil
}

// Geometry returns the calibration the heatmap projects through.
func (h *Heatmap) Geometry() *mapping.Geometry { return h.geom }

// Dimensions returns the grid size.
func (h *Heatmap) Dimensions() mapping.Dimensions { return h.dim }

// Bounds is the grid as an image rectangle.
func (h *Heatmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, h.dim.Width, h.dim.Height)
}

// Add records one movement event at p.
func (h *Heatmap) Add(p image.Point) error {
	if !p.In(h.Bounds()) {
		return fmt.Errorf("%w: (%d,%d) outside %dx%d heatmap", mapping.ErrRange, p.X, p.Y, h.dim.Width, h.dim.Height)
	}
	h.counts[p.Y*h.dim.Width+p.X]++
	h.total++
	return nil
}

// addRect increments every cell of r, which must lie within Bounds. It
// returns the number of cells incremented.
func (h *Heatmap) addRect(r image.Rectangle) uint64 {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := h.counts[y*h.dim.Width : (y+1)*h.dim.Width]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x]++
		}
	}
	n := uint64(r.Dx() * r.Dy())
	h.total += n
	return n
}

// At returns the count at p, or zero outside the grid.
func (h *Heatmap) At(p image.Point) uint32 {
	if !p.In(h.Bounds()) {
		return 0
	}
	return h.counts[p.Y*h.dim.Width+p.X]
}

// Count is the total number of events recorded.
func (h *Heatmap) Count() uint64 { return h.total }

// Max is the largest single-cell count.
func (h *Heatmap) Max() uint32 {
	var m uint32
	for _, c := range h.counts {
		if c > m {
			m = c
		}
	}
	return m
}

// Occupied is the number of cells with a non-zero count.
func (h *Heatmap) Occupied() int {
	var n int
	for _, c := range h.counts {
		if c > 0 {
			n++
		}
	}
	return n
}

// Points returns the grid indexed [row][col], normalized so the largest count
// is 1. An all-zero grid is returned as zeros.
func (h *Heatmap) Points() [][]float64 {
	m := float64(h.Max())
	if m == 0 {
		m = 1
	}
	out := make([][]float64, h.dim.Height)
	for y := range out {
		row := make([]float64, h.dim.Width)
		src := h.counts[y*h.dim.Width : (y+1)*h.dim.Width]
		for x, c := range src {
			row[x] = float64(c) / m
		}
		out[y] = row
	}
	return out
}

// IngestPeriod spans every window recorded so far.
func (h *Heatmap) IngestPeriod() period.Period { return h.ingest }

// ProjectPeriod spans every moment passed to Project.
func (h *Heatmap) ProjectPeriod() period.Period { return h.projected }

// Info summarizes a heatmap for reporting.
type Info struct {
	Width           int                 `json:"width"`
	Height          int                 `json:"height"`
	Count           uint64              `json:"count"`
	Max             uint32              `json:"max"`
	Occupied        int                 `json:"occupied"`
	IngestPeriod    period.Period       `json:"ingest_period"`
	ProjectPeriod   period.Period       `json:"project_period"`
	FieldOfInterest mapping.Rect        `json:"field_of_interest"`
	Calibration     mapping.Calibration `json:"calibration"`
}

// Info returns the heatmap's summary.
func (h *Heatmap) Info() Info {
	return Info{
		Width:           h.dim.Width,
		Height:          h.dim.Height,
		Count:           h.total,
		Max:             h.Max(),
		Occupied:        h.Occupied(),
		IngestPeriod:    h.ingest,
		ProjectPeriod:   h.projected,
		FieldOfInterest: h.geom.FieldOfInterest(),
		Calibration:     h.geom.Calibration(),
	}
}
