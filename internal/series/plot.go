package series

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ironsheep/pathfinder-heatmap/internal/heatmap"
)

// Total is the event count of one bucket.
type Total struct {
	Start time.Time `json:"start"`
	Count uint64    `json:"count"`
}

// Totals loads every bucket heatmap and reports its event count.
func (s *Series) Totals() ([]Total, error) {
	buckets, err := s.Buckets()
	if err != nil {
		return nil, err
	}
	out := make([]Total, 0, len(buckets))
	for _, b := range buckets {
		hm, err := heatmap.Load(b.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, Total{Start: b.Start, Count: hm.Count()})
	}
	return out, nil
}

// PlotTotals charts bucket totals against bucket start and saves the chart
// to path. The format follows the extension (png, svg, pdf, ...).
func (s *Series) PlotTotals(path string) error {
	totals, err := s.Totals()
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		return fmt.Errorf("series %s has no buckets to plot", s.ID)
	}

	pts := make(plotter.XYs, len(totals))
	for i, t := range totals {
		pts[i] = plotter.XY{X: float64(t.Start.Unix()), Y: float64(t.Count)}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Movement per %s", s.Interval)
	p.X.Label.Text = "Bucket start (UTC)"
	p.Y.Label.Text = "Events"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02\n15:04"}
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 230, G: 80, A: 255}
	line.Width = vg.Points(1)

	marks, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	marks.GlyphStyle.Color = line.Color
	marks.GlyphStyle.Radius = vg.Points(2)

	p.Add(line, marks)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create plot dir: %w", err)
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	return nil
}
