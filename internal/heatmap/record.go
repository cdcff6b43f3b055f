package heatmap

import (
	"context"
	"fmt"
	"log"

	"github.com/ironsheep/pathfinder-heatmap/internal/config"
	"github.com/ironsheep/pathfinder-heatmap/internal/detection"
	"github.com/ironsheep/pathfinder-heatmap/internal/period"
	"github.com/ironsheep/pathfinder-heatmap/internal/source"
)

// RecordOptions tune a Record call. The zero value uses the package defaults.
type RecordOptions struct {
	// WindowSize is the number of consecutive photos compared at once.
	WindowSize int

	// Threshold is the per-channel spread that counts as movement. Nil uses
	// detection.DefaultColorThreshold; zero counts any change.
	Threshold *float64

	// Workers bounds parallel detection. Zero uses GOMAXPROCS.
	Workers int
}

func (o RecordOptions) withDefaults() RecordOptions {
	if o.WindowSize == 0 {
		o.WindowSize = detection.DefaultWindowSize
	}
	if o.Threshold == nil {
		t := detection.DefaultColorThreshold
		o.Threshold = &t
	}
	return o
}

// Threshold returns a pointer to t, for RecordOptions literals.
func Threshold(t float64) *float64 {
	return &t
}

// RecordStats describes what one Record call consumed and added.
type RecordStats struct {
	Sources int           `json:"sources"`
	Windows int           `json:"windows"`
	Hits    int           `json:"hits"`
	Added   uint64        `json:"added"`
	Period  period.Period `json:"period"`
}

// Record detects movement in sources restricted to p and adds it to the heatmap.
//
// Sources are sorted by capture time, trimmed to p and cut into windows of
// opts.WindowSize. Every coordinate that moved within a window is counted
// once per window, over its full footprint clipped to the grid. The ingest
// period grows to cover each window's first and last capture.
//
// All decisions are made before the grid changes: on error the heatmap is
// untouched.
func (h *Heatmap) Record(ctx context.Context, sources []source.Source, p period.Period, opts RecordOptions) (RecordStats, error) {
	opts = opts.withDefaults()
	if opts.WindowSize < 1 {
		return RecordStats{}, fmt.Errorf("%w: got %d", detection.ErrWindowSize, opts.WindowSize)
	}
	if *opts.Threshold < 0 {
		return RecordStats{}, fmt.Errorf("%w: got %v", detection.ErrThreshold, *opts.Threshold)
	}
	if err := checkBatch(sources); err != nil {
		return RecordStats{}, err
	}

	trimmed := detection.TrimToPeriod(detection.SortByCaptureTime(sources), p)
	windows, err := detection.SlidingWindows(trimmed, opts.WindowSize)
	if err != nil {
		return RecordStats{}, err
	}
	stats := RecordStats{Sources: len(trimmed), Windows: len(windows)}
	if len(windows) == 0 {
		config.Debugf("[Heatmap] nothing to record: sources=%d in_period=%d window=%d", len(sources), len(trimmed), opts.WindowSize)
		return stats, nil
	}

	coords := trimmed[0].Coordinates(h.dim)
	moved, err := detection.Detect(ctx, windows, coords, *opts.Threshold, opts.Workers)
	if err != nil {
		return RecordStats{}, err
	}

	bounds := h.Bounds()
	moved.Each(func(hit detection.Hit) {
		fp := windows[hit.Window][0].Footprint(hit.Point).Intersect(bounds)
		stats.Added += h.addRect(fp)
		stats.Hits++
	})
	for _, w := range windows {
		stats.Period = stats.Period.Union(w.Period())
	}
	h.ingest = h.ingest.Union(stats.Period)

	log.Printf("[Heatmap] recorded: sources=%d windows=%d hits=%d added=%d period=%s",
		stats.Sources, stats.Windows, stats.Hits, stats.Added, stats.Period)
	return stats, nil
}

// checkBatch rejects batches mixing kinds or chunk sizes, whose coordinates
// would not line up.
func checkBatch(sources []source.Source) error {
	if len(sources) == 0 {
		return nil
	}
	kind := sources[0].Kind()
	var size source.ChunkSize
	if c, ok := sources[0].(*source.ChunkImage); ok {
		size = c.Size()
	}
	for _, s := range sources[1:] {
		if s.Kind() != kind {
			return fmt.Errorf("%w: %s source in %s batch", source.ErrMismatchedSource, s.Kind(), kind)
		}
		if c, ok := s.(*source.ChunkImage); ok && c.Size() != size {
			return fmt.Errorf("%w: chunk size %dx%d in %dx%d batch",
				source.ErrMismatchedSource, c.Size().Width, c.Size().Height, size.Width, size.Height)
		}
	}
	return nil
}
