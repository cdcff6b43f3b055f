package detection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ironsheep/pathfinder-heatmap/internal/period"
	"github.com/ironsheep/pathfinder-heatmap/internal/source"
)

// DefaultWindowSize is the number of consecutive photos compared at once.
const DefaultWindowSize = 10

// ErrWindowSize reports a window size below one.
var ErrWindowSize = errors.New("window size must be at least 1")

// Window is a run of consecutive sources in capture order.
type Window []source.Source

// Period spans the first and last capture times of the window. An empty
// window has the null period.
func (w Window) Period() period.Period {
	if len(w) == 0 {
		return period.Null()
	}
	return period.New(w[0].TimeTaken(), w[len(w)-1].TimeTaken())
}

// SortByCaptureTime returns a copy of sources in ascending capture order.
// Sources taken at the same instant keep their input order.
func SortByCaptureTime(sources []source.Source) []source.Source {
	out := make([]source.Source, len(sources))
	copy(out, sources)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimeTaken().Before(out[j].TimeTaken())
	})
	return out
}

// TrimToPeriod returns the sources whose capture time lies within p,
// endpoints included, preserving order. The null period keeps nothing.
func TrimToPeriod(sources []source.Source, p period.Period) []source.Source {
	out := make([]source.Source, 0, len(sources))
	for _, s := range sources {
		if p.Contains(s.TimeTaken()) {
			out = append(out, s)
		}
	}
	return out
}

// SlidingWindows returns every contiguous run of k sources. There are
// max(0, n-k+1) windows; fewer than k sources yields none.
func SlidingWindows(sources []source.Source, k int) ([]Window, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrWindowSize, k)
	}
	n := len(sources) - k + 1
	if n <= 0 {
		return nil, nil
	}
	windows := make([]Window, n)
	for i := range windows {
		windows[i] = Window(sources[i : i+k : i+k])
	}
	return windows, nil
}
