package detection

import (
	"context"
	"errors"
	"image"
	"math/bits"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultColorThreshold is the per-channel spread, on the 0-255 scale, above
// which a coordinate counts as moving.
const DefaultColorThreshold = 50.0

// ErrThreshold reports a negative color threshold.
var ErrThreshold = errors.New("color threshold must not be negative")

// coordsPerTask is how many coordinates one Detect task evaluates. It must
// stay a multiple of 64.
const coordsPerTask = 4096

// Hit is one movement decision: coordinate Point moved within window Window.
type Hit struct {
	Window int
	Point  image.Point
}

// Spread returns the max-min range of each color channel across the window's
// samples at p.
func Spread(w Window, p image.Point) [3]float64 {
	var spread [3]float64
	if len(w) == 0 {
		return spread
	}
	lo := w[0].At(p).Channels()
	hi := lo
	for _, s := range w[1:] {
		c := s.At(p).Channels()
		for i, v := range c {
			if v < lo[i] {
				lo[i] = v
			}
			if v > hi[i] {
				hi[i] = v
			}
		}
	}
	for i := range spread {
		spread[i] = hi[i] - lo[i]
	}
	return spread
}

// IsMovement reports whether any channel's spread at p exceeds threshold.
func IsMovement(w Window, p image.Point, threshold float64) bool {
	for _, s := range Spread(w, p) {
		if s > threshold {
			return true
		}
	}
	return false
}

// Movement holds the decisions of one Detect call as one bit per window and
// coordinate, so a batch costs windows*len(coords)/8 bytes however much moved.
type Movement struct {
	coords []image.Point
	bits   [][]uint64
}

// Windows returns the number of windows decided.
func (m *Movement) Windows() int { return len(m.bits) }

// Moved reports whether coordinate coords[i] moved within window w.
func (m *Movement) Moved(w, i int) bool {
	return m.bits[w][i/64]&(1<<(uint(i)%64)) != 0
}

// Count returns the number of (window, coordinate) pairs that moved.
func (m *Movement) Count() int {
	var n int
	for _, words := range m.bits {
		for _, word := range words {
			n += bits.OnesCount64(word)
		}
	}
	return n
}

// Each calls fn for every hit, ordered by window and then by position in
// coords.
func (m *Movement) Each(fn func(Hit)) {
	for w, words := range m.bits {
		for wi, word := range words {
			for word != 0 {
				i := wi*64 + bits.TrailingZeros64(word)
				fn(Hit{Window: w, Point: m.coords[i]})
				word &= word - 1
			}
		}
	}
}

// Hits lists every hit in Each order.
func (m *Movement) Hits() []Hit {
	var out []Hit
	m.Each(func(h Hit) { out = append(out, h) })
	return out
}

// Detect evaluates IsMovement for every window and coordinate using up to
// workers goroutines (GOMAXPROCS when workers < 1).
//
// The result does not depend on scheduling. Detect only reads its inputs.
// It returns early with the context's error if ctx is cancelled.
func Detect(ctx context.Context, windows []Window, coords []image.Point, threshold float64, workers int) (*Movement, error) {
	m := &Movement{coords: coords}
	if len(windows) == 0 || len(coords) == 0 {
		return m, nil
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	words := (len(coords) + 63) / 64
	m.bits = make([][]uint64, len(windows))
	for wi := range m.bits {
		m.bits[wi] = make([]uint64, words)
	}

	// Tasks cover whole words, so no two goroutines write the same one.
	blocks := (len(coords) + coordsPerTask - 1) / coordsPerTask
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for wi := range windows {
		for b := 0; b < blocks; b++ {
			lo := b * coordsPerTask
			hi := min(lo+coordsPerTask, len(coords))
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				row := m.bits[wi]
				for i := lo; i < hi; i++ {
					if IsMovement(windows[wi], coords[i], threshold) {
						row[i/64] |= 1 << (uint(i) % 64)
					}
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}
