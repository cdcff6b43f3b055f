package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/pathfinder-heatmap/internal/imaging"
	"github.com/ironsheep/pathfinder-heatmap/internal/mapping"
)

// StampFunc reads a capture time from the pixels of a photo. It is the
// fallback for photos without EXIF capture time.
type StampFunc func(img *image.NRGBA) (time.Time, error)

// Loader opens sources of either kind.
//
// The zero value loads any file without size checks and without a timestamp
// fallback.
type Loader struct {
	// Dim, if set, is the calibrated image size every source must match.
	Dim mapping.Dimensions

	// Chunk, if set, is the block size chunk summaries must use.
	Chunk ChunkSize

	// Cache, if set, holds decoded rasters between loads.
	Cache *imaging.ImageCache

	// Stamp, if set, is consulted when a photo has no EXIF capture time.
	Stamp StampFunc

	// Workers bounds parallel decoding in LoadBatch. Zero means one per file.
	Workers int
}

// Load opens a single source, choosing the kind from the extension.
func (l Loader) Load(path string) (Source, error) {
	kind, err := KindOf(path)
	if err != nil {
		return nil, err
	}
	if kind == Chunk {
		return l.loadChunk(path)
	}
	return l.loadWhole(path)
}

// LoadBatch opens every path, which must all be of one kind. Sources are
// returned in input order. Nothing is returned if any file fails.
func (l Loader) LoadBatch(ctx context.Context, paths []string) ([]Source, error) {
	if _, err := KindOfBatch(paths); err != nil {
		return nil, err
	}

	out := make([]Source, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if l.Workers > 0 {
		g.SetLimit(l.Workers)
	}
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := l.Load(p)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (l Loader) loadWhole(path string) (*WholeImage, error) {
	var img *image.NRGBA
	var err error
	if l.Cache != nil {
		img, err = l.Cache.Load(path)
	} else {
		img, err = imaging.Decode(path)
	}
	if err != nil {
		return nil, err
	}

	if l.Dim != (mapping.Dimensions{}) {
		b := img.Bounds()
		if b.Dx() != l.Dim.Width || b.Dy() != l.Dim.Height {
			return nil, fmt.Errorf("%w: %s is %dx%d, calibration is %dx%d",
				ErrMismatchedSource, filepath.Base(path), b.Dx(), b.Dy(), l.Dim.Width, l.Dim.Height)
		}
	}

	taken, err := ReadCaptureTime(path)
	if err != nil && errors.Is(err, ErrNoTimestamp) && l.Stamp != nil {
		taken, err = l.Stamp(img)
		if err != nil {
			err = fmt.Errorf("%w: %s: %v", ErrNoTimestamp, filepath.Base(path), err)
		}
	}
	if err != nil {
		return nil, err
	}

	return NewWholeImage(path, img, taken), nil
}

func (l Loader) loadChunk(path string) (*ChunkImage, error) {
	f, err := ReadChunkFile(path)
	if err != nil {
		return nil, err
	}
	if f.ChunkWidth == 0 && f.ChunkHeight == 0 {
		size := l.Chunk
		if !size.Valid() {
			size = DefaultChunkSize()
		}
		f.ChunkWidth, f.ChunkHeight = size.Width, size.Height
	}
	if l.Chunk.Valid() && f.Size() != l.Chunk {
		return nil, fmt.Errorf("%w: %s uses %dx%d blocks, job uses %dx%d",
			ErrMismatchedSource, filepath.Base(path), f.ChunkWidth, f.ChunkHeight, l.Chunk.Width, l.Chunk.Height)
	}
	if l.Dim != (mapping.Dimensions{}) && f.Width != 0 && (f.Width != l.Dim.Width || f.Height != l.Dim.Height) {
		return nil, fmt.Errorf("%w: %s summarizes %dx%d, calibration is %dx%d",
			ErrMismatchedSource, filepath.Base(path), f.Width, f.Height, l.Dim.Width, l.Dim.Height)
	}
	return f.Source(path)
}

// TimeTaken returns the capture time of the file at path without keeping
// its pixels. Photos are only decoded when the Stamp fallback is needed.
func (l Loader) TimeTaken(path string) (time.Time, error) {
	kind, err := KindOf(path)
	if err != nil {
		return time.Time{}, err
	}
	if kind == Chunk {
		f, err := ReadChunkFile(path)
		if err != nil {
			return time.Time{}, err
		}
		return f.Time()
	}

	taken, err := ReadCaptureTime(path)
	if err == nil || !errors.Is(err, ErrNoTimestamp) || l.Stamp == nil {
		return taken, err
	}
	w, err := l.loadWhole(path)
	if err != nil {
		return time.Time{}, err
	}
	return w.TimeTaken(), nil
}

// ReadCaptureTime returns the EXIF DateTimeOriginal of a photo, falling back
// to the DateTime tag. Times carry no zone and are returned as UTC.
func ReadCaptureTime(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s: %v", ErrNoTimestamp, filepath.Base(path), err)
	}

	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		s, err := tag.StringVal()
		if err != nil {
			continue
		}
		t, err := time.Parse(TimeLayout, strings.TrimRight(s, "\x00 "))
		if err != nil {
			continue
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %s has no EXIF capture time", ErrNoTimestamp, filepath.Base(path))
}

// CreateChunkSummary loads the photo at imagePath, summarizes it in blocks
// of the loader's chunk size (36x36 when unset) and writes the summary to
// outPath, or to ChunkPath(imagePath) when outPath is empty. It returns the
// path written.
func (l Loader) CreateChunkSummary(imagePath, outPath string) (string, error) {
	kind, err := KindOf(imagePath)
	if err != nil {
		return "", err
	}
	if kind != Whole {
		return "", fmt.Errorf("%w: %s is already a chunk summary", ErrMismatchedSource, filepath.Base(imagePath))
	}

	w, err := l.loadWhole(imagePath)
	if err != nil {
		return "", err
	}

	size := l.Chunk
	if !size.Valid() {
		size = DefaultChunkSize()
	}
	cf, err := BuildChunkFile(w.Image(), w.TimeTaken(), size)
	if err != nil {
		return "", err
	}

	if outPath == "" {
		outPath = ChunkPath(imagePath)
	}
	if err := WriteChunkFile(outPath, cf); err != nil {
		return "", err
	}
	return outPath, nil
}
