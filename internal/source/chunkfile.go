package source

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ironsheep/pathfinder-heatmap/internal/imaging"
)

// TimeLayout is the capture-time format used by EXIF and by chunk files.
const TimeLayout = "2006:01:02 15:04:05"

// Default block size when a job does not configure one.
const (
	DefaultChunkWidth  = 36
	DefaultChunkHeight = 36
)

// maxChunkFileSize caps chunk summaries read from disk.
const maxChunkFileSize = 64 << 20

// ChunkSize is the pixel size of one summary block.
type ChunkSize struct {
	Width  int `json:"chunk_width"`
	Height int `json:"chunk_height"`
}

// DefaultChunkSize returns the 36x36 block size.
func DefaultChunkSize() ChunkSize {
	return ChunkSize{Width: DefaultChunkWidth, Height: DefaultChunkHeight}
}

// IsZero reports whether no size is set.
func (s ChunkSize) IsZero() bool { return s.Width == 0 && s.Height == 0 }

// Valid reports whether both sides are positive.
func (s ChunkSize) Valid() bool { return s.Width > 0 && s.Height > 0 }

// ChunkRecord is one block of a ChunkFile.
type ChunkRecord struct {
	Coordinates [2]int     `json:"coordinates"`
	RGB         [3]float64 `json:"rgb"`
	Variance    float64    `json:"variance"`
}

// ChunkFile is the on-disk block summary of one photo.
type ChunkFile struct {
	Timestamp   string        `json:"timestamp"`
	ChunkWidth  int           `json:"chunk_width"`
	ChunkHeight int           `json:"chunk_height"`
	Width       int           `json:"width,omitempty"`
	Height      int           `json:"height,omitempty"`
	Chunks      []ChunkRecord `json:"chunks"`
}

// Size returns the block size recorded in the file.
func (f *ChunkFile) Size() ChunkSize {
	return ChunkSize{Width: f.ChunkWidth, Height: f.ChunkHeight}
}

// Time parses the recorded capture time as UTC.
func (f *ChunkFile) Time() (time.Time, error) {
	t, err := time.Parse(TimeLayout, strings.TrimSpace(f.Timestamp))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: chunk timestamp %q: %v", ErrNoTimestamp, f.Timestamp, err)
	}
	return t, nil
}

// BuildChunkFile summarizes img in blocks of size. Edge blocks are clipped to
// the image. Each block records its mean color and the mean of its three
// per-channel variances.
func BuildChunkFile(img *image.NRGBA, taken time.Time, size ChunkSize) (*ChunkFile, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("invalid chunk size %dx%d", size.Width, size.Height)
	}

	b := img.Bounds()
	f := &ChunkFile{
		Timestamp:   taken.Format(TimeLayout),
		ChunkWidth:  size.Width,
		ChunkHeight: size.Height,
		Width:       b.Dx(),
		Height:      b.Dy(),
	}

	for y := b.Min.Y; y < b.Max.Y; y += size.Height {
		for x := b.Min.X; x < b.Max.X; x += size.Width {
			block := image.Rect(x, y, x+size.Width, y+size.Height).Intersect(b)
			mean, variance := blockStats(img, block)
			f.Chunks = append(f.Chunks, ChunkRecord{
				Coordinates: [2]int{x - b.Min.X, y - b.Min.Y},
				RGB:         mean.Channels(),
				Variance:    variance,
			})
		}
	}
	return f, nil
}

// blockStats returns the per-channel mean and the mean per-channel variance
// over block.
func blockStats(img *image.NRGBA, block image.Rectangle) (imaging.RGB, float64) {
	n := float64(block.Dx() * block.Dy())
	var sum, sumSq [3]float64
	for y := block.Min.Y; y < block.Max.Y; y++ {
		for x := block.Min.X; x < block.Max.X; x++ {
			ch := imaging.RGBAt(img, x, y).Channels()
			for i, v := range ch {
				sum[i] += v
				sumSq[i] += v * v
			}
		}
	}

	var mean [3]float64
	var variance float64
	for i := range mean {
		mean[i] = sum[i] / n
		v := sumSq[i]/n - mean[i]*mean[i]
		if v < 0 {
			v = 0
		}
		variance += v
	}
	return imaging.RGBFromChannels(mean), variance / 3
}

// Source converts the file into a ChunkImage.
func (f *ChunkFile) Source(path string) (*ChunkImage, error) {
	taken, err := f.Time()
	if err != nil {
		return nil, err
	}
	if !f.Size().Valid() {
		return nil, fmt.Errorf("chunk file %s: invalid chunk size %dx%d", filepath.Base(path), f.ChunkWidth, f.ChunkHeight)
	}

	samples := make(map[image.Point]ChunkSample, len(f.Chunks))
	for _, c := range f.Chunks {
		samples[image.Pt(c.Coordinates[0], c.Coordinates[1])] = ChunkSample{
			Color:    imaging.RGBFromChannels(c.RGB),
			Variance: c.Variance,
		}
	}
	return NewChunkImage(path, taken, f.Size(), samples), nil
}

// ReadChunkFile reads and decodes a chunk summary.
func ReadChunkFile(path string) (*ChunkFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat chunk file: %w", err)
	}
	if info.Size() > maxChunkFileSize {
		return nil, fmt.Errorf("chunk file %s too large: %d bytes", filepath.Base(path), info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk file: %w", err)
	}

	var f ChunkFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse chunk file %s: %w", filepath.Base(path), err)
	}
	return &f, nil
}

// WriteChunkFile encodes f to path through a temporary file and rename.
func WriteChunkFile(path string, f *ChunkFile) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode chunk file: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create chunk dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".chunk-*")
	if err != nil {
		return fmt.Errorf("failed to create temp chunk file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write chunk file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write chunk file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move chunk file into place: %w", err)
	}
	return nil
}

// ChunkPath is the summary path CreateChunkSummary uses for a photo: the
// photo path with its extension replaced by ".txt".
func ChunkPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".txt"
}
