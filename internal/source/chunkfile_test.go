package source

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/pathfinder-heatmap/internal/imaging"
)

func TestBuildChunkFile_Stats(t *testing.T) {
	t.Parallel()

	// 3x2 image, blocks of 2x2: one full block and one clipped 1x2 block.
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0, G: 10, B: 100, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 100, G: 10, B: 100, A: 255})
	img.SetNRGBA(0, 1, color.NRGBA{R: 0, G: 10, B: 100, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 100, G: 10, B: 100, A: 255})
	img.SetNRGBA(2, 0, color.NRGBA{R: 7, G: 7, B: 7, A: 255})
	img.SetNRGBA(2, 1, color.NRGBA{R: 7, G: 7, B: 7, A: 255})

	taken := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	f, err := BuildChunkFile(img, taken, ChunkSize{Width: 2, Height: 2})
	require.NoError(t, err)

	assert.Equal(t, "2024:03:05 14:07:09", f.Timestamp)
	assert.Equal(t, 3, f.Width)
	assert.Equal(t, 2, f.Height)
	require.Len(t, f.Chunks, 2)

	first := f.Chunks[0]
	assert.Equal(t, [2]int{0, 0}, first.Coordinates)
	assert.Equal(t, [3]float64{50, 10, 100}, first.RGB)
	// Red varies by +-50 (variance 2500); green and blue are constant.
	assert.InDelta(t, 2500.0/3, first.Variance, 1e-9)

	second := f.Chunks[1]
	assert.Equal(t, [2]int{2, 0}, second.Coordinates)
	assert.Equal(t, [3]float64{7, 7, 7}, second.RGB)
	assert.InDelta(t, 0, second.Variance, 1e-9)
}

func TestBuildChunkFile_InvalidSize(t *testing.T) {
	t.Parallel()
	_, err := BuildChunkFile(image.NewNRGBA(image.Rect(0, 0, 4, 4)), time.Now(), ChunkSize{Width: 0, Height: 4})
	assert.Error(t, err)
}

func TestChunkFile_WriteRead(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "nested", "0001.txt")

	img := solidImage(10, 10, color.NRGBA{R: 30, G: 60, B: 90, A: 255})
	taken := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	f, err := BuildChunkFile(img, taken, ChunkSize{Width: 4, Height: 4})
	require.NoError(t, err)
	require.Len(t, f.Chunks, 9)

	require.NoError(t, WriteChunkFile(path, f))

	back, err := ReadChunkFile(path)
	require.NoError(t, err)
	assert.Equal(t, f, back)

	src, err := back.Source(path)
	require.NoError(t, err)
	assert.Equal(t, imaging.RGB{R: 30, G: 60, B: 90}, src.At(image.Pt(8, 8)))
	assert.True(t, src.TimeTaken().Equal(taken))
}

func TestReadChunkFile_Invalid(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := ReadChunkFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)

	bad := writePNG(t, dir, "not-json.txt", solidImage(2, 2, color.NRGBA{A: 255}))
	_, err = ReadChunkFile(bad)
	assert.Error(t, err)
}

func TestChunkPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/jobs/0/data/0001.txt", ChunkPath("/jobs/0/data/0001.jpg"))
	assert.Equal(t, "frame.txt", ChunkPath("frame"))
}

func TestCreateChunkSummary(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	taken := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)
	photo := writeJPEG(t, dir, "0001.jpg", solidImage(72, 40, color.NRGBA{G: 255, A: 255}), taken)

	out, err := Loader{}.CreateChunkSummary(photo, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "0001.txt"), out)

	s, err := Loader{}.Load(out)
	require.NoError(t, err)
	c := s.(*ChunkImage)
	assert.Equal(t, DefaultChunkSize(), c.Size())
	assert.True(t, c.TimeTaken().Equal(taken))
	// 72x40 in 36x36 blocks: 2 columns, 2 rows.
	assert.Len(t, c.samples, 4)
	assert.InDelta(t, 255, c.At(image.Pt(36, 36)).G, 2)

	_, err = Loader{}.CreateChunkSummary(out, "")
	assert.ErrorIs(t, err, ErrMismatchedSource)
}
