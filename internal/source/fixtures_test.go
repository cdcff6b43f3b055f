package source

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// exifSegment builds a little-endian APP1 segment holding a single
// DateTimeOriginal tag in the Exif sub-IFD.
func exifSegment(taken time.Time) []byte {
	stamp := append([]byte(taken.Format(TimeLayout)), 0)

	var tiff bytes.Buffer
	le := binary.LittleEndian
	w := func(v any) { _ = binary.Write(&tiff, le, v) }

	// Header: byte order, magic, offset of IFD0.
	tiff.WriteString("II")
	w(uint16(42))
	w(uint32(8))

	// IFD0 at 8: one entry pointing at the Exif IFD.
	const exifIFD = 8 + 2 + 12 + 4
	w(uint16(1))
	w(uint16(0x8769))
	w(uint16(4)) // LONG
	w(uint32(1))
	w(uint32(exifIFD))
	w(uint32(0))

	// Exif IFD: DateTimeOriginal as ASCII stored after the directory.
	const valueOffset = exifIFD + 2 + 12 + 4
	w(uint16(1))
	w(uint16(0x9003))
	w(uint16(2)) // ASCII
	w(uint32(len(stamp)))
	w(uint32(valueOffset))
	w(uint32(0))
	tiff.Write(stamp)

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	seg := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...)
}

// solidImage returns a w x h image filled with c.
func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// writeJPEG encodes img as a JPEG with an EXIF capture time and returns its
// path inside dir.
func writeJPEG(t *testing.T, dir, name string, img image.Image, taken time.Time) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	raw := buf.Bytes()

	// Splice APP1 directly after SOI.
	out := append([]byte{}, raw[:2]...)
	out = append(out, exifSegment(taken)...)
	out = append(out, raw[2:]...)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, out, 0o644))
	return path
}

// writePNG encodes img as a PNG without metadata.
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}
