package ocr

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"
	"unicode"

	"github.com/disintegration/imaging"
)

// DefaultLayout is the overlay format most security cameras burn in.
const DefaultLayout = "2006-01-02 15:04:05"

// overlayUpscale enlarges the cropped overlay before recognition. Camera
// overlays are typically 10-20 pixels tall, well below what Tesseract reads
// reliably.
const overlayUpscale = 3

// ErrNoTimestamp is returned when recognized text contains nothing that
// parses with the requested layout.
var ErrNoTimestamp = errors.New("no timestamp found in text")

// ocrConfusions maps characters Tesseract commonly returns for digits.
var ocrConfusions = strings.NewReplacer(
	"O", "0", "o", "0", "D", "0", "Q", "0",
	"l", "1", "I", "1", "|", "1", "i", "1",
	"Z", "2", "S", "5", "s", "5", "B", "8",
)

// ReadTimestamp recognizes a capture time burned into region of img.
//
// The region is cropped, converted to grayscale, inverted when the text is
// light on dark, and upscaled before recognition. For layouts made only of
// digits and separators, recognition is restricted to those characters.
//
// Returns ErrNoTimestamp (wrapped) when the text does not contain a time in
// the given layout.
func ReadTimestamp(img image.Image, region image.Rectangle, layout string, opts Options) (time.Time, error) {
	if layout == "" {
		layout = DefaultLayout
	}
	if !region.Empty() && !region.In(img.Bounds()) {
		return time.Time{}, fmt.Errorf("overlay region %v outside image bounds %v", region, img.Bounds())
	}

	prepared := PrepareOverlay(img, region)

	if numericLayout(layout) {
		opts.Whitelist = layoutAlphabet(layout)
	}
	opts.SingleLine = true

	result, err := ExtractText(prepared, opts)
	if err != nil {
		return time.Time{}, err
	}
	return ParseTimestamp(result.FullText, layout)
}

// PrepareOverlay crops region (the whole image when region is empty) and
// returns a dark-on-light grayscale copy scaled up for recognition.
func PrepareOverlay(img image.Image, region image.Rectangle) *image.NRGBA {
	var out *image.NRGBA
	if region.Empty() {
		out = imaging.Clone(img)
	} else {
		out = imaging.Crop(img, region)
	}
	out = imaging.Grayscale(out)

	if meanLuma(out) < 128 {
		out = imaging.Invert(out)
	}

	b := out.Bounds()
	return imaging.Resize(out, b.Dx()*overlayUpscale, b.Dy()*overlayUpscale, imaging.Lanczos)
}

// meanLuma averages the red channel of a grayscale NRGBA image.
func meanLuma(img *image.NRGBA) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 255
	}
	var sum int
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			sum += int(row[x*4])
		}
	}
	return float64(sum) / float64(n)
}

// ParseTimestamp finds the first substring of text that parses with layout.
//
// Each line is tried whole, then every window of the layout's width. For
// numeric layouts, letters Tesseract tends to confuse with digits are mapped
// back first. Times without a zone in the layout are UTC.
func ParseTimestamp(text, layout string) (time.Time, error) {
	if layout == "" {
		layout = DefaultLayout
	}
	if numericLayout(layout) {
		text = ocrConfusions.Replace(text)
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		if t, err := time.Parse(layout, line); err == nil {
			return t, nil
		}
		for i := 0; i+len(layout) <= len(line); i++ {
			if t, err := time.Parse(layout, line[i:i+len(layout)]); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("%w: layout %q, text %q", ErrNoTimestamp, layout, strings.TrimSpace(text))
}

func numericLayout(layout string) bool {
	for _, r := range layout {
		if unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// layoutAlphabet lists the characters a numeric layout can render.
func layoutAlphabet(layout string) string {
	seen := map[rune]bool{}
	var sb strings.Builder
	sb.WriteString("0123456789")
	for _, r := range layout {
		if unicode.IsDigit(r) || seen[r] {
			continue
		}
		seen[r] = true
		sb.WriteRune(r)
	}
	return sb.String()
}
