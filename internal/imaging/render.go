package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Default projection colors: cold areas render blue, busy areas red.
const (
	DefaultLowColor  = "#0000FF"
	DefaultHighColor = "#FF0000"
)

// Channel selects one color channel of an RGB image.
type Channel int

// Color channels.
const (
	Red Channel = iota
	Green
	Blue
)

// Gradient interpolates between two endpoint colors.
type Gradient struct {
	Low  colorful.Color
	High colorful.Color
}

// DefaultGradient returns the blue-to-red projection gradient.
func DefaultGradient() Gradient {
	g, _ := NewGradient(DefaultLowColor, DefaultHighColor)
	return g
}

// NewGradient builds a gradient from two "#RRGGBB" strings.
func NewGradient(lowHex, highHex string) (Gradient, error) {
	low, err := ParseHexColor(lowHex)
	if err != nil {
		return Gradient{}, fmt.Errorf("low color: %w", err)
	}
	high, err := ParseHexColor(highHex)
	if err != nil {
		return Gradient{}, fmt.Errorf("high color: %w", err)
	}
	return Gradient{Low: low, High: high}, nil
}

// At returns the color at position t, where t=0 is Low and t=1 is High.
// Values outside [0,1] are clamped. Blending happens in L*a*b* space.
func (g Gradient) At(t float64) color.NRGBA {
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}
	r, gr, b := g.Low.BlendLab(g.High, t).Clamped().RGB255()
	return color.NRGBA{R: r, G: gr, B: b, A: 255}
}

// Intensity renders a grid of values in [0,1] as an 8-bit grayscale image.
// values is indexed [row][col]; values outside [0,1] are clamped.
func Intensity(values [][]float64) *image.Gray {
	h := len(values)
	w := 0
	if h > 0 {
		w = len(values[0])
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y, row := range values {
		for x, v := range row {
			img.Pix[y*img.Stride+x] = to8(v * 255)
		}
	}
	return img
}

// Colorize maps every gray level of img through the gradient.
func Colorize(img *image.Gray, g Gradient) *image.NRGBA {
	var lut [256]color.NRGBA
	for i := range lut {
		lut[i] = g.At(float64(i) / 255)
	}

	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := lut[img.GrayAt(b.Min.X+x, b.Min.Y+y).Y]
			i := out.PixOffset(x, y)
			out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return out
}

// Blur applies a Gaussian blur with the given radius. A non-positive radius
// returns an unblurred copy.
func Blur(img image.Image, radius float64) image.Image {
	if radius <= 0 {
		return imaging.Clone(img)
	}
	return blur.Gaussian(img, radius)
}

// ChannelLayer renders values in [0,1] into a single channel of an opaque
// black image, multiplied by scale and clipped to 255.
func ChannelLayer(values [][]float64, ch Channel, scale float64) *image.NRGBA {
	h := len(values)
	w := 0
	if h > 0 {
		w = len(values[0])
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y, row := range values {
		for x, v := range row {
			i := img.PixOffset(x, y)
			img.Pix[i+int(ch)] = to8(v * 255 * scale)
			img.Pix[i+3] = 255
		}
	}
	return img
}

// AddClipped adds layer onto a copy of base channel by channel, clipping at
// full intensity. layer is resized to base's size first when they differ.
func AddClipped(base, layer image.Image) *image.RGBA {
	bb, lb := base.Bounds(), layer.Bounds()
	if bb.Dx() != lb.Dx() || bb.Dy() != lb.Dy() {
		layer = imaging.Resize(layer, bb.Dx(), bb.Dy(), imaging.Linear)
	}
	return blend.Add(base, layer)
}
