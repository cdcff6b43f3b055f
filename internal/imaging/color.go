package imaging

import (
	"fmt"
	"image"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// RGB is a color sample with channels on the 0-255 scale.
//
// Channels are float64 so that a single pixel and the average of a block of
// pixels share one representation.
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// Channels returns the color as an indexable triple.
func (c RGB) Channels() [3]float64 {
	return [3]float64{c.R, c.G, c.B}
}

// RGBFromChannels is the inverse of Channels.
func RGBFromChannels(ch [3]float64) RGB {
	return RGB{R: ch[0], G: ch[1], B: ch[2]}
}

// Hex formats the color as "#RRGGBB", rounding and clamping each channel.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", to8(c.R), to8(c.G), to8(c.B))
}

// SampleRGB returns the color at (x, y).
//
// Returns an error if the coordinate is outside the image bounds.
func SampleRGB(img image.Image, x, y int) (RGB, error) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return RGB{}, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}
	if n, ok := img.(*image.NRGBA); ok {
		return RGBAt(n, x, y), nil
	}
	r, g, b, _ := img.At(x, y).RGBA()
	return RGB{R: float64(r >> 8), G: float64(g >> 8), B: float64(b >> 8)}, nil
}

// RGBAt reads a pixel straight from the NRGBA buffer. The caller guarantees
// (x, y) is in bounds.
func RGBAt(img *image.NRGBA, x, y int) RGB {
	i := img.PixOffset(x, y)
	p := img.Pix[i : i+3 : i+3]
	return RGB{R: float64(p[0]), G: float64(p[1]), B: float64(p[2])}
}

// ParseHexColor parses "#RRGGBB" (the leading '#' is optional).
func ParseHexColor(hex string) (colorful.Color, error) {
	hex = strings.TrimSpace(hex)
	if hex == "" {
		return colorful.Color{}, fmt.Errorf("empty color string")
	}
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	return c, nil
}

func to8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v + 0.5)
}
