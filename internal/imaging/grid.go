package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
)

// GridOptions controls GridOverlay.
type GridOptions struct {
	// Spacing is the distance between grid lines in pixels. It may be
	// fractional so that lines follow a non-integer blueprint scale.
	Spacing float64

	// Color is "#RRGGBB" or "#RRGGBBAA". An unparsable color falls back to
	// semi-transparent white.
	Color string

	// Label, if set, is called for each grid intersection with the line
	// indices (i, j) and returns the text drawn next to it.
	Label func(i, j int) string
}

// GridOverlay draws a coordinate grid over a copy of img.
//
// Projected heatmaps use it to mark blueprint units: with Spacing set to the
// number of pixels per unit, every line is one unit apart and Label can print
// the unit coordinates.
func GridOverlay(img image.Image, opts GridOptions) (*image.RGBA, error) {
	if !(opts.Spacing > 0) || math.IsInf(opts.Spacing, 0) {
		return nil, fmt.Errorf("grid spacing must be positive, got %v", opts.Spacing)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gridColor, err := parseHexColor(opts.Color)
	if err != nil {
		gridColor = color.RGBA{255, 255, 255, 128}
	}

	result := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)
	line := image.NewUniform(gridColor)

	for i := 1; ; i++ {
		x := int(math.Round(float64(i) * opts.Spacing))
		if x >= width {
			break
		}
		draw.Draw(result, image.Rect(x, 0, x+1, height), line, image.Point{}, draw.Over)
	}
	for j := 1; ; j++ {
		y := int(math.Round(float64(j) * opts.Spacing))
		if y >= height {
			break
		}
		draw.Draw(result, image.Rect(0, y, width, y+1), line, image.Point{}, draw.Over)
	}

	if opts.Label != nil {
		labelColor := color.RGBA{255, 255, 255, 255}
		bgColor := color.RGBA{0, 0, 0, 180}

		for j := 0; ; j++ {
			y := int(math.Round(float64(j) * opts.Spacing))
			if y >= height {
				break
			}
			for i := 0; ; i++ {
				x := int(math.Round(float64(i) * opts.Spacing))
				if x >= width {
					break
				}
				drawLabel(result, x+2, y+2, opts.Label(i, j), labelColor, bgColor)
			}
		}
	}

	return result, nil
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	// image.RGBA stores premultiplied values.
	if a != 255 {
		r = uint8(uint16(r) * uint16(a) / 255)
		g = uint8(uint16(g) * uint16(a) / 255)
		b = uint8(uint16(b) * uint16(a) / 255)
	}
	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}

// drawLabel draws text with a 3x5 pixel font. Unknown runes leave a gap.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
		'.': {"000", "000", "000", "000", "010"},
		'-': {"000", "000", "111", "000", "000"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			px, py := x+dx, y+dy
			if (image.Point{X: px, Y: py}).In(bounds) {
				img.SetRGBA(px, py, bg)
			}
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if (image.Point{X: px, Y: py}).In(bounds) {
						img.SetRGBA(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
