package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createInMemoryImage creates a solid color image without touching disk.
func createInMemoryImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage creates an image with four colored quadrants:
// red top-left, green top-right, blue bottom-left, white bottom-right.
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.RGBA
			switch {
			case x < width/2 && y < height/2:
				c = color.RGBA{255, 0, 0, 255}
			case x >= width/2 && y < height/2:
				c = color.RGBA{0, 255, 0, 255}
			case x < width/2:
				c = color.RGBA{0, 0, 255, 255}
			default:
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestSampleRGB(t *testing.T) {
	img := createPatternImage(100, 100)

	tests := []struct {
		name string
		x, y int
		want RGB
	}{
		{"red quadrant", 10, 10, RGB{R: 255}},
		{"green quadrant", 90, 10, RGB{G: 255}},
		{"blue quadrant", 10, 90, RGB{B: 255}},
		{"white quadrant", 90, 90, RGB{R: 255, G: 255, B: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SampleRGB(img, tt.x, tt.y)
			if err != nil {
				t.Fatalf("SampleRGB failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("SampleRGB(%d,%d): got %+v, want %+v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestSampleRGB_OutOfBounds(t *testing.T) {
	img := createInMemoryImage(10, 10, color.White)

	for _, p := range []image.Point{{-1, 0}, {0, -1}, {10, 0}, {0, 10}} {
		if _, err := SampleRGB(img, p.X, p.Y); err == nil {
			t.Errorf("SampleRGB(%d,%d) should fail", p.X, p.Y)
		}
	}
}

func TestSampleRGB_NRGBAFastPath(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	img.SetNRGBA(1, 2, color.NRGBA{R: 7, G: 8, B: 9, A: 255})

	got, err := SampleRGB(img, 1, 2)
	if err != nil {
		t.Fatalf("SampleRGB failed: %v", err)
	}
	if got != (RGB{R: 7, G: 8, B: 9}) {
		t.Errorf("got %+v, want {7 8 9}", got)
	}
	if RGBAt(img, 1, 2) != got {
		t.Errorf("RGBAt disagrees with SampleRGB: %+v", RGBAt(img, 1, 2))
	}
}

func TestRGB_Channels(t *testing.T) {
	c := RGB{R: 1.5, G: 2, B: 250}
	ch := c.Channels()
	if ch != [3]float64{1.5, 2, 250} {
		t.Errorf("Channels: got %v", ch)
	}
	if RGBFromChannels(ch) != c {
		t.Errorf("RGBFromChannels: got %+v, want %+v", RGBFromChannels(ch), c)
	}
}

func TestRGB_Hex(t *testing.T) {
	tests := []struct {
		in   RGB
		want string
	}{
		{RGB{R: 255, G: 0, B: 0}, "#FF0000"},
		{RGB{R: 127.6, G: 16.2, B: 0}, "#801000"},
		{RGB{R: -3, G: 300, B: 1}, "#00FF01"},
	}

	for _, tt := range tests {
		if got := tt.in.Hex(); got != tt.want {
			t.Errorf("Hex(%+v): got %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		r, g, b uint8
		wantErr bool
	}{
		{"#FF0000", 255, 0, 0, false},
		{"0000ff", 0, 0, 255, false},
		{"  #00FF00 ", 0, 255, 0, false},
		{"", 0, 0, 0, true},
		{"#GG0000", 0, 0, 0, true},
		{"#FFF0", 0, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ParseHexColor(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseHexColor(%q) should fail", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseHexColor(%q) failed: %v", tt.in, err)
			}
			r, g, b := c.RGB255()
			if r != tt.r || g != tt.g || b != tt.b {
				t.Errorf("ParseHexColor(%q): got (%d,%d,%d), want (%d,%d,%d)", tt.in, r, g, b, tt.r, tt.g, tt.b)
			}
		})
	}
}
