package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/ironsheep/pathfinder-heatmap/internal/mapping"
	"github.com/ironsheep/pathfinder-heatmap/internal/source"
)

// FileName is the descriptor's name inside a job directory.
const FileName = "manifest.json"

// maxFileSize caps how much of a descriptor is read.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// ErrInvalid reports a descriptor that is missing required fields or is not
// well-formed JSON. Values that are present but unusable, like a negative
// distance, surface as mapping.ErrConfiguration when the geometry is built.
var ErrInvalid = errors.New("invalid manifest")

// Corner is one calibration reference as written in the descriptor.
type Corner struct {
	Position *[2]float64 `json:"position"`
	Distance *float64    `json:"distance"`
}

// Geometry is the calibration block.
type Geometry struct {
	Width      *int      `json:"width"`
	Height     *int      `json:"height"`
	FOV        []float64 `json:"fov"`
	UpperLeft  *Corner   `json:"upperleft"`
	UpperRight *Corner   `json:"upperright"`
	LowerLeft  *Corner   `json:"lowerleft"`
	LowerRight *Corner   `json:"lowerright"`
}

func (g *Geometry) corners() [4]*Corner {
	return [4]*Corner{g.UpperLeft, g.UpperRight, g.LowerLeft, g.LowerRight}
}

// Chunk is the optional block-summary size.
type Chunk struct {
	Width  int `json:"chunk_width"`
	Height int `json:"chunk_height"`
}

// Processing names what runs on every new photo. Type selects the kind; the
// whole block is kept in Params for the kind to decode its own fields.
type Processing struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps the raw block alongside the type.
func (p *Processing) UnmarshalJSON(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	p.Type = head.Type
	p.Params = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes Params back out, or just the type when there are none.
func (p Processing) MarshalJSON() ([]byte, error) {
	if len(p.Params) > 0 {
		return p.Params, nil
	}
	return json.Marshal(struct {
		Type string `json:"type"`
	}{p.Type})
}

// Decode unmarshals the processing block into v.
func (p Processing) Decode(v any) error {
	if len(p.Params) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(p.Params))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: processing %q: %v", ErrInvalid, p.Type, err)
	}
	return nil
}

// Overlay holds defaults for drawing the heatmap over a reference photo.
type Overlay struct {
	ControlImg string  `json:"control_img"`
	Scale      float64 `json:"scale"`
	Blur       float64 `json:"blur"`
}

// TimestampOverlay locates a capture time burned into the photos, read when
// a photo carries no EXIF capture time.
type TimestampOverlay struct {
	Region   [4]int `json:"region"`
	Layout   string `json:"layout,omitempty"`
	Language string `json:"language,omitempty"`
}

// Rect returns Region as x1,y1,x2,y2.
func (t *TimestampOverlay) Rect() image.Rectangle {
	return image.Rect(t.Region[0], t.Region[1], t.Region[2], t.Region[3])
}

// Manifest is a parsed job descriptor.
type Manifest struct {
	Geometry         *Geometry         `json:"geometry"`
	Chunk            *Chunk            `json:"chunk,omitempty"`
	Processing       *Processing       `json:"processing"`
	Overlay          *Overlay          `json:"overlay,omitempty"`
	TimestampOverlay *TimestampOverlay `json:"timestamp_overlay,omitempty"`
}

// Load reads and validates the descriptor at path. The file must have a
// .json extension and be under 1MB.
func Load(path string) (*Manifest, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("%w: manifest must have .json extension, got %q", ErrInvalid, ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat manifest: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("%w: manifest too large: %d bytes (max %d)", ErrInvalid, fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a descriptor.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes the descriptor to path as indented JSON.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest dir: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Validate checks that every field the pipeline reads is present.
func (m *Manifest) Validate() error {
	g := m.Geometry
	if g == nil {
		return fmt.Errorf("%w: missing geometry", ErrInvalid)
	}
	if g.Width == nil || g.Height == nil {
		return fmt.Errorf("%w: geometry needs width and height", ErrInvalid)
	}
	if len(g.FOV) != 3 {
		return fmt.Errorf("%w: fov needs 3 components, got %d", ErrInvalid, len(g.FOV))
	}
	for i, c := range g.corners() {
		name := mapping.CornerNames[i]
		switch {
		case c == nil:
			return fmt.Errorf("%w: missing corner %s", ErrInvalid, name)
		case c.Position == nil:
			return fmt.Errorf("%w: corner %s has no position", ErrInvalid, name)
		case c.Distance == nil:
			return fmt.Errorf("%w: corner %s has no distance", ErrInvalid, name)
		}
	}
	if m.Processing == nil || m.Processing.Type == "" {
		return fmt.Errorf("%w: missing processing type", ErrInvalid)
	}
	if m.Chunk != nil && (m.Chunk.Width < 0 || m.Chunk.Height < 0) {
		return fmt.Errorf("%w: chunk size %dx%d", ErrInvalid, m.Chunk.Width, m.Chunk.Height)
	}
	if m.Overlay != nil && m.Overlay.ControlImg == "" {
		return fmt.Errorf("%w: overlay needs control_img", ErrInvalid)
	}
	if t := m.TimestampOverlay; t != nil && t.Rect().Empty() {
		return fmt.Errorf("%w: timestamp_overlay region %v is empty", ErrInvalid, t.Region)
	}
	return nil
}

// Dimensions returns the calibrated image size.
func (m *Manifest) Dimensions() mapping.Dimensions {
	return mapping.Dimensions{Width: *m.Geometry.Width, Height: *m.Geometry.Height}
}

// Calibration converts the geometry block. The manifest must be valid.
func (m *Manifest) Calibration() mapping.Calibration {
	g := m.Geometry
	cal := mapping.Calibration{
		Dim: m.Dimensions(),
		FOV: mapping.FieldOfView{g.FOV[0], g.FOV[1], g.FOV[2]},
	}
	for i, c := range g.corners() {
		cal.Corners[i] = mapping.Corner{
			Position: mapping.Point{X: c.Position[0], Y: c.Position[1]},
			Distance: *c.Distance,
		}
	}
	return cal
}

// Build builds the geometry. Bad values fail with mapping.ErrConfiguration.
func (m *Manifest) Build() (*mapping.Geometry, error) {
	return mapping.Build(m.Calibration())
}

// ChunkSize returns the block size, 36x36 when the manifest names none.
func (m *Manifest) ChunkSize() source.ChunkSize {
	if m.Chunk == nil || m.Chunk.Width == 0 || m.Chunk.Height == 0 {
		return source.DefaultChunkSize()
	}
	return source.ChunkSize{Width: m.Chunk.Width, Height: m.Chunk.Height}
}
