package manifest

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/pathfinder-heatmap/internal/mapping"
	"github.com/ironsheep/pathfinder-heatmap/internal/source"
)

const paperJSON = `{
  "geometry": {
    "width": 1167, "height": 875, "fov": [4.0, 3.0, 3.0],
    "upperleft":  {"position": [357, 674], "distance": 83.25},
    "upperright": {"position": [832, 674], "distance": 83.25},
    "lowerleft":  {"position": [255, 766], "distance": 61.25},
    "lowerright": {"position": [939, 768], "distance": 61.25}
  },
  "chunk": {"chunk_width": 20, "chunk_height": 10},
  "processing": {"type": "update_on_every_image", "window_size": 5, "color_thresh": 40, "time_window": 60},
  "overlay": {"control_img": "control.jpg", "scale": 1.5, "blur": 4},
  "timestamp_overlay": {"region": [0, 850, 300, 875]}
}`

func writeManifest(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()
	m, err := Load(writeManifest(t, FileName, paperJSON))
	require.NoError(t, err)

	assert.Equal(t, mapping.Dimensions{Width: 1167, Height: 875}, m.Dimensions())
	assert.Equal(t, source.ChunkSize{Width: 20, Height: 10}, m.ChunkSize())
	assert.Equal(t, "update_on_every_image", m.Processing.Type)
	assert.Equal(t, &Overlay{ControlImg: "control.jpg", Scale: 1.5, Blur: 4}, m.Overlay)
	assert.Equal(t, image.Rect(0, 850, 300, 875), m.TimestampOverlay.Rect())

	want := mapping.Calibration{
		Dim: mapping.Dimensions{Width: 1167, Height: 875},
		FOV: mapping.FieldOfView{4, 3, 3},
		Corners: [4]mapping.Corner{
			{Position: mapping.Point{X: 357, Y: 674}, Distance: 83.25},
			{Position: mapping.Point{X: 832, Y: 674}, Distance: 83.25},
			{Position: mapping.Point{X: 255, Y: 766}, Distance: 61.25},
			{Position: mapping.Point{X: 939, Y: 768}, Distance: 61.25},
		},
	}
	if diff := cmp.Diff(want, m.Calibration()); diff != "" {
		t.Errorf("Calibration mismatch (-want +got):\n%s", diff)
	}

	g, err := m.Build()
	require.NoError(t, err)
	uv, err := g.ImageToBlueprint(mapping.Point{X: 939, Y: 768})
	require.NoError(t, err)
	assert.InDelta(t, 42, uv.X, 0.5)
	assert.InDelta(t, 24, uv.Y, 0.5)
}

func TestProcessing_Decode(t *testing.T) {
	t.Parallel()
	m, err := Parse([]byte(paperJSON))
	require.NoError(t, err)

	var params struct {
		WindowSize  int     `json:"window_size"`
		ColorThresh float64 `json:"color_thresh"`
		TimeWindow  float64 `json:"time_window"`
	}
	require.NoError(t, m.Processing.Decode(&params))
	assert.Equal(t, 5, params.WindowSize)
	assert.Equal(t, 40.0, params.ColorThresh)
	assert.Equal(t, 60.0, params.TimeWindow)

	var wrong struct {
		WindowSize string `json:"window_size"`
	}
	assert.ErrorIs(t, m.Processing.Decode(&wrong), ErrInvalid)
}

func TestChunkSize_Default(t *testing.T) {
	t.Parallel()
	body := strings.Replace(paperJSON, `"chunk": {"chunk_width": 20, "chunk_height": 10},`, "", 1)
	m, err := Parse([]byte(body))
	require.NoError(t, err)
	assert.Nil(t, m.Chunk)
	assert.Equal(t, source.ChunkSize{Width: 36, Height: 36}, m.ChunkSize())
}

func TestParse_MissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(map[string]any)
	}{
		{"geometry", func(m map[string]any) { delete(m, "geometry") }},
		{"width", func(m map[string]any) { delete(geometry(m), "width") }},
		{"fov", func(m map[string]any) { geometry(m)["fov"] = []float64{1, 2} }},
		{"corner", func(m map[string]any) { delete(geometry(m), "lowerright") }},
		{"position", func(m map[string]any) { delete(geometry(m)["upperleft"].(map[string]any), "position") }},
		{"distance", func(m map[string]any) { delete(geometry(m)["lowerleft"].(map[string]any), "distance") }},
		{"processing", func(m map[string]any) { delete(m, "processing") }},
		{"processing type", func(m map[string]any) { delete(m["processing"].(map[string]any), "type") }},
		{"control image", func(m map[string]any) { delete(m["overlay"].(map[string]any), "control_img") }},
		{"empty region", func(m map[string]any) { m["timestamp_overlay"] = map[string]any{"region": []int{5, 5, 5, 9}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw map[string]any
			require.NoError(t, json.Unmarshal([]byte(paperJSON), &raw))
			tt.modify(raw)
			data, err := json.Marshal(raw)
			require.NoError(t, err)

			_, err = Parse(data)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func geometry(m map[string]any) map[string]any { return m["geometry"].(map[string]any) }

func TestBuild_BadValues(t *testing.T) {
	t.Parallel()
	body := strings.Replace(paperJSON, `"distance": 61.25}`, `"distance": -1}`, 1)
	m, err := Parse([]byte(body))
	require.NoError(t, err)

	_, err = m.Build()
	assert.ErrorIs(t, err, mapping.ErrConfiguration)
}

func TestLoad_FileRules(t *testing.T) {
	t.Parallel()

	_, err := Load(writeManifest(t, "manifest.yaml", paperJSON))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(writeManifest(t, FileName, `{"geometry": `))
	assert.ErrorIs(t, err, ErrInvalid)

	big := writeManifest(t, FileName, `{"pad":"`+strings.Repeat("x", maxFileSize)+`"}`)
	_, err = Load(big)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Load(filepath.Join(t.TempDir(), FileName))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()
	m, err := Parse([]byte(paperJSON))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "job", FileName)
	require.NoError(t, m.Save(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.Calibration(), back.Calibration())
	assert.Equal(t, m.Processing.Type, back.Processing.Type)
	assert.JSONEq(t, string(m.Processing.Params), string(back.Processing.Params))
	assert.Equal(t, m.TimestampOverlay, back.TimestampOverlay)
}
