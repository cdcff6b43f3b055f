package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/ironsheep/pathfinder-heatmap/internal/heatmap"
	"github.com/ironsheep/pathfinder-heatmap/internal/imaging"
	"github.com/ironsheep/pathfinder-heatmap/internal/jobs"
	"github.com/ironsheep/pathfinder-heatmap/internal/manifest"
	"github.com/ironsheep/pathfinder-heatmap/internal/mapping"
	"github.com/ironsheep/pathfinder-heatmap/internal/period"
	"github.com/ironsheep/pathfinder-heatmap/internal/series"
	"github.com/ironsheep/pathfinder-heatmap/internal/source"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "heatmap_record", "job_update").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Images
	case "image_load":
		return s.handleImageLoad(args)
	case "image_crop":
		return s.handleImageCrop(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)
	case "image_cache_clear":
		return s.handleImageCacheClear()
	case "chunk_create":
		return s.handleChunkCreate(args)

	// Mapping
	case "mapping_image_to_blueprint":
		return s.handleImageToBlueprint(args)
	case "mapping_blueprint_to_image":
		return s.handleBlueprintToImage(args)

	// Heatmaps
	case "heatmap_create":
		return s.handleHeatmapCreate(args)
	case "heatmap_record":
		return s.handleHeatmapRecord(ctx, args)
	case "heatmap_render":
		return s.handleHeatmapRender(args)
	case "heatmap_project":
		return s.handleHeatmapProject(args)
	case "heatmap_overlay":
		return s.handleHeatmapOverlay(args)
	case "heatmap_info":
		return s.handleHeatmapInfo(args)

	// Series
	case "series_create":
		return s.handleSeriesCreate(args)
	case "series_select":
		return s.handleSeriesSelect(args)
	case "series_totals":
		return s.handleSeriesTotals(args)
	case "series_plot":
		return s.handleSeriesPlot(args)

	// Jobs
	case "job_create":
		return s.handleJobCreate(args)
	case "job_update":
		return s.handleJobUpdate(ctx, args)
	case "job_list":
		return s.handleJobList()

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("missing required argument %q", field)
	}
	return nil
}

// parseTime reads an RFC 3339 argument; empty yields the zero time.
func parseTime(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

// round keeps places decimals; nil keeps full precision.
func round(v float64, places *int) float64 {
	if places == nil {
		return v
	}
	p := math.Pow(10, float64(*places))
	return math.Round(v*p) / p
}

// === Image Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageCropArgs struct {
	Path  string  `json:"path"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	cropped, err := imaging.Crop(img, image.Rect(a.X1, a.Y1, a.X2, a.Y2), a.Scale)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNGBase64(cropped)
	if err != nil {
		return nil, err
	}
	b := cropped.Bounds()
	return map[string]interface{}{
		"width":  b.Dx(),
		"height": b.Dy(),
		"image":  encoded,
	}, nil
}

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	c, err := imaging.SampleRGB(img, a.X, a.Y)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"rgb": c, "hex": c.Hex()}, nil
}

func (s *Server) handleImageCacheClear() (interface{}, error) {
	n := s.cache.Len()
	s.cache.Clear()
	return map[string]interface{}{"evicted": n}, nil
}

type chunkCreateArgs struct {
	Path        string `json:"path"`
	Output      string `json:"output"`
	ChunkWidth  int    `json:"chunk_width"`
	ChunkHeight int    `json:"chunk_height"`
	Manifest    string `json:"manifest"`
}

func (s *Server) handleChunkCreate(args json.RawMessage) (interface{}, error) {
	var a chunkCreateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := required("path", a.Path); err != nil {
		return nil, err
	}

	loader := source.Loader{Cache: s.cache}
	if a.Manifest != "" {
		m, err := manifest.Load(a.Manifest)
		if err != nil {
			return nil, err
		}
		loader = s.store.Loader(m)
	}
	if a.ChunkWidth != 0 || a.ChunkHeight != 0 {
		loader.Chunk = source.ChunkSize{Width: a.ChunkWidth, Height: a.ChunkHeight}
		if !loader.Chunk.Valid() {
			return nil, fmt.Errorf("%w: chunk size %dx%d", mapping.ErrConfiguration, a.ChunkWidth, a.ChunkHeight)
		}
	}

	out, err := loader.CreateChunkSummary(a.Path, a.Output)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": out}, nil
}

// === Mapping Handlers ===

type imageToBlueprintArgs struct {
	Manifest  string  `json:"manifest"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Precision *int    `json:"precision"`
}

func (s *Server) handleImageToBlueprint(args json.RawMessage) (interface{}, error) {
	var a imageToBlueprintArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	geom, err := loadGeometry(a.Manifest)
	if err != nil {
		return nil, err
	}
	uv, err := geom.ImageToBlueprint(mapping.Point{X: a.X, Y: a.Y})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"u": round(uv.X, a.Precision),
		"v": round(uv.Y, a.Precision),
	}, nil
}

type blueprintToImageArgs struct {
	Manifest  string  `json:"manifest"`
	U         float64 `json:"u"`
	V         float64 `json:"v"`
	Precision *int    `json:"precision"`
}

func (s *Server) handleBlueprintToImage(args json.RawMessage) (interface{}, error) {
	var a blueprintToImageArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	geom, err := loadGeometry(a.Manifest)
	if err != nil {
		return nil, err
	}
	p, err := geom.BlueprintToImage(mapping.Point{X: a.U, Y: a.V})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"x": round(p.X, a.Precision),
		"y": round(p.Y, a.Precision),
	}, nil
}

func loadGeometry(path string) (*mapping.Geometry, error) {
	if err := required("manifest", path); err != nil {
		return nil, err
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, err
	}
	return m.Build()
}

// === Heatmap Handlers ===

type heatmapCreateArgs struct {
	Manifest string `json:"manifest"`
	Path     string `json:"path"`
}

func (s *Server) handleHeatmapCreate(args json.RawMessage) (interface{}, error) {
	var a heatmapCreateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := required("path", a.Path); err != nil {
		return nil, err
	}
	m, err := manifest.Load(a.Manifest)
	if err != nil {
		return nil, err
	}
	geom, err := m.Build()
	if err != nil {
		return nil, err
	}
	hm, err := heatmap.New(geom, m.Dimensions())
	if err != nil {
		return nil, err
	}
	created, err := heatmap.Create(a.Path, hm)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": a.Path, "created": created}, nil
}

type heatmapRecordArgs struct {
	Path        string   `json:"path"`
	Images      []string `json:"images"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	WindowSize  int      `json:"window_size"`
	ColorThresh *float64 `json:"color_thresh"`
	ChunkWidth  int      `json:"chunk_width"`
	ChunkHeight int      `json:"chunk_height"`
}

func (s *Server) handleHeatmapRecord(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a heatmapRecordArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := required("path", a.Path); err != nil {
		return nil, err
	}
	start, err := parseTime("start", a.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseTime("end", a.End)
	if err != nil {
		return nil, err
	}
	if start.IsZero() != end.IsZero() {
		return nil, fmt.Errorf("start and end must be given together")
	}

	var stats heatmap.RecordStats
	err = heatmap.Update(a.Path, func(h *heatmap.Heatmap) error {
		loader := source.Loader{
			Dim:     h.Dimensions(),
			Chunk:   source.ChunkSize{Width: a.ChunkWidth, Height: a.ChunkHeight},
			Cache:   s.cache,
			Workers: s.settings.Workers,
		}
		sources, err := loader.LoadBatch(ctx, a.Images)
		if err != nil {
			return err
		}

		p := period.New(start, end)
		if start.IsZero() {
			p = period.Null()
			for _, src := range sources {
				p = p.Include(src.TimeTaken())
			}
		}

		stats, err = h.Record(ctx, sources, p, heatmap.RecordOptions{
			WindowSize: a.WindowSize,
			Threshold:  a.ColorThresh,
			Workers:    s.settings.Workers,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

type heatmapRenderArgs struct {
	Path   string `json:"path"`
	Output string `json:"output"`
}

func (s *Server) handleHeatmapRender(args json.RawMessage) (interface{}, error) {
	var a heatmapRenderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := required("output", a.Output); err != nil {
		return nil, err
	}
	hm, err := heatmap.Load(a.Path)
	if err != nil {
		return nil, err
	}
	if err := hm.Render(a.Output); err != nil {
		return nil, err
	}
	return map[string]interface{}{"output": a.Output}, nil
}

type heatmapProjectArgs struct {
	Path      string  `json:"path"`
	Output    string  `json:"output"`
	Width     int     `json:"width"`
	Moment    string  `json:"moment"`
	Blur      float64 `json:"blur"`
	GridStep  float64 `json:"grid_step"`
	LowColor  string  `json:"low_color"`
	HighColor string  `json:"high_color"`
}

func (s *Server) handleHeatmapProject(args json.RawMessage) (interface{}, error) {
	var a heatmapProjectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := required("output", a.Output); err != nil {
		return nil, err
	}
	moment, err := parseTime("moment", a.Moment)
	if err != nil {
		return nil, err
	}
	if moment.IsZero() {
		moment = time.Now().UTC()
	}

	opts := heatmap.ProjectOptions{Blur: a.Blur, GridStep: a.GridStep}
	if a.LowColor != "" || a.HighColor != "" {
		low, high := a.LowColor, a.HighColor
		if low == "" {
			low = imaging.DefaultLowColor
		}
		if high == "" {
			high = imaging.DefaultHighColor
		}
		g, err := imaging.NewGradient(low, high)
		if err != nil {
			return nil, err
		}
		opts.Gradient = &g
	}

	var projected period.Period
	err = heatmap.Update(a.Path, func(h *heatmap.Heatmap) error {
		if err := h.Project(a.Output, a.Width, moment, opts); err != nil {
			return err
		}
		projected = h.ProjectPeriod()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"output": a.Output, "project_period": projected}, nil
}

type heatmapOverlayArgs struct {
	Path     string   `json:"path"`
	Output   string   `json:"output"`
	Base     string   `json:"base"`
	Scale    *float64 `json:"scale"`
	Blur     *float64 `json:"blur"`
	Manifest string   `json:"manifest"`
}

func (s *Server) handleHeatmapOverlay(args json.RawMessage) (interface{}, error) {
	var a heatmapOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := required("output", a.Output); err != nil {
		return nil, err
	}

	base, scale, blur := a.Base, 1.0, 0.0
	if a.Manifest != "" {
		m, err := manifest.Load(a.Manifest)
		if err != nil {
			return nil, err
		}
		if o := m.Overlay; o != nil {
			if base == "" {
				base = o.ControlImg
			}
			if o.Scale != 0 {
				scale = o.Scale
			}
			blur = o.Blur
		}
	}
	if a.Scale != nil {
		scale = *a.Scale
	}
	if a.Blur != nil {
		blur = *a.Blur
	}
	if err := required("base", base); err != nil {
		return nil, err
	}

	hm, err := heatmap.Load(a.Path)
	if err != nil {
		return nil, err
	}
	if err := hm.Overlay(base, a.Output, scale, blur); err != nil {
		return nil, err
	}
	return map[string]interface{}{"output": a.Output, "base": base, "scale": scale, "blur": blur}, nil
}

type heatmapInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleHeatmapInfo(args json.RawMessage) (interface{}, error) {
	var a heatmapInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	hm, err := heatmap.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return hm.Info(), nil
}

// === Series Handlers ===

type seriesCreateArgs struct {
	Dir      string  `json:"dir"`
	Manifest string  `json:"manifest"`
	Interval float64 `json:"interval"`
	Start    string  `json:"start"`
}

func (s *Server) handleSeriesCreate(args json.RawMessage) (interface{}, error) {
	var a seriesCreateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := required("dir", a.Dir); err != nil {
		return nil, err
	}
	start, err := parseTime("start", a.Start)
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}

	sr, err := series.Create(a.Dir, a.Manifest, time.Duration(a.Interval*float64(time.Second)), start)
	if err != nil {
		return nil, err
	}
	defer sr.Close()
	return map[string]interface{}{
		"id":       sr.ID,
		"dir":      sr.Dir,
		"interval": sr.Interval.Seconds(),
		"start":    sr.Start,
	}, nil
}

type seriesArgs struct {
	Dir    string `json:"dir"`
	Image  string `json:"image"`
	Output string `json:"output"`
}

func (s *Server) openSeries(args json.RawMessage) (*series.Series, seriesArgs, error) {
	var a seriesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, a, err
	}
	if err := required("dir", a.Dir); err != nil {
		return nil, a, err
	}
	sr, err := series.Open(a.Dir)
	if err != nil {
		return nil, a, err
	}
	sr.Loader.Cache = s.cache
	return sr, a, nil
}

func (s *Server) handleSeriesSelect(args json.RawMessage) (interface{}, error) {
	sr, a, err := s.openSeries(args)
	if err != nil {
		return nil, err
	}
	defer sr.Close()
	if err := required("image", a.Image); err != nil {
		return nil, err
	}

	taken, err := sr.Loader.TimeTaken(a.Image)
	if err != nil {
		return nil, err
	}
	path, err := sr.SelectFor(taken)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"heatmap":      path,
		"bucket_start": sr.BucketStart(taken),
		"taken":        taken,
	}, nil
}

func (s *Server) handleSeriesTotals(args json.RawMessage) (interface{}, error) {
	sr, _, err := s.openSeries(args)
	if err != nil {
		return nil, err
	}
	defer sr.Close()
	totals, err := sr.Totals()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"totals": totals}, nil
}

func (s *Server) handleSeriesPlot(args json.RawMessage) (interface{}, error) {
	sr, a, err := s.openSeries(args)
	if err != nil {
		return nil, err
	}
	defer sr.Close()
	if err := required("output", a.Output); err != nil {
		return nil, err
	}
	if err := sr.PlotTotals(a.Output); err != nil {
		return nil, err
	}
	return map[string]interface{}{"output": a.Output}, nil
}

// === Job Handlers ===

type jobArgs struct {
	ID       string `json:"id"`
	Manifest string `json:"manifest"`
	Image    string `json:"image"`
}

func (s *Server) handleJobCreate(args json.RawMessage) (interface{}, error) {
	var a jobArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	m, err := manifest.Load(a.Manifest)
	if err != nil {
		return nil, err
	}
	j, err := s.store.Create(a.ID, m)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"id":         j.ID,
		"dir":        j.Dir,
		"heatmap":    j.HeatmapPath(),
		"processing": m.Processing.Type,
	}, nil
}

func (s *Server) handleJobUpdate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a jobArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := required("image", a.Image); err != nil {
		return nil, err
	}
	return s.store.UpdateJob(ctx, a.ID, a.Image)
}

func (s *Server) handleJobList() (interface{}, error) {
	ids, err := s.store.List()
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return map[string]interface{}{
		"jobs":       ids,
		"processing": jobs.Kinds(),
	}, nil
}
