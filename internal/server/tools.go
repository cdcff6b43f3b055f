package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func object(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Argument descriptions shared by several tools.
var (
	manifestProp  = prop("string", "Path to a manifest.json job descriptor")
	heatmapProp   = prop("string", "Path to a persisted .heatmap file")
	outputProp    = prop("string", "Path to write the image to; the format follows the extension")
	precisionProp = prop("integer", "Decimal places to round the result to. Omit for full precision")
	seriesDirProp = prop("string", "Series directory holding series.db and buckets/")
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Images
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and size.",
			InputSchema: object(map[string]interface{}{
				"path": prop("string", "Absolute path to the image file"),
			}, "path"),
		},
		{
			Name:        "image_crop",
			Description: "Crop a rectangular region from a photo and return it as base64-encoded PNG. Useful for locating calibration corners and timestamp overlays.",
			InputSchema: object(map[string]interface{}{
				"path":  prop("string", "Absolute path to the image file"),
				"x1":    prop("integer", "Left edge X coordinate (0-based)"),
				"y1":    prop("integer", "Top edge Y coordinate (0-based)"),
				"x2":    prop("integer", "Right edge X coordinate (exclusive)"),
				"y2":    prop("integer", "Bottom edge Y coordinate (exclusive)"),
				"scale": prop("number", "Optional scale factor (e.g., 2.0 to double size). Default 1.0"),
			}, "path", "x1", "y1", "x2", "y2"),
		},
		{
			Name:        "image_sample_color",
			Description: "Get the exact color at a pixel, for choosing a movement threshold.",
			InputSchema: object(map[string]interface{}{
				"path": prop("string", "Absolute path to the image file"),
				"x":    prop("integer", "X coordinate (0-based, from left)"),
				"y":    prop("integer", "Y coordinate (0-based, from top)"),
			}, "path", "x", "y"),
		},
		{
			Name:        "image_cache_clear",
			Description: "Drop every decoded photo held in memory.",
			InputSchema: object(map[string]interface{}{}),
		},
		{
			Name:        "chunk_create",
			Description: "Summarize a photo in blocks of average color and variance and write the chunk summary file used in place of the full image.",
			InputSchema: object(map[string]interface{}{
				"path":         prop("string", "Photo to summarize"),
				"output":       prop("string", "Summary path. Default: the photo path with a .txt extension"),
				"chunk_width":  prop("integer", "Block width in pixels. Default 36, or the manifest's chunk_width"),
				"chunk_height": prop("integer", "Block height in pixels. Default 36, or the manifest's chunk_height"),
				"manifest":     prop("string", "Optional manifest supplying block size and timestamp overlay"),
			}, "path"),
		},

		// Mapping
		{
			Name:        "mapping_image_to_blueprint",
			Description: "Map a pixel position in the camera image to blueprint coordinates on the calibrated plane.",
			InputSchema: object(map[string]interface{}{
				"manifest":  manifestProp,
				"x":         prop("number", "Pixel x, 0 at the left edge"),
				"y":         prop("number", "Pixel y, 0 at the top edge"),
				"precision": precisionProp,
			}, "manifest", "x", "y"),
		},
		{
			Name:        "mapping_blueprint_to_image",
			Description: "Map blueprint coordinates on the calibrated plane back to a pixel position in the camera image.",
			InputSchema: object(map[string]interface{}{
				"manifest":  manifestProp,
				"u":         prop("number", "Blueprint u"),
				"v":         prop("number", "Blueprint v"),
				"precision": precisionProp,
			}, "manifest", "u", "v"),
		},

		// Heatmaps
		{
			Name:        "heatmap_create",
			Description: "Create an empty heatmap for a manifest's calibration. An existing file is left alone.",
			InputSchema: object(map[string]interface{}{
				"manifest": manifestProp,
				"path":     heatmapProp,
			}, "manifest", "path"),
		},
		{
			Name:        "heatmap_record",
			Description: "Detect movement across a batch of photos or chunk summaries and add it to a heatmap.",
			InputSchema: object(map[string]interface{}{
				"path": heatmapProp,
				"images": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Photos or chunk summaries; all must be of one kind",
				},
				"start":        prop("string", "Period start, RFC 3339. Omit both start and end to use the span of the images"),
				"end":          prop("string", "Period end, RFC 3339"),
				"window_size":  prop("integer", "Consecutive images compared at once. Default 10"),
				"color_thresh": prop("number", "Per-channel spread counted as movement. Default 50; 0 counts any change"),
				"chunk_width":  prop("integer", "Expected chunk summary block width"),
				"chunk_height": prop("integer", "Expected chunk summary block height"),
			}, "path", "images"),
		},
		{
			Name:        "heatmap_render",
			Description: "Write the heatmap's normalized counts as a grayscale image the size of the camera frame.",
			InputSchema: object(map[string]interface{}{
				"path":   heatmapProp,
				"output": outputProp,
			}, "path", "output"),
		},
		{
			Name:        "heatmap_project",
			Description: "Render the heatmap onto the blueprint plane as a colored, blurred image and note the projection time.",
			InputSchema: object(map[string]interface{}{
				"path":       heatmapProp,
				"output":     outputProp,
				"width":      prop("integer", "Output width in pixels; height follows the field of interest"),
				"moment":     prop("string", "Projection time, RFC 3339. Default now"),
				"blur":       prop("number", "Gaussian radius in output pixels. Default 2, negative disables"),
				"grid_step":  prop("number", "Draw a labelled grid every grid_step blueprint units"),
				"low_color":  prop("string", "Gradient color for zero density, #RRGGBB"),
				"high_color": prop("string", "Gradient color for peak density, #RRGGBB"),
			}, "path", "output", "width"),
		},
		{
			Name:        "heatmap_overlay",
			Description: "Add the heatmap in red over a base image. Arguments left out come from the manifest's overlay block.",
			InputSchema: object(map[string]interface{}{
				"path":     heatmapProp,
				"output":   outputProp,
				"base":     prop("string", "Base image. Default: the manifest's overlay.control_img"),
				"scale":    prop("number", "Red intensity multiplier. Default 1"),
				"blur":     prop("number", "Gaussian radius in pixels. Default 0"),
				"manifest": prop("string", "Optional manifest whose overlay block supplies defaults"),
			}, "path", "output"),
		},
		{
			Name:        "heatmap_info",
			Description: "Report a heatmap's size, event count, peak, occupied pixels and covered periods.",
			InputSchema: object(map[string]interface{}{
				"path": heatmapProp,
			}, "path"),
		},

		// Series
		{
			Name:        "series_create",
			Description: "Create a heatmap series: one heatmap per fixed time interval, anchored at start.",
			InputSchema: object(map[string]interface{}{
				"dir":      seriesDirProp,
				"manifest": manifestProp,
				"interval": prop("number", "Bucket length in seconds"),
				"start":    prop("string", "Bucket anchor, RFC 3339. Default the Unix epoch"),
			}, "dir", "manifest", "interval"),
		},
		{
			Name:        "series_select",
			Description: "Find or create the bucket heatmap an image's capture time falls in.",
			InputSchema: object(map[string]interface{}{
				"dir":   seriesDirProp,
				"image": prop("string", "Photo or chunk summary"),
			}, "dir", "image"),
		},
		{
			Name:        "series_totals",
			Description: "List each bucket's start and event count.",
			InputSchema: object(map[string]interface{}{
				"dir": seriesDirProp,
			}, "dir"),
		},
		{
			Name:        "series_plot",
			Description: "Chart bucket event counts against bucket start.",
			InputSchema: object(map[string]interface{}{
				"dir":    seriesDirProp,
				"output": prop("string", "Chart path (.png, .svg or .pdf)"),
			}, "dir", "output"),
		},

		// Jobs
		{
			Name:        "job_create",
			Description: "Create a job directory from a manifest, with an empty job heatmap.",
			InputSchema: object(map[string]interface{}{
				"id":       prop("string", "Job id: letters, digits, '.', '_' and '-'"),
				"manifest": manifestProp,
			}, "id", "manifest"),
		},
		{
			Name:        "job_update",
			Description: "Move a newly arrived photo into a job and run the job's processing for it.",
			InputSchema: object(map[string]interface{}{
				"id":    prop("string", "Job id"),
				"image": prop("string", "Incoming photo or chunk summary"),
			}, "id", "image"),
		},
		{
			Name:        "job_list",
			Description: "List job ids and the processing types jobs may use.",
			InputSchema: object(map[string]interface{}{}),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
