// Package server exposes pathfinder's heatmap operations as MCP tools.
//
// The server speaks JSON-RPC 2.0 over stdio, one request per line:
//   - Input: JSON-RPC requests on stdin
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods are initialize, tools/list, tools/call and ping.
//
// # Tools
//
// Images:
//   - image_load: dimensions and format of a photo
//   - image_crop: a region of a photo as base64 PNG
//   - image_sample_color: the color of one pixel
//   - image_cache_clear: drop decoded photos held in memory
//   - chunk_create: write a block summary of a photo
//
// Mapping:
//   - mapping_image_to_blueprint / mapping_blueprint_to_image: convert a
//     single coordinate, optionally rounded to a given precision
//
// Heatmaps:
//   - heatmap_create, heatmap_record, heatmap_info
//   - heatmap_render, heatmap_project, heatmap_overlay
//
// Series:
//   - series_create, series_select, series_totals, series_plot
//
// Jobs:
//   - job_create, job_update, job_list
//
// Tools that change a heatmap file go through heatmap.Update, so concurrent
// clients working on one file take turns.
//
// # Error Handling
//
// Tool failures are returned with code -32000 and the Go error text as data.
// Malformed tools/call params get -32602 and unparseable lines -32700.
package server
