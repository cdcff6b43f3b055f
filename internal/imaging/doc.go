// Package imaging provides the raster operations behind heatmap sources and
// heatmap output: decoding and caching photos, sampling colors, and producing
// the grayscale, colorized, blurred and composited images that heatmaps render.
//
// All operations work with standard Go image.Image types and use a coordinate
// system where (0,0) is the top-left corner, X increases rightward, and Y
// increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - Grids of values are indexed [row][col], i.e. [y][x]
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and return new images; inputs are never modified.
//
// # Color Representation
//
// Sampled colors are RGB triples with float64 channels on the 0-255 scale, so
// that pixel samples and precomputed block averages share one type.
// Output colors for projections come from a two-endpoint Gradient blended in
// CIE L*a*b* space (go-colorful).
//
// # Supported Formats
//
// Decoding: PNG, JPEG, GIF (standard library), TIFF and BMP (golang.org/x/image).
// Encoding: chosen from the output file extension by Save (disintegration/imaging).
//
// # Error Handling
//
// Functions return errors for:
//   - Coordinates outside image bounds
//   - File I/O errors during loading or saving
//   - Malformed color strings
package imaging
