// Package manifest loads the job descriptor, manifest.json, that tells the
// pipeline how a camera is calibrated, how its photos are summarized and
// which processing runs when a new photo arrives.
//
// # Blocks
//
//   - geometry (required): image width and height, the three-component
//     field of view and the four calibration corners (upperleft,
//     upperright, lowerleft, lowerright), each a pixel position plus its
//     distance from the camera.
//   - processing (required): a type naming the processing kind, plus the
//     kind's own fields. The block is kept raw and decoded by the kind
//     through Processing.Decode.
//   - chunk: chunk_width and chunk_height for block summaries. Absent means
//     the default 36x36.
//   - overlay: control_img, scale and blur defaults for drawing a heatmap
//     over a reference photo.
//   - timestamp_overlay: the region, and optionally the time layout and
//     OCR language, of a capture time burned into photos without EXIF.
//
// Load rejects files that are not .json or exceed 1MB. Validate wraps the
// first problem it finds in ErrInvalid, and Build turns the geometry block
// into a mapping.Geometry.
package manifest
