// Package mapping converts between the pixel frame of a fixed camera and the
// flat real-world ("blueprint") frame of the area it watches.
//
// A Geometry is calibrated once per job from four reference corners, each a
// pixel position plus the measured distance from the camera, and a
// field-of-view triple that turns pixel positions into 3D view directions.
// The four corners are projected into camera space and the plane through
// them becomes the floor onto which every later pixel is projected.
//
// # Coordinate Frames
//
// Pixel coordinates follow the image convention used by the imaging package:
//   - Origin (0, 0) at the top-left corner
//   - X increases rightward, Y increases downward
//   - Values are real-valued; the right and bottom image edges are valid positions
//
// Blueprint coordinates (u, v) are measured in the same units as the corner
// distances, from the projection of the first ("upper left") corner:
//   - u runs along the edge from the first to the second corner
//   - v runs along the edge from the first to the third corner
//
// The two axes are generally not orthogonal. u and v are scalar projections of
// the in-plane offset onto each axis.
//
// # Transform Pipeline
//
// Image to blueprint:
//
//  1. Center: x' = (x - W/2) / W, y' = -(y - H/2) / H
//  2. View direction: [x', y', 1] * fov (elementwise)
//  3. Ray-plane intersection: scale = (n . origin) / (n . direction)
//  4. Offset from origin, projected onto each axis
//
// Blueprint to image runs the pipeline backwards. The in-plane offset is
// recovered by solving the 2x2 Gram system of the two unit axes, so the inverse
// reproduces any point the forward transform produced.
//
// # Error Handling
//
// All failures are reported through sentinel errors usable with errors.Is:
//   - ErrConfiguration: non-positive FOV or distance, duplicate corners, empty dimensions
//   - ErrRange: negative or out-of-bounds pixel coordinate
//   - ErrDegenerateGeometry: collinear corners, zero-length axis, or a view ray
//     parallel to the calibrated plane
//
// A Geometry never returns NaN or infinite coordinates in place of an error.
//
// # Thread Safety
//
// A Geometry is immutable after Build and safe for concurrent use.
package mapping
