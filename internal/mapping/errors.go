package mapping

import "errors"

var (
	// ErrConfiguration reports calibration input that can never form a valid
	// Geometry: non-positive FOV components or distances, duplicate corner
	// positions, or empty image dimensions.
	ErrConfiguration = errors.New("invalid calibration")

	// ErrRange reports a pixel coordinate outside the calibrated image.
	ErrRange = errors.New("pixel coordinate out of range")

	// ErrDegenerateGeometry reports arithmetic that has no defined result for
	// the calibrated plane, such as a view ray parallel to it.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)
