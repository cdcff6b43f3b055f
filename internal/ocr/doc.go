// Package ocr reads text burned into camera frames using Tesseract.
//
// Its main use is recovering capture times from photos that carry no EXIF
// data but have the time printed in a corner of the frame. ReadTimestamp
// crops that corner, cleans it up for recognition and parses the result with
// a Go time layout.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Options.TessdataPrefix points the engine at a non-standard traineddata
// directory.
//
// # Recognition
//
// Burned-in overlays are usually small light text on a busy background.
// PrepareOverlay converts the crop to grayscale, inverts light-on-dark text
// and upscales it before recognition. For numeric layouts the recognizer is
// restricted to digits and the layout's separators, and ParseTimestamp maps
// letters commonly confused with digits (O, l, S, ...) back before parsing.
package ocr
