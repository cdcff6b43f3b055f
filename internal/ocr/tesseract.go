package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// DefaultLanguage is used when Options.Language is empty.
const DefaultLanguage = "eng"

// Options configures a Tesseract run.
type Options struct {
	// Language is the Tesseract language code, e.g. "eng". The matching
	// traineddata file must be installed.
	Language string

	// TessdataPrefix overrides the directory Tesseract loads traineddata
	// from. Empty uses the library default (TESSDATA_PREFIX or the
	// compiled-in path).
	TessdataPrefix string

	// Whitelist restricts recognition to the given characters.
	Whitelist string

	// SingleLine treats the image as one line of text, which suits
	// burned-in camera overlays.
	SingleLine bool
}

func (o Options) language() string {
	if o.Language == "" {
		return DefaultLanguage
	}
	return o.Language
}

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this text in the image.
	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the results of text extraction from an image.
type OCRResult struct {
	// FullText is all recognized text with original spacing/newlines.
	FullText string `json:"full_text"`

	// Regions contains individual words with their bounding boxes. It may be
	// empty if bounding box extraction fails; FullText is still set.
	Regions []TextRegion `json:"regions"`
}

// newClient builds a gosseract client configured from opts. The caller
// closes it.
func newClient(opts Options) (*gosseract.Client, error) {
	client := gosseract.NewClient()

	if opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(opts.language()); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}
	if opts.SingleLine {
		if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}
	return client, nil
}

// ExtractText performs OCR on an in-memory image.
//
// The image is handed to Tesseract as PNG bytes, so no temporary file is
// written.
//
// Parameters:
//   - img: The image to read.
//   - opts: Language, tessdata location and recognition hints.
//
// Returns:
//   - *OCRResult: The full text and, when available, word bounding boxes
//     relative to img's origin.
//   - error: Non-nil if encoding fails or Tesseract cannot run.
func ExtractText(img image.Image, opts Options) (*OCRResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	client, err := newClient(opts)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &OCRResult{FullText: text, Regions: []TextRegion{}}, nil
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}

	return &OCRResult{FullText: text, Regions: regions}, nil
}

// TesseractVersion reports the version of the linked Tesseract library.
func TesseractVersion() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}
