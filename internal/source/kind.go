package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrMismatchedSource reports a batch mixing whole images and chunk
	// summaries, or a source whose size disagrees with the calibration.
	ErrMismatchedSource = errors.New("mismatched image sources")

	// ErrNoTimestamp reports a source whose capture time cannot be found.
	ErrNoTimestamp = errors.New("no capture timestamp")

	// ErrUnknownFormat reports a file extension that is neither a raster nor
	// a chunk summary.
	ErrUnknownFormat = errors.New("unknown source format")
)

// Kind tags the two source representations.
type Kind int

const (
	// Whole is a full-resolution raster sampled per pixel.
	Whole Kind = iota + 1
	// Chunk is a block summary sampled per block.
	Chunk
)

func (k Kind) String() string {
	switch k {
	case Whole:
		return "whole"
	case Chunk:
		return "chunk"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindOf classifies a file by extension.
func KindOf(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".tif", ".tiff", ".bmp", ".gif":
		return Whole, nil
	case ".txt", ".json", ".chunk":
		return Chunk, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(path))
}

// KindOfBatch returns the single kind shared by every path. An empty batch
// has kind 0 and no error.
func KindOfBatch(paths []string) (Kind, error) {
	var kind Kind
	for _, p := range paths {
		k, err := KindOf(p)
		if err != nil {
			return 0, err
		}
		if kind != 0 && k != kind {
			return 0, fmt.Errorf("%w: %s is %s, batch is %s", ErrMismatchedSource, filepath.Base(p), k, kind)
		}
		kind = k
	}
	return kind, nil
}
