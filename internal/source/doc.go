// Package source abstracts one photo of the monitored area behind the Source
// interface: when it was taken and what color each coordinate had.
//
// Two kinds exist. A Whole source is a decoded raster sampled at every pixel,
// timestamped from its EXIF DateTimeOriginal tag (or, failing that, a
// caller-supplied reader such as the OCR overlay reader). A Chunk source is a
// precomputed block summary: the average color and variance of every
// ChunkSize block of the original photo, stored as JSON. Movement found at a
// chunk coordinate covers the whole block, which Footprint reports.
//
// The kind of a file is decided by its extension, and a batch must be all of
// one kind:
//
//	kind, err := source.KindOfBatch(paths)
//	if errors.Is(err, source.ErrMismatchedSource) {
//	    // photos and chunk summaries mixed in one batch
//	}
//
// Chunk summaries are produced from photos with BuildChunkFile and
// CreateChunkSummary.
package source
