// Package jobs manages job directories and runs a job's processing when a
// new photo arrives.
//
// A job lives under <root>/jobs/<id>/:
//
//	manifest.json          the job descriptor
//	data/                  every photo or chunk summary received so far
//	heatmaps/<id>.heatmap  the job heatmap
//	series/                the bucketed series, for update_series jobs
//
// The processing kind is named by the manifest's processing.type and looked
// up in a fixed table (see Kinds); an unknown type is a configuration error.
package jobs
