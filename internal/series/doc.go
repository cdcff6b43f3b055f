// Package series splits continuous recording into fixed-length time buckets,
// each owning an independent heatmap.
//
// A series lives in its own directory: a sqlite index (series.db) recording
// the interval, the anchor time and every bucket created so far, and a
// buckets/ directory with one heatmap file per bucket. The bucket for a
// capture time t starts at
//
//	Start + floor((t - Start) / Interval) * Interval
//
// so photos taken before Start land in earlier buckets rather than failing.
package series
