// Package detection finds movement in a time-ordered sequence of photos of a
// fixed scene.
//
// # Pipeline
//
// Detection follows the same few steps for every batch:
//
//  1. Ordering: SortByCaptureTime puts sources in capture order (stable for
//     equal timestamps).
//  2. Trimming: TrimToPeriod keeps sources whose capture time lies in an
//     inclusive period.
//  3. Windowing: SlidingWindows yields every contiguous run of k sources,
//     max(0, n-k+1) of them, in chronological order.
//  4. Decision: IsMovement compares the samples of one window at one
//     coordinate; Detect runs that decision for every window and coordinate.
//
// # Movement
//
// A coordinate moved within a window when, for any color channel, the spread
// between the largest and smallest sample across the window exceeds the
// threshold (DefaultColorThreshold on the 0-255 scale). It is a cheap proxy
// for occupancy: a person walking through a fixed scene changes the color of
// the pixels they cover, while lighting drifts slowly enough to stay within
// the threshold over a short window.
//
// # Concurrency
//
// Decisions are pure, so Detect spreads them across workers. It returns a
// Movement bitset, one bit per window and coordinate, and mutates nothing.
// Callers walk the hits in a deterministic order (window, then coordinate
// order) and accumulate them in a single step.
package detection
