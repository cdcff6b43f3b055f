// Package heatmap accumulates movement events over a camera's pixel grid and
// renders them, either in pixel space or projected onto the calibrated
// blueprint plane.
//
// A Heatmap is created once per job with New, grown by Record, and persisted
// with Save. Callers that mutate a stored heatmap go through Update, which
// holds a per-file lock across the load, the mutation and the write, so two
// photos arriving together never lose each other's counts.
package heatmap
