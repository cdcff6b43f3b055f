// Package period provides the inclusive time range used to select photos and
// to record which stretch of time a heatmap covers.
//
// A Period is [Start, End] with both endpoints included. The zero value is
// the null period: it contains no instant and is absorbed by Include and
// Union, so a heatmap that has never recorded anything starts from Null and
// grows as windows are added.
//
// Periods travel as JSON inside heatmap info and tool results. The null
// period encodes as null; any other as {"start": ..., "end": ...} in
// RFC 3339.
package period
