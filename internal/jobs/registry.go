package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ironsheep/pathfinder-heatmap/internal/heatmap"
	"github.com/ironsheep/pathfinder-heatmap/internal/manifest"
	"github.com/ironsheep/pathfinder-heatmap/internal/mapping"
	"github.com/ironsheep/pathfinder-heatmap/internal/period"
)

// Kind is a processing kind named by a manifest's processing.type.
type Kind int

const (
	// EveryImage re-records the job heatmap over the trailing time window
	// each time a photo arrives.
	EveryImage Kind = iota + 1

	// SeriesUpdate records the trailing time window into the series bucket
	// the new photo falls in.
	SeriesUpdate
)

var kindNames = map[Kind]string{
	EveryImage:   "update_on_every_image",
	SeriesUpdate: "update_series",
}

// kinds is the lookup table from processing.type to Kind.
var kinds = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		m[name] = k
	}
	return m
}()

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind looks up a processing type. Unknown types fail with
// mapping.ErrConfiguration.
func ParseKind(name string) (Kind, error) {
	k, ok := kinds[name]
	if !ok {
		return 0, fmt.Errorf("%w: unrecognized processing type %q", mapping.ErrConfiguration, name)
	}
	return k, nil
}

// Kinds lists the processing type names in sorted order.
func Kinds() []string {
	out := make([]string, 0, len(kinds))
	for name := range kinds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Params are the processing block fields. A zero window size or an absent
// color_thresh takes the heatmap default.
type Params struct {
	WindowSize  int      `json:"window_size"`
	ColorThresh *float64 `json:"color_thresh,omitempty"`

	// TimeWindow is how far back from the new photo to record, in seconds.
	TimeWindow float64 `json:"time_window"`

	// Interval is the series bucket length in seconds (update_series only).
	Interval float64 `json:"interval,omitempty"`

	// Start anchors the series buckets, RFC 3339. Empty anchors them at the
	// Unix epoch.
	Start string `json:"start,omitempty"`
}

func (p Params) window() time.Duration {
	return time.Duration(p.TimeWindow * float64(time.Second))
}

func (p Params) interval() time.Duration {
	return time.Duration(p.Interval * float64(time.Second))
}

func (p Params) start() (time.Time, error) {
	if p.Start == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, p.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: series start %q: %v", mapping.ErrConfiguration, p.Start, err)
	}
	return t, nil
}

// Processing is a decoded processing block.
type Processing struct {
	Kind   Kind
	Params Params
}

// ProcessingOf decodes and checks the processing block of m.
func ProcessingOf(m *manifest.Manifest) (Processing, error) {
	kind, err := ParseKind(m.Processing.Type)
	if err != nil {
		return Processing{}, err
	}
	var params Params
	if err := m.Processing.Decode(&params); err != nil {
		return Processing{}, err
	}
	if params.TimeWindow <= 0 {
		return Processing{}, fmt.Errorf("%w: %s needs a positive time_window, got %v", mapping.ErrConfiguration, kind, params.TimeWindow)
	}
	if params.WindowSize < 0 || (params.ColorThresh != nil && *params.ColorThresh < 0) {
		return Processing{}, fmt.Errorf("%w: negative window_size or color_thresh", mapping.ErrConfiguration)
	}
	if kind == SeriesUpdate {
		if params.Interval <= 0 {
			return Processing{}, fmt.Errorf("%w: %s needs a positive interval, got %v", mapping.ErrConfiguration, kind, params.Interval)
		}
		if _, err := params.start(); err != nil {
			return Processing{}, err
		}
	}
	return Processing{Kind: kind, Params: params}, nil
}

// Result reports what one photo's processing did.
type Result struct {
	Kind    string              `json:"kind"`
	Image   string              `json:"image"`
	Heatmap string              `json:"heatmap"`
	Period  period.Period       `json:"period"`
	Stats   heatmap.RecordStats `json:"stats"`
}

// processor runs one kind against a photo already moved into the job.
type processor func(ctx context.Context, j *Job, p Params, imagePath string, taken time.Time) (Result, error)

// processors is built once; every Kind has an entry.
var processors = map[Kind]processor{
	EveryImage:   processEveryImage,
	SeriesUpdate: processSeries,
}

func processEveryImage(ctx context.Context, j *Job, p Params, imagePath string, taken time.Time) (Result, error) {
	window := period.New(taken.Add(-p.window()), taken)
	return j.record(ctx, j.HeatmapPath(), window, p)
}

func processSeries(ctx context.Context, j *Job, p Params, imagePath string, taken time.Time) (Result, error) {
	s, err := j.series(p)
	if err != nil {
		return Result{}, err
	}
	defer s.Close()

	bucket, err := s.SelectFor(taken)
	if err != nil {
		return Result{}, err
	}

	// The bucket's heatmap only covers its own interval.
	from := taken.Add(-p.window())
	if b := s.BucketStart(taken); from.Before(b) {
		from = b
	}
	return j.record(ctx, bucket, period.New(from, taken), p)
}
