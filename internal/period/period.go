package period

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Period is an inclusive [Start, End] range.
//
// The zero value is the null period: it means "nothing yet", contains no
// instant, and is absorbed by any real period in Include and Union.
type Period struct {
	Start time.Time
	End   time.Time
}

// Null returns the null period.
func Null() Period { return Period{} }

// New returns the period [start, end]. A period whose end precedes its start
// is valid and contains nothing.
func New(start, end time.Time) Period {
	return Period{Start: start, End: end}
}

// At returns the single-instant period [t, t].
func At(t time.Time) Period { return Period{Start: t, End: t} }

// IsNull reports whether p is the null period.
func (p Period) IsNull() bool {
	return p.Start.IsZero() && p.End.IsZero()
}

// Contains reports whether t lies within p, endpoints included.
func (p Period) Contains(t time.Time) bool {
	if p.IsNull() {
		return false
	}
	return !t.Before(p.Start) && !t.After(p.End)
}

// Include returns the smallest period covering both p and t.
func (p Period) Include(t time.Time) Period {
	if p.IsNull() {
		return At(t)
	}
	out := p
	if t.Before(out.Start) {
		out.Start = t
	}
	if t.After(out.End) {
		out.End = t
	}
	return out
}

// Union returns the smallest period covering both p and o.
func (p Period) Union(o Period) Period {
	switch {
	case p.IsNull():
		return o
	case o.IsNull():
		return p
	}
	return p.Include(o.Start).Include(o.End)
}

// Duration returns End - Start, or zero for the null period.
func (p Period) Duration() time.Duration {
	if p.IsNull() {
		return 0
	}
	return p.End.Sub(p.Start)
}

// Equal reports whether both endpoints denote the same instants.
func (p Period) Equal(o Period) bool {
	return p.Start.Equal(o.Start) && p.End.Equal(o.End)
}

func (p Period) String() string {
	if p.IsNull() {
		return "[null]"
	}
	return fmt.Sprintf("[%s, %s]", p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
}

type jsonPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MarshalJSON encodes the null period as null and any other period as
// {"start": ..., "end": ...} in RFC 3339.
func (p Period) MarshalJSON() ([]byte, error) {
	if p.IsNull() {
		return []byte("null"), nil
	}
	return json.Marshal(jsonPeriod{Start: p.Start, End: p.End})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (p *Period) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*p = Null()
		return nil
	}
	var jp jsonPeriod
	if err := json.Unmarshal(data, &jp); err != nil {
		return fmt.Errorf("period: %w", err)
	}
	*p = New(jp.Start, jp.End)
	return nil
}
