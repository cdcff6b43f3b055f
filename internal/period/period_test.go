package period

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(sec int) time.Time {
	return time.Date(2018, 3, 23, 21, 15, sec, 0, time.UTC)
}

func TestNull(t *testing.T) {
	t.Parallel()
	p := Null()
	assert.True(t, p.IsNull())
	assert.False(t, p.Contains(ts(0)))
	assert.Zero(t, p.Duration())
	assert.Equal(t, "[null]", p.String())
}

func TestContains_Inclusive(t *testing.T) {
	t.Parallel()
	p := New(ts(25), ts(42))

	assert.True(t, p.Contains(ts(25)))
	assert.True(t, p.Contains(ts(30)))
	assert.True(t, p.Contains(ts(42)))
	assert.False(t, p.Contains(ts(24)))
	assert.False(t, p.Contains(ts(43)))
}

func TestContains_InvertedIsEmpty(t *testing.T) {
	t.Parallel()
	p := New(ts(44), ts(23))
	for sec := 20; sec < 50; sec++ {
		assert.False(t, p.Contains(ts(sec)))
	}
}

func TestInclude(t *testing.T) {
	t.Parallel()

	p := Null().Include(ts(30))
	assert.True(t, p.Equal(At(ts(30))))

	p = p.Include(ts(25)).Include(ts(40)).Include(ts(33))
	assert.True(t, p.Equal(New(ts(25), ts(40))))
	assert.Equal(t, 15*time.Second, p.Duration())
}

func TestUnion(t *testing.T) {
	t.Parallel()
	a := New(ts(10), ts(20))
	b := New(ts(15), ts(30))

	tests := []struct {
		name string
		got  Period
		want Period
	}{
		{"overlapping", a.Union(b), New(ts(10), ts(30))},
		{"null left", Null().Union(a), a},
		{"null right", a.Union(Null()), a},
		{"null both", Null().Union(Null()), Null()},
		{"disjoint", New(ts(0), ts(1)).Union(New(ts(50), ts(59))), New(ts(0), ts(59))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(tt.got), "got %s, want %s", tt.got, tt.want)
		})
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(Null())
	require.NoError(t, err)
	assert.Equal(t, "null", string(b))

	p := New(ts(25), ts(42))
	b, err = json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2018-03-23T21:15:25Z","end":"2018-03-23T21:15:42Z"}`, string(b))

	var back Period
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, back.Equal(p))

	back = p
	require.NoError(t, json.Unmarshal([]byte("null"), &back))
	assert.True(t, back.IsNull())

	assert.Error(t, json.Unmarshal([]byte(`{"start":"yesterday"}`), &back))
}

func TestJSON_InStruct(t *testing.T) {
	t.Parallel()
	type wrapper struct {
		P Period `json:"p"`
	}
	b, err := json.Marshal(wrapper{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":null}`, string(b))
}
