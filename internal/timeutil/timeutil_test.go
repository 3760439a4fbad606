package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHHMM(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:00", 540, false},
		{"16:15", 975, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"9am", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseHHMM(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "09:00", FormatMinutes(540))
	assert.Equal(t, "16:15", FormatMinutes(975))
	assert.Equal(t, "00:05", FormatMinutes(5))
}

func TestOnDate(t *testing.T) {
	loc, err := time.LoadLocation("America/Puerto_Rico")
	require.NoError(t, err)

	date := time.Date(2024, 3, 4, 0, 0, 0, 0, loc)
	got := OnDate(date, 540, loc)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 0, 0, 0, loc), got)
	assert.Equal(t, "America/Puerto_Rico", got.Location().String())
}

func TestIntervalOverlaps(t *testing.T) {
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
	mk := func(startMin, endMin int) Interval {
		return Interval{
			Start: base.Add(time.Duration(startMin) * time.Minute),
			End:   base.Add(time.Duration(endMin) * time.Minute),
		}
	}

	assert.True(t, mk(0, 30).Overlaps(mk(15, 45)))
	assert.True(t, mk(0, 60).Overlaps(mk(15, 30)))
	// Touching intervals do not overlap.
	assert.False(t, mk(0, 30).Overlaps(mk(30, 60)))
	assert.False(t, mk(30, 60).Overlaps(mk(0, 30)))
	assert.False(t, mk(0, 30).Overlaps(mk(45, 60)))
}

func TestMergeSpans(t *testing.T) {
	tests := []struct {
		name string
		in   []Span
		want []Span
	}{
		{"empty", nil, nil},
		{"single", []Span{{540, 1020}}, []Span{{540, 1020}}},
		{
			"split shift stays split",
			[]Span{{540, 720}, {840, 1080}},
			[]Span{{540, 720}, {840, 1080}},
		},
		{
			"duplicates collapse",
			[]Span{{540, 1020}, {540, 1020}},
			[]Span{{540, 1020}},
		},
		{
			"overlapping merge",
			[]Span{{540, 780}, {720, 1020}},
			[]Span{{540, 1020}},
		},
		{
			"touching merge",
			[]Span{{540, 720}, {720, 900}},
			[]Span{{540, 900}},
		},
		{
			"unsorted input",
			[]Span{{840, 1080}, {540, 720}},
			[]Span{{540, 720}, {840, 1080}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeSpans(tt.in))
		})
	}
}
