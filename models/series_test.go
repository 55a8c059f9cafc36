package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func makeSeries(t *testing.T, n int, closeAt func(i int) float64) PriceSeries {
	t.Helper()
	points := make([]PricePoint, n)
	for i := 0; i < n; i++ {
		points[i] = PricePoint{Date: day(i), Close: closeAt(i)}
	}
	series, err := NewPriceSeries(points)
	require.NoError(t, err)
	return series
}

func TestNewPriceSeries(t *testing.T) {
	t.Run("sorts by date", func(t *testing.T) {
		series, err := NewPriceSeries([]PricePoint{
			{Date: day(2), Close: 102},
			{Date: day(0), Close: 100},
			{Date: day(1), Close: 101},
		})
		require.NoError(t, err)
		assert.Equal(t, []float64{100, 101, 102}, series.Closes())
	})

	t.Run("rejects duplicate dates", func(t *testing.T) {
		_, err := NewPriceSeries([]PricePoint{
			{Date: day(0), Close: 100},
			{Date: day(0), Close: 101},
		})
		assert.Error(t, err)
	})

	t.Run("rejects non-positive closes", func(t *testing.T) {
		_, err := NewPriceSeries([]PricePoint{{Date: day(0), Close: 0}})
		assert.Error(t, err)
	})
}

func TestCloseOnOrBefore(t *testing.T) {
	series, err := NewPriceSeries([]PricePoint{
		{Date: day(0), Close: 100},
		{Date: day(1), Close: 101},
		{Date: day(4), Close: 104},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		date  time.Time
		want  float64
		found bool
	}{
		{"exact date", day(1), 101, true},
		{"carries forward over a gap", day(3), 101, true},
		{"after last observation", day(10), 104, true},
		{"before first observation", day(-1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := series.CloseOnOrBefore(tt.date)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncateSessions(t *testing.T) {
	series := makeSeries(t, 10, func(i int) float64 { return 100 + float64(i) })

	assert.Equal(t, 7, series.TruncateSessions(3).Len())
	assert.Equal(t, 10, series.TruncateSessions(0).Len())
	assert.Equal(t, 0, series.TruncateSessions(10).Len())
	assert.Equal(t, 0, series.TruncateSessions(15).Len())

	truncated := series.TruncateSessions(3)
	last, ok := truncated.Last()
	require.True(t, ok)
	assert.Equal(t, 106.0, last)
}

func TestDailyReturns(t *testing.T) {
	series := makeSeries(t, 3, func(i int) float64 { return []float64{100, 110, 99}[i] })

	returns := series.DailyReturns()
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-12)
	assert.InDelta(t, -0.10, returns[1], 1e-12)

	assert.Nil(t, PriceSeries{}.DailyReturns())
}

func TestIntersect(t *testing.T) {
	a, err := NewPriceSeries([]PricePoint{
		{Date: day(0), Close: 10},
		{Date: day(1), Close: 11},
		{Date: day(3), Close: 13},
	})
	require.NoError(t, err)
	b, err := NewPriceSeries([]PricePoint{
		{Date: day(1), Close: 21},
		{Date: day(2), Close: 22},
		{Date: day(3), Close: 23},
	})
	require.NoError(t, err)

	dates, aCloses, bCloses := Intersect(a, b)
	require.Len(t, dates, 2)
	assert.Equal(t, []time.Time{day(1), day(3)}, dates)
	assert.Equal(t, []float64{11, 13}, aCloses)
	assert.Equal(t, []float64{21, 23}, bCloses)
}

func TestUnionCalendar(t *testing.T) {
	series := map[string]PriceSeries{
		"A": makeSeries(t, 5, func(i int) float64 { return 100 }),
	}
	b, err := NewPriceSeries([]PricePoint{
		{Date: day(3), Close: 50},
		{Date: day(7), Close: 51},
	})
	require.NoError(t, err)
	series["B"] = b

	calendar := UnionCalendar(series, day(1), day(7))
	assert.Equal(t, []time.Time{day(1), day(2), day(3), day(4), day(7)}, calendar)
}
