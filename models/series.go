package models

import (
	"fmt"
	"sort"
	"time"
)

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is an ordered daily close series for a single ticker.
// Dates are strictly increasing; missing trading days are simply absent.
type PriceSeries struct {
	Points []PricePoint `json:"points"`
}

// NewPriceSeries builds a series from points, sorting by date and rejecting
// duplicate dates and non-positive closes.
func NewPriceSeries(points []PricePoint) (PriceSeries, error) {
	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	for i, p := range sorted {
		if p.Close <= 0 {
			return PriceSeries{}, fmt.Errorf("non-positive close %.4f at %s", p.Close, p.Date.Format("2006-01-02"))
		}
		if i > 0 && !sorted[i-1].Date.Before(p.Date) {
			return PriceSeries{}, fmt.Errorf("duplicate date %s", p.Date.Format("2006-01-02"))
		}
	}

	return PriceSeries{Points: sorted}, nil
}

// Len returns the number of observations.
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Closes returns the close values in date order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Last returns the most recent close.
func (s PriceSeries) Last() (float64, bool) {
	if len(s.Points) == 0 {
		return 0, false
	}
	return s.Points[len(s.Points)-1].Close, true
}

// CloseOnOrBefore returns the last known close on or before date
// (carry-forward lookup). False when the series starts after date.
func (s PriceSeries) CloseOnOrBefore(date time.Time) (float64, bool) {
	// First index strictly after date.
	idx := sort.Search(len(s.Points), func(i int) bool {
		return s.Points[i].Date.After(date)
	})
	if idx == 0 {
		return 0, false
	}
	return s.Points[idx-1].Close, true
}

// TruncateSessions drops the trailing n trading sessions.
func (s PriceSeries) TruncateSessions(n int) PriceSeries {
	if n <= 0 {
		return s
	}
	if n >= len(s.Points) {
		return PriceSeries{}
	}
	return PriceSeries{Points: s.Points[:len(s.Points)-n]}
}

// DailyReturns returns simple returns between consecutive observations.
func (s PriceSeries) DailyReturns() []float64 {
	if len(s.Points) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(s.Points)-1)
	for i := 1; i < len(s.Points); i++ {
		returns = append(returns, s.Points[i].Close/s.Points[i-1].Close-1)
	}
	return returns
}

// Intersect aligns two series on their common dates and returns the paired
// close values in date order.
func Intersect(a, b PriceSeries) (dates []time.Time, aCloses, bCloses []float64) {
	byDate := make(map[time.Time]float64, len(b.Points))
	for _, p := range b.Points {
		byDate[p.Date] = p.Close
	}
	for _, p := range a.Points {
		if bc, ok := byDate[p.Date]; ok {
			dates = append(dates, p.Date)
			aCloses = append(aCloses, p.Close)
			bCloses = append(bCloses, bc)
		}
	}
	return dates, aCloses, bCloses
}

// UnionCalendar merges the trading dates of all series, keeping only dates
// within [from, to], sorted ascending.
func UnionCalendar(series map[string]PriceSeries, from, to time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	for _, s := range series {
		for _, p := range s.Points {
			if p.Date.Before(from) || p.Date.After(to) {
				continue
			}
			seen[p.Date] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
