package features

import (
	"errors"
	"math"

	"github.com/quantfold/riskpulse/models"
)

// MinObservations is the series length below which no feature set is
// produced at all.
const MinObservations = 60

// TradingDaysPerYear is the annualization factor for realized volatility.
const TradingDaysPerYear = 252

// ErrInsufficientData signals fewer observations than a computation's
// stated minimum.
var ErrInsufficientData = errors.New("insufficient data")

// Value is an explicit optional indicator value, mirroring sql.NullFloat64.
// Consumers must branch on Valid; an unmet window is never reported as zero.
type Value struct {
	Float64 float64
	Valid   bool
}

func defined(v float64) Value {
	return Value{Float64: v, Valid: true}
}

// Set holds the indicators derived from one price series at a single
// evaluation instant. Each field checks its own minimum window and is
// undefined (Valid=false) when unmet.
type Set struct {
	Last          Value
	MA50          Value
	MA200         Value
	Mom20         Value
	Mom60         Value
	RealizedVol20 Value
}

// Compute derives the feature set for a price series. Series shorter than
// MinObservations return ErrInsufficientData rather than a partial set.
// Pure function of its input: no I/O, no shared state.
func Compute(series models.PriceSeries) (Set, error) {
	if series.Len() < MinObservations {
		return Set{}, ErrInsufficientData
	}

	closes := series.Closes()
	set := Set{
		Last: defined(closes[len(closes)-1]),
	}

	if ma, ok := SMA(closes, 50); ok {
		set.MA50 = defined(ma)
	}
	if ma, ok := SMA(closes, 200); ok {
		set.MA200 = defined(ma)
	}
	if mom, ok := MomentumPct(closes, 20); ok {
		set.Mom20 = defined(mom)
	}
	if mom, ok := MomentumPct(closes, 60); ok {
		set.Mom60 = defined(mom)
	}
	if vol, ok := RealizedVol(closes, 20); ok {
		set.RealizedVol20 = defined(vol)
	}

	return set, nil
}

// SMA is the simple moving average of the trailing period values.
func SMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}
	var sum float64
	for i := len(closes) - period; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(period), true
}

// MomentumPct is the percent change of the last close versus the close
// sessions trading sessions back. Needs sessions+1 observations.
func MomentumPct(closes []float64, sessions int) (float64, bool) {
	if sessions <= 0 || len(closes) < sessions+1 {
		return 0, false
	}
	base := closes[len(closes)-1-sessions]
	last := closes[len(closes)-1]
	return (last - base) / base * 100, true
}

// RealizedVol is the annualized standard deviation of the trailing period
// daily returns. Needs period+1 observations.
func RealizedVol(closes []float64, period int) (float64, bool) {
	if period < 2 || len(closes) < period+1 {
		return 0, false
	}

	window := closes[len(closes)-period-1:]
	returns := make([]float64, period)
	for i := 1; i < len(window); i++ {
		returns[i-1] = window[i]/window[i-1] - 1
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(period)

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(period)

	return math.Sqrt(variance) * math.Sqrt(TradingDaysPerYear), true
}
