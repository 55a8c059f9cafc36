package exposure

import (
	"fmt"
	"time"

	"github.com/quantfold/riskpulse/models"
)

// MissingPriceError reports a held position whose price could not be
// resolved. Held tickers are never silently dropped from the valuation.
type MissingPriceError struct {
	Ticker string
	Date   time.Time
}

func (e *MissingPriceError) Error() string {
	return fmt.Sprintf("no price for held ticker %s on or before %s", e.Ticker, e.Date.Format("2006-01-02"))
}

// snapshotOnOrBefore picks the latest snapshot dated on or before date.
func snapshotOnOrBefore(snapshots []models.PortfolioSnapshot, date time.Time) (models.PortfolioSnapshot, bool) {
	var (
		best  models.PortfolioSnapshot
		found bool
	)
	for _, snap := range snapshots {
		if snap.Date.After(date) {
			continue
		}
		if !found || snap.Date.After(best.Date) {
			best = snap
			found = true
		}
	}
	return best, found
}

// valueOn computes the portfolio value on one date: the applicable
// snapshot's cash plus each position at its last known price. Prices carry
// forward without a staleness cutoff.
func valueOn(date time.Time, snapshots []models.PortfolioSnapshot, prices map[string]models.PriceSeries) (float64, bool, error) {
	snap, ok := snapshotOnOrBefore(snapshots, date)
	if !ok {
		return 0, false, nil
	}

	value := snap.CashBalance
	for _, pos := range snap.Positions {
		series, ok := prices[pos.Ticker]
		if !ok {
			return 0, false, &MissingPriceError{Ticker: pos.Ticker, Date: date}
		}
		price, ok := series.CloseOnOrBefore(date)
		if !ok {
			return 0, false, &MissingPriceError{Ticker: pos.Ticker, Date: date}
		}
		value += pos.Quantity * price
	}
	return value, true, nil
}

// valuationSeries values the portfolio on every calendar date that has an
// applicable snapshot, returning the surviving dates alongside the values.
func valuationSeries(calendar []time.Time, snapshots []models.PortfolioSnapshot, prices map[string]models.PriceSeries) ([]time.Time, []float64, error) {
	var (
		dates  []time.Time
		values []float64
	)
	for _, date := range calendar {
		value, ok, err := valueOn(date, snapshots, prices)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		dates = append(dates, date)
		values = append(values, value)
	}
	return dates, values, nil
}

// dailyReturns derives simple returns from consecutive values;
// dailyReturns(v)[i-1] is the return ending on the i-th date.
func dailyReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		returns[i-1] = values[i]/values[i-1] - 1
	}
	return returns
}

// carriedCloses resolves a series on the given calendar with carry-forward.
// The mask marks dates before the series' first observation.
func carriedCloses(calendar []time.Time, series models.PriceSeries) ([]float64, []bool) {
	values := make([]float64, len(calendar))
	ok := make([]bool, len(calendar))
	for i, date := range calendar {
		values[i], ok[i] = series.CloseOnOrBefore(date)
	}
	return values, ok
}

// pairedReturns aligns portfolio returns with a proxy's returns on the same
// calendar, emitting only pairs where the proxy was defined on both ends.
// portfolioReturns[i-1] must be the return ending on calendar[i].
func pairedReturns(calendar []time.Time, portfolioReturns []float64, proxy models.PriceSeries) (x, y []float64) {
	proxyValues, defined := carriedCloses(calendar, proxy)
	for i := 1; i < len(calendar); i++ {
		if !defined[i] || !defined[i-1] {
			continue
		}
		x = append(x, proxyValues[i]/proxyValues[i-1]-1)
		y = append(y, portfolioReturns[i-1])
	}
	return x, y
}
