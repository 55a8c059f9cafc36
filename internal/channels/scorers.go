package channels

import (
	"github.com/quantfold/riskpulse/internal/features"
	"github.com/quantfold/riskpulse/models"
)

const (
	// volFloor is the volatility-index level below which an elevated
	// reading is still treated as benign.
	volFloor = 18.0

	// oilShockPct is the 20-session momentum beyond which oil is treated
	// as a supply shock.
	oilShockPct = 8.0

	minCreditObservations = 50
	minVolObservations    = 20
	minVolFallbackWindow  = 252
)

// scoreEquities combines the price-versus-MA200 trend signal with the
// 60-session momentum sign: 0.6*sign(last > ma200) + 0.4*sign(mom60 > 0).
// tickers[0] is the broad-market proxy.
func scoreEquities(tickers []string, series map[string]models.PriceSeries) (float64, bool) {
	if len(tickers) < 1 {
		return 0, false
	}
	s, ok := series[tickers[0]]
	if !ok {
		return 0, false
	}
	set, err := features.Compute(s)
	if err != nil {
		return 0, false
	}
	if !set.Last.Valid || !set.MA200.Valid || !set.Mom60.Valid {
		return 0, false
	}

	score := 0.0
	if set.Last.Float64 > set.MA200.Float64 {
		score += 0.6
	} else {
		score -= 0.6
	}
	if set.Mom60.Float64 > 0 {
		score += 0.4
	} else {
		score -= 0.4
	}
	return clamp(score), true
}

// scoreCredit compares the high-yield/investment-grade ratio to its own
// 50-session moving average. tickers[0] is the HY proxy, tickers[1] the IG
// proxy; the ratio is built on the intersection of both series' dates.
func scoreCredit(tickers []string, series map[string]models.PriceSeries) (float64, bool) {
	if len(tickers) < 2 {
		return 0, false
	}
	hy, okHY := series[tickers[0]]
	ig, okIG := series[tickers[1]]
	if !okHY || !okIG {
		return 0, false
	}

	_, hyCloses, igCloses := models.Intersect(hy, ig)
	if len(hyCloses) < minCreditObservations {
		return 0, false
	}

	ratio := make([]float64, len(hyCloses))
	for i := range hyCloses {
		ratio[i] = hyCloses[i] / igCloses[i]
	}

	ma, ok := features.SMA(ratio, minCreditObservations)
	if !ok {
		return 0, false
	}
	if ratio[len(ratio)-1] > ma {
		return 1, true
	}
	return -1, true
}

// scoreVol reads the volatility index when available: risk-off when the
// level is both above its 20-session MA and above the fixed floor.
// tickers[0] is the volatility index; the optional tickers[1] is an equities
// proxy used as fallback, comparing current 20-session realized volatility
// to its trailing one-year median.
func scoreVol(tickers []string, series map[string]models.PriceSeries) (float64, bool) {
	if len(tickers) >= 1 {
		if vix, ok := series[tickers[0]]; ok && vix.Len() >= minVolObservations {
			closes := vix.Closes()
			level := closes[len(closes)-1]
			ma, ok := features.SMA(closes, minVolObservations)
			if !ok {
				return 0, false
			}
			if level > ma && level > volFloor {
				return -1, true
			}
			return 1, true
		}
	}

	if len(tickers) < 2 {
		return 0, false
	}
	proxy, ok := series[tickers[1]]
	if !ok || proxy.Len() < minVolFallbackWindow {
		return 0, false
	}

	closes := proxy.Closes()
	var rolling []float64
	for end := minVolObservations + 1; end <= len(closes); end++ {
		if vol, ok := features.RealizedVol(closes[:end], minVolObservations); ok {
			rolling = append(rolling, vol)
		}
	}
	if len(rolling) == 0 {
		return 0, false
	}
	if len(rolling) > minVolFallbackWindow {
		rolling = rolling[len(rolling)-minVolFallbackWindow:]
	}

	current := rolling[len(rolling)-1]
	if current > median(rolling) {
		return -1, true
	}
	return 1, true
}

// scoreUSD flags dollar tightening only: -0.5 when 20-session momentum is
// positive and price sits above its 50-session MA, else 0. Never positive.
func scoreUSD(tickers []string, series map[string]models.PriceSeries) (float64, bool) {
	if len(tickers) < 1 {
		return 0, false
	}
	s, ok := series[tickers[0]]
	if !ok {
		return 0, false
	}

	closes := s.Closes()
	mom, okMom := features.MomentumPct(closes, 20)
	ma, okMA := features.SMA(closes, 50)
	if !okMom || !okMA {
		return 0, false
	}
	if mom > 0 && closes[len(closes)-1] > ma {
		return -0.5, true
	}
	return 0, true
}

// scoreOil flags supply shocks only: -1 when 20-session momentum exceeds
// the shock threshold, else 0. Never positive.
func scoreOil(tickers []string, series map[string]models.PriceSeries) (float64, bool) {
	if len(tickers) < 1 {
		return 0, false
	}
	s, ok := series[tickers[0]]
	if !ok {
		return 0, false
	}

	mom, okMom := features.MomentumPct(s.Closes(), 20)
	if !okMom {
		return 0, false
	}
	if mom > oilShockPct {
		return -1, true
	}
	return 0, true
}

func clamp(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
