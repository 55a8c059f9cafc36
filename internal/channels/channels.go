// Package channels scores each macro risk channel from its proxy price
// series. Scorers are registered in a static table so new channels are
// additive; every scorer is a pure function with the uniform signature
// (proxy tickers, series by ticker) -> (score, ok). A false ok means the
// channel had no usable signal and is omitted from the result map, which is
// distinct from a neutral zero score.
package channels

import (
	"sort"

	"github.com/quantfold/riskpulse/models"
)

// ScoreFunc scores one channel from its configured proxy tickers. Scores are
// clamped to [-1, 1]; ok is false when required data is missing.
type ScoreFunc func(tickers []string, series map[string]models.PriceSeries) (float64, bool)

var registry = map[models.Channel]ScoreFunc{
	models.ChannelEquities: scoreEquities,
	models.ChannelCredit:   scoreCredit,
	models.ChannelVol:      scoreVol,
	models.ChannelUSD:      scoreUSD,
	models.ChannelOil:      scoreOil,
}

// Scorer returns the registered scoring function for a channel.
func Scorer(channel models.Channel) (ScoreFunc, bool) {
	fn, ok := registry[channel]
	return fn, ok
}

// Evaluate scores every configured channel that has a registered scorer and
// enough proxy data. Channels without a usable signal are absent from the
// result, never defaulted.
func Evaluate(cfg models.ScoringConfig, series map[string]models.PriceSeries) map[models.Channel]float64 {
	scores := make(map[models.Channel]float64, len(cfg.Channels))
	for channel, chCfg := range cfg.Channels {
		fn, ok := registry[channel]
		if !ok {
			continue
		}
		if score, ok := fn(chCfg.Tickers, series); ok {
			scores[channel] = score
		}
	}
	return scores
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
