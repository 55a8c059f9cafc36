package macro

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/riskpulse/models"
)

type fakeProvider struct {
	series map[string]models.PriceSeries
}

func (p *fakeProvider) GetDailySeries(_ context.Context, ticker string, _, _ time.Time) (models.PriceSeries, error) {
	s, ok := p.series[ticker]
	if !ok {
		return models.PriceSeries{}, errors.New("no data for " + ticker)
	}
	return s, nil
}

func rampSeries(t *testing.T, n int, start, step float64) models.PriceSeries {
	t.Helper()
	points := make([]models.PricePoint, n)
	for i := 0; i < n; i++ {
		points[i] = models.PricePoint{
			Date:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Close: start + float64(i)*step,
		}
	}
	series, err := models.NewPriceSeries(points)
	require.NoError(t, err)
	return series
}

func singleChannelConfig() models.ScoringConfig {
	up := "equities trending up"
	return models.ScoringConfig{
		Channels: map[models.Channel]models.ChannelConfig{
			models.ChannelEquities: {
				Weight:       1,
				Tickers:      []string{"SPY"},
				ReasonLabels: map[string]*string{"1": &up},
			},
		},
	}
}

func TestRunnerFullPipeline(t *testing.T) {
	provider := &fakeProvider{series: map[string]models.PriceSeries{
		"SPY": rampSeries(t, 300, 100, 1),
	}}

	payload, err := NewRunner(provider).Run(context.Background(), singleChannelConfig(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.RiskOn, payload.MacroMode)
	assert.InDelta(t, 1.0, payload.GlobalScore, 1e-9)
	assert.InDelta(t, 1.0, payload.Confidence, 1e-9)
	// The truncated rerun scores identically, so the regime is stable.
	assert.Equal(t, models.Stable, payload.Transition)
	assert.Equal(t, []string{"equities trending up"}, payload.Reasons)
	assert.NotEmpty(t, payload.RunID)
}

func TestRunnerUnavailableTickerOmitsChannel(t *testing.T) {
	provider := &fakeProvider{series: map[string]models.PriceSeries{}}

	payload, err := NewRunner(provider).Run(context.Background(), singleChannelConfig(), time.Now())
	require.NoError(t, err)

	assert.Empty(t, payload.ChannelScores)
	assert.Equal(t, models.Mixed, payload.MacroMode)
	assert.Equal(t, 0.0, payload.GlobalScore)
	assert.Equal(t, models.Stable, payload.Transition)
}

func TestRunnerRejectsEmptyConfig(t *testing.T) {
	provider := &fakeProvider{}

	_, err := NewRunner(provider).Run(context.Background(), models.ScoringConfig{}, time.Now())
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
