package macro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfold/riskpulse/models"
)

func label(s string) *string { return &s }

func testConfig() models.ScoringConfig {
	return models.ScoringConfig{
		Channels: map[models.Channel]models.ChannelConfig{
			models.ChannelEquities: {
				Weight:  0.35,
				Tickers: []string{"SPY"},
				ReasonLabels: map[string]*string{
					"1":  label("equities trending up"),
					"-1": label("equities in a downtrend"),
				},
			},
			models.ChannelCredit: {
				Weight:  0.25,
				Tickers: []string{"HYG", "LQD"},
				ReasonLabels: map[string]*string{
					"1":  label("credit appetite firm"),
					"-1": label("credit spreads widening"),
				},
			},
			models.ChannelVol: {
				Weight:  0.25,
				Tickers: []string{"VIXY", "SPY"},
				ReasonLabels: map[string]*string{
					"1":  label("volatility subdued"),
					"-1": label("volatility elevated"),
				},
			},
			models.ChannelUSD: {
				Weight:  0.1,
				Tickers: []string{"UUP"},
				ReasonLabels: map[string]*string{
					"-0.5": label("dollar tightening"),
					"0":    nil,
				},
			},
			models.ChannelOil: {
				Weight:  0.05,
				Tickers: []string{"USO"},
				ReasonLabels: map[string]*string{
					"-1": label("oil shock"),
					"0":  nil,
				},
			},
		},
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		score float64
		want  float64
	}{
		{0, 0},
		{0.375, 0.5},
		{-0.375, 0.5},
		{0.75, 1},
		{1.0, 1},
		{-2.0, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Confidence(tt.score), 1e-9, "score=%v", tt.score)
	}

	// Monotonically non-decreasing in |score|.
	prev := -1.0
	for s := 0.0; s <= 1.5; s += 0.01 {
		c := Confidence(s)
		assert.GreaterOrEqual(t, c, prev)
		prev = c
	}
}

func TestClassifyMode(t *testing.T) {
	tests := []struct {
		score float64
		want  models.MacroMode
	}{
		{0.25, models.RiskOn}, // inclusive boundary
		{0.2499, models.Mixed},
		{-0.25, models.RiskOff},
		{-0.2499, models.Mixed},
		{0, models.Mixed},
		{1, models.RiskOn},
		{-1, models.RiskOff},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyMode(tt.score), "score=%v", tt.score)
	}
}

func TestClassifyTransition(t *testing.T) {
	prior := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		current float64
		prior   *float64
		want    models.Transition
	}{
		{"improving", 0.30, prior(0.10), models.Improving},
		{"stable small delta", 0.30, prior(0.35), models.Stable},
		{"deteriorating", 0.30, prior(0.50), models.Deteriorating},
		{"exact positive threshold", 0.15, prior(0.0), models.Improving},
		{"exact negative threshold", -0.15, prior(0.0), models.Deteriorating},
		{"no prior defaults stable", 0.30, nil, models.Stable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTransition(tt.current, tt.prior))
		})
	}
}

func TestScoreKey(t *testing.T) {
	// Keys must be stable under the float artifacts the scorers produce.
	assert.Equal(t, "0.2", ScoreKey(0.6-0.4))
	assert.Equal(t, "-0.2", ScoreKey(-0.6+0.4))
	assert.Equal(t, "1", ScoreKey(0.6+0.4))
	assert.Equal(t, "-1", ScoreKey(-1))
	assert.Equal(t, "-0.5", ScoreKey(-0.5))
	assert.Equal(t, "0", ScoreKey(0))
}

func TestGlobalScoreDiscountsAbsentChannels(t *testing.T) {
	cfg := testConfig()
	scores := map[models.Channel]float64{
		models.ChannelEquities: 1,
		models.ChannelCredit:   -1,
		models.ChannelVol:      1,
		// USD and OIL absent: their weights contribute nothing.
	}
	assert.InDelta(t, 0.35, GlobalScore(cfg, scores), 1e-9)
}

func TestAggregateEndToEndScenario(t *testing.T) {
	cfg := testConfig()
	scores := map[models.Channel]float64{
		models.ChannelEquities: 1,
		models.ChannelCredit:   -1,
		models.ChannelVol:      1,
	}

	asOf := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	payload, err := Aggregate(cfg, scores, nil, asOf, "run-1")
	require.NoError(t, err)

	assert.InDelta(t, 0.35, payload.GlobalScore, 1e-9)
	assert.Equal(t, models.RiskOn, payload.MacroMode)
	assert.InDelta(t, 0.4667, payload.Confidence, 1e-4)
	assert.Equal(t, models.Stable, payload.Transition)
	assert.Equal(t, asOf, payload.AsOf)
	assert.Len(t, payload.ChannelScores, 3)
}

func TestAggregateIdempotence(t *testing.T) {
	cfg := testConfig()
	scores := map[models.Channel]float64{
		models.ChannelEquities: 0.2,
		models.ChannelCredit:   -1,
		models.ChannelUSD:      -0.5,
	}

	first, err := Aggregate(cfg, scores, nil, time.Now(), "run")
	require.NoError(t, err)
	second, err := Aggregate(cfg, scores, nil, first.AsOf, "run")
	require.NoError(t, err)

	assert.Equal(t, first.GlobalScore, second.GlobalScore)
	assert.Equal(t, first.MacroMode, second.MacroMode)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.Reasons, second.Reasons)
}

func TestAggregateRejectsEmptyConfig(t *testing.T) {
	_, err := Aggregate(models.ScoringConfig{}, nil, nil, time.Now(), "run")
	require.Error(t, err)

	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSelectReasons(t *testing.T) {
	cfg := testConfig()

	t.Run("caps at two reasons", func(t *testing.T) {
		scores := map[models.Channel]float64{
			models.ChannelEquities: 1,
			models.ChannelCredit:   1,
			models.ChannelVol:      1,
		}
		reasons := SelectReasons(cfg, scores, models.RiskOn, models.Stable)
		require.Len(t, reasons, 2)
		// Largest contribution first: equities (0.35), then credit/vol (0.25).
		assert.Equal(t, "equities trending up", reasons[0])
	})

	t.Run("risk-off prefers negative contributions", func(t *testing.T) {
		scores := map[models.Channel]float64{
			models.ChannelEquities: 1,  // +0.35, largest in magnitude
			models.ChannelCredit:   -1, // -0.25
			models.ChannelOil:      -1, // -0.05
		}
		reasons := SelectReasons(cfg, scores, models.RiskOff, models.Stable)
		require.Len(t, reasons, 2)
		assert.Equal(t, "credit spreads widening", reasons[0])
		assert.Equal(t, "oil shock", reasons[1])
	})

	t.Run("falls back to full ranking when nothing is negative", func(t *testing.T) {
		scores := map[models.Channel]float64{
			models.ChannelEquities: 1,
			models.ChannelVol:      1,
		}
		reasons := SelectReasons(cfg, scores, models.RiskOff, models.Stable)
		require.Len(t, reasons, 2)
		assert.Equal(t, "equities trending up", reasons[0])
	})

	t.Run("skips null labels", func(t *testing.T) {
		scores := map[models.Channel]float64{
			models.ChannelUSD: 0, // label configured as null
			models.ChannelOil: 0, // label configured as null
		}
		reasons := SelectReasons(cfg, scores, models.Mixed, models.Stable)
		assert.Empty(t, reasons)
	})

	t.Run("skips unconfigured score values", func(t *testing.T) {
		scores := map[models.Channel]float64{
			models.ChannelEquities: 0.2, // no label for 0.2 in testConfig
			models.ChannelCredit:   1,
		}
		reasons := SelectReasons(cfg, scores, models.Mixed, models.Stable)
		require.Len(t, reasons, 1)
		assert.Equal(t, "credit appetite firm", reasons[0])
	})
}
