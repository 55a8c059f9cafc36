package config

import (
	"fmt"
	"math"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/quantfold/riskpulse/models"
)

// weightSumTolerance bounds how far the active channel weights may drift
// from summing to exactly 1.
const weightSumTolerance = 1e-6

type channelsFile struct {
	Channels     map[models.Channel]models.ChannelConfig `yaml:"channels" validate:"min=1,dive"`
	HistoryYears int                                     `yaml:"history_years" default:"2" validate:"gte=1"`
}

// LoadChannels reads the channel table from a YAML file, or returns the
// built-in defaults when path is empty. Weights must be nonnegative and sum
// to 1 across the configured channels.
func LoadChannels(path string) (models.ScoringConfig, error) {
	if path == "" {
		return DefaultChannels(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return models.ScoringConfig{}, fmt.Errorf("reading channel config: %w", err)
	}

	var file channelsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return models.ScoringConfig{}, fmt.Errorf("parsing channel config: %w", err)
	}
	if err := defaults.Set(&file); err != nil {
		return models.ScoringConfig{}, fmt.Errorf("applying config defaults: %w", err)
	}
	if err := validator.New().Struct(&file); err != nil {
		return models.ScoringConfig{}, fmt.Errorf("validating channel config: %w", err)
	}

	cfg := models.ScoringConfig{Channels: file.Channels, HistoryYears: file.HistoryYears}
	if err := checkWeights(cfg); err != nil {
		return models.ScoringConfig{}, err
	}
	return cfg, nil
}

func checkWeights(cfg models.ScoringConfig) error {
	var sum float64
	for channel, chCfg := range cfg.Channels {
		if chCfg.Weight < 0 {
			return fmt.Errorf("channel %s has negative weight %f", channel, chCfg.Weight)
		}
		sum += chCfg.Weight
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("channel weights sum to %f, want 1", sum)
	}
	return nil
}

// DefaultChannels is the built-in channel table: broad-market equities,
// high-yield versus investment-grade credit, the VIX with an equities
// fallback, the dollar index and oil.
func DefaultChannels() models.ScoringConfig {
	label := func(s string) *string { return &s }

	return models.ScoringConfig{
		HistoryYears: 2,
		Channels: map[models.Channel]models.ChannelConfig{
			models.ChannelEquities: {
				Weight:  0.35,
				Tickers: []string{"SPY"},
				ReasonLabels: map[string]*string{
					"1":    label("Equities trending above the 200-day average"),
					"0.2":  label("Equities above trend but losing momentum"),
					"-0.2": label("Equities below trend with positive momentum"),
					"-1":   label("Equities in a downtrend with negative momentum"),
				},
			},
			models.ChannelCredit: {
				Weight:  0.25,
				Tickers: []string{"HYG", "LQD"},
				ReasonLabels: map[string]*string{
					"1":  label("Credit risk appetite firm (HY outperforming IG)"),
					"-1": label("Credit spreads widening (HY lagging IG)"),
				},
			},
			models.ChannelVol: {
				Weight:  0.25,
				Tickers: []string{"VIXY", "SPY"},
				ReasonLabels: map[string]*string{
					"1":  label("Volatility subdued"),
					"-1": label("Volatility elevated and rising"),
				},
			},
			models.ChannelUSD: {
				Weight:  0.1,
				Tickers: []string{"UUP"},
				ReasonLabels: map[string]*string{
					"-0.5": label("Dollar strength tightening global conditions"),
					"0":    nil,
				},
			},
			models.ChannelOil: {
				Weight:  0.05,
				Tickers: []string{"USO"},
				ReasonLabels: map[string]*string{
					"-1": label("Oil price shock"),
					"0":  nil,
				},
			},
		},
	}
}
