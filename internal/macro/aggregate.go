// Package macro aggregates per-channel scores into the global macro risk
// payload: weighted sum, regime classification, confidence, transition
// versus the prior window, and ranked reason attribution.
package macro

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/quantfold/riskpulse/models"
)

const (
	// riskOnThreshold and its negation split the score range into
	// RISK_ON / MIXED / RISK_OFF. Fixed in this version.
	riskOnThreshold = 0.25

	// confidenceSaturation is the |score| at which confidence reaches 1.
	confidenceSaturation = 0.75

	// transitionDelta is the score move over the transition window that
	// counts as improving or deteriorating.
	transitionDelta = 0.15

	// TransitionLookbackSessions is how many trading sessions the prior
	// score is computed behind the current one.
	TransitionLookbackSessions = 10

	maxReasons = 2
)

// ConfigError reports missing or malformed channel configuration. It aborts
// the scoring run; nothing partial is persisted.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid channel configuration: " + e.Reason
}

// ValidateConfig rejects configurations the aggregator cannot score.
func ValidateConfig(cfg models.ScoringConfig) error {
	if len(cfg.Channels) == 0 {
		return &ConfigError{Reason: "no channels configured"}
	}
	for channel, chCfg := range cfg.Channels {
		if chCfg.Weight < 0 {
			return &ConfigError{Reason: fmt.Sprintf("negative weight for %s", channel)}
		}
		if len(chCfg.Tickers) == 0 {
			return &ConfigError{Reason: fmt.Sprintf("no tickers for %s", channel)}
		}
	}
	return nil
}

// GlobalScore is the weighted sum of channel scores. A configured channel
// absent from the score map contributes 0, so its weight is discounted.
func GlobalScore(cfg models.ScoringConfig, scores map[models.Channel]float64) float64 {
	var total float64
	for channel, chCfg := range cfg.Channels {
		if score, ok := scores[channel]; ok {
			total += chCfg.Weight * score
		}
	}
	return total
}

// ClassifyMode maps a global score to the discrete regime. Boundaries are
// inclusive: exactly 0.25 is RISK_ON, exactly -0.25 is RISK_OFF.
func ClassifyMode(globalScore float64) models.MacroMode {
	switch {
	case globalScore >= riskOnThreshold:
		return models.RiskOn
	case globalScore <= -riskOnThreshold:
		return models.RiskOff
	default:
		return models.Mixed
	}
}

// Confidence ramps linearly in |globalScore| and saturates at 1.
func Confidence(globalScore float64) float64 {
	return math.Min(1, math.Abs(globalScore)/confidenceSaturation)
}

// ClassifyTransition compares the current global score to the score computed
// ten sessions earlier. A nil prior defaults to STABLE.
func ClassifyTransition(current float64, prior *float64) models.Transition {
	if prior == nil {
		return models.Stable
	}
	delta := current - *prior
	switch {
	case delta >= transitionDelta:
		return models.Improving
	case delta <= -transitionDelta:
		return models.Deteriorating
	default:
		return models.Stable
	}
}

// ScoreKey formats a score value the way reason-label tables are keyed,
// e.g. "1", "-0.5", "0.2".
func ScoreKey(score float64) string {
	return strconv.FormatFloat(score, 'g', 4, 64)
}

type contribution struct {
	channel models.Channel
	score   float64
	value   float64
}

// SelectReasons ranks channel contributions by absolute magnitude and emits
// up to two configured labels. In a risk-off regime or a deteriorating
// transition, negative contributions are preferred; the full ranking is the
// fallback when none are negative. Channels whose label for the realized
// score is absent or null are skipped.
func SelectReasons(cfg models.ScoringConfig, scores map[models.Channel]float64, mode models.MacroMode, transition models.Transition) []string {
	ranked := make([]contribution, 0, len(scores))
	for channel, score := range scores {
		chCfg, ok := cfg.Channels[channel]
		if !ok {
			continue
		}
		ranked = append(ranked, contribution{
			channel: channel,
			score:   score,
			value:   chCfg.Weight * score,
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		ai, aj := math.Abs(ranked[i].value), math.Abs(ranked[j].value)
		if ai != aj {
			return ai > aj
		}
		return ranked[i].channel < ranked[j].channel
	})

	candidates := ranked
	if mode == models.RiskOff || transition == models.Deteriorating {
		var negative []contribution
		for _, c := range ranked {
			if c.value < 0 {
				negative = append(negative, c)
			}
		}
		if len(negative) > 0 {
			candidates = negative
		}
	}

	reasons := make([]string, 0, maxReasons)
	for _, c := range candidates {
		if len(reasons) == maxReasons {
			break
		}
		label, ok := cfg.Channels[c.channel].ReasonLabels[ScoreKey(c.score)]
		if !ok || label == nil {
			continue
		}
		reasons = append(reasons, *label)
	}
	return reasons
}

// Aggregate builds the immutable payload for one scoring run.
func Aggregate(cfg models.ScoringConfig, scores map[models.Channel]float64, prior *float64, asOf time.Time, runID string) (models.MacroScorePayload, error) {
	if err := ValidateConfig(cfg); err != nil {
		return models.MacroScorePayload{}, err
	}

	globalScore := GlobalScore(cfg, scores)
	mode := ClassifyMode(globalScore)
	transition := ClassifyTransition(globalScore, prior)

	channelScores := make(map[models.Channel]float64, len(scores))
	for channel, score := range scores {
		channelScores[channel] = score
	}

	return models.MacroScorePayload{
		RunID:         runID,
		AsOf:          asOf,
		MacroMode:     mode,
		GlobalScore:   globalScore,
		Confidence:    Confidence(globalScore),
		Transition:    transition,
		ChannelScores: channelScores,
		Reasons:       SelectReasons(cfg, scores, mode, transition),
	}, nil
}
