package macro

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/riskpulse/internal/channels"
	"github.com/quantfold/riskpulse/models"
)

// defaultHistoryYears backs cfg.HistoryYears when the channel file leaves
// it unset. Two years of closes keeps every indicator's window satisfied,
// including the trailing year the VOL fallback needs.
const defaultHistoryYears = 2

// PriceProvider supplies a materialized daily close series for a ticker.
type PriceProvider interface {
	GetDailySeries(ctx context.Context, ticker string, start, end time.Time) (models.PriceSeries, error)
}

// Runner executes the full scoring pipeline: fetch proxy series, score
// channels, rescore on series truncated ten sessions back for the
// transition, then aggregate.
type Runner struct {
	provider PriceProvider
	logger   zerolog.Logger
}

// NewRunner creates a pipeline runner on top of a price provider.
func NewRunner(provider PriceProvider) *Runner {
	return &Runner{
		provider: provider,
		logger:   log.With().Str("component", "macro_runner").Logger(),
	}
}

// Run produces the macro score payload for asOf. Configuration problems
// abort the run; a proxy ticker without data only omits its channel.
func (r *Runner) Run(ctx context.Context, cfg models.ScoringConfig, asOf time.Time) (models.MacroScorePayload, error) {
	if err := ValidateConfig(cfg); err != nil {
		return models.MacroScorePayload{}, err
	}

	series := r.fetchAll(ctx, cfg, asOf)
	scores := channels.Evaluate(cfg, series)

	truncated := make(map[string]models.PriceSeries, len(series))
	for ticker, s := range series {
		truncated[ticker] = s.TruncateSessions(TransitionLookbackSessions)
	}
	priorScores := channels.Evaluate(cfg, truncated)

	// The prior score only exists when the truncated history still scored
	// at least one channel; otherwise the transition defaults to STABLE.
	var prior *float64
	if len(priorScores) > 0 {
		v := GlobalScore(cfg, priorScores)
		prior = &v
	}

	payload, err := Aggregate(cfg, scores, prior, asOf, uuid.NewString())
	if err != nil {
		return models.MacroScorePayload{}, err
	}

	r.logger.Info().
		Str("run_id", payload.RunID).
		Float64("global_score", payload.GlobalScore).
		Str("mode", string(payload.MacroMode)).
		Str("transition", string(payload.Transition)).
		Int("channels_scored", len(payload.ChannelScores)).
		Msg("scoring run complete")

	return payload, nil
}

// fetchAll pulls each unique proxy ticker sequentially. Unavailable tickers
// are logged and skipped; the affected channels simply emit no signal.
func (r *Runner) fetchAll(ctx context.Context, cfg models.ScoringConfig, asOf time.Time) map[string]models.PriceSeries {
	years := cfg.HistoryYears
	if years <= 0 {
		years = defaultHistoryYears
	}
	start := asOf.AddDate(-years, 0, 0)

	tickers := make(map[string]struct{})
	for _, chCfg := range cfg.Channels {
		for _, ticker := range chCfg.Tickers {
			tickers[ticker] = struct{}{}
		}
	}

	series := make(map[string]models.PriceSeries, len(tickers))
	for ticker := range tickers {
		s, err := r.provider.GetDailySeries(ctx, ticker, start, asOf)
		if err != nil {
			r.logger.Warn().Err(err).Str("ticker", ticker).Msg("price series unavailable")
			continue
		}
		series[ticker] = s
	}
	return series
}
