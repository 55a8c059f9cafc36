// Package exposure regresses a portfolio's daily returns against each macro
// channel's proxy returns to estimate factor betas.
package exposure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/riskpulse/models"
)

const (
	// MinTradingDays is the system-wide minimum: below it the whole run
	// aborts, and a channel with fewer paired observations is invalid.
	MinTradingDays = 60

	// DefaultLookbackDays is the regression window when none is given.
	DefaultLookbackDays = 365
)

// ErrInsufficientData signals fewer trading days than the engine's minimum.
var ErrInsufficientData = errors.New("insufficient trading days for exposure run")

// PriceProvider supplies a materialized daily close series for a ticker.
type PriceProvider interface {
	GetDailySeries(ctx context.Context, ticker string, start, end time.Time) (models.PriceSeries, error)
}

// Engine computes channel exposures for portfolios.
type Engine struct {
	provider PriceProvider
	logger   zerolog.Logger
}

// NewEngine creates an exposure engine on top of a price provider.
func NewEngine(provider PriceProvider) *Engine {
	return &Engine{
		provider: provider,
		logger:   log.With().Str("component", "exposure_engine").Logger(),
	}
}

// Compute values the portfolio over the lookback window and regresses its
// returns against each channel proxy. A held ticker without price data
// aborts the whole run; an unavailable proxy only disables its channel.
func (e *Engine) Compute(ctx context.Context, portfolio models.Portfolio, proxies map[models.Channel]string, asOf time.Time, lookbackDays int) (models.ExposureReport, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if len(portfolio.Snapshots) == 0 {
		return models.ExposureReport{}, fmt.Errorf("portfolio %s has no snapshots", portfolio.ID)
	}

	periodStart := asOf.AddDate(0, 0, -lookbackDays)

	held := heldTickers(portfolio.Snapshots)
	prices := make(map[string]models.PriceSeries, len(held))
	for _, ticker := range held {
		// Fetch from well before the window so carry-forward lookups
		// at the window edge can resolve.
		series, err := e.provider.GetDailySeries(ctx, ticker, periodStart.AddDate(0, -1, 0), asOf)
		if err != nil {
			return models.ExposureReport{}, fmt.Errorf("price data for held ticker %s: %w", ticker, err)
		}
		prices[ticker] = series
	}

	proxySeries := make(map[models.Channel]models.PriceSeries, len(proxies))
	for channel, ticker := range proxies {
		series, err := e.provider.GetDailySeries(ctx, ticker, periodStart.AddDate(0, -1, 0), asOf)
		if err != nil {
			e.logger.Warn().Err(err).Str("ticker", ticker).Str("channel", string(channel)).Msg("proxy series unavailable, channel disabled")
			continue
		}
		proxySeries[channel] = series
	}

	all := make(map[string]models.PriceSeries, len(prices)+len(proxySeries))
	for ticker, s := range prices {
		all[ticker] = s
	}
	for channel, s := range proxySeries {
		all[string(channel)+":"+proxies[channel]] = s
	}

	calendar := models.UnionCalendar(all, periodStart, asOf)
	dates, values, err := valuationSeries(calendar, portfolio.Snapshots, prices)
	if err != nil {
		return models.ExposureReport{}, err
	}
	if len(dates) < MinTradingDays {
		return models.ExposureReport{}, fmt.Errorf("%w: %d days in window", ErrInsufficientData, len(dates))
	}

	portfolioReturns := dailyReturns(values)

	report := models.ExposureReport{
		RunID:       uuid.NewString(),
		PortfolioID: portfolio.ID,
		AsOf:        asOf,
		PeriodStart: periodStart,
		TradingDays: len(dates),
		Channels:    make(map[models.Channel]models.ChannelExposure, len(proxySeries)),
	}

	for channel, series := range proxySeries {
		exposure := models.ChannelExposure{Proxy: proxies[channel]}

		x, y := pairedReturns(dates, portfolioReturns, series)
		if len(x) >= MinTradingDays {
			if fit, err := OLS(x, y); err == nil {
				exposure.Beta = fit.Beta
				exposure.RSquared = fit.RSquared
				exposure.Valid = true
			} else {
				e.logger.Warn().Err(err).Str("channel", string(channel)).Msg("regression failed")
			}
		} else {
			e.logger.Warn().
				Str("channel", string(channel)).
				Int("paired_observations", len(x)).
				Msg("too few paired observations for a meaningful fit")
		}

		report.Channels[channel] = exposure
	}

	e.logger.Info().
		Str("run_id", report.RunID).
		Str("portfolio", portfolio.ID).
		Int("trading_days", report.TradingDays).
		Int("channels", len(report.Channels)).
		Msg("exposure run complete")

	return report, nil
}

// heldTickers collects every ticker appearing in any snapshot.
func heldTickers(snapshots []models.PortfolioSnapshot) []string {
	seen := make(map[string]struct{})
	var tickers []string
	for _, snap := range snapshots {
		for _, pos := range snap.Positions {
			if _, ok := seen[pos.Ticker]; ok {
				continue
			}
			seen[pos.Ticker] = struct{}{}
			tickers = append(tickers, pos.Ticker)
		}
	}
	return tickers
}
