package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/quantfold/riskpulse/internal/api/twelvedata"
	"github.com/quantfold/riskpulse/internal/cache"
	"github.com/quantfold/riskpulse/internal/config"
	"github.com/quantfold/riskpulse/internal/database"
	"github.com/quantfold/riskpulse/internal/exposure"
	"github.com/quantfold/riskpulse/internal/macro"
	"github.com/quantfold/riskpulse/internal/notify"
	"github.com/quantfold/riskpulse/models"
)

func main() {
	root := &cobra.Command{
		Use:           "riskpulse",
		Short:         "Macro risk scoring and portfolio factor exposure",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(scoreCmd(), exposureCmd())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl)

	return cfg, nil
}

// newProvider builds the price fetcher, wrapped in the Redis cache when one
// is configured.
func newProvider(cfg *config.Config) (macro.PriceProvider, func(), error) {
	client := twelvedata.NewClient(twelvedata.ClientOptions{
		APIKey:         cfg.TwelveAPIKey,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec: cfg.RequestsPerSec,
	})

	if cfg.RedisAddr == "" {
		return client, func() {}, nil
	}

	cached, err := cache.New(cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, client)
	if err != nil {
		return nil, nil, fmt.Errorf("price cache: %w", err)
	}
	return cached, func() { _ = cached.Close() }, nil
}

func openDB(cfg *config.Config) (*database.DB, error) {
	return database.New(database.ConnectionParams{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
}

func scoreCmd() *cobra.Command {
	var asOfFlag string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Run the macro scoring pipeline and persist the payload",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}

			asOf := time.Now().UTC().Truncate(24 * time.Hour)
			if asOfFlag != "" {
				asOf, err = time.Parse("2006-01-02", asOfFlag)
				if err != nil {
					return fmt.Errorf("invalid --as-of date: %w", err)
				}
			}

			scoring, err := config.LoadChannels(cfg.ChannelsFile)
			if err != nil {
				return err
			}

			provider, closeProvider, err := newProvider(cfg)
			if err != nil {
				return err
			}
			defer closeProvider()

			db, err := openDB(cfg)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer db.Close()

			previous, err := db.LatestMacroScore()
			if err != nil {
				return fmt.Errorf("loading previous payload: %w", err)
			}

			payload, err := macro.NewRunner(provider).Run(cmd.Context(), scoring, asOf)
			if err != nil {
				return err
			}

			if err := db.SaveMacroScore(payload); err != nil {
				return fmt.Errorf("persisting payload: %w", err)
			}

			if cfg.TelegramToken != "" && notify.ShouldAlert(payload, previous) {
				notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID)
				if err != nil {
					log.Warn().Err(err).Msg("notifier unavailable")
				} else if err := notifier.MacroAlert(payload, previous); err != nil {
					log.Warn().Err(err).Msg("alert failed")
				}
			}

			fmt.Printf("%s  mode=%s score=%.3f confidence=%.2f transition=%s\n",
				payload.AsOf.Format("2006-01-02"), payload.MacroMode,
				payload.GlobalScore, payload.Confidence, payload.Transition)
			for _, reason := range payload.Reasons {
				fmt.Printf("  - %s\n", reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asOfFlag, "as-of", "", "evaluation date (YYYY-MM-DD, default today)")
	return cmd
}

func exposureCmd() *cobra.Command {
	var (
		portfolioID  string
		lookbackDays int
	)

	cmd := &cobra.Command{
		Use:   "exposure",
		Short: "Compute a portfolio's channel betas and persist them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup()
			if err != nil {
				return err
			}
			if lookbackDays == 0 {
				lookbackDays = cfg.LookbackDays
			}

			scoring, err := config.LoadChannels(cfg.ChannelsFile)
			if err != nil {
				return err
			}

			// Each channel's first proxy ticker stands in for the factor.
			proxies := make(map[models.Channel]string, len(scoring.Channels))
			for channel, chCfg := range scoring.Channels {
				proxies[channel] = chCfg.Tickers[0]
			}

			provider, closeProvider, err := newProvider(cfg)
			if err != nil {
				return err
			}
			defer closeProvider()

			db, err := openDB(cfg)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer db.Close()

			portfolio, err := db.GetPortfolio(portfolioID)
			if err != nil {
				return err
			}

			asOf := time.Now().UTC().Truncate(24 * time.Hour)
			report, err := exposure.NewEngine(provider).Compute(cmd.Context(), *portfolio, proxies, asOf, lookbackDays)
			if err != nil {
				return err
			}

			if err := db.SaveExposures(report); err != nil {
				return fmt.Errorf("persisting exposures: %w", err)
			}

			fmt.Printf("portfolio %s  %d trading days from %s\n",
				report.PortfolioID, report.TradingDays, report.PeriodStart.Format("2006-01-02"))
			for channel, exp := range report.Channels {
				if exp.Valid {
					fmt.Printf("  %-8s %-6s beta=%+.3f r2=%.3f\n", channel, exp.Proxy, exp.Beta, exp.RSquared)
				} else {
					fmt.Printf("  %-8s %-6s insufficient data\n", channel, exp.Proxy)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&portfolioID, "portfolio", "", "portfolio id (required)")
	cmd.Flags().IntVar(&lookbackDays, "lookback-days", 0, "regression window in calendar days (default LOOKBACK_DAYS env)")
	_ = cmd.MarkFlagRequired("portfolio")
	return cmd
}
