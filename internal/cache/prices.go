// Package cache provides a Redis read-through cache for daily price series.
// The cache is an optimization only: any cache failure falls through to the
// underlying fetcher.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantfold/riskpulse/models"
)

// PriceProvider supplies a materialized daily close series for a ticker.
type PriceProvider interface {
	GetDailySeries(ctx context.Context, ticker string, start, end time.Time) (models.PriceSeries, error)
}

// PriceCache caches fetched series in Redis in front of another provider.
type PriceCache struct {
	client *redis.Client
	next   PriceProvider
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

// Options configures a PriceCache.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// New connects to Redis and wraps the given provider. The connection is
// verified up front so a misconfigured cache fails at startup, not mid-run.
func New(opts Options, next PriceProvider) (*PriceCache, error) {
	if opts.TTL == 0 {
		opts.TTL = 12 * time.Hour
	}
	if opts.Prefix == "" {
		opts.Prefix = "riskpulse"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &PriceCache{
		client: client,
		next:   next,
		ttl:    opts.TTL,
		prefix: opts.Prefix,
		logger: log.With().Str("component", "price_cache").Logger(),
	}, nil
}

// Close closes the Redis connection.
func (c *PriceCache) Close() error {
	return c.client.Close()
}

// GetDailySeries returns the cached series when present, otherwise fetches
// from the underlying provider and stores the result.
func (c *PriceCache) GetDailySeries(ctx context.Context, ticker string, start, end time.Time) (models.PriceSeries, error) {
	key := c.key(ticker, start, end)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var series models.PriceSeries
		if err := json.Unmarshal(raw, &series); err == nil {
			return series, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding unreadable cache entry")
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	series, err := c.next.GetDailySeries(ctx, ticker, start, end)
	if err != nil {
		return models.PriceSeries{}, err
	}

	if raw, err := json.Marshal(series); err == nil {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}

	return series, nil
}

func (c *PriceCache) key(ticker string, start, end time.Time) string {
	return fmt.Sprintf("%s:prices:%s:%s:%s", c.prefix, ticker, start.Format("2006-01-02"), end.Format("2006-01-02"))
}
