// Package twelvedata fetches daily close series from the Twelve Data API.
package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "github.com/quantfold/riskpulse/internal/platform/http"
	"github.com/quantfold/riskpulse/models"
)

// MinSeriesPoints is the floor below which a fetched series is treated as
// unavailable rather than returned.
const MinSeriesPoints = 20

// Client is the Twelve Data API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *platformhttp.Client
	logger     zerolog.Logger
}

// ClientOptions holds options for creating a Client.
type ClientOptions struct {
	APIKey          string
	BaseURL         string
	RequestTimeout  time.Duration
	RequestsPerSec  int
	MaxRetryTimeout time.Duration
}

// NewClient creates a Twelve Data client with rate limiting and retries.
func NewClient(options ClientOptions) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = "https://api.twelvedata.com"
	}

	return &Client{
		apiKey:  options.APIKey,
		baseURL: baseURL,
		httpClient: platformhttp.NewClient(platformhttp.ClientOptions{
			Timeout:         options.RequestTimeout,
			RequestsPerSec:  options.RequestsPerSec,
			MaxRetryTimeout: options.MaxRetryTimeout,
		}),
		logger: log.With().Str("component", "twelvedata_client").Logger(),
	}
}

type timeSeriesResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Values  []struct {
		Datetime string  `json:"datetime"`
		Close    float64 `json:"close,string"`
	} `json:"values"`
}

// GetDailySeries fetches split- and dividend-adjusted daily closes for a
// ticker within [start, end]. Fewer than MinSeriesPoints observations is an
// error: such a series is unusable for every downstream window.
func (c *Client) GetDailySeries(ctx context.Context, ticker string, start, end time.Time) (models.PriceSeries, error) {
	query := url.Values{}
	query.Set("symbol", ticker)
	query.Set("interval", "1day")
	query.Set("start_date", start.Format("2006-01-02"))
	query.Set("end_date", end.Format("2006-01-02"))
	query.Set("outputsize", "5000")
	query.Set("adjust", "all")
	query.Set("apikey", c.apiKey)

	reqURL := c.baseURL + "/time_series?" + query.Encode()
	c.logger.Debug().Str("ticker", ticker).Msg("fetching daily series")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.DoRequest(ctx, req)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("reading response body: %w", err)
	}

	var data timeSeriesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return models.PriceSeries{}, fmt.Errorf("parsing JSON: %w", err)
	}
	if data.Status == "error" {
		c.logger.Error().Str("ticker", ticker).Str("message", data.Message).Msg("Twelve Data API error")
		return models.PriceSeries{}, fmt.Errorf("Twelve Data API error for %s: %s", ticker, data.Message)
	}

	points := make([]models.PricePoint, 0, len(data.Values))
	for _, v := range data.Values {
		date, err := time.Parse("2006-01-02", v.Datetime)
		if err != nil {
			return models.PriceSeries{}, fmt.Errorf("parsing datetime %q: %w", v.Datetime, err)
		}
		points = append(points, models.PricePoint{Date: date, Close: v.Close})
	}

	if len(points) < MinSeriesPoints {
		return models.PriceSeries{}, fmt.Errorf("series for %s has %d points, need at least %d", ticker, len(points), MinSeriesPoints)
	}

	series, err := models.NewPriceSeries(points)
	if err != nil {
		return models.PriceSeries{}, fmt.Errorf("building series for %s: %w", ticker, err)
	}

	c.logger.Debug().Str("ticker", ticker).Int("count", series.Len()).Msg("fetched daily series")
	return series, nil
}
