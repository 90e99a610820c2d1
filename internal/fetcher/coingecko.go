package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

const defaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoFetcher retrieves crypto market charts from CoinGecko. The chart
// endpoint only carries closes and volumes, so open/high/low are approximated
// by the close.
type CoinGeckoFetcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logger.Logger
}

// NewCoinGeckoFetcher creates a CoinGecko-backed fetcher. The API key is
// optional; without one the public rate limits apply.
func NewCoinGeckoFetcher(apiKey string, log *logger.Logger) *CoinGeckoFetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &CoinGeckoFetcher{
		baseURL: defaultCoinGeckoBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  log,
	}
}

// ServiceName implements Fetcher.
func (f *CoinGeckoFetcher) ServiceName() string {
	return "coingecko"
}

// coinGeckoDays translates a period to the endpoint's days parameter.
func coinGeckoDays(period string) (string, error) {
	switch period {
	case "1d":
		return "1", nil
	case "5d", "1w":
		return "7", nil
	case "1mo":
		return "30", nil
	case "3mo":
		return "90", nil
	case "6mo":
		return "180", nil
	case "1y":
		return "365", nil
	case "2y", "5y", "max":
		return "max", nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidPeriod, "unknown period %q", period)
	}
}

// dailyGranularity reports whether the chart request must pin interval=daily.
// CoinGecko only serves long ranges at daily granularity.
func dailyGranularity(days string) bool {
	if days == "max" {
		return true
	}

	var n int
	if _, err := fmt.Sscanf(days, "%d", &n); err != nil {
		return false
	}

	return n > 90
}

type marketChart struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// Fetch implements Fetcher. The interval argument is accepted for interface
// symmetry; chart granularity is dictated by the requested range.
func (f *CoinGeckoFetcher) Fetch(ctx context.Context, identifier, period, _ string) (*series.Series, error) {
	id := strings.ToLower(identifier)

	days, err := coinGeckoDays(period)
	if err != nil {
		return nil, err
	}

	return fetchWithRetry(ctx, f.logger, f.ServiceName(), id, func() (*series.Series, error) {
		return f.marketChart(ctx, id, days)
	})
}

func (f *CoinGeckoFetcher) marketChart(ctx context.Context, id, days string) (*series.Series, error) {
	query := url.Values{}
	query.Set("vs_currency", "usd")
	query.Set("days", days)

	if dailyGranularity(days) {
		query.Set("interval", "daily")
	}

	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?%s", f.baseURL, url.PathEscape(id), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to build coingecko request", err)
	}

	if f.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTransportFailure, "coingecko request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, errors.Newf(errors.ErrCodeRateLimited, "coingecko rate limited: %s", string(body))
		case resp.StatusCode == http.StatusUnauthorized && f.apiKey == "":
			// The public tier intermittently returns 401 under load; with no
			// key configured this is a throttle, not a credential problem.
			return nil, errors.Newf(errors.ErrCodeRateLimited, "coingecko throttled anonymous request: %s", string(body))
		case resp.StatusCode >= 500:
			return nil, errors.Newf(errors.ErrCodeTransportFailure, "coingecko server error %d: %s", resp.StatusCode, string(body))
		default:
			return nil, errors.Newf(errors.ErrCodeMarketDataFetchFailed, "coingecko rejected request with %d: %s", resp.StatusCode, string(body))
		}
	}

	var chart marketChart
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to decode coingecko chart", err)
	}

	return chartToSeries(id, chart)
}

// chartToSeries joins prices and volumes by timestamp and drops points whose
// close is missing.
func chartToSeries(id string, chart marketChart) (*series.Series, error) {
	volumes := make(map[int64]float64, len(chart.TotalVolumes))
	for _, point := range chart.TotalVolumes {
		volumes[int64(point[0])] = point[1]
	}

	bars := make([]types.Bar, 0, len(chart.Prices))

	for _, point := range chart.Prices {
		closePrice := point[1]
		if math.IsNaN(closePrice) {
			continue
		}

		ts := int64(point[0])

		volume := math.NaN()
		if v, ok := volumes[ts]; ok {
			volume = v
		}

		bars = append(bars, types.Bar{
			Time:   time.UnixMilli(ts).UTC(),
			Open:   closePrice,
			High:   closePrice,
			Low:    closePrice,
			Close:  closePrice,
			Volume: volume,
		})
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeEmptySeries, "coingecko returned no usable points for %s", id)
	}

	return series.New(bars)
}
