package fetcher

import (
	"context"
	"net/http"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// PolygonFetcher retrieves equity aggregates from Polygon.io.
type PolygonFetcher struct {
	client *polygon.Client
	logger *logger.Logger
}

// NewPolygonFetcher creates a Polygon-backed fetcher.
func NewPolygonFetcher(apiKey string, log *logger.Logger) *PolygonFetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &PolygonFetcher{
		client: polygon.New(apiKey),
		logger: log,
	}
}

// ServiceName implements Fetcher.
func (f *PolygonFetcher) ServiceName() string {
	return "polygon"
}

// polygonInterval maps an interval tag to aggregate multiplier and timespan.
func polygonInterval(interval string) (int, models.Timespan, error) {
	switch interval {
	case "1m":
		return 1, models.Minute, nil
	case "5m":
		return 5, models.Minute, nil
	case "15m":
		return 15, models.Minute, nil
	case "30m":
		return 30, models.Minute, nil
	case "1h":
		return 1, models.Hour, nil
	case "2h":
		return 2, models.Hour, nil
	case "1d":
		return 1, models.Day, nil
	case "1w":
		return 7, models.Day, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidInterval, "unknown interval %q", interval)
	}
}

// Fetch implements Fetcher.
func (f *PolygonFetcher) Fetch(ctx context.Context, identifier, period, interval string) (*series.Series, error) {
	ticker := strings.ToUpper(identifier)

	multiplier, timespan, err := polygonInterval(interval)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	from, err := periodStart(now, period)
	if err != nil {
		return nil, err
	}

	return fetchWithRetry(ctx, f.logger, f.ServiceName(), ticker, func() (*series.Series, error) {
		return f.listAggs(ctx, ticker, multiplier, timespan, from, now)
	})
}

func (f *PolygonFetcher) listAggs(ctx context.Context, ticker string, multiplier int, timespan models.Timespan, from, to time.Time) (*series.Series, error) {
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithAdjusted(true).WithOrder(models.Asc).WithLimit(50000)

	var bars []types.Bar

	iter := f.client.ListAggs(ctx, params)
	for iter.Next() {
		agg := iter.Item()

		bars = append(bars, types.Bar{
			Time:   time.Time(agg.Timestamp),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}

	if err := iter.Err(); err != nil {
		return nil, classifyPolygonError(err)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeEmptySeries, "polygon returned no bars for %s", ticker)
	}

	return series.New(bars)
}

// classifyPolygonError separates rate limits and transport failures, which
// the retry policy replays, from everything else.
func classifyPolygonError(err error) error {
	var resp *models.ErrorResponse
	if errors.As(err, &resp) {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return errors.Wrap(errors.ErrCodeRateLimited, "polygon rate limited", err)
		case resp.StatusCode >= 500:
			return errors.Wrap(errors.ErrCodeTransportFailure, "polygon server error", err)
		default:
			return errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "polygon request rejected", err)
		}
	}

	// No structured response means the request never completed.
	return errors.Wrap(errors.ErrCodeTransportFailure, "polygon request failed", err)
}
