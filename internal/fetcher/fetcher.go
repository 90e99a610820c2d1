// Package fetcher retrieves OHLCV history from market data providers behind a
// uniform interface. Providers classify their failures through pkg/errors so
// the shared retry policy can tell transient from permanent.
package fetcher

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// Fetcher retrieves one identifier's bars for a lookback period at an
// interval. Period and interval use the shared translation tables.
type Fetcher interface {
	Fetch(ctx context.Context, identifier, period, interval string) (*series.Series, error)
	ServiceName() string
}

// Options selects and configures the provider set.
type Options struct {
	PolygonAPIKey   string
	CoinGeckoAPIKey string
	// CryptoProvider is "coingecko" (default) or "binance".
	CryptoProvider string
	Logger         *logger.Logger
}

const maxFetchAttempts = 5

// Overridable so tests do not sleep through real backoff intervals.
var retryInitialInterval = 500 * time.Millisecond

// Identifiers routed to the crypto provider instead of Polygon.
var knownCryptoTickers = map[string]bool{
	"bitcoin": true, "ethereum": true, "binancecoin": true, "cardano": true,
	"solana": true, "ripple": true, "xrp": true, "polkadot": true,
	"dogecoin": true, "shiba-inu": true, "litecoin": true, "tron": true,
	"avalanche-2": true, "btc": true, "eth": true, "sol": true,
	"ada": true, "dot": true, "ltc": true, "trx": true,
}

// IsKnownCrypto reports whether the identifier routes to a crypto provider.
func IsKnownCrypto(identifier string) bool {
	return knownCryptoTickers[strings.ToLower(identifier)]
}

// ForTicker picks the provider for one identifier: known crypto identifiers go
// to the configured crypto provider, everything else to Polygon.
func ForTicker(identifier string, opts Options) Fetcher {
	if IsKnownCrypto(identifier) {
		if opts.CryptoProvider == "binance" {
			return NewBinanceFetcher(opts.Logger)
		}

		return NewCoinGeckoFetcher(opts.CoinGeckoAPIKey, opts.Logger)
	}

	return NewPolygonFetcher(opts.PolygonAPIKey, opts.Logger)
}

// periodStart translates a lookback period into its start time.
func periodStart(now time.Time, period string) (time.Time, error) {
	switch period {
	case "1d":
		return now.AddDate(0, 0, -1), nil
	case "5d":
		return now.AddDate(0, 0, -5), nil
	case "1w":
		return now.AddDate(0, 0, -7), nil
	case "1mo":
		return now.AddDate(0, -1, 0), nil
	case "3mo":
		return now.AddDate(0, -3, 0), nil
	case "6mo":
		return now.AddDate(0, -6, 0), nil
	case "1y":
		return now.AddDate(-1, 0, 0), nil
	case "2y":
		return now.AddDate(-2, 0, 0), nil
	case "5y":
		return now.AddDate(-5, 0, 0), nil
	case "max":
		return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, errors.Newf(errors.ErrCodeInvalidPeriod, "unknown period %q", period)
	}
}

// fetchWithRetry runs op under exponential backoff, retrying only errors
// classified transient (rate limits, transport failures). The final failure
// wraps the last underlying error.
func fetchWithRetry(ctx context.Context, log *logger.Logger, service, identifier string, op func() (*series.Series, error)) (*series.Series, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	attempt := 0

	wrapped := func() (*series.Series, error) {
		attempt++

		ser, err := op()
		if err == nil {
			return ser, nil
		}

		if !errors.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}

		log.Warn("transient fetch failure, will retry",
			zap.String("service", service),
			zap.String("identifier", identifier),
			zap.Int("attempt", attempt),
			zap.Error(err))

		return nil, err
	}

	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = retryInitialInterval

	policy := backoff.WithContext(
		backoff.WithMaxRetries(exponential, maxFetchAttempts-1), ctx)

	ser, err := backoff.RetryWithData(wrapped, policy)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err,
			"%s fetch for %s failed after %d attempts", service, identifier, attempt)
	}

	return ser, nil
}
