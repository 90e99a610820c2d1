package fetcher

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// BinanceFetcher retrieves crypto klines from the public Binance API.
type BinanceFetcher struct {
	client *binance.Client
	logger *logger.Logger
}

// NewBinanceFetcher creates a Binance-backed fetcher. Market data endpoints
// need no credentials.
func NewBinanceFetcher(log *logger.Logger) *BinanceFetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &BinanceFetcher{
		client: binance.NewClient("", ""),
		logger: log,
	}
}

// ServiceName implements Fetcher.
func (f *BinanceFetcher) ServiceName() string {
	return "binance"
}

// binanceSymbol maps a crypto identifier to its USDT spot symbol.
var binanceSymbols = map[string]string{
	"bitcoin": "BTCUSDT", "btc": "BTCUSDT",
	"ethereum": "ETHUSDT", "eth": "ETHUSDT",
	"binancecoin": "BNBUSDT",
	"cardano":     "ADAUSDT", "ada": "ADAUSDT",
	"solana": "SOLUSDT", "sol": "SOLUSDT",
	"ripple": "XRPUSDT", "xrp": "XRPUSDT",
	"polkadot": "DOTUSDT", "dot": "DOTUSDT",
	"dogecoin":  "DOGEUSDT",
	"shiba-inu": "SHIBUSDT",
	"litecoin":  "LTCUSDT", "ltc": "LTCUSDT",
	"tron": "TRXUSDT", "trx": "TRXUSDT",
	"avalanche-2": "AVAXUSDT",
}

func binanceSymbol(identifier string) (string, error) {
	id := strings.ToLower(identifier)

	if symbol, ok := binanceSymbols[id]; ok {
		return symbol, nil
	}

	// Pass explicit spot symbols (e.g. BTCUSDT) through untouched.
	upper := strings.ToUpper(identifier)
	if strings.HasSuffix(upper, "USDT") {
		return upper, nil
	}

	return "", errors.Newf(errors.ErrCodeInvalidConfiguration, "no binance symbol for %q", identifier)
}

// binanceInterval maps an interval tag to a kline interval string.
func binanceInterval(interval string) (string, error) {
	switch interval {
	case "1m", "5m", "15m", "30m", "1h", "2h", "1d", "1w":
		return interval, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidInterval, "unknown interval %q", interval)
	}
}

// Fetch implements Fetcher.
func (f *BinanceFetcher) Fetch(ctx context.Context, identifier, period, interval string) (*series.Series, error) {
	symbol, err := binanceSymbol(identifier)
	if err != nil {
		return nil, err
	}

	klineInterval, err := binanceInterval(interval)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	from, err := periodStart(now, period)
	if err != nil {
		return nil, err
	}

	return fetchWithRetry(ctx, f.logger, f.ServiceName(), symbol, func() (*series.Series, error) {
		return f.klines(ctx, symbol, klineInterval, from, now)
	})
}

func (f *BinanceFetcher) klines(ctx context.Context, symbol, interval string, from, to time.Time) (*series.Series, error) {
	var bars []types.Bar

	start := from.UnixMilli()
	end := to.UnixMilli()

	for start < end {
		klines, err := f.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(start).
			EndTime(end).
			Limit(1000).
			Do(ctx)
		if err != nil {
			return nil, classifyBinanceError(err)
		}

		if len(klines) == 0 {
			break
		}

		for _, k := range klines {
			bars = append(bars, types.Bar{
				Time:   time.UnixMilli(k.OpenTime).UTC(),
				Open:   parseBinanceFloat(k.Open),
				High:   parseBinanceFloat(k.High),
				Low:    parseBinanceFloat(k.Low),
				Close:  parseBinanceFloat(k.Close),
				Volume: parseBinanceFloat(k.Volume),
			})
		}

		// Advance past the last kline to avoid duplicates on the next page.
		start = klines[len(klines)-1].CloseTime + 1

		if len(klines) < 1000 {
			break
		}
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeEmptySeries, "binance returned no klines for %s", symbol)
	}

	return series.New(bars)
}

// parseBinanceFloat converts the API's string-encoded numbers; unparseable
// values become NaN so they read as missing downstream.
func parseBinanceFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}

	return v
}

func classifyBinanceError(err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		// -1003 is Binance's request-weight limit.
		if apiErr.Code == -1003 {
			return errors.Wrap(errors.ErrCodeRateLimited, "binance rate limited", err)
		}

		return errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "binance rejected request", err)
	}

	return errors.Wrap(errors.ErrCodeTransportFailure, "binance request failed", err)
}
