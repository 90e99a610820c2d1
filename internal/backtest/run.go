package backtest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/tradesentry/tradesentry/internal/fetcher"
	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/strategy"
)

// RunConfig parameterizes one end-to-end backtest run.
type RunConfig struct {
	Ticker         string
	Period         string
	Interval       string
	Leverage       float64
	StopLossFrac   optional.Option[float64]
	TakeProfitFrac optional.Option[float64]
	OutputDir      string
	ParquetPath    string
	ShowProgress   bool
}

// Run fetches history, optimizes indicator parameters, evaluates the combined
// strategy, and persists the optimizer report. The returned path is the saved
// report file.
func Run(ctx context.Context, cfg RunConfig, f fetcher.Fetcher, log *logger.Logger) (*Report, string, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	ser, err := f.Fetch(ctx, cfg.Ticker, cfg.Period, cfg.Interval)
	if err != nil {
		return nil, "", err
	}

	log.Info("fetched history",
		zap.String("ticker", cfg.Ticker),
		zap.String("service", f.ServiceName()),
		zap.Int("bars", ser.Len()))

	specs, err := NewOptimizer(log, cfg.ShowProgress).BestConfigurations(ser)
	if err != nil {
		return nil, "", err
	}

	strat := strategy.New(specs, log)

	result, err := Evaluate(EvalConfig{
		Ticker:         cfg.Ticker,
		Leverage:       cfg.Leverage,
		StopLossFrac:   cfg.StopLossFrac,
		TakeProfitFrac: cfg.TakeProfitFrac,
	}, strat, ser, log)
	if err != nil {
		return nil, "", err
	}

	report := &Report{
		SchemaVersion:           SchemaVersion,
		Ticker:                  cfg.Ticker,
		Period:                  cfg.Period,
		Interval:                cfg.Interval,
		GeneratedAt:             time.Now().UTC(),
		IndicatorConfigurations: specs,
		Performance:             result.Performance,
	}

	path, err := report.Save(cfg.OutputDir)
	if err != nil {
		return nil, "", err
	}

	if err := storeRun(ctx, cfg, result, log); err != nil {
		// The report on disk is the contract with the monitor; the store is
		// diagnostic.
		log.Warn("trade store failed", zap.Error(err))
	}

	log.Info("backtest complete",
		zap.String("ticker", cfg.Ticker),
		zap.String("report", path),
		zap.Int("trades", result.Performance.TotalTrades),
		zap.Float64("total_pnl", result.Performance.TotalPnL))

	return report, path, nil
}

func storeRun(ctx context.Context, cfg RunConfig, result *Result, log *logger.Logger) error {
	store, err := NewTradeStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	runID := uuid.NewString()

	if err := store.InsertOrders(ctx, runID, result.Orders); err != nil {
		return err
	}

	summary, err := store.Summary(ctx, runID)
	if err != nil {
		return err
	}

	log.Info("stored run",
		zap.String("run_id", runID),
		zap.Int("trades", summary.Trades),
		zap.String("realized_pnl", summary.RealizedPnL.StringFixed(2)))

	if cfg.ParquetPath != "" {
		if err := store.ExportParquet(ctx, runID, cfg.ParquetPath); err != nil {
			return err
		}

		log.Info("exported parquet", zap.String("path", cfg.ParquetPath))
	}

	return nil
}
