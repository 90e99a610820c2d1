package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/moznion/go-optional"
	"github.com/urfave/cli/v3"

	"github.com/tradesentry/tradesentry/internal/backtest"
	"github.com/tradesentry/tradesentry/internal/config"
	"github.com/tradesentry/tradesentry/internal/fetcher"
	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/monitor"
	"github.com/tradesentry/tradesentry/internal/notify"
)

func optionalFraction(cmd *cli.Command, name string) optional.Option[float64] {
	if !cmd.IsSet(name) {
		return optional.None[float64]()
	}

	return optional.Some(cmd.Float(name))
}

// monitorAction runs the live polling loop for one ticker. Stdout carries the
// typed JSONL order channel; all diagnostics go to stderr.
func monitorAction(ctx context.Context, cmd *cli.Command) error {
	ticker := cmd.Args().First()
	if ticker == "" {
		return fmt.Errorf("usage: sentry monitor <ticker>")
	}

	log, err := logger.NewStderrLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	f := fetcher.ForTicker(ticker, cfg.FetcherOptions(log))

	m := monitor.New(monitor.Config{
		Ticker:            ticker,
		Scope:             monitor.Scope(cmd.String("scope")),
		Leverage:          cmd.Float("leverage"),
		StopLossFrac:      optionalFraction(cmd, "stop_loss"),
		InitialAllocation: cmd.Float("entry"),
		ReportDir:         cfg.ReportDir,
		ForwardDir:        cfg.ForwardDir,
	}, f, monitor.NewJSONLEmitter(os.Stdout), notify.NewDesktop(log), log)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Run(runCtx); err != nil && runCtx.Err() == nil {
		return err
	}

	return nil
}

// backtestAction optimizes indicator parameters on history and writes the
// report the monitor consumes.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	ticker := cmd.Args().First()
	if ticker == "" {
		return fmt.Errorf("usage: sentry backtest <ticker>")
	}

	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	f := fetcher.ForTicker(ticker, cfg.FetcherOptions(log))

	_, path, err := backtest.Run(ctx, backtest.RunConfig{
		Ticker:         ticker,
		Period:         cmd.String("period"),
		Interval:       cmd.String("interval"),
		Leverage:       cmd.Float("leverage"),
		StopLossFrac:   optionalFraction(cmd, "stop_loss"),
		TakeProfitFrac: optionalFraction(cmd, "take_profit"),
		OutputDir:      cfg.ReportDir,
		ParquetPath:    cmd.String("parquet"),
		ShowProgress:   true,
	}, f, log)
	if err != nil {
		return err
	}

	fmt.Println(path)

	return nil
}

func schemaAction(_ context.Context, _ *cli.Command) error {
	data, err := backtest.ReportSchema()
	if err != nil {
		return err
	}

	fmt.Println(string(data))

	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:  "config",
		Usage: "Path to an optional YAML config file",
	}

	cmd := &cli.Command{
		Name:  "sentry",
		Usage: "Monitor tickers and trade signals from optimized indicator sets",
		Commands: []*cli.Command{
			{
				Name:      "monitor",
				Usage:     "Poll one ticker and emit order records on stdout",
				ArgsUsage: "<ticker>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "scope",
						Usage: "Monitoring scope: intraday, short or long",
						Value: string(monitor.ScopeIntraday),
					},
					&cli.FloatFlag{
						Name:  "entry",
						Usage: "Capital allocated per position",
						Value: 100,
					},
					&cli.FloatFlag{
						Name:  "leverage",
						Usage: "Position leverage, clamped to [1, 20]",
						Value: 1,
					},
					&cli.FloatFlag{
						Name:  "stop_loss",
						Usage: "Stop-loss as a fraction of entry price (e.g. 0.05)",
					},
					configFlag,
				},
				Action: monitorAction,
			},
			{
				Name:      "backtest",
				Usage:     "Optimize indicators on history and write the metrics report",
				ArgsUsage: "<ticker>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "period",
						Usage: "Lookback period (1d 5d 1w 1mo 3mo 6mo 1y 2y 5y max)",
						Value: "1mo",
					},
					&cli.StringFlag{
						Name:  "interval",
						Usage: "Bar interval (1m 5m 15m 30m 1h 2h 1d 1w)",
						Value: "1d",
					},
					&cli.FloatFlag{
						Name:  "leverage",
						Usage: "Position leverage, clamped to [1, 20]",
						Value: 1,
					},
					&cli.FloatFlag{
						Name:  "stop_loss",
						Usage: "Stop-loss as a fraction of entry price",
					},
					&cli.FloatFlag{
						Name:  "take_profit",
						Usage: "Take-profit as a fraction of entry price",
					},
					&cli.StringFlag{
						Name:  "parquet",
						Usage: "Optional path for a parquet export of the run's orders",
					},
					configFlag,
				},
				Action: backtestAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the metrics report",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
