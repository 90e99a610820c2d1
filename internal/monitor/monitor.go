// Package monitor runs the live polling loop for one ticker: fetch, decide,
// step the position machine, and publish the resulting order records.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/tradesentry/tradesentry/internal/backtest"
	"github.com/tradesentry/tradesentry/internal/fetcher"
	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/notify"
	"github.com/tradesentry/tradesentry/internal/position"
	"github.com/tradesentry/tradesentry/internal/strategy"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// Config parameterizes one live monitor.
type Config struct {
	Ticker            string
	Scope             Scope
	Leverage          float64
	StopLossFrac      optional.Option[float64]
	InitialAllocation float64
	ReportDir         string
	ForwardDir        string

	// Poll overrides the interval-derived cadence; used by tests.
	Poll time.Duration
}

// Monitor polls one ticker and drives the shared position machine with the
// latest bar's decision.
type Monitor struct {
	cfg      Config
	fetcher  fetcher.Fetcher
	emitter  Emitter
	notifier notify.Notifier
	logger   *logger.Logger

	forward *ForwardLog
}

// New creates a monitor. A nil notifier disables notifications.
func New(cfg Config, f fetcher.Fetcher, em Emitter, n notify.Notifier, log *logger.Logger) *Monitor {
	if n == nil {
		n = notify.Nop{}
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Monitor{
		cfg:      cfg,
		fetcher:  f,
		emitter:  em,
		notifier: n,
		logger:   log,
		forward:  NewForwardLog(cfg.ForwardDir, cfg.Ticker),
	}
}

// Run polls until the context is cancelled or an unrecoverable error occurs.
// Data-unavailability errors skip the cycle; anything else emits a fatal
// message and stops the loop.
func (m *Monitor) Run(ctx context.Context) error {
	period, interval, err := m.cfg.Scope.PeriodInterval()
	if err != nil {
		return err
	}

	poll := m.cfg.Poll
	if poll == 0 {
		poll, err = PollInterval(interval)
		if err != nil {
			return err
		}
	}

	strat, err := m.loadStrategy(ctx, period, interval)
	if err != nil {
		return err
	}

	machine, err := position.NewMachine(position.Config{
		Ticker:            m.cfg.Ticker,
		Leverage:          m.cfg.Leverage,
		StopLossFrac:      m.cfg.StopLossFrac,
		InitialAllocation: m.cfg.InitialAllocation,
	}, m.logger)
	if err != nil {
		return err
	}

	m.logger.Info("monitor started",
		zap.String("ticker", m.cfg.Ticker),
		zap.String("scope", string(m.cfg.Scope)),
		zap.Duration("poll", poll))

	for {
		if err := m.tick(ctx, machine, strat, period, interval); err != nil {
			if isSkippable(err) {
				m.logger.Warn("cycle skipped, data unavailable",
					zap.String("ticker", m.cfg.Ticker),
					zap.Error(err))
			} else {
				m.emitFatal(err)

				return err
			}
		}

		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping", zap.String("ticker", m.cfg.Ticker))

			return ctx.Err()
		case <-time.After(poll):
		}
	}
}

// loadStrategy resolves the indicator configuration from the newest optimizer
// report, running a fresh backtest when none exists yet.
func (m *Monitor) loadStrategy(ctx context.Context, period, interval string) (*strategy.Strategy, error) {
	report, err := backtest.LoadLatestReport(m.cfg.ReportDir, m.cfg.Ticker)
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeReportNotFound) {
			return nil, err
		}

		m.logger.Info("no optimizer report found, running backtest first",
			zap.String("ticker", m.cfg.Ticker))

		report, _, err = backtest.Run(ctx, backtest.RunConfig{
			Ticker:       m.cfg.Ticker,
			Period:       period,
			Interval:     interval,
			Leverage:     m.cfg.Leverage,
			StopLossFrac: m.cfg.StopLossFrac,
			OutputDir:    m.cfg.ReportDir,
		}, m.fetcher, m.logger)
		if err != nil {
			return nil, err
		}
	}

	specs := report.ResolveIndicators(m.logger)

	return strategy.New(specs, m.logger), nil
}

func (m *Monitor) tick(ctx context.Context, machine *position.Machine, strat *strategy.Strategy, period, interval string) error {
	ser, err := m.fetcher.Fetch(ctx, m.cfg.Ticker, period, interval)
	if err != nil {
		return err
	}

	decisions, err := strat.Run(ser)
	if err != nil {
		return err
	}

	last, ok := ser.Last()
	if !ok {
		return errors.Newf(errors.ErrCodeEmptySeries, "no bars for %s", m.cfg.Ticker)
	}

	row := ser.Len() - 1

	rec, err := machine.Step(decisions[row], last.Close, last.Time, strategy.SignalSnapshot(ser, row))
	if err != nil {
		return err
	}

	if rec.IsNone() {
		return nil
	}

	record := rec.Unwrap()

	if err := m.emitter.Emit(Message{Type: MessageTypeOrder, Ticker: m.cfg.Ticker, Order: &record}); err != nil {
		m.logger.Warn("failed to emit order record", zap.Error(err))
	}

	if record.IsTrade() {
		if err := m.forward.Append(record); err != nil {
			m.logger.Warn("failed to append forward log", zap.Error(err))
		}

		m.notifyTrade(ctx, record)
	}

	return nil
}

func (m *Monitor) notifyTrade(ctx context.Context, rec types.OrderRecord) {
	title := fmt.Sprintf("%s %s", rec.Action, m.cfg.Ticker)
	body := fmt.Sprintf("%.4f @ %.2f", rec.Quantity, rec.Price)

	if rec.StopLossTriggered {
		body += " (stop-loss)"
	}

	if err := m.notifier.Notify(ctx, title, body); err != nil {
		m.logger.Warn("notification failed", zap.Error(err))
	}
}

func (m *Monitor) emitFatal(cause error) {
	msg := Message{Type: MessageTypeFatal, Ticker: m.cfg.Ticker, Error: cause.Error()}
	if err := m.emitter.Emit(msg); err != nil {
		m.logger.Error("failed to emit fatal message", zap.Error(err))
	}
}

// isSkippable reports whether the cycle failure is a data problem worth
// waiting out rather than a reason to stop.
func isSkippable(err error) bool {
	if errors.IsDataUnavailable(err) || errors.IsInsufficientDataError(err) {
		return true
	}

	code := errors.GetCode(err)

	return code >= 700 && code < 800
}
