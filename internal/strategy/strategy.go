// Package strategy aggregates the signal columns of a configured indicator set
// into one buy/sell/hold decision per bar.
package strategy

import (
	"go.uber.org/zap"

	"github.com/tradesentry/tradesentry/internal/indicator"
	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
)

// Strategy holds an ordered indicator configuration. The same strategy value
// drives both backtests and live monitoring.
type Strategy struct {
	specs  []indicator.Spec
	logger *logger.Logger
}

// New creates a strategy from indicator specs. An empty spec list is legal and
// yields hold decisions everywhere.
func New(specs []indicator.Spec, log *logger.Logger) *Strategy {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Strategy{specs: specs, logger: log}
}

// Specs returns the configured indicator specs.
func (s *Strategy) Specs() []indicator.Spec {
	return s.specs
}

// Run computes every configured indicator against the series and returns one
// decision per bar. A bar votes BUY when at least one buy-oriented signal is
// true and no sell-oriented signal is true, SELL in the mirrored case, and
// HOLD otherwise. Missing signal cells cast no vote.
func (s *Strategy) Run(ser *series.Series) ([]types.Decision, error) {
	if len(s.specs) == 0 {
		s.logger.Warn("strategy has no indicators configured, holding on every bar")
	}

	for _, spec := range s.specs {
		ind, err := indicator.New(spec.Kind, ser, spec.Params)
		if err != nil {
			return nil, err
		}

		if err := ind.Calculate(); err != nil {
			return nil, err
		}

		for _, name := range ser.DrainCollisions() {
			s.logger.Warn("indicator column collision, later indicator overwrote earlier output",
				zap.String("column", name),
				zap.String("kind", string(spec.Kind)))
		}
	}

	decisions := make([]types.Decision, ser.Len())
	names := ser.SignalNames()

	for row := range decisions {
		buy, sell := false, false

		for _, name := range names {
			sig, ok := ser.Signal(name)
			if !ok {
				continue
			}

			if !sig.Cells[row].TakeOr(false) {
				continue
			}

			switch sig.Orientation {
			case types.OrientationBuy:
				buy = true
			case types.OrientationSell:
				sell = true
			}
		}

		switch {
		case buy && !sell:
			decisions[row] = types.DecisionBuy
		case sell && !buy:
			decisions[row] = types.DecisionSell
		default:
			decisions[row] = types.DecisionHold
		}
	}

	return decisions, nil
}

// SignalSnapshot captures the signal cells at one row as the tri-state map
// recorded on order records: nil marks a missing cell.
func SignalSnapshot(ser *series.Series, row int) map[string]*bool {
	out := make(map[string]*bool)

	for _, name := range ser.SignalNames() {
		sig, ok := ser.Signal(name)
		if !ok || row < 0 || row >= len(sig.Cells) {
			continue
		}

		cell := sig.Cells[row]
		if cell.IsNone() {
			out[name] = nil
			continue
		}

		v := cell.Unwrap()
		out[name] = &v
	}

	return out
}
