package backtest

import (
	"sort"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/tradesentry/tradesentry/internal/indicator"
	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/strategy"
	"github.com/tradesentry/tradesentry/internal/types"
)

// Optimizer grid-searches each indicator's parameter space independently and
// keeps the best-scoring configuration per kind.
type Optimizer struct {
	logger       *logger.Logger
	showProgress bool
}

// NewOptimizer creates an optimizer. Progress rendering writes to stderr and
// can be disabled for child processes and tests.
func NewOptimizer(log *logger.Logger, showProgress bool) *Optimizer {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Optimizer{logger: log, showProgress: showProgress}
}

// BestConfigurations searches every registered indicator kind over its
// parameter grid and returns the winning spec per kind. Kinds whose entire
// grid fails on the series (usually too few bars) are omitted.
func (o *Optimizer) BestConfigurations(ser *series.Series) ([]indicator.Spec, error) {
	var specs []indicator.Spec

	for _, kind := range indicator.Kinds() {
		space, err := indicator.SearchSpace(kind)
		if err != nil {
			return nil, err
		}

		combos := enumerate(space)

		var bar *progressbar.ProgressBar
		if o.showProgress {
			bar = progressbar.Default(int64(len(combos)), "optimizing "+string(kind))
		}

		var (
			best      indicator.Params
			bestScore float64
			found     bool
		)

		for _, params := range combos {
			if bar != nil {
				_ = bar.Add(1)
			}

			score, ok := o.score(kind, params, ser)
			if !ok {
				continue
			}

			// >= so later grid entries win ties, favoring non-default
			// parameters the way the original search did.
			if !found || score >= bestScore {
				best = params
				bestScore = score
				found = true
			}
		}

		if !found {
			o.logger.Warn("no viable configuration for indicator",
				zap.String("kind", string(kind)),
				zap.Int("bars", ser.Len()))

			continue
		}

		o.logger.Info("selected indicator configuration",
			zap.String("kind", string(kind)),
			zap.Any("params", best),
			zap.Float64("score", bestScore))

		specs = append(specs, indicator.Spec{Kind: kind, Params: best})
	}

	return specs, nil
}

// score evaluates one parameter combination with a placeholder directional
// close-to-close P&L: each BUY bar earns the next bar's close move, each SELL
// bar earns its inverse.
func (o *Optimizer) score(kind types.IndicatorKind, params indicator.Params, ser *series.Series) (float64, bool) {
	working := ser.Clone()

	strat := strategy.New([]indicator.Spec{{Kind: kind, Params: params}}, o.logger)

	decisions, err := strat.Run(working)
	if err != nil {
		return 0, false
	}

	closes, err := working.Column(series.ColumnClose)
	if err != nil {
		return 0, false
	}

	score := 0.0

	for i := 0; i+1 < len(closes); i++ {
		move := closes[i+1] - closes[i]

		switch decisions[i] {
		case types.DecisionBuy:
			score += move
		case types.DecisionSell:
			score -= move
		}
	}

	return score, true
}

// enumerate expands a parameter grid into its cartesian product. Parameter
// names iterate in sorted order so the combination sequence is deterministic.
func enumerate(space map[string][]any) []indicator.Params {
	names := make([]string, 0, len(space))
	for name := range space {
		names = append(names, name)
	}

	sort.Strings(names)

	combos := []indicator.Params{{}}

	for _, name := range names {
		next := make([]indicator.Params, 0, len(combos)*len(space[name]))

		for _, combo := range combos {
			for _, value := range space[name] {
				expanded := make(indicator.Params, len(combo)+1)
				for k, v := range combo {
					expanded[k] = v
				}

				expanded[name] = value
				next = append(next, expanded)
			}
		}

		combos = next
	}

	return combos
}
