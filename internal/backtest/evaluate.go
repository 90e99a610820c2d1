// Package backtest replays a strategy over historical bars through the shared
// position machine, scores the result, and persists the optimizer output
// document the live monitor consumes.
package backtest

import (
	"encoding/json"
	"math"

	"github.com/moznion/go-optional"

	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/position"
	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/strategy"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// nominalCapital anchors the synthetic equity walk used for drawdown and
// return figures.
const nominalCapital = 10000.0

// EvalConfig parameterizes one backtest evaluation. Stop-loss and take-profit
// are fractions of the entry price.
type EvalConfig struct {
	Ticker            string
	Leverage          float64
	StopLossFrac      optional.Option[float64]
	TakeProfitFrac    optional.Option[float64]
	InitialAllocation float64
}

// Result is one finished evaluation: the full order log and its metrics.
type Result struct {
	Orders      []types.OrderRecord
	Performance Performance
}

// Performance aggregates the realized trades of one run. ProfitFactor may be
// +Inf; SharpeRatio is None when fewer than two trades closed or their
// returns have zero variance.
type Performance struct {
	TotalTrades    int
	WinningTrades  int
	LosingTrades   int
	WinRatePct     float64
	GrossProfit    float64
	GrossLoss      float64
	TotalPnL       float64
	AvgPnL         float64
	ProfitFactor   float64
	MaxDrawdown    float64
	MaxDrawdownPct float64
	SharpeRatio    optional.Option[float64]
}

// performanceDoc is the wire shape. Non-finite floats are not valid JSON, so
// profit factor serializes +Inf as the string "inf" and a missing Sharpe
// ratio as "N/A".
type performanceDoc struct {
	TotalTrades    int     `json:"total_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
	WinRatePct     float64 `json:"win_rate_pct"`
	GrossProfit    float64 `json:"gross_profit"`
	GrossLoss      float64 `json:"gross_loss"`
	TotalPnL       float64 `json:"total_pnl"`
	AvgPnL         float64 `json:"avg_pnl"`
	ProfitFactor   any     `json:"profit_factor"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    any     `json:"sharpe_ratio"`
}

// MarshalJSON implements json.Marshaler.
func (p Performance) MarshalJSON() ([]byte, error) {
	doc := performanceDoc{
		TotalTrades:    p.TotalTrades,
		WinningTrades:  p.WinningTrades,
		LosingTrades:   p.LosingTrades,
		WinRatePct:     p.WinRatePct,
		GrossProfit:    p.GrossProfit,
		GrossLoss:      p.GrossLoss,
		TotalPnL:       p.TotalPnL,
		AvgPnL:         p.AvgPnL,
		MaxDrawdown:    p.MaxDrawdown,
		MaxDrawdownPct: p.MaxDrawdownPct,
	}

	switch {
	case math.IsInf(p.ProfitFactor, 1):
		doc.ProfitFactor = "inf"
	case math.IsNaN(p.ProfitFactor):
		doc.ProfitFactor = nil
	default:
		doc.ProfitFactor = p.ProfitFactor
	}

	if p.SharpeRatio.IsSome() {
		doc.SharpeRatio = p.SharpeRatio.Unwrap()
	} else {
		doc.SharpeRatio = "N/A"
	}

	return json.Marshal(doc)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Performance) UnmarshalJSON(data []byte) error {
	var doc performanceDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	p.TotalTrades = doc.TotalTrades
	p.WinningTrades = doc.WinningTrades
	p.LosingTrades = doc.LosingTrades
	p.WinRatePct = doc.WinRatePct
	p.GrossProfit = doc.GrossProfit
	p.GrossLoss = doc.GrossLoss
	p.TotalPnL = doc.TotalPnL
	p.AvgPnL = doc.AvgPnL
	p.MaxDrawdown = doc.MaxDrawdown
	p.MaxDrawdownPct = doc.MaxDrawdownPct

	switch v := doc.ProfitFactor.(type) {
	case string:
		p.ProfitFactor = math.Inf(1)
	case float64:
		p.ProfitFactor = v
	default:
		p.ProfitFactor = math.NaN()
	}

	if v, ok := doc.SharpeRatio.(float64); ok {
		p.SharpeRatio = optional.Some(v)
	} else {
		p.SharpeRatio = optional.None[float64]()
	}

	return nil
}

// Evaluate replays the strategy over the series through a fresh position
// machine, closing any open position on the final bar.
func Evaluate(cfg EvalConfig, strat *strategy.Strategy, ser *series.Series, log *logger.Logger) (*Result, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if ser.Len() == 0 {
		return nil, errors.New(errors.ErrCodeEmptySeries, "cannot evaluate an empty series")
	}

	if cfg.InitialAllocation <= 0 {
		cfg.InitialAllocation = nominalCapital
	}

	working := ser.Clone()

	decisions, err := strat.Run(working)
	if err != nil {
		return nil, err
	}

	machine, err := position.NewMachine(position.Config{
		Ticker:            cfg.Ticker,
		Leverage:          cfg.Leverage,
		StopLossFrac:      cfg.StopLossFrac,
		TakeProfitFrac:    cfg.TakeProfitFrac,
		InitialAllocation: cfg.InitialAllocation,
	}, log)
	if err != nil {
		return nil, err
	}

	orders := make([]types.OrderRecord, 0, working.Len())

	for i := 0; i < working.Len(); i++ {
		bar := working.Bar(i)

		rec, err := machine.Step(decisions[i], bar.Close, bar.Time, strategy.SignalSnapshot(working, i))
		if err != nil {
			return nil, err
		}

		if rec.IsSome() {
			orders = append(orders, rec.Unwrap())
		}
	}

	if last, ok := working.Last(); ok {
		if rec := machine.CloseAt(last.Close, last.Time, strategy.SignalSnapshot(working, working.Len()-1)); rec.IsSome() {
			orders = append(orders, rec.Unwrap())
		}
	}

	return &Result{
		Orders:      orders,
		Performance: computePerformance(tradePnLs(orders)),
	}, nil
}

// tradePnLs extracts the realized P&L of every closed trade, in order.
// Reversals carry their prior trade's P&L on the opening record.
func tradePnLs(orders []types.OrderRecord) []float64 {
	var pnls []float64

	for _, o := range orders {
		if o.PnLThisTrade.IsSome() {
			pnls = append(pnls, o.PnLThisTrade.Unwrap())
		}

		if o.PnLFromPriorTrade.IsSome() {
			pnls = append(pnls, o.PnLFromPriorTrade.Unwrap())
		}
	}

	return pnls
}

func computePerformance(pnls []float64) Performance {
	perf := Performance{SharpeRatio: optional.None[float64]()}
	perf.TotalTrades = len(pnls)

	if len(pnls) == 0 {
		return perf
	}

	for _, pnl := range pnls {
		perf.TotalPnL += pnl

		switch {
		case pnl > 0:
			perf.WinningTrades++
			perf.GrossProfit += pnl
		case pnl < 0:
			perf.LosingTrades++
			perf.GrossLoss += -pnl
		}
	}

	perf.WinRatePct = float64(perf.WinningTrades) / float64(perf.TotalTrades) * 100
	perf.AvgPnL = perf.TotalPnL / float64(perf.TotalTrades)

	switch {
	case perf.GrossLoss > 0:
		perf.ProfitFactor = perf.GrossProfit / perf.GrossLoss
	case perf.GrossProfit > 0:
		perf.ProfitFactor = math.Inf(1)
	default:
		perf.ProfitFactor = 0
	}

	// Synthetic equity walk off nominal capital for drawdown and per-trade
	// returns.
	equity := nominalCapital
	peak := equity
	returns := make([]float64, 0, len(pnls))

	for _, pnl := range pnls {
		returns = append(returns, pnl/equity)
		equity += pnl

		if equity > peak {
			peak = equity
		}

		drawdown := peak - equity
		if drawdown > perf.MaxDrawdown {
			perf.MaxDrawdown = drawdown

			if peak > 0 {
				perf.MaxDrawdownPct = drawdown / peak * 100
			}
		}
	}

	if len(returns) >= 2 {
		mean := 0.0
		for _, r := range returns {
			mean += r
		}
		mean /= float64(len(returns))

		variance := 0.0
		for _, r := range returns {
			variance += (r - mean) * (r - mean)
		}
		variance /= float64(len(returns) - 1)

		if variance > 0 {
			perf.SharpeRatio = optional.Some(mean / math.Sqrt(variance))
		}
	}

	return perf
}
