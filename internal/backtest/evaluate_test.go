package backtest

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/position"
	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/strategy"
	"github.com/tradesentry/tradesentry/internal/types"
)

type EvaluateTestSuite struct {
	suite.Suite
}

func TestEvaluateSuite(t *testing.T) {
	suite.Run(t, new(EvaluateTestSuite))
}

func newCloseSeries(t *testing.T, closes ...float64) *series.Series {
	t.Helper()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Time:   base.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}

	ser, err := series.New(bars)
	if err != nil {
		t.Fatalf("failed to build series: %v", err)
	}

	return ser
}

// attachVotes wires explicit buy/sell columns so the evaluation path can be
// tested without indicator math.
func attachVotes(t *testing.T, ser *series.Series, buy, sell []bool) {
	t.Helper()

	toCells := func(bools []bool) []optional.Option[bool] {
		cells := make([]optional.Option[bool], len(bools))
		for i, b := range bools {
			cells[i] = optional.Some(b)
		}

		return cells
	}

	if err := ser.AttachSignal("test_buy", types.OrientationBuy, toCells(buy)); err != nil {
		t.Fatalf("failed to attach buy column: %v", err)
	}

	if err := ser.AttachSignal("test_sell", types.OrientationSell, toCells(sell)); err != nil {
		t.Fatalf("failed to attach sell column: %v", err)
	}
}

func (s *EvaluateTestSuite) TestEmptySeries() {
	ser := newCloseSeries(s.T())

	_, err := Evaluate(EvalConfig{Ticker: "AAPL"}, strategy.New(nil, nil), ser, nil)
	s.Require().Error(err)
}

func (s *EvaluateTestSuite) TestRoundTripTrade() {
	ser := newCloseSeries(s.T(), 100, 100, 110, 110)
	attachVotes(s.T(), ser,
		[]bool{false, true, false, false},
		[]bool{false, false, true, false})

	result, err := Evaluate(EvalConfig{Ticker: "AAPL"}, strategy.New(nil, nil), ser, logger.NewNopLogger())
	s.Require().NoError(err)

	// Buy 100 shares at 100 (nominal 10,000 allocation), reverse short at
	// 110 for +1000, and the final-bar close of the short at 110 is flat.
	perf := result.Performance
	s.Assert().Equal(2, perf.TotalTrades)
	s.Assert().Equal(1, perf.WinningTrades)
	s.Assert().Equal(0, perf.LosingTrades)
	s.Assert().InDelta(1000.0, perf.TotalPnL, 1e-9)
	s.Assert().True(math.IsInf(perf.ProfitFactor, 1))
	s.Assert().Equal(50.0, perf.WinRatePct)
	s.Assert().Equal(0.0, perf.MaxDrawdown)
	s.Assert().True(perf.SharpeRatio.IsSome())
}

func (s *EvaluateTestSuite) TestOpenPositionClosedOnFinalBar() {
	ser := newCloseSeries(s.T(), 100, 105, 120)
	attachVotes(s.T(), ser,
		[]bool{true, false, false},
		[]bool{false, false, false})

	result, err := Evaluate(EvalConfig{Ticker: "AAPL"}, strategy.New(nil, nil), ser, nil)
	s.Require().NoError(err)

	last := result.Orders[len(result.Orders)-1]
	s.Assert().Equal(types.ActionSell, last.Action)
	s.Assert().False(last.StopLossTriggered)
	s.Assert().InDelta(2000.0, last.PnLThisTrade.Unwrap(), 1e-9)
	s.Assert().Equal(1, result.Performance.TotalTrades)
}

func (s *EvaluateTestSuite) TestMatchesManuallySteppedMachine() {
	// The evaluator and a hand-driven machine over the same decisions must
	// produce identical trade trajectories.
	ser := newCloseSeries(s.T(), 100, 102, 99, 104, 101, 108)
	buy := []bool{true, false, false, true, false, false}
	sell := []bool{false, false, true, false, true, false}
	attachVotes(s.T(), ser, buy, sell)

	cfg := EvalConfig{Ticker: "AAPL", Leverage: 2}

	result, err := Evaluate(cfg, strategy.New(nil, nil), ser, nil)
	s.Require().NoError(err)

	machine, err := position.NewMachine(position.Config{
		Ticker:            "AAPL",
		Leverage:          2,
		InitialAllocation: nominalCapital,
	}, nil)
	s.Require().NoError(err)

	var manual []types.OrderRecord

	for i := 0; i < ser.Len(); i++ {
		decision := types.DecisionHold
		if buy[i] {
			decision = types.DecisionBuy
		} else if sell[i] {
			decision = types.DecisionSell
		}

		bar := ser.Bar(i)

		rec, err := machine.Step(decision, bar.Close, bar.Time, nil)
		s.Require().NoError(err)

		if rec.IsSome() {
			manual = append(manual, rec.Unwrap())
		}
	}

	if last, ok := ser.Last(); ok {
		if rec := machine.CloseAt(last.Close, last.Time, nil); rec.IsSome() {
			manual = append(manual, rec.Unwrap())
		}
	}

	s.Require().Len(result.Orders, len(manual))

	for i := range manual {
		got, want := result.Orders[i], manual[i]
		s.Assert().Equal(want.Action, got.Action)
		s.Assert().Equal(want.Price, got.Price)
		s.Assert().InDelta(want.Quantity, got.Quantity, 1e-9)
		s.Assert().Equal(want.PnLThisTrade.IsSome(), got.PnLThisTrade.IsSome())
		s.Assert().Equal(want.PnLFromPriorTrade.IsSome(), got.PnLFromPriorTrade.IsSome())

		if want.PnLFromPriorTrade.IsSome() {
			s.Assert().InDelta(want.PnLFromPriorTrade.Unwrap(), got.PnLFromPriorTrade.Unwrap(), 1e-9)
		}
	}
}

func (s *EvaluateTestSuite) TestStopLossInReplay() {
	ser := newCloseSeries(s.T(), 100, 90, 90)
	attachVotes(s.T(), ser,
		[]bool{true, false, false},
		[]bool{false, false, false})

	result, err := Evaluate(EvalConfig{
		Ticker:       "AAPL",
		StopLossFrac: optional.Some(0.05),
	}, strategy.New(nil, nil), ser, nil)
	s.Require().NoError(err)

	var stop *types.OrderRecord
	for i := range result.Orders {
		if result.Orders[i].StopLossTriggered {
			stop = &result.Orders[i]
		}
	}

	s.Require().NotNil(stop)
	s.Assert().Equal(90.0, stop.Price)
	s.Assert().Equal(1, result.Performance.LosingTrades)
}

func (s *EvaluateTestSuite) TestPerformanceEdgeCases() {
	empty := computePerformance(nil)
	s.Assert().Equal(0, empty.TotalTrades)
	s.Assert().Equal(0.0, empty.ProfitFactor)
	s.Assert().True(empty.SharpeRatio.IsNone())

	allLosses := computePerformance([]float64{-100, -50})
	s.Assert().Equal(0.0, allLosses.ProfitFactor)
	s.Assert().Equal(0.0, allLosses.WinRatePct)
	s.Assert().InDelta(150.0, allLosses.MaxDrawdown, 1e-9)
	s.Assert().InDelta(1.5, allLosses.MaxDrawdownPct, 1e-9)

	allWins := computePerformance([]float64{100, 50})
	s.Assert().True(math.IsInf(allWins.ProfitFactor, 1))
	s.Assert().Equal(100.0, allWins.WinRatePct)

	single := computePerformance([]float64{42})
	s.Assert().True(single.SharpeRatio.IsNone())

	constant := computePerformance([]float64{0, 0, 0})
	s.Assert().True(constant.SharpeRatio.IsNone())
}

func (s *EvaluateTestSuite) TestPerformanceJSONRoundTrip() {
	perf := computePerformance([]float64{100, 50})

	data, err := json.Marshal(perf)
	s.Require().NoError(err)
	s.Assert().Contains(string(data), `"profit_factor":"inf"`)
	s.Assert().Contains(string(data), `"sharpe_ratio":`)

	var decoded Performance
	s.Require().NoError(json.Unmarshal(data, &decoded))
	s.Assert().True(math.IsInf(decoded.ProfitFactor, 1))
	s.Assert().Equal(perf.TotalTrades, decoded.TotalTrades)

	noTrades := computePerformance(nil)

	data, err = json.Marshal(noTrades)
	s.Require().NoError(err)
	s.Assert().Contains(string(data), `"sharpe_ratio":"N/A"`)

	s.Require().NoError(json.Unmarshal(data, &decoded))
	s.Assert().True(decoded.SharpeRatio.IsNone())
}
