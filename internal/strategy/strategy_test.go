package strategy

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/tradesentry/tradesentry/internal/indicator"
	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

type StrategyTestSuite struct {
	suite.Suite
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (s *StrategyTestSuite) newSeries(closes ...float64) *series.Series {
	s.T().Helper()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}

	ser, err := series.New(bars)
	s.Require().NoError(err)

	return ser
}

func (s *StrategyTestSuite) TestEmptyStrategyHoldsEverywhere() {
	ser := s.newSeries(1, 2, 3)

	strat := New(nil, logger.NewNopLogger())

	decisions, err := strat.Run(ser)
	s.Require().NoError(err)
	s.Assert().Equal([]types.Decision{types.DecisionHold, types.DecisionHold, types.DecisionHold}, decisions)
}

func (s *StrategyTestSuite) TestUnknownKindFails() {
	ser := s.newSeries(1, 2, 3)

	strat := New([]indicator.Spec{{Kind: "parabolic_sar"}}, logger.NewNopLogger())

	_, err := strat.Run(ser)
	s.Require().Error(err)
	s.Assert().Equal(errors.ErrCodeIndicatorNotFound, errors.GetCode(err))
}

func (s *StrategyTestSuite) TestInsufficientDataPropagates() {
	ser := s.newSeries(1, 2, 3)

	strat := New([]indicator.Spec{
		{Kind: types.IndicatorKindMovingAverage, Params: indicator.Params{"window": 10}},
	}, logger.NewNopLogger())

	_, err := strat.Run(ser)
	s.Require().Error(err)
	s.Assert().True(errors.IsInsufficientDataError(err))
}

func (s *StrategyTestSuite) TestSingleIndicatorVotes() {
	// Close dips under the three-bar average and then recovers above it,
	// producing one bullish cross.
	ser := s.newSeries(10, 9, 8, 9, 10)

	strat := New([]indicator.Spec{
		{Kind: types.IndicatorKindMovingAverage, Params: indicator.Params{"window": 3}},
	}, logger.NewNopLogger())

	decisions, err := strat.Run(ser)
	s.Require().NoError(err)
	s.Require().Len(decisions, 5)

	s.Assert().Equal(types.DecisionBuy, decisions[3])
	for _, i := range []int{0, 1, 2, 4} {
		s.Assert().Equal(types.DecisionHold, decisions[i])
	}
}

func (s *StrategyTestSuite) TestConflictingVotesHold() {
	ser := s.newSeries(1, 2, 3)

	buyCells := []optional.Option[bool]{optional.Some(true), optional.Some(false), optional.Some(true)}
	sellCells := []optional.Option[bool]{optional.Some(false), optional.Some(true), optional.Some(true)}

	s.Require().NoError(ser.AttachSignal("up_vote", types.OrientationBuy, buyCells))
	s.Require().NoError(ser.AttachSignal("down_vote", types.OrientationSell, sellCells))

	strat := New(nil, logger.NewNopLogger())

	decisions, err := strat.Run(ser)
	s.Require().NoError(err)
	s.Assert().Equal([]types.Decision{types.DecisionBuy, types.DecisionSell, types.DecisionHold}, decisions)
}

func (s *StrategyTestSuite) TestMissingCellsCastNoVote() {
	ser := s.newSeries(1, 2)

	cells := []optional.Option[bool]{optional.None[bool](), optional.Some(true)}
	s.Require().NoError(ser.AttachSignal("sparse", types.OrientationBuy, cells))

	strat := New(nil, logger.NewNopLogger())

	decisions, err := strat.Run(ser)
	s.Require().NoError(err)
	s.Assert().Equal([]types.Decision{types.DecisionHold, types.DecisionBuy}, decisions)
}

func (s *StrategyTestSuite) TestSignalSnapshot() {
	ser := s.newSeries(1, 2)

	cells := []optional.Option[bool]{optional.None[bool](), optional.Some(true)}
	s.Require().NoError(ser.AttachSignal("sparse", types.OrientationBuy, cells))

	snap := SignalSnapshot(ser, 0)
	s.Require().Contains(snap, "sparse")
	s.Assert().Nil(snap["sparse"])

	snap = SignalSnapshot(ser, 1)
	s.Require().NotNil(snap["sparse"])
	s.Assert().True(*snap["sparse"])
}

func (s *StrategyTestSuite) TestDuplicateIndicatorsAreTolerated() {
	ser := s.newSeries(10, 9, 8, 9, 10)

	spec := indicator.Spec{Kind: types.IndicatorKindMovingAverage, Params: indicator.Params{"window": 3}}
	strat := New([]indicator.Spec{spec, spec}, logger.NewNopLogger())

	// Identical columns collide, which is logged and the run continues.
	decisions, err := strat.Run(ser)
	s.Require().NoError(err)
	s.Assert().Equal(types.DecisionBuy, decisions[3])
}
