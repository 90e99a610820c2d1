package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tradesentry/tradesentry/pkg/errors"
)

type MACDTestSuite struct {
	suite.Suite
}

func TestMACDSuite(t *testing.T) {
	suite.Run(t, new(MACDTestSuite))
}

func (s *MACDTestSuite) TestInvalidPeriods() {
	ser := newTestSeries(s.T(), 1, 2, 3, 4, 5)

	_, err := NewMACD(ser, Params{"fast_period": 26, "slow_period": 12})
	s.Require().Error(err)
	s.Assert().Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))

	_, err = NewMACD(ser, Params{"fast_period": 0})
	s.Require().Error(err)
	s.Assert().Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (s *MACDTestSuite) TestInsufficientData() {
	ser := newTestSeries(s.T(), 1, 2, 3, 4, 5)

	_, err := NewMACD(ser, Params{"fast_period": 3, "slow_period": 10, "signal_period": 3})
	s.Require().Error(err)
	s.Assert().True(errors.IsInsufficientDataError(err))
}

func (s *MACDTestSuite) TestIncreasingSeriesProducesDefinedColumns() {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	ser := newTestSeries(s.T(), closes...)

	macd, err := NewMACD(ser, nil)
	s.Require().NoError(err)
	s.Require().NoError(macd.Calculate())

	for _, col := range []string{"MACD_12_26", "MACD_Signal_9", "MACD_Hist_12_26_9"} {
		vals, err := ser.Column(col)
		s.Require().NoError(err)
		s.Require().Len(vals, 40)
	}

	assertAllDefined(&s.Suite, ser, "MACD_Cross_Above_12_26_9")
	assertAllDefined(&s.Suite, ser, "MACD_Cross_Below_12_26_9")

	// A steadily rising price keeps the fast EMA above the slow EMA, so the
	// MACD line ends up positive and above its signal line.
	macdVals, err := ser.Column("MACD_12_26")
	s.Require().NoError(err)
	hist, err := ser.Column("MACD_Hist_12_26_9")
	s.Require().NoError(err)

	s.Assert().Greater(macdVals[39], 0.0)
	s.Assert().Greater(hist[39], 0.0)
}

func (s *MACDTestSuite) TestCrossesFireAroundReversal() {
	// Decline into a trough, then recover. The MACD line crosses below its
	// signal on the way down and back above after the turn.
	closes := make([]float64, 40)
	for i := range closes {
		if i < 20 {
			closes[i] = 200 - float64(i)*3
		} else {
			closes[i] = 140 + float64(i-20)*3
		}
	}

	ser := newTestSeries(s.T(), closes...)

	macd, err := NewMACD(ser, Params{"fast_period": 5, "slow_period": 10, "signal_period": 4})
	s.Require().NoError(err)
	s.Require().NoError(macd.Calculate())

	buy := signalBools(&s.Suite, ser, "MACD_Cross_Above_5_10_4")
	sell := signalBools(&s.Suite, ser, "MACD_Cross_Below_5_10_4")

	anyBuy, anySell := false, false
	for i := range buy {
		if buy[i] && i >= 20 {
			anyBuy = true
		}
		if sell[i] && i < 20 {
			anySell = true
		}
	}

	s.Assert().True(anyBuy, "expected a bullish cross after the trough")
	s.Assert().True(anySell, "expected a bearish cross during the decline")
}
