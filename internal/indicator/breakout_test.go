package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tradesentry/tradesentry/pkg/errors"
)

type BreakoutTestSuite struct {
	suite.Suite
}

func TestBreakoutSuite(t *testing.T) {
	suite.Run(t, new(BreakoutTestSuite))
}

func (s *BreakoutTestSuite) TestInsufficientData() {
	ser := newTestSeries(s.T(), 1, 2, 3)

	_, err := NewBreakout(ser, Params{"window": 3})
	s.Require().Error(err)
	s.Assert().True(errors.IsInsufficientDataError(err))
}

func (s *BreakoutTestSuite) TestMissingColumn() {
	ser := newTestSeries(s.T(), 1, 2, 3, 4, 5)

	_, err := NewBreakout(ser, Params{"window": 3, "high_col": "AdjHigh"})
	s.Require().Error(err)
	s.Assert().True(errors.IsMissingColumnError(err))
}

func (s *BreakoutTestSuite) TestBullishBreakout() {
	// Highs sit one above the close, so the trailing window high is 101 and
	// only the final close pierces it.
	ser := newTestSeries(s.T(), 100, 100, 100, 100, 100, 102)

	br, err := NewBreakout(ser, Params{"window": 3})
	s.Require().NoError(err)
	s.Require().NoError(br.Calculate())

	bullish := signalBools(&s.Suite, ser, "Breakout_Bullish_Signal_3")
	bearish := signalBools(&s.Suite, ser, "Breakout_Bearish_Signal_3")

	s.Assert().Equal([]bool{false, false, false, false, false, true}, bullish)
	for _, fired := range bearish {
		s.Assert().False(fired)
	}
}

func (s *BreakoutTestSuite) TestBearishBreakout() {
	ser := newTestSeries(s.T(), 100, 100, 100, 100, 100, 97)

	br, err := NewBreakout(ser, Params{"window": 3})
	s.Require().NoError(err)
	s.Require().NoError(br.Calculate())

	bearish := signalBools(&s.Suite, ser, "Breakout_Bearish_Signal_3")
	s.Assert().Equal([]bool{false, false, false, false, false, true}, bearish)
}

func (s *BreakoutTestSuite) TestExtremesExcludeCurrentBar() {
	// A steadily rising close always exceeds the previous window's high, so
	// every bar past the lookback is a bullish breakout. Including the current
	// bar in the window would suppress all of them.
	ser := newTestSeries(s.T(), 100, 103, 106, 109, 112, 115)

	br, err := NewBreakout(ser, Params{"window": 3})
	s.Require().NoError(err)
	s.Require().NoError(br.Calculate())

	bullish := signalBools(&s.Suite, ser, "Breakout_Bullish_Signal_3")
	s.Assert().Equal([]bool{false, false, false, true, true, true}, bullish)
}
