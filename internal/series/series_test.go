package series

import (
	"math"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

type SeriesTestSuite struct {
	suite.Suite
}

func TestSeriesSuite(t *testing.T) {
	suite.Run(t, new(SeriesTestSuite))
}

func (s *SeriesTestSuite) bars(n int) []types.Bar {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, n)

	for i := range bars {
		price := 100.0 + float64(i)
		bars[i] = types.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		}
	}

	return bars
}

func (s *SeriesTestSuite) TestNewRejectsNonIncreasingTimestamps() {
	bars := s.bars(3)
	bars[2].Time = bars[1].Time

	_, err := New(bars)
	s.Require().Error(err)
	s.Assert().Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func (s *SeriesTestSuite) TestColumnResolvesOHLCV() {
	ser, err := New(s.bars(3))
	s.Require().NoError(err)

	closes, err := ser.Column(ColumnClose)
	s.Require().NoError(err)
	s.Assert().Equal([]float64{100, 101, 102}, closes)

	highs, err := ser.Column(ColumnHigh)
	s.Require().NoError(err)
	s.Assert().Equal([]float64{101, 102, 103}, highs)
}

func (s *SeriesTestSuite) TestColumnMissing() {
	ser, err := New(s.bars(2))
	s.Require().NoError(err)

	_, err = ser.Column("SMA_20_Close")
	s.Require().Error(err)
	s.Assert().True(errors.IsMissingColumnError(err))
}

func (s *SeriesTestSuite) TestOHLCVIsReadOnly() {
	ser, err := New(s.bars(2))
	s.Require().NoError(err)

	closes, err := ser.Column(ColumnClose)
	s.Require().NoError(err)
	closes[0] = -1

	again, err := ser.Column(ColumnClose)
	s.Require().NoError(err)
	s.Assert().Equal(100.0, again[0])

	err = ser.AttachValues(ColumnClose, []float64{1, 2})
	s.Require().Error(err)
}

func (s *SeriesTestSuite) TestAttachValuesLengthMismatch() {
	ser, err := New(s.bars(3))
	s.Require().NoError(err)

	err = ser.AttachValues("SMA_2_Close", []float64{1, 2})
	s.Require().Error(err)
	s.Assert().Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (s *SeriesTestSuite) TestCollisionIsRecordedAndLastWriteWins() {
	ser, err := New(s.bars(2))
	s.Require().NoError(err)

	s.Require().NoError(ser.AttachValues("RSI_14", []float64{1, 2}))
	s.Require().NoError(ser.AttachValues("RSI_14", []float64{3, 4}))

	vals, err := ser.Column("RSI_14")
	s.Require().NoError(err)
	s.Assert().Equal([]float64{3, 4}, vals)

	s.Assert().Equal([]string{"RSI_14"}, ser.DrainCollisions())
	s.Assert().Empty(ser.DrainCollisions())
	s.Assert().Equal([]string{"RSI_14"}, ser.ValueNames())
}

func (s *SeriesTestSuite) TestSignalRoundTrip() {
	ser, err := New(s.bars(2))
	s.Require().NoError(err)

	cells := []optional.Option[bool]{optional.Some(true), optional.None[bool]()}
	s.Require().NoError(ser.AttachSignal("Breakout_Bullish_Signal_20", types.OrientationBuy, cells))

	sig, ok := ser.Signal("Breakout_Bullish_Signal_20")
	s.Require().True(ok)
	s.Assert().Equal(types.OrientationBuy, sig.Orientation)
	s.Assert().True(sig.Cells[0].IsSome())
	s.Assert().True(sig.Cells[1].IsNone())
	s.Assert().Equal([]string{"Breakout_Bullish_Signal_20"}, ser.SignalNames())
}

func (s *SeriesTestSuite) TestCloneIsIndependent() {
	ser, err := New(s.bars(2))
	s.Require().NoError(err)
	s.Require().NoError(ser.AttachValues("ATR_14", []float64{math.NaN(), 2}))

	clone := ser.Clone()
	s.Require().NoError(clone.AttachValues("ATR_14", []float64{9, 9}))

	orig, err := ser.Column("ATR_14")
	s.Require().NoError(err)
	s.Assert().True(IsMissing(orig[0]))
	s.Assert().Equal(2.0, orig[1])
	s.Assert().Empty(ser.DrainCollisions())
}

func (s *SeriesTestSuite) TestLast() {
	ser, err := New(nil)
	s.Require().NoError(err)
	_, ok := ser.Last()
	s.Assert().False(ok)

	ser, err = New(s.bars(3))
	s.Require().NoError(err)
	last, ok := ser.Last()
	s.Require().True(ok)
	s.Assert().Equal(102.0, last.Close)
}
