package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tradesentry/tradesentry/pkg/errors"
)

type MovingAverageTestSuite struct {
	suite.Suite
}

func TestMovingAverageSuite(t *testing.T) {
	suite.Run(t, new(MovingAverageTestSuite))
}

func (s *MovingAverageTestSuite) TestInsufficientData() {
	ser := newTestSeries(s.T(), 1, 2, 3)

	_, err := NewMovingAverage(ser, Params{"window": 5})
	s.Require().Error(err)
	s.Assert().True(errors.IsInsufficientDataError(err))

	var insufficient *errors.InsufficientDataError
	s.Require().True(errors.As(err, &insufficient))
	s.Assert().Equal(5, insufficient.Required)
	s.Assert().Equal(3, insufficient.Actual)
}

func (s *MovingAverageTestSuite) TestMissingColumn() {
	ser := newTestSeries(s.T(), 1, 2, 3)

	_, err := NewMovingAverage(ser, Params{"window": 2, "column": "VWAP"})
	s.Require().Error(err)
	s.Assert().True(errors.IsMissingColumnError(err))
}

func (s *MovingAverageTestSuite) TestInvalidMAType() {
	ser := newTestSeries(s.T(), 1, 2, 3)

	_, err := NewMovingAverage(ser, Params{"window": 2, "ma_type": "hull"})
	s.Require().Error(err)
	s.Assert().Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
}

func (s *MovingAverageTestSuite) TestSMAValuesAndCross() {
	ser := newTestSeries(s.T(), 10, 9, 8, 9, 10)

	ma, err := NewMovingAverage(ser, Params{"window": 3, "ma_type": "sma"})
	s.Require().NoError(err)
	s.Require().NoError(ma.Calculate())

	vals, err := ser.Column("SMA_3_Close")
	s.Require().NoError(err)
	s.Assert().True(math.IsNaN(vals[0]))
	s.Assert().True(math.IsNaN(vals[1]))
	s.Assert().True(almostEqual(vals[2], 9))
	s.Assert().True(almostEqual(vals[3], 26.0/3))
	s.Assert().True(almostEqual(vals[4], 9))

	buy := signalBools(&s.Suite, ser, "SMA_3_Close_Cross_Above")
	sell := signalBools(&s.Suite, ser, "SMA_3_Close_Cross_Below")

	s.Assert().Equal([]bool{false, false, false, true, false}, buy)
	s.Assert().Equal([]bool{false, false, false, false, false}, sell)
}

func (s *MovingAverageTestSuite) TestEMAMatchesSeededRecursion() {
	// span 3 gives alpha 0.5: 2, 3, 4.5, 6.25 with the first three masked by
	// the minimum window.
	ser := newTestSeries(s.T(), 2, 4, 6, 8)

	ma, err := NewMovingAverage(ser, Params{"window": 3, "ma_type": "ema"})
	s.Require().NoError(err)
	s.Require().NoError(ma.Calculate())

	vals, err := ser.Column("EMA_3_Close")
	s.Require().NoError(err)
	s.Assert().True(almostEqual(vals[2], 4.5))
	s.Assert().True(almostEqual(vals[3], 6.25))
}

func (s *MovingAverageTestSuite) TestLookbackRowsNeverFire() {
	ser := newTestSeries(s.T(), 10, 9, 8, 9, 10)

	ma, err := NewMovingAverage(ser, Params{"window": 3})
	s.Require().NoError(err)
	s.Require().NoError(ma.Calculate())

	buy := signalBools(&s.Suite, ser, "SMA_3_Close_Cross_Above")
	sell := signalBools(&s.Suite, ser, "SMA_3_Close_Cross_Below")

	for i := 0; i < 3; i++ {
		s.Assert().False(buy[i])
		s.Assert().False(sell[i])
	}

	assertAllDefined(&s.Suite, ser, "SMA_3_Close_Cross_Above")
	assertAllDefined(&s.Suite, ser, "SMA_3_Close_Cross_Below")
}

func (s *MovingAverageTestSuite) TestCalculateIsIdempotent() {
	ser := newTestSeries(s.T(), 10, 9, 8, 9, 10)

	ma, err := NewMovingAverage(ser, Params{"window": 3})
	s.Require().NoError(err)
	s.Require().NoError(ma.Calculate())

	first, err := ser.Column("SMA_3_Close")
	s.Require().NoError(err)
	firstBuy := signalBools(&s.Suite, ser, "SMA_3_Close_Cross_Above")
	ser.DrainCollisions()

	s.Require().NoError(ma.Calculate())

	second, err := ser.Column("SMA_3_Close")
	s.Require().NoError(err)
	secondBuy := signalBools(&s.Suite, ser, "SMA_3_Close_Cross_Above")

	for i := range first {
		s.Assert().True(almostEqual(first[i], second[i]))
	}

	s.Assert().Equal(firstBuy, secondBuy)
	s.Assert().NotEmpty(ser.DrainCollisions())
}
