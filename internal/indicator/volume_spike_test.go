package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

type VolumeSpikeTestSuite struct {
	suite.Suite
}

func TestVolumeSpikeSuite(t *testing.T) {
	suite.Run(t, new(VolumeSpikeTestSuite))
}

func volumeBars(volumes ...float64) []types.Bar {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(volumes))

	for i, v := range volumes {
		bars[i] = types.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   100,
			High:   101,
			Low:    99,
			Close:  100,
			Volume: v,
		}
	}

	return bars
}

func (s *VolumeSpikeTestSuite) TestInsufficientData() {
	ser := newBarSeries(s.T(), volumeBars(100, 100))

	_, err := NewVolumeSpike(ser, Params{"window": 3})
	s.Require().Error(err)
	s.Assert().True(errors.IsInsufficientDataError(err))
}

func (s *VolumeSpikeTestSuite) TestBuyOnlyOrientation() {
	ser := newBarSeries(s.T(), volumeBars(100, 100, 100))

	vs, err := NewVolumeSpike(ser, Params{"window": 3})
	s.Require().NoError(err)

	orientations := vs.SignalOrientations()
	s.Require().Len(orientations, 1)
	s.Assert().Equal(types.OrientationBuy, orientations["Volume_Spike_Signal_3_2.0"])
}

func (s *VolumeSpikeTestSuite) TestSpikeAgainstRollingAverage() {
	// The rolling average includes the current bar, so the spike must clear
	// the multiplier against an average it is itself part of.
	ser := newBarSeries(s.T(), volumeBars(100, 100, 100, 250))

	vs, err := NewVolumeSpike(ser, Params{"window": 3, "spike_multiplier": 1.2})
	s.Require().NoError(err)
	s.Require().NoError(vs.Calculate())

	fired := signalBools(&s.Suite, ser, "Volume_Spike_Signal_3_1.2")
	s.Assert().Equal([]bool{false, false, false, true}, fired)
}

func (s *VolumeSpikeTestSuite) TestFlatVolumeNeverSpikes() {
	ser := newBarSeries(s.T(), volumeBars(100, 100, 100, 100, 100))

	vs, err := NewVolumeSpike(ser, Params{"window": 3, "spike_multiplier": 1.05})
	s.Require().NoError(err)
	s.Require().NoError(vs.Calculate())

	for _, fired := range signalBools(&s.Suite, ser, "Volume_Spike_Signal_3_1.05") {
		s.Assert().False(fired)
	}
}

func (s *VolumeSpikeTestSuite) TestMissingVolumeTreatedAsZeroInBaseline() {
	ser := newBarSeries(s.T(), volumeBars(100, 100, math.NaN(), 400))

	vs, err := NewVolumeSpike(ser, Params{"window": 2, "spike_multiplier": 1.5})
	s.Require().NoError(err)
	s.Require().NoError(vs.Calculate())

	fired := signalBools(&s.Suite, ser, "Volume_Spike_Signal_2_1.5")

	// The missing bar never fires, while the zero-filled baseline keeps the
	// following bar's average defined.
	s.Assert().False(fired[2])
	s.Assert().True(fired[3])
}
