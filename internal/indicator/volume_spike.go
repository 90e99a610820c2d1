package indicator

import (
	"fmt"
	"math"

	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// VolumeSpike fires a buy vote when the current volume exceeds the rolling
// mean volume scaled by a spike multiplier. It has no sell column.
type VolumeSpike struct {
	s          *series.Series
	window     int
	multiplier float64
	volumeCol  string

	spikeCol string
}

// NewVolumeSpike creates a volume spike indicator.
// Parameters: window (int, default 20), spike_multiplier (float, default 2.0),
// volume_col (string, default "Volume").
func NewVolumeSpike(s *series.Series, params Params) (*VolumeSpike, error) {
	window, err := params.Int("window", 20)
	if err != nil {
		return nil, err
	}

	if window <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "window must be positive, got %d", window)
	}

	multiplier, err := params.Float("spike_multiplier", 2.0)
	if err != nil {
		return nil, err
	}

	volumeCol, err := params.String("volume_col", series.ColumnVolume)
	if err != nil {
		return nil, err
	}

	if !s.HasColumn(volumeCol) {
		return nil, errors.NewMissingColumnError(volumeCol)
	}

	if s.Len() < window {
		return nil, errors.NewInsufficientDataErrorf(window, s.Len(), "",
			"insufficient data for volume spike (window %d): %d bars provided, requires at least %d",
			window, s.Len(), window)
	}

	return &VolumeSpike{
		s:          s,
		window:     window,
		multiplier: multiplier,
		volumeCol:  volumeCol,
		spikeCol:   fmt.Sprintf("Volume_Spike_Signal_%d_%s", window, formatParam(multiplier)),
	}, nil
}

// Kind implements Indicator.
func (v *VolumeSpike) Kind() types.IndicatorKind {
	return types.IndicatorKindVolumeSpike
}

// SignalOrientations implements Indicator.
func (v *VolumeSpike) SignalOrientations() map[string]types.Orientation {
	return map[string]types.Orientation{
		v.spikeCol: types.OrientationBuy,
	}
}

// Calculate appends the volume spike signal column.
func (v *VolumeSpike) Calculate() error {
	volume, err := v.s.Column(v.volumeCol)
	if err != nil {
		return err
	}

	// Missing volume counts as zero in the baseline so a few gaps do not
	// blank the rolling average, but a missing current volume never spikes.
	filled := make([]float64, len(volume))
	for i, vol := range volume {
		if math.IsNaN(vol) {
			filled[i] = 0
		} else {
			filled[i] = vol
		}
	}

	avg := rollingMean(filled, v.window, v.window)

	spike := make([]bool, len(volume))
	for i := range volume {
		spike[i] = volume[i] > avg[i]*v.multiplier
	}

	return v.s.AttachSignal(v.spikeCol, types.OrientationBuy, someCells(spike))
}
