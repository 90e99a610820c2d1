package indicator

import (
	"fmt"
	"math"

	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// RSI computes the Relative Strength Index with Wilder smoothing: the average
// gain and loss are seeded with a simple mean over the first period bars, then
// smoothed recursively. RSI is 100 when the average loss is exactly zero.
type RSI struct {
	s          *series.Series
	period     int
	column     string
	oversold   float64
	overbought float64

	rsiCol        string
	oversoldCol   string
	overboughtCol string
}

// NewRSI creates an RSI indicator.
// Parameters: period (int, default 14), column (string, default "Close"),
// rsi_oversold (float, default 30), rsi_overbought (float, default 70).
// Requires period+1 bars so at least one Wilder smoothing step occurs.
func NewRSI(s *series.Series, params Params) (*RSI, error) {
	period, err := params.Int("period", 14)
	if err != nil {
		return nil, err
	}

	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "period must be positive, got %d", period)
	}

	column, err := params.String("column", series.ColumnClose)
	if err != nil {
		return nil, err
	}

	if !s.HasColumn(column) {
		return nil, errors.NewMissingColumnError(column)
	}

	oversold, err := params.Float("rsi_oversold", 30)
	if err != nil {
		return nil, err
	}

	overbought, err := params.Float("rsi_overbought", 70)
	if err != nil {
		return nil, err
	}

	if s.Len() < period+1 {
		return nil, errors.NewInsufficientDataErrorf(period+1, s.Len(), "",
			"insufficient data for RSI (period %d): %d bars provided, requires at least %d",
			period, s.Len(), period+1)
	}

	return &RSI{
		s:             s,
		period:        period,
		column:        column,
		oversold:      oversold,
		overbought:    overbought,
		rsiCol:        fmt.Sprintf("RSI_%d", period),
		oversoldCol:   fmt.Sprintf("RSI_Oversold_Signal_%d", period),
		overboughtCol: fmt.Sprintf("RSI_Overbought_Signal_%d", period),
	}, nil
}

// Kind implements Indicator.
func (r *RSI) Kind() types.IndicatorKind {
	return types.IndicatorKindRSI
}

// SignalOrientations implements Indicator.
func (r *RSI) SignalOrientations() map[string]types.Orientation {
	return map[string]types.Orientation{
		r.oversoldCol:   types.OrientationBuy,
		r.overboughtCol: types.OrientationSell,
	}
}

// Calculate appends the RSI column and the oversold/overbought signal columns.
func (r *RSI) Calculate() error {
	price, err := r.s.Column(r.column)
	if err != nil {
		return err
	}

	n := len(price)
	gain := make([]float64, n)
	loss := make([]float64, n)

	gain[0] = math.NaN()
	loss[0] = math.NaN()

	for i := 1; i < n; i++ {
		delta := price[i] - price[i-1]

		switch {
		case math.IsNaN(delta):
			gain[i] = math.NaN()
			loss[i] = math.NaN()
		case delta > 0:
			gain[i] = delta
			loss[i] = 0
		case delta < 0:
			gain[i] = 0
			loss[i] = -delta
		default:
			gain[i] = 0
			loss[i] = 0
		}
	}

	// Seed with a simple mean over the first period deltas, Wilder smoothing
	// afterwards.
	avgGain := rollingMean(gain, r.period, r.period)
	avgLoss := rollingMean(loss, r.period, r.period)

	for i := r.period + 1; i < n; i++ {
		avgGain[i] = (avgGain[i-1]*float64(r.period-1) + gain[i]) / float64(r.period)
		avgLoss[i] = (avgLoss[i-1]*float64(r.period-1) + loss[i]) / float64(r.period)
	}

	rsi := make([]float64, n)
	oversold := make([]bool, n)
	overbought := make([]bool, n)

	for i := 0; i < n; i++ {
		switch {
		case math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]):
			rsi[i] = math.NaN()
		case avgLoss[i] == 0 && avgGain[i] == 0:
			rsi[i] = math.NaN()
		case avgLoss[i] == 0:
			rsi[i] = 100
		default:
			rs := avgGain[i] / avgLoss[i]
			rsi[i] = 100 - 100/(1+rs)
		}

		oversold[i] = rsi[i] < r.oversold
		overbought[i] = rsi[i] > r.overbought
	}

	if err := r.s.AttachValues(r.rsiCol, rsi); err != nil {
		return err
	}

	if err := r.s.AttachSignal(r.oversoldCol, types.OrientationBuy, someCells(oversold)); err != nil {
		return err
	}

	return r.s.AttachSignal(r.overboughtCol, types.OrientationSell, someCells(overbought))
}
