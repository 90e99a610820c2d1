package indicator

import (
	"fmt"
	"math"

	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// ATR computes the Average True Range and compares it against its own rolling
// median over the same window: low volatility votes buy, high volatility votes
// sell.
type ATR struct {
	s      *series.Series
	window int

	atrCol  string
	lowCol  string
	highCol string
}

// NewATR creates an ATR indicator. Parameters: window (int, default 14).
// Requires window+1 bars for the previous close in the true range.
func NewATR(s *series.Series, params Params) (*ATR, error) {
	window, err := params.Int("window", 14)
	if err != nil {
		return nil, err
	}

	if window <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "window must be positive, got %d", window)
	}

	for _, col := range []string{series.ColumnHigh, series.ColumnLow, series.ColumnClose} {
		if !s.HasColumn(col) {
			return nil, errors.NewMissingColumnError(col)
		}
	}

	if s.Len() < window+1 {
		return nil, errors.NewInsufficientDataErrorf(window+1, s.Len(), "",
			"insufficient data for ATR (window %d): %d bars provided, requires at least %d",
			window, s.Len(), window+1)
	}

	return &ATR{
		s:       s,
		window:  window,
		atrCol:  fmt.Sprintf("ATR_%d", window),
		lowCol:  fmt.Sprintf("ATR_Low_Signal_%d", window),
		highCol: fmt.Sprintf("ATR_High_Signal_%d", window),
	}, nil
}

// Kind implements Indicator.
func (a *ATR) Kind() types.IndicatorKind {
	return types.IndicatorKindATR
}

// SignalOrientations implements Indicator.
func (a *ATR) SignalOrientations() map[string]types.Orientation {
	return map[string]types.Orientation{
		a.lowCol:  types.OrientationBuy,
		a.highCol: types.OrientationSell,
	}
}

// Calculate appends the ATR column and the low/high volatility signal columns.
func (a *ATR) Calculate() error {
	high, err := a.s.Column(series.ColumnHigh)
	if err != nil {
		return err
	}

	low, err := a.s.Column(series.ColumnLow)
	if err != nil {
		return err
	}

	closes, err := a.s.Column(series.ColumnClose)
	if err != nil {
		return err
	}

	n := len(closes)
	tr := make([]float64, n)

	for i := 0; i < n; i++ {
		// True range is the largest of the defined candidates. The first
		// bar has no previous close, leaving only high-low.
		best := math.NaN()

		candidates := []float64{high[i] - low[i]}
		if i > 0 {
			candidates = append(candidates,
				math.Abs(high[i]-closes[i-1]),
				math.Abs(low[i]-closes[i-1]))
		}

		for _, c := range candidates {
			if math.IsNaN(c) {
				continue
			}

			if math.IsNaN(best) || c > best {
				best = c
			}
		}

		tr[i] = best
	}

	atr := rollingMean(tr, a.window, a.window)

	// Rolling median of the ATR itself as a dynamic threshold. Half the
	// window suffices for the median to be defined.
	medianMinPeriods := a.window / 2
	if medianMinPeriods < 1 {
		medianMinPeriods = 1
	}

	median := rollingMedian(atr, a.window, medianMinPeriods)

	lowSignal := make([]bool, n)
	highSignal := make([]bool, n)

	for i := 0; i < n; i++ {
		lowSignal[i] = atr[i] < median[i]
		highSignal[i] = atr[i] > median[i]
	}

	if err := a.s.AttachValues(a.atrCol, atr); err != nil {
		return err
	}

	if err := a.s.AttachSignal(a.lowCol, types.OrientationBuy, someCells(lowSignal)); err != nil {
		return err
	}

	return a.s.AttachSignal(a.highCol, types.OrientationSell, someCells(highSignal))
}
