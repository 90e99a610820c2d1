package indicator

import (
	"fmt"

	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// Breakout fires when the close breaks above the trailing window's high or
// below its low. The rolling extremes exclude the current bar.
type Breakout struct {
	s       *series.Series
	window  int
	highSrc string
	lowSrc  string
	closSrc string

	bullishCol string
	bearishCol string
}

// NewBreakout creates a breakout indicator.
// Parameters: window (int, default 20), high_col, low_col, close_col
// (strings, default "High"/"Low"/"Close"). Requires window+1 bars so at least
// one bar has a full trailing window to compare against.
func NewBreakout(s *series.Series, params Params) (*Breakout, error) {
	window, err := params.Int("window", 20)
	if err != nil {
		return nil, err
	}

	if window <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "window must be positive, got %d", window)
	}

	highSrc, err := params.String("high_col", series.ColumnHigh)
	if err != nil {
		return nil, err
	}

	lowSrc, err := params.String("low_col", series.ColumnLow)
	if err != nil {
		return nil, err
	}

	closSrc, err := params.String("close_col", series.ColumnClose)
	if err != nil {
		return nil, err
	}

	for _, col := range []string{highSrc, lowSrc, closSrc} {
		if !s.HasColumn(col) {
			return nil, errors.NewMissingColumnError(col)
		}
	}

	if s.Len() < window+1 {
		return nil, errors.NewInsufficientDataErrorf(window+1, s.Len(), "",
			"insufficient data for breakout (window %d): %d bars provided, requires at least %d",
			window, s.Len(), window+1)
	}

	return &Breakout{
		s:          s,
		window:     window,
		highSrc:    highSrc,
		lowSrc:     lowSrc,
		closSrc:    closSrc,
		bullishCol: fmt.Sprintf("Breakout_Bullish_Signal_%d", window),
		bearishCol: fmt.Sprintf("Breakout_Bearish_Signal_%d", window),
	}, nil
}

// Kind implements Indicator.
func (b *Breakout) Kind() types.IndicatorKind {
	return types.IndicatorKindBreakout
}

// SignalOrientations implements Indicator.
func (b *Breakout) SignalOrientations() map[string]types.Orientation {
	return map[string]types.Orientation{
		b.bullishCol: types.OrientationBuy,
		b.bearishCol: types.OrientationSell,
	}
}

// Calculate appends the bullish and bearish breakout signal columns.
func (b *Breakout) Calculate() error {
	high, err := b.s.Column(b.highSrc)
	if err != nil {
		return err
	}

	low, err := b.s.Column(b.lowSrc)
	if err != nil {
		return err
	}

	closes, err := b.s.Column(b.closSrc)
	if err != nil {
		return err
	}

	recentHigh := shift1(rollingMax(high, b.window, b.window))
	recentLow := shift1(rollingMin(low, b.window, b.window))

	bullish := make([]bool, len(closes))
	bearish := make([]bool, len(closes))

	for i := range closes {
		bullish[i] = closes[i] > recentHigh[i]
		bearish[i] = closes[i] < recentLow[i]
	}

	if err := b.s.AttachSignal(b.bullishCol, types.OrientationBuy, someCells(bullish)); err != nil {
		return err
	}

	return b.s.AttachSignal(b.bearishCol, types.OrientationSell, someCells(bearish))
}
