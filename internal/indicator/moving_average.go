package indicator

import (
	"fmt"
	"strings"

	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// MovingAverage computes a simple or exponential moving average of a chosen
// column and fires signals when the price crosses it between consecutive bars.
type MovingAverage struct {
	s      *series.Series
	window int
	maType string
	column string

	maCol   string
	buyCol  string
	sellCol string
}

// NewMovingAverage creates a moving average indicator.
// Parameters: window (int, default 20), ma_type ("sma"|"ema", default "sma"),
// column (string, default "Close").
func NewMovingAverage(s *series.Series, params Params) (*MovingAverage, error) {
	window, err := params.Int("window", 20)
	if err != nil {
		return nil, err
	}

	if window <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "window must be positive, got %d", window)
	}

	maType, err := params.String("ma_type", "sma")
	if err != nil {
		return nil, err
	}

	maType = strings.ToLower(maType)
	if maType != "sma" && maType != "ema" {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown ma_type %q", maType)
	}

	column, err := params.String("column", series.ColumnClose)
	if err != nil {
		return nil, err
	}

	if !s.HasColumn(column) {
		return nil, errors.NewMissingColumnError(column)
	}

	if s.Len() < window {
		return nil, errors.NewInsufficientDataErrorf(window, s.Len(), "",
			"insufficient data for moving average (window %d): %d bars provided, requires at least %d",
			window, s.Len(), window)
	}

	maCol := fmt.Sprintf("%s_%d_%s", strings.ToUpper(maType), window, column)

	return &MovingAverage{
		s:       s,
		window:  window,
		maType:  maType,
		column:  column,
		maCol:   maCol,
		buyCol:  maCol + "_Cross_Above",
		sellCol: maCol + "_Cross_Below",
	}, nil
}

// Kind implements Indicator.
func (m *MovingAverage) Kind() types.IndicatorKind {
	return types.IndicatorKindMovingAverage
}

// SignalOrientations implements Indicator.
func (m *MovingAverage) SignalOrientations() map[string]types.Orientation {
	return map[string]types.Orientation{
		m.buyCol:  types.OrientationBuy,
		m.sellCol: types.OrientationSell,
	}
}

// Calculate appends the moving average column and both cross signal columns.
func (m *MovingAverage) Calculate() error {
	price, err := m.s.Column(m.column)
	if err != nil {
		return err
	}

	var ma []float64

	switch m.maType {
	case "sma":
		ma = rollingMean(price, m.window, m.window)
	case "ema":
		ma = ema(price, m.window, m.window)
	}

	if err := m.s.AttachValues(m.maCol, ma); err != nil {
		return err
	}

	if err := m.s.AttachSignal(m.buyCol, types.OrientationBuy, someCells(crossAbove(price, ma))); err != nil {
		return err
	}

	return m.s.AttachSignal(m.sellCol, types.OrientationSell, someCells(crossBelow(price, ma)))
}
