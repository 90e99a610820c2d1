package indicator

import (
	"fmt"

	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// BollingerBands computes the middle, lower and upper bands and fires level
// signals: buy while the price sits below the lower band, sell while it sits
// above the upper band. These are per-bar level tests, not crossings.
type BollingerBands struct {
	s         *series.Series
	window    int
	numStdDev float64
	column    string

	lowerCol  string
	middleCol string
	upperCol  string
	buyCol    string
	sellCol   string
}

// NewBollingerBands creates a Bollinger Bands indicator.
// Parameters: window (int, default 20), num_std_dev (float, default 2.0),
// column (string, default "Close").
func NewBollingerBands(s *series.Series, params Params) (*BollingerBands, error) {
	window, err := params.Int("window", 20)
	if err != nil {
		return nil, err
	}

	if window <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "window must be positive, got %d", window)
	}

	numStdDev, err := params.Float("num_std_dev", 2.0)
	if err != nil {
		return nil, err
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
			"insufficient data for Bollinger Bands (window %d): %d bars provided, requires at least %d",
			window, s.Len(), window)
	}

	suffix := fmt.Sprintf("%d_%s", window, formatParam(numStdDev))

	return &BollingerBands{
		s:         s,
		window:    window,
		numStdDev: numStdDev,
		column:    column,
		lowerCol:  "BBL_" + suffix,
		middleCol: "BBM_" + suffix,
		upperCol:  "BBU_" + suffix,
		buyCol:    "BB_Cross_Lower_" + suffix,
		sellCol:   "BB_Cross_Upper_" + suffix,
	}, nil
}

// Kind implements Indicator.
func (b *BollingerBands) Kind() types.IndicatorKind {
	return types.IndicatorKindBollingerBands
}

// SignalOrientations implements Indicator.
func (b *BollingerBands) SignalOrientations() map[string]types.Orientation {
	return map[string]types.Orientation{
		b.buyCol:  types.OrientationBuy,
		b.sellCol: types.OrientationSell,
	}
}

// Calculate appends the three band columns and both level signal columns.
func (b *BollingerBands) Calculate() error {
	price, err := b.s.Column(b.column)
	if err != nil {
		return err
	}

	middle := rollingMean(price, b.window, b.window)
	std := rollingStd(price, b.window, b.window)

	lower := make([]float64, len(price))
	upper := make([]float64, len(price))
	below := make([]bool, len(price))
	above := make([]bool, len(price))

	for i := range price {
		lower[i] = middle[i] - b.numStdDev*std[i]
		upper[i] = middle[i] + b.numStdDev*std[i]
		below[i] = price[i] < lower[i]
		above[i] = price[i] > upper[i]
	}

	if err := b.s.AttachValues(b.lowerCol, lower); err != nil {
		return err
	}

	if err := b.s.AttachValues(b.middleCol, middle); err != nil {
		return err
	}

	if err := b.s.AttachValues(b.upperCol, upper); err != nil {
		return err
	}

	if err := b.s.AttachSignal(b.buyCol, types.OrientationBuy, someCells(below)); err != nil {
		return err
	}

	return b.s.AttachSignal(b.sellCol, types.OrientationSell, someCells(above))
}
