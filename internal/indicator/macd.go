package indicator

import (
	"fmt"

	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// MACD computes the moving average convergence divergence line, its signal
// line, and the histogram, firing on consecutive-bar crossings of the MACD
// line versus the signal line.
type MACD struct {
	s            *series.Series
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
	column       string

	macdCol   string
	signalCol string
	histCol   string
	buyCol    string
	sellCol   string
}

// NewMACD creates a MACD indicator.
// Parameters: fast_period (int, default 12), slow_period (int, default 26),
// signal_period (int, default 9), column (string, default "Close").
func NewMACD(s *series.Series, params Params) (*MACD, error) {
	fast, err := params.Int("fast_period", 12)
	if err != nil {
		return nil, err
	}

	slow, err := params.Int("slow_period", 26)
	if err != nil {
		return nil, err
	}

	signal, err := params.Int("signal_period", 9)
	if err != nil {
		return nil, err
	}

	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"MACD periods must be positive, got fast=%d slow=%d signal=%d", fast, slow, signal)
	}

	if fast >= slow {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"fast_period %d must be below slow_period %d", fast, slow)
	}

	column, err := params.String("column", series.ColumnClose)
	if err != nil {
		return nil, err
	}

	if !s.HasColumn(column) {
		return nil, errors.NewMissingColumnError(column)
	}

	if s.Len() < slow {
		return nil, errors.NewInsufficientDataErrorf(slow, s.Len(), "",
			"insufficient data for MACD (slow_period %d): %d bars provided, requires at least %d",
			slow, s.Len(), slow)
	}

	return &MACD{
		s:            s,
		fastPeriod:   fast,
		slowPeriod:   slow,
		signalPeriod: signal,
		column:       column,
		macdCol:      fmt.Sprintf("MACD_%d_%d", fast, slow),
		signalCol:    fmt.Sprintf("MACD_Signal_%d", signal),
		histCol:      fmt.Sprintf("MACD_Hist_%d_%d_%d", fast, slow, signal),
		buyCol:       fmt.Sprintf("MACD_Cross_Above_%d_%d_%d", fast, slow, signal),
		sellCol:      fmt.Sprintf("MACD_Cross_Below_%d_%d_%d", fast, slow, signal),
	}, nil
}

// Kind implements Indicator.
func (m *MACD) Kind() types.IndicatorKind {
	return types.IndicatorKindMACD
}

// SignalOrientations implements Indicator.
func (m *MACD) SignalOrientations() map[string]types.Orientation {
	return map[string]types.Orientation{
		m.buyCol:  types.OrientationBuy,
		m.sellCol: types.OrientationSell,
	}
}

// Calculate appends the MACD, signal and histogram columns plus both cross
// signal columns.
func (m *MACD) Calculate() error {
	price, err := m.s.Column(m.column)
	if err != nil {
		return err
	}

	emaFast := ema(price, m.fastPeriod, 0)
	emaSlow := ema(price, m.slowPeriod, 0)

	macd := make([]float64, len(price))
	for i := range macd {
		macd[i] = emaFast[i] - emaSlow[i]
	}

	signal := ema(macd, m.signalPeriod, 0)

	hist := make([]float64, len(price))
	for i := range hist {
		hist[i] = macd[i] - signal[i]
	}

	if err := m.s.AttachValues(m.macdCol, macd); err != nil {
		return err
	}

	if err := m.s.AttachValues(m.signalCol, signal); err != nil {
		return err
	}

	if err := m.s.AttachValues(m.histCol, hist); err != nil {
		return err
	}

	if err := m.s.AttachSignal(m.buyCol, types.OrientationBuy, someCells(crossAbove(macd, signal))); err != nil {
		return err
	}

	return m.s.AttachSignal(m.sellCol, types.OrientationSell, someCells(crossBelow(macd, signal)))
}
