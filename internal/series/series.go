// Package series holds an OHLCV bar sequence together with the named columns
// indicators derive from it. The bars themselves are read-only through the
// public API; indicators may only attach new columns.
package series

import (
	"math"

	"github.com/moznion/go-optional"

	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// Built-in column names backed by the bar fields.
const (
	ColumnOpen   = "Open"
	ColumnHigh   = "High"
	ColumnLow    = "Low"
	ColumnClose  = "Close"
	ColumnVolume = "Volume"
)

// Signal is a tri-state boolean column tagged with the vote it casts.
// A None cell means the value is missing, which the aggregator skips.
type Signal struct {
	Orientation types.Orientation
	Cells       []optional.Option[bool]
}

// Series owns an ordered bar sequence plus attached value and signal columns.
// Value cells use NaN for undefined entries.
type Series struct {
	bars []types.Bar

	valueOrder []string
	values     map[string][]float64

	signalOrder []string
	signals     map[string]Signal

	collisions []string
}

// New creates a series from bars, validating strictly increasing timestamps.
func New(bars []types.Bar) (*Series, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
				"bar timestamps must be strictly increasing: bar %d (%s) does not follow bar %d (%s)",
				i, bars[i].Time, i-1, bars[i-1].Time)
		}
	}

	return &Series{
		bars:    bars,
		values:  make(map[string][]float64),
		signals: make(map[string]Signal),
	}, nil
}

// Len returns the number of bars.
func (s *Series) Len() int {
	return len(s.bars)
}

// Bar returns the bar at index i.
func (s *Series) Bar(i int) types.Bar {
	return s.bars[i]
}

// Last returns the final bar, or false when the series is empty.
func (s *Series) Last() (types.Bar, bool) {
	if len(s.bars) == 0 {
		return types.Bar{}, false
	}

	return s.bars[len(s.bars)-1], true
}

// HasColumn reports whether name resolves to an OHLCV field or an attached
// value column.
func (s *Series) HasColumn(name string) bool {
	switch name {
	case ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume:
		return true
	}

	_, ok := s.values[name]

	return ok
}

// Column returns a copy of the named column. OHLCV names resolve to the bar
// fields; other names resolve to attached value columns.
func (s *Series) Column(name string) ([]float64, error) {
	out := make([]float64, len(s.bars))

	switch name {
	case ColumnOpen:
		for i, b := range s.bars {
			out[i] = b.Open
		}
	case ColumnHigh:
		for i, b := range s.bars {
			out[i] = b.High
		}
	case ColumnLow:
		for i, b := range s.bars {
			out[i] = b.Low
		}
	case ColumnClose:
		for i, b := range s.bars {
			out[i] = b.Close
		}
	case ColumnVolume:
		for i, b := range s.bars {
			out[i] = b.Volume
		}
	default:
		vals, ok := s.values[name]
		if !ok {
			return nil, errors.NewMissingColumnError(name)
		}

		copy(out, vals)
	}

	return out, nil
}

// AttachValues adds a value column. Attaching an existing name replaces it and
// records the collision for the caller to drain.
func (s *Series) AttachValues(name string, vals []float64) error {
	if len(vals) != len(s.bars) {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"column %q has %d values for %d bars", name, len(vals), len(s.bars))
	}

	switch name {
	case ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume:
		return errors.Newf(errors.ErrCodeInvalidParameter, "column %q would shadow an OHLCV field", name)
	}

	stored := make([]float64, len(vals))
	copy(stored, vals)

	if _, exists := s.values[name]; exists {
		s.collisions = append(s.collisions, name)
	} else {
		s.valueOrder = append(s.valueOrder, name)
	}

	s.values[name] = stored

	return nil
}

// AttachSignal adds a signal column. Attaching an existing name replaces it
// and records the collision for the caller to drain.
func (s *Series) AttachSignal(name string, orientation types.Orientation, cells []optional.Option[bool]) error {
	if len(cells) != len(s.bars) {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"signal column %q has %d cells for %d bars", name, len(cells), len(s.bars))
	}

	stored := make([]optional.Option[bool], len(cells))
	copy(stored, cells)

	if _, exists := s.signals[name]; exists {
		s.collisions = append(s.collisions, name)
	} else {
		s.signalOrder = append(s.signalOrder, name)
	}

	s.signals[name] = Signal{Orientation: orientation, Cells: stored}

	return nil
}

// ValueNames returns attached value column names in attach order.
func (s *Series) ValueNames() []string {
	out := make([]string, len(s.valueOrder))
	copy(out, s.valueOrder)

	return out
}

// SignalNames returns attached signal column names in attach order.
func (s *Series) SignalNames() []string {
	out := make([]string, len(s.signalOrder))
	copy(out, s.signalOrder)

	return out
}

// Signal returns the named signal column.
func (s *Series) Signal(name string) (Signal, bool) {
	sig, ok := s.signals[name]

	return sig, ok
}

// DrainCollisions returns the column names replaced since the last drain and
// clears the list. The strategy aggregator logs these as configuration
// warnings: two indicators produced an identically named column.
func (s *Series) DrainCollisions() []string {
	out := s.collisions
	s.collisions = nil

	return out
}

// Clone returns a deep copy of the series, including attached columns.
func (s *Series) Clone() *Series {
	bars := make([]types.Bar, len(s.bars))
	copy(bars, s.bars)

	clone := &Series{
		bars:        bars,
		valueOrder:  append([]string(nil), s.valueOrder...),
		values:      make(map[string][]float64, len(s.values)),
		signalOrder: append([]string(nil), s.signalOrder...),
		signals:     make(map[string]Signal, len(s.signals)),
	}

	for name, vals := range s.values {
		cp := make([]float64, len(vals))
		copy(cp, vals)
		clone.values[name] = cp
	}

	for name, sig := range s.signals {
		cells := make([]optional.Option[bool], len(sig.Cells))
		copy(cells, sig.Cells)
		clone.signals[name] = Signal{Orientation: sig.Orientation, Cells: cells}
	}

	return clone
}

// IsMissing reports whether v represents a missing value.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}
