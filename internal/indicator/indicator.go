// Package indicator implements the built-in technical indicators and the
// static registry that maps a persisted indicator kind to its constructor.
//
// Every indicator follows the same contract: the constructor validates the
// lookback requirement and the named source columns, Calculate appends derived
// columns to the series it was constructed with, and SignalOrientations
// reports which of those columns cast buy or sell votes. Calculate is
// idempotent: running it twice yields identical columns.
package indicator

import (
	"math"
	"sort"
	"strconv"

	"github.com/tradesentry/tradesentry/internal/series"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

// Indicator is the uniform contract for a technical indicator bound to a
// series at construction time.
type Indicator interface {
	Kind() types.IndicatorKind
	Calculate() error
	SignalOrientations() map[string]types.Orientation
}

// Spec is the persistable description of one indicator instance.
type Spec struct {
	Kind   types.IndicatorKind `json:"kind" yaml:"kind" validate:"required"`
	Params Params              `json:"params" yaml:"params"`
}

// Params carries an indicator's parameter set. Values decoded from JSON carry
// float64 for all numbers, so the typed getters accept both.
type Params map[string]any

// Int returns the named integer parameter, or def when absent.
func (p Params) Int(key string, def int) (int, error) {
	raw, ok := p[key]
	if !ok {
		return def, nil
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must be an integer, got %v", key, v)
		}

		return int(v), nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must be an integer, got %T", key, raw)
	}
}

// Float returns the named float parameter, or def when absent.
func (p Params) Float(key string, def float64) (float64, error) {
	raw, ok := p[key]
	if !ok {
		return def, nil
	}

	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must be a number, got %T", key, raw)
	}
}

// String returns the named string parameter, or def when absent.
func (p Params) String(key, def string) (string, error) {
	raw, ok := p[key]
	if !ok {
		return def, nil
	}

	v, ok := raw.(string)
	if !ok {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must be a string, got %T", key, raw)
	}

	return v, nil
}

// Factory constructs an indicator against a series.
type Factory func(s *series.Series, params Params) (Indicator, error)

// The static registry. Persisted reports store the kind tag; unknown tags
// fail with ErrCodeIndicatorNotFound.
var factories = map[types.IndicatorKind]Factory{
	types.IndicatorKindMovingAverage: func(s *series.Series, p Params) (Indicator, error) {
		return NewMovingAverage(s, p)
	},
	types.IndicatorKindRSI: func(s *series.Series, p Params) (Indicator, error) {
		return NewRSI(s, p)
	},
	types.IndicatorKindMACD: func(s *series.Series, p Params) (Indicator, error) {
		return NewMACD(s, p)
	},
	types.IndicatorKindBollingerBands: func(s *series.Series, p Params) (Indicator, error) {
		return NewBollingerBands(s, p)
	},
	types.IndicatorKindATR: func(s *series.Series, p Params) (Indicator, error) {
		return NewATR(s, p)
	},
	types.IndicatorKindBreakout: func(s *series.Series, p Params) (Indicator, error) {
		return NewBreakout(s, p)
	},
	types.IndicatorKindVolumeSpike: func(s *series.Series, p Params) (Indicator, error) {
		return NewVolumeSpike(s, p)
	},
}

// Parameter grids explored by the optimizer, keyed by indicator kind.
var searchSpaces = map[types.IndicatorKind]map[string][]any{
	types.IndicatorKindMovingAverage: {
		"window":  {5, 8, 13, 21, 34},
		"ma_type": {"sma", "ema"},
		"column":  {"Close"},
	},
	types.IndicatorKindRSI: {
		"period":         {10, 14, 20},
		"rsi_oversold":   {25.0, 30.0, 35.0},
		"rsi_overbought": {65.0, 70.0, 75.0},
		"column":         {"Close"},
	},
	types.IndicatorKindMACD: {
		"fast_period":   {3, 5, 8},
		"slow_period":   {10, 15, 21},
		"signal_period": {3, 5, 7},
		"column":        {"Close"},
	},
	types.IndicatorKindBollingerBands: {
		"window":      {15, 20, 25},
		"num_std_dev": {1.5, 2.0, 2.5},
		"column":      {"Close"},
	},
	types.IndicatorKindATR: {
		"window": {10, 14, 20},
	},
	types.IndicatorKindBreakout: {
		"window": {10, 20, 30},
	},
	types.IndicatorKindVolumeSpike: {
		"window":           {10, 20, 30},
		"spike_multiplier": {1.05, 1.1, 1.2, 1.3},
		"volume_col":       {"Volume"},
	},
}

// New constructs an indicator of the given kind via the static registry.
func New(kind types.IndicatorKind, s *series.Series, params Params) (Indicator, error) {
	factory, ok := factories[kind]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "unknown indicator kind %q", kind)
	}

	return factory(s, params)
}

// Known reports whether kind resolves through the registry.
func Known(kind types.IndicatorKind) bool {
	_, ok := factories[kind]

	return ok
}

// Kinds returns all registered indicator kinds in stable order.
func Kinds() []types.IndicatorKind {
	kinds := make([]types.IndicatorKind, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}

	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	return kinds
}

// SearchSpace returns the optimizer parameter grid for kind.
func SearchSpace(kind types.IndicatorKind) (map[string][]any, error) {
	space, ok := searchSpaces[kind]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "unknown indicator kind %q", kind)
	}

	return space, nil
}

// formatParam renders a float the way column names embed it: integral values
// keep one decimal place ("2.0"), everything else prints exactly ("1.05").
func formatParam(f float64) string {
	if f == math.Trunc(f) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}
