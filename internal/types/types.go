package types

import "time"

// Decision is the per-bar output of the strategy aggregator. Decisions are
// stateless: they do not depend on the current position.
type Decision string

const (
	DecisionBuy  Decision = "BUY"
	DecisionSell Decision = "SELL"
	DecisionHold Decision = "HOLD"
)

// Action labels an emitted order record. Trade records carry BUY or SELL;
// idle ticks produce INFO records.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionInfo Action = "INFO"
)

// Side is the current position side. The wire value for flat is "none".
type Side string

const (
	SideFlat  Side = "none"
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Orientation tags a signal column with the vote it casts when true.
type Orientation string

const (
	OrientationBuy  Orientation = "buy"
	OrientationSell Orientation = "sell"
)

// IndicatorKind enumerates the built-in indicators. Persisted optimizer
// reports store this tag and resolve it through the static registry.
type IndicatorKind string

const (
	IndicatorKindMovingAverage  IndicatorKind = "moving_average"
	IndicatorKindRSI            IndicatorKind = "rsi"
	IndicatorKindMACD           IndicatorKind = "macd"
	IndicatorKindBollingerBands IndicatorKind = "bollinger_bands"
	IndicatorKindATR            IndicatorKind = "atr"
	IndicatorKindBreakout       IndicatorKind = "breakout"
	IndicatorKindVolumeSpike    IndicatorKind = "volume_spike"
)

// Bar is one OHLCV observation at a fixed timestamp. Missing numeric values
// are NaN, never zero.
type Bar struct {
	Time   time.Time `json:"time" yaml:"time"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// PositionState is the mutable state owned by one position machine. EntryPrice
// and EquityAtOpen are meaningful only while Side is not flat.
type PositionState struct {
	Side           Side    `json:"side"`
	Quantity       float64 `json:"quantity"`
	EntryPrice     float64 `json:"entry_price"`
	EquityAtOpen   float64 `json:"equity_at_open"`
	RealizedEquity float64 `json:"realized_equity"`
	LastPrice      float64 `json:"last_price"`
}
