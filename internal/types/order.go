package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
)

var validate = validator.New()

// OrderRecord is an immutable log entry describing one position transition
// (BUY/SELL) or one idle tick (INFO). Trade fields and info fields are
// mutually exclusive; absent numerics marshal away entirely.
type OrderRecord struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action" validate:"required,oneof=BUY SELL INFO"`
	Ticker    string    `json:"ticker" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`

	// Trade fields (BUY/SELL only).
	Price             float64                  `json:"price,omitempty"`
	Quantity          float64                  `json:"quantity,omitempty"`
	AssetValueTraded  optional.Option[float64] `json:"asset_value_traded,omitempty"`
	EquityBeforeTrade optional.Option[float64] `json:"equity_before_trade,omitempty"`
	EquityAfterTrade  optional.Option[float64] `json:"equity_after_trade,omitempty"`
	PnLThisTrade      optional.Option[float64] `json:"pnl_this_trade,omitempty"`
	PnLFromPriorTrade optional.Option[float64] `json:"pnl_from_prior_trade,omitempty"`

	// Exit markers. A stop-loss or take-profit exit closes at the current
	// market price, not the threshold price.
	StopLossTriggered   bool `json:"stop_loss_triggered,omitempty"`
	TakeProfitTriggered bool `json:"take_profit_triggered,omitempty"`

	// Info fields (INFO only).
	StatusReason        string                   `json:"status_reason,omitempty"`
	CurrentMarketPrice  optional.Option[float64] `json:"current_market_price,omitempty"`
	AssetValueHeld      optional.Option[float64] `json:"asset_value_held,omitempty"`
	TotalEquity         optional.Option[float64] `json:"total_equity,omitempty"`
	CurrentPositionType Side                     `json:"current_position_type,omitempty"`
	CurrentQuantity     optional.Option[float64] `json:"current_quantity,omitempty"`

	// Snapshot of every signal cell at the decided row. nil means the cell
	// was missing, not false.
	ActionedSignals map[string]*bool `json:"actioned_signals"`
}

// Validate checks the order record against its struct tags.
func (o *OrderRecord) Validate() error {
	return validate.Struct(o)
}

// IsTrade reports whether the record describes an executed transition.
func (o *OrderRecord) IsTrade() bool {
	return o.Action == ActionBuy || o.Action == ActionSell
}
