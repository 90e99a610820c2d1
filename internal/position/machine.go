// Package position implements the long/short/flat state machine shared by the
// backtester and the live monitor. Both drive the same Step method, so a
// backtest replay and a live session with identical inputs produce identical
// order records.
package position

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/tradesentry/tradesentry/internal/logger"
	"github.com/tradesentry/tradesentry/internal/types"
	"github.com/tradesentry/tradesentry/pkg/errors"
)

const (
	minLeverage = 1.0
	maxLeverage = 20.0
)

// Config parameterizes a position machine. Stop-loss and take-profit fractions
// are optional; when absent the corresponding exit never triggers.
type Config struct {
	Ticker            string
	Leverage          float64
	StopLossFrac      optional.Option[float64]
	TakeProfitFrac    optional.Option[float64]
	InitialAllocation float64
}

// Machine owns one ticker's position state. It is not safe for concurrent use.
type Machine struct {
	cfg    Config
	state  types.PositionState
	logger *logger.Logger
}

// NewMachine validates the config and returns a flat machine. Leverage is
// clamped to [1, 20]; a zero leverage reads as 1.
func NewMachine(cfg Config, log *logger.Logger) (*Machine, error) {
	if cfg.Ticker == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "position machine requires a ticker")
	}

	if cfg.InitialAllocation <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"initial allocation must be positive, got %v", cfg.InitialAllocation)
	}

	if cfg.StopLossFrac.IsSome() && cfg.StopLossFrac.Unwrap() <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidStopLoss,
			"stop-loss fraction must be positive when set, got %v", cfg.StopLossFrac.Unwrap())
	}

	if cfg.TakeProfitFrac.IsSome() && cfg.TakeProfitFrac.Unwrap() <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidTakeProfit,
			"take-profit fraction must be positive when set, got %v", cfg.TakeProfitFrac.Unwrap())
	}

	if cfg.Leverage == 0 {
		cfg.Leverage = minLeverage
	}

	if cfg.Leverage < minLeverage {
		cfg.Leverage = minLeverage
	} else if cfg.Leverage > maxLeverage {
		cfg.Leverage = maxLeverage
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Machine{
		cfg: cfg,
		state: types.PositionState{
			Side:           types.SideFlat,
			RealizedEquity: cfg.InitialAllocation,
		},
		logger: log,
	}, nil
}

// State returns a copy of the current position state.
func (m *Machine) State() types.PositionState {
	return m.state
}

// Equity returns total equity marked at price: realized equity while flat, the
// equity at open plus leveraged unrealized P&L while in a position.
func (m *Machine) Equity(price float64) float64 {
	if m.state.Side == types.SideFlat {
		return m.state.RealizedEquity
	}

	return m.state.EquityAtOpen + m.unrealizedPnL(price)
}

func (m *Machine) unrealizedPnL(price float64) float64 {
	switch m.state.Side {
	case types.SideLong:
		return (price - m.state.EntryPrice) * m.state.Quantity * m.cfg.Leverage
	case types.SideShort:
		return (m.state.EntryPrice - price) * m.state.Quantity * m.cfg.Leverage
	default:
		return 0
	}
}

// Step advances the machine by one tick. The returned record is None when the
// tick was skipped for an invalid price. Evaluation order per tick: validity
// gate, mark-to-market, stop-loss, take-profit, then the decision.
func (m *Machine) Step(decision types.Decision, price float64, ts time.Time, signals map[string]*bool) (optional.Option[types.OrderRecord], error) {
	if math.IsNaN(price) || price <= 0 {
		m.logger.Warn("skipping tick with invalid price",
			zap.String("ticker", m.cfg.Ticker),
			zap.Float64("price", price))

		return optional.None[types.OrderRecord](), nil
	}

	m.state.LastPrice = price

	if m.state.Side != types.SideFlat {
		if m.cfg.StopLossFrac.IsSome() && m.stopLossHit(price, m.cfg.StopLossFrac.Unwrap()) {
			return optional.Some(m.closePosition(price, ts, signals, exitStopLoss)), nil
		}

		if m.cfg.TakeProfitFrac.IsSome() && m.takeProfitHit(price, m.cfg.TakeProfitFrac.Unwrap()) {
			return optional.Some(m.closePosition(price, ts, signals, exitTakeProfit)), nil
		}
	}

	switch decision {
	case types.DecisionHold:
		return optional.Some(m.infoRecord("Hold signal received", price, ts, signals)), nil

	case types.DecisionBuy:
		switch m.state.Side {
		case types.SideLong:
			return optional.Some(m.infoRecord("Already long, signal BUY. Holding.", price, ts, signals)), nil
		case types.SideFlat:
			return optional.Some(m.open(types.SideLong, price, ts, signals, optional.None[float64]())), nil
		case types.SideShort:
			return optional.Some(m.reverse(types.SideLong, price, ts, signals)), nil
		}

	case types.DecisionSell:
		switch m.state.Side {
		case types.SideShort:
			return optional.Some(m.infoRecord("Already short, signal SELL. Holding.", price, ts, signals)), nil
		case types.SideFlat:
			return optional.Some(m.open(types.SideShort, price, ts, signals, optional.None[float64]())), nil
		case types.SideLong:
			return optional.Some(m.reverse(types.SideShort, price, ts, signals)), nil
		}
	}

	return optional.None[types.OrderRecord](),
		errors.Newf(errors.ErrCodeStateInconsistency, "unhandled decision %q in side %q", decision, m.state.Side)
}

// CloseAt closes any open position at price, as the backtester does on the
// final bar. Flat machines return None.
func (m *Machine) CloseAt(price float64, ts time.Time, signals map[string]*bool) optional.Option[types.OrderRecord] {
	if m.state.Side == types.SideFlat || math.IsNaN(price) || price <= 0 {
		return optional.None[types.OrderRecord]()
	}

	m.state.LastPrice = price

	return optional.Some(m.closePosition(price, ts, signals, exitPlain))
}

func (m *Machine) stopLossHit(price, frac float64) bool {
	switch m.state.Side {
	case types.SideLong:
		return price < m.state.EntryPrice*(1-frac)
	case types.SideShort:
		return price > m.state.EntryPrice*(1+frac)
	default:
		return false
	}
}

func (m *Machine) takeProfitHit(price, frac float64) bool {
	switch m.state.Side {
	case types.SideLong:
		return price > m.state.EntryPrice*(1+frac)
	case types.SideShort:
		return price < m.state.EntryPrice*(1-frac)
	default:
		return false
	}
}

type exitKind int

const (
	exitPlain exitKind = iota
	exitStopLoss
	exitTakeProfit
)

// closePosition realizes the open position at price and resets to flat.
func (m *Machine) closePosition(price float64, ts time.Time, signals map[string]*bool, kind exitKind) types.OrderRecord {
	pnl := m.unrealizedPnL(price)
	equityAfter := m.state.EquityAtOpen + pnl

	action := types.ActionSell
	if m.state.Side == types.SideShort {
		action = types.ActionBuy
	}

	record := types.OrderRecord{
		ID:                  uuid.NewString(),
		Action:              action,
		Ticker:              m.cfg.Ticker,
		Timestamp:           ts,
		Price:               price,
		Quantity:            m.state.Quantity,
		AssetValueTraded:    optional.Some(0.0),
		EquityAfterTrade:    optional.Some(equityAfter),
		PnLThisTrade:        optional.Some(pnl),
		StopLossTriggered:   kind == exitStopLoss,
		TakeProfitTriggered: kind == exitTakeProfit,
		ActionedSignals:     signals,
	}

	m.state = types.PositionState{
		Side:           types.SideFlat,
		RealizedEquity: equityAfter,
		LastPrice:      price,
	}

	return record
}

// open enters a position from flat. Quantity is always sized off the initial
// allocation, not current equity, so position size stays constant across a
// session.
func (m *Machine) open(side types.Side, price float64, ts time.Time, signals map[string]*bool, priorPnL optional.Option[float64]) types.OrderRecord {
	quantity := m.cfg.InitialAllocation / price
	equityBefore := m.state.RealizedEquity

	action := types.ActionBuy
	if side == types.SideShort {
		action = types.ActionSell
	}

	record := types.OrderRecord{
		ID:                uuid.NewString(),
		Action:            action,
		Ticker:            m.cfg.Ticker,
		Timestamp:         ts,
		Price:             price,
		Quantity:          quantity,
		AssetValueTraded:  optional.Some(quantity * price),
		EquityBeforeTrade: optional.Some(equityBefore),
		PnLFromPriorTrade: priorPnL,
		ActionedSignals:   signals,
	}

	m.state = types.PositionState{
		Side:           side,
		Quantity:       quantity,
		EntryPrice:     price,
		EquityAtOpen:   equityBefore,
		RealizedEquity: equityBefore,
		LastPrice:      price,
	}

	return record
}

// reverse realizes the open position and opens the opposite side in one tick,
// emitting a single record that carries the realized P&L of the prior trade.
func (m *Machine) reverse(side types.Side, price float64, ts time.Time, signals map[string]*bool) types.OrderRecord {
	pnl := m.unrealizedPnL(price)

	m.state = types.PositionState{
		Side:           types.SideFlat,
		RealizedEquity: m.state.EquityAtOpen + pnl,
		LastPrice:      price,
	}

	return m.open(side, price, ts, signals, optional.Some(pnl))
}

func (m *Machine) infoRecord(reason string, price float64, ts time.Time, signals map[string]*bool) types.OrderRecord {
	assetValue := 0.0
	if m.state.Side != types.SideFlat {
		assetValue = m.state.Quantity * price
	}

	return types.OrderRecord{
		ID:                  uuid.NewString(),
		Action:              types.ActionInfo,
		Ticker:              m.cfg.Ticker,
		Timestamp:           ts,
		StatusReason:        reason,
		CurrentMarketPrice:  optional.Some(price),
		AssetValueHeld:      optional.Some(assetValue),
		TotalEquity:         optional.Some(m.Equity(price)),
		CurrentPositionType: m.state.Side,
		CurrentQuantity:     optional.Some(m.state.Quantity),
		ActionedSignals:     signals,
	}
}
