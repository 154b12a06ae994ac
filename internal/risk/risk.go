// Package risk is a rudimentary, intentionally incomplete position and
// notional counter: a strategy collaborator keeps one per instance, but
// the counter itself is not part of the simulated exchange.
package risk

import (
	"sync/atomic"

	"github.com/Shagai/hft-sim/events"
)

// Manager tracks a running position and notional exposure and applies a
// coarse pre-trade check before a strategy is allowed to quote.
//
// Like the original this is adapted from, notional tracking only accounts
// for filled trades; it does not net open orders against limits before
// they rest, and per-symbol limits are out of scope since the simulator is
// single-instrument.
type Manager struct {
	position    atomic.Int64
	notional    atomic.Int64
	maxPosition int64
	maxNotional int64
	maxOrderQty int32
}

// NewManager builds a Manager with the given limits. maxNotional is stored
// but not checked by CanQuote.
func NewManager(maxPosition, maxNotional int64, maxOrderQty int32) *Manager {
	return &Manager{maxPosition: maxPosition, maxNotional: maxNotional, maxOrderQty: maxOrderQty}
}

// CanQuote reports whether a new order of qty lots on side is within the
// per-order quantity limit and would keep the position within maxPosition
// if it fully filled. The notional limit is not checked.
func (m *Manager) CanQuote(side events.Side, qty int32) bool {
	if qty <= 0 || qty > m.maxOrderQty {
		return false
	}
	projected := m.position.Load()
	if side == events.Buy {
		projected += int64(qty)
	} else {
		projected -= int64(qty)
	}
	if projected > m.maxPosition || projected < -m.maxPosition {
		return false
	}
	return true
}

// OnExec updates position and notional after observing a Trade ExecEvent
// for an order this strategy instance owns. aggressorSide is the side of
// the order this instance submitted (not necessarily the resting side).
func (m *Manager) OnExec(aggressorSide events.Side, filledQty int32, tradePrice int64) {
	delta := int64(filledQty)
	if aggressorSide == events.Buy {
		m.position.Add(delta)
		m.notional.Add(-delta * tradePrice)
	} else {
		m.position.Add(-delta)
		m.notional.Add(delta * tradePrice)
	}
}

// Position returns the current net position in lots.
func (m *Manager) Position() int64 {
	return m.position.Load()
}

// Notional returns the current cash notional.
func (m *Manager) Notional() int64 {
	return m.notional.Load()
}
