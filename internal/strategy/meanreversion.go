// Package strategy holds the example mean-reversion market maker: a
// collaborator that consumes the engine's exec and market-data queues and
// submits commands on the command queue, exerting no other influence on
// the engine.
package strategy

import (
	"github.com/Shagai/hft-sim/events"
	"github.com/Shagai/hft-sim/internal/risk"
	"github.com/Shagai/hft-sim/ringqueue"
)

// Context carries the identity and id-allocation state a strategy instance
// needs to submit commands.
type Context struct {
	UserID      uint64
	NextOrderID uint64
	Tick        int64
}

func (c *Context) allocID() uint64 {
	id := c.NextOrderID
	c.NextOrderID++
	return id
}

// MeanReversion keeps a rolling mean of the top-of-book mid price and, once
// the last mid deviates far enough from that mean, submits a one-sided
// quote against the deviation: a sell above the mid when the mid is above
// the mean, a buy below the mid when it is below.
type MeanReversion struct {
	ctx      Context
	risk     *risk.Manager
	cmdQ     *ringqueue.RingQueue[events.Command]
	devTicks float64
	quoteQty int32

	window    []int64
	windowLen int

	lastMid int64

	bidOrderID uint64
	askOrderID uint64
}

// NewMeanReversion builds a strategy instance quoting quoteQty lots,
// re-quoting once the mid deviates by more than devTicks ticks from the
// mean of the last windowLen observed mid prices.
func NewMeanReversion(ctx Context, riskMgr *risk.Manager, cmdQ *ringqueue.RingQueue[events.Command], windowLen int, devTicks float64, quoteQty int32) *MeanReversion {
	return &MeanReversion{
		ctx:       ctx,
		risk:      riskMgr,
		cmdQ:      cmdQ,
		devTicks:  devTicks,
		quoteQty:  quoteQty,
		windowLen: windowLen,
	}
}

// OnMarketData feeds a MarketDataEvent into the rolling mid-price window.
func (s *MeanReversion) OnMarketData(ev events.MarketDataEvent) {
	if ev.Kind != events.MDTopOfBook {
		return
	}
	top := ev.Top
	if top.BidPrice == 0 || top.AskPrice == 0 {
		return
	}
	mid := (top.BidPrice + top.AskPrice) / 2
	s.lastMid = mid
	s.window = append(s.window, mid)
	if len(s.window) > s.windowLen {
		s.window = s.window[len(s.window)-s.windowLen:]
	}
}

// OnExec updates the risk manager on a Trade event carrying one of this
// instance's tracked order ids, and clears the tracked id once an order
// is no longer resting. The engine reports trades under the aggressor's
// order id only, so fills against this instance's orders while they rest
// are not seen here.
func (s *MeanReversion) OnExec(ev events.ExecEvent) {
	switch ev.OrderID {
	case s.bidOrderID:
		if ev.Kind == events.Trade {
			s.risk.OnExec(events.Buy, ev.FilledQty, ev.TradePrice)
		}
		if ev.Kind == events.CancelAck || ev.Kind == events.Reject || ev.LeavesQty == 0 {
			s.bidOrderID = 0
		}
	case s.askOrderID:
		if ev.Kind == events.Trade {
			s.risk.OnExec(events.Sell, ev.FilledQty, ev.TradePrice)
		}
		if ev.Kind == events.CancelAck || ev.Kind == events.Reject || ev.LeavesQty == 0 {
			s.askOrderID = 0
		}
	}
}

// OnTimer is the strategy's periodic decision point: it compares the last
// observed mid against the rolling mean and, once the window has enough
// history and the deviation clears the threshold, submits a quote on the
// side that trades against the deviation.
func (s *MeanReversion) OnTimer(nowNano int64) {
	if len(s.window) < s.windowLen {
		return
	}
	mean := s.windowMean()
	deviation := float64(s.lastMid - mean)
	threshold := s.devTicks * float64(s.ctx.Tick)

	switch {
	case deviation > threshold:
		s.requote(events.Sell, nowNano)
	case deviation < -threshold:
		s.requote(events.Buy, nowNano)
	}
	// Within threshold: leave resting quotes alone. The reference strategy
	// this is adapted from never ages out stale quotes either.
}

func (s *MeanReversion) windowMean() int64 {
	var sum int64
	for _, v := range s.window {
		sum += v
	}
	return sum / int64(len(s.window))
}

func (s *MeanReversion) requote(side events.Side, nowNano int64) {
	if !s.risk.CanQuote(side, s.quoteQty) {
		return
	}

	price := s.lastMid
	if side == events.Buy {
		price -= s.ctx.Tick
	} else {
		price += s.ctx.Tick
	}

	id := s.ctx.allocID()
	s.cmdQ.Push(events.NewCommand(events.NewOrder{
		OrderID: id,
		UserID:  s.ctx.UserID,
		Side:    side,
		Price:   price,
		Qty:     s.quoteQty,
		TIF:     events.Day,
		TSNano:  nowNano,
	}))

	if side == events.Buy {
		s.bidOrderID = id
	} else {
		s.askOrderID = id
	}
}
