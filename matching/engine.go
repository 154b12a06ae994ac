// Package matching turns one Command at a time into ExecEvent and
// MarketDataEvent pushes against a book.Book. It is stateless beyond the
// references it holds; all mutable state lives in the book.
package matching

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Shagai/hft-sim/book"
	"github.com/Shagai/hft-sim/events"
	"github.com/Shagai/hft-sim/ringqueue"
)

const reasonUnknownOrderID = "unknown order id"
const reasonFOKNotFilled = "FOK not fully filled"

// Engine applies commands to a book and emits the resulting events.
type Engine struct {
	book  *book.Book
	execQ *ringqueue.RingQueue[events.ExecEvent]
	mdQ   *ringqueue.RingQueue[events.MarketDataEvent]
	now   func() int64
	log   *zap.Logger
}

// New builds an Engine over book b, publishing to execQ and mdQ. now
// supplies the nanosecond clock stamped onto every emitted event.
func New(b *book.Book, execQ *ringqueue.RingQueue[events.ExecEvent], mdQ *ringqueue.RingQueue[events.MarketDataEvent], now func() int64, log *zap.Logger) *Engine {
	return &Engine{book: b, execQ: execQ, mdQ: mdQ, now: now, log: log}
}

// Top returns the current best bid/ask, read directly off the book. The
// flow generator uses this same-thread accessor to decide its next move
// without going through any queue (see worker.Worker, which guarantees the
// generator only ever runs on the book-owning goroutine).
func (e *Engine) Top() events.TopOfBook {
	return e.book.Top()
}

// OnCommand applies cmd to the book and pushes the resulting events. A full
// output queue drops the event being pushed, logging a warning, rather than
// blocking or returning an error, since stalling the book to wait on a slow consumer would be
// worse than a dropped event.
func (e *Engine) OnCommand(cmd events.Command) {
	switch cmd.Kind {
	case events.CommandNew:
		e.handleNew(cmd.New)
	case events.CommandCancel:
		e.handleCancel(cmd.Cancel)
	}
}

func (e *Engine) handleCancel(c events.CancelOrder) {
	qty, err := e.book.Cancel(c.OrderID)
	if err != nil {
		e.fatal(err, "cancel", c.OrderID)
		return
	}

	ts := e.now()
	if qty > 0 {
		e.pushExec(events.ExecEvent{Kind: events.CancelAck, OrderID: c.OrderID, UserID: c.UserID, LeavesQty: 0, TSNano: ts})
	} else {
		e.pushExec(events.ExecEvent{Kind: events.Reject, OrderID: c.OrderID, UserID: c.UserID, Reason: reasonUnknownOrderID, TSNano: ts})
	}
	e.pushTop()
}

func (e *Engine) handleNew(n events.NewOrder) {
	if n.TIF == events.FOK {
		fillable := e.book.FillableQty(n.Side, n.Price, false, n.Qty)
		if fillable < n.Qty {
			e.pushExec(events.ExecEvent{Kind: events.Reject, OrderID: n.OrderID, UserID: n.UserID, Reason: reasonFOKNotFilled, TSNano: e.now()})
			e.pushTop()
			return
		}
	}

	leaves := n.Qty
	filledAny := false
	remaining := e.book.Match(n.Side, n.Price, false, n.Qty, func(tradePrice int64, tradeQty int32, resting *events.Order) {
		filledAny = true
		leaves -= tradeQty
		ts := e.now()
		e.pushExec(events.ExecEvent{
			Kind:       events.Trade,
			OrderID:    n.OrderID,
			UserID:     n.UserID,
			FilledQty:  tradeQty,
			TradePrice: tradePrice,
			LeavesQty:  leaves,
			TSNano:     ts,
		})
		e.pushMD(events.TradePrintEvent(events.TradePrint{Price: tradePrice, Qty: tradeQty, Aggressor: n.Side, TSNano: ts}))
	})

	if remaining > 0 {
		switch n.TIF {
		case events.Day:
			err := e.book.AddPassive(events.Order{
				OrderID:      n.OrderID,
				UserID:       n.UserID,
				Side:         n.Side,
				Price:        n.Price,
				RemainingQty: remaining,
				SubmitTSNano: n.TSNano,
			})
			if err != nil {
				e.fatal(err, "add_passive", n.OrderID)
				return
			}
			e.pushExec(events.ExecEvent{Kind: events.Ack, OrderID: n.OrderID, UserID: n.UserID, LeavesQty: remaining, TSNano: e.now()})
		case events.IOC:
			e.pushExec(events.ExecEvent{Kind: events.Ack, OrderID: n.OrderID, UserID: n.UserID, LeavesQty: 0, TSNano: e.now()})
		case events.FOK:
			e.fatal(errors.New("FOK residue survived a passed pre-check on a single-threaded book"), "fok residue", n.OrderID)
			return
		}
	} else if filledAny {
		e.pushExec(events.ExecEvent{Kind: events.Ack, OrderID: n.OrderID, UserID: n.UserID, LeavesQty: 0, TSNano: e.now()})
	}

	e.pushTop()
}

func (e *Engine) pushExec(ev events.ExecEvent) {
	if !e.execQ.Push(ev) {
		e.log.Warn("exec queue full, dropping event", zap.Uint64("order_id", ev.OrderID), zap.Stringer("kind", ev.Kind))
	}
}

func (e *Engine) pushMD(ev events.MarketDataEvent) {
	if !e.mdQ.Push(ev) {
		e.log.Warn("market data queue full, dropping event")
	}
}

func (e *Engine) pushTop() {
	e.pushMD(events.TopOfBookEvent(e.book.Top()))
}

// PublishTop pushes the current top of book as a MarketDataEvent. Exported
// so the engine worker can announce the initial book state to consumers
// before entering its main loop.
func (e *Engine) PublishTop() {
	e.pushTop()
}

func (e *Engine) fatal(err error, op string, orderID uint64) {
	wrapped := errors.Wrapf(err, "matching: fatal invariant violation during %s (order_id=%d)", op, orderID)
	e.log.Fatal(wrapped.Error(), zap.Error(wrapped))
}
