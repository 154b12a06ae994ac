package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shagai/hft-sim/book"
	"github.com/Shagai/hft-sim/events"
	"github.com/Shagai/hft-sim/ringqueue"
)

func newTestEngine(t *testing.T) (*Engine, *ringqueue.RingQueue[events.ExecEvent], *ringqueue.RingQueue[events.MarketDataEvent]) {
	t.Helper()
	execQ, err := ringqueue.New[events.ExecEvent](64)
	require.NoError(t, err)
	mdQ, err := ringqueue.New[events.MarketDataEvent](64)
	require.NoError(t, err)
	b := book.New(func() int64 { return 0 })
	return New(b, execQ, mdQ, func() int64 { return 0 }, zap.NewNop()), execQ, mdQ
}

func TestPassiveAckPublishesTop(t *testing.T) {
	e, execQ, mdQ := newTestEngine(t)

	e.OnCommand(events.NewCommand(events.NewOrder{OrderID: 1, UserID: 1, Side: events.Buy, Price: 100, Qty: 5, TIF: events.Day}))

	exec, ok := execQ.Pop()
	require.True(t, ok)
	assert.Equal(t, events.Ack, exec.Kind)
	assert.Equal(t, uint64(1), exec.OrderID)
	assert.Equal(t, int32(5), exec.LeavesQty)
	_, ok = execQ.Pop()
	assert.False(t, ok)

	md, ok := mdQ.Pop()
	require.True(t, ok)
	require.Equal(t, events.MDTopOfBook, md.Kind)
	assert.Equal(t, int64(100), md.Top.BidPrice)
	assert.Equal(t, int32(5), md.Top.BidQty)
	assert.Zero(t, md.Top.AskPrice)
	assert.Zero(t, md.Top.AskQty)
	_, ok = mdQ.Pop()
	assert.False(t, ok)
}

func TestAggressorFullyFillsOneResting(t *testing.T) {
	e, execQ, mdQ := newTestEngine(t)
	e.OnCommand(events.NewCommand(events.NewOrder{OrderID: 50, UserID: 9, Side: events.Sell, Price: 101, Qty: 4, TIF: events.Day}))
	execQ.Drain()
	mdQ.Drain()

	e.OnCommand(events.NewCommand(events.NewOrder{OrderID: 60, UserID: 1, Side: events.Buy, Price: 101, Qty: 3, TIF: events.Day}))

	trade, ok := execQ.Pop()
	require.True(t, ok)
	assert.Equal(t, events.Trade, trade.Kind)
	assert.Equal(t, uint64(60), trade.OrderID)
	assert.Equal(t, int64(101), trade.TradePrice)
	assert.Equal(t, int32(3), trade.FilledQty)

	ack, ok := execQ.Pop()
	require.True(t, ok)
	assert.Equal(t, events.Ack, ack.Kind)
	assert.Equal(t, uint64(60), ack.OrderID)
	assert.Zero(t, ack.LeavesQty)
	_, ok = execQ.Pop()
	assert.False(t, ok)

	print, ok := mdQ.Pop()
	require.True(t, ok)
	require.Equal(t, events.MDTradePrint, print.Kind)
	assert.Equal(t, int64(101), print.Print.Price)
	assert.Equal(t, int32(3), print.Print.Qty)
	assert.Equal(t, events.Buy, print.Print.Aggressor)

	top, ok := mdQ.Pop()
	require.True(t, ok)
	require.Equal(t, events.MDTopOfBook, top.Kind)
	assert.Zero(t, top.Top.BidPrice)
	assert.Equal(t, int64(101), top.Top.AskPrice)
	assert.Equal(t, int32(1), top.Top.AskQty)
}

func TestCancelUnknownRejects(t *testing.T) {
	e, execQ, mdQ := newTestEngine(t)

	e.OnCommand(events.CancelCommand(events.CancelOrder{OrderID: 999}))

	exec, ok := execQ.Pop()
	require.True(t, ok)
	assert.Equal(t, events.Reject, exec.Kind)
	assert.Equal(t, reasonUnknownOrderID, exec.Reason)

	md, ok := mdQ.Pop()
	require.True(t, ok)
	assert.Zero(t, md.Top.BidPrice)
	assert.Zero(t, md.Top.AskPrice)
}

func TestIOCResidueDiscarded(t *testing.T) {
	e, execQ, mdQ := newTestEngine(t)
	e.OnCommand(events.NewCommand(events.NewOrder{OrderID: 1, UserID: 1, Side: events.Sell, Price: 101, Qty: 1, TIF: events.Day}))
	execQ.Drain()
	mdQ.Drain()

	e.OnCommand(events.NewCommand(events.NewOrder{OrderID: 2, UserID: 2, Side: events.Buy, Price: 101, Qty: 3, TIF: events.IOC}))

	trade, ok := execQ.Pop()
	require.True(t, ok)
	assert.Equal(t, events.Trade, trade.Kind)
	assert.Equal(t, int32(1), trade.FilledQty)

	ack, ok := execQ.Pop()
	require.True(t, ok)
	assert.Equal(t, events.Ack, ack.Kind)
	assert.Zero(t, ack.LeavesQty)
	_, ok = execQ.Pop()
	assert.False(t, ok)
}

func TestFOKRejectsWhenBookCannotFullyFill(t *testing.T) {
	e, execQ, _ := newTestEngine(t)
	e.OnCommand(events.NewCommand(events.NewOrder{OrderID: 1, UserID: 1, Side: events.Sell, Price: 101, Qty: 2, TIF: events.Day}))
	execQ.Drain()

	e.OnCommand(events.NewCommand(events.NewOrder{OrderID: 2, UserID: 2, Side: events.Buy, Price: 101, Qty: 5, TIF: events.FOK}))

	exec, ok := execQ.Pop()
	require.True(t, ok)
	assert.Equal(t, events.Reject, exec.Kind)
	assert.Equal(t, reasonFOKNotFilled, exec.Reason)
}

// TestFOKDoesNotMutateBookOnReject guards the required non-mutating
// pre-check: a rejected FOK must leave every resting order untouched.
func TestFOKDoesNotMutateBookOnReject(t *testing.T) {
	e, execQ, _ := newTestEngine(t)
	e.OnCommand(events.NewCommand(events.NewOrder{OrderID: 1, UserID: 1, Side: events.Sell, Price: 101, Qty: 2, TIF: events.Day}))
	execQ.Drain()

	e.OnCommand(events.NewCommand(events.NewOrder{OrderID: 2, UserID: 2, Side: events.Buy, Price: 101, Qty: 5, TIF: events.FOK}))
	execQ.Drain()

	top := e.book.Top()
	assert.Equal(t, int64(101), top.AskPrice)
	assert.Equal(t, int32(2), top.AskQty)
}

func TestFOKFillsWhenBookCanFullyFill(t *testing.T) {
	e, execQ, _ := newTestEngine(t)
	e.OnCommand(events.NewCommand(events.NewOrder{OrderID: 1, UserID: 1, Side: events.Sell, Price: 101, Qty: 5, TIF: events.Day}))
	execQ.Drain()

	e.OnCommand(events.NewCommand(events.NewOrder{OrderID: 2, UserID: 2, Side: events.Buy, Price: 101, Qty: 5, TIF: events.FOK}))

	trade, ok := execQ.Pop()
	require.True(t, ok)
	assert.Equal(t, events.Trade, trade.Kind)
	assert.Equal(t, int32(5), trade.FilledQty)

	ack, ok := execQ.Pop()
	require.True(t, ok)
	assert.Equal(t, events.Ack, ack.Kind)
	assert.Zero(t, ack.LeavesQty)
}
