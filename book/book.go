// Package book implements the price-time priority limit order book for a
// single instrument: a pair of price-indexed btrees (descending for bids,
// ascending for asks), each price level a FIFO of resting orders, plus an
// id -> (price, side) index for O(log n) cancellation.
package book

import (
	"fmt"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"github.com/google/btree"

	"github.com/Shagai/hft-sim/events"
)

// ErrDuplicateOrderID is a fatal invariant violation: add_passive was asked
// to register an order_id already tracked by the book.
var ErrDuplicateOrderID = fmt.Errorf("book: duplicate order id")

// ErrIDLevelMismatch is a fatal invariant violation: id_index points at a
// level that no longer contains the order.
var ErrIDLevelMismatch = fmt.Errorf("book: id index inconsistent with level contents")

type idLocation struct {
	price int64
	side  events.Side
}

// priceLevel holds every resting order at one (price, side), in insertion
// order.
type priceLevel struct {
	price  int64
	orders *linkedhashmap.Map // orderID uint64 -> *events.Order
}

func newPriceLevel(price int64) *priceLevel {
	return &priceLevel{price: price, orders: linkedhashmap.New()}
}

func (l *priceLevel) empty() bool {
	return l.orders.Size() == 0
}

// bidItem orders price levels descending by price so the btree's natural
// minimum is the best bid.
type bidItem struct{ *priceLevel }

func (a bidItem) Less(than btree.Item) bool {
	return a.price > than.(bidItem).price
}

// askItem orders price levels ascending by price so the btree's natural
// minimum is the best ask.
type askItem struct{ *priceLevel }

func (a askItem) Less(than btree.Item) bool {
	return a.price < than.(askItem).price
}

const btreeDegree = 32

// Book is a single-instrument price-time priority limit order book. It is
// not safe for concurrent use; the engine worker is its sole owner.
type Book struct {
	bids *btree.BTree
	asks *btree.BTree
	ids  map[uint64]idLocation
	now  func() int64
}

// New builds an empty book. now supplies the monotonic nanosecond clock
// used to timestamp TopOfBook snapshots; tests may override it.
func New(now func() int64) *Book {
	return &Book{
		bids: btree.New(btreeDegree),
		asks: btree.New(btreeDegree),
		ids:  make(map[uint64]idLocation),
		now:  now,
	}
}

// Top returns the best bid/ask price and the aggregate resting quantity at
// each. A side with no resting liquidity reports zero price and quantity.
func (b *Book) Top() events.TopOfBook {
	top := events.TopOfBook{TSNano: b.now()}
	if item := b.bids.Min(); item != nil {
		level := item.(bidItem).priceLevel
		top.BidPrice = level.price
		top.BidQty = levelQty(level)
	}
	if item := b.asks.Min(); item != nil {
		level := item.(askItem).priceLevel
		top.AskPrice = level.price
		top.AskQty = levelQty(level)
	}
	return top
}

func levelQty(level *priceLevel) int32 {
	var sum int32
	it := level.orders.Iterator()
	for it.Next() {
		sum += it.Value().(*events.Order).RemainingQty
	}
	return sum
}

// AddPassive inserts order at the tail of its (price, side) level and
// registers its id. The caller guarantees order.RemainingQty > 0 and that
// order.OrderID is not already tracked. A duplicate id is reported as
// ErrDuplicateOrderID; the quantity is not checked.
func (b *Book) AddPassive(order events.Order) error {
	if _, exists := b.ids[order.OrderID]; exists {
		return ErrDuplicateOrderID
	}
	level := b.getOrCreateLevel(order.Side, order.Price)
	stored := order
	level.orders.Put(order.OrderID, &stored)
	b.ids[order.OrderID] = idLocation{price: order.Price, side: order.Side}
	return nil
}

func (b *Book) getOrCreateLevel(side events.Side, price int64) *priceLevel {
	if side == events.Buy {
		probe := bidItem{&priceLevel{price: price}}
		if item := b.bids.Get(probe); item != nil {
			return item.(bidItem).priceLevel
		}
		level := newPriceLevel(price)
		b.bids.ReplaceOrInsert(bidItem{level})
		return level
	}
	probe := askItem{&priceLevel{price: price}}
	if item := b.asks.Get(probe); item != nil {
		return item.(askItem).priceLevel
	}
	level := newPriceLevel(price)
	b.asks.ReplaceOrInsert(askItem{level})
	return level
}

func (b *Book) dropLevelIfEmpty(side events.Side, level *priceLevel) {
	if !level.empty() {
		return
	}
	if side == events.Buy {
		b.bids.Delete(bidItem{level})
	} else {
		b.asks.Delete(askItem{level})
	}
}

// Cancel removes the resting order with the given id. It returns the
// quantity that was resting, or 0 if the id is unknown.
func (b *Book) Cancel(orderID uint64) (int32, error) {
	loc, ok := b.ids[orderID]
	if !ok {
		return 0, nil
	}
	level := b.levelAt(loc)
	if level == nil {
		return 0, ErrIDLevelMismatch
	}
	v, ok := level.orders.Get(orderID)
	if !ok {
		return 0, ErrIDLevelMismatch
	}
	order := v.(*events.Order)
	level.orders.Remove(orderID)
	delete(b.ids, orderID)
	b.dropLevelIfEmpty(loc.side, level)
	return order.RemainingQty, nil
}

func (b *Book) levelAt(loc idLocation) *priceLevel {
	if loc.side == events.Buy {
		if item := b.bids.Get(bidItem{&priceLevel{price: loc.price}}); item != nil {
			return item.(bidItem).priceLevel
		}
		return nil
	}
	if item := b.asks.Get(askItem{&priceLevel{price: loc.price}}); item != nil {
		return item.(askItem).priceLevel
	}
	return nil
}

// crosses reports whether an aggressor of the given side and limit price
// crosses a resting level at restingPrice. When unlimited is true every
// level crosses and limitPrice is not consulted.
func crosses(side events.Side, limitPrice int64, unlimited bool, restingPrice int64) bool {
	if unlimited {
		return true
	}
	if side == events.Buy {
		return limitPrice >= restingPrice
	}
	return limitPrice <= restingPrice
}

// FillableQty performs a non-mutating walk of the opposite side and returns
// how much of qty could be filled right now, capped at qty. It never
// invokes a trade callback and never mutates the book; this is the FOK
// pre-check the matching engine runs before it commits to matching, since
// matching first and rejecting afterwards would already have consumed
// resting orders.
func (b *Book) FillableQty(side events.Side, limitPrice int64, unlimited bool, qty int32) int32 {
	opposing := b.opposingTree(side)
	var filled int32
	opposing.Ascend(func(item btree.Item) bool {
		level := levelOf(item)
		if !crosses(side, limitPrice, unlimited, level.price) {
			return false
		}
		filled += levelQty(level)
		return filled < qty
	})
	if filled > qty {
		filled = qty
	}
	return filled
}

func (b *Book) opposingTree(side events.Side) *btree.BTree {
	if side == events.Buy {
		return b.asks
	}
	return b.bids
}

func levelOf(item btree.Item) *priceLevel {
	if bi, ok := item.(bidItem); ok {
		return bi.priceLevel
	}
	return item.(askItem).priceLevel
}

// OnTrade is invoked once per fill produced by Match.
type OnTrade func(tradePrice int64, tradeQty int32, resting *events.Order)

// Match consumes liquidity on the opposite side of side, in strict
// price-then-time order, until qty is exhausted or the opposite side stops
// crossing limitPrice (ignored when unlimited is true). It returns the
// remaining, unfilled quantity. Each fill invokes onTrade exactly once; the
// resting order is mutated in place or removed once fully filled, and
// emptied levels are dropped.
func (b *Book) Match(side events.Side, limitPrice int64, unlimited bool, qty int32, onTrade OnTrade) int32 {
	remaining := qty
	opposingSide := events.Sell
	if side == events.Sell {
		opposingSide = events.Buy
	}
	opposing := b.opposingTree(side)

	for remaining > 0 {
		item := opposing.Min()
		if item == nil {
			break
		}
		level := levelOf(item)
		if !crosses(side, limitPrice, unlimited, level.price) {
			break
		}

		keys := level.orders.Keys()
		for _, k := range keys {
			if remaining == 0 {
				break
			}
			v, _ := level.orders.Get(k)
			resting := v.(*events.Order)

			tradeQty := remaining
			if resting.RemainingQty < tradeQty {
				tradeQty = resting.RemainingQty
			}
			tradePrice := level.price

			remaining -= tradeQty
			resting.RemainingQty -= tradeQty

			onTrade(tradePrice, tradeQty, resting)

			if resting.RemainingQty == 0 {
				level.orders.Remove(k)
				delete(b.ids, resting.OrderID)
			}
		}
		b.dropLevelIfEmpty(opposingSide, level)
	}
	return remaining
}
