// Package flow implements the deterministically-seeded synthetic order flow
// ("street flow") that keeps a book lively in the absence of real
// participants.
package flow

import (
	"math/rand"

	"github.com/Shagai/hft-sim/book"
	"github.com/Shagai/hft-sim/events"
)

// flowQty is the fixed quantity of every synthetic order the generator
// injects once the book has been seeded.
const flowQty = 5

// Config configures a Generator. The zero value is not meaningful; use
// Default or fill in every field explicitly.
type Config struct {
	Mid        int64
	Tick       int64
	Lot        int32
	SpreadProb float64
	MoveProb   float64
	MaxDepth   int
	Seed       int64
}

// Default returns the reproducible flow-config defaults used by the demo
// binaries: mid=10000, tick=1, lot=1, spread_prob=0.6, move_prob=0.55,
// max_depth=5, seed=42.
func Default() Config {
	return Config{
		Mid:        10000,
		Tick:       1,
		Lot:        1,
		SpreadProb: 0.6,
		MoveProb:   0.55,
		MaxDepth:   5,
		Seed:       42,
	}
}

// syntheticUserID is the fixed user id attached to every order the
// generator injects.
const syntheticUserID = 0

// Engine is the same-thread surface the generator needs from the matching
// engine: inject a command and read the current top of book. It is
// satisfied by *matching.Engine.
type Engine interface {
	OnCommand(events.Command)
	Top() events.TopOfBook
}

// Generator is a deterministically-seeded pseudo-random source of
// synthetic counterparty orders.
type Generator struct {
	cfg    Config
	rng    *rand.Rand
	nextID uint64
}

// New builds a Generator from cfg. Construction does not touch the book;
// call SeedBook separately.
func New(cfg Config) *Generator {
	return &Generator{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		nextID: 1,
	}
}

// SeedBook populates an empty book with max_depth price levels on each side
// around the configured mid, lot-sized resting orders one tick apart.
func (g *Generator) SeedBook(b *book.Book) error {
	for i := 1; i <= g.cfg.MaxDepth; i++ {
		offset := int64(i) * g.cfg.Tick
		if err := b.AddPassive(events.Order{
			OrderID:      g.allocID(),
			UserID:       syntheticUserID,
			Side:         events.Buy,
			Price:        g.cfg.Mid - offset,
			RemainingQty: g.cfg.Lot,
		}); err != nil {
			return err
		}
		if err := b.AddPassive(events.Order{
			OrderID:      g.allocID(),
			UserID:       syntheticUserID,
			Side:         events.Sell,
			Price:        g.cfg.Mid + offset,
			RemainingQty: g.cfg.Lot,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Step draws, in order, a move decision and a spread decision, then injects
// either a one-sided IOC that lifts the ask or hits the bid, or a
// symmetric pair of Day orders that widen or tighten the spread. The draw
// order must never change: reordering it would change which random numbers
// feed which decision and break reproducibility for a given seed.
func (g *Generator) Step(eng Engine) {
	move := g.rng.Float64() < g.cfg.MoveProb
	widen := g.rng.Float64() < (1 - g.cfg.SpreadProb)

	top := eng.Top()

	if move {
		g.moveBook(eng, top)
		return
	}
	g.adjustSpread(eng, top, widen)
}

func (g *Generator) moveBook(eng Engine, top events.TopOfBook) {
	liftAsk := g.rng.Float64() < 0.5
	if liftAsk {
		if top.AskPrice == 0 {
			return
		}
		eng.OnCommand(events.NewCommand(events.NewOrder{
			OrderID: g.allocID(),
			UserID:  syntheticUserID,
			Side:    events.Buy,
			Price:   top.AskPrice,
			Qty:     flowQty,
			TIF:     events.IOC,
		}))
		return
	}
	if top.BidPrice == 0 {
		return
	}
	eng.OnCommand(events.NewCommand(events.NewOrder{
		OrderID: g.allocID(),
		UserID:  syntheticUserID,
		Side:    events.Sell,
		Price:   top.BidPrice,
		Qty:     flowQty,
		TIF:     events.IOC,
	}))
}

func (g *Generator) adjustSpread(eng Engine, top events.TopOfBook, widen bool) {
	if top.BidPrice == 0 || top.AskPrice == 0 {
		return
	}

	var bidPrice, askPrice int64
	if widen {
		bidPrice = top.BidPrice - g.cfg.Tick
		askPrice = top.AskPrice + g.cfg.Tick
	} else {
		bidPrice = top.BidPrice + g.cfg.Tick
		askPrice = top.AskPrice - g.cfg.Tick
	}

	eng.OnCommand(events.NewCommand(events.NewOrder{
		OrderID: g.allocID(),
		UserID:  syntheticUserID,
		Side:    events.Buy,
		Price:   bidPrice,
		Qty:     flowQty,
		TIF:     events.Day,
	}))
	eng.OnCommand(events.NewCommand(events.NewOrder{
		OrderID: g.allocID(),
		UserID:  syntheticUserID,
		Side:    events.Sell,
		Price:   askPrice,
		Qty:     flowQty,
		TIF:     events.Day,
	}))
}

func (g *Generator) allocID() uint64 {
	id := g.nextID
	g.nextID++
	return id
}
