package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shagai/hft-sim/events"
)

func TestCanQuoteRejectsOverMaxOrderQty(t *testing.T) {
	m := NewManager(1000, 1000000, 10)
	assert.False(t, m.CanQuote(events.Buy, 11))
	assert.True(t, m.CanQuote(events.Buy, 10))
}

func TestCanQuoteRejectsNonPositiveQty(t *testing.T) {
	m := NewManager(1000, 1000000, 10)
	assert.False(t, m.CanQuote(events.Buy, 0))
	assert.False(t, m.CanQuote(events.Buy, -5))
}

func TestCanQuoteRejectsPositionBreach(t *testing.T) {
	m := NewManager(100, 1000000, 1000)
	m.OnExec(events.Buy, 95, 10000)
	assert.False(t, m.CanQuote(events.Buy, 10))
	assert.True(t, m.CanQuote(events.Sell, 10))
}

func TestOnExecBuyIncreasesPositionAndDecreasesNotional(t *testing.T) {
	m := NewManager(1000, 1000000, 1000)
	m.OnExec(events.Buy, 10, 100)
	assert.EqualValues(t, 10, m.Position())
	assert.EqualValues(t, -1000, m.Notional())
}

func TestOnExecSellDecreasesPositionAndIncreasesNotional(t *testing.T) {
	m := NewManager(1000, 1000000, 1000)
	m.OnExec(events.Sell, 10, 100)
	assert.EqualValues(t, -10, m.Position())
	assert.EqualValues(t, 1000, m.Notional())
}
