// Package events defines the in-process record types exchanged between
// producers, the matching engine, and consumers: commands flowing in, and
// exec / market-data events flowing out.
package events

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "Buy"
	}
	return "Sell"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// TIF is the time-in-force of a new order.
type TIF int

const (
	// Day orders rest on the book once their residue stops crossing.
	Day TIF = iota
	// IOC orders discard any residue instead of resting.
	IOC
	// FOK orders must fill in full or not at all.
	FOK
)

func (t TIF) String() string {
	switch t {
	case Day:
		return "Day"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return "unknown"
	}
}

// Order is a resting record in the book.
type Order struct {
	OrderID      uint64
	UserID       uint64
	Side         Side
	Price        int64
	RemainingQty int32
	SubmitTSNano int64
}

// NewOrder is the payload of a Command that introduces a new order.
type NewOrder struct {
	OrderID uint64
	UserID  uint64
	Side    Side
	Price   int64
	Qty     int32
	TIF     TIF
	TSNano  int64
}

// CancelOrder is the payload of a Command that cancels a resting order.
type CancelOrder struct {
	OrderID uint64
	UserID  uint64
	TSNano  int64
}

// CommandKind discriminates the Command union.
type CommandKind int

const (
	CommandNew CommandKind = iota
	CommandCancel
)

// Command is the tagged union {New(NewOrder) | Cancel(CancelOrder)} pushed
// onto the command ring queue by producers.
type Command struct {
	Kind   CommandKind
	New    NewOrder
	Cancel CancelOrder
}

// NewCommand builds a Command carrying a NewOrder.
func NewCommand(n NewOrder) Command {
	return Command{Kind: CommandNew, New: n}
}

// CancelCommand builds a Command carrying a CancelOrder.
func CancelCommand(c CancelOrder) Command {
	return Command{Kind: CommandCancel, Cancel: c}
}

// ExecKind discriminates the ExecEvent union.
type ExecKind int

const (
	Ack ExecKind = iota
	Trade
	CancelAck
	Reject
)

func (k ExecKind) String() string {
	switch k {
	case Ack:
		return "Ack"
	case Trade:
		return "Trade"
	case CancelAck:
		return "CancelAck"
	case Reject:
		return "Reject"
	default:
		return "unknown"
	}
}

// ExecEvent reports the outcome of one command against the book. Only the
// fields relevant to Kind carry meaning; see matching.Engine.OnCommand.
type ExecEvent struct {
	Kind       ExecKind
	OrderID    uint64
	UserID     uint64
	FilledQty  int32
	TradePrice int64
	LeavesQty  int32
	Reason     string
	TSNano     int64
}

// TopOfBook is a snapshot of the best bid/ask price and aggregate resting
// quantity at each.
type TopOfBook struct {
	BidPrice int64
	BidQty   int32
	AskPrice int64
	AskQty   int32
	TSNano   int64
}

// TradePrint announces a single fill to market-data consumers.
type TradePrint struct {
	Price     int64
	Qty       int32
	Aggressor Side
	TSNano    int64
}

// MarketDataKind discriminates the MarketDataEvent union.
type MarketDataKind int

const (
	MDTopOfBook MarketDataKind = iota
	MDTradePrint
)

// MarketDataEvent is the tagged union {TopOfBook | TradePrint}.
type MarketDataEvent struct {
	Kind  MarketDataKind
	Top   TopOfBook
	Print TradePrint
}

// TopOfBookEvent builds a MarketDataEvent carrying a TopOfBook.
func TopOfBookEvent(t TopOfBook) MarketDataEvent {
	return MarketDataEvent{Kind: MDTopOfBook, Top: t}
}

// TradePrintEvent builds a MarketDataEvent carrying a TradePrint.
func TradePrintEvent(p TradePrint) MarketDataEvent {
	return MarketDataEvent{Kind: MDTradePrint, Print: p}
}
