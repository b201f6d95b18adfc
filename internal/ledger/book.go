package ledger

import (
	"sync"
	"time"

	"gavel/internal/common"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// entry is an order resting on one side of a book. seq breaks ties between equal
// amounts so earlier orders stay ahead.
type entry struct {
	seq   uint64
	order *common.Order
}

type Entries = btree.BTreeG[*entry]

// OrderBook is the per-auction view over recorded orders. Its mutex is the
// per-auction boundary: every status change of an order in this auction happens
// under it.
type OrderBook struct {
	mu sync.Mutex

	auctionID string

	// Sorted greatest amount first. Cancelled orders are removed, filled orders
	// stay.
	bids *Entries
	// Never populated: auctions only take bids. Kept so cancellation and
	// snapshots treat both sides alike.
	asks *Entries

	entries   map[string]*entry // orderID -> resting entry
	nextSeq   uint64
	lastPrice decimal.Decimal // Price of the latest fill
	timestamp time.Time       // Last mutation
}

// DepthLevel is one line of price depth. Quantity is per order, never
// aggregated across orders at the same price.
type DepthLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity uint64          `json:"quantity"`
	Side     common.Side     `json:"side"`
}

// Snapshot is a deep copy of an OrderBook. Nothing in it aliases ledger state.
type Snapshot struct {
	AuctionID string          `json:"auction_id"`
	Bids      []common.Order  `json:"bids"`
	Asks      []common.Order  `json:"asks"`
	LastPrice decimal.Decimal `json:"last_price"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewOrderBook(auctionID string, now time.Time) *OrderBook {
	bids := btree.NewBTreeG(func(a, b *entry) bool {
		if a.order.BidAmount.Equal(b.order.BidAmount) {
			return a.seq < b.seq
		}
		return a.order.BidAmount.GreaterThan(b.order.BidAmount)
	})
	asks := btree.NewBTreeG(func(a, b *entry) bool {
		if a.order.BidAmount.Equal(b.order.BidAmount) {
			return a.seq < b.seq
		}
		return a.order.BidAmount.LessThan(b.order.BidAmount)
	})
	return &OrderBook{
		auctionID: auctionID,
		bids:      bids,
		asks:      asks,
		entries:   make(map[string]*entry),
		lastPrice: decimal.Zero,
		timestamp: now,
	}
}

func (book *OrderBook) AuctionID() string {
	return book.auctionID
}

func (book *OrderBook) LastPrice() decimal.Decimal {
	book.mu.Lock()
	defer book.mu.Unlock()

	return book.lastPrice
}

func (book *OrderBook) Timestamp() time.Time {
	book.mu.Lock()
	defer book.mu.Unlock()

	return book.timestamp
}

// Len is the number of orders resting on the bid side.
func (book *OrderBook) Len() int {
	book.mu.Lock()
	defer book.mu.Unlock()

	return book.bids.Len()
}

// insert rests an order on the bid side. Caller holds book.mu.
func (book *OrderBook) insert(order *common.Order) {
	book.nextSeq++
	e := &entry{seq: book.nextSeq, order: order}
	book.bids.Set(e)
	book.entries[order.OrderID] = e
	book.timestamp = order.Timestamp
}

// remove takes an order off both sides of the book. Caller holds book.mu.
func (book *OrderBook) remove(orderID string) {
	e, ok := book.entries[orderID]
	if !ok {
		return
	}
	book.bids.Delete(e)
	book.asks.Delete(e)
	delete(book.entries, orderID)
}

// topBid is the best bid amount, zero on an empty book. Caller holds book.mu.
func (book *OrderBook) topBid() decimal.Decimal {
	best, ok := book.bids.Min()
	if !ok {
		return decimal.Zero
	}
	return best.order.BidAmount
}

// depth lists up to levels bids from the top of the book. Caller holds book.mu.
func (book *OrderBook) depth(levels int) []DepthLevel {
	depth := make([]DepthLevel, 0, min(levels, book.bids.Len()))
	book.bids.Scan(func(e *entry) bool {
		if len(depth) >= levels {
			return false
		}
		depth = append(depth, DepthLevel{
			Price:    e.order.BidAmount,
			Quantity: 1,
			Side:     common.Buy,
		})
		return true
	})
	return depth
}

// snapshot deep copies the book. Caller holds book.mu.
func (book *OrderBook) snapshot() Snapshot {
	return Snapshot{
		AuctionID: book.auctionID,
		Bids:      flatten(book.bids),
		Asks:      flatten(book.asks),
		LastPrice: book.lastPrice,
		Timestamp: book.timestamp,
	}
}

func flatten(side *Entries) []common.Order {
	orders := make([]common.Order, 0, side.Len())
	side.Scan(func(e *entry) bool {
		orders = append(orders, *e.order)
		return true
	})
	return orders
}
