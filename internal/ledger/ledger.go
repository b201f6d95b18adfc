package ledger

import (
	"errors"
	"time"

	"gavel/internal/common"

	"github.com/shopspring/decimal"
)

const DefaultDepthLevels = 10

var ErrDuplicateOrder = errors.New("duplicate order id")

// Ledger records orders placed against auctions and serves market data views
// over them. It applies no auction rules: callers validate bids first.
type Ledger struct {
	store Store
	now   func() time.Time
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithStore swaps the default in-memory store.
func WithStore(store Store) Option {
	return func(l *Ledger) {
		l.store = store
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		store: NewMemoryStore(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OrderBook returns the live book for an auction, creating an empty one on
// first reference.
func (l *Ledger) OrderBook(auctionID string) *OrderBook {
	if book, ok := l.store.Book(auctionID); ok {
		return book
	}
	return l.store.PutBook(NewOrderBook(auctionID, l.now()))
}

// AddBid records a pending order and rests it on the auction's bid side.
func (l *Ledger) AddBid(orderID, userID, auctionID string, amount decimal.Decimal) (common.Order, error) {
	book := l.OrderBook(auctionID)

	book.mu.Lock()
	defer book.mu.Unlock()

	order := &common.Order{
		OrderID:   orderID,
		UserID:    userID,
		AuctionID: auctionID,
		BidAmount: amount,
		Status:    common.OrderPending,
		Timestamp: l.now(),
	}
	if !l.store.PutOrder(order) {
		return common.Order{}, ErrDuplicateOrder
	}
	book.insert(order)

	return *order, nil
}

// Order looks an order up by id, whatever its status.
func (l *Ledger) Order(orderID string) (common.Order, bool) {
	order, book, ok := l.lookup(orderID)
	if !ok {
		return common.Order{}, false
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	return *order, true
}

// TopBid is the highest resting bid amount, or zero.
func (l *Ledger) TopBid(auctionID string) decimal.Decimal {
	book := l.OrderBook(auctionID)

	book.mu.Lock()
	defer book.mu.Unlock()

	return book.topBid()
}

// FillOrder marks a pending order filled and records its amount as the book's
// last price. The order stays on the book. Unknown orders and orders already
// filled or cancelled are refused.
func (l *Ledger) FillOrder(orderID string) bool {
	order, book, ok := l.lookup(orderID)
	if !ok {
		return false
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	if order.Status != common.OrderPending {
		return false
	}
	now := l.now()
	order.Status = common.OrderFilled
	book.lastPrice = order.BidAmount
	book.timestamp = now

	return true
}

// CancelOrder marks a pending order cancelled and takes it off the book. The
// order itself remains retrievable.
func (l *Ledger) CancelOrder(orderID string) bool {
	order, book, ok := l.lookup(orderID)
	if !ok {
		return false
	}

	book.mu.Lock()
	defer book.mu.Unlock()

	if order.Status != common.OrderPending {
		return false
	}
	order.Status = common.OrderCancelled
	book.remove(orderID)
	book.timestamp = l.now()

	return true
}

// PriceDepth lists up to levels entries from the top of the bid side, one per
// order. Non-positive levels fall back to DefaultDepthLevels.
func (l *Ledger) PriceDepth(auctionID string, levels int) []DepthLevel {
	if levels <= 0 {
		levels = DefaultDepthLevels
	}
	book := l.OrderBook(auctionID)

	book.mu.Lock()
	defer book.mu.Unlock()

	return book.depth(levels)
}

// Snapshot returns a deep copy of the auction's book.
func (l *Ledger) Snapshot(auctionID string) Snapshot {
	book := l.OrderBook(auctionID)

	book.mu.Lock()
	defer book.mu.Unlock()

	return book.snapshot()
}

func (l *Ledger) lookup(orderID string) (*common.Order, *OrderBook, bool) {
	order, ok := l.store.Order(orderID)
	if !ok {
		return nil, nil, false
	}
	// AuctionID never changes, so it is safe to read before locking.
	return order, l.OrderBook(order.AuctionID), true
}
