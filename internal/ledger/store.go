package ledger

import (
	"sync"

	"gavel/internal/common"
)

// Store holds the order index and the per-auction books. Implementations must
// be safe for concurrent use. Inserts never overwrite: the first writer of a
// key wins.
type Store interface {
	Order(orderID string) (*common.Order, bool)
	// PutOrder stores the order unless its id is taken. Reports whether it was
	// stored.
	PutOrder(order *common.Order) bool
	Book(auctionID string) (*OrderBook, bool)
	// PutBook stores the book unless one exists for its auction, and returns
	// whichever book is stored afterwards.
	PutBook(book *OrderBook) *OrderBook
}

type memoryStore struct {
	mu     sync.RWMutex
	orders map[string]*common.Order
	books  map[string]*OrderBook
}

func NewMemoryStore() Store {
	return &memoryStore{
		orders: make(map[string]*common.Order),
		books:  make(map[string]*OrderBook),
	}
}

func (s *memoryStore) Order(orderID string) (*common.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[orderID]
	return order, ok
}

func (s *memoryStore) PutOrder(order *common.Order) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.OrderID]; ok {
		return false
	}
	s.orders[order.OrderID] = order
	return true
}

func (s *memoryStore) Book(auctionID string) (*OrderBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	book, ok := s.books[auctionID]
	return book, ok
}

func (s *memoryStore) PutBook(book *OrderBook) *OrderBook {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.books[book.auctionID]; ok {
		return existing
	}
	s.books[book.auctionID] = book
	return book
}
