package house

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gavel/internal/auction"
	"gavel/internal/common"
	"gavel/internal/ledger"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var ErrUnknownAuction = errors.New("unknown auction")

// lot pairs an auction with the ledger orders recorded for its accepted bids.
type lot struct {
	// Serialises "validate bid, record order" so the engine history and
	// orderIDs never drift apart.
	mu sync.Mutex

	id       string
	engine   *auction.Engine
	orderIDs []string // orderIDs[i] records engine.Bids()[i]
}

// House hosts running auctions and the shared order ledger. It is the caller
// that keeps both in step: bids are validated by the auction first and only
// accepted bids are recorded in the ledger.
type House struct {
	mu       sync.RWMutex
	auctions map[string]*lot

	ledger *ledger.Ledger
	now    func() time.Time
}

type Option func(*House)

func WithClock(now func() time.Time) Option {
	return func(h *House) {
		h.now = now
	}
}

func New(l *ledger.Ledger, opts ...Option) *House {
	h := &House{
		auctions: make(map[string]*lot),
		ledger:   l,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *House) Ledger() *ledger.Ledger {
	return h.ledger
}

// Open registers a new pending auction and returns its id.
func (h *House) Open(cfg auction.Config) (string, error) {
	engine, err := auction.New(cfg, auction.WithClock(h.now))
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	logger := log.With().Str("auction", id).Logger()
	engine.SubscribeAll(func(event auction.Event) {
		e := logger.Info().Str("event", event.Kind.String())
		switch event.Kind {
		case auction.BidPlaced:
			e = e.Str("bidder", event.Bid.BidderID).Str("amount", event.Bid.Amount.String())
		case auction.PriceUpdated:
			e = e.Str("price", event.Price.String())
		case auction.TimeExtended:
			e = e.Time("end_time", event.EndTime)
		case auction.Closed:
			e = e.Bool("has_winner", event.Outcome.HasWinner).
				Str("winner", event.Outcome.Winner).
				Str("final_price", event.Outcome.FinalPrice.String())
		}
		e.Msg("auction event")
	})

	h.mu.Lock()
	h.auctions[id] = &lot{id: id, engine: engine}
	h.mu.Unlock()

	log.Info().
		Str("auction", id).
		Str("starting_price", cfg.StartingPrice.String()).
		Time("start_time", cfg.StartTime).
		Time("end_time", cfg.EndTime).
		Msg("auction opened")
	return id, nil
}

func (h *House) Start(auctionID string) error {
	l, err := h.lot(auctionID)
	if err != nil {
		return err
	}
	return l.engine.Start()
}

// PlaceBid runs the bid past the auction and, when accepted, records it in the
// ledger under a fresh order id. The returned order is zero for rejected bids.
// An auction found past its end time is closed first, so the bid is rejected.
func (h *House) PlaceBid(auctionID, bidderID string, amount decimal.Decimal) (auction.Result, common.Order, error) {
	l, err := h.lot(auctionID)
	if err != nil {
		return auction.Result{}, common.Order{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.engine.Status() == common.Active && !h.now().Before(l.engine.EndTime()) {
		h.close(l)
	}

	result := l.engine.PlaceBid(bidderID, amount)
	if !result.Success {
		log.Debug().
			Str("auction", auctionID).
			Str("bidder", bidderID).
			Str("amount", amount.String()).
			Str("reason", result.Message).
			Msg("bid rejected")
		return result, common.Order{}, nil
	}

	order, err := h.ledger.AddBid(uuid.NewString(), bidderID, auctionID, amount)
	if err != nil {
		// Keep orderIDs aligned with the engine's bids.
		l.orderIDs = append(l.orderIDs, "")
		return result, common.Order{}, fmt.Errorf("unable to record bid: %w", err)
	}
	l.orderIDs = append(l.orderIDs, order.OrderID)

	return result, order, nil
}

// Close ends the auction. The winning order is filled and every other pending
// order for the auction is cancelled.
func (h *House) Close(auctionID string) (auction.Outcome, error) {
	l, err := h.lot(auctionID)
	if err != nil {
		return auction.Outcome{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return h.close(l), nil
}

// close ends the engine and settles the ledger. Caller holds l.mu.
func (h *House) close(l *lot) auction.Outcome {
	auctionID := l.id
	outcome := l.engine.End()

	winningOrder := ""
	if outcome.HasWinner {
		winningOrder = l.winningOrderID()
		// Already filled when the auction is closed more than once.
		if order, ok := h.ledger.Order(winningOrder); ok && order.Status == common.OrderPending {
			h.ledger.FillOrder(winningOrder)
		}
	}

	for _, order := range h.ledger.Snapshot(auctionID).Bids {
		if order.OrderID == winningOrder || order.Status != common.OrderPending {
			continue
		}
		h.ledger.CancelOrder(order.OrderID)
	}

	return outcome
}

// winningOrderID maps the auction's highest bid back to its order. Caller
// holds l.mu.
func (l *lot) winningOrderID() string {
	bids := l.engine.Bids()
	if len(bids) == 0 {
		return ""
	}
	if len(bids) != len(l.orderIDs) {
		log.Warn().Str("auction", l.id).Msg("auction bids and ledger orders out of step")
		return ""
	}

	best := 0
	for i := range bids {
		if bids[i].Amount.GreaterThan(bids[best].Amount) {
			best = i
		}
	}
	return l.orderIDs[best]
}

// View is a read-only summary of a hosted auction.
type View struct {
	ID           string               `json:"id"`
	Status       common.AuctionStatus `json:"status"`
	CurrentPrice decimal.Decimal      `json:"current_price"`
	StartTime    time.Time            `json:"start_time"`
	EndTime      time.Time            `json:"end_time"`
	Bids         []common.Bid         `json:"bids"`
}

func (h *House) Auction(auctionID string) (View, error) {
	l, err := h.lot(auctionID)
	if err != nil {
		return View{}, err
	}
	return View{
		ID:           l.id,
		Status:       l.engine.Status(),
		CurrentPrice: l.engine.CurrentPrice(),
		StartTime:    l.engine.Config().StartTime,
		EndTime:      l.engine.EndTime(),
		Bids:         l.engine.Bids(),
	}, nil
}

// AuctionIDs lists hosted auctions in a stable order.
func (h *House) AuctionIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.auctions))
	for id := range h.auctions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (h *House) lot(auctionID string) (*lot, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	l, ok := h.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAuction, auctionID)
	}
	return l, nil
}
