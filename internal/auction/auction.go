package auction

import (
	"fmt"
	"sync"
	"time"

	"gavel/internal/common"

	"github.com/shopspring/decimal"
)

// SnipeWindow is how close to the end time a bid has to land to trigger a
// time extension.
const SnipeWindow = 60 * time.Second

// Result of a bid attempt. Rejections are reported here, never as errors.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Outcome of a closed auction. FinalPrice is zero when there is no winner.
type Outcome struct {
	Winner     string          `json:"winner,omitempty"`
	HasWinner  bool            `json:"has_winner"`
	FinalPrice decimal.Decimal `json:"final_price"`
}

// Engine runs a single ascending-price auction, from pending through to ended.
// An Engine is not reused once ended.
type Engine struct {
	mu sync.Mutex

	cfg          Config
	now          func() time.Time
	status       common.AuctionStatus
	currentPrice decimal.Decimal
	endTime      time.Time    // Moves forward on time extensions.
	bids         []common.Bid // Acceptance order.

	observers observers
}

type Option func(*Engine)

// WithClock overrides the time source used for start checks, bid timestamps and
// time extensions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		cfg:          cfg,
		now:          time.Now,
		status:       common.Pending,
		currentPrice: cfg.StartingPrice,
		endTime:      cfg.EndTime,
	}
	for _, opt := range opts {
		opt(engine)
	}
	engine.observers.init()
	return engine, nil
}

// Subscribe registers a handler for one kind of event. The returned function
// removes the handler. Handlers may read engine state but must not call Start,
// PlaceBid or End.
func (e *Engine) Subscribe(kind EventKind, handler Handler) func() {
	return e.observers.add(subscription{kind: kind, handler: handler})
}

// SubscribeAll registers a handler for every event the engine emits.
func (e *Engine) SubscribeAll(handler Handler) func() {
	return e.observers.add(subscription{all: true, handler: handler})
}

// Start opens the auction for bidding. Starting an active auction is a no-op.
// Starting before the scheduled start time, or after the auction has ended, is
// an ErrInvalidTransition.
func (e *Engine) Start() error {
	e.mu.Lock()
	events, err := e.start()
	e.publish(events)
	return err
}

// publish reserves the next delivery slot, releases e.mu and delivers events
// once every earlier operation has been delivered. Caller holds e.mu.
func (e *Engine) publish(events []Event) {
	if len(events) == 0 {
		e.mu.Unlock()
		return
	}
	ticket := e.observers.reserve()
	e.mu.Unlock()
	e.observers.deliver(ticket, events...)
}

// Caller holds e.mu.
func (e *Engine) start() ([]Event, error) {
	switch e.status {
	case common.Active:
		return nil, nil
	case common.Ended:
		return nil, fmt.Errorf("%w: auction has already ended", ErrInvalidTransition)
	}

	if e.now().Before(e.cfg.StartTime) {
		return nil, fmt.Errorf("%w: cannot start before scheduled start time", ErrInvalidTransition)
	}

	e.status = common.Active
	return []Event{{Kind: Started}}, nil
}

// PlaceBid validates and applies a bid. Checks run in order: the auction must be
// active, the amount must clear the current price by the increment, and the
// bidder must not already be leading. A rejected bid leaves no trace.
func (e *Engine) PlaceBid(bidderID string, amount decimal.Decimal) Result {
	e.mu.Lock()
	result, events := e.placeBid(bidderID, amount)
	e.publish(events)
	return result
}

// Caller holds e.mu.
func (e *Engine) placeBid(bidderID string, amount decimal.Decimal) (Result, []Event) {
	if e.status != common.Active {
		return Result{Message: msgNotActive}, nil
	}

	minBid := e.currentPrice.Add(e.cfg.BidIncrement)
	if amount.LessThan(minBid) {
		return Result{Message: fmt.Sprintf(msgBidTooLow, minBid.String())}, nil
	}

	if highest, ok := e.highestBid(); ok && highest.BidderID == bidderID {
		return Result{Message: msgAlreadyLeader}, nil
	}

	now := e.now()
	bid := common.Bid{
		BidderID:  bidderID,
		Amount:    amount,
		Timestamp: now,
	}
	e.bids = append(e.bids, bid)
	e.currentPrice = amount

	events := make([]Event, 0, 3)
	if e.cfg.TimeExtension > 0 && e.endTime.Sub(now) < SnipeWindow {
		e.endTime = e.endTime.Add(e.cfg.TimeExtension)
		events = append(events, Event{Kind: TimeExtended, EndTime: e.endTime})
	}
	events = append(events,
		Event{Kind: BidPlaced, Bid: bid},
		Event{Kind: PriceUpdated, Price: e.currentPrice},
	)

	return Result{Success: true, Message: msgBidPlaced}, events
}

// HighestBid returns the largest accepted bid. The earliest bid wins a tie.
func (e *Engine) HighestBid() (common.Bid, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.highestBid()
}

func (e *Engine) highestBid() (common.Bid, bool) {
	if len(e.bids) == 0 {
		return common.Bid{}, false
	}

	highest := e.bids[0]
	for _, bid := range e.bids[1:] {
		if bid.Amount.GreaterThan(highest.Amount) {
			highest = bid
		}
	}
	return highest, true
}

// End closes the auction and settles the winner. The highest bid wins if it
// meets the reserve price. Calling End again recomputes the same outcome.
func (e *Engine) End() Outcome {
	e.mu.Lock()
	outcome := e.end()
	e.publish([]Event{{Kind: Closed, Outcome: outcome}})
	return outcome
}

// Caller holds e.mu.
func (e *Engine) end() Outcome {
	e.status = common.Ended

	highest, ok := e.highestBid()
	if !ok || highest.Amount.LessThan(e.cfg.ReservePrice) {
		return Outcome{FinalPrice: decimal.Zero}
	}
	return Outcome{
		Winner:     highest.BidderID,
		HasWinner:  true,
		FinalPrice: highest.Amount,
	}
}

// Bids returns a copy of the bid history in acceptance order.
func (e *Engine) Bids() []common.Bid {
	e.mu.Lock()
	defer e.mu.Unlock()

	bids := make([]common.Bid, len(e.bids))
	copy(bids, e.bids)
	return bids
}

func (e *Engine) CurrentPrice() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.currentPrice
}

func (e *Engine) Status() common.AuctionStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.status
}

// EndTime is the current closing time, including any extensions.
func (e *Engine) EndTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.endTime
}

func (e *Engine) Config() Config {
	return e.cfg
}
