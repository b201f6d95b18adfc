package auction

import (
	"sync"
	"time"

	"gavel/internal/common"

	"github.com/shopspring/decimal"
)

type EventKind int

const (
	Started EventKind = iota
	BidPlaced
	PriceUpdated
	TimeExtended
	Closed
)

var eventNames = map[EventKind]string{
	Started:      "started",
	BidPlaced:    "bidPlaced",
	PriceUpdated: "priceUpdated",
	TimeExtended: "timeExtended",
	Closed:       "ended",
}

func (k EventKind) String() string {
	return eventNames[k]
}

// Event is a notification emitted by an Engine. Only the payload field matching
// Kind is set.
type Event struct {
	Kind    EventKind
	Bid     common.Bid      // BidPlaced
	Price   decimal.Decimal // PriceUpdated
	EndTime time.Time       // TimeExtended
	Outcome Outcome         // Closed
}

// Handler receives events synchronously, in emission order.
type Handler func(Event)

type subscription struct {
	id      uint64
	kind    EventKind
	all     bool
	handler Handler
}

// observers delivers events to handlers in subscription order. Deliveries of
// separate engine operations are serialised in the order the operations
// reserved their slot.
type observers struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscription

	seq    sync.Mutex
	turn   sync.Cond
	issued uint64 // next slot to hand out
	served uint64 // slot currently allowed to deliver
}

func (o *observers) init() {
	o.turn.L = &o.seq
}

// reserve hands out the next delivery slot. The engine reserves while holding
// its state lock, so slots follow commit order.
func (o *observers) reserve() uint64 {
	o.seq.Lock()
	defer o.seq.Unlock()

	ticket := o.issued
	o.issued++
	return ticket
}

// deliver waits until every earlier slot has been delivered, then emits.
func (o *observers) deliver(ticket uint64, events ...Event) {
	o.seq.Lock()
	for o.served != ticket {
		o.turn.Wait()
	}
	o.seq.Unlock()

	defer func() {
		o.seq.Lock()
		o.served++
		o.turn.Broadcast()
		o.seq.Unlock()
	}()
	o.emit(events...)
}

func (o *observers) add(sub subscription) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	sub.id = o.nextID
	o.subs = append(o.subs, sub)

	id := sub.id
	return func() { o.remove(id) }
}

func (o *observers) remove(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, sub := range o.subs {
		if sub.id == id {
			o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
			return
		}
	}
}

func (o *observers) emit(events ...Event) {
	if len(events) == 0 {
		return
	}

	// Handlers may (un)subscribe while being called, so deliver from a copy.
	o.mu.Lock()
	subs := make([]subscription, len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	for _, event := range events {
		for _, sub := range subs {
			if sub.all || sub.kind == event.Kind {
				sub.handler(event)
			}
		}
	}
}
