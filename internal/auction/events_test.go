package auction

import (
	"sync"
	"testing"
	"time"

	"gavel/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "started", Started.String())
	assert.Equal(t, "bidPlaced", BidPlaced.String())
	assert.Equal(t, "priceUpdated", PriceUpdated.String())
	assert.Equal(t, "timeExtended", TimeExtended.String())
	assert.Equal(t, "ended", Closed.String())
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	engine, _ := createTestEngine(t, testConfig())

	first, second := &recorder{}, &recorder{}
	unsubscribe := engine.Subscribe(PriceUpdated, first.record)
	engine.Subscribe(PriceUpdated, second.record)

	require.True(t, engine.PlaceBid("A", amount(110)).Success)
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)

	unsubscribe()
	require.True(t, engine.PlaceBid("B", amount(120)).Success)
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 2)

	// Removing twice is harmless.
	unsubscribe()
}

func TestSubscribe_DeliveryOrder(t *testing.T) {
	engine, _ := createTestEngine(t, testConfig())

	var calls []string
	engine.SubscribeAll(func(e Event) { calls = append(calls, "all:"+e.Kind.String()) })
	engine.Subscribe(BidPlaced, func(e Event) { calls = append(calls, "bid:"+e.Bid.BidderID) })

	require.True(t, engine.PlaceBid("A", amount(110)).Success)
	assert.Equal(t, []string{"all:bidPlaced", "bid:A", "all:priceUpdated"}, calls)
}

func TestSubscribe_HandlerMayCallEngine(t *testing.T) {
	engine, _ := createTestEngine(t, testConfig())

	// Handlers run outside the engine lock, so reading state must not deadlock.
	var seen []string
	engine.Subscribe(PriceUpdated, func(e Event) {
		seen = append(seen, engine.CurrentPrice().String())
	})

	require.True(t, engine.PlaceBid("A", amount(110)).Success)
	assert.Equal(t, []string{"110"}, seen)
}

func TestSubscribe_ConcurrentDeliveryFollowsCommitOrder(t *testing.T) {
	engine, _ := createTestEngine(t, testConfig())

	entered := make(chan struct{})
	release := make(chan struct{})
	engine.Subscribe(BidPlaced, func(e Event) {
		if e.Bid.BidderID == "A" {
			close(entered)
			<-release
		}
	})

	var prices []string
	var kinds []EventKind
	engine.SubscribeAll(func(e Event) {
		kinds = append(kinds, e.Kind)
		if e.Kind == PriceUpdated {
			prices = append(prices, e.Price.String())
		}
	})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		engine.PlaceBid("A", amount(110))
	}()
	<-entered

	// A's delivery is held open while later operations commit.
	go func() {
		defer wg.Done()
		engine.PlaceBid("B", amount(120))
	}()
	require.Eventually(t, func() bool {
		return engine.CurrentPrice().Equal(amount(120))
	}, time.Second, time.Millisecond)

	go func() {
		defer wg.Done()
		engine.End()
	}()
	require.Eventually(t, func() bool {
		return engine.Status() == common.Ended
	}, time.Second, time.Millisecond)

	close(release)
	wg.Wait()

	assert.Equal(t, []string{"110", "120"}, prices)
	assert.Equal(t, []EventKind{
		BidPlaced, PriceUpdated,
		BidPlaced, PriceUpdated,
		Closed,
	}, kinds)
}

func TestSubscribe_RejectedBidDoesNotWaitOnDelivery(t *testing.T) {
	engine, _ := createTestEngine(t, testConfig())

	entered := make(chan struct{})
	release := make(chan struct{})
	engine.Subscribe(BidPlaced, func(Event) {
		close(entered)
		<-release
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.PlaceBid("A", amount(110))
	}()
	<-entered

	result := engine.PlaceBid("B", amount(111))
	assert.False(t, result.Success)
	assert.Equal(t, "Bid must be at least 120", result.Message)

	close(release)
	<-done
}
