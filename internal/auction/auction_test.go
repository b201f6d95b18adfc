package auction

import (
	"math/rand"
	"testing"
	"time"

	"gavel/internal/common"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Setup & Helpers --------------------------------------------------------

var testStart = time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func (c *testClock) Set(t time.Time)         { c.now = t }

func amount(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func assertAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, amount(want).Equal(got), "expected amount %d, got %s", want, got)
}

func testConfig() Config {
	return Config{
		StartingPrice: amount(100),
		ReservePrice:  amount(150),
		BidIncrement:  amount(10),
		StartTime:     testStart,
		EndTime:       testStart.Add(time.Hour),
	}
}

// createTestEngine returns a started engine and the clock driving it.
func createTestEngine(t *testing.T, cfg Config) (*Engine, *testClock) {
	t.Helper()
	clock := &testClock{now: cfg.StartTime}
	engine, err := New(cfg, WithClock(clock.Now))
	require.NoError(t, err)
	require.NoError(t, engine.Start())
	return engine, clock
}

type recorder struct {
	events []Event
}

func (r *recorder) record(event Event) { r.events = append(r.events, event) }

func (r *recorder) kinds() []EventKind {
	kinds := make([]EventKind, len(r.events))
	for i, event := range r.events {
		kinds[i] = event.Kind
	}
	return kinds
}

// --- Tests ------------------------------------------------------------------

func TestNew_InvalidConfig(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"end before start", func(c *Config) { c.EndTime = c.StartTime.Add(-time.Minute) }},
		{"end equals start", func(c *Config) { c.EndTime = c.StartTime }},
		{"missing start", func(c *Config) { c.StartTime = time.Time{} }},
		{"negative increment", func(c *Config) { c.BidIncrement = amount(-1) }},
		{"negative starting price", func(c *Config) { c.StartingPrice = amount(-5) }},
		{"negative reserve", func(c *Config) { c.ReservePrice = amount(-5) }},
		{"negative extension", func(c *Config) { c.TimeExtension = -time.Second }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNew_InitialState(t *testing.T) {
	engine, err := New(testConfig())
	require.NoError(t, err)

	assert.Equal(t, common.Pending, engine.Status())
	assertAmount(t, 100, engine.CurrentPrice())
	assert.Equal(t, testStart.Add(time.Hour), engine.EndTime())
	assert.Empty(t, engine.Bids())

	_, ok := engine.HighestBid()
	assert.False(t, ok)
}

func TestStart(t *testing.T) {
	clock := &testClock{now: testStart.Add(-time.Second)}
	engine, err := New(testConfig(), WithClock(clock.Now))
	require.NoError(t, err)

	rec := &recorder{}
	engine.Subscribe(Started, rec.record)

	// Too early.
	err = engine.Start()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorContains(t, err, "cannot start before scheduled start time")
	assert.Equal(t, common.Pending, engine.Status())
	assert.Empty(t, rec.events)

	// On time.
	clock.Set(testStart)
	assert.NoError(t, engine.Start())
	assert.Equal(t, common.Active, engine.Status())
	assert.Len(t, rec.events, 1)

	// Starting again is a no-op and does not notify again.
	assert.NoError(t, engine.Start())
	assert.Equal(t, common.Active, engine.Status())
	assert.Len(t, rec.events, 1)

	// Ended auctions never restart.
	engine.End()
	assert.ErrorIs(t, engine.Start(), ErrInvalidTransition)
	assert.Equal(t, common.Ended, engine.Status())
	assert.Len(t, rec.events, 1)
}

func TestPlaceBid_NotActive(t *testing.T) {
	engine, err := New(testConfig())
	require.NoError(t, err)

	result := engine.PlaceBid("A", amount(500))
	assert.Equal(t, Result{Message: "Auction is not active"}, result)
	assert.Empty(t, engine.Bids())

	engine, _ = createTestEngine(t, testConfig())
	engine.End()
	result = engine.PlaceBid("A", amount(500))
	assert.False(t, result.Success)
	assert.Equal(t, "Auction is not active", result.Message)
	assert.Empty(t, engine.Bids())
}

func TestPlaceBid_Scenario(t *testing.T) {
	engine, _ := createTestEngine(t, testConfig())

	// Below the minimum of 100 + 10.
	result := engine.PlaceBid("A", amount(100))
	assert.Equal(t, Result{Message: "Bid must be at least 110"}, result)
	assertAmount(t, 100, engine.CurrentPrice())

	result = engine.PlaceBid("A", amount(110))
	assert.Equal(t, Result{Success: true, Message: "Bid placed successfully"}, result)
	assertAmount(t, 110, engine.CurrentPrice())

	// A cannot outbid themselves.
	result = engine.PlaceBid("A", amount(120))
	assert.Equal(t, Result{Message: "You are already the highest bidder"}, result)
	assertAmount(t, 110, engine.CurrentPrice())

	result = engine.PlaceBid("B", amount(140))
	assert.True(t, result.Success)
	assertAmount(t, 140, engine.CurrentPrice())

	// 140 is under the reserve of 150.
	outcome := engine.End()
	assert.False(t, outcome.HasWinner)
	assert.Empty(t, outcome.Winner)
	assertAmount(t, 0, outcome.FinalPrice)
	assert.Len(t, engine.Bids(), 2)
}

func TestPlaceBid_ScenarioAboveReserve(t *testing.T) {
	engine, _ := createTestEngine(t, testConfig())

	require.True(t, engine.PlaceBid("A", amount(110)).Success)
	require.True(t, engine.PlaceBid("B", amount(140)).Success)
	require.True(t, engine.PlaceBid("C", amount(160)).Success)
	assertAmount(t, 160, engine.CurrentPrice())

	outcome := engine.End()
	assert.True(t, outcome.HasWinner)
	assert.Equal(t, "C", outcome.Winner)
	assertAmount(t, 160, outcome.FinalPrice)
	assert.Equal(t, common.Ended, engine.Status())
}

func TestPlaceBid_RejectionOrder(t *testing.T) {
	engine, _ := createTestEngine(t, testConfig())
	require.True(t, engine.PlaceBid("A", amount(110)).Success)

	// Too low and already leading: the amount check comes first.
	result := engine.PlaceBid("A", amount(111))
	assert.Equal(t, "Bid must be at least 120", result.Message)
}

func TestPlaceBid_PriceNeverDecreases(t *testing.T) {
	engine, _ := createTestEngine(t, testConfig())
	rng := rand.New(rand.NewSource(7))
	bidders := []string{"A", "B", "C", "D"}

	previous := engine.CurrentPrice()
	for range 500 {
		bidder := bidders[rng.Intn(len(bidders))]
		offer := previous.Add(amount(rng.Int63n(40) - 10))
		before := len(engine.Bids())

		result := engine.PlaceBid(bidder, offer)
		current := engine.CurrentPrice()
		bids := engine.Bids()

		assert.True(t, current.GreaterThanOrEqual(previous), "price must never decrease")
		if result.Success {
			require.Len(t, bids, before+1)
			assert.True(t, bids[len(bids)-1].Amount.Equal(current))
			assert.True(t, offer.GreaterThanOrEqual(previous.Add(amount(10))))
		} else {
			assert.Len(t, bids, before)
			assert.True(t, current.Equal(previous))
		}
		previous = current
	}

	// No bidder ever holds two consecutive accepted bids.
	bids := engine.Bids()
	for i := 1; i < len(bids); i++ {
		assert.NotEqual(t, bids[i-1].BidderID, bids[i].BidderID)
	}
}

func TestPlaceBid_Timestamp(t *testing.T) {
	engine, clock := createTestEngine(t, testConfig())
	clock.Advance(5 * time.Minute)

	require.True(t, engine.PlaceBid("A", amount(110)).Success)
	bids := engine.Bids()
	require.Len(t, bids, 1)
	assert.Equal(t, clock.Now(), bids[0].Timestamp)
}

func TestPlaceBid_TimeExtension(t *testing.T) {
	cfg := testConfig()
	cfg.TimeExtension = 2 * time.Minute
	engine, clock := createTestEngine(t, cfg)
	end := cfg.EndTime

	// Outside the window, nothing changes.
	clock.Set(end.Add(-SnipeWindow))
	require.True(t, engine.PlaceBid("A", amount(110)).Success)
	assert.Equal(t, end, engine.EndTime())

	// Inside the window the end time moves by exactly the extension.
	clock.Set(end.Add(-30 * time.Second))
	require.True(t, engine.PlaceBid("B", amount(120)).Success)
	end = end.Add(2 * time.Minute)
	assert.Equal(t, end, engine.EndTime())

	// Extensions compound against the current end time.
	clock.Set(end.Add(-time.Second))
	require.True(t, engine.PlaceBid("A", amount(130)).Success)
	end = end.Add(2 * time.Minute)
	assert.Equal(t, end, engine.EndTime())

	// Rejected bids never extend.
	clock.Set(end.Add(-time.Second))
	require.False(t, engine.PlaceBid("A", amount(200)).Success)
	assert.Equal(t, end, engine.EndTime())
}

func TestPlaceBid_NoTimeExtension(t *testing.T) {
	cfg := testConfig()
	engine, clock := createTestEngine(t, cfg)

	rec := &recorder{}
	engine.Subscribe(TimeExtended, rec.record)

	clock.Set(cfg.EndTime.Add(-time.Second))
	require.True(t, engine.PlaceBid("A", amount(110)).Success)
	require.True(t, engine.PlaceBid("B", amount(120)).Success)

	assert.Equal(t, cfg.EndTime, engine.EndTime())
	assert.Empty(t, rec.events)
}

func TestPlaceBid_EventOrder(t *testing.T) {
	cfg := testConfig()
	cfg.TimeExtension = time.Minute
	engine, clock := createTestEngine(t, cfg)

	rec := &recorder{}
	engine.SubscribeAll(rec.record)

	require.True(t, engine.PlaceBid("A", amount(110)).Success)
	assert.Equal(t, []EventKind{BidPlaced, PriceUpdated}, rec.kinds())

	rec.events = nil
	clock.Set(cfg.EndTime.Add(-10 * time.Second))
	require.True(t, engine.PlaceBid("B", amount(125)).Success)
	require.Equal(t, []EventKind{TimeExtended, BidPlaced, PriceUpdated}, rec.kinds())

	assert.Equal(t, cfg.EndTime.Add(time.Minute), rec.events[0].EndTime)
	assert.Equal(t, "B", rec.events[1].Bid.BidderID)
	assertAmount(t, 125, rec.events[1].Bid.Amount)
	assertAmount(t, 125, rec.events[2].Price)

	// Rejections are silent.
	rec.events = nil
	engine.PlaceBid("B", amount(500))
	assert.Empty(t, rec.events)
}

func TestHighestBid_TieGoesToEarliest(t *testing.T) {
	cfg := testConfig()
	cfg.BidIncrement = decimal.Zero
	cfg.ReservePrice = decimal.Zero
	engine, _ := createTestEngine(t, cfg)

	require.True(t, engine.PlaceBid("A", amount(100)).Success)
	require.True(t, engine.PlaceBid("B", amount(100)).Success)

	highest, ok := engine.HighestBid()
	require.True(t, ok)
	assert.Equal(t, "A", highest.BidderID)

	// A is still the highest bidder, so cannot bid again.
	assert.Equal(t, "You are already the highest bidder", engine.PlaceBid("A", amount(100)).Message)

	outcome := engine.End()
	assert.Equal(t, "A", outcome.Winner)
}

func TestEnd(t *testing.T) {
	t.Run("no bids", func(t *testing.T) {
		engine, _ := createTestEngine(t, testConfig())
		outcome := engine.End()
		assert.Equal(t, Outcome{FinalPrice: decimal.Zero}, outcome)
		assert.Equal(t, common.Ended, engine.Status())
	})

	t.Run("exactly at reserve", func(t *testing.T) {
		engine, _ := createTestEngine(t, testConfig())
		require.True(t, engine.PlaceBid("A", amount(150)).Success)
		outcome := engine.End()
		assert.Equal(t, "A", outcome.Winner)
		assertAmount(t, 150, outcome.FinalPrice)
	})

	t.Run("never started", func(t *testing.T) {
		engine, err := New(testConfig())
		require.NoError(t, err)
		outcome := engine.End()
		assert.False(t, outcome.HasWinner)
		assert.Equal(t, common.Ended, engine.Status())
	})

	t.Run("repeated", func(t *testing.T) {
		engine, _ := createTestEngine(t, testConfig())
		require.True(t, engine.PlaceBid("A", amount(200)).Success)

		rec := &recorder{}
		engine.Subscribe(Closed, rec.record)

		first := engine.End()
		second := engine.End()
		assert.Equal(t, first, second)
		require.Len(t, rec.events, 2)
		assert.Equal(t, first, rec.events[0].Outcome)
	})
}

func TestBids_ReturnsCopy(t *testing.T) {
	engine, _ := createTestEngine(t, testConfig())
	require.True(t, engine.PlaceBid("A", amount(110)).Success)
	require.True(t, engine.PlaceBid("B", amount(120)).Success)

	bids := engine.Bids()
	bids[0].BidderID = "mallory"
	bids[1] = common.Bid{}

	fresh := engine.Bids()
	require.Len(t, fresh, 2)
	assert.Equal(t, "A", fresh[0].BidderID)
	assert.Equal(t, "B", fresh[1].BidderID)
}
