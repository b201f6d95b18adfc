package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bid is an accepted auction bid. Bids are never mutated once accepted.
type Bid struct {
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"` // Time of acceptance
}

func (bid Bid) String() string {
	return fmt.Sprintf(
		`BidderID:  %s
Amount:    %s
Timestamp: %v`,
		bid.BidderID,
		bid.Amount.String(),
		bid.Timestamp.Format(time.RFC3339),
	)
}
