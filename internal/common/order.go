package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	OrderID   string          `json:"order_id"`   // Unique order key
	UserID    string          `json:"user_id"`    // Who owns this order
	AuctionID string          `json:"auction_id"` // Auction the bid was placed against
	BidAmount decimal.Decimal `json:"bid_amount"` //
	Status    OrderStatus     `json:"status"`     //
	Timestamp time.Time       `json:"timestamp"`  // Time the order was recorded
}

func (order Order) String() string {
	return fmt.Sprintf(
		`OrderID:   %s
UserID:    %s
AuctionID: %s
BidAmount: %s
Status:    %s
Timestamp: %v`,
		order.OrderID,
		order.UserID,
		order.AuctionID,
		order.BidAmount.String(),
		order.Status,
		order.Timestamp.Format(time.RFC3339), // Formatted for readability
	)
}
