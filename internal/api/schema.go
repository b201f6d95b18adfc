package api

import (
	"time"

	"gavel/internal/auction"
	"gavel/internal/common"

	"github.com/shopspring/decimal"
)

type CreateAuctionSchema struct {
	StartingPrice        *decimal.Decimal `json:"starting_price" validate:"required,gte=0"`
	ReservePrice         *decimal.Decimal `json:"reserve_price" validate:"required,gte=0"`
	BidIncrement         *decimal.Decimal `json:"bid_increment" validate:"required,gte=0"`
	StartTime            *time.Time       `json:"start_time" validate:"required"`
	EndTime              *time.Time       `json:"end_time" validate:"required"`
	TimeExtensionSeconds int64            `json:"time_extension_seconds" validate:"gte=0"`
	Start                bool             `json:"start"`
}

func (s CreateAuctionSchema) config() auction.Config {
	return auction.Config{
		StartingPrice: *s.StartingPrice,
		ReservePrice:  *s.ReservePrice,
		BidIncrement:  *s.BidIncrement,
		StartTime:     *s.StartTime,
		EndTime:       *s.EndTime,
		TimeExtension: time.Duration(s.TimeExtensionSeconds) * time.Second,
	}
}

type PlaceBidSchema struct {
	BidderID string           `json:"bidder_id" validate:"required"`
	Amount   *decimal.Decimal `json:"amount" validate:"required"`
}

type PlaceBidResponseSchema struct {
	auction.Result
	Order *common.Order `json:"order,omitempty"`
}

type TopBidResponseSchema struct {
	AuctionID string          `json:"auction_id"`
	TopBid    decimal.Decimal `json:"top_bid"`
}

type AuctionListSchema struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}
