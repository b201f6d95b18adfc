package auction

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidConfig     = errors.New("invalid auction config")
)

// Rejection messages returned in a Result.
const (
	msgNotActive     = "Auction is not active"
	msgBidTooLow     = "Bid must be at least %s"
	msgAlreadyLeader = "You are already the highest bidder"
	msgBidPlaced     = "Bid placed successfully"
)
