package common

import "fmt"

// AuctionStatus only ever advances Pending -> Active -> Ended.
type AuctionStatus string

const (
	Pending AuctionStatus = "pending"
	Active  AuctionStatus = "active"
	Ended   AuctionStatus = "ended"
)

// OrderStatus of a ledger order. Pending is the only non-terminal state.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return "unknown"
}

func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	switch string(text) {
	case "buy":
		*s = Buy
	case "sell":
		*s = Sell
	default:
		return fmt.Errorf("unknown side %q", text)
	}
	return nil
}
