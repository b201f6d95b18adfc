package auction

import (
	"fmt"
	"time"

	"gavel/internal/utils"

	"github.com/shopspring/decimal"
)

// Config is the immutable setup of a single auction.
type Config struct {
	StartingPrice decimal.Decimal `json:"starting_price" validate:"gte=0"`
	ReservePrice  decimal.Decimal `json:"reserve_price" validate:"gte=0"`
	BidIncrement  decimal.Decimal `json:"bid_increment" validate:"gte=0"`
	StartTime     time.Time       `json:"start_time" validate:"required"`
	EndTime       time.Time       `json:"end_time" validate:"required,gtfield=StartTime"`

	// TimeExtension is added to the end time whenever a bid lands inside the
	// sniping window. Zero disables the extension entirely.
	TimeExtension time.Duration `json:"time_extension" validate:"gte=0"`
}

func (cfg Config) Validate() error {
	if err := utils.ValidateInput(&cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
