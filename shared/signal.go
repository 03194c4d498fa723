package shared

import (
	"time"

	"github.com/google/uuid"
)

// Side represents the side of a derived order.
type Side int

const (
	None Side = iota
	Buy
	Sell
)

// String stringifies the provided side.
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NONE"
	}
}

// Spike represents a volume spike signal derived from a finalized candlestick.
type Spike struct {
	ID     string
	Market string
	// Candle is the enriched candlestick that triggered the spike.
	Candle    *Candlestick
	CreatedOn time.Time
}

// NewSpike initializes a new volume spike signal.
func NewSpike(candle *Candlestick) *Spike {
	return &Spike{
		ID:        uuid.New().String(),
		Market:    candle.Market,
		Candle:    candle,
		CreatedOn: time.Now(),
	}
}

// TickBurst represents a sub-second burst of tick activity for a market.
type TickBurst struct {
	ID     string
	Market string
	// TimeMs is the timestamp of the triggering tick in unix milliseconds.
	TimeMs int64
	// Price is the price of the triggering tick.
	Price float64
	// Qty is the quantity of the triggering tick.
	Qty float64
	// TicksShort and TicksLong are the sample counts in each window.
	TicksShort int
	TicksLong  int
	// RateShort and RateLong are the tick rates per second in each window.
	RateShort float64
	RateLong  float64
	// RateRatio is the short to long tick rate ratio.
	RateRatio float64
	// VolRateShort and VolRateLong are the volume rates per second in each window.
	VolRateShort float64
	VolRateLong  float64
	// VolRateRatio is the short to long volume rate ratio.
	VolRateRatio float64
	// MicroMovePct is the absolute price move over the short window, in percent.
	MicroMovePct float64
	// WindowStartPrice is the price at the start of the short window.
	WindowStartPrice float64
	CreatedOn        time.Time
}

// EarlyOrder represents an early entry order derived from a tick burst.
type EarlyOrder struct {
	ID     string
	Market string
	// TimeMs is the timestamp of the triggering tick in unix milliseconds.
	TimeMs int64
	// Price is the entry price.
	Price float64
	// Qty is the quantity of the triggering tick.
	Qty float64
	// Direction is the price direction over the short window.
	Direction Direction
	// Side is the derived order side.
	Side Side
	// MicroMovePct is the absolute price move over the short window, in percent.
	MicroMovePct float64
	// Quote is the configured entry size in quote currency.
	Quote float64
	// Leverage is the configured leverage for the entry.
	Leverage  int
	CreatedOn time.Time
}

// Delisting represents a delisting announcement for a market.
type Delisting struct {
	Market string
	// Announced is the publish time of the announcement.
	Announced time.Time
	// Title is the announcement title the market was parsed from.
	Title string
}
