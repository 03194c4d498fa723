package shared

import (
	"math"
	"time"
)

const (
	// OneSecond is the timeframe tag for second candles.
	OneSecond = "1SEC"
	// DateLayout is the format layout for stored timestamps.
	DateLayout = "2006-01-02 15:04:05"
)

// Direction represents the direction of a candlestick.
type Direction int

const (
	Flat Direction = iota
	Up
	Down
)

// String stringifies the provided direction.
func (d Direction) String() string {
	switch d {
	case Up:
		return "UP"
	case Down:
		return "DOWN"
	default:
		return "FLAT"
	}
}

// Metrics represents the rolling baseline metrics derived for a finalized candlestick.
type Metrics struct {
	// AvgVolume* are the cooldown excluded average volumes per window.
	AvgVolume20  float64
	AvgVolume50  float64
	AvgVolume100 float64
	// AvgPriceChange* are the cooldown excluded average price change percentages per window.
	AvgPriceChange20  float64
	AvgPriceChange50  float64
	AvgPriceChange100 float64
	// VolumeMultiple* are the floored ratios of candle volume to its baselines.
	VolumeMultiple20  int
	VolumeMultiple50  int
	VolumeMultiple100 int
	// PriceMultiple* are the floored ratios of candle price change to its baselines.
	PriceMultiple20  int
	PriceMultiple50  int
	PriceMultiple100 int
	// ATRPct* are the average true range percentages per window.
	ATRPct20  float64
	ATRPct50  float64
	ATRPct100 float64
}

// Candlestick represents a unit second candlestick for a market.
type Candlestick struct {
	Market string
	// Start is the unix second the candle covers.
	Start  int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	// CreatedOn is the wall time the candle was first observed.
	CreatedOn time.Time

	// Derived fields, set on finalization.
	Direction      Direction
	PriceChangePct float64
	Metrics        Metrics
}

// NewCandlestick initializes a new open candlestick from the first tick of a second.
func NewCandlestick(tick *Tick) *Candlestick {
	return &Candlestick{
		Market:    tick.Market,
		Start:     tick.Second(),
		Open:      tick.Price,
		High:      tick.Price,
		Low:       tick.Price,
		Close:     tick.Price,
		Volume:    tick.Qty,
		CreatedOn: time.Now(),
	}
}

// NewFlatCandlestick initializes a synthetic zero volume candlestick at the provided price.
func NewFlatCandlestick(market string, second int64, price float64) *Candlestick {
	return &Candlestick{
		Market:    market,
		Start:     second,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		CreatedOn: time.Now(),
	}
}

// ApplyTick folds the provided tick into the open candlestick.
func (c *Candlestick) ApplyTick(tick *Tick) {
	if tick.Price > c.High {
		c.High = tick.Price
	}
	if tick.Price < c.Low {
		c.Low = tick.Price
	}
	c.Close = tick.Price
	c.Volume += tick.Qty
}

// FetchDirection returns the provided candlestick's direction.
func (c *Candlestick) FetchDirection() Direction {
	switch {
	case c.Close > c.Open:
		return Up
	case c.Close < c.Open:
		return Down
	default:
		return Flat
	}
}

// Finalize sets the direction and price change percentage of the candlestick.
func (c *Candlestick) Finalize() {
	c.Direction = c.FetchDirection()
	if c.Open != 0 {
		c.PriceChangePct = math.Abs((c.Close-c.Open)/c.Open) * 100
	}
}

// TrueRange returns the candlestick's true range given the previous close. A negative
// previous close indicates there is no preceding candle.
func (c *Candlestick) TrueRange(prevClose float64) float64 {
	highLow := c.High - c.Low
	if prevClose < 0 {
		return highLow
	}

	return math.Max(highLow, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}
