package shared

// Tick represents a single public trade for a market.
type Tick struct {
	// Market is the traded market.
	Market string
	// TimeMs is the trade timestamp in unix milliseconds.
	TimeMs int64
	// Price is the trade price.
	Price float64
	// Qty is the traded quantity.
	Qty float64
}

// Second returns the unix second the tick belongs to.
func (t *Tick) Second() int64 {
	return t.TimeMs / 1000
}
