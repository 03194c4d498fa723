package scan

import (
	"sync"

	"github.com/dnldd/pulse/shared"
)

// candleKey identifies an open candle by market and unix second.
type candleKey struct {
	market string
	second int64
}

// Accumulator aggregates raw ticks into open per-second candlesticks. Ingestion is the
// only writer for a key until the flusher pops it, the mutex keeps the pop atomic with
// respect to concurrent inserts.
type Accumulator struct {
	mtx        sync.Mutex
	open       map[candleKey]*shared.Candlestick
	lastPrices map[string]float64
}

// NewAccumulator initializes a new candle accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		open:       make(map[candleKey]*shared.Candlestick),
		lastPrices: make(map[string]float64),
	}
}

// Update folds the provided tick into the open candle for its market and second,
// creating the candle if absent. The market's last price is updated unconditionally.
func (a *Accumulator) Update(tick *shared.Tick) {
	key := candleKey{market: tick.Market, second: tick.Second()}

	a.mtx.Lock()
	defer a.mtx.Unlock()

	a.lastPrices[tick.Market] = tick.Price

	candle, ok := a.open[key]
	if !ok {
		a.open[key] = shared.NewCandlestick(tick)
		return
	}

	candle.ApplyTick(tick)
}

// Pop removes and returns the open candle for the provided market and second. If no
// candle exists a synthetic zero volume candle at the market's last price is returned
// instead. Returns nil when no last price is known yet for the market.
func (a *Accumulator) Pop(market string, second int64) *shared.Candlestick {
	key := candleKey{market: market, second: second}

	a.mtx.Lock()
	defer a.mtx.Unlock()

	candle, ok := a.open[key]
	if ok {
		delete(a.open, key)
		return candle
	}

	price, ok := a.lastPrices[market]
	if !ok {
		return nil
	}

	return shared.NewFlatCandlestick(market, second, price)
}

// LastPrice returns the last observed price for the provided market.
func (a *Accumulator) LastPrice(market string) (float64, bool) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	price, ok := a.lastPrices[market]
	return price, ok
}
