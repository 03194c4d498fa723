package scan

import (
	"errors"
	"sync"

	"github.com/dnldd/pulse/shared"
	"go.uber.org/atomic"
)

const (
	// maxWindow is the largest rolling statistics window.
	maxWindow = 100
	// historySafety is the slack added to the history capacity.
	historySafety = 10
)

// historyCapacity returns the per-market history capacity for the provided cooldown.
func historyCapacity(cooldown int) int32 {
	if cooldown < 0 {
		cooldown = 0
	}
	return int32(maxWindow + cooldown + historySafety)
}

// History is a bounded chronological ring of finalized candlesticks for a market.
type History struct {
	data    []*shared.Candlestick
	dataMtx sync.RWMutex
	start   atomic.Int32
	count   atomic.Int32
	size    atomic.Int32
}

// NewHistory initializes a new candlestick history with the provided capacity.
func NewHistory(size int32) (*History, error) {
	if size <= 0 {
		return nil, errors.New("history size must be positive")
	}

	history := &History{
		data: make([]*shared.Candlestick, size),
	}

	history.size.Store(size)
	return history, nil
}

// Append adds the provided candlestick to the history, evicting the oldest entry when
// at capacity.
func (h *History) Append(candle *shared.Candlestick) {
	h.dataMtx.Lock()
	defer h.dataMtx.Unlock()

	start := h.start.Load()
	count := h.count.Load()
	size := h.size.Load()
	end := (start + count) % size
	h.data[end] = candle

	if count == size {
		// Overwrite the oldest entry when the history is at capacity.
		h.start.Store((start + 1) % size)
	} else {
		h.count.Add(1)
	}
}

// Count returns the number of candlesticks currently held.
func (h *History) Count() int {
	return int(h.count.Load())
}

// Last returns the most recently appended candlestick.
func (h *History) Last() *shared.Candlestick {
	h.dataMtx.RLock()
	defer h.dataMtx.RUnlock()

	start := h.start.Load()
	count := h.count.Load()
	size := h.size.Load()
	if count == 0 {
		return nil
	}

	end := (start + count - 1) % size
	return h.data[end]
}

// Slice returns the held candlesticks in chronological order.
func (h *History) Slice() []*shared.Candlestick {
	h.dataMtx.RLock()
	defer h.dataMtx.RUnlock()

	start := h.start.Load()
	count := h.count.Load()
	size := h.size.Load()

	set := make([]*shared.Candlestick, count)
	for i := range count {
		set[i] = h.data[(start+i)%size]
	}

	return set
}

// Volumes returns the chronological volume series of the history.
func (h *History) Volumes() []float64 {
	candles := h.Slice()
	series := make([]float64, len(candles))
	for idx := range candles {
		series[idx] = candles[idx].Volume
	}

	return series
}

// PriceChanges returns the chronological price change percentage series of the history.
func (h *History) PriceChanges() []float64 {
	candles := h.Slice()
	series := make([]float64, len(candles))
	for idx := range candles {
		series[idx] = candles[idx].PriceChangePct
	}

	return series
}

// TrueRanges returns the chronological true range series of the history.
func (h *History) TrueRanges() []float64 {
	candles := h.Slice()
	series := make([]float64, len(candles))
	prevClose := float64(-1)
	for idx := range candles {
		series[idx] = candles[idx].TrueRange(prevClose)
		prevClose = candles[idx].Close
	}

	return series
}
