package scan

import (
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// epsilon guards the window ratio divisions.
	epsilon = 1e-9
)

// sample is a raw trade sample held in a detector window.
type sample struct {
	timeMs int64
	price  float64
	qty    float64
}

// window is a sliding time window of samples with a running volume sum.
type window struct {
	samples []sample
	volume  float64
}

// trim drops samples older than the provided cutoff from the front of the window.
func (w *window) trim(cutoffMs int64) {
	idx := 0
	for idx < len(w.samples) && w.samples[idx].timeMs < cutoffMs {
		w.volume -= w.samples[idx].qty
		idx++
	}
	if idx > 0 {
		w.samples = w.samples[idx:]
		if w.volume < 0 {
			w.volume = 0
		}
	}
}

// add appends the provided sample to the window.
func (w *window) add(s sample) {
	w.samples = append(w.samples, s)
	w.volume += s.qty
}

// DetectorConfig represents the tick burst detector configuration.
type DetectorConfig struct {
	// ShortWindow is the short detection window.
	ShortWindow time.Duration
	// LongWindow is the long detection window.
	LongWindow time.Duration
	// MinRateRatio is the minimum short to long tick rate ratio for a burst.
	MinRateRatio float64
	// MinVolRateRatio is the minimum short to long volume rate ratio for a burst.
	MinVolRateRatio float64
	// MinMicroMovePct is the minimum short window price move, in percent.
	MinMicroMovePct float64
	// FactTTL is the lifetime of the tick burst fact set on firing.
	FactTTL time.Duration
	// MinSeparation is the minimum interval between persisted bursts per market.
	MinSeparation time.Duration
	// EarlyEntry enables deriving early entry orders from persisted bursts.
	EarlyEntry bool
	// EarlyQuote is the entry size in quote currency for early orders.
	EarlyQuote float64
	// EarlyLeverage is the leverage for early orders.
	EarlyLeverage int
	// Facts is the fact store consulted and updated by the detector.
	Facts *FactStore
	// PersistTickBurst relays the provided burst record for persistence.
	PersistTickBurst func(burst *shared.TickBurst)
	// PersistEarlyOrder relays the provided early order for persistence.
	PersistEarlyOrder func(order *shared.EarlyOrder)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Detector detects sub-second bursts of tick activity per market. Ticks for a market
// must arrive in order, cross market ordering is irrelevant.
type Detector struct {
	cfg         *DetectorConfig
	short       map[string]*window
	long        map[string]*window
	lastBurstMs map[string]int64
}

// NewDetector initializes a new tick burst detector.
func NewDetector(cfg *DetectorConfig) *Detector {
	return &Detector{
		cfg:         cfg,
		short:       make(map[string]*window),
		long:        make(map[string]*window),
		lastBurstMs: make(map[string]int64),
	}
}

// fetchWindows returns the detector windows for the provided market, creating them
// if absent.
func (d *Detector) fetchWindows(market string) (*window, *window) {
	short, ok := d.short[market]
	if !ok {
		short = &window{}
		d.short[market] = short
	}

	long, ok := d.long[market]
	if !ok {
		long = &window{}
		d.long[market] = long
	}

	return short, long
}

// Update processes the provided tick and fires a burst when the short window's tick
// rate, volume rate and price move all exceed their thresholds relative to the long
// window.
func (d *Detector) Update(tick *shared.Tick) {
	short, long := d.fetchWindows(tick.Market)

	s := sample{timeMs: tick.TimeMs, price: tick.Price, qty: tick.Qty}
	short.add(s)
	long.add(s)

	short.trim(tick.TimeMs - d.cfg.ShortWindow.Milliseconds())
	long.trim(tick.TimeMs - d.cfg.LongWindow.Milliseconds())

	shortSecs := float64(max(d.cfg.ShortWindow.Milliseconds(), 1)) / 1000
	longSecs := float64(max(d.cfg.LongWindow.Milliseconds(), 1)) / 1000

	rateShort := float64(len(short.samples)) / shortSecs
	rateLong := float64(len(long.samples)) / longSecs
	volRateShort := short.volume / shortSecs
	volRateLong := long.volume / longSecs

	windowStartPrice := tick.Price
	if len(short.samples) > 0 {
		windowStartPrice = short.samples[0].price
	}

	var microMovePct float64
	if windowStartPrice != 0 {
		microMovePct = abs((tick.Price - windowStartPrice) / windowStartPrice * 100)
	}

	rateRatio := rateShort / max(rateLong, epsilon)
	volRateRatio := volRateShort / max(volRateLong, epsilon)

	fired := rateRatio >= d.cfg.MinRateRatio &&
		volRateRatio >= d.cfg.MinVolRateRatio &&
		microMovePct >= d.cfg.MinMicroMovePct
	if !fired {
		return
	}

	d.cfg.Facts.SetFact(tick.Market, FactTickBurst, true, d.cfg.FactTTL)
	d.cfg.Logger.Info().Msgf("burst: %s rate ratio %.2f, volume rate ratio %.2f, micro move %.4f%%, %.2f ticks/s",
		tick.Market, rateRatio, volRateRatio, microMovePct, rateShort)

	// Bursts for a market are persisted at most once per separation interval even if
	// conditions persist across ticks.
	if tick.TimeMs-d.lastBurstMs[tick.Market] < d.cfg.MinSeparation.Milliseconds() {
		return
	}
	d.lastBurstMs[tick.Market] = tick.TimeMs

	burst := &shared.TickBurst{
		ID:               uuid.New().String(),
		Market:           tick.Market,
		TimeMs:           tick.TimeMs,
		Price:            tick.Price,
		Qty:              tick.Qty,
		TicksShort:       len(short.samples),
		TicksLong:        len(long.samples),
		RateShort:        rateShort,
		RateLong:         rateLong,
		RateRatio:        rateRatio,
		VolRateShort:     volRateShort,
		VolRateLong:      volRateLong,
		VolRateRatio:     volRateRatio,
		MicroMovePct:     microMovePct,
		WindowStartPrice: windowStartPrice,
		CreatedOn:        time.Now(),
	}
	d.cfg.PersistTickBurst(burst)

	if d.cfg.EarlyEntry {
		d.earlyOrder(tick, windowStartPrice, microMovePct)
	}
}

// earlyOrder derives an early entry order from a persisted burst. An active delisting
// fact suppresses buy entries, never trade into a delisting.
func (d *Detector) earlyOrder(tick *shared.Tick, windowStartPrice float64, microMovePct float64) {
	var direction shared.Direction
	var side shared.Side
	switch {
	case tick.Price > windowStartPrice:
		direction = shared.Up
		side = shared.Buy
	case tick.Price < windowStartPrice:
		direction = shared.Down
		side = shared.Sell
	default:
		direction = shared.Flat
		side = shared.None
	}

	delisting, _ := d.cfg.Facts.FetchFact(tick.Market, FactDelisting, false).(bool)
	if delisting && side == shared.Buy {
		side = shared.None
	}

	order := &shared.EarlyOrder{
		ID:           uuid.New().String(),
		Market:       tick.Market,
		TimeMs:       tick.TimeMs,
		Price:        tick.Price,
		Qty:          tick.Qty,
		Direction:    direction,
		Side:         side,
		MicroMovePct: microMovePct,
		Quote:        d.cfg.EarlyQuote,
		Leverage:     d.cfg.EarlyLeverage,
		CreatedOn:    time.Now(),
	}
	d.cfg.PersistEarlyOrder(order)

	d.cfg.Logger.Info().Msgf("early order: %s side %s, micro move %.4f%%, quote %.2f, leverage %d",
		tick.Market, side, microMovePct, d.cfg.EarlyQuote, d.cfg.EarlyLeverage)
}

// abs returns the absolute value of the provided float.
func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
