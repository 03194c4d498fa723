package scan

import (
	"github.com/dnldd/pulse/shared"
)

// StatsConfig represents the statistics engine configuration.
type StatsConfig struct {
	// Cooldown is the number of most recent candles excluded from baselines. This
	// keeps an ongoing anomaly from inflating its own comparison baseline.
	Cooldown int
	// ATRCostThreshold is the minimum 20-window volume multiple required before
	// average true range percentages are computed for a candle.
	ATRCostThreshold int
}

// Stats computes rolling baseline metrics for finalized candlesticks.
type Stats struct {
	cfg *StatsConfig
}

// NewStats initializes a new statistics engine.
func NewStats(cfg *StatsConfig) *Stats {
	return &Stats{
		cfg: cfg,
	}
}

// averageTail averages the window sized slice of the series ending cooldown entries
// before the most recent one. Returns 0 when the series is too short for the window
// plus cooldown.
func averageTail(series []float64, window int, cooldown int) float64 {
	if cooldown < 0 {
		cooldown = 0
	}
	if len(series) < window+cooldown {
		return 0
	}

	tail := series[len(series)-(window+cooldown) : len(series)-cooldown]
	var sum float64
	for idx := range tail {
		sum += tail[idx]
	}

	return sum / float64(window)
}

// multiple returns the floored ratio of the provided value to its baseline, 0 when the
// baseline is not positive.
func multiple(value float64, baseline float64) int {
	if baseline <= 0 {
		return 0
	}

	return int(value / baseline)
}

// Enrich computes the baseline metrics of the provided candlestick against the
// market's history. The candle must not yet be part of the history.
func (s *Stats) Enrich(candle *shared.Candlestick, history *History) {
	cool := s.cfg.Cooldown

	volumes := history.Volumes()
	candle.Metrics.AvgVolume20 = averageTail(volumes, 20, cool)
	candle.Metrics.AvgVolume50 = averageTail(volumes, 50, cool)
	candle.Metrics.AvgVolume100 = averageTail(volumes, 100, cool)

	candle.Metrics.VolumeMultiple20 = multiple(candle.Volume, candle.Metrics.AvgVolume20)
	candle.Metrics.VolumeMultiple50 = multiple(candle.Volume, candle.Metrics.AvgVolume50)
	candle.Metrics.VolumeMultiple100 = multiple(candle.Volume, candle.Metrics.AvgVolume100)

	priceChanges := history.PriceChanges()
	candle.Metrics.AvgPriceChange20 = averageTail(priceChanges, 20, cool)
	candle.Metrics.AvgPriceChange50 = averageTail(priceChanges, 50, cool)
	candle.Metrics.AvgPriceChange100 = averageTail(priceChanges, 100, cool)

	candle.Metrics.PriceMultiple20 = multiple(candle.PriceChangePct, candle.Metrics.AvgPriceChange20)
	candle.Metrics.PriceMultiple50 = multiple(candle.PriceChangePct, candle.Metrics.AvgPriceChange50)
	candle.Metrics.PriceMultiple100 = multiple(candle.PriceChangePct, candle.Metrics.AvgPriceChange100)

	// True range recomputation is O(history), only pay for it on candles already
	// flagged as high multiples of their volume baseline.
	if candle.Metrics.VolumeMultiple20 >= s.cfg.ATRCostThreshold {
		trueRanges := history.TrueRanges()
		candle.Metrics.ATRPct20 = atrPercent(averageTail(trueRanges, 20, cool), candle.Close)
		candle.Metrics.ATRPct50 = atrPercent(averageTail(trueRanges, 50, cool), candle.Close)
		candle.Metrics.ATRPct100 = atrPercent(averageTail(trueRanges, 100, cool), candle.Close)
	}
}

// atrPercent converts an average true range into a percentage of the provided close.
func atrPercent(averageTrueRange float64, close float64) float64 {
	if averageTrueRange <= 0 || close <= 0 {
		return 0
	}

	return averageTrueRange / close * 100
}
