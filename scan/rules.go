package scan

import (
	"github.com/dnldd/pulse/shared"
)

// EvaluatorConfig represents the signal emission rule configuration.
type EvaluatorConfig struct {
	// MinAvgVolume is the minimum 20-window baseline volume for evaluation.
	MinAvgVolume float64
	// MinVolumeMultiple is the minimum 20-window volume multiple for a spike.
	MinVolumeMultiple int
	// MinPriceChangePct is the minimum price change percentage for a spike.
	MinPriceChangePct float64
	// MinPriceMultiple is the minimum 20-window price multiple for a spike.
	MinPriceMultiple int
}

// Evaluator applies the volume spike emission rules to finalized candlesticks.
type Evaluator struct {
	cfg *EvaluatorConfig
}

// NewEvaluator initializes a new rule evaluator.
func NewEvaluator(cfg *EvaluatorConfig) *Evaluator {
	return &Evaluator{
		cfg: cfg,
	}
}

// Evaluate reports whether the provided enriched candlestick qualifies as a volume
// spike. All conditions must hold.
func (e *Evaluator) Evaluate(candle *shared.Candlestick) bool {
	if candle.Direction == shared.Flat {
		return false
	}

	if candle.Metrics.AvgVolume20 <= e.cfg.MinAvgVolume {
		return false
	}
	if candle.Metrics.VolumeMultiple20 < e.cfg.MinVolumeMultiple {
		return false
	}

	if candle.PriceChangePct <= e.cfg.MinPriceChangePct {
		return false
	}
	if candle.Metrics.PriceMultiple20 <= e.cfg.MinPriceMultiple {
		return false
	}

	return true
}
