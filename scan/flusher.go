package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/dnldd/pulse/shared"
	"github.com/rs/zerolog"
)

const (
	// idleInterval is the sleep between flusher passes.
	idleInterval = time.Millisecond * 200
)

// FlusherConfig represents the flusher configuration.
type FlusherConfig struct {
	// Cooldown is the number of most recent candles excluded from baselines.
	Cooldown int
	// MaxQuietSeconds bounds how many consecutive zero volume seconds are synthesized
	// for a market before its series pauses until the next real tick. Zero disables
	// the bound, flat candles are synthesized indefinitely at the last price.
	MaxQuietSeconds int
	// FetchMarkets returns the currently tracked market roster.
	FetchMarkets func() []string
	// Accumulator is the open candle accumulator drained by the flusher.
	Accumulator *Accumulator
	// Stats is the statistics engine enriching finalized candles.
	Stats *Stats
	// Evaluator applies the spike emission rules.
	Evaluator *Evaluator
	// Facts is the fact store swept once per pass.
	Facts *FactStore
	// CandleStorer persists finalized candles.
	CandleStorer shared.CandleStorer
	// SignalStorer persists emitted spikes.
	SignalStorer shared.SignalStorer
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Flusher advances a global last processed second cursor, finalizing due candles for
// every tracked market. Every wall clock second that elapses is processed exactly once
// per market, in order, regardless of scheduler delay.
type Flusher struct {
	cfg        *FlusherConfig
	histories  map[string]*History
	quiet      map[string]int
	nextSecond int64
}

// NewFlusher initializes a new flusher with its cursor set to the preceding wall
// clock second.
func NewFlusher(cfg *FlusherConfig) *Flusher {
	return &Flusher{
		cfg:        cfg,
		histories:  make(map[string]*History),
		quiet:      make(map[string]int),
		nextSecond: time.Now().Unix() - 1,
	}
}

// fetchHistory returns the history ring for the provided market, creating it if
// absent. Roster additions get their ring on the first pass that sees them.
func (f *Flusher) fetchHistory(market string) (*History, error) {
	history, ok := f.histories[market]
	if !ok {
		var err error
		history, err = NewHistory(historyCapacity(f.cfg.Cooldown))
		if err != nil {
			return nil, fmt.Errorf("creating %s history: %w", market, err)
		}
		f.histories[market] = history
	}

	return history, nil
}

// flushMarket finalizes the provided second for a market. Returns whether a candle was
// processed and whether it was a spike hit.
func (f *Flusher) flushMarket(ctx context.Context, market string, second int64) (bool, bool, error) {
	candle := f.cfg.Accumulator.Pop(market, second)
	if candle == nil {
		// No trade has ever been seen for the market, not counted as a gap.
		return false, false, nil
	}

	synthetic := candle.Volume == 0
	if synthetic && f.cfg.MaxQuietSeconds > 0 && f.quiet[market] >= f.cfg.MaxQuietSeconds {
		// The market has been quiet past the staleness bound, pause its series.
		return false, false, nil
	}

	history, err := f.fetchHistory(market)
	if err != nil {
		return false, false, err
	}

	candle.Finalize()

	// Baselines exclude the candle being finalized, enrich before appending.
	f.cfg.Stats.Enrich(candle, history)
	history.Append(candle)

	if synthetic {
		// Synthetic candles occupy history to keep windows correctly spaced in time
		// but are neither persisted nor evaluated.
		f.quiet[market]++
		return true, false, nil
	}
	f.quiet[market] = 0

	var hit bool
	if f.cfg.Evaluator.Evaluate(candle) {
		hit = true
		spike := shared.NewSpike(candle)
		err := f.cfg.SignalStorer.PersistSpike(ctx, spike)
		if err != nil {
			f.cfg.Logger.Error().Msgf("persisting %s spike: %v", market, err)
		}

		f.cfg.Logger.Info().Msgf("spike: %s O:%.8g H:%.8g L:%.8g C:%.8g V:%.2f %s change %.4f%% "+
			"avg20:%.2f avg50:%.2f avg100:%.2f xv20:%d xv50:%d xv100:%d xp20:%d xp50:%d xp100:%d",
			market, candle.Open, candle.High, candle.Low, candle.Close, candle.Volume,
			candle.Direction, candle.PriceChangePct,
			candle.Metrics.AvgVolume20, candle.Metrics.AvgVolume50, candle.Metrics.AvgVolume100,
			candle.Metrics.VolumeMultiple20, candle.Metrics.VolumeMultiple50, candle.Metrics.VolumeMultiple100,
			candle.Metrics.PriceMultiple20, candle.Metrics.PriceMultiple50, candle.Metrics.PriceMultiple100)
	}

	err = f.cfg.CandleStorer.PersistCandle(ctx, candle)
	if err != nil {
		// Sink failures are logged per record and never abort the pass.
		f.cfg.Logger.Error().Msgf("persisting %s candle: %v", market, err)
	}

	return true, hit, nil
}

// flushSecond finalizes the provided second for all tracked markets. A failure for one
// market never aborts the pass for the others.
func (f *Flusher) flushSecond(ctx context.Context, second int64) {
	markets := f.cfg.FetchMarkets()

	var checked, hits int
	for idx := range markets {
		processed, hit, err := f.flushMarket(ctx, markets[idx], second)
		if err != nil {
			f.cfg.Logger.Error().Msgf("flushing %s at %d: %v", markets[idx], second, err)
			continue
		}
		if processed {
			checked++
		}
		if hit {
			hits++
		}
	}

	f.cfg.Logger.Debug().Msgf("%s checked:%d found:%d",
		time.Unix(second, 0).UTC().Format(shared.DateLayout), checked, hits)
}

// catchUp processes all seconds due before the provided wall clock second.
func (f *Flusher) catchUp(ctx context.Context, now int64) {
	for f.nextSecond <= now-1 {
		f.cfg.Facts.SweepExpired()
		f.flushSecond(ctx, f.nextSecond)
		f.nextSecond++
	}
}

// Run manages the lifecycle processes of the flusher.
func (f *Flusher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// In-flight open candles are discarded on shutdown.
			return
		default:
			f.catchUp(ctx, time.Now().Unix())
			time.Sleep(idleInterval)
		}
	}
}
