package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dnldd/pulse/database"
	"github.com/dnldd/pulse/fetch"
	"github.com/dnldd/pulse/scan"
	"github.com/dnldd/pulse/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// persistTimeout bounds asynchronous persistence calls issued from the tick path.
	persistTimeout = time.Second * 5
)

// ScannerConfig represents the configuration struct for the scanner service.
type ScannerConfig struct {
	// DBEndpoint represents the database connection endpoint.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string
	// Cooldown is the number of most recent candles excluded from baselines.
	Cooldown int
	// MaxQuietSeconds bounds synthesized zero volume seconds per market, zero
	// disables the bound.
	MaxQuietSeconds int
	// ATRCostThreshold is the minimum volume multiple gating ATR computation.
	ATRCostThreshold int
	// MinAvgVolume is the minimum baseline volume for spike evaluation.
	MinAvgVolume float64
	// MinVolumeMultiple is the minimum volume multiple for spike evaluation.
	MinVolumeMultiple int
	// MinPriceChangePct is the minimum candle price change for spike evaluation.
	MinPriceChangePct float64
	// MinPriceMultiple is the minimum price multiple for spike evaluation.
	MinPriceMultiple int
	// BurstShortWindow is the tick burst short window span.
	BurstShortWindow time.Duration
	// BurstLongWindow is the tick burst long window span.
	BurstLongWindow time.Duration
	// BurstMinRateRatio is the minimum tick rate ratio for a burst.
	BurstMinRateRatio float64
	// BurstMinVolRateRatio is the minimum volume rate ratio for a burst.
	BurstMinVolRateRatio float64
	// BurstMinMicroMovePct is the minimum short window price move for a burst.
	BurstMinMicroMovePct float64
	// BurstFactTTL is the lifetime of tick burst facts.
	BurstFactTTL time.Duration
	// BurstMinSeparation is the minimum interval between persisted bursts per market.
	BurstMinSeparation time.Duration
	// EarlyEntry enables deriving early entry orders from persisted bursts.
	EarlyEntry bool
	// EarlyQuote is the entry size in quote currency for early orders.
	EarlyQuote float64
	// EarlyLeverage is the leverage for early orders.
	EarlyLeverage int
	// RosterInterval is the market roster refresh cadence.
	RosterInterval time.Duration
	// DelistingInterval is the delisting announcements poll cadence.
	DelistingInterval time.Duration
	// DelistingFactTTL is the lifetime of delisting facts.
	DelistingFactTTL time.Duration
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config has sane inputs.
func (cfg *ScannerConfig) Validate() error {
	var errs error

	if cfg.DBEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.Cooldown < 0 {
		errs = errors.Join(errs, fmt.Errorf("cooldown cannot be negative"))
	}
	if cfg.BurstShortWindow <= 0 || cfg.BurstLongWindow <= 0 {
		errs = errors.Join(errs, fmt.Errorf("burst windows must be positive"))
	}
	if cfg.BurstShortWindow >= cfg.BurstLongWindow {
		errs = errors.Join(errs, fmt.Errorf("burst short window must be smaller than the long window"))
	}
	if cfg.EarlyEntry && cfg.EarlyQuote <= 0 {
		errs = errors.Join(errs, fmt.Errorf("early entry quote size must be positive"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Scanner represents a market scanning service.
type Scanner struct {
	cfg          *ScannerConfig
	db           *database.Database
	facts        *scan.FactStore
	accumulator  *scan.Accumulator
	detector     *scan.Detector
	flusher      *scan.Flusher
	fetchManager *fetch.Manager
	logger       *zerolog.Logger
	wg           sync.WaitGroup
}

// NewScanner initializes a new scanner service.
func NewScanner(ctx context.Context, cfg *ScannerConfig) (*Scanner, error) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "scanner").Logger()

	dbLogger := logger.With().Str("component", "database").Logger()
	db, err := database.NewDatabase(ctx, &database.DatabaseConfig{
		Endpoint: cfg.DBEndpoint,
		User:     cfg.DBUser,
		Pass:     cfg.DBPass,
		Logger:   &dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating database: %v", err)
	}

	facts := scan.NewFactStore()
	accumulator := scan.NewAccumulator()
	stats := scan.NewStats(&scan.StatsConfig{
		Cooldown:         cfg.Cooldown,
		ATRCostThreshold: cfg.ATRCostThreshold,
	})
	evaluator := scan.NewEvaluator(&scan.EvaluatorConfig{
		MinAvgVolume:      cfg.MinAvgVolume,
		MinVolumeMultiple: cfg.MinVolumeMultiple,
		MinPriceChangePct: cfg.MinPriceChangePct,
		MinPriceMultiple:  cfg.MinPriceMultiple,
	})

	persistBurstFunc := func(burst *shared.TickBurst) {
		go func() {
			pctx, cancel := context.WithTimeout(ctx, persistTimeout)
			defer cancel()

			err := db.PersistTickBurst(pctx, burst)
			if err != nil {
				logger.Error().Msgf("persisting %s tick burst: %v", burst.Market, err)
			}
		}()
	}

	persistEarlyOrderFunc := func(order *shared.EarlyOrder) {
		go func() {
			pctx, cancel := context.WithTimeout(ctx, persistTimeout)
			defer cancel()

			err := db.PersistEarlyOrder(pctx, order)
			if err != nil {
				logger.Error().Msgf("persisting %s early order: %v", order.Market, err)
			}
		}()
	}

	detectorLogger := logger.With().Str("component", "burstdetector").Logger()
	detector := scan.NewDetector(&scan.DetectorConfig{
		ShortWindow:       cfg.BurstShortWindow,
		LongWindow:        cfg.BurstLongWindow,
		MinRateRatio:      cfg.BurstMinRateRatio,
		MinVolRateRatio:   cfg.BurstMinVolRateRatio,
		MinMicroMovePct:   cfg.BurstMinMicroMovePct,
		FactTTL:           cfg.BurstFactTTL,
		MinSeparation:     cfg.BurstMinSeparation,
		EarlyEntry:        cfg.EarlyEntry,
		EarlyQuote:        cfg.EarlyQuote,
		EarlyLeverage:     cfg.EarlyLeverage,
		Facts:             facts,
		PersistTickBurst:  persistBurstFunc,
		PersistEarlyOrder: persistEarlyOrderFunc,
		Logger:            &detectorLogger,
	})

	roster := fetch.NewRoster(&fetch.RosterConfig{BaseURL: fetch.BaseRESTURL})

	flusherLogger := logger.With().Str("component", "flusher").Logger()
	flusher := scan.NewFlusher(&scan.FlusherConfig{
		Cooldown:        cfg.Cooldown,
		MaxQuietSeconds: cfg.MaxQuietSeconds,
		FetchMarkets:    roster.Markets,
		Accumulator:     accumulator,
		Stats:           stats,
		Evaluator:       evaluator,
		Facts:           facts,
		CandleStorer:    db,
		SignalStorer:    db,
		Logger:          &flusherLogger,
	})

	sendTickFunc := func(tick *shared.Tick) {
		accumulator.Update(tick)
		detector.Update(tick)
	}

	tickLogger := logger.With().Str("component", "tickclient").Logger()
	tickClient := fetch.NewClient(&fetch.ClientConfig{
		URL:      fetch.BaseWebsocketURL,
		SendTick: sendTickFunc,
		Logger:   &tickLogger,
	})

	watcherLogger := logger.With().Str("component", "delistingwatcher").Logger()
	watcher := fetch.NewWatcher(&fetch.WatcherConfig{
		BaseURL: fetch.BaseRESTURL,
		FactTTL: cfg.DelistingFactTTL,
		SetDelistingFact: func(market string, ttl time.Duration) {
			facts.SetFact(market, scan.FactDelisting, true, ttl)
		},
		Storer: db,
		Logger: &watcherLogger,
	})

	fetchMgrLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr, err := fetch.NewManager(&fetch.ManagerConfig{
		TickClient:        tickClient,
		Roster:            roster,
		DelistingWatcher:  watcher,
		RosterInterval:    cfg.RosterInterval,
		DelistingInterval: cfg.DelistingInterval,
		Logger:            &fetchMgrLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating fetch manager: %v", err)
	}

	service := &Scanner{
		cfg:          cfg,
		db:           db,
		facts:        facts,
		accumulator:  accumulator,
		detector:     detector,
		flusher:      flusher,
		fetchManager: fetchMgr,
		logger:       &logger,
	}

	return service, nil
}

// Run handles the lifecycle processes of the scanner service.
func (s *Scanner) Run(ctx context.Context) {
	s.wg.Add(2)

	go func() {
		s.flusher.Run(ctx)
		s.wg.Done()
	}()

	go func() {
		s.fetchManager.Run(ctx)
		s.wg.Done()
	}()

	s.wg.Wait()
}
