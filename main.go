package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/dnldd/pulse/service"
)

// handleTermination processes context cancellation signals or interrupt signals from the OS.
func handleTermination(ctx context.Context, cancel context.CancelFunc) {
	// Listen for interrupt signals.
	signals := []os.Signal{os.Interrupt}
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, signals...)

	// Wait for the context to be cancelled or an interrupt signal.
	for {
		select {
		case <-ctx.Done():
			return

		case <-interrupt:
			cancel()
		}
	}
}

func main() {
	cfg := defaultConfig()
	err := loadConfig(&cfg, "")
	if err != nil {
		log.Printf("loading config: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scannerCfg := service.ScannerConfig{
		DBEndpoint:           cfg.DBEndpoint,
		DBUser:               cfg.DBUser,
		DBPass:               cfg.DBPass,
		Cooldown:             cfg.Cooldown,
		MaxQuietSeconds:      cfg.MaxQuietSeconds,
		ATRCostThreshold:     cfg.ATRCostThreshold,
		MinAvgVolume:         cfg.MinAvgVolume,
		MinVolumeMultiple:    cfg.MinVolumeMultiple,
		MinPriceChangePct:    cfg.MinPriceChangePct,
		MinPriceMultiple:     cfg.MinPriceMultiple,
		BurstShortWindow:     time.Duration(cfg.BurstShortWindowMs) * time.Millisecond,
		BurstLongWindow:      time.Duration(cfg.BurstLongWindowMs) * time.Millisecond,
		BurstMinRateRatio:    cfg.BurstMinRateRatio,
		BurstMinVolRateRatio: cfg.BurstMinVolRateRatio,
		BurstMinMicroMovePct: cfg.BurstMinMicroMovePct,
		BurstFactTTL:         time.Duration(cfg.BurstFactTTLMs) * time.Millisecond,
		BurstMinSeparation:   time.Duration(cfg.BurstMinSeparationMs) * time.Millisecond,
		EarlyEntry:           cfg.EarlyEntry,
		EarlyQuote:           cfg.EarlyQuote,
		EarlyLeverage:        cfg.EarlyLeverage,
		RosterInterval:       time.Duration(cfg.RosterIntervalSecs) * time.Second,
		DelistingInterval:    time.Duration(cfg.DelistingIntervalSecs) * time.Second,
		DelistingFactTTL:     time.Duration(cfg.DelistingFactTTLDays) * time.Hour * 24,
		Cancel:               cancel,
	}
	scanner, err := service.NewScanner(ctx, &scannerCfg)
	if err != nil {
		log.Printf("creating scanner service: %v", err)
		return
	}

	go handleTermination(ctx, cancel)
	scanner.Run(ctx)
}
