package service

import (
	"context"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func validConfig() *ScannerConfig {
	_, cancel := context.WithCancel(context.Background())
	return &ScannerConfig{
		DBEndpoint:           "http://localhost:4001",
		Cooldown:             5,
		ATRCostThreshold:     1000,
		MinAvgVolume:         1,
		MinVolumeMultiple:    500,
		MinPriceChangePct:    0.3,
		MinPriceMultiple:     100,
		BurstShortWindow:     time.Millisecond * 200,
		BurstLongWindow:      time.Millisecond * 1500,
		BurstMinRateRatio:    4,
		BurstMinVolRateRatio: 3,
		BurstMinMicroMovePct: 0.6,
		BurstFactTTL:         time.Second * 2,
		BurstMinSeparation:   time.Second,
		RosterInterval:       time.Minute * 10,
		DelistingInterval:    time.Second * 600,
		DelistingFactTTL:     time.Hour * 24 * 60,
		Cancel:               cancel,
	}
}

func TestScannerConfigValidate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.DBEndpoint = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Cooldown = -1
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.BurstShortWindow = cfg.BurstLongWindow
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.BurstLongWindow = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.EarlyEntry = true
	cfg.EarlyQuote = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Cancel = nil
	assert.Error(t, cfg.Validate())
}
