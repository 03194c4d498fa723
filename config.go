package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the configuration struct for the service.
type Config struct {
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
	// BurstShortWindowMs is the tick burst short window span in milliseconds.
	BurstShortWindowMs int
	// BurstLongWindowMs is the tick burst long window span in milliseconds.
	BurstLongWindowMs int
	// BurstMinRateRatio is the minimum tick rate ratio for a burst.
	BurstMinRateRatio float64
	// BurstMinVolRateRatio is the minimum volume rate ratio for a burst.
	BurstMinVolRateRatio float64
	// BurstMinMicroMovePct is the minimum short window price move for a burst.
	BurstMinMicroMovePct float64
	// BurstFactTTLMs is the lifetime of tick burst facts in milliseconds.
	BurstFactTTLMs int
	// BurstMinSeparationMs is the minimum interval between persisted bursts per
	// market, in milliseconds.
	BurstMinSeparationMs int
	// EarlyEntry enables deriving early entry orders from persisted bursts.
	EarlyEntry bool
	// EarlyQuote is the entry size in quote currency for early orders.
	EarlyQuote float64
	// EarlyLeverage is the leverage for early orders.
	EarlyLeverage int
	// RosterIntervalSecs is the market roster refresh cadence in seconds.
	RosterIntervalSecs int
	// DelistingIntervalSecs is the delisting poll cadence in seconds.
	DelistingIntervalSecs int
	// DelistingFactTTLDays is the lifetime of delisting facts in days.
	DelistingFactTTLDays int

	registeredFlags map[string]bool
}

// defaultConfig returns a config with the stock scanner thresholds set.
func defaultConfig() Config {
	return Config{
		Cooldown:              5,
		ATRCostThreshold:      1000,
		MinAvgVolume:          1,
		MinVolumeMultiple:     500,
		MinPriceChangePct:     0.3,
		MinPriceMultiple:      100,
		BurstShortWindowMs:    200,
		BurstLongWindowMs:     1500,
		BurstMinRateRatio:     4,
		BurstMinVolRateRatio:  3,
		BurstMinMicroMovePct:  0.6,
		BurstFactTTLMs:        2000,
		BurstMinSeparationMs:  1000,
		EarlyQuote:            6.5,
		EarlyLeverage:         10,
		RosterIntervalSecs:    600,
		DelistingIntervalSecs: 600,
		DelistingFactTTLDays:  60,
	}
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.DBEndpoint == "" {
		errs = errors.Join(errs, fmt.Errorf("database endpoint cannot be an empty string"))
	}
	if cfg.Cooldown < 0 {
		errs = errors.Join(errs, fmt.Errorf("cooldown cannot be negative"))
	}
	if cfg.BurstShortWindowMs <= 0 || cfg.BurstLongWindowMs <= 0 {
		errs = errors.Join(errs, fmt.Errorf("burst windows must be positive"))
	}
	if cfg.BurstShortWindowMs >= cfg.BurstLongWindowMs {
		errs = errors.Join(errs, fmt.Errorf("burst short window must be smaller than the long window"))
	}
	if cfg.EarlyEntry && cfg.EarlyQuote <= 0 {
		errs = errors.Join(errs, fmt.Errorf("early entry quote size must be positive"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
// Environment variables override struct defaults, flags override both.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		def := *value.(*string)
		if defValue != "" {
			def = defValue
		}
		flag.StringVar(value.(*string), name, def, usage)
	case reflect.Bool:
		def := *value.(*bool)
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		def := *value.(*int)
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		def := *value.(*float64)
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	flags := []struct {
		name  string
		value interface{}
		usage string
	}{
		{"dbendpoint", &cfg.DBEndpoint, "the database connection endpoint"},
		{"dbuser", &cfg.DBUser, "the database user"},
		{"dbpass", &cfg.DBPass, "the database user pass"},
		{"cooldown", &cfg.Cooldown, "the number of recent candles excluded from baselines"},
		{"maxquietseconds", &cfg.MaxQuietSeconds, "the bound on synthesized zero volume seconds, zero disables"},
		{"atrcostthreshold", &cfg.ATRCostThreshold, "the minimum volume multiple gating atr computation"},
		{"minavgvolume", &cfg.MinAvgVolume, "the minimum baseline volume for spike evaluation"},
		{"minvolumemultiple", &cfg.MinVolumeMultiple, "the minimum volume multiple for spike evaluation"},
		{"minpricechangepct", &cfg.MinPriceChangePct, "the minimum candle price change for spike evaluation"},
		{"minpricemultiple", &cfg.MinPriceMultiple, "the minimum price multiple for spike evaluation"},
		{"burstshortwindowms", &cfg.BurstShortWindowMs, "the tick burst short window span in milliseconds"},
		{"burstlongwindowms", &cfg.BurstLongWindowMs, "the tick burst long window span in milliseconds"},
		{"burstminrateratio", &cfg.BurstMinRateRatio, "the minimum tick rate ratio for a burst"},
		{"burstminvolrateratio", &cfg.BurstMinVolRateRatio, "the minimum volume rate ratio for a burst"},
		{"burstminmicromovepct", &cfg.BurstMinMicroMovePct, "the minimum short window price move for a burst"},
		{"burstfactttlms", &cfg.BurstFactTTLMs, "the lifetime of tick burst facts in milliseconds"},
		{"burstminseparationms", &cfg.BurstMinSeparationMs, "the minimum interval between persisted bursts in milliseconds"},
		{"earlyentry", &cfg.EarlyEntry, "the early entry flag"},
		{"earlyquote", &cfg.EarlyQuote, "the entry size in quote currency for early orders"},
		{"earlyleverage", &cfg.EarlyLeverage, "the leverage for early orders"},
		{"rosterintervalsecs", &cfg.RosterIntervalSecs, "the market roster refresh cadence in seconds"},
		{"delistingintervalsecs", &cfg.DelistingIntervalSecs, "the delisting poll cadence in seconds"},
		{"delistingfactttldays", &cfg.DelistingFactTTLDays, "the lifetime of delisting facts in days"},
	}

	for idx := range flags {
		err = cfg.registerFlag(flags[idx].name, flags[idx].value, flags[idx].usage)
		if err != nil {
			return err
		}
	}

	// Parse command-line flags.
	flag.Parse()

	return cfg.Validate()
}
