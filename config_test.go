package main

import (
	"flag"
	"os"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr []string
	}{
		{
			name: "valid config",
			mutate: func(cfg *Config) {
				cfg.DBEndpoint = "http://localhost:4001"
			},
			wantErr: nil,
		},
		{
			name:    "missing database endpoint",
			mutate:  func(cfg *Config) {},
			wantErr: []string{"database endpoint cannot be an empty string"},
		},
		{
			name: "negative cooldown",
			mutate: func(cfg *Config) {
				cfg.DBEndpoint = "http://localhost:4001"
				cfg.Cooldown = -1
			},
			wantErr: []string{"cooldown cannot be negative"},
		},
		{
			name: "zero burst windows",
			mutate: func(cfg *Config) {
				cfg.DBEndpoint = "http://localhost:4001"
				cfg.BurstShortWindowMs = 0
				cfg.BurstLongWindowMs = 0
			},
			wantErr: []string{"burst windows must be positive"},
		},
		{
			name: "inverted burst windows",
			mutate: func(cfg *Config) {
				cfg.DBEndpoint = "http://localhost:4001"
				cfg.BurstShortWindowMs = 1500
				cfg.BurstLongWindowMs = 200
			},
			wantErr: []string{"burst short window must be smaller than the long window"},
		},
		{
			name: "early entry with zero quote",
			mutate: func(cfg *Config) {
				cfg.DBEndpoint = "http://localhost:4001"
				cfg.EarlyEntry = true
				cfg.EarlyQuote = 0
			},
			wantErr: []string{"early entry quote size must be positive"},
		},
		{
			name:   "multiple errors",
			mutate: func(cfg *Config) { cfg.Cooldown = -1 },
			wantErr: []string{
				"database endpoint cannot be an empty string",
				"cooldown cannot be negative",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("expected no error, got: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("expected error(s) %v, got none", tt.wantErr)
					return
				}
				for _, want := range tt.wantErr {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("expected error to contain %q, got %v", want, err)
					}
				}
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	// Save and restore original os.Args and environment
	origArgs := os.Args
	origEnv := os.Environ()
	defer func() {
		os.Args = origArgs
		for _, kv := range origEnv {
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) == 2 {
				os.Setenv(parts[0], parts[1])
			}
		}
	}()

	tests := []struct {
		name        string
		env         map[string]string
		args        []string
		expectErr   bool
		expectInErr []string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "endpoint from env, defaults elsewhere",
			env: map[string]string{
				"dbendpoint": "http://localhost:4001",
			},
			args:      []string{"cmd"},
			expectErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.DBEndpoint != "http://localhost:4001" {
					t.Errorf("DBEndpoint: got %v", cfg.DBEndpoint)
				}
				if cfg.Cooldown != 5 {
					t.Errorf("Cooldown: got %v, want 5", cfg.Cooldown)
				}
				if cfg.MinVolumeMultiple != 500 {
					t.Errorf("MinVolumeMultiple: got %v, want 500", cfg.MinVolumeMultiple)
				}
				if cfg.BurstMinRateRatio != 4 {
					t.Errorf("BurstMinRateRatio: got %v, want 4", cfg.BurstMinRateRatio)
				}
			},
		},
		{
			name: "flags override env and defaults",
			env: map[string]string{
				"dbendpoint": "http://localhost:4001",
				"cooldown":   "7",
			},
			args:      []string{"cmd", "-cooldown=9", "-minpricechangepct=0.5", "-earlyentry=true"},
			expectErr: false,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Cooldown != 9 {
					t.Errorf("Cooldown: got %v, want 9", cfg.Cooldown)
				}
				if cfg.MinPriceChangePct != 0.5 {
					t.Errorf("MinPriceChangePct: got %v, want 0.5", cfg.MinPriceChangePct)
				}
				if !cfg.EarlyEntry {
					t.Errorf("EarlyEntry: got false, want true")
				}
			},
		},
		{
			name:        "missing database endpoint",
			env:         map[string]string{},
			args:        []string{"cmd"},
			expectErr:   true,
			expectInErr: []string{"database endpoint cannot be an empty string"},
		},
		{
			name: "invalid burst windows from flags",
			env: map[string]string{
				"dbendpoint": "http://localhost:4001",
			},
			args:        []string{"cmd", "-burstshortwindowms=2000"},
			expectErr:   true,
			expectInErr: []string{"burst short window must be smaller than the long window"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset flags for each test
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			// Set environment variables
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			// Set command-line arguments
			os.Args = tt.args

			cfg := defaultConfig()
			err := loadConfig(&cfg, "") // don't load .env file

			if tt.expectErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				for _, want := range tt.expectInErr {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("expected error to contain %q, got %v", want, err)
					}
				}
			} else {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				tt.check(t, &cfg)
			}

			// Clean up env
			for k := range tt.env {
				os.Unsetenv(k)
			}
		})
	}
}
