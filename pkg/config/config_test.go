package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.DedupeThreshold != 0.85 {
		t.Errorf("Expected dedupe threshold 0.85, got %.2f", cfg.DedupeThreshold)
	}
	if cfg.OrdinanceWindowDays != 180 {
		t.Errorf("Expected 180-day ordinance window, got %d", cfg.OrdinanceWindowDays)
	}
	if cfg.CutoffYear != 1947 {
		t.Errorf("Expected cutoff year 1947, got %d", cfg.CutoffYear)
	}
	if cfg.Oracle.Enabled {
		t.Error("Expected the oracle disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MergeThreshold != DefaultMergeThreshold {
		t.Errorf("Expected default merge threshold, got %.2f", cfg.MergeThreshold)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "merge_threshold: 0.9\n" +
		"ordinance_window_days: 90\n" +
		"oracle:\n" +
		"  enabled: true\n" +
		"  requests_per_minute: 10\n" +
		"  timeout: 10s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MergeThreshold != 0.9 {
		t.Errorf("Expected overlaid merge threshold 0.9, got %.2f", cfg.MergeThreshold)
	}
	if cfg.OrdinanceWindowDays != 90 {
		t.Errorf("Expected overlaid window 90, got %d", cfg.OrdinanceWindowDays)
	}
	if !cfg.Oracle.Enabled || cfg.Oracle.RequestsPerMinute != 10 {
		t.Errorf("Expected overlaid oracle config, got %+v", cfg.Oracle)
	}
	if cfg.Oracle.Timeout != 10*time.Second {
		t.Errorf("Expected 10s timeout, got %v", cfg.Oracle.Timeout)
	}
	// Untouched fields keep their defaults.
	if cfg.DedupeThreshold != DefaultDedupeThreshold {
		t.Errorf("Expected default dedupe threshold, got %.2f", cfg.DedupeThreshold)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threshold", func(c *Config) { c.DedupeThreshold = 0 }},
		{"above one", func(c *Config) { c.MergeThreshold = 1.5 }},
		{"negative band", func(c *Config) { c.AmbiguousBand = -0.1 }},
		{"band swallows threshold", func(c *Config) { c.AmbiguousBand = 0.9 }},
		{"zero window", func(c *Config) { c.OrdinanceWindowDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestValidateDefaultsWorkers(t *testing.T) {
	cfg := Default()
	cfg.Workers = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.Workers != 1 {
		t.Errorf("Expected workers floored to 1, got %d", cfg.Workers)
	}
}

func TestLoadRejectsInvalidOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("dedupe_threshold: 2.0\n"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected invalid overlay to fail")
	}
}
