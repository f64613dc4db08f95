// Package config holds the engine configuration: similarity thresholds, the
// ordinance-expiration window, oracle settings, and batch sizing. Every
// threshold is a default, not fixed law; a YAML file can override any field.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultDedupeThreshold is the pairwise content-similarity score at or above
// which two records are clustered as duplicates.
const DefaultDedupeThreshold = 0.85

// DefaultMergeThreshold is the name-similarity score required before a
// base-group merge is even put to the oracle.
const DefaultMergeThreshold = 0.75

// DefaultSectionNumberThreshold is the section-number similarity required to
// align two section versions.
const DefaultSectionNumberThreshold = 0.85

// DefaultSectionBodyThreshold is the body similarity required to align two
// section versions without oracle confirmation.
const DefaultSectionBodyThreshold = 0.80

// DefaultAmbiguousBand is the width of the band below the body threshold in
// which the oracle may confirm a section match.
const DefaultAmbiguousBand = 0.10

// DefaultOrdinanceWindowDays is the number of days after which an
// un-repromulgated ordinance is considered expired.
const DefaultOrdinanceWindowDays = 180

// DefaultCutoffYear drops records whose sole parseable year predates it.
const DefaultCutoffYear = 1947

// DefaultMinBaseNameLength is the shortest base name eligible for
// cross-partition merging.
const DefaultMinBaseNameLength = 4

// Config is the full engine configuration.
type Config struct {
	// DedupeThreshold gates duplicate clustering (stage 1).
	DedupeThreshold float64 `yaml:"dedupe_threshold"`

	// MergeThreshold gates base-group merge candidacy (stage 2).
	MergeThreshold float64 `yaml:"merge_threshold"`

	// SectionNumberThreshold gates section alignment by number (stage 4).
	SectionNumberThreshold float64 `yaml:"section_number_threshold"`

	// SectionBodyThreshold gates section alignment by body text (stage 4).
	SectionBodyThreshold float64 `yaml:"section_body_threshold"`

	// AmbiguousBand is how far below SectionBodyThreshold a pair may score
	// and still be confirmed by the oracle instead of rejected outright.
	AmbiguousBand float64 `yaml:"ambiguous_band"`

	// OrdinanceWindowDays is the ordinance-expiration window (stage 5).
	OrdinanceWindowDays int `yaml:"ordinance_window_days"`

	// CutoffYear filters pre-independence records during deduplication.
	CutoffYear int `yaml:"cutoff_year"`

	// MinBaseNameLength is the minimum merge-eligible base-name length.
	MinBaseNameLength int `yaml:"min_base_name_length"`

	// GenericBaseNames are base names never eligible for merging.
	GenericBaseNames []string `yaml:"generic_base_names"`

	// Workers bounds the number of partitions processed in parallel.
	Workers int `yaml:"workers"`

	// Oracle configures the adjudication service client.
	Oracle OracleConfig `yaml:"oracle"`
}

// OracleConfig configures the adjudication oracle client.
type OracleConfig struct {
	// Enabled selects the oracle-backed decision strategy; when false the
	// engine runs heuristic-only and every tie falls to its structural
	// default.
	Enabled bool `yaml:"enabled"`

	// BaseURL is the chat-completions-style endpoint.
	BaseURL string `yaml:"base_url"`

	// Model is the model name sent with each request.
	Model string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	// Timeout is the per-call timeout.
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerMinute bounds the request rate; 0 disables limiting.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// MaxRetries bounds retry attempts on transient failures.
	MaxRetries int `yaml:"max_retries"`

	// BackoffBase is the initial backoff delay; doubled per retry with jitter.
	BackoffBase time.Duration `yaml:"backoff_base"`

	// BreakerThreshold is the consecutive-failure count that opens the
	// circuit for the remainder of the run.
	BreakerThreshold int `yaml:"breaker_threshold"`

	// CachePath persists oracle answers between runs. Empty keeps the cache
	// in memory only.
	CachePath string `yaml:"cache_path"`
}

// Default returns the engine configuration with all documented defaults.
func Default() Config {
	return Config{
		DedupeThreshold:        DefaultDedupeThreshold,
		MergeThreshold:         DefaultMergeThreshold,
		SectionNumberThreshold: DefaultSectionNumberThreshold,
		SectionBodyThreshold:   DefaultSectionBodyThreshold,
		AmbiguousBand:          DefaultAmbiguousBand,
		OrdinanceWindowDays:    DefaultOrdinanceWindowDays,
		CutoffYear:             DefaultCutoffYear,
		MinBaseNameLength:      DefaultMinBaseNameLength,
		GenericBaseNames: []string{
			"amendment", "finance", "appropriation", "repealing",
		},
		Workers: 4,
		Oracle: OracleConfig{
			Enabled:           false,
			Model:             "gpt-4.1-mini",
			APIKeyEnv:         "LEXCHAIN_ORACLE_KEY",
			Timeout:           30 * time.Second,
			RequestsPerMinute: 60,
			MaxRetries:        3,
			BackoffBase:       500 * time.Millisecond,
			BreakerThreshold:  5,
		},
	}
}

// Load reads a YAML overlay on top of the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the stages cannot run with.
func (c *Config) Validate() error {
	inUnit := func(v float64) bool { return v > 0 && v <= 1 }
	if !inUnit(c.DedupeThreshold) || !inUnit(c.MergeThreshold) ||
		!inUnit(c.SectionNumberThreshold) || !inUnit(c.SectionBodyThreshold) {
		return fmt.Errorf("similarity thresholds must be in (0, 1]")
	}
	if c.AmbiguousBand < 0 || c.AmbiguousBand >= c.SectionBodyThreshold {
		return fmt.Errorf("ambiguous band must be in [0, section_body_threshold)")
	}
	if c.OrdinanceWindowDays <= 0 {
		return fmt.Errorf("ordinance window must be positive")
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return nil
}
