// Package run provides the per-run context threaded explicitly through every
// pipeline stage: run identity, the evaluation clock, the logger, and the
// decision counters that feed the audit report. Nothing here is process-wide
// state; two runs in one process never share a Context.
package run

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Context carries the identity and shared services of one engine run.
type Context struct {
	RunID     string
	StartedAt time.Time

	// EvalTime is the instant "now" against which ordinance expiration is
	// judged. Fixed at run start so every batch sees the same clock.
	EvalTime time.Time

	Logger *slog.Logger
	Stats  *Stats
}

// New creates a run context with a fresh run ID and the given evaluation
// time. A zero evalTime means run start.
func New(logger *slog.Logger, evalTime time.Time) *Context {
	now := time.Now().UTC()
	if evalTime.IsZero() {
		evalTime = now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		RunID:     uuid.NewString(),
		StartedAt: now,
		EvalTime:  evalTime,
		Logger:    logger,
		Stats:     &Stats{},
	}
}

// Stats accumulates decision-class counters across all stages of a run.
// All methods are safe for concurrent use by batch workers.
type Stats struct {
	mu sync.Mutex

	merged       int
	keptSeparate int
	filtered     int
	malformed    int
	oracleUsed   int
	oracleFailed int
	active       int
	inactive     int
}

// Snapshot is an immutable copy of the counters for reporting.
type Snapshot struct {
	Merged       int `json:"merged"`
	KeptSeparate int `json:"kept_separate"`
	Filtered     int `json:"filtered"`
	Malformed    int `json:"malformed"`
	OracleUsed   int `json:"oracle_used"`
	OracleFailed int `json:"oracle_failed"`
	Active       int `json:"active"`
	Inactive     int `json:"inactive"`
}

// AddMerged counts records or sections merged into an existing entity.
func (s *Stats) AddMerged(n int) { s.add(&s.merged, n) }

// AddKeptSeparate counts pairs evaluated and deliberately not merged.
func (s *Stats) AddKeptSeparate(n int) { s.add(&s.keptSeparate, n) }

// AddFiltered counts records excluded before clustering.
func (s *Stats) AddFiltered(n int) { s.add(&s.filtered, n) }

// AddMalformed counts documents that failed to decode and were skipped.
func (s *Stats) AddMalformed(n int) { s.add(&s.malformed, n) }

// AddOracleUsed counts adjudication answers that reached a stage.
func (s *Stats) AddOracleUsed(n int) { s.add(&s.oracleUsed, n) }

// AddOracleFailed counts declined or failed adjudications.
func (s *Stats) AddOracleFailed(n int) { s.add(&s.oracleFailed, n) }

// AddActive counts section versions marked active.
func (s *Stats) AddActive(n int) { s.add(&s.active, n) }

// AddInactive counts section versions marked inactive.
func (s *Stats) AddInactive(n int) { s.add(&s.inactive, n) }

func (s *Stats) add(field *int, n int) {
	s.mu.Lock()
	*field += n
	s.mu.Unlock()
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Merged:       s.merged,
		KeptSeparate: s.keptSeparate,
		Filtered:     s.filtered,
		Malformed:    s.malformed,
		OracleUsed:   s.oracleUsed,
		OracleFailed: s.oracleFailed,
		Active:       s.active,
		Inactive:     s.inactive,
	}
}
