package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coolbeans/lexchain/pkg/run"
)

// Report is the decision-class summary a run emits for audit and override
// review: per-stage input/output counts plus the run-wide decision counters.
type Report struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Stages     []StageStats `json:"stages"`
	Decisions  run.Snapshot `json:"decisions"`
}

// StageStats summarizes one stage execution.
type StageStats struct {
	Stage      int           `json:"stage"`
	Name       string        `json:"name"`
	InputDocs  int           `json:"input_docs"`
	OutputDocs int           `json:"output_docs"`
	Duration   time.Duration `json:"duration_ns"`
}

// NewReport creates an empty report for a run.
func NewReport(runID string) *Report {
	return &Report{RunID: runID, StartedAt: time.Now().UTC()}
}

// RecordStage appends one stage's summary.
func (report *Report) RecordStage(stage int, name string, in, out int, elapsed time.Duration) {
	report.Stages = append(report.Stages, StageStats{
		Stage:      stage,
		Name:       name,
		InputDocs:  in,
		OutputDocs: out,
		Duration:   elapsed,
	})
}

// Finish stamps the end time and snapshots the run's decision counters.
func (report *Report) Finish(rc *run.Context) {
	report.FinishedAt = time.Now().UTC()
	report.Decisions = rc.Stats.Snapshot()
}

// ToJSON serializes the report.
func (report *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// String renders a human-readable summary.
func (report *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n", report.RunID)
	for _, stage := range report.Stages {
		fmt.Fprintf(&b, "  stage %d %-12s %5d -> %-5d (%s)\n",
			stage.Stage, stage.Name, stage.InputDocs, stage.OutputDocs,
			stage.Duration.Round(time.Millisecond))
	}
	d := report.Decisions
	fmt.Fprintf(&b, "  merged=%d kept-separate=%d filtered=%d malformed=%d\n",
		d.Merged, d.KeptSeparate, d.Filtered, d.Malformed)
	fmt.Fprintf(&b, "  oracle-used=%d oracle-failed=%d active=%d inactive=%d\n",
		d.OracleUsed, d.OracleFailed, d.Active, d.Inactive)
	return b.String()
}
