// Package pipeline orchestrates the five resolution stages over the document
// store. Each stage reads the previous stage's partition and replaces its own
// output partition in one transaction, so a run can restart from the last
// completed stage. Batches fan out across a bounded worker pool; decisions
// inside one batch stay sequential because a merge affects later comparisons.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/coolbeans/lexchain/pkg/activation"
	"github.com/coolbeans/lexchain/pkg/config"
	"github.com/coolbeans/lexchain/pkg/dedupe"
	"github.com/coolbeans/lexchain/pkg/docstore"
	"github.com/coolbeans/lexchain/pkg/grouping"
	"github.com/coolbeans/lexchain/pkg/oracle"
	"github.com/coolbeans/lexchain/pkg/run"
	"github.com/coolbeans/lexchain/pkg/sections"
	"github.com/coolbeans/lexchain/pkg/statute"
	"github.com/coolbeans/lexchain/pkg/versioning"
)

// Partition names, by stage. The store's naming convention is
// "<family>:<name>"; ListPartitions enumerates by family prefix.
const (
	PartitionRaw      = "records:raw"
	PartitionDeduped  = "records:deduped"
	PartitionFiltered = "records:filtered"
	PartitionGroups   = "groups:base"
	PartitionChains   = "groups:versioned"
	PartitionSections = "sections:aligned"
	PartitionActive   = "sections:active"
	PartitionReport   = "report:latest"
)

// StageCount is the number of pipeline stages.
const StageCount = 5

// Pipeline wires the stages to their collaborators.
type Pipeline struct {
	store   *docstore.Store
	cfg     config.Config
	decider oracle.Decider
	sheet   *versioning.DateSheet
}

// New builds a pipeline. A nil decider runs heuristic-only; a nil sheet
// disables date backfill.
func New(store *docstore.Store, cfg config.Config, decider oracle.Decider, sheet *versioning.DateSheet) *Pipeline {
	if decider == nil {
		decider = oracle.HeuristicDecider{}
	}
	if sheet == nil {
		sheet = versioning.NewDateSheet()
	}
	return &Pipeline{store: store, cfg: cfg, decider: decider, sheet: sheet}
}

// Run executes stages firstStage..5 in strict order and writes the audit
// report. Stage numbering is 1-based.
func (p *Pipeline) Run(ctx context.Context, rc *run.Context, firstStage int) (*Report, error) {
	if firstStage < 1 || firstStage > StageCount {
		return nil, fmt.Errorf("stage %d out of range 1..%d", firstStage, StageCount)
	}

	report := NewReport(rc.RunID)
	for stage := firstStage; stage <= StageCount; stage++ {
		started := time.Now()
		in, out, err := p.runStage(ctx, rc, stage)
		if err != nil {
			// Store failures are fatal to the run: partial writes would
			// corrupt downstream input.
			return report, fmt.Errorf("stage %d failed: %w", stage, err)
		}
		report.RecordStage(stage, stageName(stage), in, out, time.Since(started))
		rc.Logger.Info("stage complete",
			"stage", stage, "name", stageName(stage), "in", in, "out", out)
	}

	report.Finish(rc)
	if err := docstore.ReplaceTyped(p.store, PartitionReport, []*Report{report}); err != nil {
		return report, err
	}
	return report, nil
}

// RunStage executes a single stage.
func (p *Pipeline) RunStage(ctx context.Context, rc *run.Context, stage int) error {
	if stage < 1 || stage > StageCount {
		return fmt.Errorf("stage %d out of range 1..%d", stage, StageCount)
	}
	if _, _, err := p.runStage(ctx, rc, stage); err != nil {
		return fmt.Errorf("stage %d failed: %w", stage, err)
	}
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, rc *run.Context, stage int) (in, out int, err error) {
	switch stage {
	case 1:
		return p.runDedupe(rc)
	case 2:
		return p.runGrouping(ctx, rc)
	case 3:
		return p.runVersioning(ctx, rc)
	case 4:
		return p.runSections(ctx, rc)
	case 5:
		return p.runActivation(rc)
	default:
		return 0, 0, fmt.Errorf("unknown stage %d", stage)
	}
}

func stageName(stage int) string {
	switch stage {
	case 1:
		return "deduplicate"
	case 2:
		return "group"
	case 3:
		return "version"
	case 4:
		return "sections"
	case 5:
		return "activate"
	default:
		return "unknown"
	}
}

func (p *Pipeline) runDedupe(rc *run.Context) (int, int, error) {
	records, malformed, err := docstore.ReadTyped[statute.StatuteRecord](p.store, PartitionRaw)
	if err != nil {
		return 0, 0, err
	}
	rc.Stats.AddMalformed(malformed)

	result := dedupe.Run(rc, p.cfg, records)

	if err := docstore.ReplaceTyped(p.store, PartitionDeduped, result.Representatives); err != nil {
		return 0, 0, err
	}
	if err := docstore.ReplaceTyped(p.store, PartitionFiltered, result.Filtered); err != nil {
		return 0, 0, err
	}
	return len(records), len(result.Representatives), nil
}

func (p *Pipeline) runGrouping(ctx context.Context, rc *run.Context) (int, int, error) {
	records, malformed, err := docstore.ReadTyped[statute.StatuteRecord](p.store, PartitionDeduped)
	if err != nil {
		return 0, 0, err
	}
	rc.Stats.AddMalformed(malformed)

	groups := grouping.Run(ctx, rc, p.cfg, p.decider, records)

	if err := docstore.ReplaceTyped(p.store, PartitionGroups, groups); err != nil {
		return 0, 0, err
	}
	return len(records), len(groups), nil
}

func (p *Pipeline) runVersioning(ctx context.Context, rc *run.Context) (int, int, error) {
	groups, malformed, err := docstore.ReadTyped[statute.BaseGroup](p.store, PartitionGroups)
	if err != nil {
		return 0, 0, err
	}
	rc.Stats.AddMalformed(malformed)

	// One group is one batch: ordering decisions are sequential inside a
	// group but independent across groups.
	chains := parallelFlatMap(rc, p.cfg.Workers, groups,
		func(group statute.BaseGroup) []statute.VersionedGroup {
			return versioning.Run(ctx, rc, p.decider, []statute.BaseGroup{group}, p.sheet)
		})

	if err := docstore.ReplaceTyped(p.store, PartitionChains, chains); err != nil {
		return 0, 0, err
	}
	return len(groups), len(chains), nil
}

func (p *Pipeline) runSections(ctx context.Context, rc *run.Context) (int, int, error) {
	chains, malformed, err := docstore.ReadTyped[statute.VersionedGroup](p.store, PartitionChains)
	if err != nil {
		return 0, 0, err
	}
	rc.Stats.AddMalformed(malformed)

	aligned := parallelFlatMap(rc, p.cfg.Workers, chains,
		func(chain statute.VersionedGroup) []statute.SectionVersionGroup {
			return sections.Run(ctx, rc, p.cfg, p.decider, []statute.VersionedGroup{chain})
		})

	if err := docstore.ReplaceTyped(p.store, PartitionSections, aligned); err != nil {
		return 0, 0, err
	}
	return len(chains), len(aligned), nil
}

func (p *Pipeline) runActivation(rc *run.Context) (int, int, error) {
	groups, malformed, err := docstore.ReadTyped[statute.SectionVersionGroup](p.store, PartitionSections)
	if err != nil {
		return 0, 0, err
	}
	rc.Stats.AddMalformed(malformed)

	active := parallelFlatMap(rc, p.cfg.Workers, groups,
		func(group statute.SectionVersionGroup) []statute.SectionVersionGroup {
			return activation.Run(rc, p.cfg, []statute.SectionVersionGroup{group})
		})

	if err := docstore.ReplaceTyped(p.store, PartitionActive, active); err != nil {
		return 0, 0, err
	}
	return len(groups), len(active), nil
}
