// Package activation implements stage 5: walking each SectionVersionGroup
// chronologically and marking exactly the most recent, non-expired version
// active. Ordinances expire after a configured window; with no dated,
// unexpired version there is no evidence for a preference, so nothing is
// marked active.
package activation

import (
	"time"

	"github.com/coolbeans/lexchain/pkg/config"
	"github.com/coolbeans/lexchain/pkg/run"
	"github.com/coolbeans/lexchain/pkg/statute"
)

// Run computes active status for every group against the run's evaluation
// time. Input groups are not mutated; the returned slice holds fresh copies.
func Run(rc *run.Context, cfg config.Config, groups []statute.SectionVersionGroup) []statute.SectionVersionGroup {
	window := time.Duration(cfg.OrdinanceWindowDays) * 24 * time.Hour

	out := make([]statute.SectionVersionGroup, 0, len(groups))
	for i := range groups {
		out = append(out, computeGroup(rc, groups[i], rc.EvalTime, window))
	}
	return out
}

// computeGroup copies one group with status and active flags resolved.
func computeGroup(rc *run.Context, group statute.SectionVersionGroup, evalTime time.Time, window time.Duration) statute.SectionVersionGroup {
	versions := make([]statute.SectionVersion, len(group.Versions))
	copy(versions, group.Versions)
	group.Versions = versions

	// Single pass to find the most recent non-expired dated version.
	activeIdx := -1
	var activeDate time.Time
	for i := range versions {
		versions[i].IsActive = false
		date, ok := statute.ParseFlexibleDate(versions[i].PromulgationDate)
		if !ok {
			continue
		}
		if expired(versions[i], date, evalTime, window) {
			versions[i].Status = statute.StatusExpired
			continue
		}
		if activeIdx == -1 || date.After(activeDate) || date.Equal(activeDate) {
			// On equal dates the later entry wins: it is the later
			// chronological position in the chain.
			activeIdx = i
			activeDate = date
		}
	}

	if activeIdx >= 0 {
		versions[activeIdx].IsActive = true
		versions[activeIdx].Status = statute.StatusCurrent
		rc.Stats.AddActive(1)
		rc.Stats.AddInactive(len(versions) - 1)
	} else {
		// All versions expired or undated: no preference without evidence.
		rc.Stats.AddInactive(len(versions))
		rc.Logger.Debug("no active version",
			"statute", group.BaseStatuteName, "section", group.SectionNumber)
	}

	for i := range versions {
		if i != activeIdx && versions[i].Status == statute.StatusCurrent {
			versions[i].Status = statute.StatusSuperseded
		}
	}
	return group
}

// expired reports whether a version is an ordinance older than the
// expiration window relative to evaluation time.
func expired(v statute.SectionVersion, date, evalTime time.Time, window time.Duration) bool {
	return v.IsOrdinance && evalTime.Sub(date) > window
}
