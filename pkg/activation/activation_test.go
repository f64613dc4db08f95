package activation

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/coolbeans/lexchain/pkg/config"
	"github.com/coolbeans/lexchain/pkg/run"
	"github.com/coolbeans/lexchain/pkg/statute"
)

func testRunContext(evalTime time.Time) *run.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return run.New(logger, evalTime)
}

func sectionGroup(versions ...statute.SectionVersion) statute.SectionVersionGroup {
	return statute.SectionVersionGroup{
		BaseStatuteName: "anti terrorism",
		Jurisdiction:    "Federal",
		DocumentType:    "Act",
		SectionNumber:   "6",
		Versions:        versions,
	}
}

func v(id, date string, ordinance bool) statute.SectionVersion {
	return statute.SectionVersion{
		VersionID:        id,
		PromulgationDate: date,
		Status:           statute.StatusSuperseded,
		IsOrdinance:      ordinance,
	}
}

func activeIDs(group statute.SectionVersionGroup) []string {
	var ids []string
	for _, version := range group.Versions {
		if version.IsActive {
			ids = append(ids, version.VersionID)
		}
	}
	return ids
}

func TestMostRecentVersionActive(t *testing.T) {
	evalTime := time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)
	rc := testRunContext(evalTime)
	groups := []statute.SectionVersionGroup{sectionGroup(
		v("a", "1997-08-20", false),
		v("b", "1999-03-05", false),
		v("c", "2004-11-12", false),
	)}

	out := Run(rc, config.Default(), groups)

	ids := activeIDs(out[0])
	if len(ids) != 1 || ids[0] != "c" {
		t.Fatalf("Expected only c active, got %v", ids)
	}
	if out[0].Versions[2].Status != statute.StatusCurrent {
		t.Errorf("Expected active version current, got %s", out[0].Versions[2].Status)
	}
	if out[0].Versions[0].Status != statute.StatusSuperseded {
		t.Errorf("Expected earlier version superseded, got %s", out[0].Versions[0].Status)
	}
}

func TestExpiredOrdinanceSkipped(t *testing.T) {
	// The newest version is an ordinance promulgated 200 days before
	// evaluation time, past the 180-day window: activity falls back to the
	// most recent act.
	evalTime := time.Date(2003, 3, 2, 0, 0, 0, 0, time.UTC)
	rc := testRunContext(evalTime)
	groups := []statute.SectionVersionGroup{sectionGroup(
		v("act", "1999-03-05", false),
		v("ord", "2002-08-14", true),
	)}

	out := Run(rc, config.Default(), groups)

	ids := activeIDs(out[0])
	if len(ids) != 1 || ids[0] != "act" {
		t.Fatalf("Expected the act active, got %v", ids)
	}
	if out[0].Versions[1].Status != statute.StatusExpired {
		t.Errorf("Expected expired ordinance status, got %s", out[0].Versions[1].Status)
	}
}

func TestExpiredMiddleOrdinanceInThreeVersionChain(t *testing.T) {
	// Three chronological versions; the middle ordinance is 200 days old at
	// evaluation time and the last version is the most recent act.
	evalTime := time.Date(2003, 3, 2, 0, 0, 0, 0, time.UTC)
	rc := testRunContext(evalTime)
	groups := []statute.SectionVersionGroup{sectionGroup(
		v("first", "1997-08-20", false),
		v("middle", "2002-08-14", true),
		v("last", "2003-01-15", false),
	)}

	out := Run(rc, config.Default(), groups)

	ids := activeIDs(out[0])
	if len(ids) != 1 || ids[0] != "last" {
		t.Fatalf("Expected the latest act active, got %v", ids)
	}
	if out[0].Versions[1].Status != statute.StatusExpired {
		t.Errorf("Expected middle ordinance expired, got %s", out[0].Versions[1].Status)
	}
	if out[0].Versions[1].IsActive {
		t.Error("Expected middle ordinance inactive")
	}
	if out[0].Versions[0].Status != statute.StatusSuperseded {
		t.Errorf("Expected earliest version superseded, got %s", out[0].Versions[0].Status)
	}
}

func TestFreshOrdinanceStaysActive(t *testing.T) {
	evalTime := time.Date(2002, 10, 1, 0, 0, 0, 0, time.UTC)
	rc := testRunContext(evalTime)
	groups := []statute.SectionVersionGroup{sectionGroup(
		v("act", "1999-03-05", false),
		v("ord", "2002-08-14", true),
	)}

	out := Run(rc, config.Default(), groups)

	ids := activeIDs(out[0])
	if len(ids) != 1 || ids[0] != "ord" {
		t.Fatalf("Expected the ordinance active within its window, got %v", ids)
	}
}

func TestNoEligibleVersionMeansNoneActive(t *testing.T) {
	evalTime := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	rc := testRunContext(evalTime)
	groups := []statute.SectionVersionGroup{
		sectionGroup(v("undated", "", false)),
		sectionGroup(v("expired", "2002-08-14", true)),
	}

	out := Run(rc, config.Default(), groups)

	for _, group := range out {
		if ids := activeIDs(group); len(ids) != 0 {
			t.Errorf("Expected no active versions, got %v", ids)
		}
	}
	stats := rc.Stats.Snapshot()
	if stats.Active != 0 || stats.Inactive != 2 {
		t.Errorf("Expected 0 active and 2 inactive, got %d and %d", stats.Active, stats.Inactive)
	}
}

func TestEqualDatesLaterPositionWins(t *testing.T) {
	evalTime := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	rc := testRunContext(evalTime)
	groups := []statute.SectionVersionGroup{sectionGroup(
		v("first", "2017-10-02", false),
		v("second", "2017-10-02", false),
	)}

	out := Run(rc, config.Default(), groups)

	ids := activeIDs(out[0])
	if len(ids) != 1 || ids[0] != "second" {
		t.Fatalf("Expected the later chain position active on equal dates, got %v", ids)
	}
}

func TestStaleCurrentDemoted(t *testing.T) {
	evalTime := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	rc := testRunContext(evalTime)
	stale := v("stale", "", false)
	stale.Status = statute.StatusCurrent
	groups := []statute.SectionVersionGroup{sectionGroup(
		v("dated", "1999-03-05", false),
		stale,
	)}

	out := Run(rc, config.Default(), groups)

	if out[0].Versions[1].Status != statute.StatusSuperseded {
		t.Errorf("Expected undated current version demoted, got %s", out[0].Versions[1].Status)
	}
	ids := activeIDs(out[0])
	if len(ids) != 1 || ids[0] != "dated" {
		t.Fatalf("Expected the dated version active, got %v", ids)
	}
}

func TestInputGroupsNotMutated(t *testing.T) {
	evalTime := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	rc := testRunContext(evalTime)
	groups := []statute.SectionVersionGroup{sectionGroup(v("a", "1999-03-05", false))}

	Run(rc, config.Default(), groups)

	if groups[0].Versions[0].IsActive {
		t.Error("Expected input versions untouched")
	}
	if groups[0].Versions[0].Status != statute.StatusSuperseded {
		t.Errorf("Expected input status untouched, got %s", groups[0].Versions[0].Status)
	}
}
