package grouping

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/coolbeans/lexchain/pkg/config"
	"github.com/coolbeans/lexchain/pkg/oracle"
	"github.com/coolbeans/lexchain/pkg/run"
	"github.com/coolbeans/lexchain/pkg/statute"
)

func testRunContext() *run.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return run.New(logger, time.Time{})
}

func record(id, name, jurisdiction, docType, date string) statute.StatuteRecord {
	return statute.StatuteRecord{
		ID:               id,
		Name:             name,
		Jurisdiction:     jurisdiction,
		DocumentType:     docType,
		PromulgationDate: date,
		Sections: []statute.SectionRecord{
			{SectionNumber: "1", BodyText: "Short title and commencement."},
		},
	}
}

func alwaysYes() oracle.FuncDecider {
	return oracle.FuncDecider(func(ctx context.Context, q oracle.Query) (oracle.Decision, error) {
		return oracle.Decision{Answer: oracle.AnswerYes, Confidence: 0.9}, nil
	})
}

func TestAmendmentSharesBaseName(t *testing.T) {
	rc := testRunContext()
	records := []statute.StatuteRecord{
		record("orig", "Anti-Terrorism Act, 1997", "Federal", "Act", "1997-08-20"),
		record("amd", "Anti-Terrorism (Amendment) Act, 1999", "Federal", "Act", "1999-03-05"),
	}

	groups := Run(context.Background(), rc, config.Default(), oracle.HeuristicDecider{}, records)

	if len(groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(groups))
	}
	if groups[0].BaseName != "anti terrorism" {
		t.Errorf("Expected base name 'anti terrorism', got %q", groups[0].BaseName)
	}
	if len(groups[0].Members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(groups[0].Members))
	}
	if groups[0].Members[0].ID != "orig" || groups[0].Members[1].ID != "amd" {
		t.Errorf("Expected chronological member order orig,amd, got %s,%s",
			groups[0].Members[0].ID, groups[0].Members[1].ID)
	}
}

func TestDeclinedOracleKeepsPartitionsSeparate(t *testing.T) {
	rc := testRunContext()
	records := []statute.StatuteRecord{
		record("a", "Punjab Local Government Act", "Punjab", "Act", "2013-08-23"),
		record("b", "Punjab Local Governments Act", "Punjab", "Act", "2019-05-04"),
	}

	groups := Run(context.Background(), rc, config.Default(), oracle.HeuristicDecider{}, records)

	if len(groups) != 2 {
		t.Fatalf("Expected declined oracle to keep 2 groups, got %d", len(groups))
	}
	stats := rc.Stats.Snapshot()
	if stats.Merged != 0 {
		t.Errorf("Expected 0 merges, got %d", stats.Merged)
	}
	if stats.OracleFailed == 0 {
		t.Error("Expected the declined consultation to be counted")
	}
}

func TestAffirmativeOracleMergesSimilarBases(t *testing.T) {
	rc := testRunContext()
	records := []statute.StatuteRecord{
		record("a", "Punjab Local Government Act", "Punjab", "Act", "2013-08-23"),
		record("b", "Punjab Local Governments Act", "Punjab", "Act", "2019-05-04"),
	}

	groups := Run(context.Background(), rc, config.Default(), alwaysYes(), records)

	if len(groups) != 1 {
		t.Fatalf("Expected 1 merged group, got %d", len(groups))
	}
	if len(groups[0].Members) != 2 {
		t.Errorf("Expected merged group to hold both records, got %d", len(groups[0].Members))
	}
	if rc.Stats.Snapshot().Merged != 1 {
		t.Errorf("Expected 1 merge recorded, got %d", rc.Stats.Snapshot().Merged)
	}
}

func TestShortBaseNeverMerges(t *testing.T) {
	rc := testRunContext()
	// "tea" is below the minimum base length; even a willing oracle cannot
	// merge it with a near-identical neighbor.
	records := []statute.StatuteRecord{
		record("a", "Tea Act", "Federal", "Act", "1963-01-01"),
		record("b", "Teas Act", "Federal", "Act", "1970-01-01"),
	}

	groups := Run(context.Background(), rc, config.Default(), alwaysYes(), records)

	if len(groups) != 2 {
		t.Fatalf("Expected short bases to stay separate, got %d groups", len(groups))
	}
	if rc.Stats.Snapshot().OracleUsed != 0 {
		t.Error("Expected no oracle consultation for an ineligible base")
	}
}

func TestGenericBaseNeverMerges(t *testing.T) {
	rc := testRunContext()
	records := []statute.StatuteRecord{
		record("a", "Finance Act", "Federal", "Act", "2020-06-30"),
		record("b", "Financing Act", "Federal", "Act", "2021-06-30"),
	}

	groups := Run(context.Background(), rc, config.Default(), alwaysYes(), records)

	if len(groups) != 2 {
		t.Fatalf("Expected generic base to stay separate, got %d groups", len(groups))
	}
}

func TestStructuralMismatchNeverMerges(t *testing.T) {
	rc := testRunContext()
	records := []statute.StatuteRecord{
		record("a", "Local Government Act", "Punjab", "Act", "2013-08-23"),
		record("b", "Local Government Act", "Sindh", "Act", "2013-08-23"),
	}

	groups := Run(context.Background(), rc, config.Default(), alwaysYes(), records)

	if len(groups) != 2 {
		t.Fatalf("Expected different jurisdictions to stay separate, got %d groups", len(groups))
	}
}

func TestUndatedMembersSortLast(t *testing.T) {
	rc := testRunContext()
	records := []statute.StatuteRecord{
		record("undated", "Evidence Act", "Federal", "Act", ""),
		record("late", "Evidence Act", "Federal", "Act", "1984-10-28"),
		record("early", "Evidence Act", "Federal", "Act", "1972-01-01"),
	}

	groups := Run(context.Background(), rc, config.Default(), oracle.HeuristicDecider{}, records)

	if len(groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(groups))
	}
	got := []string{groups[0].Members[0].ID, groups[0].Members[1].ID, groups[0].Members[2].ID}
	want := []string{"early", "late", "undated"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected member order %v, got %v", want, got)
		}
	}
}

func TestEveryRecordInExactlyOneGroup(t *testing.T) {
	rc := testRunContext()
	records := []statute.StatuteRecord{
		record("a", "Anti-Terrorism Act, 1997", "Federal", "Act", "1997-08-20"),
		record("b", "Anti-Terrorism (Amendment) Act, 1999", "Federal", "Act", "1999-03-05"),
		record("c", "Police Order", "Punjab", "Order", "2002-08-14"),
		record("d", "Income Tax Ordinance", "Federal", "Ordinance", "2001-09-13"),
	}

	groups := Run(context.Background(), rc, config.Default(), oracle.HeuristicDecider{}, records)

	seen := make(map[string]int)
	for _, group := range groups {
		for _, member := range group.Members {
			seen[member.ID]++
		}
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if seen[id] != 1 {
			t.Errorf("Record %s appears %d times, expected exactly 1", id, seen[id])
		}
	}
}
