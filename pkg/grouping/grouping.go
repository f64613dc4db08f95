// Package grouping implements stage 2: deriving base names, partitioning the
// deduplicated records by (category, jurisdiction, baseName, documentType),
// and conditionally merging adjacent partitions. Merges fail closed: without
// an affirmative oracle answer the engine over-splits rather than risk an
// incorrect merge.
package grouping

import (
	"context"
	"sort"

	"github.com/coolbeans/lexchain/pkg/config"
	"github.com/coolbeans/lexchain/pkg/oracle"
	"github.com/coolbeans/lexchain/pkg/run"
	"github.com/coolbeans/lexchain/pkg/similarity"
	"github.com/coolbeans/lexchain/pkg/statute"
)

// Run partitions records into BaseGroups. Every input record appears in
// exactly one output group; members are sorted chronologically with
// undated records last.
func Run(ctx context.Context, rc *run.Context, cfg config.Config, decider oracle.Decider, records []statute.StatuteRecord) []statute.BaseGroup {
	groups := exactPartition(records)
	groups = mergeAdjacent(ctx, rc, cfg, decider, groups)

	for i := range groups {
		sortChronological(groups[i].Members)
	}

	// Deterministic output order: hierarchy rank, then key fields.
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.DocumentCategory != b.DocumentCategory {
			return a.DocumentCategory.Rank() < b.DocumentCategory.Rank()
		}
		if a.Jurisdiction != b.Jurisdiction {
			return a.Jurisdiction < b.Jurisdiction
		}
		if a.BaseName != b.BaseName {
			return a.BaseName < b.BaseName
		}
		return a.DocumentType < b.DocumentType
	})
	return groups
}

// exactPartition buckets records by the exact grouping key, attaching the
// derived base name to each stage-local record copy.
func exactPartition(records []statute.StatuteRecord) []statute.BaseGroup {
	index := make(map[statute.GroupKey]int)
	var groups []statute.BaseGroup

	for _, record := range records {
		record.BaseName = similarity.BaseName(record.Name)
		key := statute.GroupKey{
			Category:     statute.CategoryOf(record.DocumentType),
			Jurisdiction: record.Jurisdiction,
			BaseName:     record.BaseName,
			DocumentType: record.DocumentType,
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, statute.BaseGroup{
				BaseName:         key.BaseName,
				Jurisdiction:     key.Jurisdiction,
				DocumentCategory: key.Category,
				DocumentType:     key.DocumentType,
			})
		}
		groups[i].Members = append(groups[i].Members, record)
	}
	return groups
}

// mergeAdjacent attempts merges between neighboring partitions that share
// category, jurisdiction, and document type. A merge requires name
// similarity at or above the threshold AND an affirmative oracle answer;
// anything less keeps the partitions separate.
func mergeAdjacent(ctx context.Context, rc *run.Context, cfg config.Config, decider oracle.Decider, groups []statute.BaseGroup) []statute.BaseGroup {
	// Neighbors are defined within each (category, jurisdiction, type)
	// family, sorted by base name so near-identical names are adjacent.
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.DocumentCategory != b.DocumentCategory {
			return a.DocumentCategory < b.DocumentCategory
		}
		if a.Jurisdiction != b.Jurisdiction {
			return a.Jurisdiction < b.Jurisdiction
		}
		if a.DocumentType != b.DocumentType {
			return a.DocumentType < b.DocumentType
		}
		return a.BaseName < b.BaseName
	})

	merged := make([]statute.BaseGroup, 0, len(groups))
	for _, group := range groups {
		if len(merged) == 0 {
			merged = append(merged, group)
			continue
		}
		prev := &merged[len(merged)-1]
		if shouldMerge(ctx, rc, cfg, decider, prev, &group) {
			prev.Members = append(prev.Members, group.Members...)
			rc.Stats.AddMerged(1)
			rc.Logger.Debug("merged base groups",
				"into", prev.BaseName, "from", group.BaseName,
				"jurisdiction", group.Jurisdiction)
		} else {
			merged = append(merged, group)
		}
	}
	return merged
}

// shouldMerge applies the three merge gates in order: structural match,
// similarity threshold, oracle affirmation.
func shouldMerge(ctx context.Context, rc *run.Context, cfg config.Config, decider oracle.Decider, a, b *statute.BaseGroup) bool {
	if a.Jurisdiction != b.Jurisdiction ||
		a.DocumentType != b.DocumentType ||
		a.DocumentCategory != b.DocumentCategory {
		return false
	}
	if a.BaseName == b.BaseName {
		return true
	}

	// Generic or too-short base names are never merge-eligible, whatever
	// their similarity score.
	if similarity.IsGenericBase(a.BaseName, cfg.MinBaseNameLength, cfg.GenericBaseNames) ||
		similarity.IsGenericBase(b.BaseName, cfg.MinBaseNameLength, cfg.GenericBaseNames) {
		return false
	}

	score := similarity.Ratio(a.BaseName, b.BaseName)
	if score < cfg.MergeThreshold {
		rc.Stats.AddKeptSeparate(1)
		return false
	}

	decision, err := decider.Decide(ctx, equivalenceQuery(a, b))
	if err != nil || decision.Answer == oracle.AnswerDeclined {
		rc.Stats.AddOracleFailed(1)
		rc.Stats.AddKeptSeparate(1)
		rc.Logger.Debug("oracle unavailable for merge; keeping separate",
			"a", a.BaseName, "b", b.BaseName)
		return false
	}

	rc.Stats.AddOracleUsed(1)
	if decision.Answer != oracle.AnswerYes {
		rc.Stats.AddKeptSeparate(1)
		return false
	}
	return true
}

func equivalenceQuery(a, b *statute.BaseGroup) oracle.Query {
	return oracle.Query{
		Kind: oracle.QuestionEquivalence,
		A:    groupCandidate(a),
		B:    groupCandidate(b),
	}
}

// groupCandidate describes a group to the oracle via its first member.
func groupCandidate(g *statute.BaseGroup) oracle.Candidate {
	c := oracle.Candidate{
		Title:        g.BaseName,
		Jurisdiction: g.Jurisdiction,
		DocumentType: g.DocumentType,
	}
	if len(g.Members) > 0 {
		c.Title = g.Members[0].Name
		c.Date = g.Members[0].PromulgationDate
		if len(g.Members[0].Sections) > 0 {
			c.Snippet = g.Members[0].Sections[0].BodyText
		}
	}
	return c
}

// sortChronological orders members by parsed date, stably, with unparseable
// dates last.
func sortChronological(members []statute.StatuteRecord) {
	sort.SliceStable(members, func(i, j int) bool {
		di, iOK := members[i].Date()
		dj, jOK := members[j].Date()
		return statute.CompareDates(di, iOK, dj, jOK) < 0
	})
}
