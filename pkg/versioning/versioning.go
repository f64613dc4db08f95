// Package versioning implements stage 3: ordering each BaseGroup
// chronologically and assigning discrete version labels. Ambiguous adjacent
// orderings go to the oracle; an unavailable or uninterpretable answer keeps
// the existing input order; the stage never blocks on the oracle.
package versioning

import (
	"context"
	"sort"

	"github.com/coolbeans/lexchain/pkg/oracle"
	"github.com/coolbeans/lexchain/pkg/run"
	"github.com/coolbeans/lexchain/pkg/statute"
)

// Run assigns version chains to every group. Labels strictly increase from
// "Original" with no gaps or repeats; single-member groups skip ordering
// entirely.
func Run(ctx context.Context, rc *run.Context, decider oracle.Decider, groups []statute.BaseGroup, sheet *DateSheet) []statute.VersionedGroup {
	if sheet == nil {
		sheet = NewDateSheet()
	}

	out := make([]statute.VersionedGroup, 0, len(groups))
	for i := range groups {
		out = append(out, assignChain(ctx, rc, decider, &groups[i], sheet))
	}
	return out
}

// assignChain orders one group and labels each member by position.
func assignChain(ctx context.Context, rc *run.Context, decider oracle.Decider, group *statute.BaseGroup, sheet *DateSheet) statute.VersionedGroup {
	members := make([]statute.StatuteRecord, len(group.Members))
	copy(members, group.Members)

	// Backfill missing dates from the spreadsheet collaborator before any
	// ordering decision is made.
	for i := range members {
		if _, ok := members[i].Date(); ok {
			continue
		}
		if date, ok := sheet.Lookup(members[i].Name); ok {
			members[i].PromulgationDate = date
			rc.Logger.Debug("backfilled promulgation date",
				"name", members[i].Name, "date", date)
		}
	}

	versioned := statute.VersionedGroup{
		BaseName:         group.BaseName,
		Jurisdiction:     group.Jurisdiction,
		DocumentCategory: group.DocumentCategory,
		DocumentType:     group.DocumentType,
	}

	if len(members) > 1 {
		// Stable chronological sort; unparseable dates sort last.
		sort.SliceStable(members, func(i, j int) bool {
			di, iOK := members[i].Date()
			dj, jOK := members[j].Date()
			return statute.CompareDates(di, iOK, dj, jOK) < 0
		})
		resolveTies(ctx, rc, decider, members)
	}

	for position, member := range members {
		versioned.Versions = append(versioned.Versions, statute.VersionedStatute{
			Record:       member,
			BaseName:     group.BaseName,
			Position:     position,
			VersionLabel: statute.VersionLabel(position),
		})
	}
	return versioned
}

// resolveTies walks adjacent pairs with equal or missing dates and asks the
// oracle for precedence. A declined answer or error keeps input order; an
// explicit "B first" swaps the pair.
func resolveTies(ctx context.Context, rc *run.Context, decider oracle.Decider, members []statute.StatuteRecord) {
	for i := 0; i+1 < len(members); i++ {
		di, iOK := members[i].Date()
		dj, jOK := members[i+1].Date()
		if statute.CompareDates(di, iOK, dj, jOK) != 0 {
			continue
		}

		decision, err := decider.Decide(ctx, precedenceQuery(members[i], members[i+1]))
		if err != nil || decision.Answer == oracle.AnswerDeclined {
			rc.Stats.AddOracleFailed(1)
			continue // structural default: existing input order
		}
		rc.Stats.AddOracleUsed(1)
		if decision.Answer == oracle.AnswerNo {
			members[i], members[i+1] = members[i+1], members[i]
			rc.Logger.Debug("oracle reordered tied versions",
				"first", members[i].Name, "second", members[i+1].Name)
		}
	}
}

func precedenceQuery(a, b statute.StatuteRecord) oracle.Query {
	return oracle.Query{
		Kind: oracle.QuestionPrecedence,
		A:    recordCandidate(a),
		B:    recordCandidate(b),
	}
}

func recordCandidate(r statute.StatuteRecord) oracle.Candidate {
	c := oracle.Candidate{
		Title:        r.Name,
		Jurisdiction: r.Jurisdiction,
		DocumentType: r.DocumentType,
		Date:         r.PromulgationDate,
	}
	if len(r.Sections) > 0 {
		c.Snippet = r.Sections[0].BodyText
	}
	return c
}
