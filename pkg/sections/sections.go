// Package sections implements stage 4: exploding each versioned statute into
// its sections, then re-grouping sections across versions that represent the
// same section over time. Alignment combines section-number and body
// similarity; pairs in the ambiguous band below the body threshold may be
// confirmed by the oracle, and unmatched sections become single-version
// groups.
package sections

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/coolbeans/lexchain/pkg/config"
	"github.com/coolbeans/lexchain/pkg/oracle"
	"github.com/coolbeans/lexchain/pkg/run"
	"github.com/coolbeans/lexchain/pkg/similarity"
	"github.com/coolbeans/lexchain/pkg/statute"
)

// candidate is one section instance tagged with its parent's identity and
// chronological position.
type candidate struct {
	section  statute.SectionRecord
	position int
	label    string
	date     string
	year     int
	docType  string
}

// Run aligns sections for every versioned group. Each emitted
// SectionVersionGroup holds that section's timeline in chronological order;
// active status is left to stage 5.
func Run(ctx context.Context, rc *run.Context, cfg config.Config, decider oracle.Decider, groups []statute.VersionedGroup) []statute.SectionVersionGroup {
	var out []statute.SectionVersionGroup
	for i := range groups {
		out = append(out, alignGroup(ctx, rc, cfg, decider, &groups[i])...)
	}
	return out
}

// alignGroup explodes one versioned group and clusters its sections.
func alignGroup(ctx context.Context, rc *run.Context, cfg config.Config, decider oracle.Decider, group *statute.VersionedGroup) []statute.SectionVersionGroup {
	candidates := explode(rc, group)

	// Greedy transitive clustering in chronological order; a seed absorbs
	// later candidates that match it, one per version position at most.
	grouped := make([]bool, len(candidates))
	var result []statute.SectionVersionGroup

	for i := range candidates {
		if grouped[i] {
			continue
		}
		grouped[i] = true
		members := []candidate{candidates[i]}
		positions := map[int]bool{candidates[i].position: true}

		for j := i + 1; j < len(candidates); j++ {
			if grouped[j] || positions[candidates[j].position] {
				continue
			}
			if matches(ctx, rc, cfg, decider, group, candidates[i], candidates[j]) {
				grouped[j] = true
				positions[candidates[j].position] = true
				members = append(members, candidates[j])
				rc.Stats.AddMerged(1)
			}
		}

		result = append(result, buildGroup(group, members))
	}
	return result
}

// explode flattens every version's sections into tagged candidates. Sections
// whose parent record disagrees with the group's jurisdiction or document
// type are excluded, not merged.
func explode(rc *run.Context, group *statute.VersionedGroup) []candidate {
	var candidates []candidate
	excluded := 0

	for _, version := range group.Versions {
		if version.Record.Jurisdiction != group.Jurisdiction ||
			version.Record.DocumentType != group.DocumentType {
			excluded += len(version.Record.Sections)
			rc.Logger.Debug("excluded sections with mismatched parent",
				"statute", version.Record.Name,
				"jurisdiction", version.Record.Jurisdiction,
				"document_type", version.Record.DocumentType)
			continue
		}
		for _, section := range version.Record.Sections {
			candidates = append(candidates, candidate{
				section:  section,
				position: version.Position,
				label:    version.VersionLabel,
				date:     version.Record.PromulgationDate,
				year:     version.Record.Year(),
				docType:  version.Record.DocumentType,
			})
		}
	}

	if excluded > 0 {
		rc.Stats.AddFiltered(excluded)
	}

	// Chronological, then section order within a version.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].position < candidates[j].position
	})
	return candidates
}

// matches decides whether two candidates are the same section across
// versions: number similarity at or above its threshold, and body similarity
// at or above its threshold, or within the ambiguous band and confirmed by
// the oracle.
func matches(ctx context.Context, rc *run.Context, cfg config.Config, decider oracle.Decider, group *statute.VersionedGroup, a, b candidate) bool {
	numberScore := similarity.Ratio(
		similarity.NormalizeName(a.section.SectionNumber),
		similarity.NormalizeName(b.section.SectionNumber))
	if numberScore < cfg.SectionNumberThreshold {
		return false
	}

	bodyScore := similarity.Ratio(a.section.BodyText, b.section.BodyText)
	if bodyScore >= cfg.SectionBodyThreshold {
		return true
	}
	if bodyScore < cfg.SectionBodyThreshold-cfg.AmbiguousBand {
		rc.Stats.AddKeptSeparate(1)
		return false
	}

	// Ambiguous band: only an affirmative oracle answer merges.
	decision, err := decider.Decide(ctx, sectionQuery(group, a, b))
	if err != nil || decision.Answer == oracle.AnswerDeclined {
		rc.Stats.AddOracleFailed(1)
		rc.Stats.AddKeptSeparate(1)
		return false
	}
	rc.Stats.AddOracleUsed(1)
	if decision.Answer != oracle.AnswerYes {
		rc.Stats.AddKeptSeparate(1)
		return false
	}
	return true
}

func sectionQuery(group *statute.VersionedGroup, a, b candidate) oracle.Query {
	return oracle.Query{
		Kind: oracle.QuestionSectionMatch,
		A:    sectionCandidate(group, a),
		B:    sectionCandidate(group, b),
	}
}

func sectionCandidate(group *statute.VersionedGroup, c candidate) oracle.Candidate {
	return oracle.Candidate{
		Title:        group.BaseName + " s. " + c.section.SectionNumber,
		Snippet:      c.section.BodyText,
		Jurisdiction: group.Jurisdiction,
		DocumentType: c.docType,
		Date:         c.date,
	}
}

// buildGroup assembles the SectionVersionGroup for one cluster. Members are
// already in chronological order; the latest is "current" and earlier ones
// "superseded". Stage 5 revisits status and active flags.
func buildGroup(group *statute.VersionedGroup, members []candidate) statute.SectionVersionGroup {
	svg := statute.SectionVersionGroup{
		BaseStatuteName: group.BaseName,
		Jurisdiction:    group.Jurisdiction,
		DocumentType:    group.DocumentType,
		SectionNumber:   members[0].section.SectionNumber,
		Definition:      members[0].section.Title,
	}

	for i, member := range members {
		status := statute.StatusSuperseded
		if i == len(members)-1 {
			status = statute.StatusCurrent
		}
		svg.Versions = append(svg.Versions, statute.SectionVersion{
			VersionID:        versionID(group, member),
			Year:             member.year,
			PromulgationDate: member.date,
			Status:           status,
			BodyText:         member.section.BodyText,
			IsOrdinance:      statute.IsOrdinanceType(member.docType),
		})
	}
	return svg
}

// versionID derives a stable name-based UUID for a section version, so
// re-running the stage on unchanged input reproduces identical output.
func versionID(group *statute.VersionedGroup, c candidate) string {
	name := group.BaseName + "|" + group.Jurisdiction + "|" + group.DocumentType +
		"|" + c.section.SectionNumber + "|" + c.label
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
