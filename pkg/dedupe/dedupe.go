// Package dedupe implements stage 1: partitioning the ingested record set
// into duplicate-equivalence classes and emitting one representative per
// class. Clustering is transitive over pairwise content similarity within
// normalized-name buckets.
package dedupe

import (
	"sort"
	"strings"

	"github.com/coolbeans/lexchain/pkg/config"
	"github.com/coolbeans/lexchain/pkg/run"
	"github.com/coolbeans/lexchain/pkg/similarity"
	"github.com/coolbeans/lexchain/pkg/statute"
)

// FilterReason explains why a record was excluded before clustering.
type FilterReason string

const (
	// FilterForeignOther marks "Other"-jurisdiction records naming India.
	FilterForeignOther FilterReason = "other-jurisdiction-india"

	// FilterPreCutoff marks records whose sole parseable year predates the
	// configured cutoff.
	FilterPreCutoff FilterReason = "pre-cutoff-year"
)

// FilteredRecord pairs an excluded record with its reason, for the audit log.
type FilteredRecord struct {
	Record statute.StatuteRecord `json:"record"`
	Reason FilterReason          `json:"reason"`
}

// Cluster is one duplicate-equivalence class: the representative plus the IDs
// of the duplicates it absorbed.
type Cluster struct {
	Representative statute.StatuteRecord `json:"representative"`
	DuplicateIDs   []string              `json:"duplicate_ids,omitempty"`
}

// Result is the stage-1 output partition.
type Result struct {
	Representatives []statute.StatuteRecord `json:"representatives"`
	Clusters        []Cluster               `json:"clusters"`
	Filtered        []FilteredRecord        `json:"filtered"`
}

// Run deduplicates the full record set. Every input record lands in exactly
// one cluster or the filtered list; representatives preserve input order of
// their cluster's first member.
func Run(rc *run.Context, cfg config.Config, records []statute.StatuteRecord) Result {
	kept, filtered := prefilter(rc, cfg, records)

	// Bucket by normalized name so only plausible duplicates are compared.
	buckets := make(map[string][]statute.StatuteRecord)
	order := make([]string, 0)
	for _, record := range kept {
		key := similarity.NormalizeName(record.Name)
		if _, seen := buckets[key]; !seen {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], record)
	}

	result := Result{Filtered: filtered}
	for _, key := range order {
		for _, cluster := range clusterBucket(rc, cfg, buckets[key]) {
			result.Clusters = append(result.Clusters, cluster)
			result.Representatives = append(result.Representatives, cluster.Representative)
		}
	}
	return result
}

// prefilter drops records excluded from resolution entirely: foreign records
// misfiled under "Other", and pre-cutoff statutes. Drops are logged with
// their reason and counted, never silently discarded.
func prefilter(rc *run.Context, cfg config.Config, records []statute.StatuteRecord) ([]statute.StatuteRecord, []FilteredRecord) {
	kept := make([]statute.StatuteRecord, 0, len(records))
	var filtered []FilteredRecord

	for _, record := range records {
		if reason, drop := filterReason(cfg, record); drop {
			rc.Logger.Debug("filtered record before deduplication",
				"name", record.Name, "reason", string(reason))
			filtered = append(filtered, FilteredRecord{Record: record, Reason: reason})
			continue
		}
		kept = append(kept, record)
	}
	rc.Stats.AddFiltered(len(filtered))
	return kept, filtered
}

func filterReason(cfg config.Config, record statute.StatuteRecord) (FilterReason, bool) {
	if strings.EqualFold(record.Jurisdiction, "Other") {
		lowered := strings.ToLower(record.Name)
		if strings.Contains(lowered, "india") {
			return FilterForeignOther, true
		}
	}
	if year := soleYear(record); year != 0 && year < cfg.CutoffYear {
		return FilterPreCutoff, true
	}
	return "", false
}

// soleYear returns the record's only evident year: the promulgation date's
// year when it parses, otherwise a year embedded in the name. 0 means no
// year evidence, which never triggers the cutoff filter.
func soleYear(record statute.StatuteRecord) int {
	if t, ok := record.Date(); ok {
		return t.Year()
	}
	return statute.ExtractYear(record.Name)
}

// clusterBucket transitively clusters one bucket: each unclustered record
// seeds a class and absorbs every later record scoring at or above the
// threshold against it. Absorbed records are not re-compared.
func clusterBucket(rc *run.Context, cfg config.Config, bucket []statute.StatuteRecord) []Cluster {
	clustered := make([]bool, len(bucket))
	var clusters []Cluster

	for i := range bucket {
		if clustered[i] {
			continue
		}
		clustered[i] = true
		members := []statute.StatuteRecord{bucket[i]}

		for j := i + 1; j < len(bucket); j++ {
			if clustered[j] {
				continue
			}
			score := similarity.Ratio(bucket[i].ComparableText(), bucket[j].ComparableText())
			if score >= cfg.DedupeThreshold {
				clustered[j] = true
				members = append(members, bucket[j])
				rc.Logger.Debug("merged duplicate record",
					"kept", bucket[i].Name, "dropped", bucket[j].Name, "score", score)
			} else {
				rc.Stats.AddKeptSeparate(1)
			}
		}

		cluster := buildCluster(members)
		if len(members) > 1 {
			rc.Stats.AddMerged(len(members) - 1)
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// buildCluster picks the representative: the member with the most recent
// parseable date. Undated members are least recent and never chosen over a
// dated one; a full tie keeps the earliest input position.
func buildCluster(members []statute.StatuteRecord) Cluster {
	best := 0
	bestDate, bestOK := members[best].Date()
	for i := 1; i < len(members); i++ {
		date, ok := members[i].Date()
		// A dated member always beats an undated one; among dated members
		// the strictly later date wins, so ties keep input position.
		if (ok && !bestOK) || (ok && bestOK && date.After(bestDate)) {
			best = i
			bestDate, bestOK = date, ok
		}
	}

	cluster := Cluster{Representative: members[best]}
	for i, member := range members {
		if i != best {
			cluster.DuplicateIDs = append(cluster.DuplicateIDs, member.ID)
		}
	}
	sort.Strings(cluster.DuplicateIDs)
	return cluster
}
