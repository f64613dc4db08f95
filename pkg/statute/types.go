// Package statute provides the core domain types for statute identity
// resolution: ingested records, base groups, version chains, and
// cross-version section groups.
package statute

import (
	"time"
)

// StatuteRecord is a single ingested statute document. Records are immutable
// once ingested; later stages copy them into new entities rather than editing
// in place. BaseName is the only derived field, attached by the grouping
// stage on its own copy.
type StatuteRecord struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	BaseName         string          `json:"base_name,omitempty"`
	Jurisdiction     string          `json:"jurisdiction"`
	DocumentType     string          `json:"document_type"`
	PromulgationDate string          `json:"promulgation_date,omitempty"`
	Sections         []SectionRecord `json:"sections,omitempty"`
	ContentDigest    string          `json:"content_digest,omitempty"`
}

// SectionRecord is one section of a statute. Section numbers are unique only
// within their parent record.
type SectionRecord struct {
	SectionNumber string `json:"section_number"`
	Title         string `json:"title,omitempty"`
	BodyText      string `json:"body_text,omitempty"`
}

// BaseGroup is a set of StatuteRecords judged to be successive versions of
// the same law. Members share jurisdiction and document type; no record
// belongs to two groups.
type BaseGroup struct {
	BaseName         string          `json:"base_name"`
	Jurisdiction     string          `json:"jurisdiction"`
	DocumentCategory Category        `json:"document_category"`
	DocumentType     string          `json:"document_type"`
	Members          []StatuteRecord `json:"members"`
}

// Key returns the exact partition key for the group.
func (g *BaseGroup) Key() GroupKey {
	return GroupKey{
		Category:     g.DocumentCategory,
		Jurisdiction: g.Jurisdiction,
		BaseName:     g.BaseName,
		DocumentType: g.DocumentType,
	}
}

// GroupKey is the exact partition key of the base-name grouping stage.
type GroupKey struct {
	Category     Category `json:"category"`
	Jurisdiction string   `json:"jurisdiction"`
	BaseName     string   `json:"base_name"`
	DocumentType string   `json:"document_type"`
}

// VersionedStatute is a StatuteRecord placed at a chronological position
// within its BaseGroup and tagged with a version label.
type VersionedStatute struct {
	Record       StatuteRecord `json:"record"`
	BaseName     string        `json:"base_name"`
	Position     int           `json:"position"`
	VersionLabel string        `json:"version_label"`
}

// VersionedGroup is a BaseGroup after version-chain assignment: members in
// strict chronological order, each carrying its label.
type VersionedGroup struct {
	BaseName         string             `json:"base_name"`
	Jurisdiction     string             `json:"jurisdiction"`
	DocumentCategory Category           `json:"document_category"`
	DocumentType     string             `json:"document_type"`
	Versions         []VersionedStatute `json:"versions"`
}

// SectionVersion is one version of a section within a SectionVersionGroup.
type SectionVersion struct {
	VersionID        string `json:"version_id"`
	Year             int    `json:"year,omitempty"`
	PromulgationDate string `json:"promulgation_date,omitempty"`
	Status           string `json:"status"`
	BodyText         string `json:"body_text,omitempty"`
	IsOrdinance      bool   `json:"is_ordinance"`
	IsActive         bool   `json:"is_active"`
}

// SectionVersionGroup aligns "the same section" across a BaseGroup's
// amendment history. At most one member is active at any evaluation time.
type SectionVersionGroup struct {
	BaseStatuteName string           `json:"base_statute_name"`
	Jurisdiction    string           `json:"jurisdiction"`
	DocumentType    string           `json:"document_type"`
	SectionNumber   string           `json:"section_number"`
	Definition      string           `json:"definition,omitempty"`
	Versions        []SectionVersion `json:"versions"`
}

// ActiveVersion returns the currently active version, or nil if the group has
// none.
func (g *SectionVersionGroup) ActiveVersion() *SectionVersion {
	for i := range g.Versions {
		if g.Versions[i].IsActive {
			return &g.Versions[i]
		}
	}
	return nil
}

// Status values for SectionVersion entries.
const (
	StatusCurrent    = "current"
	StatusSuperseded = "superseded"
	StatusExpired    = "expired"
)

// Date reports the record's promulgation date and whether it parsed. An
// absent or malformed date is never fatal: callers treat it as least recent.
func (r *StatuteRecord) Date() (time.Time, bool) {
	return ParseFlexibleDate(r.PromulgationDate)
}

// Year returns the record's promulgation year, or 0 when the date is absent
// or unparseable.
func (r *StatuteRecord) Year() int {
	if t, ok := r.Date(); ok {
		return t.Year()
	}
	return 0
}
