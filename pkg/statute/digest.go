package statute

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ComputeDigest returns the content digest of a record: a SHA-256 over its
// name, document type, and every section body in order. Two records with the
// same digest are byte-identical for deduplication purposes.
func ComputeDigest(record *StatuteRecord) string {
	var b strings.Builder
	b.WriteString(record.Name)
	b.WriteByte('\n')
	b.WriteString(record.DocumentType)
	for _, section := range record.Sections {
		b.WriteByte('\n')
		b.WriteString(section.SectionNumber)
		b.WriteByte('\n')
		b.WriteString(section.BodyText)
	}
	hash := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(hash[:])
}

// ComparableText concatenates the fields compared during deduplication:
// name, document type, and all section bodies.
func (r *StatuteRecord) ComparableText() string {
	parts := make([]string, 0, len(r.Sections)+2)
	parts = append(parts, r.Name, r.DocumentType)
	for _, section := range r.Sections {
		parts = append(parts, section.BodyText)
	}
	return strings.Join(parts, " ")
}
