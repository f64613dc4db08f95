package statute

import "strings"

// Category is the legal-hierarchy bucket of a document type. Lower rank means
// higher legal authority.
type Category string

const (
	CategoryConstitution Category = "constitution"
	CategoryAct          Category = "act"
	CategoryOrdinance    Category = "ordinance"
	CategoryRule         Category = "rule"
	CategoryRegulation   Category = "regulation"
	CategoryOrder        Category = "order"
	CategoryResolution   Category = "resolution"
	CategoryOther        Category = "other"
)

// categoryRank orders buckets by legal authority:
// Constitution > Act > Ordinance > Rule > Regulation > Order > Resolution.
var categoryRank = map[Category]int{
	CategoryConstitution: 0,
	CategoryAct:          1,
	CategoryOrdinance:    2,
	CategoryRule:         3,
	CategoryRegulation:   4,
	CategoryOrder:        5,
	CategoryResolution:   6,
	CategoryOther:        7,
}

// Rank returns the category's position in the legal hierarchy; unknown
// categories rank last.
func (c Category) Rank() int {
	if rank, ok := categoryRank[c]; ok {
		return rank
	}
	return categoryRank[CategoryOther]
}

// CategoryOf derives the hierarchy bucket from a free-form document type.
// Matching is substring-based because ingested types carry qualifiers such as
// "Provincial Act" or "Amendment Ordinance".
func CategoryOf(documentType string) Category {
	lowered := strings.ToLower(documentType)
	switch {
	case strings.Contains(lowered, "constitution"):
		return CategoryConstitution
	case strings.Contains(lowered, "act"):
		return CategoryAct
	case strings.Contains(lowered, "ordinance"):
		return CategoryOrdinance
	case strings.Contains(lowered, "rule"):
		return CategoryRule
	case strings.Contains(lowered, "regulation"):
		return CategoryRegulation
	case strings.Contains(lowered, "order"):
		return CategoryOrder
	case strings.Contains(lowered, "resolution"):
		return CategoryResolution
	default:
		return CategoryOther
	}
}

// IsOrdinanceType reports whether a document type denotes an ordinance, the
// only category subject to time-based expiration.
func IsOrdinanceType(documentType string) bool {
	return CategoryOf(documentType) == CategoryOrdinance
}
