package statute

import (
	"regexp"
	"strconv"
	"time"
)

// dateLayouts are the accepted promulgation-date formats, tried in order.
// Day-first layouts come before month-first because the ingested corpora are
// predominantly Commonwealth gazettes.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006",
}

var yearOnlyRe = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)

// ParseFlexibleDate parses a promulgation date in any accepted layout.
// Returns ok=false for empty or unparseable input; such dates sort as least
// recent and are never preferred over a parseable one.
func ParseFlexibleDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	// Fall back to any embedded 4-digit year, e.g. "the 20th day of August, 1997".
	if match := yearOnlyRe.FindString(raw); match != "" {
		year, err := strconv.Atoi(match)
		if err == nil {
			return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ExtractYear returns the first plausible 4-digit year embedded in the raw
// date or name text, or 0 when none is present.
func ExtractYear(raw string) int {
	match := yearOnlyRe.FindString(raw)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return year
}

// CompareDates orders two optional dates for version chaining: a parseable
// date always precedes an unparseable one; two unparseable dates compare
// equal. Returns -1, 0, or 1.
func CompareDates(a time.Time, aOK bool, b time.Time, bOK bool) int {
	switch {
	case aOK && !bOK:
		return -1
	case !aOK && bOK:
		return 1
	case !aOK && !bOK:
		return 0
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}
