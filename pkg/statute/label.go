package statute

import "fmt"

// LabelOriginal is the version label of the earliest member of a chain.
const LabelOriginal = "Original"

// ordinalNames covers the common amendment counts; larger positions fall back
// to a numeric ordinal.
var ordinalNames = []string{
	"First", "Second", "Third", "Fourth", "Fifth",
	"Sixth", "Seventh", "Eighth", "Ninth", "Tenth",
}

// VersionLabel returns the discrete label for a chronological position within
// a BaseGroup: 0 is "Original", 1 is "First Amendment", and so on. Positions
// beyond the named ordinals use the numeric form, e.g. "13th Amendment".
func VersionLabel(position int) string {
	if position <= 0 {
		return LabelOriginal
	}
	if position <= len(ordinalNames) {
		return ordinalNames[position-1] + " Amendment"
	}
	return fmt.Sprintf("%s Amendment", numericOrdinal(position))
}

// numericOrdinal renders 11 -> "11th", 22 -> "22nd", etc.
func numericOrdinal(n int) string {
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
