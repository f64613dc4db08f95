package versioning

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/coolbeans/lexchain/pkg/similarity"
)

// DateSheet is the spreadsheet collaborator: tabular (statuteName, bestDate)
// records used to backfill missing promulgation dates before version-chain
// assignment. Lookup is by normalized statute name.
type DateSheet struct {
	dates map[string]string
}

// NewDateSheet builds an empty sheet; Lookup misses on everything.
func NewDateSheet() *DateSheet {
	return &DateSheet{dates: make(map[string]string)}
}

// LoadDateSheet reads a two-column CSV of (statuteName, bestDate). A header
// row is tolerated; short or empty rows are skipped. Later rows win on
// duplicate names.
func LoadDateSheet(path string) (*DateSheet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open date sheet %s: %w", path, err)
	}
	defer file.Close()

	sheet := NewDateSheet()
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read date sheet %s: %w", path, err)
		}
		if len(row) < 2 || row[0] == "" || row[1] == "" {
			continue
		}
		if row[0] == "statuteName" || row[0] == "statute_name" {
			continue
		}
		sheet.Put(row[0], row[1])
	}
	return sheet, nil
}

// Put records a best-known date for a statute name.
func (sheet *DateSheet) Put(name, date string) {
	sheet.dates[similarity.NormalizeName(name)] = date
}

// Lookup returns the best-known date for a statute name, if any.
func (sheet *DateSheet) Lookup(name string) (string, bool) {
	date, ok := sheet.dates[similarity.NormalizeName(name)]
	return date, ok
}

// Len returns the number of entries loaded.
func (sheet *DateSheet) Len() int {
	return len(sheet.dates)
}
