// Tabular reading shared by every source parser: CSV dialect handling, header
// detection and alias-based column resolution.
package tabular

import (
	"encoding/csv"
	"fmt"
	"strings"
)

// Table is an ordered sequence of rows; row order mirrors file order and is
// significant.
type Table [][]string

// headerScanLimit bounds how far down the file we look for a header row.
// Broker exports routinely open with a preamble of account metadata.
const headerScanLimit = 15

// ReadTable splits raw CSV text into rows and cells. The delimiter is sniffed
// (comma, semicolon or tab), ragged rows are allowed, and a UTF-8 BOM is
// stripped.
func ReadTable(content string) (Table, error) {
	content = strings.TrimPrefix(content, "\uFEFF")
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("empty input")
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = sniffDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV records: %w", err)
	}
	return Table(records), nil
}

// sniffDelimiter picks the candidate separator that occurs most often across
// the first rows. Comma wins ties, matching the overwhelmingly common case.
func sniffDelimiter(content string) rune {
	lines := strings.SplitN(content, "\n", 11)
	if len(lines) > 10 {
		lines = lines[:10]
	}
	counts := map[rune]int{',': 0, ';': 0, '\t': 0}
	for _, line := range lines {
		for _, r := range line {
			if _, ok := counts[r]; ok {
				counts[r]++
			}
		}
	}
	best := ','
	for _, cand := range []rune{';', '\t'} {
		if counts[cand] > counts[best] {
			best = cand
		}
	}
	return best
}

// FindHeaderRow scans the first rows for the one that looks like a header:
// it must contain at least one identity column alias and at least one date
// column alias. The first match wins; when nothing matches, row 0 is assumed.
func (t Table) FindHeaderRow() int {
	limit := len(t)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for i := 0; i < limit; i++ {
		if rowMatchesAny(t[i], identityAliases) && rowMatchesAny(t[i], dateAliases) {
			return i
		}
	}
	return 0
}

// ContainsMarker reports whether any cell in the first rows contains the
// marker, case-insensitively. Source parsers use it for cheap format
// detection ("fidelity", "coinbase", ...).
func (t Table) ContainsMarker(marker string) bool {
	marker = strings.ToLower(marker)
	limit := len(t)
	if limit > headerScanLimit {
		limit = headerScanLimit
	}
	for i := 0; i < limit; i++ {
		for _, cell := range t[i] {
			if strings.Contains(strings.ToLower(cell), marker) {
				return true
			}
		}
	}
	return false
}

func rowMatchesAny(row []string, aliases []string) bool {
	for _, cell := range row {
		lower := strings.ToLower(cell)
		for _, a := range aliases {
			if strings.Contains(lower, a) {
				return true
			}
		}
	}
	return false
}

// IsBlankRow reports whether every cell is empty or whitespace.
func IsBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// footerMarkers match summary rows brokers append below the data.
var footerMarkers = []string{"total", "subtotal", "account", "***"}

// IsFooterRow reports whether the row's first cell marks a summary/footer row
// rather than a transaction.
func IsFooterRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	for _, marker := range footerMarkers {
		if strings.HasPrefix(first, marker) {
			return true
		}
	}
	return false
}
