package tabular

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/capfolio/backend/src/models"
)

// ParseDecimal converts a broker-formatted numeric cell into a decimal.
// It tolerates currency symbols, thousands separators, surrounding quotes and
// accounting-style parenthesized negatives. An empty cell parses as zero.
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "--" {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		case r == '$' || r == ',' || r == ' ' || r == '+' || r == '"' || r == '\'':
			// formatting noise
		default:
			return decimal.Zero, fmt.Errorf("invalid number: %q", s)
		}
	}
	if b.Len() == 0 {
		return decimal.Zero, fmt.Errorf("invalid number: %q", s)
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number: %q", s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// hint layouts come first so an explicit format choice beats guessing.
var hintLayouts = map[models.DateFormat][]string{
	models.DateFormatMDY: {"01/02/2006", "1/2/2006", "01/02/06", "01-02-2006"},
	models.DateFormatDMY: {"02/01/2006", "2/1/2006", "02/01/06", "02-01-2006"},
	models.DateFormatYMD: {"2006-01-02", "2006/01/02", "20060102"},
	models.DateFormatISO: {time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"},
}

// guessLayouts covers the formats seen across broker and exchange exports.
var guessLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006 15:04",
	"1/2/2006",
	"Jan 2, 2006",
	"Jan-02-2006",
	"02-Jan-2006",
	"20060102",
}

// ParseDate parses a date cell, trying the hint's layouts first and then a
// layout guess list. The zone is left as parsed; day resolution is enough for
// everything downstream except tie-breaking, which uses full timestamps when
// the source provides them.
func ParseDate(s string, hint models.DateFormat) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if layouts, ok := hintLayouts[hint]; ok {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
	}
	for _, layout := range guessLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// RFC3339 with an offset suffix some exchanges truncate oddly.
	if idx := strings.LastIndex(s, "+"); idx > 0 {
		if t, err := time.Parse("2006-01-02T15:04:05", s[:idx]); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", s)
}

// acquiredPlaceholders are the non-date values brokers put in the
// date-acquired column.
var acquiredPlaceholders = map[string]bool{
	"various":   true,
	"inherited": true,
	"gifted":    true,
	"unknown":   true,
	"n/a":       true,
}

// estimatedHoldingOffset is how far before the sale an unplaceable
// acquisition is assumed to sit: 18 months, comfortably long-term.
const estimatedHoldingMonths = 18

// ParseAcquiredDate handles the date-acquired column's placeholder values
// ("Various", "Inherited", "Gifted") by estimating a date relative to the
// sale. The second return value reports whether the date was estimated.
func ParseAcquiredDate(s string, sold time.Time, hint models.DateFormat) (time.Time, bool, error) {
	if acquiredPlaceholders[strings.ToLower(strings.TrimSpace(s))] {
		return sold.AddDate(0, -estimatedHoldingMonths, 0), true, nil
	}
	t, err := ParseDate(s, hint)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, false, nil
}

// ParseBool interprets the yes/no vocabulary brokers use for flag columns
// like "basis reported to IRS".
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "covered", "reported":
		return true
	}
	return false
}
