package models

import "fmt"

// ParseError describes a problem with one row (or the header) of an import.
// Row is 1-based and references the original file, including any preamble
// above the detected header.
type ParseError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (e ParseError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ParseResult is what a crypto source parser returns: the canonical
// transaction stream plus per-row errors and advisory warnings. Errors block
// the affected rows only; warnings never block anything.
type ParseResult struct {
	Transactions []CanonicalTransaction `json:"transactions"`
	Errors       []ParseError           `json:"errors"`
	Warnings     []string               `json:"warnings"`
}

// AddError records a row-level parse error.
func (r *ParseResult) AddError(row int, column, format string, args ...any) {
	r.Errors = append(r.Errors, ParseError{Row: row, Column: column, Message: fmt.Sprintf(format, args...)})
}

// AddWarning records a non-blocking advisory.
func (r *ParseResult) AddWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}
