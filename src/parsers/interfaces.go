package parsers

import (
	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers/tabular"
)

// EquityParser turns a broker realized gain/loss export into reportable
// transactions. Equity 1099-B rows already carry both sides of each disposal,
// so they bypass the lot ledger entirely.
type EquityParser interface {
	// Name identifies the source ("fidelity", "schwab", ...).
	Name() string
	// CanParse reports whether the table looks like this source's export.
	CanParse(t tabular.Table) bool
	// Parse converts the table. Row-level problems land in the result's
	// Errors; they never abort the remaining rows.
	Parse(t tabular.Table) *models.EquityParseResult
}

// CryptoParser turns an exchange history export into the canonical
// transaction stream the cost-basis engine consumes.
type CryptoParser interface {
	Name() string
	CanParse(t tabular.Table) bool
	Parse(t tabular.Table) *models.ParseResult
}
