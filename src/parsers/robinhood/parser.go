// Package robinhood parses Robinhood consolidated 1099-B CSV exports.
package robinhood

import (
	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers/generic"
	"github.com/username/capfolio/backend/src/parsers/tabular"
)

type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) Name() string { return "robinhood" }

// CanParse only triggers on the Robinhood name itself: the rest of the
// header is close enough to the generic 1099-B shape that column heuristics
// would shadow the other brokers.
func (p *Parser) CanParse(t tabular.Table) bool {
	return t.ContainsMarker("robinhood")
}

func (p *Parser) Parse(t tabular.Table) *models.EquityParseResult {
	headerIdx := t.FindHeaderRow()
	header := t[headerIdx]

	mapping := models.ColumnMapping{
		models.FieldSymbol:       tabular.ResolveColumn(header, tabular.SymbolAliases),
		models.FieldDateAcquired: tabular.ResolveColumn(header, tabular.DateAcquiredAliases),
		models.FieldDateSold:     tabular.ResolveColumn(header, tabular.DateSoldAliases),
		models.FieldProceeds:     tabular.ResolveColumn(header, tabular.ProceedsAliases),
		models.FieldCostBasis:    tabular.ResolveColumn(header, tabular.CostBasisAliases),
	}
	setOptional(mapping, models.FieldDescription, tabular.ResolveColumn(header, tabular.DescriptionAliases))
	setOptional(mapping, models.FieldQuantity, tabular.ResolveColumn(header, tabular.QuantityAliases))
	setOptional(mapping, models.FieldWashSale, tabular.ResolveColumn(header, []string{"wash sales disallowed", "wash sale"}))
	setOptional(mapping, models.FieldCovered, tabular.ResolveColumn(header, tabular.CoveredAliases))

	return generic.ParseEquityRows(t, headerIdx, mapping, models.DateFormatMDY, p.Name(), true)
}

func setOptional(m models.ColumnMapping, field string, idx int) {
	if idx >= 0 {
		m[field] = idx
	}
}
