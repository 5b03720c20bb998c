// Package schwab parses Charles Schwab realized gain/loss CSV exports.
package schwab

import (
	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers/generic"
	"github.com/username/capfolio/backend/src/parsers/tabular"
)

type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) Name() string { return "schwab" }

// CanParse recognizes the export by the Schwab name in the preamble, or by
// the "(CB)" / "(GL)" column suffixes no other supported broker uses.
func (p *Parser) CanParse(t tabular.Table) bool {
	if t.ContainsMarker("schwab") {
		return true
	}
	header := t[t.FindHeaderRow()]
	return tabular.ResolveColumn(header, []string{"(cb)"}) >= 0 &&
		tabular.ResolveColumn(header, []string{"(gl)"}) >= 0
}

func (p *Parser) Parse(t tabular.Table) *models.EquityParseResult {
	headerIdx := t.FindHeaderRow()
	header := t[headerIdx]

	mapping := models.ColumnMapping{
		models.FieldSymbol: tabular.ResolveColumn(header, tabular.SymbolAliases),
		// Schwab labels the acquisition and sale dates "Opened Date" and
		// "Closed Date".
		models.FieldDateAcquired: tabular.ResolveColumn(header, []string{"opened date", "open date", "date acquired"}),
		models.FieldDateSold:     tabular.ResolveColumn(header, []string{"closed date", "close date", "date sold"}),
		models.FieldProceeds:     tabular.ResolveColumn(header, tabular.ProceedsAliases),
		models.FieldCostBasis:    tabular.ResolveColumn(header, tabular.CostBasisAliases),
	}
	setOptional(mapping, models.FieldDescription, tabular.ResolveColumn(header, tabular.DescriptionAliases))
	setOptional(mapping, models.FieldQuantity, tabular.ResolveColumn(header, tabular.QuantityAliases))
	setOptional(mapping, models.FieldWashSale, tabular.ResolveColumn(header, tabular.WashSaleAliases))
	setOptional(mapping, models.FieldCovered, tabular.ResolveColumn(header, tabular.CoveredAliases))

	return generic.ParseEquityRows(t, headerIdx, mapping, models.DateFormatMDY, p.Name(), true)
}

func setOptional(m models.ColumnMapping, field string, idx int) {
	if idx >= 0 {
		m[field] = idx
	}
}
